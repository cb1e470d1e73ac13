package httpserver

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/package-registry/cryptoutils"
	"github.com/ruteri/package-registry/interfaces"
	"github.com/ruteri/package-registry/kms"
)

const (
	AdminIDHeader        = "X-Admin-ID"
	AdminSignatureHeader = "X-Admin-Signature"
)

// UnlockState is the state of the oracle key unlock.
type UnlockState int

const (
	StateLocked UnlockState = iota
	StateUnlocked
)

func (s UnlockState) String() string {
	switch s {
	case StateLocked:
		return "locked"
	case StateUnlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// AdminHandler unlocks the oracle key from Shamir shares submitted by
// whitelisted admins. Each admin submits one share, authenticated by an
// ed25519 signature over the request path and body.
type AdminHandler struct {
	mu        sync.Mutex
	log       *slog.Logger
	admins    map[string]interfaces.PublicKey
	expected  interfaces.PublicKey
	threshold int

	state     UnlockState
	collector *kms.ShareCollector
	submitted map[string]bool
	keypair   *cryptoutils.Keypair
	complete  chan struct{}
}

// NewAdminHandler creates an admin handler that recovers the keypair whose
// public key is expected once threshold admins have submitted their shares.
func NewAdminHandler(log *slog.Logger, admins map[string]interfaces.PublicKey, expected interfaces.PublicKey, threshold int) (*AdminHandler, error) {
	if len(admins) < threshold {
		return nil, fmt.Errorf("%d admins cannot reach threshold %d", len(admins), threshold)
	}
	collector, err := kms.NewShareCollector(threshold)
	if err != nil {
		return nil, err
	}
	return &AdminHandler{
		log:       log,
		admins:    admins,
		expected:  expected,
		threshold: threshold,
		collector: collector,
		submitted: make(map[string]bool),
		complete:  make(chan struct{}),
	}, nil
}

// WaitForUnlock blocks until the key is recovered or ctx is done.
func (h *AdminHandler) WaitForUnlock(ctx context.Context) (*cryptoutils.Keypair, error) {
	select {
	case <-h.complete:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.keypair, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *AdminHandler) AdminRouter() chi.Router {
	r := chi.NewRouter()
	r.Get("/status", h.handleStatus)
	r.Post("/share", h.handleSubmitShare)
	return r
}

// AdminStatus is the body of GET /admin/status.
type AdminStatus struct {
	State     string `json:"state"`
	Threshold int    `json:"threshold"`
	Submitted int    `json:"submitted"`
}

// handleStatus reports the unlock state.
//
// Endpoint: GET /admin/status
func (h *AdminHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	resp := AdminStatus{
		State:     h.state.String(),
		Threshold: h.threshold,
		Submitted: len(h.submitted),
	}
	h.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleSubmitShare accepts one hex-encoded share per admin.
//
// Endpoint: POST /admin/share
// Body: {"share": "<hex>"}
func (h *AdminHandler) handleSubmitShare(w http.ResponseWriter, r *http.Request) {
	adminID, body, ok := h.verifyAdmin(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var submission struct {
		Share string `json:"share"`
	}
	if err := json.Unmarshal(body, &submission); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	share, err := hex.DecodeString(submission.Share)
	if err != nil || len(share) == 0 {
		http.Error(w, "Invalid share encoding", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == StateUnlocked {
		http.Error(w, "Oracle key already unlocked", http.StatusBadRequest)
		return
	}
	if h.submitted[adminID] {
		http.Error(w, "Share already submitted", http.StatusBadRequest)
		return
	}

	done, err := h.collector.Submit(share)
	if err != nil {
		h.log.Error("Share submission failed", "err", err, "adminID", adminID)
		if !errors.Is(err, kms.ErrDuplicateShare) {
			h.reset()
		}
		http.Error(w, "Share submission failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	h.submitted[adminID] = true

	if !done {
		h.log.Info("Share accepted", "adminID", adminID, "submitted", len(h.submitted), "threshold", h.threshold)
		writeMessage(w, "Share accepted, waiting for more shares")
		return
	}

	kp := h.collector.Keypair()
	if kp.PublicKey() != h.expected {
		h.log.Error("Recovered key does not match the oracle public key", "recovered", kp.PublicKey(), "expected", h.expected)
		kp.Wipe()
		h.reset()
		http.Error(w, "Recovered key does not match the oracle public key, submit shares again", http.StatusBadRequest)
		return
	}

	h.keypair = kp
	h.state = StateUnlocked
	close(h.complete)

	h.log.Info("Oracle key unlocked", "adminID", adminID, "pubkey", kp.PublicKey())
	writeMessage(w, "Oracle key unlocked")
}

// reset discards collected shares. Callers hold the lock.
func (h *AdminHandler) reset() {
	h.collector, _ = kms.NewShareCollector(h.threshold)
	h.submitted = make(map[string]bool)
}

// verifyAdmin checks the admin headers against the whitelist and returns
// the request body the signature covers.
func (h *AdminHandler) verifyAdmin(r *http.Request) (string, []byte, bool) {
	adminID := r.Header.Get(AdminIDHeader)
	signatureStr := r.Header.Get(AdminSignatureHeader)
	if adminID == "" || signatureStr == "" {
		return "", nil, false
	}

	pubkey, exists := h.admins[adminID]
	if !exists {
		h.log.Warn("Authentication failed: unknown admin ID", "adminID", adminID)
		return adminID, nil, false
	}

	signature, err := hex.DecodeString(signatureStr)
	if err != nil || len(signature) != ed25519.SignatureSize {
		h.log.Warn("Authentication failed: invalid signature encoding", "adminID", adminID)
		return adminID, nil, false
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 64*1024))
	if err != nil {
		h.log.Error("Failed to read request body", "err", err)
		return adminID, nil, false
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	if !ed25519.Verify(ed25519.PublicKey(pubkey[:]), AdminMessage(r.URL.Path, body), signature) {
		h.log.Warn("Authentication failed: invalid signature", "adminID", adminID)
		return adminID, nil, false
	}

	h.log.Debug("Admin authentication successful", "adminID", adminID)
	return adminID, body, true
}

// AdminMessage is the payload an admin signs: the request path followed by
// the body.
func AdminMessage(path string, body []byte) []byte {
	return append([]byte(path), body...)
}

// SignAdminRequest sets the admin headers on req for body.
func SignAdminRequest(req *http.Request, adminID string, kp *cryptoutils.Keypair, body []byte) error {
	sig, err := kp.Sign(AdminMessage(req.URL.Path, body))
	if err != nil {
		return err
	}
	req.Header.Set(AdminIDHeader, adminID)
	req.Header.Set(AdminSignatureHeader, hex.EncodeToString(sig[:]))
	return nil
}

// AdminKeysFile is the admin whitelist file of the oracle.
type AdminKeysFile struct {
	Admins []AdminKeyEntry `json:"admins"`
}

type AdminKeyEntry struct {
	ID     string               `json:"id"`
	Pubkey interfaces.PublicKey `json:"pubkey"`
}

// LoadAdminKeys loads admin public keys from JSON of the form
// {"admins": [{"id": "alice", "pubkey": "<base58>"}]}.
func LoadAdminKeys(r io.Reader) (map[string]interfaces.PublicKey, error) {
	var file AdminKeysFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode admin keys: %w", err)
	}

	admins := make(map[string]interfaces.PublicKey, len(file.Admins))
	for _, a := range file.Admins {
		if a.ID == "" {
			return nil, errors.New("admin entry without id")
		}
		if _, dup := admins[a.ID]; dup {
			return nil, fmt.Errorf("duplicate admin id %q", a.ID)
		}
		admins[a.ID] = a.Pubkey
	}
	return admins, nil
}

func writeMessage(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"message": message})
}
