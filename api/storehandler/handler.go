// Package storehandler exposes a RegistryStore over HTTP.
package storehandler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/package-registry/api"
	"github.com/ruteri/package-registry/interfaces"
)

const maxBodySize = 64 * 1024

// Handler serves the registry node API.
type Handler struct {
	store interfaces.RegistryStore
	log   *slog.Logger
}

func NewHandler(store interfaces.RegistryStore, log *slog.Logger) *Handler {
	return &Handler{store: store, log: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/v1/transactions", h.HandleSubmit)
	r.Get("/api/v1/accounts/{address}", h.HandleReadRecord)
	r.Get("/api/v1/balances/{pubkey}", h.HandleBalance)
	r.Post("/api/v1/airdrop", h.HandleAirdrop)
}

// HandleSubmit applies a signed transaction.
//
// Request body: JSON interfaces.Transaction
// Response: JSON interfaces.TransactionReceipt, or a StoreError.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var tx interfaces.Transaction
	if err := decodeBody(r, &tx); err != nil {
		h.writeError(w, interfaces.NewStoreError(interfaces.ErrInvalidTransaction, "could not decode transaction: %s", err))
		return
	}

	receipt, err := h.store.Submit(r.Context(), &tx)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, receipt)
}

// HandleReadRecord returns the live record at the address in the path.
func (h *Handler) HandleReadRecord(w http.ResponseWriter, r *http.Request) {
	address, err := interfaces.NewPublicKeyFromBase58(chi.URLParam(r, "address"))
	if err != nil {
		h.writeError(w, interfaces.NewStoreError(interfaces.ErrInvalidTransaction, "invalid address: %s", err))
		return
	}

	record, err := h.store.ReadRecord(r.Context(), address)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, api.NewRecordResponse(record))
}

// HandleBalance returns the lamports held at the key in the path.
func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	key, err := interfaces.NewPublicKeyFromBase58(chi.URLParam(r, "pubkey"))
	if err != nil {
		h.writeError(w, interfaces.NewStoreError(interfaces.ErrInvalidTransaction, "invalid public key: %s", err))
		return
	}

	lamports, err := h.store.Balance(r.Context(), key)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, api.BalanceResponse{Pubkey: key, Lamports: lamports})
}

// HandleAirdrop credits a wallet from the faucet.
func (h *Handler) HandleAirdrop(w http.ResponseWriter, r *http.Request) {
	var req api.AirdropRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, interfaces.NewStoreError(interfaces.ErrInvalidTransaction, "could not decode airdrop request: %s", err))
		return
	}

	receipt, err := h.store.Airdrop(r.Context(), req.Pubkey, req.Lamports)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, receipt)
}

func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return errors.New("empty request body")
	}
	return json.Unmarshal(body, v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	storeErr := interfaces.AsStoreError(err)
	status := StatusFor(storeErr.Code)
	if status == http.StatusInternalServerError {
		h.log.Error("store request failed", "code", storeErr.Code, "err", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(storeErr); err != nil {
		h.log.Error("Failed to encode error response", "err", err)
	}
}

// StatusFor maps an error code to its HTTP status.
func StatusFor(code interfaces.ErrorCode) int {
	switch code {
	case interfaces.CodeInvalidString, interfaces.CodeInvalidSeeds, interfaces.CodeDerivationExhausted,
		interfaces.CodeAccountKind, interfaces.CodeAddressMismatch, interfaces.CodeProgramMismatch,
		interfaces.CodeInvalidTransaction:
		return http.StatusBadRequest
	case interfaces.CodeInsufficientFunds:
		return http.StatusPaymentRequired
	case interfaces.CodeInvalidOracle, interfaces.CodeAuthorityMismatch,
		interfaces.CodeMissingSignature, interfaces.CodeInvalidSignature, interfaces.CodeFaucetDisabled:
		return http.StatusForbidden
	case interfaces.CodeNotFound:
		return http.StatusNotFound
	case interfaces.CodeAlreadyExists, interfaces.CodeDuplicateTransaction:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
