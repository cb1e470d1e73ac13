// Package oraclehandler serves the attestation oracle over HTTP.
package oraclehandler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/package-registry/api"
	"github.com/ruteri/package-registry/interfaces"
	"github.com/ruteri/package-registry/oracle"
)

const (
	AttestPath = "/api/v1/attest"

	maxBodySize = 16 * 1024
)

// Attester registers authors after verifying their proof.
type Attester interface {
	Attest(ctx context.Context, req oracle.AttestRequest) (interfaces.Address, error)
}

type Handler struct {
	attester Attester
	log      *slog.Logger
}

func NewHandler(attester Attester, log *slog.Logger) *Handler {
	return &Handler{attester: attester, log: log}
}

// RegisterRoutes mounts the oracle on the root path and on AttestPath. Both
// accept any method so that non-POST requests get the oracle's own 405.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.HandleFunc("/", h.HandleAttest)
	r.HandleFunc(AttestPath, h.HandleAttest)
}

// HandleAttest verifies a GitHub proof and registers the author.
//
// Request body: {"username": string, "keypair": [64 bytes], "pubkey"?: string}
// Response: the base58 author address as plain text.
func (h *Handler) HandleAttest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeText(w, http.StatusMethodNotAllowed, "This endpoint supports only POST requests.")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeText(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	var req api.AttestRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeText(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}

	keypair, err := req.KeypairBytes()
	if err != nil {
		writeText(w, http.StatusBadRequest, (&oracle.BadRequestError{Field: "keypair", Cause: err}).Error())
		return
	}
	clear(req.Keypair)

	address, err := h.attester.Attest(r.Context(), oracle.AttestRequest{
		Handle:  req.Username,
		Keypair: keypair,
		Pubkey:  req.Pubkey,
	})
	if err != nil {
		status, message := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.log.Warn("attestation failed", "username", req.Username, "status", status, "err", err)
		}
		writeText(w, status, message)
		return
	}

	writeText(w, http.StatusOK, address.String())
}

func statusFor(err error) (int, string) {
	var (
		badRequest   *oracle.BadRequestError
		unauthorized *oracle.UnauthorizedError
		rejected     *oracle.RegistrationRejectedError
	)
	switch {
	case errors.As(err, &badRequest):
		return http.StatusBadRequest, badRequest.Error()
	case errors.As(err, &unauthorized):
		return http.StatusUnauthorized, unauthorized.Error()
	case errors.As(err, &rejected):
		return http.StatusInternalServerError, rejected.Error()
	case errors.Is(err, interfaces.ErrTransport):
		return http.StatusBadGateway, "Failed to fetch the GitHub profile: " + err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func writeText(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(message))
}
