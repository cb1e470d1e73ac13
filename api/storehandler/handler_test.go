package storehandler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/package-registry/cryptoutils"
	"github.com/ruteri/package-registry/interfaces"
	"github.com/ruteri/package-registry/registry"
	"github.com/ruteri/package-registry/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupTestServer(t *testing.T, store interfaces.RegistryStore) (*httptest.Server, *RemoteStore) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := chi.NewRouter()
	NewHandler(store, logger).RegisterRoutes(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, NewRemoteStore(server.URL)
}

func newStore(t *testing.T) (*registry.Store, registry.Config) {
	cfg, err := registry.LocalTestConfig()
	require.NoError(t, err)
	store, err := registry.NewStore(context.Background(), cfg, storage.NewMemoryBackend(), nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return store, cfg
}

func TestRemoteStoreRoundTrip(t *testing.T) {
	store, cfg := newStore(t)
	_, remote := setupTestServer(t, store)
	ctx := context.Background()

	carol, err := cryptoutils.GenerateKeypair()
	require.NoError(t, err)

	receipt, err := remote.Airdrop(ctx, carol.PublicKey(), 5_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), receipt.Slot)

	balance, err := remote.Balance(ctx, carol.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000_000), balance)

	address, bump, err := cfg.PackageAddress("carol", "pkg")
	require.NoError(t, err)
	tx := &interfaces.Transaction{Message: interfaces.Message{
		ProgramID:   cfg.ProgramID,
		Instruction: interfaces.InstructionCreatePackage,
		Address:     address,
		Bump:        bump,
		Scope:       "carol",
		Name:        "pkg",
		Payer:       carol.PublicKey(),
		Authority:   carol.PublicKey(),
		Nonce:       1,
	}}
	require.NoError(t, tx.Sign(carol))

	receipt, err = remote.Submit(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, tx.ID(), receipt.Signature)

	record, err := remote.ReadRecord(ctx, address)
	require.NoError(t, err)
	assert.Equal(t, interfaces.KindPackage, record.Kind)
	assert.Equal(t, "@carol/pkg", record.Package.FullName())
	assert.Equal(t, carol.PublicKey(), record.Authority())
	assert.Equal(t, registry.MinimumBalance(registry.PackageDataSize), record.Lamports)

	_, err = remote.Submit(ctx, tx)
	assert.ErrorIs(t, err, interfaces.ErrAlreadyExists)
}

func TestRemoteStoreErrors(t *testing.T) {
	store, cfg := newStore(t)
	server, remote := setupTestServer(t, store)
	ctx := context.Background()

	address, _, err := cfg.AuthorAddress("nobody")
	require.NoError(t, err)
	_, err = remote.ReadRecord(ctx, address)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	assert.Equal(t, interfaces.CodeNotFound, interfaces.CodeOf(err))

	_, err = remote.Airdrop(ctx, interfaces.PublicKey{1}, 0)
	assert.ErrorIs(t, err, interfaces.ErrInvalidTransaction)

	resp, err := http.Get(server.URL + "/api/v1/accounts/not-base58-0OIl")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(server.URL+"/api/v1/transactions", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	unreachable := NewRemoteStore("http://127.0.0.1:1")
	_, err = unreachable.Balance(ctx, interfaces.PublicKey{1})
	assert.ErrorIs(t, err, interfaces.ErrTransport)
}

func TestAuthorizationErrorsSurviveTransport(t *testing.T) {
	mockStore := new(registry.MockStore)
	mockStore.On("Submit", mock.Anything, mock.Anything).
		Return(interfaces.TransactionReceipt{}, interfaces.NewStoreError(interfaces.ErrAuthorityMismatch, "not authorized"))
	_, remote := setupTestServer(t, mockStore)

	_, err := remote.Submit(context.Background(), &interfaces.Transaction{})
	require.Error(t, err)
	assert.Equal(t, "not authorized", err.Error())
	assert.True(t, errors.Is(err, interfaces.ErrAuthorityMismatch))
	assert.False(t, errors.Is(err, interfaces.ErrInvalidOracle))
}

func TestStatusFor(t *testing.T) {
	cases := map[interfaces.ErrorCode]int{
		interfaces.CodeInvalidString:        http.StatusBadRequest,
		interfaces.CodeAddressMismatch:      http.StatusBadRequest,
		interfaces.CodeInsufficientFunds:    http.StatusPaymentRequired,
		interfaces.CodeInvalidOracle:        http.StatusForbidden,
		interfaces.CodeAuthorityMismatch:    http.StatusForbidden,
		interfaces.CodeFaucetDisabled:       http.StatusForbidden,
		interfaces.CodeNotFound:             http.StatusNotFound,
		interfaces.CodeAlreadyExists:        http.StatusConflict,
		interfaces.CodeDuplicateTransaction: http.StatusConflict,
		interfaces.CodeBackendUnavailable:   http.StatusInternalServerError,
		interfaces.CodeCorruptAccount:       http.StatusInternalServerError,
		interfaces.CodeInternal:             http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, StatusFor(code), code)
	}
}
