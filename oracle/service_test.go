package oracle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/ruteri/package-registry/attestation"
	"github.com/ruteri/package-registry/cryptoutils"
	"github.com/ruteri/package-registry/interfaces"
	"github.com/ruteri/package-registry/registry"
	"github.com/ruteri/package-registry/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubProfiles map[string]string

func (p stubProfiles) FetchProfile(ctx context.Context, handle string) (string, bool, error) {
	if handle == "unreachable" {
		return "", false, fmt.Errorf("%w: connection refused", interfaces.ErrTransport)
	}
	bio, ok := p[handle]
	return bio, ok, nil
}

type env struct {
	service  *Service
	store    *registry.Store
	cfg      registry.Config
	profiles stubProfiles
}

func newKeypair(t *testing.T) *cryptoutils.Keypair {
	kp, err := cryptoutils.GenerateKeypair()
	require.NoError(t, err)
	return kp
}

func newEnv(t *testing.T) *env {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	oracleKey := newKeypair(t)
	cfg := registry.Config{
		ProgramID:     interfaces.MustPublicKeyFromBase58(registry.ProgramIDBase58),
		OraclePubkey:  oracleKey.PublicKey(),
		FaucetEnabled: true,
	}

	store, err := registry.NewStore(context.Background(), cfg, storage.NewMemoryBackend(), nil, log)
	require.NoError(t, err)

	profiles := stubProfiles{}
	service, err := NewService(cfg, oracleKey, attestation.NewVerifier(profiles), store, log)
	require.NoError(t, err)
	return &env{service: service, store: store, cfg: cfg, profiles: profiles}
}

func (e *env) wallet(t *testing.T) *cryptoutils.Keypair {
	kp := newKeypair(t)
	_, err := e.store.Airdrop(context.Background(), kp.PublicKey(), 10_000_000)
	require.NoError(t, err)
	return kp
}

func TestAttestRegistersAuthor(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	carol := e.wallet(t)
	e.profiles["carol"] = "Hello! " + attestation.ProofString(carol.PublicKey()) + " :)"

	secret := carol.Bytes()
	address, err := e.service.Attest(ctx, AttestRequest{Handle: "carol", Keypair: secret})
	require.NoError(t, err)
	assert.Equal(t, make([]byte, cryptoutils.KeypairSize), secret, "payer secret must be wiped")

	expected, _, err := e.cfg.AuthorAddress("carol")
	require.NoError(t, err)
	assert.Equal(t, expected, address)

	record, err := e.store.ReadRecord(ctx, address)
	require.NoError(t, err)
	assert.Equal(t, "carol", record.Author.Name.String())
	assert.Equal(t, carol.PublicKey(), record.Authority())
}

func TestAttestClaimedKey(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	payer := e.wallet(t)
	claimed := newKeypair(t).PublicKey()
	e.profiles["carol"] = attestation.ProofString(claimed)

	// The profile proves the claimed key, not the payer.
	_, err := e.service.Attest(ctx, AttestRequest{Handle: "carol", Keypair: payer.Bytes()})
	var unauthorized *UnauthorizedError
	require.ErrorAs(t, err, &unauthorized)
	assert.Equal(t, attestation.ProofString(payer.PublicKey()), unauthorized.Proof)

	address, err := e.service.Attest(ctx, AttestRequest{Handle: "carol", Keypair: payer.Bytes(), Pubkey: claimed.String()})
	require.NoError(t, err)

	record, err := e.store.ReadRecord(ctx, address)
	require.NoError(t, err)
	assert.Equal(t, payer.PublicKey(), record.Authority())
}

func TestAttestBadRequests(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	carol := e.wallet(t)

	cases := []struct {
		name    string
		req     AttestRequest
		field   string
		missing bool
	}{
		{"missing keypair", AttestRequest{Handle: "carol"}, "keypair", true},
		{"missing both", AttestRequest{}, "keypair", true},
		{"missing username", AttestRequest{Keypair: carol.Bytes()}, "username", true},
		{"short keypair", AttestRequest{Handle: "carol", Keypair: []byte{1, 2, 3}}, "keypair", false},
		{"long username", AttestRequest{Handle: strings.Repeat("c", 33), Keypair: carol.Bytes()}, "username", false},
		{"bad pubkey", AttestRequest{Handle: "carol", Keypair: carol.Bytes(), Pubkey: "not-a-key"}, "pubkey", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.service.Attest(ctx, tc.req)
			var badRequest *BadRequestError
			require.ErrorAs(t, err, &badRequest)
			assert.Equal(t, tc.field, badRequest.Field)
			assert.Equal(t, tc.missing, badRequest.Missing)
		})
	}

	_, err := e.service.Attest(ctx, AttestRequest{Handle: "carol"})
	assert.EqualError(t, err, "Missing `keypair` request parameter")
}

func TestAttestUnauthorized(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	carol := e.wallet(t)
	key := carol.PublicKey().String()

	for handle, bio := range map[string]string{
		"lower":   "solana wallet: " + key,
		"partial": "Solana Wallet: " + key[:len(key)-1],
		"empty":   "",
	} {
		e.profiles[handle] = bio
		_, err := e.service.Attest(ctx, AttestRequest{Handle: handle, Keypair: carol.Bytes()})
		var unauthorized *UnauthorizedError
		require.ErrorAs(t, err, &unauthorized, handle)
		assert.Equal(t, fmt.Sprintf("Make sure you added the following text \"Solana Wallet: %s\" into your GitHub bio.", key), err.Error())
	}

	_, err := e.service.Attest(ctx, AttestRequest{Handle: "ghost", Keypair: carol.Bytes()})
	var unauthorized *UnauthorizedError
	assert.ErrorAs(t, err, &unauthorized)

	_, err = e.service.Attest(ctx, AttestRequest{Handle: "unreachable", Keypair: carol.Bytes()})
	assert.ErrorIs(t, err, interfaces.ErrTransport)
}

func TestAttestRegistrationRejected(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	carol := e.wallet(t)
	dave := e.wallet(t)
	e.profiles["carol"] = attestation.ProofString(carol.PublicKey()) + " " + attestation.ProofString(dave.PublicKey())

	_, err := e.service.Attest(ctx, AttestRequest{Handle: "carol", Keypair: carol.Bytes()})
	require.NoError(t, err)

	_, err = e.service.Attest(ctx, AttestRequest{Handle: "carol", Keypair: dave.Bytes()})
	var rejected *RegistrationRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.ErrorIs(t, err, interfaces.ErrAlreadyExists)
	assert.True(t, strings.HasPrefix(err.Error(), "Failed to call the Register RPC endpoint: "))

	poor := newKeypair(t)
	e.profiles["poor"] = attestation.ProofString(poor.PublicKey())
	_, err = e.service.Attest(ctx, AttestRequest{Handle: "poor", Keypair: poor.Bytes()})
	assert.ErrorIs(t, err, interfaces.ErrInsufficientFunds)
}

func TestAttestSubmitsSignedTransaction(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	oracleKey := newKeypair(t)
	cfg := registry.Config{
		ProgramID:    interfaces.MustPublicKeyFromBase58(registry.ProgramIDBase58),
		OraclePubkey: oracleKey.PublicKey(),
	}
	carol := newKeypair(t)
	profiles := stubProfiles{"carol": attestation.ProofString(carol.PublicKey())}

	store := new(registry.MockStore)
	store.On("Submit", mock.Anything, mock.MatchedBy(func(tx *interfaces.Transaction) bool {
		return tx.Message.Instruction == interfaces.InstructionCreateAuthor &&
			tx.Message.Oracle == oracleKey.PublicKey() &&
			tx.Message.Authority == carol.PublicKey() &&
			tx.VerifySignatures() == nil
	})).Return(interfaces.TransactionReceipt{Slot: 1}, nil)

	service, err := NewService(cfg, oracleKey, attestation.NewVerifier(profiles), store, log)
	require.NoError(t, err)

	_, err = service.Attest(context.Background(), AttestRequest{Handle: "carol", Keypair: carol.Bytes()})
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestNewServiceRejectsForeignKey(t *testing.T) {
	cfg, err := registry.LocalTestConfig()
	require.NoError(t, err)
	_, err = NewService(cfg, newKeypair(t), attestation.NewVerifier(stubProfiles{}), new(registry.MockStore), slog.Default())
	assert.ErrorIs(t, err, ErrOracleKeyMismatch)
}
