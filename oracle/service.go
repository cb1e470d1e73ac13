// Package oracle attests that a GitHub user controls a wallet key and
// registers the user as an author on their behalf.
//
// The service holds the oracle key and no other state. Every request carries
// the payer keypair, which is used to sign the registration and then wiped.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ruteri/package-registry/attestation"
	"github.com/ruteri/package-registry/cryptoutils"
	"github.com/ruteri/package-registry/interfaces"
	"github.com/ruteri/package-registry/metrics"
	"github.com/ruteri/package-registry/registry"
)

// AttestRequest asks the oracle to register Handle as an author.
type AttestRequest struct {
	Handle string

	// Keypair is the 64-byte payer keypair. It is zeroed before Attest
	// returns.
	Keypair []byte

	// Pubkey optionally names the key the profile must prove. Defaults to
	// the payer public key.
	Pubkey string
}

type Service struct {
	cfg      registry.Config
	key      interfaces.Signer
	verifier interfaces.IdentityVerifier
	store    interfaces.RegistryStore
	log      *slog.Logger
}

// NewService creates an oracle service signing with key, which must be the
// oracle key trusted by cfg.
func NewService(cfg registry.Config, key interfaces.Signer, verifier interfaces.IdentityVerifier, store interfaces.RegistryStore, log *slog.Logger) (*Service, error) {
	if key.PublicKey() != cfg.OraclePubkey {
		return nil, fmt.Errorf("%w: have %s, want %s", ErrOracleKeyMismatch, key.PublicKey(), cfg.OraclePubkey)
	}
	return &Service{
		cfg:      cfg,
		key:      key,
		verifier: verifier,
		store:    store,
		log:      log,
	}, nil
}

// PublicKey returns the oracle public key.
func (s *Service) PublicKey() interfaces.PublicKey {
	return s.key.PublicKey()
}

// Attest verifies that req.Handle published proof of the claimed key and
// submits a CreateAuthor transaction signed by the payer and the oracle.
// It returns the address of the new author record.
func (s *Service) Attest(ctx context.Context, req AttestRequest) (interfaces.Address, error) {
	defer clear(req.Keypair)

	address, err := s.attest(ctx, req)
	metrics.RecordAttestation(outcome(err))
	return address, err
}

func (s *Service) attest(ctx context.Context, req AttestRequest) (interfaces.Address, error) {
	if len(req.Keypair) == 0 {
		return interfaces.Address{}, &BadRequestError{Field: "keypair", Missing: true}
	}
	if req.Handle == "" {
		return interfaces.Address{}, &BadRequestError{Field: "username", Missing: true}
	}

	payer, err := cryptoutils.NewKeypairFromBytes(req.Keypair)
	if err != nil {
		return interfaces.Address{}, &BadRequestError{Field: "keypair", Cause: err}
	}
	defer payer.Wipe()

	if _, err := interfaces.NewBoundedString(req.Handle); err != nil {
		return interfaces.Address{}, &BadRequestError{Field: "username", Cause: err}
	}

	claimed := payer.PublicKey()
	if req.Pubkey != "" {
		claimed, err = interfaces.NewPublicKeyFromBase58(req.Pubkey)
		if err != nil {
			return interfaces.Address{}, &BadRequestError{Field: "pubkey", Cause: err}
		}
	}

	verified, err := s.verifier.Verify(ctx, req.Handle, claimed)
	if err != nil {
		s.log.Warn("could not fetch profile", "handle", req.Handle, "err", err)
		return interfaces.Address{}, err
	}
	if !verified {
		s.log.Info("proof not found", "handle", req.Handle, "key", claimed)
		return interfaces.Address{}, &UnauthorizedError{Proof: attestation.ProofString(claimed)}
	}

	tx, err := s.buildCreateAuthor(req.Handle, payer)
	if err != nil {
		return interfaces.Address{}, &RegistrationRejectedError{Cause: err}
	}

	receipt, err := s.store.Submit(ctx, tx)
	if err != nil {
		s.log.Info("registration rejected", "handle", req.Handle, "address", tx.Message.Address, "err", err)
		return interfaces.Address{}, &RegistrationRejectedError{Cause: err}
	}

	s.log.Info("author registered", "handle", req.Handle, "address", tx.Message.Address, "authority", payer.PublicKey(), "signature", receipt.Signature, "slot", receipt.Slot)
	return tx.Message.Address, nil
}

func (s *Service) buildCreateAuthor(handle string, payer *cryptoutils.Keypair) (*interfaces.Transaction, error) {
	address, bump, err := s.cfg.AuthorAddress(handle)
	if err != nil {
		return nil, err
	}

	nonce, err := interfaces.RandomNonce()
	if err != nil {
		return nil, err
	}

	tx := &interfaces.Transaction{Message: interfaces.Message{
		ProgramID:   s.cfg.ProgramID,
		Instruction: interfaces.InstructionCreateAuthor,
		Address:     address,
		Bump:        bump,
		Name:        handle,
		Payer:       payer.PublicKey(),
		Authority:   payer.PublicKey(),
		Oracle:      s.key.PublicKey(),
		Nonce:       nonce,
	}}
	if err := tx.Sign(payer, s.key); err != nil {
		return nil, err
	}
	return tx, nil
}

func outcome(err error) string {
	var (
		badRequest   *BadRequestError
		unauthorized *UnauthorizedError
		rejected     *RegistrationRejectedError
	)
	switch {
	case err == nil:
		return "registered"
	case errors.As(err, &badRequest):
		return "bad_request"
	case errors.As(err, &unauthorized):
		return "unauthorized"
	case errors.As(err, &rejected):
		return "rejected"
	case errors.Is(err, interfaces.ErrTransport):
		return "transport"
	default:
		return "error"
	}
}
