package interfaces

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

const (
	// PublicKeySize is the size of an ed25519 public key and of an account address.
	PublicKeySize = 32

	// SignatureSize is the size of an ed25519 signature.
	SignatureSize = 64
)

// PublicKey is a 32-byte ed25519 public key, rendered in base58.
type PublicKey [PublicKeySize]byte

// Address identifies an account. Wallet addresses are public keys; record
// addresses are program-derived and never lie on the ed25519 curve.
type Address = PublicKey

// NewPublicKeyFromBytes copies a 32-byte slice into a PublicKey.
func NewPublicKeyFromBytes(source []byte) (PublicKey, error) {
	if len(source) != PublicKeySize {
		return PublicKey{}, fmt.Errorf("invalid public key length: expected %d bytes, got %d", PublicKeySize, len(source))
	}

	var key PublicKey
	copy(key[:], source)
	return key, nil
}

// NewPublicKeyFromBase58 decodes a base58 public key.
func NewPublicKeyFromBase58(source string) (PublicKey, error) {
	clean := strings.TrimSpace(source)
	if clean == "" {
		return PublicKey{}, errors.New("empty public key")
	}

	decoded, err := base58.Decode(clean)
	if err != nil {
		return PublicKey{}, fmt.Errorf("invalid base58 public key %q: %w", clean, err)
	}

	return NewPublicKeyFromBytes(decoded)
}

// MustPublicKeyFromBase58 is NewPublicKeyFromBase58 for compile-time constants.
func MustPublicKeyFromBase58(source string) PublicKey {
	key, err := NewPublicKeyFromBase58(source)
	if err != nil {
		panic(err)
	}
	return key
}

// String returns the base58 representation.
func (k PublicKey) String() string {
	return base58.Encode(k[:])
}

// Bytes returns the raw 32 bytes.
func (k PublicKey) Bytes() []byte {
	return k[:]
}

// IsZero reports whether the key is all zeroes.
func (k PublicKey) IsZero() bool {
	return k == PublicKey{}
}

// Equal compares two keys.
func (k PublicKey) Equal(other PublicKey) bool {
	return bytes.Equal(k[:], other[:])
}

func (k PublicKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := NewPublicKeyFromBase58(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Signature is a 64-byte ed25519 signature, rendered in base58.
type Signature [SignatureSize]byte

// NewSignatureFromBytes copies a 64-byte slice into a Signature.
func NewSignatureFromBytes(source []byte) (Signature, error) {
	if len(source) != SignatureSize {
		return Signature{}, fmt.Errorf("invalid signature length: expected %d bytes, got %d", SignatureSize, len(source))
	}

	var sig Signature
	copy(sig[:], source)
	return sig, nil
}

// String returns the base58 representation.
func (s Signature) String() string {
	return base58.Encode(s[:])
}

func (s Signature) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Signature) UnmarshalText(text []byte) error {
	decoded, err := base58.Decode(string(text))
	if err != nil {
		return fmt.Errorf("invalid base58 signature: %w", err)
	}
	parsed, err := NewSignatureFromBytes(decoded)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
