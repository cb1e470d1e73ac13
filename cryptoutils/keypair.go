package cryptoutils

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ruteri/package-registry/interfaces"
)

// KeypairSize is the length of a serialized keypair: 32-byte seed followed
// by the 32-byte public key.
const KeypairSize = ed25519.PrivateKeySize

var ErrInvalidKeypair = errors.New("invalid keypair")

// Keypair is an ed25519 signing key in the 64-byte wallet layout.
type Keypair struct {
	priv ed25519.PrivateKey
}

// GenerateKeypair creates a random keypair.
func GenerateKeypair() (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate keypair: %w", err)
	}
	return &Keypair{priv: priv}, nil
}

// NewKeypairFromBytes copies a 64-byte keypair, checking that the public half
// matches the seed.
func NewKeypairFromBytes(source []byte) (*Keypair, error) {
	if len(source) != KeypairSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKeypair, KeypairSize, len(source))
	}

	priv := ed25519.NewKeyFromSeed(source[:ed25519.SeedSize])
	if !bytes.Equal(priv[ed25519.SeedSize:], source[ed25519.SeedSize:]) {
		wipe(priv)
		return nil, fmt.Errorf("%w: public key does not match secret key", ErrInvalidKeypair)
	}
	return &Keypair{priv: priv}, nil
}

// ParseKeypairJSON decodes a keypair stored as a JSON array of byte values,
// the format of wallet files and of the oracle KEYPAIR variable.
func ParseKeypairJSON(data []byte) (*Keypair, error) {
	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKeypair, err)
	}

	raw, err := BytesFromInts(values)
	if err != nil {
		return nil, err
	}
	defer wipe(raw)

	return NewKeypairFromBytes(raw)
}

// LoadKeypairFile reads a JSON keypair file.
func LoadKeypairFile(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read keypair file %s: %w", path, err)
	}
	defer wipe(data)

	kp, err := ParseKeypairJSON(data)
	if err != nil {
		return nil, fmt.Errorf("could not parse keypair file %s: %w", path, err)
	}
	return kp, nil
}

// BytesFromInts converts a JSON byte array into bytes, rejecting values
// outside 0..255.
func BytesFromInts(values []int) ([]byte, error) {
	raw := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			wipe(raw)
			return nil, fmt.Errorf("%w: value %d at index %d is not a byte", ErrInvalidKeypair, v, i)
		}
		raw[i] = byte(v)
	}
	return raw, nil
}

// MarshalJSON encodes the keypair as a JSON array of byte values.
func (k *Keypair) MarshalJSON() ([]byte, error) {
	values := make([]int, len(k.priv))
	for i, b := range k.priv {
		values[i] = int(b)
	}
	return json.Marshal(values)
}

// PublicKey returns the public half.
func (k *Keypair) PublicKey() interfaces.PublicKey {
	var key interfaces.PublicKey
	copy(key[:], k.priv[ed25519.SeedSize:])
	return key
}

// Sign signs message with the secret key.
func (k *Keypair) Sign(message []byte) (interfaces.Signature, error) {
	if len(k.priv) != KeypairSize {
		return interfaces.Signature{}, fmt.Errorf("%w: keypair has been wiped", ErrInvalidKeypair)
	}
	return interfaces.NewSignatureFromBytes(ed25519.Sign(k.priv, message))
}

// Bytes returns a copy of the 64-byte keypair.
func (k *Keypair) Bytes() []byte {
	out := make([]byte, len(k.priv))
	copy(out, k.priv)
	return out
}

// Wipe zeroes the secret key. The keypair cannot sign afterwards.
func (k *Keypair) Wipe() {
	wipe(k.priv)
	k.priv = nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
