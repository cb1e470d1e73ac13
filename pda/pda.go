// Package pda derives deterministic record addresses from seeds and a
// program ID. Derived addresses never lie on the ed25519 curve, so no
// private key can exist for them.
package pda

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/ruteri/package-registry/interfaces"
)

const (
	// MaxSeeds is the maximum number of seeds, bump included.
	MaxSeeds = 16

	// MaxSeedLength is the maximum length of a single seed in bytes.
	MaxSeedLength = 32

	// FindProgramAddress tries bumps from MaxBump down to MinBump inclusive.
	MaxBump = 255
	MinBump = 1
)

var addressMarker = []byte("ProgramDerivedAddress")

// CreateProgramAddress hashes seeds and programID into an address. It fails
// with ErrInvalidSeeds when the seeds are out of bounds or the hash is a
// valid curve point.
func CreateProgramAddress(seeds [][]byte, programID interfaces.PublicKey) (interfaces.Address, error) {
	if err := validateSeeds(seeds, MaxSeeds); err != nil {
		return interfaces.Address{}, err
	}

	address := hashSeeds(seeds, programID)
	if IsOnCurve(address) {
		return interfaces.Address{}, interfaces.ErrInvalidSeeds
	}
	return address, nil
}

// FindProgramAddress returns the first off-curve address found by appending
// a single bump byte to seeds, starting at MaxBump and counting down.
func FindProgramAddress(seeds [][]byte, programID interfaces.PublicKey) (interfaces.Address, uint8, error) {
	if err := validateSeeds(seeds, MaxSeeds-1); err != nil {
		return interfaces.Address{}, 0, err
	}

	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)

	for bump := MaxBump; bump >= MinBump; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		address := hashSeeds(withBump, programID)
		if !IsOnCurve(address) {
			return address, uint8(bump), nil
		}
	}
	return interfaces.Address{}, 0, interfaces.ErrDerivationExhausted
}

// IsOnCurve reports whether b decodes to a point on the ed25519 curve.
// Non-canonical encodings of valid points count as on-curve.
func IsOnCurve(b [32]byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b[:])
	return err == nil
}

func validateSeeds(seeds [][]byte, maxSeeds int) error {
	if len(seeds) > maxSeeds {
		return fmt.Errorf("%w: %d seeds, maximum is %d", interfaces.ErrInvalidSeeds, len(seeds), maxSeeds)
	}
	for i, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return fmt.Errorf("%w: seed %d is %d bytes, maximum is %d", interfaces.ErrInvalidSeeds, i, len(seed), MaxSeedLength)
		}
	}
	return nil
}

func hashSeeds(seeds [][]byte, programID interfaces.PublicKey) interfaces.Address {
	h := sha256.New()
	for _, seed := range seeds {
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write(addressMarker)

	var address interfaces.Address
	copy(address[:], h.Sum(nil))
	return address
}
