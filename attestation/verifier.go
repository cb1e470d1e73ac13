// Package attestation decides whether an external identity has published
// proof of controlling a wallet key.
package attestation

import (
	"context"
	"strings"

	"github.com/ruteri/package-registry/interfaces"
)

// ProofPrefix precedes the base58 key in the proof string.
const ProofPrefix = "Solana Wallet: "

// ProofString is the exact text an identity must publish for key.
func ProofString(key interfaces.PublicKey) string {
	return ProofPrefix + key.String()
}

// Verifier checks profiles for the proof string. The match is an exact,
// case-sensitive substring search.
type Verifier struct {
	fetcher interfaces.ProfileFetcher
}

func NewVerifier(fetcher interfaces.ProfileFetcher) *Verifier {
	return &Verifier{fetcher: fetcher}
}

// Verify reports whether handle's profile contains the proof for key.
// Transport failures are returned as errors, never as false.
func (v *Verifier) Verify(ctx context.Context, handle string, key interfaces.PublicKey) (bool, error) {
	profile, found, err := v.fetcher.FetchProfile(ctx, handle)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return strings.Contains(profile, ProofString(key)), nil
}
