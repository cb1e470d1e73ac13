package kms

import (
	"errors"
	"fmt"
	"os"

	"github.com/ruteri/package-registry/cryptoutils"
)

var ErrNoOracleKey = errors.New("no oracle key configured: set KEYPAIR, --keystore or ORACLE_KEY_SHARES")

// OracleKeySource lists the places the oracle signing key may come from.
// The first configured source wins.
type OracleKeySource struct {
	// KeypairJSON is a JSON byte array, as in the KEYPAIR variable.
	KeypairJSON string

	// KeystorePath and Passphrase open a sealed keystore file.
	KeystorePath string
	Passphrase   []byte

	// Shares is a comma-separated hex list of Shamir shares.
	Shares string
}

// LoadOracleKey returns the oracle keypair from the first configured source.
func LoadOracleKey(src OracleKeySource) (*cryptoutils.Keypair, error) {
	switch {
	case src.KeypairJSON != "":
		kp, err := cryptoutils.ParseKeypairJSON([]byte(src.KeypairJSON))
		if err != nil {
			return nil, fmt.Errorf("could not parse KEYPAIR: %w", err)
		}
		return kp, nil

	case src.KeystorePath != "":
		data, err := os.ReadFile(src.KeystorePath)
		if err != nil {
			return nil, fmt.Errorf("could not read keystore: %w", err)
		}
		return cryptoutils.OpenKeypair(data, src.Passphrase)

	case src.Shares != "":
		shares, err := DecodeShares(src.Shares)
		if err != nil {
			return nil, err
		}
		return CombineKeypair(shares)

	default:
		return nil, ErrNoOracleKey
	}
}
