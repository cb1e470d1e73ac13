// Package kms provides custody of the oracle signing key.
//
// The oracle key authorizes every author registration, so operators may keep
// it off disk entirely: SplitKeypair cuts it into Shamir shares, any
// threshold of which CombineKeypair (or a ShareCollector, fed one share at
// a time) turns back into the keypair.
//
// LoadOracleKey picks the key from the first configured source:
//
//   - KEYPAIR, a JSON byte array
//   - a passphrase-sealed keystore file (see cryptoutils.SealKeypair)
//   - ORACLE_KEY_SHARES, a comma-separated list of hex shares
package kms
