// Package cryptoutils handles the ed25519 keypairs that sign registry
// transactions.
//
// Keypairs use the 64-byte wallet layout (32-byte seed followed by the
// public key) and are exchanged as JSON arrays of byte values, the format
// of wallet files and of the oracle KEYPAIR variable.
//
// # Keystore
//
// SealKeypair and OpenKeypair protect a keypair at rest:
//
//   - Argon2id derives a 256-bit key from the passphrase and a random salt
//   - AES-GCM encrypts the keypair, binding the public key as additional data
//   - the public key stays readable so operators can identify the keystore
//
// Secret material is zeroed after use wherever this package controls the
// buffer.
package cryptoutils
