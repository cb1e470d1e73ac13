// Package interfaces defines the core types and contracts of the package
// registry, separating definitions from their implementations.
//
// # Ledger Types
//
// PublicKey, Address and Signature are the ed25519 primitives of the ledger.
// Account is the persisted unit of state; AuthorRecord and PackageRecord are
// the decoded contents of record accounts. BoundedString is the fixed-capacity
// string every record field is stored as.
//
// # Transactions
//
// Message is the canonical, signed payload of a state transition and
// Transaction carries it together with one signature per required signer.
// RegistryStore applies transactions atomically.
//
// # Storage Interfaces
//
// AccountBackend persists ledger accounts (memory, file, S3, Vault) and
// Journal keeps a content-addressed log of committed transactions (file,
// IPFS). StorageBackendFactory creates both from location URIs.
//
// # Attestation Interfaces
//
// ProfileFetcher and IdentityVerifier let the oracle check that an external
// identity has published proof of controlling a key.
//
// # Error Types
//
// Every failure maps to a stable ErrorCode. StoreError carries the code and
// message across the HTTP boundary and unwraps to the matching sentinel.
package interfaces
