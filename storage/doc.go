// Package storage persists registry accounts and the transaction journal
// behind pluggable backends.
//
// Account backends hold the whole ledger state and apply each commit as a
// single batch:
//
//   - memory:// for local test ledgers
//   - file:///path for a JSON snapshot replaced by rename
//   - s3://[KEY:SECRET@]bucket/prefix?region=&endpoint= for one S3 object
//   - vault://host:port/mount/path?tls=false for one Vault KV v2 secret
//
// Several account backends can be combined with CreateMultiBackend. A commit
// is accepted only when every mirror holds it, and loads serve the mirror
// with the highest commit counter while resyncing the rest.
//
// Journals keep a content-addressed copy of every committed transaction:
//
//   - file:///path stores entries under path/journal
//   - ipfs://host:port/?timeout=30s adds and pins entries on an IPFS node
package storage
