// Package registry implements the authoritative record store of the package
// registry.
//
// The Store is a small ledger of accounts. Wallet accounts hold lamports;
// record accounts are owned by the registry program and hold an author or a
// package record in a fixed binary layout (see EncodeAuthor and
// EncodePackage). Record addresses are derived from the record names with
// the pda package, which makes every name globally unique without a central
// allocator.
//
// Three signed instructions change state:
//
//   - CreateAuthor binds a name to an authority. The configured oracle must
//     co-sign, attesting that the off-chain identity check passed.
//   - DeleteAuthor erases an author record. Only the stored authority may
//     sign it; the rent held by the record returns to that authority.
//   - CreatePackage claims "@scope/name" for an authority.
//
// Every transition is checked in full before anything is written, then
// committed to the account backend as one batch. Failures carry a stable
// interfaces.ErrorCode.
package registry
