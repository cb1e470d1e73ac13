package interfaces

import "context"

// RegistryStore is the authoritative record store. Submit is the only way to
// mutate records; every transition is atomic.
type RegistryStore interface {
	// Submit validates and applies a signed transaction.
	Submit(ctx context.Context, tx *Transaction) (TransactionReceipt, error)

	// ReadRecord returns the live record at address or ErrNotFound.
	ReadRecord(ctx context.Context, address Address) (*Record, error)

	// Balance returns the lamports held by an account, zero if absent.
	Balance(ctx context.Context, key PublicKey) (uint64, error)

	// Airdrop credits lamports to a wallet when the faucet is enabled.
	Airdrop(ctx context.Context, key PublicKey, lamports uint64) (TransactionReceipt, error)
}
