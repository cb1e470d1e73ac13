package storage

import (
	"context"
	"sync"

	"github.com/ruteri/package-registry/interfaces"
)

// MemoryBackend keeps accounts in process memory. It backs local test
// ledgers and tests.
type MemoryBackend struct {
	mu       sync.RWMutex
	accounts map[interfaces.Address]interfaces.Account
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{accounts: make(map[interfaces.Address]interfaces.Account)}
}

func (b *MemoryBackend) Load(ctx context.Context) (map[interfaces.Address]interfaces.Account, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return cloneAccounts(b.accounts), nil
}

func (b *MemoryBackend) Commit(ctx context.Context, writes []interfaces.AccountWrite) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts = applyWrites(b.accounts, writes)
	return nil
}

func (b *MemoryBackend) Available(ctx context.Context) bool {
	return true
}

func (b *MemoryBackend) Name() string {
	return "memory"
}

func (b *MemoryBackend) LocationURI() string {
	return "memory://"
}
