package registry

import (
	"context"

	"github.com/ruteri/package-registry/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockStore mocks the RegistryStore interface
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Submit(ctx context.Context, tx *interfaces.Transaction) (interfaces.TransactionReceipt, error) {
	args := m.Called(ctx, tx)
	return args.Get(0).(interfaces.TransactionReceipt), args.Error(1)
}

func (m *MockStore) ReadRecord(ctx context.Context, address interfaces.Address) (*interfaces.Record, error) {
	args := m.Called(ctx, address)
	record, _ := args.Get(0).(*interfaces.Record)
	return record, args.Error(1)
}

func (m *MockStore) Balance(ctx context.Context, key interfaces.PublicKey) (uint64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockStore) Airdrop(ctx context.Context, key interfaces.PublicKey, lamports uint64) (interfaces.TransactionReceipt, error) {
	args := m.Called(ctx, key, lamports)
	return args.Get(0).(interfaces.TransactionReceipt), args.Error(1)
}
