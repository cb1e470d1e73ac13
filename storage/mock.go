package storage

import (
	"context"

	"github.com/ruteri/package-registry/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockAccountBackend mocks the AccountBackend interface
type MockAccountBackend struct {
	mock.Mock
}

func (m *MockAccountBackend) Load(ctx context.Context) (map[interfaces.Address]interfaces.Account, error) {
	args := m.Called(ctx)
	accounts, _ := args.Get(0).(map[interfaces.Address]interfaces.Account)
	return accounts, args.Error(1)
}

func (m *MockAccountBackend) Commit(ctx context.Context, writes []interfaces.AccountWrite) error {
	args := m.Called(ctx, writes)
	return args.Error(0)
}

func (m *MockAccountBackend) Available(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockAccountBackend) Name() string {
	return "mock"
}

func (m *MockAccountBackend) LocationURI() string {
	return "mock://"
}

// MockJournal mocks the Journal interface
type MockJournal struct {
	mock.Mock
}

func (m *MockJournal) Append(ctx context.Context, entry []byte) (interfaces.ContentID, error) {
	args := m.Called(ctx, entry)
	id, _ := args.Get(0).(interfaces.ContentID)
	return id, args.Error(1)
}

func (m *MockJournal) Fetch(ctx context.Context, id interfaces.ContentID) ([]byte, error) {
	args := m.Called(ctx, id)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockJournal) Available(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockJournal) Name() string {
	return "mock-journal"
}

func (m *MockJournal) LocationURI() string {
	return "mock://"
}
