package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ruteri/package-registry/interfaces"
)

const snapshotVersion = 1

type snapshotAccount struct {
	Lamports uint64               `json:"lamports"`
	Owner    interfaces.PublicKey `json:"owner"`
	Data     []byte               `json:"data,omitempty"`
}

// accountSnapshot is the document blob backends persist on every commit.
type accountSnapshot struct {
	Version  int                        `json:"version"`
	Accounts map[string]snapshotAccount `json:"accounts"`
}

func encodeSnapshot(accounts map[interfaces.Address]interfaces.Account) ([]byte, error) {
	doc := accountSnapshot{
		Version:  snapshotVersion,
		Accounts: make(map[string]snapshotAccount, len(accounts)),
	}
	for address, account := range accounts {
		doc.Accounts[address.String()] = snapshotAccount{
			Lamports: account.Lamports,
			Owner:    account.Owner,
			Data:     account.Data,
		}
	}
	return json.Marshal(doc)
}

func decodeSnapshot(data []byte) (map[interfaces.Address]interfaces.Account, error) {
	var doc accountSnapshot
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid account snapshot: %w", err)
	}
	if doc.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported account snapshot version %d", doc.Version)
	}

	accounts := make(map[interfaces.Address]interfaces.Account, len(doc.Accounts))
	for key, account := range doc.Accounts {
		address, err := interfaces.NewPublicKeyFromBase58(key)
		if err != nil {
			return nil, fmt.Errorf("invalid account address in snapshot: %w", err)
		}
		accounts[address] = interfaces.Account{
			Lamports: account.Lamports,
			Owner:    account.Owner,
			Data:     account.Data,
		}
	}
	return accounts, nil
}

func cloneAccounts(accounts map[interfaces.Address]interfaces.Account) map[interfaces.Address]interfaces.Account {
	out := make(map[interfaces.Address]interfaces.Account, len(accounts))
	for address, account := range accounts {
		out[address] = account.Clone()
	}
	return out
}

// applyWrites returns a copy of accounts with writes applied.
func applyWrites(accounts map[interfaces.Address]interfaces.Account, writes []interfaces.AccountWrite) map[interfaces.Address]interfaces.Account {
	next := cloneAccounts(accounts)
	for _, w := range writes {
		if w.Account == nil {
			delete(next, w.Address)
			continue
		}
		next[w.Address] = w.Account.Clone()
	}
	return next
}

// snapshotStore keeps the whole account set in one blob. A commit replaces
// the blob, so a failed put leaves the previous state intact.
type snapshotStore struct {
	mu       sync.Mutex
	get      func(ctx context.Context) (data []byte, found bool, err error)
	put      func(ctx context.Context, data []byte) error
	accounts map[interfaces.Address]interfaces.Account
}

func (s *snapshotStore) load(ctx context.Context) (map[interfaces.Address]interfaces.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refresh(ctx); err != nil {
		return nil, err
	}
	return cloneAccounts(s.accounts), nil
}

func (s *snapshotStore) commit(ctx context.Context, writes []interfaces.AccountWrite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accounts == nil {
		if err := s.refresh(ctx); err != nil {
			return err
		}
	}

	next := applyWrites(s.accounts, writes)
	data, err := encodeSnapshot(next)
	if err != nil {
		return err
	}
	if err := s.put(ctx, data); err != nil {
		return err
	}
	s.accounts = next
	return nil
}

func (s *snapshotStore) refresh(ctx context.Context) error {
	data, found, err := s.get(ctx)
	if err != nil {
		return err
	}
	if !found {
		s.accounts = make(map[interfaces.Address]interfaces.Account)
		return nil
	}

	accounts, err := decodeSnapshot(data)
	if err != nil {
		return err
	}
	s.accounts = accounts
	return nil
}
