package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ruteri/package-registry/interfaces"
)

var (
	// sequenceAddress holds the commit counter MultiAccountBackend keeps in
	// every mirrored backend. It never appears in loaded account sets.
	sequenceAddress = mirrorKey("multi-storage-sequence")
	sequenceOwner   = mirrorKey("multi-storage")
)

func mirrorKey(label string) interfaces.PublicKey {
	return interfaces.PublicKey(sha256.Sum256([]byte(label)))
}

// MultiAccountBackend mirrors commits to several account backends. A commit
// succeeds only when every backend accepted it; when one fails, the backends
// that already accepted it are rolled back. Each commit also bumps a counter
// stored in every backend, and Load serves the backend with the highest
// counter, bringing the others up to date.
//
// If a rollback fails too, the rolled-back backend keeps the failed write
// with a bumped counter, and a restart can serve it. Such a backend is marked
// stale until then.
type MultiAccountBackend struct {
	backends []interfaces.AccountBackend
	log      *slog.Logger

	mu       sync.Mutex
	accounts map[interfaces.Address]interfaces.Account
	sequence uint64
	stale    []bool
}

func NewMultiAccountBackend(backends []interfaces.AccountBackend, logger *slog.Logger) *MultiAccountBackend {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiAccountBackend{
		backends: backends,
		log:      logger,
		stale:    make([]bool, len(backends)),
	}
}

// Load returns the accounts of the most recently committed backend and
// resyncs the others to it. Backends that cannot be read are resynced
// before the next commit.
func (m *MultiAccountBackend) Load(ctx context.Context) (map[interfaces.Address]interfaces.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.load(ctx); err != nil {
		return nil, err
	}
	return cloneAccounts(m.accounts), nil
}

func (m *MultiAccountBackend) load(ctx context.Context) error {
	start := time.Now()
	var errs []error

	loaded := make([]map[interfaces.Address]interfaces.Account, len(m.backends))
	sequences := make([]uint64, len(m.backends))
	best := -1

	for i, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Warn("Backend unavailable", slog.String("backend_name", backend.Name()))
			errs = append(errs, fmt.Errorf("%s: unavailable", backend.Name()))
			m.stale[i] = true
			continue
		}

		accounts, sequence, err := loadMirror(ctx, backend)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			m.log.Warn("Failed to load from backend",
				slog.String("backend_name", backend.Name()),
				"err", err)
			m.stale[i] = true
			continue
		}

		loaded[i], sequences[i] = accounts, sequence
		if best < 0 || sequence > sequences[best] {
			best = i
		}
	}

	if best < 0 {
		return fmt.Errorf("%w: all backends failed to load accounts: %w", interfaces.ErrBackendUnavailable, errors.Join(errs...))
	}

	m.accounts = loaded[best]
	m.sequence = sequences[best]
	m.stale[best] = false

	for i, accounts := range loaded {
		if accounts == nil || i == best {
			continue
		}
		if sequences[i] == m.sequence && accountsEqual(accounts, m.accounts) {
			m.stale[i] = false
			continue
		}
		m.log.Warn("Backend is behind, resyncing",
			slog.String("backend_name", m.backends[i].Name()),
			slog.Uint64("sequence", sequences[i]),
			slog.Uint64("latest_sequence", m.sequence))
		if err := m.resync(ctx, i, accounts); err != nil {
			m.log.Warn("Failed to resync backend",
				slog.String("backend_name", m.backends[i].Name()),
				"err", err)
			m.stale[i] = true
		}
	}

	m.log.Info("Loaded accounts",
		slog.String("backend_name", m.backends[best].Name()),
		slog.Int("accounts", len(m.accounts)),
		slog.Uint64("sequence", m.sequence),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Commit writes to every backend. Nothing is written unless all backends
// are available and in sync.
func (m *MultiAccountBackend) Commit(ctx context.Context, writes []interfaces.AccountWrite) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	if m.accounts == nil {
		if err := m.load(ctx); err != nil {
			return err
		}
	}

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Error("Backend unavailable, refusing partial commit", slog.String("backend_name", backend.Name()))
			return fmt.Errorf("%w: %s is unavailable", interfaces.ErrBackendUnavailable, backend.Name())
		}
	}
	for i, backend := range m.backends {
		if !m.stale[i] {
			continue
		}
		accounts, _, err := loadMirror(ctx, backend)
		if err == nil {
			err = m.resync(ctx, i, accounts)
		}
		if err != nil {
			return fmt.Errorf("%w: could not resync %s: %w", interfaces.ErrBackendUnavailable, backend.Name(), err)
		}
	}

	batch := make([]interfaces.AccountWrite, 0, len(writes)+1)
	batch = append(batch, writes...)
	batch = append(batch, sequenceWrite(m.sequence+1))

	for i, backend := range m.backends {
		if err := backend.Commit(ctx, batch); err != nil {
			m.log.Error("Failed to commit to backend",
				slog.String("backend_name", backend.Name()),
				slog.Duration("duration", time.Since(start)),
				"err", err)
			// The put may have landed anyway.
			m.stale[i] = true
			m.rollback(ctx, i, writes)
			return fmt.Errorf("%w: %s failed to commit: %w", interfaces.ErrBackendUnavailable, backend.Name(), err)
		}
	}

	m.accounts = applyWrites(m.accounts, writes)
	m.sequence++
	return nil
}

// rollback restores the pre-commit state of the first committed backends.
func (m *MultiAccountBackend) rollback(ctx context.Context, committed int, writes []interfaces.AccountWrite) {
	undo := make([]interfaces.AccountWrite, 0, len(writes)+1)
	for _, w := range writes {
		previous, ok := m.accounts[w.Address]
		if !ok {
			undo = append(undo, interfaces.AccountWrite{Address: w.Address})
			continue
		}
		previous = previous.Clone()
		undo = append(undo, interfaces.AccountWrite{Address: w.Address, Account: &previous})
	}
	undo = append(undo, sequenceWrite(m.sequence))

	for i := 0; i < committed; i++ {
		if err := m.backends[i].Commit(ctx, undo); err != nil {
			m.log.Error("Failed to roll back backend",
				slog.String("backend_name", m.backends[i].Name()),
				"err", err)
			m.stale[i] = true
		}
	}
}

// resync brings backend i from current to the state of m.
func (m *MultiAccountBackend) resync(ctx context.Context, i int, current map[interfaces.Address]interfaces.Account) error {
	var writes []interfaces.AccountWrite
	for address, account := range m.accounts {
		if have, ok := current[address]; ok && accountEqual(have, account) {
			continue
		}
		account := account.Clone()
		writes = append(writes, interfaces.AccountWrite{Address: address, Account: &account})
	}
	for address := range current {
		if _, ok := m.accounts[address]; !ok {
			writes = append(writes, interfaces.AccountWrite{Address: address})
		}
	}
	writes = append(writes, sequenceWrite(m.sequence))

	if err := m.backends[i].Commit(ctx, writes); err != nil {
		return err
	}
	m.stale[i] = false
	m.log.Info("Resynced backend",
		slog.String("backend_name", m.backends[i].Name()),
		slog.Int("writes", len(writes)),
		slog.Uint64("sequence", m.sequence))
	return nil
}

// Available reports whether every backend is reachable, since commits need
// all of them.
func (m *MultiAccountBackend) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			return false
		}
	}
	return len(m.backends) > 0
}

func (m *MultiAccountBackend) Name() string {
	return "multi-storage"
}

func (m *MultiAccountBackend) LocationURI() string {
	var locations []string
	for _, backend := range m.backends {
		locations = append(locations, backend.LocationURI())
	}
	return "multi:[" + strings.Join(locations, ",") + "]"
}

// loadMirror loads backend and splits off its commit counter.
func loadMirror(ctx context.Context, backend interfaces.AccountBackend) (map[interfaces.Address]interfaces.Account, uint64, error) {
	accounts, err := backend.Load(ctx)
	if err != nil {
		return nil, 0, err
	}

	if accounts == nil {
		accounts = make(map[interfaces.Address]interfaces.Account)
	}
	counter, ok := accounts[sequenceAddress]
	if !ok {
		return accounts, 0, nil
	}
	delete(accounts, sequenceAddress)
	if counter.Owner != sequenceOwner || len(counter.Data) != 8 {
		return nil, 0, errors.New("invalid commit counter account")
	}
	return accounts, binary.LittleEndian.Uint64(counter.Data), nil
}

func sequenceWrite(sequence uint64) interfaces.AccountWrite {
	return interfaces.AccountWrite{
		Address: sequenceAddress,
		Account: &interfaces.Account{
			Owner: sequenceOwner,
			Data:  binary.LittleEndian.AppendUint64(nil, sequence),
		},
	}
}

func accountEqual(a, b interfaces.Account) bool {
	return a.Lamports == b.Lamports && a.Owner == b.Owner && bytes.Equal(a.Data, b.Data)
}

func accountsEqual(a, b map[interfaces.Address]interfaces.Account) bool {
	if len(a) != len(b) {
		return false
	}
	for address, account := range a {
		other, ok := b[address]
		if !ok || !accountEqual(account, other) {
			return false
		}
	}
	return true
}
