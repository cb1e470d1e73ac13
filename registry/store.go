package registry

import (
	"context"
	"crypto/sha512"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/ruteri/package-registry/interfaces"
	"github.com/ruteri/package-registry/metrics"
)

// Store is the authoritative registry state machine. Transactions are
// applied one at a time under a writer lock: every check runs first, then
// the writes are committed to the backend as one batch, and only then does
// the in-memory view change.
type Store struct {
	cfg     Config
	backend interfaces.AccountBackend
	journal interfaces.Journal
	log     *slog.Logger

	mu       sync.RWMutex
	accounts map[interfaces.Address]interfaces.Account
	replay   *replayLog
	live     map[interfaces.RecordKind]int
	slot     uint64
}

// JournalEntry is appended to the journal after each commit.
type JournalEntry struct {
	Slot        uint64                  `json:"slot"`
	Transaction *interfaces.Transaction `json:"transaction,omitempty"`
	Airdrop     *AirdropEntry           `json:"airdrop,omitempty"`
}

type AirdropEntry struct {
	Recipient interfaces.PublicKey `json:"recipient"`
	Lamports  uint64               `json:"lamports"`
}

// NewStore loads the persisted accounts from backend. journal may be nil.
func NewStore(ctx context.Context, cfg Config, backend interfaces.AccountBackend, journal interfaces.Journal, log *slog.Logger) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid registry config: %w", err)
	}

	accounts, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not load accounts from %s: %w", backend.Name(), err)
	}

	replay, err := newReplayLog(cfg, accounts)
	if err != nil {
		return nil, fmt.Errorf("could not load replay log from %s: %w", backend.Name(), err)
	}

	s := &Store{
		cfg:      cfg,
		backend:  backend,
		journal:  journal,
		log:      log,
		accounts: accounts,
		replay:   replay,
		live:     make(map[interfaces.RecordKind]int),
	}
	for _, account := range accounts {
		if kind, ok := s.recordKind(account); ok {
			s.live[kind]++
		}
	}
	s.publishLiveRecords()

	log.Info("registry store loaded",
		"backend", backend.LocationURI(),
		"accounts", len(accounts),
		"authors", s.live[interfaces.KindAuthor],
		"packages", s.live[interfaces.KindPackage],
		"replay_log", replay.size())
	return s, nil
}

// Config returns the configuration the store enforces.
func (s *Store) Config() Config {
	return s.cfg
}

// Slot returns the number of commits applied since the store started.
func (s *Store) Slot() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slot
}

// Available reports whether the account backend is reachable.
func (s *Store) Available(ctx context.Context) bool {
	return s.backend.Available(ctx)
}

// Submit validates and applies a signed transaction.
func (s *Store) Submit(ctx context.Context, tx *interfaces.Transaction) (interfaces.TransactionReceipt, error) {
	if tx == nil {
		return interfaces.TransactionReceipt{}, interfaces.NewStoreError(interfaces.ErrInvalidTransaction, "empty transaction")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		writes []interfaces.AccountWrite
		err    error
	)
	switch tx.Message.Instruction {
	case interfaces.InstructionCreateAuthor:
		writes, err = s.createAuthor(tx)
	case interfaces.InstructionDeleteAuthor:
		writes, err = s.deleteAuthor(tx)
	case interfaces.InstructionCreatePackage:
		writes, err = s.createPackage(tx)
	default:
		err = interfaces.NewStoreError(interfaces.ErrInvalidTransaction, "unknown instruction %d", tx.Message.Instruction)
	}

	instruction := tx.Message.Instruction.String()
	if err != nil {
		metrics.RecordStoreTransaction(instruction, string(interfaces.CodeOf(err)))
		s.log.Debug("transaction rejected", "instruction", instruction, "address", tx.Message.Address, "code", interfaces.CodeOf(err), "err", err)
		return interfaces.TransactionReceipt{}, err
	}

	id := tx.ID()
	writes = append(writes, s.replay.write(id))
	if err := s.commit(ctx, writes); err != nil {
		metrics.RecordStoreTransaction(instruction, string(interfaces.CodeOf(err)))
		return interfaces.TransactionReceipt{}, err
	}
	s.replay.push(id)

	metrics.RecordStoreTransaction(instruction, "ok")
	s.log.Info("transaction committed", "instruction", instruction, "address", tx.Message.Address, "slot", s.slot, "signature", id)
	s.appendJournal(ctx, JournalEntry{Slot: s.slot, Transaction: tx})

	return interfaces.TransactionReceipt{Signature: id, Slot: s.slot}, nil
}

func (s *Store) createAuthor(tx *interfaces.Transaction) ([]interfaces.AccountWrite, error) {
	msg := &tx.Message

	name, err := interfaces.NewBoundedString(msg.Name)
	if err != nil {
		return nil, interfaces.NewStoreError(interfaces.ErrInvalidString, "%s", err.Error())
	}
	if msg.Oracle != s.cfg.OraclePubkey {
		return nil, interfaces.NewStoreError(interfaces.ErrInvalidOracle, "not authorized")
	}
	if err := tx.VerifySignatures(); err != nil {
		return nil, err
	}
	if msg.ProgramID != s.cfg.ProgramID {
		return nil, interfaces.NewStoreError(interfaces.ErrProgramMismatch, "transaction targets program %s, expected %s", msg.ProgramID, s.cfg.ProgramID)
	}

	address, bump, err := s.cfg.AuthorAddress(msg.Name)
	if err != nil {
		return nil, interfaces.AsStoreError(err)
	}
	if err := checkDerived(msg, address, bump); err != nil {
		return nil, err
	}
	if err := s.checkVacant(address); err != nil {
		return nil, err
	}
	if err := s.checkFresh(tx); err != nil {
		return nil, err
	}

	data := EncodeAuthor(&interfaces.AuthorRecord{Bump: bump, Name: name, Authority: msg.Authority})
	return s.allocate(msg.Payer, address, data)
}

func (s *Store) deleteAuthor(tx *interfaces.Transaction) ([]interfaces.AccountWrite, error) {
	msg := &tx.Message

	account, ok := s.accounts[msg.Address]
	kind, isRecord := s.recordKind(account)
	if !ok || !isRecord {
		return nil, interfaces.NewStoreError(interfaces.ErrNotFound, "account %s does not exist", msg.Address)
	}
	if kind != interfaces.KindAuthor {
		return nil, interfaces.NewStoreError(interfaces.ErrAccountKind, "account %s holds a %s record, expected author", msg.Address, kind)
	}
	if err := tx.VerifySignatures(); err != nil {
		return nil, err
	}
	if msg.ProgramID != s.cfg.ProgramID {
		return nil, interfaces.NewStoreError(interfaces.ErrProgramMismatch, "transaction targets program %s, expected %s", msg.ProgramID, s.cfg.ProgramID)
	}

	author, err := DecodeAuthor(account.Data)
	if err != nil {
		return nil, interfaces.NewStoreError(interfaces.ErrCorruptAccount, "%s", err.Error())
	}
	if author.Authority != msg.Authority {
		return nil, interfaces.NewStoreError(interfaces.ErrAuthorityMismatch, "not authorized")
	}
	if err := s.checkFresh(tx); err != nil {
		return nil, err
	}

	recipient := s.accounts[author.Authority]
	if recipient.Lamports > math.MaxUint64-account.Lamports {
		return nil, interfaces.NewStoreError(interfaces.ErrInvalidTransaction, "authority balance overflow")
	}
	credited := recipient.Clone()
	credited.Lamports += account.Lamports

	return []interfaces.AccountWrite{
		{Address: msg.Address},
		{Address: author.Authority, Account: &credited},
	}, nil
}

func (s *Store) createPackage(tx *interfaces.Transaction) ([]interfaces.AccountWrite, error) {
	msg := &tx.Message

	scope, err := interfaces.NewBoundedString(msg.Scope)
	if err != nil {
		return nil, interfaces.NewStoreError(interfaces.ErrInvalidString, "%s", err.Error())
	}
	name, err := interfaces.NewBoundedString(msg.Name)
	if err != nil {
		return nil, interfaces.NewStoreError(interfaces.ErrInvalidString, "%s", err.Error())
	}
	if err := tx.VerifySignatures(); err != nil {
		return nil, err
	}
	if msg.ProgramID != s.cfg.ProgramID {
		return nil, interfaces.NewStoreError(interfaces.ErrProgramMismatch, "transaction targets program %s, expected %s", msg.ProgramID, s.cfg.ProgramID)
	}

	address, bump, err := s.cfg.PackageAddress(msg.Scope, msg.Name)
	if err != nil {
		return nil, interfaces.AsStoreError(err)
	}
	if err := checkDerived(msg, address, bump); err != nil {
		return nil, err
	}
	if err := s.checkVacant(address); err != nil {
		return nil, err
	}
	if err := s.checkFresh(tx); err != nil {
		return nil, err
	}

	data := EncodePackage(&interfaces.PackageRecord{Bump: bump, Scope: scope, Name: name, Authority: msg.Authority})
	return s.allocate(msg.Payer, address, data)
}

func checkDerived(msg *interfaces.Message, address interfaces.Address, bump uint8) error {
	if msg.Address != address || msg.Bump != bump {
		return interfaces.NewStoreError(interfaces.ErrAddressMismatch, "address %s with bump %d does not match derived address %s with bump %d", msg.Address, msg.Bump, address, bump)
	}
	return nil
}

func (s *Store) checkVacant(address interfaces.Address) error {
	if _, isRecord := s.recordKind(s.accounts[address]); isRecord {
		return interfaces.NewStoreError(interfaces.ErrAlreadyExists, "account %s already in use", address)
	}
	return nil
}

func (s *Store) checkFresh(tx *interfaces.Transaction) error {
	if s.replay.contains(tx.ID()) {
		return interfaces.NewStoreError(interfaces.ErrDuplicateTransaction, "transaction %s has already been processed", tx.ID())
	}
	return nil
}

// allocate moves the rent-exempt minimum from payer into a new record at
// address. Lamports already sitting at address count towards the minimum.
func (s *Store) allocate(payer interfaces.PublicKey, address interfaces.Address, data []byte) ([]interfaces.AccountWrite, error) {
	rent := MinimumBalance(len(data))
	existing := s.accounts[address].Lamports

	var needed uint64
	if existing < rent {
		needed = rent - existing
	}

	payerAccount := s.accounts[payer]
	if !payerAccount.Owner.IsZero() {
		return nil, interfaces.NewStoreError(interfaces.ErrInsufficientFunds, "payer %s is not a wallet account", payer)
	}
	if payerAccount.Lamports < needed {
		return nil, interfaces.NewStoreError(interfaces.ErrInsufficientFunds, "payer %s has %d lamports, %d required", payer, payerAccount.Lamports, needed)
	}

	record := interfaces.Account{
		Lamports: existing + needed,
		Owner:    s.cfg.ProgramID,
		Data:     data,
	}
	writes := []interfaces.AccountWrite{{Address: address, Account: &record}}

	debited := payerAccount.Clone()
	debited.Lamports -= needed
	if debited.Lamports == 0 {
		writes = append(writes, interfaces.AccountWrite{Address: payer})
	} else {
		writes = append(writes, interfaces.AccountWrite{Address: payer, Account: &debited})
	}
	return writes, nil
}

// commit persists writes and then applies them to the in-memory view.
// Callers hold the writer lock.
func (s *Store) commit(ctx context.Context, writes []interfaces.AccountWrite) error {
	if err := s.backend.Commit(ctx, writes); err != nil {
		s.log.Error("could not commit to account backend", "backend", s.backend.Name(), "err", err)
		return interfaces.NewStoreError(interfaces.ErrBackendUnavailable, "could not commit transaction: %s", err.Error())
	}

	for _, w := range writes {
		if kind, ok := s.recordKind(s.accounts[w.Address]); ok {
			s.live[kind]--
		}
		if w.Account == nil {
			delete(s.accounts, w.Address)
			continue
		}
		s.accounts[w.Address] = w.Account.Clone()
		if kind, ok := s.recordKind(*w.Account); ok {
			s.live[kind]++
		}
	}
	s.slot++
	s.publishLiveRecords()
	return nil
}

func (s *Store) appendJournal(ctx context.Context, entry JournalEntry) {
	if s.journal == nil {
		return
	}

	encoded, err := json.Marshal(entry)
	if err != nil {
		s.log.Error("could not encode journal entry", "slot", entry.Slot, "err", err)
		return
	}
	id, err := s.journal.Append(ctx, encoded)
	if err != nil {
		s.log.Warn("could not append journal entry", "journal", s.journal.Name(), "slot", entry.Slot, "err", err)
		return
	}
	s.log.Debug("journal entry appended", "journal", s.journal.Name(), "slot", entry.Slot, "id", id)
}

func (s *Store) recordKind(account interfaces.Account) (interfaces.RecordKind, bool) {
	if account.Owner != s.cfg.ProgramID || len(account.Data) == 0 {
		return 0, false
	}
	kind, err := KindOf(account.Data)
	if err != nil {
		return 0, false
	}
	return kind, true
}

func (s *Store) publishLiveRecords() {
	metrics.SetLiveRecords(interfaces.KindAuthor.String(), s.live[interfaces.KindAuthor])
	metrics.SetLiveRecords(interfaces.KindPackage.String(), s.live[interfaces.KindPackage])
}

// ReadRecord returns the live record at address.
func (s *Store) ReadRecord(ctx context.Context, address interfaces.Address) (*interfaces.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[address]
	if _, isRecord := s.recordKind(account); !ok || !isRecord {
		return nil, interfaces.NewStoreError(interfaces.ErrNotFound, "account %s does not exist", address)
	}

	record, err := DecodeRecord(address, account)
	if err != nil {
		return nil, interfaces.NewStoreError(interfaces.ErrCorruptAccount, "%s", err.Error())
	}
	return record, nil
}

// Balance returns the lamports held at key.
func (s *Store) Balance(ctx context.Context, key interfaces.PublicKey) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accounts[key].Lamports, nil
}

// Airdrop credits lamports to a wallet. Only ledgers with the faucet
// enabled accept it.
func (s *Store) Airdrop(ctx context.Context, key interfaces.PublicKey, lamports uint64) (interfaces.TransactionReceipt, error) {
	if !s.cfg.FaucetEnabled {
		return interfaces.TransactionReceipt{}, interfaces.NewStoreError(interfaces.ErrFaucetDisabled, "airdrops are disabled on this ledger")
	}
	if lamports == 0 {
		return interfaces.TransactionReceipt{}, interfaces.NewStoreError(interfaces.ErrInvalidTransaction, "airdrop amount must be positive")
	}
	if key.IsZero() {
		return interfaces.TransactionReceipt{}, interfaces.NewStoreError(interfaces.ErrInvalidTransaction, "airdrop recipient is not set")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account := s.accounts[key]
	if !account.Owner.IsZero() {
		return interfaces.TransactionReceipt{}, interfaces.NewStoreError(interfaces.ErrAccountKind, "account %s is not a wallet", key)
	}
	if account.Lamports > math.MaxUint64-lamports {
		return interfaces.TransactionReceipt{}, interfaces.NewStoreError(interfaces.ErrInvalidTransaction, "balance overflow")
	}

	credited := account.Clone()
	credited.Lamports += lamports
	if err := s.commit(ctx, []interfaces.AccountWrite{{Address: key, Account: &credited}}); err != nil {
		metrics.RecordStoreTransaction("airdrop", string(interfaces.CodeOf(err)))
		return interfaces.TransactionReceipt{}, err
	}
	metrics.RecordStoreTransaction("airdrop", "ok")
	s.log.Info("airdrop committed", "recipient", key, "lamports", lamports, "slot", s.slot)

	s.appendJournal(ctx, JournalEntry{Slot: s.slot, Airdrop: &AirdropEntry{Recipient: key, Lamports: lamports}})
	return interfaces.TransactionReceipt{Signature: airdropID(key, lamports, s.slot), Slot: s.slot}, nil
}

func airdropID(key interfaces.PublicKey, lamports, slot uint64) interfaces.Signature {
	h := sha512.New()
	h.Write([]byte("airdrop"))
	h.Write(key[:])
	h.Write(binary.LittleEndian.AppendUint64(nil, lamports))
	h.Write(binary.LittleEndian.AppendUint64(nil, slot))

	var id interfaces.Signature
	copy(id[:], h.Sum(nil))
	return id
}
