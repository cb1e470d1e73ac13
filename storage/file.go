package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ruteri/package-registry/interfaces"
)

const (
	accountsFileName = "accounts.json"
	journalDirName   = "journal"
)

// FileBackend persists the account set as a JSON snapshot in a local
// directory. Commits write a temporary file and rename it into place.
type FileBackend struct {
	baseDir     string
	snapshots   *snapshotStore
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates a file account backend in baseDir, creating the
// directory if it doesn't exist.
func NewFileBackend(baseDir string, log *slog.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	b := &FileBackend{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}
	b.snapshots = &snapshotStore{get: b.readSnapshot, put: b.writeSnapshot}
	return b, nil
}

func (b *FileBackend) Load(ctx context.Context) (map[interfaces.Address]interfaces.Account, error) {
	return b.snapshots.load(ctx)
}

func (b *FileBackend) Commit(ctx context.Context, writes []interfaces.AccountWrite) error {
	return b.snapshots.commit(ctx, writes)
}

func (b *FileBackend) readSnapshot(ctx context.Context) ([]byte, bool, error) {
	data, err := os.ReadFile(b.snapshotPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: failed to read snapshot: %w", interfaces.ErrBackendUnavailable, err)
	}
	return data, true, nil
}

func (b *FileBackend) writeSnapshot(ctx context.Context, data []byte) error {
	tmp, err := os.CreateTemp(b.baseDir, accountsFileName+".*")
	if err != nil {
		return fmt.Errorf("%w: failed to create snapshot: %w", interfaces.ErrBackendUnavailable, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to write snapshot: %w", interfaces.ErrBackendUnavailable, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to sync snapshot: %w", interfaces.ErrBackendUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: failed to close snapshot: %w", interfaces.ErrBackendUnavailable, err)
	}
	if err := os.Rename(tmp.Name(), b.snapshotPath()); err != nil {
		return fmt.Errorf("%w: failed to replace snapshot: %w", interfaces.ErrBackendUnavailable, err)
	}

	b.log.Debug("Stored account snapshot",
		slog.String("path", b.snapshotPath()),
		slog.Int("size", len(data)))
	return nil
}

// Available checks if the file backend is accessible by verifying the base directory exists.
func (b *FileBackend) Available(ctx context.Context) bool {
	_, err := os.Stat(b.baseDir)
	if err != nil {
		b.log.Debug("File backend unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *FileBackend) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.baseDir))
}

// LocationURI returns the URI that identifies this storage backend.
func (b *FileBackend) LocationURI() string {
	return b.locationURI
}

func (b *FileBackend) snapshotPath() string {
	return filepath.Join(b.baseDir, accountsFileName)
}

// FileJournal stores journal entries as files named by their content ID.
type FileJournal struct {
	dir         string
	log         *slog.Logger
	locationURI string
}

// NewFileJournal creates a journal under baseDir/journal.
func NewFileJournal(baseDir string, log *slog.Logger) (*FileJournal, error) {
	dir := filepath.Join(baseDir, journalDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	return &FileJournal{
		dir:         dir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Append stores entry and returns its content ID.
func (j *FileJournal) Append(ctx context.Context, entry []byte) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(entry)
	path := j.entryPath(id)

	if err := os.WriteFile(path, entry, 0644); err != nil {
		return id, fmt.Errorf("failed to write journal entry: %w", err)
	}

	j.log.Debug("Stored journal entry",
		slog.String("path", path),
		slog.String("contentID", id.String()))
	return id, nil
}

// Fetch returns the entry with the given content ID.
func (j *FileJournal) Fetch(ctx context.Context, id interfaces.ContentID) ([]byte, error) {
	data, err := os.ReadFile(j.entryPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, interfaces.ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read journal entry: %w", err)
	}
	return data, nil
}

func (j *FileJournal) Available(ctx context.Context) bool {
	_, err := os.Stat(j.dir)
	return err == nil
}

func (j *FileJournal) Name() string {
	return fmt.Sprintf("file-journal-%s", filepath.Base(filepath.Dir(j.dir)))
}

func (j *FileJournal) LocationURI() string {
	return j.locationURI
}

func (j *FileJournal) entryPath(id interfaces.ContentID) string {
	return filepath.Join(j.dir, id.String()+".json")
}
