package interfaces

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
)

// ContentID is a 32-byte SHA-256 hash uniquely identifying a journal entry.
type ContentID [32]byte

// ComputeID returns the journal ID of an encoded transaction.
func ComputeID(entry []byte) ContentID {
	return sha256.Sum256(entry)
}

func (id ContentID) String() string {
	return hex.EncodeToString(id[:])
}

// StorageBackendLocation represents URI for storage backend.
type StorageBackendLocation struct {
	Raw    string     // Original URI
	Scheme string     // Protocol
	Host   string     // Hostname
	Path   string     // Resource path
	Query  url.Values // Query parameters
	Auth   string     // Authentication info
}

// NewStorageBackendLocation creates a new storage location from a URI string with validation.
func NewStorageBackendLocation(uri string) (StorageBackendLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return StorageBackendLocation{}, fmt.Errorf("%w: %w", ErrInvalidLocationURI, err)
	}

	switch parsed.Scheme {
	case "memory", "file", "s3", "vault", "ipfs":
	default:
		return StorageBackendLocation{}, fmt.Errorf("%w: unsupported storage scheme %q", ErrInvalidLocationURI, parsed.Scheme)
	}

	var auth string
	if parsed.User != nil {
		auth = parsed.User.String()
	}

	return StorageBackendLocation{
		Raw:    uri,
		Scheme: parsed.Scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		Auth:   auth,
	}, nil
}

// String returns the original URI string.
func (loc StorageBackendLocation) String() string {
	return loc.Raw
}

func (loc StorageBackendLocation) IsMemory() bool { return loc.Scheme == "memory" }
func (loc StorageBackendLocation) IsFile() bool   { return loc.Scheme == "file" }
func (loc StorageBackendLocation) IsS3() bool     { return loc.Scheme == "s3" }
func (loc StorageBackendLocation) IsVault() bool  { return loc.Scheme == "vault" }
func (loc StorageBackendLocation) IsIPFS() bool   { return loc.Scheme == "ipfs" }

// GetParam returns a query parameter value.
func (loc StorageBackendLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// AccountWrite is one entry of an atomic commit. A nil Account deletes the
// address.
type AccountWrite struct {
	Address Address
	Account *Account
}

// AccountBackend persists ledger accounts.
type AccountBackend interface {
	// Load returns every persisted account.
	Load(ctx context.Context) (map[Address]Account, error)

	// Commit applies all writes or none of them.
	Commit(ctx context.Context, writes []AccountWrite) error

	// Available checks if backend is accessible.
	Available(ctx context.Context) bool

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns URI identifying this backend.
	LocationURI() string
}

// Journal is an append-only, content-addressed log of committed transactions.
type Journal interface {
	Append(ctx context.Context, entry []byte) (ContentID, error)
	Fetch(ctx context.Context, id ContentID) ([]byte, error)
	Available(ctx context.Context) bool
	Name() string
	LocationURI() string
}

// StorageBackendFactory creates account backends and journals from URIs.
type StorageBackendFactory interface {
	// AccountBackendFor supports memory://, file://, s3:// and vault://.
	AccountBackendFor(location StorageBackendLocation) (AccountBackend, error)

	// CreateMultiBackend mirrors commits to every backend in order.
	CreateMultiBackend(locations []StorageBackendLocation) (AccountBackend, error)

	// JournalFor supports file:// and ipfs://.
	JournalFor(location StorageBackendLocation) (Journal, error)
}
