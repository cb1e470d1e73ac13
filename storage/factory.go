package storage

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/package-registry/interfaces"
)

// StorageBackendFactory creates account backends and journals from
// location URIs.
type StorageBackendFactory struct {
	log *slog.Logger
}

func NewStorageBackendFactory(logger *slog.Logger) *StorageBackendFactory {
	return &StorageBackendFactory{log: logger}
}

// AccountBackendFor creates an account backend from a location URI.
//
// Supported schemes:
//   - memory:// - Process memory, lost on exit
//   - file:///path - JSON snapshot in a local directory
//   - s3://[ACCESS_KEY:SECRET_KEY@]bucket/prefix?region=&endpoint= - S3 object
//   - vault://host:port/mount/path?tls=false - Vault KV v2 secret
func (sf *StorageBackendFactory) AccountBackendFor(location interfaces.StorageBackendLocation) (interfaces.AccountBackend, error) {
	sf.log.Debug("Creating account backend", slog.String("uri", location.String()))

	switch {
	case location.IsMemory():
		return NewMemoryBackend(), nil
	case location.IsFile():
		path, err := filePath(location)
		if err != nil {
			return nil, err
		}
		return NewFileBackend(path, sf.log)
	case location.IsS3():
		return sf.createS3Backend(location)
	case location.IsVault():
		return sf.createVaultBackend(location)
	default:
		return nil, fmt.Errorf("%w: scheme %s cannot store accounts", interfaces.ErrInvalidLocationURI, location.Scheme)
	}
}

// CreateMultiBackend creates a mirrored account backend from a list of
// location URIs. Every location must yield a backend, since commits are
// only accepted once all mirrors hold them.
func (sf *StorageBackendFactory) CreateMultiBackend(locations []interfaces.StorageBackendLocation) (interfaces.AccountBackend, error) {
	backends := make([]interfaces.AccountBackend, 0, len(locations))

	for _, location := range locations {
		backend, err := sf.AccountBackendFor(location)
		if err != nil {
			sf.log.Error("Failed to create storage backend",
				"err", err,
				slog.String("locationURI", location.String()))
			return nil, fmt.Errorf("storage backend %s: %w", location.String(), err)
		}
		backends = append(backends, backend)
	}

	switch len(backends) {
	case 0:
		return nil, fmt.Errorf("no valid storage backends created")
	case 1:
		return backends[0], nil
	default:
		return NewMultiAccountBackend(backends, sf.log), nil
	}
}

// JournalFor creates a journal from a location URI.
//
// Supported schemes:
//   - file:///path - entries stored under path/journal
//   - ipfs://host:port/?timeout=30s - entries added to an IPFS node
func (sf *StorageBackendFactory) JournalFor(location interfaces.StorageBackendLocation) (interfaces.Journal, error) {
	sf.log.Debug("Creating journal", slog.String("uri", location.String()))

	switch {
	case location.IsFile():
		path, err := filePath(location)
		if err != nil {
			return nil, err
		}
		return NewFileJournal(path, sf.log)
	case location.IsIPFS():
		host, port := splitHostPort(location.Host, "5001")
		timeout := 30 * time.Second
		if raw := location.GetParam("timeout"); raw != "" {
			parsed, err := time.ParseDuration(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid timeout %q", interfaces.ErrInvalidLocationURI, raw)
			}
			timeout = parsed
		}
		return NewIPFSJournal(host, port, timeout, sf.log), nil
	default:
		return nil, fmt.Errorf("%w: scheme %s cannot store a journal", interfaces.ErrInvalidLocationURI, location.Scheme)
	}
}

func (sf *StorageBackendFactory) createS3Backend(location interfaces.StorageBackendLocation) (interfaces.AccountBackend, error) {
	region := location.GetParam("region")
	if region == "" {
		region = "us-east-1"
	}

	var accessKey, secretKey string
	if location.Auth != "" {
		accessKey, secretKey, _ = strings.Cut(location.Auth, ":")
	}

	return NewS3Backend(location.Host, strings.TrimPrefix(location.Path, "/"), region, location.GetParam("endpoint"), accessKey, secretKey, sf.log)
}

func (sf *StorageBackendFactory) createVaultBackend(location interfaces.StorageBackendLocation) (interfaces.AccountBackend, error) {
	mount, dataPath, ok := strings.Cut(strings.Trim(location.Path, "/"), "/")
	if !ok || mount == "" || dataPath == "" {
		return nil, fmt.Errorf("%w: expected vault://host:port/mount/path", interfaces.ErrInvalidLocationURI)
	}

	scheme := "https"
	if location.GetParam("tls") == "false" {
		scheme = "http"
	}
	return NewVaultBackend(fmt.Sprintf("%s://%s", scheme, location.Host), mount, dataPath, sf.log)
}

// filePath handles file:///absolute and file://./relative URIs.
func filePath(location interfaces.StorageBackendLocation) (string, error) {
	path := location.Path
	if location.Host != "" {
		path = location.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return "", fmt.Errorf("%w: empty path in file URI %s", interfaces.ErrInvalidLocationURI, location.String())
	}
	return path, nil
}

func splitHostPort(hostport, defaultPort string) (string, string) {
	host, port, ok := strings.Cut(hostport, ":")
	if !ok || port == "" {
		return host, defaultPort
	}
	return host, port
}
