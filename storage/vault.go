package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/ruteri/package-registry/interfaces"
)

// VaultBackend persists the account snapshot as one secret in a HashiCorp
// Vault KV v2 mount. The client token comes from VAULT_TOKEN.
type VaultBackend struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	snapshots   *snapshotStore
	log         *slog.Logger
	locationURI string
}

// NewVaultBackend creates a new Vault account backend.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - mountPath: KV v2 mount path (e.g. "secret")
//   - dataPath: Path within the mount (e.g. "registry")
//   - log: Structured logger for operational insights
func NewVaultBackend(address, mountPath, dataPath string, log *slog.Logger) (*VaultBackend, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.Timeout = 30 * time.Second

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	mountPath = strings.Trim(mountPath, "/")
	dataPath = strings.Trim(dataPath, "/")

	b := &VaultBackend{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", strings.TrimPrefix(strings.TrimPrefix(address, "https://"), "http://"), mountPath, dataPath),
	}
	b.snapshots = &snapshotStore{get: b.readSnapshot, put: b.writeSnapshot}
	return b, nil
}

func (b *VaultBackend) Load(ctx context.Context) (map[interfaces.Address]interfaces.Account, error) {
	return b.snapshots.load(ctx)
}

func (b *VaultBackend) Commit(ctx context.Context, writes []interfaces.AccountWrite) error {
	return b.snapshots.commit(ctx, writes)
}

func (b *VaultBackend) secretPath() string {
	return fmt.Sprintf("%s/data/%s/accounts", b.mountPath, b.dataPath)
}

func (b *VaultBackend) readSnapshot(ctx context.Context) ([]byte, bool, error) {
	path := b.secretPath()

	secret, err := b.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		b.log.Error("Failed to read from Vault",
			slog.String("path", path),
			"err", err)
		return nil, false, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	if secret == nil || secret.Data == nil {
		b.log.Debug("No account snapshot in Vault, starting empty", slog.String("path", path))
		return nil, false, nil
	}

	// KV v2 nests the payload under "data"; deleted versions carry nil data.
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok || data == nil {
		return nil, false, nil
	}

	content, ok := data["content"].(string)
	if !ok {
		return nil, false, fmt.Errorf("invalid content format in Vault data at %s", path)
	}
	return []byte(content), true, nil
}

func (b *VaultBackend) writeSnapshot(ctx context.Context, snapshot []byte) error {
	start := time.Now()
	path := b.secretPath()

	_, err := b.client.Logical().WriteWithContext(ctx, path, map[string]interface{}{
		"data": map[string]interface{}{
			"content": string(snapshot),
		},
	})
	if err != nil {
		b.log.Error("Failed to write to Vault",
			slog.String("path", path),
			"err", err)
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	b.log.Debug("Stored account snapshot in Vault",
		slog.String("path", path),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Available checks if the Vault backend is accessible.
// It uses the health endpoint to verify that Vault is initialized and unsealed.
func (b *VaultBackend) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := b.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		b.log.Debug("Vault health check failed", "err", err)
		return false
	}

	if !health.Initialized || health.Sealed {
		b.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *VaultBackend) Name() string {
	return fmt.Sprintf("vault-%s-%s", b.mountPath, b.dataPath)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *VaultBackend) LocationURI() string {
	return b.locationURI
}
