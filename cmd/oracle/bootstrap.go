package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ruteri/package-registry/cryptoutils"
	"github.com/ruteri/package-registry/httpserver"
	"github.com/ruteri/package-registry/interfaces"
	"github.com/ruteri/package-registry/kms"
	"github.com/urfave/cli/v2"
)

var KeypairFlag = &cli.StringFlag{
	Name:    "keypair",
	EnvVars: []string{"KEYPAIR"},
	Usage:   "oracle keypair as a JSON byte array",
}
var KeystoreFlag = &cli.StringFlag{
	Name:  "keystore",
	Usage: "passphrase-sealed oracle keystore file",
}
var KeystorePassphraseFlag = &cli.StringFlag{
	Name:    "keystore-passphrase",
	EnvVars: []string{"KEYSTORE_PASSPHRASE"},
	Usage:   "passphrase of the keystore file",
}
var KeySharesFlag = &cli.StringFlag{
	Name:    "key-shares",
	EnvVars: []string{"ORACLE_KEY_SHARES"},
	Usage:   "comma-separated hex Shamir shares of the oracle key",
}
var AdminKeysFlag = &cli.StringFlag{
	Name:  "admin-keys-file",
	Usage: "JSON file with admin public keys; enables unlocking the oracle key over the admin API",
}
var UnlockThresholdFlag = &cli.IntFlag{
	Name:  "unlock-threshold",
	Value: 2,
	Usage: "number of admin shares needed to unlock the oracle key",
}
var UnlockTimeoutFlag = &cli.IntFlag{
	Name:  "unlock-timeout",
	Value: 86400,
	Usage: "timeout in seconds for the admin unlock",
}

var KeyFlags = []cli.Flag{
	KeypairFlag,
	KeystoreFlag,
	KeystorePassphraseFlag,
	KeySharesFlag,
	AdminKeysFlag,
	UnlockThresholdFlag,
	UnlockTimeoutFlag,
}

// loadKey reads the oracle key from the environment, a keystore or shares.
// Returns kms.ErrNoOracleKey when none is configured.
func loadKey(cCtx *cli.Context) (*cryptoutils.Keypair, error) {
	return kms.LoadOracleKey(kms.OracleKeySource{
		KeypairJSON:  cCtx.String(KeypairFlag.Name),
		KeystorePath: cCtx.String(KeystoreFlag.Name),
		Passphrase:   []byte(cCtx.String(KeystorePassphraseFlag.Name)),
		Shares:       cCtx.String(KeySharesFlag.Name),
	})
}

// newAdminHandler builds the unlock handler when an admin keys file is set.
func newAdminHandler(cCtx *cli.Context, logger *slog.Logger, expected interfaces.PublicKey) (*httpserver.AdminHandler, error) {
	path := cCtx.String(AdminKeysFlag.Name)
	if path == "" {
		return nil, nil
	}

	logger.Info("Loading admin keys", "file", path)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open admin keys file: %w", err)
	}
	defer f.Close()

	adminKeys, err := httpserver.LoadAdminKeys(f)
	if err != nil {
		return nil, err
	}
	logger.Info("Admin keys loaded successfully", "count", len(adminKeys))

	return httpserver.NewAdminHandler(logger, adminKeys, expected, cCtx.Int(UnlockThresholdFlag.Name))
}

// waitForUnlock blocks until admins have unlocked the oracle key.
func waitForUnlock(cCtx *cli.Context, logger *slog.Logger, admin *httpserver.AdminHandler) (*cryptoutils.Keypair, error) {
	if admin == nil {
		return nil, errors.New("no oracle key configured and no admin keys file to unlock one")
	}

	timeout := time.Duration(cCtx.Int(UnlockTimeoutFlag.Name)) * time.Second
	logger.Info("Waiting for admins to unlock the oracle key", "timeout", timeout)

	ctx, cancel := context.WithTimeout(cCtx.Context, timeout)
	defer cancel()
	return admin.WaitForUnlock(ctx)
}
