package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/ruteri/package-registry/cryptoutils"
	"github.com/ruteri/package-registry/httpserver"
	"github.com/ruteri/package-registry/interfaces"
	"github.com/ruteri/package-registry/kms"
	"github.com/urfave/cli/v2"
)

var flagAdminServer *cli.StringFlag = &cli.StringFlag{
	Name:  "admin-server-addr",
	Value: "http://127.0.0.1:8080/admin",
	Usage: "Oracle admin API address",
}
var flagAdminID *cli.StringFlag = &cli.StringFlag{
	Name:  "admin-id",
	Usage: "Admin id as listed in the admin keys file",
}
var flagAdminKeypair *cli.StringFlag = &cli.StringFlag{
	Name:  "admin-keypair-file",
	Value: "admin-keypair.json",
	Usage: "Path to admin keypair",
}
var flagAdminKeys *cli.StringFlag = &cli.StringFlag{
	Name:  "admin-keys-file",
	Value: "admin-keys.json",
	Usage: "Path to the oracle admin keys file",
}
var flagOracleKeypair *cli.StringFlag = &cli.StringFlag{
	Name:  "oracle-keypair-file",
	Usage: "Path to the oracle keypair to split",
}
var flagShareFile *cli.StringFlag = &cli.StringFlag{
	Name:  "share-file",
	Value: "oracle-share.hex",
	Usage: "Path to this admin's hex-encoded share",
}
var flagSharesDir *cli.StringFlag = &cli.StringFlag{
	Name:  "shares-dir",
	Value: ".",
	Usage: "Directory to write one share file per admin into",
}
var flagThreshold *cli.IntFlag = &cli.IntFlag{
	Name:  "threshold",
	Value: 2,
	Usage: "Number of shares needed to unlock the oracle key",
}

func main() {
	app := &cli.App{
		Name:           "admin",
		Usage:          "Manage Shamir shares of the oracle key",
		DefaultCommand: "status",
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "show the unlock state of the oracle",
				Flags: []cli.Flag{flagAdminServer},
				Action: func(cCtx *cli.Context) error {
					status, err := httpserver.NewAdminClient(cCtx.String(flagAdminServer.Name), "", nil).Status(cCtx.Context)
					if err != nil {
						return err
					}
					fmt.Printf("%s (%d/%d shares)\n", status.State, status.Submitted, status.Threshold)
					return nil
				},
			},
			{
				Name:  "generate-admin",
				Usage: "generate an admin keypair",
				Flags: []cli.Flag{flagAdminKeypair},
				Action: func(cCtx *cli.Context) error {
					kp, err := cryptoutils.GenerateKeypair()
					if err != nil {
						return err
					}
					defer kp.Wipe()

					data, err := json.Marshal(kp)
					if err != nil {
						return err
					}
					if err := os.WriteFile(cCtx.String(flagAdminKeypair.Name), data, 0600); err != nil {
						return err
					}
					fmt.Println(kp.PublicKey())
					return nil
				},
			},
			{
				Name:      "generate-admin-keys",
				Usage:     "write the admin keys file from id=pubkey pairs",
				ArgsUsage: "<id=pubkey>...",
				Flags:     []cli.Flag{flagAdminKeys},
				Action: func(cCtx *cli.Context) error {
					var file httpserver.AdminKeysFile
					for _, arg := range cCtx.Args().Slice() {
						id, raw, ok := strings.Cut(arg, "=")
						if !ok || id == "" {
							return fmt.Errorf("expected id=pubkey, got %q", arg)
						}
						pubkey, err := interfaces.NewPublicKeyFromBase58(raw)
						if err != nil {
							return fmt.Errorf("invalid public key of %s: %w", id, err)
						}
						file.Admins = append(file.Admins, httpserver.AdminKeyEntry{ID: id, Pubkey: pubkey})
					}
					if len(file.Admins) == 0 {
						return fmt.Errorf("no admins given")
					}

					data, err := json.MarshalIndent(file, "", "  ")
					if err != nil {
						return err
					}
					return os.WriteFile(cCtx.String(flagAdminKeys.Name), data, 0644)
				},
			},
			{
				Name:  "split-oracle-key",
				Usage: "split the oracle keypair into one share per admin",
				Flags: []cli.Flag{flagOracleKeypair, flagAdminKeys, flagSharesDir, flagThreshold},
				Action: func(cCtx *cli.Context) error {
					oraclePath, err := homedir.Expand(cCtx.String(flagOracleKeypair.Name))
					if err != nil {
						return err
					}
					oracleKey, err := cryptoutils.LoadKeypairFile(oraclePath)
					if err != nil {
						return err
					}
					defer oracleKey.Wipe()

					f, err := os.Open(cCtx.String(flagAdminKeys.Name))
					if err != nil {
						return err
					}
					defer f.Close()
					var file httpserver.AdminKeysFile
					if err := json.NewDecoder(f).Decode(&file); err != nil {
						return fmt.Errorf("failed to decode admin keys: %w", err)
					}

					shares, err := kms.SplitKeypair(oracleKey, len(file.Admins), cCtx.Int(flagThreshold.Name))
					if err != nil {
						return err
					}

					for i, admin := range file.Admins {
						path := filepath.Join(cCtx.String(flagSharesDir.Name), admin.ID+".share.hex")
						if err := os.WriteFile(path, []byte(hex.EncodeToString(shares[i])), 0600); err != nil {
							return err
						}
						fmt.Printf("%s: %s\n", admin.ID, path)
					}
					fmt.Printf("oracle %s split into %d shares, threshold %d\n", oracleKey.PublicKey(), len(shares), cCtx.Int(flagThreshold.Name))
					return nil
				},
			},
			{
				Name:  "submit-share",
				Usage: "submit this admin's share to a locked oracle",
				Flags: []cli.Flag{flagAdminServer, flagAdminID, flagAdminKeypair, flagShareFile},
				Action: func(cCtx *cli.Context) error {
					kp, err := cryptoutils.LoadKeypairFile(cCtx.String(flagAdminKeypair.Name))
					if err != nil {
						return err
					}
					defer kp.Wipe()

					raw, err := os.ReadFile(cCtx.String(flagShareFile.Name))
					if err != nil {
						return err
					}
					share, err := hex.DecodeString(strings.TrimSpace(string(raw)))
					if err != nil {
						return fmt.Errorf("invalid share file: %w", err)
					}

					adminClient := httpserver.NewAdminClient(cCtx.String(flagAdminServer.Name), cCtx.String(flagAdminID.Name), kp)
					return adminClient.SubmitShare(cCtx.Context, share)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
