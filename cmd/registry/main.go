package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/mitchellh/go-homedir"
	"github.com/ruteri/package-registry/api/oraclehandler"
	"github.com/ruteri/package-registry/api/storehandler"
	"github.com/ruteri/package-registry/client"
	"github.com/ruteri/package-registry/cmd/flags"
	"github.com/ruteri/package-registry/cryptoutils"
	"github.com/urfave/cli/v2"
)

var flagWallet = &cli.StringFlag{
	Name:    "keypair",
	EnvVars: []string{"ANCHOR_WALLET"},
	Value:   "~/.config/solana/id.json",
	Usage:   "wallet keypair file paying for and owning records",
}
var flagPubkey = &cli.StringFlag{
	Name:  "pubkey",
	Usage: "public key proven in the GitHub bio, if not the wallet key",
}

func main() {
	app := &cli.App{
		Name:  "registry",
		Usage: "Publish packages and register authors",
		Flags: append([]cli.Flag{flagWallet, flags.NodeURLFlag, flags.OracleURLFlag}, flags.RegistryFlags...),
		Commands: []*cli.Command{
			{
				Name:      "publish",
				Usage:     "publish a package",
				ArgsUsage: "<@scope/name>",
				Action: func(cCtx *cli.Context) error {
					scope, name, err := packageArg(cCtx)
					if err != nil {
						return err
					}
					c, err := newClient(cCtx)
					if err != nil {
						return err
					}
					_, err = c.Publish(cCtx.Context, scope, name)
					return err
				},
			},
			{
				Name:      "info",
				Usage:     "show a package",
				ArgsUsage: "<@scope/name>",
				Action: func(cCtx *cli.Context) error {
					scope, name, err := packageArg(cCtx)
					if err != nil {
						return err
					}
					c, err := newClient(cCtx)
					if err != nil {
						return err
					}
					_, err = c.Info(cCtx.Context, scope, name)
					return err
				},
			},
			{
				Name:      "register",
				Usage:     "register the GitHub user as an author through the oracle",
				ArgsUsage: "<username>",
				Flags:     []cli.Flag{flagPubkey},
				Action: func(cCtx *cli.Context) error {
					username, err := singleArg(cCtx)
					if err != nil {
						return err
					}
					c, err := newClient(cCtx)
					if err != nil {
						return err
					}
					_, err = c.Register(cCtx.Context, username, cCtx.String(flagPubkey.Name))
					return err
				},
			},
			{
				Name:      "unregister",
				Usage:     "delete an author record owned by the wallet",
				ArgsUsage: "<username>",
				Action: func(cCtx *cli.Context) error {
					username, err := singleArg(cCtx)
					if err != nil {
						return err
					}
					c, err := newClient(cCtx)
					if err != nil {
						return err
					}
					return c.Unregister(cCtx.Context, username)
				},
			},
			{
				Name:      "author",
				Usage:     "show an author",
				ArgsUsage: "<username>",
				Action: func(cCtx *cli.Context) error {
					username, err := singleArg(cCtx)
					if err != nil {
						return err
					}
					c, err := newClient(cCtx)
					if err != nil {
						return err
					}
					_, err = c.Author(cCtx.Context, username)
					return err
				},
			},
			{
				Name:      "airdrop",
				Usage:     "request lamports from a local faucet",
				ArgsUsage: "<lamports>",
				Action: func(cCtx *cli.Context) error {
					raw, err := singleArg(cCtx)
					if err != nil {
						return err
					}
					lamports, err := strconv.ParseUint(raw, 10, 64)
					if err != nil {
						return fmt.Errorf("invalid lamports %q: %w", raw, err)
					}
					c, err := newClient(cCtx)
					if err != nil {
						return err
					}
					_, err = c.Airdrop(cCtx.Context, lamports)
					return err
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newClient(cCtx *cli.Context) (*client.Client, error) {
	cfg, err := flags.RegistryConfig(cCtx)
	if err != nil {
		return nil, err
	}
	nodeURL, err := flags.NodeURL(cCtx)
	if err != nil {
		return nil, err
	}
	oracleURL, err := flags.OracleURL(cCtx)
	if err != nil {
		return nil, err
	}

	walletPath, err := homedir.Expand(cCtx.String(flagWallet.Name))
	if err != nil {
		return nil, err
	}
	wallet, err := cryptoutils.LoadKeypairFile(walletPath)
	if err != nil {
		return nil, err
	}

	return client.New(cfg, storehandler.NewRemoteStore(nodeURL), oraclehandler.NewClient(oracleURL), wallet, os.Stdout), nil
}

func singleArg(cCtx *cli.Context) (string, error) {
	if cCtx.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one argument: %s", cCtx.Command.ArgsUsage)
	}
	return cCtx.Args().First(), nil
}

func packageArg(cCtx *cli.Context) (string, string, error) {
	full, err := singleArg(cCtx)
	if err != nil {
		return "", "", err
	}
	return client.ParsePackageName(full)
}
