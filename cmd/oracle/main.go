package main

import (
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ruteri/package-registry/api/oraclehandler"
	"github.com/ruteri/package-registry/api/storehandler"
	"github.com/ruteri/package-registry/attestation"
	"github.com/ruteri/package-registry/cmd/flags"
	"github.com/ruteri/package-registry/httpserver"
	"github.com/ruteri/package-registry/kms"
	"github.com/ruteri/package-registry/oracle"
	"github.com/urfave/cli/v2"
)

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}
var GitHubTokenFlag = &cli.StringFlag{
	Name:    "github-token",
	EnvVars: []string{"GH_TOKEN"},
	Usage:   "GitHub API token for profile lookups",
}
var GitHubAPIFlag = &cli.StringFlag{
	Name:  "github-api",
	Value: attestation.DefaultGitHubAPI,
	Usage: "GitHub REST API base URL",
}

func main() {
	app := &cli.App{
		Name:  "oracle",
		Usage: "Attest GitHub identities and register authors",
		Flags: append(append(append([]cli.Flag{ListenAddrFlag, GitHubTokenFlag, GitHubAPIFlag, flags.NodeURLFlag, flags.LogServiceFlagFn("oracle")}, KeyFlags...), flags.RegistryFlags...), flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			cfg, err := flags.RegistryConfig(cCtx)
			if err != nil {
				logger.Error("Invalid registry configuration", "err", err)
				return err
			}

			nodeURL, err := flags.NodeURL(cCtx)
			if err != nil {
				return err
			}
			store := storehandler.NewRemoteStore(nodeURL)
			verifier := attestation.NewVerifier(attestation.NewGitHubProfileFetcher(cCtx.String(GitHubAPIFlag.Name), cCtx.String(GitHubTokenFlag.Name), logger))

			key, err := loadKey(cCtx)
			if err != nil && !errors.Is(err, kms.ErrNoOracleKey) {
				logger.Error("Failed to load oracle key", "err", err)
				return err
			}

			admin, err := newAdminHandler(cCtx, logger, cfg.OraclePubkey)
			if err != nil {
				logger.Error("Failed to set up admin unlock", "err", err)
				return err
			}

			serverCfg := flags.ConfigureServer(cCtx, logger, cCtx.String(ListenAddrFlag.Name))
			serverCfg.Admin = admin

			server, err := httpserver.New(serverCfg)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}
			server.RunInBackground()

			if key == nil {
				key, err = waitForUnlock(cCtx, logger, admin)
				if err != nil {
					logger.Error("Oracle key unlock failed", "err", err)
					server.Shutdown()
					return err
				}
			}
			defer key.Wipe()

			service, err := oracle.NewService(cfg, key, verifier, store, logger)
			if err != nil {
				logger.Error("Oracle key does not match configuration", "err", err)
				server.Shutdown()
				return err
			}
			server.SetRoutes(oraclehandler.NewHandler(service, logger))

			logger.Info("Oracle is operational", "oracle", service.PublicKey(), "node", nodeURL)

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
