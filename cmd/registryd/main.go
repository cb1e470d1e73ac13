package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ruteri/package-registry/api/storehandler"
	"github.com/ruteri/package-registry/cmd/flags"
	"github.com/ruteri/package-registry/httpserver"
	"github.com/ruteri/package-registry/interfaces"
	"github.com/ruteri/package-registry/registry"
	"github.com/ruteri/package-registry/storage"
	"github.com/urfave/cli/v2"
)

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8899",
	Usage: "address to listen on for API",
}
var StorageFlag = &cli.StringSliceFlag{
	Name:    "storage",
	EnvVars: []string{"REGISTRY_STORAGE"},
	Value:   cli.NewStringSlice("memory://"),
	Usage:   "account storage URIs (memory://, file:///dir, s3://bucket/prefix, vault://host:port/mount/path), all mirrored",
}
var JournalFlag = &cli.StringFlag{
	Name:    "journal",
	EnvVars: []string{"REGISTRY_JOURNAL"},
	Usage:   "optional transaction journal URI (file:///dir, ipfs://host:port)",
}
var FaucetFlag = &cli.BoolFlag{
	Name:  "faucet",
	Usage: "force the airdrop faucet on, whatever the environment",
}

func main() {
	app := &cli.App{
		Name:  "registryd",
		Usage: "Serve the package registry node",
		Flags: append(append([]cli.Flag{ListenAddrFlag, StorageFlag, JournalFlag, FaucetFlag, flags.LogServiceFlagFn("registryd")}, flags.RegistryFlags...), flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			cfg, err := flags.RegistryConfig(cCtx)
			if err != nil {
				logger.Error("Invalid registry configuration", "err", err)
				return err
			}
			if cCtx.Bool(FaucetFlag.Name) {
				cfg.FaucetEnabled = true
			}

			storageFactory := storage.NewStorageBackendFactory(logger)

			var locations []interfaces.StorageBackendLocation
			for _, uri := range cCtx.StringSlice(StorageFlag.Name) {
				location, err := interfaces.NewStorageBackendLocation(uri)
				if err != nil {
					logger.Error("Invalid storage URI", "uri", uri, "err", err)
					return err
				}
				locations = append(locations, location)
			}

			backend, err := storageFactory.CreateMultiBackend(locations)
			if err != nil {
				logger.Error("Failed to create account storage", "err", err)
				return err
			}

			var journal interfaces.Journal
			if uri := cCtx.String(JournalFlag.Name); uri != "" {
				location, err := interfaces.NewStorageBackendLocation(uri)
				if err != nil {
					logger.Error("Invalid journal URI", "uri", uri, "err", err)
					return err
				}
				journal, err = storageFactory.JournalFor(location)
				if err != nil {
					logger.Error("Failed to create journal", "err", err)
					return err
				}
			}

			store, err := registry.NewStore(context.Background(), cfg, backend, journal, logger)
			if err != nil {
				logger.Error("Failed to load registry state", "err", err)
				return err
			}

			logger.Info("Registry loaded",
				"program", cfg.ProgramID,
				"oracle", cfg.OraclePubkey,
				"faucet", cfg.FaucetEnabled,
				"storage", backend.LocationURI(),
				"slot", store.Slot())

			server, err := httpserver.New(flags.ConfigureServer(cCtx, logger, cCtx.String(ListenAddrFlag.Name)), storehandler.NewHandler(store, logger))
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}
			server.RunInBackground()

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
