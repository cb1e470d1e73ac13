package flags

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/package-registry/common"
	"github.com/ruteri/package-registry/httpserver"
	"github.com/ruteri/package-registry/interfaces"
	"github.com/ruteri/package-registry/registry"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *httpserver.HTTPServerConfig {
	metricsAddr := cCtx.String(MetricsAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &httpserver.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

// RegistryConfig resolves the environment and applies the optional
// overrides of the registry flags.
func RegistryConfig(cCtx *cli.Context) (registry.Config, error) {
	env, err := registry.ParseEnvironment(cCtx.String(EnvFlag.Name))
	if err != nil {
		return registry.Config{}, err
	}
	cfg, err := registry.ConfigFor(env)
	if err != nil {
		return registry.Config{}, err
	}

	if raw := cCtx.String(OraclePubkeyFlag.Name); raw != "" {
		cfg.OraclePubkey, err = interfaces.NewPublicKeyFromBase58(raw)
		if err != nil {
			return registry.Config{}, fmt.Errorf("invalid --%s: %w", OraclePubkeyFlag.Name, err)
		}
	}
	cfg.VersionTag = cCtx.String(VersionTagFlag.Name)

	if err := cfg.Validate(); err != nil {
		return registry.Config{}, err
	}
	return cfg, nil
}

var EnvFlag = &cli.StringFlag{
	Name:    "env",
	EnvVars: []string{"REGISTRY_ENV"},
	Value:   string(registry.EnvLocal),
	Usage:   "registry environment: 'local' or 'production'; production has no built-in endpoints and requires --node-url and --oracle-url (or REGISTRY_NODE_URL and REGISTRY_ORACLE_URL)",
}
var OraclePubkeyFlag = &cli.StringFlag{
	Name:  "oracle-pubkey",
	Usage: "override the trusted oracle public key (base58)",
}
var VersionTagFlag = &cli.StringFlag{
	Name:  "version-tag",
	Usage: "seed prefix separating registry versions",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-service",
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}

var RegistryFlags = []cli.Flag{
	EnvFlag,
	OraclePubkeyFlag,
	VersionTagFlag,
}
