package flags

import (
	"fmt"

	"github.com/ruteri/package-registry/registry"
	"github.com/urfave/cli/v2"
)

const (
	LocalNodeURL   = "http://127.0.0.1:8899"
	LocalOracleURL = "http://127.0.0.1:8080/api/v1/attest"
)

var NodeURLFlag = &cli.StringFlag{
	Name:    "node-url",
	EnvVars: []string{"REGISTRY_NODE_URL"},
	Usage:   "registry node base URL (defaults to the local node in the local environment)",
}
var OracleURLFlag = &cli.StringFlag{
	Name:    "oracle-url",
	EnvVars: []string{"REGISTRY_ORACLE_URL"},
	Usage:   "oracle attest endpoint (defaults to the local oracle in the local environment)",
}

// NodeURL returns the configured registry node URL, falling back to the
// local node when the environment is local.
func NodeURL(cCtx *cli.Context) (string, error) {
	return endpoint(cCtx, NodeURLFlag, LocalNodeURL)
}

// OracleURL returns the configured oracle URL, falling back to the local
// oracle when the environment is local.
func OracleURL(cCtx *cli.Context) (string, error) {
	return endpoint(cCtx, OracleURLFlag, LocalOracleURL)
}

func endpoint(cCtx *cli.Context, flag *cli.StringFlag, local string) (string, error) {
	if url := cCtx.String(flag.Name); url != "" {
		return url, nil
	}
	env, err := registry.ParseEnvironment(cCtx.String(EnvFlag.Name))
	if err != nil {
		return "", err
	}
	if env != registry.EnvLocal {
		return "", fmt.Errorf("--%s is required in the %s environment", flag.Name, env)
	}
	return local, nil
}
