package flags

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func resolveEndpoints(t *testing.T, args ...string) (string, string, error) {
	var nodeURL, oracleURL string
	var resolveErr error
	app := &cli.App{
		Name:  "endpoints",
		Flags: []cli.Flag{EnvFlag, NodeURLFlag, OracleURLFlag},
		Action: func(cCtx *cli.Context) error {
			nodeURL, resolveErr = NodeURL(cCtx)
			if resolveErr != nil {
				return nil
			}
			oracleURL, resolveErr = OracleURL(cCtx)
			return nil
		},
	}
	require.NoError(t, app.Run(append([]string{"endpoints"}, args...)))
	return nodeURL, oracleURL, resolveErr
}

func TestEndpoints(t *testing.T) {
	t.Setenv("REGISTRY_ENV", "")
	t.Setenv("REGISTRY_NODE_URL", "")
	t.Setenv("REGISTRY_ORACLE_URL", "")

	nodeURL, oracleURL, err := resolveEndpoints(t)
	require.NoError(t, err)
	assert.Equal(t, LocalNodeURL, nodeURL)
	assert.Equal(t, LocalOracleURL, oracleURL)

	_, _, err = resolveEndpoints(t, "--env", "production")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--node-url")

	_, _, err = resolveEndpoints(t, "--env", "production", "--node-url", "https://node.example")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--oracle-url")

	nodeURL, oracleURL, err = resolveEndpoints(t, "--env", "production",
		"--node-url", "https://node.example", "--oracle-url", "https://oracle.example/api/v1/attest")
	require.NoError(t, err)
	assert.Equal(t, "https://node.example", nodeURL)
	assert.Equal(t, "https://oracle.example/api/v1/attest", oracleURL)
}

func TestEnvFlagDocumentsProductionEndpoints(t *testing.T) {
	for _, name := range []string{"--node-url", "--oracle-url", "REGISTRY_NODE_URL", "REGISTRY_ORACLE_URL"} {
		assert.Contains(t, EnvFlag.Usage, name)
	}
}
