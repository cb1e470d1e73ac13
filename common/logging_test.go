package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupLogger(t *testing.T) {
	log := SetupLogger(&LoggingOpts{Debug: true, JSON: true, Service: "registryd", Version: Version})
	require.NotNil(t, log)

	log = SetupLogger(&LoggingOpts{})
	require.NotNil(t, log)
}
