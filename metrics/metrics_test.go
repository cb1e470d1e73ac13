package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectors(t *testing.T) {
	RecordStoreTransaction("create_author", "ok")
	RecordAttestation("unauthorized")
	SetLiveRecords("author", 3)

	families, err := Gatherer().Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["package_registry_store_transactions_total"])
	assert.True(t, names["package_registry_oracle_attestations_total"])
	assert.True(t, names["package_registry_store_live_records"])
}

func TestNewIsRepeatable(t *testing.T) {
	_, err := New("test", "127.0.0.1:0")
	require.NoError(t, err)
	_, err = New("test", "127.0.0.1:0")
	require.NoError(t, err)
}
