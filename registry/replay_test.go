package registry

import (
	"testing"

	"github.com/ruteri/package-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplayLogEvictsOldest(t *testing.T) {
	cfg := testConfig(newKeypair(t))
	cfg.ReplayWindow = 3
	l, err := newReplayLog(cfg, nil)
	require.NoError(t, err)

	sigs := []interfaces.Signature{{1}, {2}, {3}, {4}}
	accounts := make(map[interfaces.Address]interfaces.Account)
	for _, sig := range sigs {
		w := l.write(sig)
		accounts[w.Address] = *w.Account
		l.push(sig)
	}

	assert.False(t, l.contains(sigs[0]))
	for _, sig := range sigs[1:] {
		assert.True(t, l.contains(sig))
	}

	reloaded, err := newReplayLog(cfg, accounts)
	require.NoError(t, err)
	assert.Equal(t, l.order, reloaded.order)
	assert.False(t, reloaded.contains(sigs[0]))
}
