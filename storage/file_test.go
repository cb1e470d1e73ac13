package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ruteri/package-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackendPersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b, err := NewFileBackend(dir, testLogger())
	require.NoError(t, err)
	assert.True(t, b.Available(ctx))

	empty, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	wallet := interfaces.PublicKey{1}
	record := interfaces.PublicKey{2}
	require.NoError(t, b.Commit(ctx, []interfaces.AccountWrite{
		{Address: wallet, Account: &interfaces.Account{Lamports: 100}},
		{Address: record, Account: &interfaces.Account{Lamports: 7, Owner: interfaces.PublicKey{9}, Data: []byte("data")}},
	}))
	require.NoError(t, b.Commit(ctx, []interfaces.AccountWrite{{Address: wallet}}))

	reopened, err := NewFileBackend(dir, testLogger())
	require.NoError(t, err)
	accounts, err := reopened.Load(ctx)
	require.NoError(t, err)

	require.Len(t, accounts, 1)
	assert.Equal(t, interfaces.Account{Lamports: 7, Owner: interfaces.PublicKey{9}, Data: []byte("data")}, accounts[record])
	assert.FileExists(t, filepath.Join(dir, accountsFileName))
}

func TestFileJournal(t *testing.T) {
	ctx := context.Background()
	j, err := NewFileJournal(t.TempDir(), testLogger())
	require.NoError(t, err)

	id, err := j.Append(ctx, []byte(`{"slot":1}`))
	require.NoError(t, err)
	assert.Equal(t, interfaces.ComputeID([]byte(`{"slot":1}`)), id)

	data, err := j.Fetch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, `{"slot":1}`, string(data))

	_, err = j.Fetch(ctx, interfaces.ContentID{})
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)
}

func TestFactory(t *testing.T) {
	factory := NewStorageBackendFactory(testLogger())
	dir := t.TempDir()

	memLoc, err := interfaces.NewStorageBackendLocation("memory://")
	require.NoError(t, err)
	backend, err := factory.AccountBackendFor(memLoc)
	require.NoError(t, err)
	assert.IsType(t, &MemoryBackend{}, backend)

	fileLoc, err := interfaces.NewStorageBackendLocation("file://" + dir)
	require.NoError(t, err)
	backend, err = factory.AccountBackendFor(fileLoc)
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, backend)

	multi, err := factory.CreateMultiBackend([]interfaces.StorageBackendLocation{memLoc, fileLoc})
	require.NoError(t, err)
	assert.IsType(t, &MultiAccountBackend{}, multi)

	ipfsOnly, err := interfaces.NewStorageBackendLocation("ipfs://localhost:5001/")
	require.NoError(t, err)
	_, err = factory.CreateMultiBackend([]interfaces.StorageBackendLocation{memLoc, ipfsOnly})
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)

	journal, err := factory.JournalFor(fileLoc)
	require.NoError(t, err)
	assert.IsType(t, &FileJournal{}, journal)

	ipfsLoc, err := interfaces.NewStorageBackendLocation("ipfs://localhost:5001/?timeout=5s")
	require.NoError(t, err)
	journal, err = factory.JournalFor(ipfsLoc)
	require.NoError(t, err)
	assert.IsType(t, &IPFSJournal{}, journal)

	_, err = factory.JournalFor(memLoc)
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)

	vaultLoc, err := interfaces.NewStorageBackendLocation("vault://localhost:8200/secret")
	require.NoError(t, err)
	_, err = factory.AccountBackendFor(vaultLoc)
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
}
