package pda

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"

	"github.com/ruteri/package-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProgramID = interfaces.MustPublicKeyFromBase58("Hmo7aZ3yDGYiNsme2sFfhHqrbh6x8QuqXmWeVQtqYwGa")

func TestFindProgramAddressDeterministic(t *testing.T) {
	a1, b1, err := FindProgramAddress(AuthorSeeds("", "carol"), testProgramID)
	require.NoError(t, err)
	a2, b2, err := FindProgramAddress(AuthorSeeds("", "carol"), testProgramID)
	require.NoError(t, err)

	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)
	assert.False(t, IsOnCurve(a1))
}

func TestFindProgramAddressMatchesCreate(t *testing.T) {
	seeds := PackageSeeds("", "carol", "pkg")
	address, bump, err := FindProgramAddress(seeds, testProgramID)
	require.NoError(t, err)

	recreated, err := CreateProgramAddress(append(seeds, []byte{bump}), testProgramID)
	require.NoError(t, err)
	assert.Equal(t, address, recreated)

	// Every higher bump must have produced an on-curve point.
	for b := int(bump) + 1; b <= MaxBump; b++ {
		_, err := CreateProgramAddress(append(seeds, []byte{byte(b)}), testProgramID)
		assert.ErrorIs(t, err, interfaces.ErrInvalidSeeds)
	}
}

func TestDerivedAddressesNeverOnCurve(t *testing.T) {
	for i := 0; i < 64; i++ {
		name := strings.Repeat("x", i%32)
		address, _, err := FindProgramAddress(AuthorSeeds("v1", name), testProgramID)
		require.NoError(t, err)
		assert.False(t, IsOnCurve(address), "name %q", name)
	}
}

func TestDistinctNamespaces(t *testing.T) {
	author, _, err := FindProgramAddress(AuthorSeeds("", "carol"), testProgramID)
	require.NoError(t, err)
	pkg, _, err := FindProgramAddress(PackageSeeds("", "authors", "carol"), testProgramID)
	require.NoError(t, err)
	assert.NotEqual(t, author, pkg)

	tagged, _, err := FindProgramAddress(AuthorSeeds("v2", "carol"), testProgramID)
	require.NoError(t, err)
	assert.NotEqual(t, author, tagged)

	other := interfaces.MustPublicKeyFromBase58("H8JbkMcu35zRTShU3Sy3usNnUUJymR3wHZ6XvWFPv9TY")
	elsewhere, _, err := FindProgramAddress(AuthorSeeds("", "carol"), other)
	require.NoError(t, err)
	assert.NotEqual(t, author, elsewhere)
}

func TestSeedBounds(t *testing.T) {
	_, _, err := FindProgramAddress([][]byte{make([]byte, MaxSeedLength+1)}, testProgramID)
	assert.ErrorIs(t, err, interfaces.ErrInvalidSeeds)

	_, _, err = FindProgramAddress([][]byte{make([]byte, MaxSeedLength)}, testProgramID)
	assert.NoError(t, err)

	tooMany := make([][]byte, MaxSeeds)
	_, _, err = FindProgramAddress(tooMany, testProgramID)
	assert.ErrorIs(t, err, interfaces.ErrInvalidSeeds)

	_, err = CreateProgramAddress(make([][]byte, MaxSeeds+1), testProgramID)
	assert.ErrorIs(t, err, interfaces.ErrInvalidSeeds)
}

func TestIsOnCurve(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var key [32]byte
	copy(key[:], pub)
	assert.True(t, IsOnCurve(key))
}

func TestAddressHelpers(t *testing.T) {
	address, bump, err := AuthorAddress("", "carol", testProgramID)
	require.NoError(t, err)
	expected, expectedBump, err := FindProgramAddress(AuthorSeeds("", "carol"), testProgramID)
	require.NoError(t, err)
	assert.Equal(t, expected, address)
	assert.Equal(t, expectedBump, bump)

	_, _, err = AuthorAddress("", strings.Repeat("a", 33), testProgramID)
	assert.ErrorIs(t, err, interfaces.ErrInvalidString)

	_, _, err = PackageAddress("", strings.Repeat("s", 20), strings.Repeat("n", 20), testProgramID)
	assert.ErrorIs(t, err, interfaces.ErrInvalidSeeds, "combined package seed exceeds one seed")
}
