package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/require"
)

func isolateStore(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestStoreFetchRoundTrip(t *testing.T) {
	isolateStore(t)
	seed := keypair.MustRandom().Seed()

	require.NoError(t, StoreSeed("local", seed))
	got, err := FetchSeed("local")
	require.NoError(t, err)
	require.Equal(t, seed, got)

	// names are case-insensitive
	got, err = FetchSeed("  LOCAL ")
	require.NoError(t, err)
	require.Equal(t, seed, got)
}

func TestFetchMissingSeed(t *testing.T) {
	isolateStore(t)

	_, err := FetchSeed("nope")
	require.Error(t, err)
}

func TestDeleteSeed(t *testing.T) {
	isolateStore(t)

	require.NoError(t, StoreSeed("local", keypair.MustRandom().Seed()))
	require.NoError(t, DeleteSeed("local"))
	_, err := FetchSeed("local")
	require.Error(t, err)
}

func TestSeedFileIsNotPlaintext(t *testing.T) {
	isolateStore(t)
	seed := keypair.MustRandom().Seed()
	require.NoError(t, StoreSeed("local", seed))

	path, err := filePath()
	require.NoError(t, err)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(raw), seed)

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o700), info.Mode().Perm())
}
