package cred

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveGetRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save("cfg1", "s3cret-password"))

	got, err := store.Get("cfg1")
	require.NoError(t, err)
	assert.Equal(t, "s3cret-password", got)
}

func TestGetMissing(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveOverwrites(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save("cfg1", "old"))
	require.NoError(t, store.Save("cfg1", "new"))

	got, err := store.Get("cfg1")
	require.NoError(t, err)
	assert.Equal(t, "new", got)
}

func TestDelete(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save("cfg1", "secret"))
	require.NoError(t, store.Delete("cfg1"))

	_, err = store.Get("cfg1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is fine.
	require.NoError(t, store.Delete("cfg1"))
}

func TestSecretsAreSealedOnDisk(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save("cfg1", "plaintext-password"))

	blob, err := os.ReadFile(filepath.Join(dir, "cfg1.cred"))
	require.NoError(t, err)
	assert.NotContains(t, string(blob), "plaintext-password")
}

func TestCiphertextBoundToConfigID(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save("cfg1", "secret"))

	// Copying one config's credential file over another's must not
	// decrypt, since the config ID is authenticated data.
	blob, err := os.ReadFile(filepath.Join(dir, "cfg1.cred"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cfg2.cred"), blob, 0600))

	_, err = store.Get("cfg2")
	assert.Error(t, err)
}
