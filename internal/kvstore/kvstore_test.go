package kvstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestMemory_RoundTrip(t *testing.T) {
	kv := NewMemory()

	_, ok, err := kv.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set("k", "v"))
	got, ok, err := kv.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", got)
	assert.Equal(t, 1, kv.Len())
}

func TestFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	kv, err := Open(path)
	require.NoError(t, err)

	_, ok, err := kv.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set("flourish/settings", `{"theme":"dark"}`))
	got, ok, err := kv.Get("flourish/settings")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"theme":"dark"}`, got)

	// Reopening reads the same document.
	reopened, err := Open(path)
	require.NoError(t, err)
	got, ok, err = reopened.Get("flourish/settings")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"theme":"dark"}`, got)
}

func TestFile_DottedKeysAreLiteral(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	kv, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, kv.Set("a.b", "one"))
	require.NoError(t, kv.Set("a", "two"))

	got, ok, err := kv.Get("a.b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "one", got)

	got, ok, err = kv.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "two", got)

	// The dotted key is one top-level member, not a nested object.
	doc, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, gjson.GetBytes(doc, `a\.b`).Exists())
}

func TestFile_OverwriteAndMultipleKeys(t *testing.T) {
	kv, err := Open(filepath.Join(t.TempDir(), "kv.json"))
	require.NoError(t, err)

	require.NoError(t, kv.Set("k", "first"))
	require.NoError(t, kv.Set("k", "second"))
	require.NoError(t, kv.Set("other", "kept"))

	got, _, err := kv.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "second", got)

	got, _, err = kv.Get("other")
	require.NoError(t, err)
	assert.Equal(t, "kept", got)
}

func TestFile_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	kv, err := Open(filepath.Join(dir, "kv.json"))
	require.NoError(t, err)
	require.NoError(t, kv.Set("k", "v"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "kv.json", entries[0].Name())
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}
