package datastore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, path string) *DataStore {
	t.Helper()
	ds, err := NewWithConfig(&Config{
		FilePath:         path,
		AutoSaveInterval: time.Hour, // saves are explicit in tests
		BackupCount:      0,
	})
	require.NoError(t, err)
	return ds
}

func TestPutGetDelete(t *testing.T) {
	ds := newTestStore(t, filepath.Join(t.TempDir(), "data.json"))
	defer ds.Close()

	_, ok := ds.Get("missing")
	require.False(t, ok)

	ds.Put("greeting", "hello")
	v, ok := ds.Get("greeting")
	require.True(t, ok)
	require.Equal(t, "hello", v)

	ds.Delete("greeting")
	_, ok = ds.Get("greeting")
	require.False(t, ok)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")

	ds := newTestStore(t, path)
	ds.Put("settings", map[string]any{"volume": 11})
	require.NoError(t, ds.Close())

	reopened := newTestStore(t, path)
	defer reopened.Close()

	v, ok := reopened.Get("settings")
	require.True(t, ok)
	settings, ok := v.(map[string]any)
	require.True(t, ok)
	// JSON round-trip turns numbers into float64.
	require.Equal(t, float64(11), settings["volume"])
}

func TestSaveSkipsUnchangedData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	ds := newTestStore(t, path)
	defer ds.Close()

	ds.Put("k", "v")
	require.NoError(t, ds.SaveToFile())
	first := ds.lastChecksum

	require.NoError(t, ds.SaveToFile())
	require.Equal(t, first, ds.lastChecksum)

	ds.Put("k", "v2")
	require.NoError(t, ds.SaveToFile())
	require.NotEqual(t, first, ds.lastChecksum)
}

func TestKeysSorted(t *testing.T) {
	ds := newTestStore(t, filepath.Join(t.TempDir(), "data.json"))
	defer ds.Close()

	ds.Put("b", 1)
	ds.Put("a", 2)
	ds.Put("c", 3)
	require.Equal(t, []string{"a", "b", "c"}, ds.Keys())
}
