package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pushstreak/core"
)

func TestStoreSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data.json")

	store, err := New(path)
	require.NoError(t, err)

	want := core.ProgressState{LastPushDate: "2025-01-29", Streak: 3, Level: 2, Experience: 40}
	require.NoError(t, store.Save(context.Background(), want))

	reloaded, err := New(path)
	require.NoError(t, err)
	got, err := reloaded.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStoreWritesRecordFieldNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	store, err := New(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), core.DefaultState()))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Len(t, raw, 4)
	for _, k := range []string{"last_push_date", "streak", "level", "exp"} {
		assert.Contains(t, raw, k)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should be renamed away")
}

func TestStoreMissingFileIsDefault(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	st, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.DefaultState(), st)
}

func TestStoreCorruptFileIsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	store, err := New(path)
	require.NoError(t, err)
	st, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.DefaultState(), st)
}

func TestStorePartialRecordKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"streak": 4}`), 0o644))
	store, err := New(path)
	require.NoError(t, err)
	st, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.ProgressState{Streak: 4, Level: 1}, st)
}

func TestStoreReadFailureIsError(t *testing.T) {
	// a directory where the record should be cannot be read as a file
	path := t.TempDir()
	store, err := New(path)
	require.NoError(t, err)
	_, err = store.Load(context.Background())
	assert.Error(t, err)
}

func TestStoreLockUnlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	store, err := New(path)
	require.NoError(t, err)

	unlock, err := store.Lock(context.Background())
	require.NoError(t, err)
	_, err = os.Stat(path + ".lock")
	require.NoError(t, err)
	require.NoError(t, unlock())

	unlock, err = store.Lock(context.Background())
	require.NoError(t, err)
	require.NoError(t, unlock())
}

func TestNewRejectsEmptyPath(t *testing.T) {
	_, err := New("  ")
	assert.Error(t, err)
}
