package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pushstreak/core"
)

// newTestClient spins up a miniredis server and returns a client plus the server.
func newTestClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestStore_LoadMissingIsDefault(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewWithClient(client, "test:progress")

	st, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.DefaultState(), st)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	client, mr := newTestClient(t)
	store := NewWithClient(client, "test:progress")
	ctx := context.Background()

	want := core.ProgressState{LastPushDate: "2025-01-30", Streak: 4, Level: 2, Experience: 0}
	require.NoError(t, store.Save(ctx, want))

	raw, err := mr.Get("test:progress")
	require.NoError(t, err)
	assert.JSONEq(t, `{"last_push_date":"2025-01-30","streak":4,"level":2,"exp":0}`, raw)

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStore_CorruptValueIsDefault(t *testing.T) {
	client, mr := newTestClient(t)
	require.NoError(t, mr.Set("test:progress", "garbage"))
	store := NewWithClient(client, "test:progress")

	st, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.DefaultState(), st)
}

func TestStore_LoadConnectionErrorPropagates(t *testing.T) {
	client, mr := newTestClient(t)
	store := NewWithClient(client, "test:progress")
	mr.Close()

	_, err := store.Load(context.Background())
	assert.Error(t, err)
}

func TestStore_LockExcludesSecondHolder(t *testing.T) {
	client, mr := newTestClient(t)
	store := NewWithClient(client, "test:progress")

	unlock, err := store.Lock(context.Background())
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:progress:lock"))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = store.Lock(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock())
	assert.False(t, mr.Exists("test:progress:lock"))

	unlock, err = store.Lock(context.Background())
	require.NoError(t, err)
	require.NoError(t, unlock())
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	cfg := DefaultConfig()
	cfg.Key = ""
	assert.Error(t, cfg.Validate())
}
