package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shipdesk", "session.json")
	store := NewFileStore(path)

	token, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.Save(ctx, "T1"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	token, err = NewFileStore(path).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "T1", token)

	require.NoError(t, store.Clear(ctx))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	require.NoError(t, store.Clear(ctx))
}

func TestFileStore_KeepsOtherKeys(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"theme":"dark"}`), 0o600))
	store := NewFileStore(path)

	require.NoError(t, store.Save(ctx, "T1"))
	require.NoError(t, store.Clear(ctx))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"dark"}`, string(data))
}

func TestFileStore_CorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))
	store := NewFileStore(path)

	_, err := store.Load(ctx)
	assert.Error(t, err)

	require.NoError(t, store.Clear(ctx))
	token, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisStore_ReportsUnreachableRedis(t *testing.T) {
	ctx := context.Background()
	store := NewRedisStore(unreachableRedis(t), 0)

	assert.Error(t, store.Save(ctx, "T1"))
	_, err := store.Load(ctx)
	assert.Error(t, err)
	assert.Error(t, store.Clear(ctx))
}
