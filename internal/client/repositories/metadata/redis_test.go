package metadata

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*RedisRepository, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisRepository(client, "test"), mr
}

func TestRedis_SetGetDelete(t *testing.T) {
	r, mr := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, KeyAuthToken, []byte("tok")))
	assert.Equal(t, "tok", mr.HGet("test:metadata", KeyAuthToken))

	v, err := r.Get(ctx, KeyAuthToken)
	require.NoError(t, err)
	assert.Equal(t, []byte("tok"), v)

	require.NoError(t, r.Delete(ctx, KeyAuthToken))
	v, err = r.Get(ctx, KeyAuthToken)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestRedis_ListAndClear(t *testing.T) {
	r, _ := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "a", []byte{0xAA}))
	require.NoError(t, r.Set(ctx, "b", []byte("bee")))

	m, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, m, 2)
	assert.Equal(t, []byte{0xAA}, m["a"])

	require.NoError(t, r.Clear(ctx))
	m, err = r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestRedis_DefaultNamespace(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	r := NewRedisRepository(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	require.NoError(t, r.Set(context.Background(), "k", []byte("v")))
	assert.Equal(t, "v", mr.HGet("civicsync:metadata", "k"))
}

func TestRedis_ErrorsWrapped(t *testing.T) {
	r, mr := setupRedis(t)
	ctx := context.Background()
	mr.Close()

	_, err := r.Get(ctx, "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get metadata[k]")

	err = r.Set(ctx, "k", []byte("v"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to set metadata[k]")

	_, err = r.List(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list metadata")
}
