package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

func TestMemoryBlacklistAddContains(t *testing.T) {
	b := NewMemoryBlacklist()
	defer b.Stop()
	ctx := context.Background()

	ok, err := b.Contains(ctx, "token-a")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, b.Add(ctx, "token-a", time.Hour))

	ok, err = b.Contains(ctx, "token-a")
	require.NoError(t, err)
	require.True(t, ok)

	// unrelated token stays clean
	ok, err = b.Contains(ctx, "token-b")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryBlacklistExpiry(t *testing.T) {
	b := NewMemoryBlacklist()
	defer b.Stop()
	ctx := context.Background()

	require.NoError(t, b.Add(ctx, "token-a", 10*time.Millisecond))

	ok, err := b.Contains(ctx, "token-a")
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	ok, err = b.Contains(ctx, "token-a")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryBlacklistConcurrent(t *testing.T) {
	b := NewMemoryBlacklist()
	defer b.Stop()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = b.Add(ctx, "shared-token", time.Hour)
		}()
		go func() {
			defer wg.Done()
			_, _ = b.Contains(ctx, "shared-token")
		}()
	}
	wg.Wait()

	ok, err := b.Contains(ctx, "shared-token")
	require.NoError(t, err)
	require.True(t, ok)
}

func newTestRedisBlacklist(t *testing.T) (*RedisBlacklist, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisBlacklist(client), mr
}

func TestRedisBlacklistAddContains(t *testing.T) {
	b, _ := newTestRedisBlacklist(t)
	ctx := context.Background()

	ok, err := b.Contains(ctx, "token-a")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, b.Add(ctx, "token-a", time.Hour))

	ok, err = b.Contains(ctx, "token-a")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedisBlacklistExpiry(t *testing.T) {
	b, mr := newTestRedisBlacklist(t)
	ctx := context.Background()

	require.NoError(t, b.Add(ctx, "token-a", time.Minute))
	mr.FastForward(2 * time.Minute)

	ok, err := b.Contains(ctx, "token-a")
	require.NoError(t, err)
	require.False(t, ok)
}
