package main

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Blacklist marks refresh tokens unusable before their natural expiry. An
// entry must stay visible for at least the token's remaining lifetime; after
// that it may be dropped, since the signature check rejects the token anyway.
type Blacklist interface {
	Add(ctx context.Context, token string, ttl time.Duration) error
	Contains(ctx context.Context, token string) (bool, error)
}

// MemoryBlacklist is the single-instance default: a mutex-guarded map from
// token string to expiry time. Entries do not survive a restart and are not
// shared across instances; deployments with more than one replica must use
// the Redis backend instead.
type MemoryBlacklist struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	done    chan struct{}
	once    sync.Once
}

func NewMemoryBlacklist() *MemoryBlacklist {
	b := &MemoryBlacklist{
		entries: make(map[string]time.Time),
		done:    make(chan struct{}),
	}
	go b.janitor(time.Minute)
	return b
}

func (b *MemoryBlacklist) Add(_ context.Context, token string, ttl time.Duration) error {
	b.mu.Lock()
	b.entries[token] = time.Now().Add(ttl)
	b.mu.Unlock()
	return nil
}

func (b *MemoryBlacklist) Contains(_ context.Context, token string) (bool, error) {
	b.mu.RLock()
	exp, ok := b.entries[token]
	b.mu.RUnlock()
	if !ok {
		return false, nil
	}
	// Expired entries are treated as absent even if the janitor has not
	// swept them yet.
	if time.Now().After(exp) {
		b.mu.Lock()
		delete(b.entries, token)
		b.mu.Unlock()
		return false, nil
	}
	return true, nil
}

func (b *MemoryBlacklist) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-b.done:
			return
		case now := <-ticker.C:
			b.mu.Lock()
			for token, exp := range b.entries {
				if now.After(exp) {
					delete(b.entries, token)
				}
			}
			b.mu.Unlock()
		}
	}
}

// Stop terminates the janitor goroutine. Safe to call more than once.
func (b *MemoryBlacklist) Stop() {
	b.once.Do(func() { close(b.done) })
}

const blacklistKeyPrefix = "blacklist:refresh:"

// RedisBlacklist shares revocation state across server instances. Redis
// expires the keys itself, so there is no janitor.
type RedisBlacklist struct {
	client *redis.Client
}

func NewRedisBlacklist(client *redis.Client) *RedisBlacklist {
	return &RedisBlacklist{client: client}
}

func (b *RedisBlacklist) Add(ctx context.Context, token string, ttl time.Duration) error {
	return b.client.Set(ctx, blacklistKeyPrefix+token, "1", ttl).Err()
}

func (b *RedisBlacklist) Contains(ctx context.Context, token string) (bool, error) {
	n, err := b.client.Exists(ctx, blacklistKeyPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
