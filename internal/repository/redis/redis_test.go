package redis

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/Rrens/invitation-agent/internal/config"
	"github.com/Rrens/invitation-agent/internal/messaging"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)

	port, err := strconv.Atoi(s.Port())
	require.NoError(t, err)

	client, err := NewClient(config.RedisConfig{Host: s.Host(), Port: port})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, s
}

func TestNewClient_Unreachable(t *testing.T) {
	_, err := NewClient(config.RedisConfig{Host: "127.0.0.1", Port: 1})
	assert.Error(t, err)
}

func TestRateLimiter(t *testing.T) {
	client, _ := newTestClient(t)
	limiter := NewRateLimiter(client, 2, 1)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, remaining, reset, err := limiter.Allow(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 2-i, remaining)
		assert.True(t, reset.After(time.Now()))
	}

	allowed, remaining, _, err := limiter.Allow(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Zero(t, remaining)

	allowed, _, _, err = limiter.Allow(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, allowed, "limits are per key")

	require.NoError(t, limiter.Reset(ctx, "alice"))
	allowed, _, _, err = limiter.Allow(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestContactCache(t *testing.T) {
	client, s := newTestClient(t)
	cache := NewContactCache(client)
	ctx := context.Background()

	got, err := cache.Get(ctx, "ana")
	require.NoError(t, err)
	assert.Nil(t, got, "miss returns nil")

	contacts := []messaging.Contact{{ID: "1", Name: "Ana", Phone: "628111"}}
	require.NoError(t, cache.Set(ctx, "ana", contacts))
	require.NoError(t, cache.Set(ctx, "nobody", nil))

	got, err = cache.Get(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, contacts, got)

	got, err = cache.Get(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, got, "an empty result is still a hit")

	assert.Equal(t, contactCacheTTL, s.TTL(contactCachePrefix+"ana"))

	require.NoError(t, s.Set("unrelated", "x"))
	deleted, err := cache.FlushAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)
	assert.True(t, s.Exists("unrelated"))

	s.FastForward(contactCacheTTL)
	got, err = cache.Get(ctx, "ana")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionLocker(t *testing.T) {
	client, s := newTestClient(t)
	locker := NewSessionLocker(client, time.Minute)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, s.Exists(lockPrefix+"s1"))

	waitCtx, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(waitCtx, "s1")
	assert.ErrorIs(t, err, ErrLockTimeout)

	other, err := locker.Lock(ctx, "s2")
	require.NoError(t, err, "different sessions do not contend")
	other()

	unlock()
	assert.False(t, s.Exists(lockPrefix+"s1"))

	unlock, err = locker.Lock(ctx, "s1")
	require.NoError(t, err)
	unlock()
}

func TestSessionLocker_ReleaseKeepsForeignLock(t *testing.T) {
	client, s := newTestClient(t)
	locker := NewSessionLocker(client, time.Minute)

	unlock, err := locker.Lock(context.Background(), "s1")
	require.NoError(t, err)

	// Simulate expiry and takeover by another holder.
	require.NoError(t, s.Set(lockPrefix+"s1", "someone-else"))
	unlock()

	value, err := s.Get(lockPrefix + "s1")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", value)
}

func TestSessionLocker_Serializes(t *testing.T) {
	client, _ := newTestClient(t)
	locker := NewSessionLocker(client, time.Minute)

	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "shared")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
}
