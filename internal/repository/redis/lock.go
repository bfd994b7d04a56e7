package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockPrefix     = "lock:session:"
	lockRetryDelay = 50 * time.Millisecond
)

// ErrLockTimeout is returned when the lock is still held once ctx is done.
var ErrLockTimeout = errors.New("timed out waiting for session lock")

// releaseScript deletes the lock only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// SessionLocker serializes turns on one session across server instances.
type SessionLocker struct {
	client *Client
	ttl    time.Duration
}

// NewSessionLocker creates a locker. ttl bounds how long a crashed holder can
// block a session.
func NewSessionLocker(client *Client, ttl time.Duration) *SessionLocker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &SessionLocker{client: client, ttl: ttl}
}

// Lock blocks until the lock for key is acquired or ctx is done. The returned
// func releases it.
func (l *SessionLocker) Lock(ctx context.Context, key string) (func(), error) {
	fullKey := lockPrefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.rdb.SetNX(ctx, fullKey, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
			}
			return nil, fmt.Errorf("failed to acquire session lock: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
		case <-time.After(lockRetryDelay):
		}
	}

	return func() {
		// Release with a fresh context so a cancelled request still unlocks.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		releaseScript.Run(releaseCtx, l.client.rdb, []string{fullKey}, token)
	}, nil
}
