package redis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/arunvm123/villabooking/lock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotAcquired is lock.ErrNotAcquired, so callers need not know which
// locker is configured.
var ErrLockNotAcquired = lock.ErrNotAcquired

// releaseScript deletes the key only when it still holds our token, so a
// holder whose TTL expired cannot drop somebody else's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a lock.Locker shared by every replica talking to the same Redis.
type Locker struct {
	client     *redis.Client
	ttl        time.Duration
	retryDelay time.Duration
	maxDelay   time.Duration
}

func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	return &Locker{
		client:     client,
		ttl:        ttl,
		retryDelay: 10 * time.Millisecond,
		maxDelay:   250 * time.Millisecond,
	}
}

func (l *Locker) lockKey(key string) string {
	return fmt.Sprintf("lock:%s", key)
}

func (l *Locker) acquireError(ctx context.Context, key string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", ErrLockNotAcquired, key, ctx.Err())
	}
	return fmt.Errorf("lock %s: %w", key, ctx.Err())
}

// Lock retries with backoff until the key is acquired or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.lockKey(key)
	token := uuid.NewString()
	delay := l.retryDelay

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, l.acquireError(ctx, key)
			}
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, l.acquireError(ctx, key)
		case <-time.After(delay):
		}

		delay *= 2
		if delay > l.maxDelay {
			delay = l.maxDelay
		}
	}

	return func() {
		// Release must survive a cancelled request context.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
			log.Printf("Failed to release lock %s: %v", key, err)
		}
	}, nil
}
