package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"health-premium-service/internal/domain"
)

// RedisLocker is a single-holder lease. The holder's token must be presented
// to release it; an expired lease is simply taken over.
type RedisLocker struct {
	cli      *redis.Client
	attempts int
	backoff  time.Duration // first wait; doubles per attempt
}

func NewLocker(c *Client) *RedisLocker {
	return &RedisLocker{cli: c.cli, attempts: 3, backoff: 50 * time.Millisecond}
}

// TryLock returns domain.ErrLockNotAcquired once every attempt found the key held.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	wait := l.backoff
	for attempt := 1; ; attempt++ {
		ok, err := l.cli.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return "", fmt.Errorf("lock %s: %w", key, err)
		}
		if ok {
			return token, nil
		}
		if attempt >= l.attempts {
			return "", domain.ErrLockNotAcquired
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
		wait *= 2
	}
}

var releaseIfHeld = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Unlock is a no-op when token no longer holds the lease.
func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	if err := releaseIfHeld.Run(ctx, l.cli, []string{key}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("unlock %s: %w", key, err)
	}
	return nil
}
