package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultMaxAttempts = 5
	DefaultLockWindow  = 15 * time.Minute
)

// Limiter counts failed logins per email in Redis. After max failures inside
// window the email is locked for window.
type Limiter struct {
	rdb    *redis.Client
	max    int64
	window time.Duration
}

func NewLimiter(rdb *redis.Client, max int, window time.Duration) *Limiter {
	if max <= 0 {
		max = DefaultMaxAttempts
	}
	if window <= 0 {
		window = DefaultLockWindow
	}
	return &Limiter{rdb: rdb, max: int64(max), window: window}
}

func failKey(email string) string { return fmt.Sprintf("login:fail:%s", email) }
func lockKey(email string) string { return fmt.Sprintf("login:lock:%s", email) }

// Locked reports whether the email is currently locked.
func (l *Limiter) Locked(ctx context.Context, email string) (bool, error) {
	if l == nil || l.rdb == nil {
		return false, nil
	}
	n, err := l.rdb.Exists(ctx, lockKey(email)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Fail records one failure and returns true when it triggered the lock.
func (l *Limiter) Fail(ctx context.Context, email string) (bool, error) {
	if l == nil || l.rdb == nil {
		return false, nil
	}
	key := failKey(email)
	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			return false, err
		}
	}
	if count < l.max {
		return false, nil
	}

	pipe := l.rdb.TxPipeline()
	pipe.Set(ctx, lockKey(email), "1", l.window)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Reset clears the failure counter after a successful login.
func (l *Limiter) Reset(ctx context.Context, email string) error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Del(ctx, failKey(email)).Err()
}
