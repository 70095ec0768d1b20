package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// WinnerLockKey builds the redis key guarding winner recomputation for a period.
func WinnerLockKey(period string) string {
	return fmt.Sprintf("winners:%s:lock", period)
}

// ErrLockHeld indicates the critical section is owned by another worker.
var ErrLockHeld = errors.New("lock already held")

// PeriodLock serializes period-scoped critical sections via redis SET NX.
type PeriodLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPeriodLock constructs a PeriodLock.
func NewPeriodLock(client *redis.Client, ttl time.Duration) *PeriodLock {
	return &PeriodLock{client: client, ttl: ttl}
}

// Acquire takes the lock for key, failing fast when it is held elsewhere.
func (l *PeriodLock) Acquire(ctx context.Context, key string) error {
	if l == nil || l.client == nil {
		return nil
	}
	ok, err := l.client.SetNX(ctx, key, "1", l.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockHeld
	}
	return nil
}

// Release frees the lock. Releasing an absent lock is a no-op.
func (l *PeriodLock) Release(ctx context.Context, key string) {
	if l == nil || l.client == nil {
		return
	}
	_ = l.client.Del(ctx, key).Err()
}
