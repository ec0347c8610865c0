package locking

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrLockHeld = errors.New("lock is held")

// Lock is a non-blocking busy flag: a second acquire while held fails instead of waiting.
type Lock interface {
	TryAcquire(ctx context.Context) error
	Release(ctx context.Context)
	Held(ctx context.Context) bool
}

type localLock struct {
	held atomic.Bool
}

func NewLocalLock() *localLock {
	return &localLock{}
}

func (l *localLock) TryAcquire(ctx context.Context) error {
	if !l.held.CompareAndSwap(false, true) {
		return ErrLockHeld
	}
	return nil
}

func (l *localLock) Release(ctx context.Context) {
	l.held.Store(false)
}

func (l *localLock) Held(ctx context.Context) bool {
	return l.held.Load()
}

// redisLock shares the busy flag between replicas serving the same draft. The ttl bounds
// how long a crashed holder can keep it.
type redisLock struct {
	redis *redis.Client
	key   string
	ttl   time.Duration
}

func NewRedisLock(redisClient *redis.Client, key string, ttl time.Duration) *redisLock {
	return &redisLock{
		redis: redisClient,
		key:   key,
		ttl:   ttl,
	}
}

func (r *redisLock) TryAcquire(ctx context.Context) error {
	acquired, err := r.redis.SetNX(ctx, r.key, "", r.ttl).Result()
	if err != nil {
		return err
	}

	if !acquired {
		return ErrLockHeld
	}

	return nil
}

func (r *redisLock) Release(ctx context.Context) {
	// released even when the caller's context is already gone
	r.redis.Del(context.WithoutCancel(ctx), r.key)
}

func (r *redisLock) Held(ctx context.Context) bool {
	exists, err := r.redis.Exists(ctx, r.key).Result()
	return err == nil && exists > 0
}
