package session

import (
	"context"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Credentials is the session context handed to every component that talks to the rental
// service. Token returns "" when no credential is held.
type Credentials interface {
	Token(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

type Store interface {
	Credentials
	Save(ctx context.Context, token string) error
}

type memoryStore struct {
	token string
	sync.RWMutex
}

func NewMemoryStore(token string) *memoryStore {
	return &memoryStore{token: token}
}

func (m *memoryStore) Token(ctx context.Context) (string, error) {
	m.RLock()
	defer m.RUnlock()
	return m.token, nil
}

func (m *memoryStore) Save(ctx context.Context, token string) error {
	m.Lock()
	m.token = token
	m.Unlock()
	return nil
}

func (m *memoryStore) Clear(ctx context.Context) error {
	return m.Save(ctx, "")
}

type redisStore struct {
	redis *redis.Client
	key   string
}

// NewRedisStore keeps the credential in a single redis key, which outlives the process.
func NewRedisStore(redisClient *redis.Client, key string) *redisStore {
	return &redisStore{
		redis: redisClient,
		key:   key,
	}
}

func (r *redisStore) Token(ctx context.Context) (string, error) {
	token, err := r.redis.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	return token, nil
}

func (r *redisStore) Save(ctx context.Context, token string) error {
	return r.redis.Set(ctx, r.key, token, 0).Err()
}

func (r *redisStore) Clear(ctx context.Context) error {
	return r.redis.Del(ctx, r.key).Err()
}
