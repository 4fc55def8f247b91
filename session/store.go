package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport-level Redis failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

// RedisStore persists one named client session in Redis so that several processes (or
// restarts of one process) share the same token pair.
//
//	Performance: Load is 1 GET, Save is 1 SET, Clear is 1 DEL.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	name   string
	ttl    time.Duration
}

// NewRedisStore creates a [RedisStore] storing the session under prefix:name.
// ttl bounds how long an untouched session survives; 0 disables expiry.
func NewRedisStore(client redis.UniversalClient, prefix, name string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		name:   name,
		ttl:    ttl,
	}
}

func (s *RedisStore) key() string {
	return s.prefix + ":" + s.name
}

// Load returns the stored record.
func (s *RedisStore) Load(ctx context.Context) (*Record, error) {
	data, err := s.redis.Get(ctx, s.key()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return Decode(data)
}

// Save overwrites the stored record and resets its TTL.
func (s *RedisStore) Save(ctx context.Context, rec *Record) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Clear deletes the stored record. Clearing an empty store is not an error.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.key()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// TTL returns the remaining lifetime of the stored record.
func (s *RedisStore) TTL(ctx context.Context) (time.Duration, error) {
	ttl, err := s.redis.PTTL(ctx, s.key()).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ttl, nil
}
