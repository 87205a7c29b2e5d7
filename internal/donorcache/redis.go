package donorcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps entries in Redis so that every worker process shares one
// cache. Eviction beyond the TTL is left to the server's maxmemory policy.
type RedisStore struct {
	rdb      redis.Cmdable
	prefix   string
	ttl      time.Duration
	maxBytes int64
}

// NewRedisStore wraps rdb. Keys are namespaced with prefix; values larger
// than maxBytes are not stored.
func NewRedisStore(rdb redis.Cmdable, prefix string, ttl time.Duration, maxBytes int64) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl, maxBytes: maxBytes}
}

// Get reads and decodes key. A missing key is a miss, not an error.
func (s *RedisStore) Get(ctx context.Context, key string) (Groups, bool, error) {
	raw, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var g Groups
	if err := json.Unmarshal(raw, &g); err != nil {
		// A corrupt value is dropped and treated as a miss.
		_ = s.rdb.Del(ctx, s.prefix+key).Err()
		return nil, false, nil
	}
	return g, true, nil
}

// Set encodes g and stores it with the configured TTL.
func (s *RedisStore) Set(ctx context.Context, key string, g Groups) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode donor groups: %w", err)
	}
	if s.maxBytes > 0 && int64(len(raw)) > s.maxBytes {
		return nil
	}
	if err := s.rdb.Set(ctx, s.prefix+key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
