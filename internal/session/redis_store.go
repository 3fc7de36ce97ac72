package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "gateway:session:"

// RedisStore persists snapshots as JSON strings with a TTL.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(id string) string { return s.prefix + id }

func (s *RedisStore) Load(ctx context.Context, id string) (Snapshot, bool, error) {
	if id == "" {
		return Snapshot{}, false, ErrInvalidSessionID
	}
	raw, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("session: redis get: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		// A corrupt entry is as good as none; drop it.
		_ = s.rdb.Del(ctx, s.key(id)).Err()
		return Snapshot{}, false, nil
	}
	return snap, true, nil
}

func (s *RedisStore) Save(ctx context.Context, id string, snap Snapshot, ttl time.Duration) error {
	if id == "" {
		return ErrInvalidSessionID
	}
	if ttl <= 0 {
		return fmt.Errorf("session: ttl must be > 0")
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("session: encode snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(id), raw, ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("session: redis del: %w", err)
	}
	return nil
}
