// internal/store/redis.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/lacosa/internal/game"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces session documents in Redis.
const KeyPrefix = "lacosa:session:"

// RedisStore keeps each session as a JSON string under lacosa:session:{id}.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore uses rdb; a positive ttl expires sessions that have not been saved for that long.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func sessionKey(id uuid.UUID) string {
	return KeyPrefix + id.String()
}

func (r *RedisStore) Load(ctx context.Context, id uuid.UUID) (*game.Session, error) {
	data, err := r.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrStorage, sessionKey(id), err)
	}
	var s game.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: decode session %v: %v", ErrStorage, id, err)
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *game.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("%w: encode session %v: %v", ErrStorage, s.ID, err)
	}
	if err := r.rdb.Set(ctx, sessionKey(s.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrStorage, sessionKey(s.ID), err)
	}
	return nil
}
