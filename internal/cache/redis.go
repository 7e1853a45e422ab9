// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jason-s-yu/lacosa/internal/models"
	"github.com/redis/go-redis/v9"
)

// Connect creates a Redis client and pings it.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// ActionLog pushes action records onto a Redis list for the historian.
type ActionLog struct {
	rdb   *redis.Client
	queue string
}

func NewActionLog(rdb *redis.Client, queue string) *ActionLog {
	return &ActionLog{rdb: rdb, queue: queue}
}

// Record serializes the record to JSON and RPushes it to the queue.
func (a *ActionLog) Record(ctx context.Context, record models.ActionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal ActionRecord: %w", err)
	}
	if err := a.rdb.RPush(ctx, a.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", a.queue, err)
	}
	return nil
}

// NopRecorder drops every record. Used when no action log is configured.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, models.ActionRecord) error { return nil }
