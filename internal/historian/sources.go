package historian

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/lacosa/internal/database"
	"github.com/jason-s-yu/lacosa/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisQueue pops records with BLPOP from a Redis list.
type RedisQueue struct {
	rdb  *redis.Client
	name string
}

func NewRedisQueue(rdb *redis.Client, name string) *RedisQueue {
	return &RedisQueue{rdb: rdb, name: name}
}

func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	res, err := q.rdb.BLPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// res[0] is the queue name and res[1] the payload.
	if len(res) < 2 {
		return nil, nil
	}
	return []byte(res[1]), nil
}

// PostgresSink writes to the session_actions and sessions tables.
type PostgresSink struct {
	db database.TxBeginner
}

func NewPostgresSink(db database.TxBeginner) *PostgresSink {
	return &PostgresSink{db: db}
}

func (p *PostgresSink) InsertActions(ctx context.Context, records []models.ActionRecord) error {
	return database.InsertActions(ctx, p.db, records)
}

func (p *PostgresSink) MarkAbandoned(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	return database.MarkSessionAbandoned(ctx, p.db, sessionID)
}
