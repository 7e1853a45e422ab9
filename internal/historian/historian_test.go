// internal/historian/historian_test.go
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/lacosa/internal/config"
	"github.com/jason-s-yu/lacosa/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanQueue struct {
	ch chan []byte
}

func (q *chanQueue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	select {
	case b := <-q.ch:
		return b, nil
	case <-time.After(timeout):
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type memorySink struct {
	mu        sync.Mutex
	records   []models.ActionRecord
	abandoned []uuid.UUID
	failNext  bool
}

func (m *memorySink) InsertActions(_ context.Context, recs []models.ActionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return errors.New("db down")
	}
	m.records = append(m.records, recs...)
	return nil
}

func (m *memorySink) MarkAbandoned(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.abandoned = append(m.abandoned, id)
	return true, nil
}

func (m *memorySink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func record(t *testing.T, id uuid.UUID, idx int) []byte {
	t.Helper()
	b, err := json.Marshal(models.ActionRecord{
		SessionID:   id,
		ActionIndex: idx,
		Actor:       "alice",
		ActionType:  "move_made",
		Timestamp:   time.Now().UnixMilli(),
	})
	require.NoError(t, err)
	return b
}

func newService(sink Sink, batch int) *Service {
	logger, _ := test.NewNullLogger()
	return New(&chanQueue{ch: make(chan []byte)}, sink, config.Historian{
		BatchSize:         batch,
		FlushInterval:     time.Hour,
		InactivityTimeout: 10 * time.Minute,
		SweepInterval:     time.Hour,
	}, logger)
}

func TestIngest_FlushesAtBatchSize(t *testing.T) {
	sink := &memorySink{}
	s := newService(sink, 3)
	ctx := context.Background()
	id := uuid.New()

	s.Ingest(ctx, record(t, id, 1))
	s.Ingest(ctx, record(t, id, 2))
	assert.Equal(t, 0, sink.count())
	assert.Equal(t, 2, s.Pending())

	s.Ingest(ctx, record(t, id, 3))
	assert.Equal(t, 3, sink.count())
	assert.Equal(t, 0, s.Pending())
}

func TestIngest_DropsGarbage(t *testing.T) {
	s := newService(&memorySink{}, 10)
	s.Ingest(context.Background(), []byte("{not json"))
	assert.Equal(t, 0, s.Pending())
}

func TestFlush_KeepsRecordsOnFailure(t *testing.T) {
	sink := &memorySink{failNext: true}
	s := newService(sink, 10)
	ctx := context.Background()
	s.Ingest(ctx, record(t, uuid.New(), 1))
	s.Ingest(ctx, record(t, uuid.New(), 1))

	require.Error(t, s.Flush(ctx))
	assert.Equal(t, 2, s.Pending())

	require.NoError(t, s.Flush(ctx))
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, 2, sink.count())
}

func TestSweep_MarksIdleSessions(t *testing.T) {
	sink := &memorySink{}
	s := newService(sink, 10)
	ctx := context.Background()
	now := time.Now()
	s.now = func() time.Time { return now }

	idle, active := uuid.New(), uuid.New()
	s.Ingest(ctx, record(t, idle, 1))
	now = now.Add(8 * time.Minute)
	s.Ingest(ctx, record(t, active, 1))
	now = now.Add(3 * time.Minute)

	s.Sweep(ctx)
	assert.Equal(t, []uuid.UUID{idle}, sink.abandoned)

	s.Sweep(ctx)
	assert.Len(t, sink.abandoned, 1, "abandoned sessions stop being tracked")
}

func TestRun_DrainsQueueAndFlushesOnShutdown(t *testing.T) {
	sink := &memorySink{}
	q := &chanQueue{ch: make(chan []byte)}
	logger, _ := test.NewNullLogger()
	s := New(q, sink, config.Historian{BatchSize: 100, FlushInterval: time.Hour, SweepInterval: time.Hour}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	id := uuid.New()
	for i := 0; i < 5; i++ {
		q.ch <- record(t, id, i)
	}
	require.Eventually(t, func() bool { return s.Pending() == 5 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, 5, sink.count())
}

// TestRedisQueue pushes to a real Redis when TEST_REDIS_ADDR is set.
func TestRedisQueue(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	name := "lacosa_test_" + uuid.NewString()
	payload := record(t, uuid.New(), 1)
	require.NoError(t, rdb.RPush(ctx, name, payload).Err())

	q := NewRedisQueue(rdb, name)
	got, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	got, err = q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Nil(t, got)
}
