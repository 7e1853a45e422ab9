// internal/historian/historian.go
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/lacosa/internal/config"
	"github.com/jason-s-yu/lacosa/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Queue yields raw action records. Pop returns nil, nil when nothing arrived within timeout.
type Queue interface {
	Pop(ctx context.Context, timeout time.Duration) ([]byte, error)
}

// Sink persists action records and session status.
type Sink interface {
	InsertActions(ctx context.Context, records []models.ActionRecord) error
	MarkAbandoned(ctx context.Context, sessionID uuid.UUID) (bool, error)
}

// popTimeout bounds each blocking Pop so cancellation is noticed.
const popTimeout = 3 * time.Second

// Service drains the action queue into the database in batches and marks sessions abandoned
// once they have been idle longer than the inactivity timeout.
type Service struct {
	queue  Queue
	sink   Sink
	cfg    config.Historian
	logger *logrus.Logger
	now    func() time.Time

	lastActivity sync.Map // map[uuid.UUID]time.Time

	batchMu sync.Mutex
	batch   []models.ActionRecord
}

func New(queue Queue, sink Sink, cfg config.Historian, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	return &Service{
		queue:  queue,
		sink:   sink,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		batch:  make([]models.ActionRecord, 0, cfg.BatchSize),
	}
}

// Run blocks until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.readLoop(gctx) })
	g.Go(func() error { return s.flushLoop(gctx) })
	g.Go(func() error { return s.inactivityLoop(gctx) })

	s.logger.Info("lacosa-historian service started")
	err := g.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if ferr := s.Flush(flushCtx); ferr != nil {
		s.logger.WithError(ferr).Error("final flush failed")
	}
	s.logger.Info("lacosa-historian shutting down")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Service) readLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		payload, err := s.queue.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.WithError(err).Error("queue pop failed")
			time.Sleep(time.Second)
			continue
		}
		if payload == nil {
			continue
		}
		s.Ingest(ctx, payload)
	}
}

func (s *Service) flushLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Flush(ctx); err != nil {
				s.logger.WithError(err).Error("flush failed")
			}
		}
	}
}

func (s *Service) inactivityLoop(ctx context.Context) error {
	sweep := s.cfg.SweepInterval
	if sweep <= 0 {
		sweep = time.Minute
	}
	ticker := time.NewTicker(sweep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Ingest decodes one queued record and adds it to the batch, flushing when the batch is full.
// Undecodable payloads are logged and dropped.
func (s *Service) Ingest(ctx context.Context, payload []byte) {
	var record models.ActionRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		s.logger.WithError(err).Warn("invalid action record")
		return
	}
	s.lastActivity.Store(record.SessionID, s.now())

	s.batchMu.Lock()
	s.batch = append(s.batch, record)
	full := len(s.batch) >= s.cfg.BatchSize
	s.batchMu.Unlock()

	if full {
		if err := s.Flush(ctx); err != nil {
			s.logger.WithError(err).Error("flush failed")
		}
	}
}

// Flush writes the pending batch in one transaction. On failure the records are kept for the
// next attempt; inserts are idempotent so a partial earlier write is harmless.
func (s *Service) Flush(ctx context.Context) error {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return nil
	}
	pending := make([]models.ActionRecord, len(s.batch))
	copy(pending, s.batch)
	s.batch = s.batch[:0]
	s.batchMu.Unlock()

	if err := s.sink.InsertActions(ctx, pending); err != nil {
		s.batchMu.Lock()
		s.batch = append(pending, s.batch...)
		s.batchMu.Unlock()
		return err
	}
	s.logger.WithField("count", len(pending)).Debug("flushed actions")
	return nil
}

// Pending is the number of records waiting for the next flush.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}

// Sweep marks every session idle longer than the inactivity timeout as abandoned and stops
// tracking it.
func (s *Service) Sweep(ctx context.Context) {
	now := s.now()
	s.lastActivity.Range(func(key, val interface{}) bool {
		id, ok1 := key.(uuid.UUID)
		last, ok2 := val.(time.Time)
		if !ok1 || !ok2 || now.Sub(last) <= s.cfg.InactivityTimeout {
			return true
		}
		changed, err := s.sink.MarkAbandoned(ctx, id)
		if err != nil {
			s.logger.WithField("session_id", id).WithError(err).Error("failed to mark session abandoned")
			return true
		}
		s.lastActivity.Delete(id)
		if changed {
			s.logger.WithField("session_id", id).Info("marked session abandoned due to inactivity")
		}
		return true
	})
}
