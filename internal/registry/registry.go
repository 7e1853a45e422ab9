// internal/registry/registry.go
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/lacosa/internal/game"
	"github.com/jason-s-yu/lacosa/internal/models"
	"github.com/jason-s-yu/lacosa/internal/store"
	"github.com/sirupsen/logrus"
)

// Broadcaster delivers events to whoever listens on a session. Publish must not block.
type Broadcaster interface {
	Publish(sessionID uuid.UUID, events []game.Event)
}

// ActionRecorder receives one record per successful operation.
type ActionRecorder interface {
	Record(ctx context.Context, record models.ActionRecord) error
}

// Result is what a successful operation returns to its caller.
type Result struct {
	// View is the session as the acting user may see it.
	View   game.SessionView
	Events []game.Event
}

type nopBroadcaster struct{}

func (nopBroadcaster) Publish(uuid.UUID, []game.Event) {}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, models.ActionRecord) error { return nil }

// Registry is the single entry point for session operations from every transport.
// Mutations on one session are serialized; different sessions never wait on each other.
type Registry struct {
	store       store.Store
	broadcaster Broadcaster
	recorder    ActionRecorder
	rules       game.Rules
	rng         game.Source
	logger      *logrus.Logger
	now         func() time.Time

	locksMu sync.Mutex
	locks   map[uuid.UUID]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// Option configures a Registry.
type Option func(*Registry)

func WithBroadcaster(b Broadcaster) Option { return func(r *Registry) { r.broadcaster = b } }

func WithRecorder(rec ActionRecorder) Option { return func(r *Registry) { r.recorder = rec } }

func WithRules(rules game.Rules) Option { return func(r *Registry) { r.rules = rules } }

func WithSource(rng game.Source) Option { return func(r *Registry) { r.rng = rng } }

func WithLogger(l *logrus.Logger) Option { return func(r *Registry) { r.logger = l } }

// New builds a Registry over st. Without options events go nowhere, nothing is recorded and
// the default rules apply.
func New(st store.Store, opts ...Option) *Registry {
	r := &Registry{
		store:       st,
		broadcaster: nopBroadcaster{},
		recorder:    nopRecorder{},
		rules:       game.DefaultRules(),
		rng:         game.DefaultSource,
		logger:      logrus.StandardLogger(),
		now:         time.Now,
		locks:       make(map[uuid.UUID]*sessionLock),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rules returns the rules moves are resolved with.
func (r *Registry) Rules() game.Rules {
	return r.rules
}

// CreateSession stores a new waiting session.
func (r *Registry) CreateSession(ctx context.Context, name string) (Result, error) {
	s, err := game.NewSession(name)
	if err != nil {
		return Result{}, err
	}
	if err := r.store.Save(ctx, s); err != nil {
		return Result{}, err
	}
	r.logger.WithFields(logrus.Fields{"session_id": s.ID, "name": s.Name}).Info("session created")
	r.record(ctx, s.ID, s.Version, "", "session_created", map[string]interface{}{"name": s.Name})
	return Result{View: s.ViewFor("")}, nil
}

// JoinSession seats username in a waiting session.
func (r *Registry) JoinSession(ctx context.Context, id uuid.UUID, username string) (Result, error) {
	return r.mutate(ctx, id, username, "join", func(s *game.Session) ([]game.Event, error) {
		return s.Join(username)
	})
}

// StartSession deals the cards and assigns roles.
func (r *Registry) StartSession(ctx context.Context, id uuid.UUID, username string) (Result, error) {
	return r.mutate(ctx, id, username, "start", func(s *game.Session) ([]game.Event, error) {
		return s.Start(r.rng)
	})
}

// SubmitMove applies a move by username.
func (r *Registry) SubmitMove(ctx context.Context, id uuid.UUID, username string, m game.Move) (Result, error) {
	return r.mutate(ctx, id, username, "move", func(s *game.Session) ([]game.Event, error) {
		return s.ApplyMove(username, m, r.rules)
	})
}

// GetView loads the session and projects it for viewer. It takes no lock.
func (r *Registry) GetView(ctx context.Context, id uuid.UUID, viewer string) (game.SessionView, error) {
	s, err := r.store.Load(ctx, id)
	if err != nil {
		return game.SessionView{}, err
	}
	return s.ViewFor(viewer), nil
}

// mutate runs op under the session lock. The session is saved and events published only when
// op succeeds; publishing happens before the lock is released so subscribers see events in
// the order the operations were applied.
func (r *Registry) mutate(ctx context.Context, id uuid.UUID, actor, opName string, op func(*game.Session) ([]game.Event, error)) (Result, error) {
	fields := logrus.Fields{"session_id": id, "user": actor, "op": opName}

	unlock := r.lock(id)
	s, err := r.store.Load(ctx, id)
	if err != nil {
		unlock()
		return Result{}, err
	}
	events, err := op(s)
	if err != nil {
		unlock()
		r.logger.WithFields(fields).WithError(err).Debug("operation rejected")
		return Result{}, err
	}
	if err := r.store.Save(ctx, s); err != nil {
		unlock()
		r.logger.WithFields(fields).WithError(err).Error("failed to save session")
		return Result{}, err
	}
	r.broadcaster.Publish(id, events)
	unlock()

	r.logger.WithFields(fields).WithField("version", s.Version).Info("operation applied")
	for _, ev := range events {
		r.record(ctx, id, s.Version, actor, string(ev.Type), eventPayload(ev, s))
	}
	return Result{View: s.ViewFor(actor), Events: events}, nil
}

// lock acquires the mutex for id and returns its release func. Entries are
// reference counted so the table only holds sessions with an operation in flight.
func (r *Registry) lock(id uuid.UUID) func() {
	r.locksMu.Lock()
	l, ok := r.locks[id]
	if !ok {
		l = &sessionLock{}
		r.locks[id] = l
	}
	l.refs++
	r.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		r.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, id)
		}
		r.locksMu.Unlock()
	}
}

func (r *Registry) record(ctx context.Context, id uuid.UUID, index int, actor, actionType string, payload map[string]interface{}) {
	rec := models.ActionRecord{
		SessionID:     id,
		ActionIndex:   index,
		Actor:         actor,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     r.now().UnixMilli(),
	}
	if err := r.recorder.Record(ctx, rec); err != nil {
		r.logger.WithFields(logrus.Fields{"session_id": id, "action_index": index}).
			WithError(err).Warn("failed to record action")
	}
}

// eventPayload is the action log body for an event. game_started keeps the dealt state so a
// session can be replayed from its log.
func eventPayload(ev game.Event, s *game.Session) map[string]interface{} {
	payload := map[string]interface{}{}
	switch ev.Type {
	case game.EventGameStarted:
		roles := make(map[string]string, len(s.Players))
		hands := make(map[string][]models.Card, len(s.Players))
		for _, p := range s.Players {
			roles[p.Username] = string(p.Role)
			hands[p.Username] = append([]models.Card{}, p.Hand...)
		}
		payload["roles"] = roles
		payload["hands"] = hands
		payload["deck"] = append([]models.Card{}, s.Deck...)
	case game.EventMoveMade:
		if ev.Move != nil {
			payload["move"] = *ev.Move
		}
		if ev.TurnIndex != nil {
			payload["turn_index"] = *ev.TurnIndex
		}
		if ev.BaseHealth != nil {
			payload["base_health"] = *ev.BaseHealth
		}
	}
	return payload
}
