package registry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/lacosa/internal/game"
	"github.com/jason-s-yu/lacosa/internal/models"
	"github.com/jason-s-yu/lacosa/internal/store"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBroadcaster collects events instead of sending them anywhere.
type mockBroadcaster struct {
	mu     sync.Mutex
	events map[uuid.UUID][]game.Event
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{events: make(map[uuid.UUID][]game.Event)}
}

func (mb *mockBroadcaster) Publish(id uuid.UUID, events []game.Event) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.events[id] = append(mb.events[id], events...)
}

func (mb *mockBroadcaster) get(id uuid.UUID) []game.Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return append([]game.Event{}, mb.events[id]...)
}

type mockRecorder struct {
	mu      sync.Mutex
	records []models.ActionRecord
	err     error
}

func (mr *mockRecorder) Record(_ context.Context, rec models.ActionRecord) error {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	mr.records = append(mr.records, rec)
	return mr.err
}

func (mr *mockRecorder) get() []models.ActionRecord {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	return append([]models.ActionRecord{}, mr.records...)
}

// flakyStore fails Save while failSave is set.
type flakyStore struct {
	*store.MemoryStore
	mu       sync.Mutex
	failSave bool
}

func (f *flakyStore) setFail(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSave = v
}

func (f *flakyStore) Save(ctx context.Context, s *game.Session) error {
	f.mu.Lock()
	fail := f.failSave
	f.mu.Unlock()
	if fail {
		return fmt.Errorf("%w: disk on fire", store.ErrStorage)
	}
	return f.MemoryStore.Save(ctx, s)
}

type fixture struct {
	reg *Registry
	st  *flakyStore
	mb  *mockBroadcaster
	rec *mockRecorder
}

func setup(t *testing.T, opts ...Option) fixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	f := fixture{
		st:  &flakyStore{MemoryStore: store.NewMemoryStore()},
		mb:  newMockBroadcaster(),
		rec: &mockRecorder{},
	}
	all := []Option{
		WithBroadcaster(f.mb),
		WithRecorder(f.rec),
		WithSource(rand.New(rand.NewSource(1))),
		WithLogger(logger),
	}
	f.reg = New(f.st, append(all, opts...)...)
	return f
}

func (f fixture) createWithPlayers(t *testing.T, names ...string) uuid.UUID {
	t.Helper()
	res, err := f.reg.CreateSession(context.Background(), "registry")
	require.NoError(t, err)
	for _, n := range names {
		_, err := f.reg.JoinSession(context.Background(), res.View.ID, n)
		require.NoError(t, err)
	}
	return res.View.ID
}

func TestCreateSession(t *testing.T) {
	f := setup(t)
	res, err := f.reg.CreateSession(context.Background(), "Outpost")
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaiting, res.View.Status)
	assert.Equal(t, "Outpost", res.View.Name)

	view, err := f.reg.GetView(context.Background(), res.View.ID, "")
	require.NoError(t, err)
	assert.Equal(t, res.View.ID, view.ID)

	_, err = f.reg.CreateSession(context.Background(), " ")
	require.ErrorIs(t, err, game.ErrInvalidName)
}

func TestUnknownSession(t *testing.T) {
	f := setup(t)
	_, err := f.reg.JoinSession(context.Background(), uuid.New(), "alice")
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, game.KindNotFound, game.KindOf(err))

	_, err = f.reg.GetView(context.Background(), uuid.New(), "alice")
	assert.Equal(t, game.KindNotFound, game.KindOf(err))
	assert.Empty(t, f.reg.locks)
}

func TestFullFlow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	id := f.createWithPlayers(t, "alice", "bob", "carol")

	res, err := f.reg.StartSession(ctx, id, "bob")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, res.View.Status)
	assert.Equal(t, "bob", res.View.Viewer)
	require.Len(t, res.Events, 1)

	res, err = f.reg.SubmitMove(ctx, id, "alice", game.PassMove{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.View.TurnIndex)
	assert.Len(t, res.View.Players[0].Hand, game.HandSize, "mover sees own hand")

	events := f.mb.get(id)
	types := make([]game.EventType, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []game.EventType{
		game.EventPlayerJoined, game.EventPlayerJoined, game.EventPlayerJoined,
		game.EventGameStarted, game.EventMoveMade,
	}, types)

	recs := f.rec.get()
	require.Len(t, recs, 6)
	assert.Equal(t, "session_created", recs[0].ActionType)
	for i, rec := range recs {
		assert.Equal(t, i, rec.ActionIndex)
		assert.Equal(t, id, rec.SessionID)
	}
	assert.Equal(t, "move_made", recs[5].ActionType)
	assert.Equal(t, 1, recs[5].ActionPayload["turn_index"])
	assert.Contains(t, recs[4].ActionPayload, "roles")
}

func TestFailedOperationIsNotSavedOrPublished(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	id := f.createWithPlayers(t, "alice", "bob", "carol")
	_, err := f.reg.StartSession(ctx, id, "")
	require.NoError(t, err)
	before := len(f.mb.get(id))

	_, err = f.reg.SubmitMove(ctx, id, "alice", game.ActionMove{CardName: "Not a card"})
	require.ErrorIs(t, err, game.ErrCardNotInHand)

	view, err := f.reg.GetView(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, view.TurnIndex)
	assert.Len(t, f.mb.get(id), before)
}

func TestStorageFailure(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	id := f.createWithPlayers(t, "alice")

	f.st.setFail(true)
	_, err := f.reg.JoinSession(ctx, id, "bob")
	require.Error(t, err)
	assert.Equal(t, game.KindStorage, game.KindOf(err))
	f.st.setFail(false)

	view, err := f.reg.GetView(ctx, id, "")
	require.NoError(t, err)
	assert.Len(t, view.Players, 1)
	assert.Len(t, f.mb.get(id), 1)
}

func TestRecorderFailureDoesNotFailOperation(t *testing.T) {
	f := setup(t)
	f.rec.err = errors.New("redis down")
	id := f.createWithPlayers(t, "alice")
	view, err := f.reg.GetView(context.Background(), id, "")
	require.NoError(t, err)
	assert.Len(t, view.Players, 1)
}

func TestStrictTurns(t *testing.T) {
	rules := game.DefaultRules()
	rules.StrictTurns = true
	f := setup(t, WithRules(rules))
	ctx := context.Background()
	id := f.createWithPlayers(t, "alice", "bob", "carol")
	_, err := f.reg.StartSession(ctx, id, "")
	require.NoError(t, err)

	_, err = f.reg.SubmitMove(ctx, id, "carol", game.PassMove{})
	require.ErrorIs(t, err, game.ErrNotYourTurn)
	_, err = f.reg.SubmitMove(ctx, id, "alice", game.PassMove{})
	require.NoError(t, err)
}

// Concurrent joins on one session must all land; none may overwrite another.
func TestConcurrentJoins(t *testing.T) {
	f := setup(t)
	id := f.createWithPlayers(t)

	const n = 30
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.reg.JoinSession(context.Background(), id, fmt.Sprintf("player-%02d", i))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	view, err := f.reg.GetView(context.Background(), id, "")
	require.NoError(t, err)
	assert.Len(t, view.Players, n)
	assert.Equal(t, n, view.Version)
	assert.Empty(t, f.reg.locks)
}

func TestConcurrentMovesAcrossSessions(t *testing.T) {
	f := setup(t, WithSource(game.DefaultSource))
	ctx := context.Background()
	ids := make([]uuid.UUID, 4)
	for i := range ids {
		ids[i] = f.createWithPlayers(t, "alice", "bob", "carol")
		_, err := f.reg.StartSession(ctx, ids[i], "")
		require.NoError(t, err)
	}

	const moves = 25
	var wg sync.WaitGroup
	for _, id := range ids {
		for _, who := range []string{"alice", "bob", "carol"} {
			wg.Add(1)
			go func(id uuid.UUID, who string) {
				defer wg.Done()
				for i := 0; i < moves; i++ {
					_, err := f.reg.SubmitMove(ctx, id, who, game.PassMove{})
					assert.NoError(t, err)
				}
			}(id, who)
		}
	}
	wg.Wait()

	for _, id := range ids {
		view, err := f.reg.GetView(ctx, id, "")
		require.NoError(t, err)
		assert.Equal(t, (3*moves)%3, view.TurnIndex)
		assert.Equal(t, 3+1+3*moves, view.Version)
	}
}
