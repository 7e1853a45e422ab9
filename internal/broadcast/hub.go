// internal/broadcast/hub.go
package broadcast

import (
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/lacosa/internal/game"
	"github.com/sirupsen/logrus"
)

// DefaultBuffer is the outbox size of a subscription.
const DefaultBuffer = 32

// Subscription is one listener on a session. Events arrive already projected for its viewer.
type Subscription struct {
	SessionID uuid.UUID
	out       chan game.Event

	// guarded by Hub.mu
	viewer string
	closed bool
}

// Events is closed when the subscription is removed or dropped for falling behind.
func (s *Subscription) Events() <-chan game.Event {
	return s.out
}

// Hub fans session events out to subscribers.
type Hub struct {
	mu     sync.Mutex
	subs   map[uuid.UUID]map[*Subscription]struct{}
	buffer int
	logger *logrus.Logger
}

func NewHub(buffer int, logger *logrus.Logger) *Hub {
	if buffer < 1 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		subs:   make(map[uuid.UUID]map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe registers a listener on sessionID. An empty viewer is a spectator.
func (h *Hub) Subscribe(sessionID uuid.UUID, viewer string) *Subscription {
	sub := &Subscription{
		SessionID: sessionID,
		out:       make(chan game.Event, h.buffer),
		viewer:    viewer,
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[sessionID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[sessionID] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Unsubscribe removes sub and closes its channel. Safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub)
}

// SetViewer changes whose view sub receives, e.g. after the connection joins as a player.
func (h *Hub) SetViewer(sub *Subscription, viewer string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub.viewer = viewer
}

// Viewer returns the identity sub is bound to.
func (h *Hub) Viewer(sub *Subscription) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return sub.viewer
}

// Publish delivers each event, projected per subscriber, without blocking.
// A subscriber whose outbox is full is dropped.
func (h *Hub) Publish(sessionID uuid.UUID, events []game.Event) {
	if len(events) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[sessionID] {
		for _, ev := range events {
			if sub.closed {
				break
			}
			select {
			case sub.out <- ev.Project(sub.viewer):
			default:
				h.logger.WithFields(logrus.Fields{
					"session_id": sessionID,
					"viewer":     sub.viewer,
				}).Warn("dropping slow subscriber")
				h.removeLocked(sub)
			}
		}
	}
}

// Count is the number of live subscriptions on sessionID.
func (h *Hub) Count(sessionID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[sessionID])
}

func (h *Hub) removeLocked(sub *Subscription) {
	if sub.closed {
		return
	}
	sub.closed = true
	close(sub.out)
	if set, ok := h.subs[sub.SessionID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.SessionID)
		}
	}
}
