package game

import "github.com/google/uuid"

// EventType names a broadcast event.
type EventType string

const (
	EventPlayerJoined EventType = "player_joined"
	EventGameStarted  EventType = "game_started"
	EventMoveMade     EventType = "move_made"
)

// Event is what an operation asks the delivery layer to fan out. Events carrying session state
// must be projected per recipient with Project before they are sent.
type Event struct {
	Type       EventType    `json:"type"`
	SessionID  uuid.UUID    `json:"session_id"`
	User       string       `json:"user,omitempty"`
	Move       *MovePayload `json:"move,omitempty"`
	TurnIndex  *int         `json:"turn_index,omitempty"`
	BaseHealth *int         `json:"base_health,omitempty"`
	State      *SessionView `json:"state,omitempty"`
	// Version is the session version after the operation that produced the event.
	Version    int          `json:"version"`

	// snapshot is the post-operation session used to build per-viewer state.
	snapshot *Session
}

// Project returns the event as the given viewer may see it. For game_started the full session
// is replaced by the viewer's own view so no role leaks to other players.
func (e Event) Project(viewer string) Event {
	out := e
	out.snapshot = nil
	if e.Type == EventGameStarted && e.snapshot != nil {
		v := e.snapshot.ViewFor(viewer)
		out.State = &v
	}
	return out
}

func playerJoinedEvent(s *Session, username string) Event {
	return Event{Type: EventPlayerJoined, SessionID: s.ID, User: username, Version: s.Version}
}

func gameStartedEvent(s *Session) Event {
	return Event{Type: EventGameStarted, SessionID: s.ID, Version: s.Version, snapshot: s.Clone()}
}

func moveMadeEvent(s *Session, username string, m Move) Event {
	turn, health := s.TurnIndex, s.BaseHealth
	payload := PayloadOf(m)
	return Event{
		Type:       EventMoveMade,
		SessionID:  s.ID,
		User:       username,
		Move:       &payload,
		TurnIndex:  &turn,
		BaseHealth: &health,
		Version:    s.Version,
	}
}
