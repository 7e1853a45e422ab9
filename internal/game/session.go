package game

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/lacosa/internal/models"
)

// Session is one game from creation to completion. It is a plain document: it holds no locks and
// does no I/O. Callers serialize mutations per session (see the registry) and persist it after
// every successful operation. An operation that returns an error leaves the session unchanged.
type Session struct {
	ID          uuid.UUID            `json:"id"`
	Name        string               `json:"name"`
	Status      models.SessionStatus `json:"status"`
	Players     []*models.Player     `json:"players"`
	Deck        []models.Card        `json:"deck"`
	DiscardPile []models.Card        `json:"discard_pile"`
	TurnIndex   int                  `json:"turn_index"`
	BaseHealth  int                  `json:"base_health"`
	// Version counts successful operations; it orders the action log.
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSession creates an empty session waiting for players.
func NewSession(name string) (*Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	return &Session{
		ID:          id,
		Name:        name,
		Status:      models.StatusWaiting,
		Players:     []*models.Player{},
		Deck:        []models.Card{},
		DiscardPile: []models.Card{},
		TurnIndex:   0,
		BaseHealth:  0,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Join seats a new player. Only possible while the session is waiting.
func (s *Session) Join(username string) ([]Event, error) {
	if s.Status != models.StatusWaiting {
		return nil, ErrGameNotJoinable
	}
	players, err := AddPlayer(s.Players, username)
	if err != nil {
		return nil, err
	}
	s.Players = players
	s.Version++
	return []Event{playerJoinedEvent(s, username)}, nil
}

// Start assigns roles, builds and deals the deck, and moves the session in progress.
// The deck is one 28-card catalog set for up to five players and grows by whole sets
// (SetsFor) for larger rosters, so dealing never runs short and Start does not return
// ErrInsufficientCards.
func (s *Session) Start(rng Source) ([]Event, error) {
	if s.Status != models.StatusWaiting {
		return nil, ErrGameAlreadyStarted
	}
	if len(s.Players) < MinPlayers {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughPlayers, len(s.Players), MinPlayers)
	}
	if rng == nil {
		rng = DefaultSource
	}

	if err := AssignRoles(rng, s.Players); err != nil {
		return nil, err
	}
	deck := BuildDeck(rng, SetsFor(len(s.Players)))
	rest, err := Deal(deck, s.Players, HandSize)
	if err != nil {
		s.resetRoles()
		return nil, err
	}

	s.Deck = rest
	s.DiscardPile = []models.Card{}
	s.TurnIndex = 0
	s.Status = models.StatusInProgress
	s.Version++
	return []Event{gameStartedEvent(s)}, nil
}

// ApplyMove resolves a move by username and passes the turn to the next seat.
func (s *Session) ApplyMove(username string, m Move, rules Rules) ([]Event, error) {
	if s.Status != models.StatusInProgress {
		return nil, ErrGameNotInProgress
	}
	if m == nil {
		return nil, fmt.Errorf("%w: missing move", ErrMalformedMove)
	}
	player := s.Player(username)
	if player == nil {
		return nil, fmt.Errorf("%w: %q", ErrPlayerNotFound, username)
	}
	if rules.StrictTurns && s.CurrentPlayer() != player {
		return nil, fmt.Errorf("%w: waiting on %q", ErrNotYourTurn, s.CurrentPlayer().Username)
	}

	switch mv := m.(type) {
	case ActionMove:
		idx := player.HandIndex(mv.CardName)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %q", ErrCardNotInHand, mv.CardName)
		}
		card := player.Hand[idx]
		player.Hand = append(player.Hand[:idx], player.Hand[idx+1:]...)
		s.DiscardPile = append(s.DiscardPile, card)
		rules.Effects.Resolve(s, player, card)
	case PassMove:
	default:
		return nil, fmt.Errorf("%w: unsupported move %q", ErrMalformedMove, m.Kind())
	}

	s.TurnIndex = (s.TurnIndex + 1) % len(s.Players)
	s.Version++
	return []Event{moveMadeEvent(s, username, m)}, nil
}

// Player returns the seated player with the exact username, or nil.
func (s *Session) Player(username string) *models.Player {
	return findPlayer(s.Players, username)
}

// CurrentPlayer returns the player whose turn it is, or nil for an empty roster.
func (s *Session) CurrentPlayer() *models.Player {
	if len(s.Players) == 0 || s.TurnIndex < 0 || s.TurnIndex >= len(s.Players) {
		return nil
	}
	return s.Players[s.TurnIndex]
}

// CardCount is the number of cards across the deck, every hand and the discard pile.
// It never changes once the session has started.
func (s *Session) CardCount() int {
	n := len(s.Deck) + len(s.DiscardPile)
	for _, p := range s.Players {
		n += len(p.Hand)
	}
	return n
}

// Clone returns a deep copy that shares no slices with s.
func (s *Session) Clone() *Session {
	c := *s
	c.Deck = append([]models.Card{}, s.Deck...)
	c.DiscardPile = append([]models.Card{}, s.DiscardPile...)
	c.Players = make([]*models.Player, len(s.Players))
	for i, p := range s.Players {
		cp := *p
		cp.Hand = append([]models.Card{}, p.Hand...)
		c.Players[i] = &cp
	}
	return &c
}

func (s *Session) resetRoles() {
	for _, p := range s.Players {
		p.Role = models.RoleUnassigned
	}
}
