// internal/game/view.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/lacosa/internal/models"
)

// PlayerView is one seat as seen by a particular viewer.
type PlayerView struct {
	Username      string        `json:"username"`
	HandSize      int           `json:"hand_size"`
	IsCurrentTurn bool          `json:"is_current_turn"`
	Role          models.Role   `json:"role,omitempty"` // only when the viewer may know it
	Hand          []models.Card `json:"hand,omitempty"` // only for the viewer's own seat
}

// SessionView is the session state safe to send to one viewer.
type SessionView struct {
	ID            uuid.UUID            `json:"id"`
	Name          string               `json:"name"`
	Status        models.SessionStatus `json:"status"`
	Viewer        string               `json:"viewer,omitempty"`
	Players       []PlayerView         `json:"players"`
	DeckSize      int                  `json:"deck_size"`
	DiscardPile   []models.Card        `json:"discard_pile"`
	TurnIndex     int                  `json:"turn_index"`
	CurrentPlayer string               `json:"current_player,omitempty"`
	BaseHealth    int                  `json:"base_health"`
	Version       int                  `json:"version"`
}

// ViewFor projects the session for viewer. A player sees their own role and hand; The Thing also
// sees who the other Things are. Humans and spectators (any name not seated) see no roles.
func (s *Session) ViewFor(viewer string) SessionView {
	v := SessionView{
		ID:          s.ID,
		Name:        s.Name,
		Status:      s.Status,
		DeckSize:    len(s.Deck),
		DiscardPile: append([]models.Card{}, s.DiscardPile...),
		TurnIndex:   s.TurnIndex,
		BaseHealth:  s.BaseHealth,
		Version:     s.Version,
		Players:     make([]PlayerView, 0, len(s.Players)),
	}
	if cur := s.CurrentPlayer(); cur != nil && s.Status == models.StatusInProgress {
		v.CurrentPlayer = cur.Username
	}

	me := s.Player(viewer)
	if me != nil {
		v.Viewer = me.Username
	}
	viewerIsThing := me != nil && me.Role == models.RoleTheThing

	for i, p := range s.Players {
		pv := PlayerView{
			Username:      p.Username,
			HandSize:      len(p.Hand),
			IsCurrentTurn: s.Status == models.StatusInProgress && i == s.TurnIndex,
		}
		switch {
		case p == me:
			pv.Role = p.Role
			pv.Hand = append([]models.Card{}, p.Hand...)
		case viewerIsThing && p.Role == models.RoleTheThing:
			pv.Role = p.Role
		}
		v.Players = append(v.Players, pv)
	}
	return v
}
