package game

import "github.com/jason-s-yu/lacosa/internal/models"

// Effect resolves a played card against the session. It runs after the card has left the
// player's hand and before the turn advances.
type Effect func(s *Session, by *models.Player, card models.Card)

// EffectTable maps card names to their effect. Cards without an entry have no effect yet.
type EffectTable map[string]Effect

// Resolve runs the effect registered for card, if any.
func (t EffectTable) Resolve(s *Session, by *models.Player, card models.Card) {
	if fn, ok := t[card.Name]; ok && fn != nil {
		fn(s, by, card)
	}
}

// DefaultEffects holds the card effects the game currently implements.
func DefaultEffects() EffectTable {
	return EffectTable{
		RepairCard: repairBase,
	}
}

func repairBase(s *Session, _ *models.Player, _ models.Card) {
	s.BaseHealth++
}
