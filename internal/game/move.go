package game

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MoveKind tags the concrete type of a Move.
type MoveKind string

const (
	MoveAction MoveKind = "action"
	MovePass   MoveKind = "pass"
)

// Move is a player's turn. The concrete types are ActionMove and PassMove; switch on them
// with a type switch.
type Move interface {
	Kind() MoveKind
}

// ActionMove plays the named card from the mover's hand onto the discard pile.
type ActionMove struct {
	CardName string
}

func (ActionMove) Kind() MoveKind { return MoveAction }

// PassMove ends the turn without playing a card.
type PassMove struct{}

func (PassMove) Kind() MoveKind { return MovePass }

// MovePayload is the wire form of a Move.
type MovePayload struct {
	Type     MoveKind `json:"type"`
	CardName string   `json:"cardName,omitempty"`
}

// ParseMove validates a wire payload and returns the Move it describes.
func ParseMove(p MovePayload) (Move, error) {
	switch p.Type {
	case MoveAction:
		if strings.TrimSpace(p.CardName) == "" {
			return nil, fmt.Errorf("%w: action move needs a cardName", ErrMalformedMove)
		}
		return ActionMove{CardName: p.CardName}, nil
	case MovePass:
		return PassMove{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown move type %q", ErrMalformedMove, p.Type)
	}
}

// DecodeMove parses a JSON move.
func DecodeMove(data []byte) (Move, error) {
	var p MovePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMove, err)
	}
	return ParseMove(p)
}

// PayloadOf converts a Move back to its wire form.
func PayloadOf(m Move) MovePayload {
	switch mv := m.(type) {
	case ActionMove:
		return MovePayload{Type: MoveAction, CardName: mv.CardName}
	case PassMove:
		return MovePayload{Type: MovePass}
	default:
		return MovePayload{Type: m.Kind()}
	}
}
