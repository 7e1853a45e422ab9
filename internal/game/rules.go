// internal/game/rules.go
package game

// Rules tunes how moves are resolved. The zero value is lenient with no card effects;
// use DefaultRules for the standard game.
type Rules struct {
	// StrictTurns rejects moves from anyone but the current player. When false, turn order is
	// tracked but any seated player may move.
	StrictTurns bool `json:"strictTurns"`

	// Effects resolves played action cards by name.
	Effects EffectTable `json:"-"`
}

// DefaultRules returns lenient turn handling with the standard card effects.
func DefaultRules() Rules {
	return Rules{
		StrictTurns: false,
		Effects:     DefaultEffects(),
	}
}
