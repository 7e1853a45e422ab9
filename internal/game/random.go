package game

import "math/rand"

// Source is the randomness used for shuffling and role selection. It need not be
// cryptographically secure but must be uniform. *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

type globalSource struct{}

func (globalSource) Intn(n int) int                     { return rand.Intn(n) }
func (globalSource) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// DefaultSource is safe for concurrent use across sessions.
var DefaultSource Source = globalSource{}
