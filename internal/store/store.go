// internal/store/store.go
package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jason-s-yu/lacosa/internal/game"
)

// ErrNotFound and ErrStorage classify store failures; both map through game.KindOf.
var (
	ErrNotFound = game.ErrSessionNotFound
	ErrStorage  = game.ErrStorage
)

// Store persists whole sessions. Load returns a copy the caller may mutate freely;
// nothing changes in the store until Save.
type Store interface {
	Load(ctx context.Context, id uuid.UUID) (*game.Session, error)
	Save(ctx context.Context, s *game.Session) error
}
