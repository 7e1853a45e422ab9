// internal/store/postgres.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/lacosa/internal/database"
	"github.com/jason-s-yu/lacosa/internal/game"
)

// PostgresStore keeps each session as a JSONB document in the sessions table. A session the
// historian marked abandoned reads as not found.
type PostgresStore struct {
	db database.TxBeginner
}

// NewPostgresStore wraps an open pool. Call database.EnsureSchema before first use.
func NewPostgresStore(db database.TxBeginner) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Load(ctx context.Context, id uuid.UUID) (*game.Session, error) {
	doc, err := database.ReadSessionDocument(ctx, p.db, id)
	if errors.Is(err, database.ErrNoSession) || errors.Is(err, database.ErrSessionAbandoned) {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	var s game.Session
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, fmt.Errorf("%w: decode session %v: %v", ErrStorage, id, err)
	}
	return &s, nil
}

func (p *PostgresStore) Save(ctx context.Context, s *game.Session) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("%w: encode session %v: %v", ErrStorage, s.ID, err)
	}
	err = database.UpsertSession(ctx, p.db, database.SessionRow{
		ID:        s.ID,
		Name:      s.Name,
		Status:    string(s.Status),
		Document:  doc,
		CreatedAt: s.CreatedAt,
	})
	if errors.Is(err, database.ErrSessionAbandoned) {
		return fmt.Errorf("%w: %v abandoned", ErrNotFound, s.ID)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}
