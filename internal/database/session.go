// internal/database/session.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrNoSession is returned by LoadSessionDocument when no row has the id.
var ErrNoSession = errors.New("session row not found")

// ErrSessionAbandoned is returned for a session the historian closed for inactivity. Its row is
// kept for history but can no longer be loaded or overwritten.
var ErrSessionAbandoned = errors.New("session abandoned")

// StatusAbandoned is the row status written by MarkSessionAbandoned.
const StatusAbandoned = "abandoned"

// SessionRow is the indexed part of a stored session plus its JSON document.
type SessionRow struct {
	ID        uuid.UUID
	Name      string
	Status    string
	Document  []byte
	CreatedAt time.Time
}

// UpsertSession writes the session row, replacing the document of an existing one.
// An abandoned row is left alone and ErrSessionAbandoned returned.
func UpsertSession(ctx context.Context, db TxBeginner, row SessionRow) error {
	q := `
		INSERT INTO sessions (id, name, status, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id)
		DO UPDATE SET name = EXCLUDED.name, status = EXCLUDED.status,
			document = EXCLUDED.document, updated_at = NOW()
		WHERE sessions.status <> 'abandoned'
	`
	err := pgx.BeginTxFunc(ctx, db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, e := tx.Exec(ctx, q, row.ID, row.Name, row.Status, row.Document, row.CreatedAt)
		if e != nil {
			return e
		}
		if tag.RowsAffected() == 0 {
			return ErrSessionAbandoned
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert session %v: %w", row.ID, err)
	}
	return nil
}

// LoadSessionDocument returns the stored JSON document of a session.
func LoadSessionDocument(ctx context.Context, db pgx.Tx, id uuid.UUID) ([]byte, error) {
	var (
		status string
		doc    []byte
	)
	err := db.QueryRow(ctx, `SELECT status, document FROM sessions WHERE id = $1`, id).Scan(&status, &doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("select session %v: %w", id, err)
	}
	if status == StatusAbandoned {
		return nil, ErrSessionAbandoned
	}
	return doc, nil
}

// ReadSessionDocument loads a session document in its own read-only transaction.
func ReadSessionDocument(ctx context.Context, db TxBeginner, id uuid.UUID) ([]byte, error) {
	var doc []byte
	err := pgx.BeginTxFunc(ctx, db, pgx.TxOptions{AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		var e error
		doc, e = LoadSessionDocument(ctx, tx, id)
		return e
	})
	return doc, err
}

// MarkSessionAbandoned flags a session that is still waiting or in progress as abandoned.
// It reports whether a row changed.
func MarkSessionAbandoned(ctx context.Context, db TxBeginner, id uuid.UUID) (bool, error) {
	var changed bool
	err := pgx.BeginTxFunc(ctx, db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			UPDATE sessions
			SET status = $2, updated_at = NOW()
			WHERE id = $1 AND status IN ('waiting', 'in_progress')
		`
		tag, e := tx.Exec(ctx, q, id, StatusAbandoned)
		if e != nil {
			return e
		}
		changed = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("mark session %v abandoned: %w", id, err)
	}
	return changed, nil
}
