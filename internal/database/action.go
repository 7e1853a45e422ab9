// internal/database/action.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/lacosa/internal/models"
)

// InsertActions persists a batch of action records in one transaction. A record that was
// already stored (same session and index) is skipped, so replays are harmless.
func InsertActions(ctx context.Context, db TxBeginner, records []models.ActionRecord) error {
	if len(records) == 0 {
		return nil
	}
	return pgx.BeginTxFunc(ctx, db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range records {
			if err := insertActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insert action %v/%d: %w", rec.SessionID, rec.ActionIndex, err)
			}
		}
		return nil
	})
}

func insertActionTx(ctx context.Context, tx pgx.Tx, rec models.ActionRecord) error {
	payload := rec.ActionPayload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	q := `
		INSERT INTO session_actions (
			session_id, action_index, actor, action_type, action_payload, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, action_index) DO NOTHING
	`
	_, err = tx.Exec(ctx, q,
		rec.SessionID, rec.ActionIndex, rec.Actor, rec.ActionType, jsonPayload,
		time.UnixMilli(rec.Timestamp).UTC(),
	)
	return err
}
