// internal/database/schema.go
package database

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          UUID PRIMARY KEY,
	name        TEXT NOT NULL,
	status      TEXT NOT NULL,
	document    JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS session_actions (
	session_id     UUID NOT NULL,
	action_index   INTEGER NOT NULL,
	actor          TEXT NOT NULL,
	action_type    TEXT NOT NULL,
	action_payload JSONB NOT NULL DEFAULT '{}'::jsonb,
	recorded_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (session_id, action_index)
);
`

// EnsureSchema creates the sessions and session_actions tables when missing.
func EnsureSchema(ctx context.Context, db TxBeginner) error {
	return pgx.BeginTxFunc(ctx, db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, schema)
		return err
	})
}
