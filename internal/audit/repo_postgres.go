package audit

import (
	"context"
	"database/sql"
	"errors"

	"sociomile-gateway/pkg/utils"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS auth_events (
	id          UUID PRIMARY KEY,
	type        TEXT NOT NULL,
	session_id  TEXT NOT NULL DEFAULT '',
	user_id     TEXT NOT NULL DEFAULT '',
	email       TEXT NOT NULL DEFAULT '',
	ip_address  TEXT NOT NULL DEFAULT '',
	message     TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL
)`

const createIndexSQL = `CREATE INDEX IF NOT EXISTS auth_events_created_at_idx ON auth_events (created_at)`

const insertSQL = `
INSERT INTO auth_events (id, type, session_id, user_id, email, ip_address, message, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// PostgresRepo appends events to the auth_events table. It only ever INSERTs.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

// Migrate creates the table and its index in one transaction.
func (r *PostgresRepo) Migrate(ctx context.Context) error {
	if r.db == nil {
		return errors.New("audit: db is nil")
	}
	return utils.WithTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, createTableSQL); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, createIndexSQL)
		return err
	})
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	if r.db == nil {
		return errors.New("audit: db is nil")
	}
	_, err := r.db.ExecContext(ctx, insertSQL,
		e.ID,
		string(e.Type),
		e.SessionID,
		e.UserID,
		e.Email,
		e.IPAddress,
		e.Message,
		e.CreatedAt,
	)
	return err
}
