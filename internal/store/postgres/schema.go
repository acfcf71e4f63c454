package postgres

import (
	"context"
	"fmt"
)

// schema is applied in order at startup. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS admin_operators (
		sigla       TEXT PRIMARY KEY,
		name        TEXT NOT NULL DEFAULT '',
		role        TEXT NOT NULL,
		org_unit    TEXT NOT NULL DEFAULT '',
		secret_hash TEXT NOT NULL,
		active      BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS members (
		membership_id BIGINT PRIMARY KEY,
		name          TEXT NOT NULL,
		status        TEXT NOT NULL DEFAULT 'ACTIVE',
		email         TEXT NOT NULL DEFAULT '',
		phone         TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS member_access (
		national_id   TEXT PRIMARY KEY,
		secret_hash   TEXT NOT NULL,
		membership_id BIGINT NOT NULL,
		display_name  TEXT NOT NULL DEFAULT '',
		created_by    TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		token         TEXT PRIMARY KEY,
		identity_kind TEXT NOT NULL,
		identity_key  TEXT NOT NULL,
		expires_at    TIMESTAMPTZ NOT NULL,
		active        BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_identity ON sessions (identity_kind, identity_key) WHERE active`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions (expires_at)`,
}

// Migrate creates the tables used by the repositories.
func Migrate(ctx context.Context, db DBTX) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("[postgres Migrate] statement %d: %w", i, err)
		}
	}
	return nil
}
