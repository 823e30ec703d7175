package persistence

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

var migrations = []func(ctx context.Context, tx *sql.Tx) error{
	migrateToV1,
}

func migrate(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported %d", version, schemaVersion)
	}

	for next := version + 1; next <= schemaVersion; next++ {
		if err := applyMigration(ctx, db, next); err != nil {
			return err
		}
	}

	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, version int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := migrations[version-1](ctx, tx); err != nil {
		return fmt.Errorf("apply schema migration %d: %w", version, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d;`, version)); err != nil {
		return fmt.Errorf("set schema version %d: %w", version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", version, err)
	}

	return nil
}

func migrateToV1(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS convos (
			account_did TEXT NOT NULL,
			convo_id TEXT NOT NULL,
			rev TEXT NOT NULL DEFAULT '',
			unread_count INTEGER NOT NULL DEFAULT 0,
			muted INTEGER NOT NULL DEFAULT 0,
			members_json TEXT NOT NULL,
			last_message_json TEXT NULL,
			position INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY(account_did, convo_id)
		);`,
		`CREATE INDEX IF NOT EXISTS convos_account_position_idx ON convos(account_did, position);`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}
