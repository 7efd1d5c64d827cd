package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 2

const schemaV1 = `
-- Current genome per home location
CREATE TABLE IF NOT EXISTS genomes (
    home_id TEXT PRIMARY KEY,
    data BLOB NOT NULL,
    generation INTEGER NOT NULL DEFAULT 0,
    saved_at TEXT NOT NULL
);

-- Every genome ever saved, newest last
CREATE TABLE IF NOT EXISTS genome_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    home_id TEXT NOT NULL,
    data BLOB NOT NULL,
    generation INTEGER NOT NULL,
    saved_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_home ON genome_history(home_id, id);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER NOT NULL
);
`

// schemaV2 adds the journey each home travels.
const schemaV2 = `
CREATE TABLE IF NOT EXISTS journeys (
    home_id TEXT PRIMARY KEY,
    legs TEXT NOT NULL,
    saved_at TEXT NOT NULL
);
`

// InitSchema creates the tables if they do not exist and records the
// schema version.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaV2); err != nil {
		return fmt.Errorf("failed to create journeys table: %w", err)
	}

	var version int
	err := db.QueryRowContext(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, SchemaVersion); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to read schema version: %w", err)
	case version > SchemaVersion:
		return fmt.Errorf("database schema version %d is newer than supported %d", version, SchemaVersion)
	case version < SchemaVersion:
		if _, err := db.ExecContext(ctx, `UPDATE schema_version SET version = ?`, SchemaVersion); err != nil {
			return fmt.Errorf("failed to migrate schema from version %d: %w", version, err)
		}
	}
	return nil
}
