package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
)

// migration is one schema step, applied in a transaction and recorded in
// PRAGMA user_version.
type migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

func schemaMigrations() []migration {
	return []migration{
		{
			Version:     1,
			Description: "collections, contents, versions",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE IF NOT EXISTS collections (
						id         TEXT PRIMARY KEY,
						name       TEXT NOT NULL,
						branches   TEXT NOT NULL DEFAULT '[]',
						lock_json  TEXT,
						created_at TEXT NOT NULL,
						updated_at TEXT NOT NULL
					);

					CREATE TABLE IF NOT EXISTS contents (
						id              TEXT PRIMARY KEY,
						collection_id   TEXT NOT NULL REFERENCES collections(id),
						title           TEXT NOT NULL DEFAULT '',
						slug            TEXT NOT NULL DEFAULT '',
						status          TEXT NOT NULL DEFAULT 'draft',
						elements        TEXT,
						metadata        TEXT,
						current_version INTEGER NOT NULL DEFAULT 0,
						lock_json       TEXT,
						created_at      TEXT NOT NULL,
						updated_at      TEXT NOT NULL
					);
					CREATE INDEX IF NOT EXISTS idx_contents_collection ON contents(collection_id);
					CREATE INDEX IF NOT EXISTS idx_contents_slug ON contents(slug);

					CREATE TABLE IF NOT EXISTS versions (
						id             TEXT PRIMARY KEY,
						content_id     TEXT NOT NULL REFERENCES contents(id),
						version_number INTEGER NOT NULL,
						snapshot       TEXT NOT NULL,
						branch_tag     TEXT NOT NULL DEFAULT '',
						is_branch_end  INTEGER NOT NULL DEFAULT 0,
						created_by     TEXT NOT NULL DEFAULT '',
						change_note    TEXT NOT NULL DEFAULT '',
						created_at     TEXT NOT NULL,
						UNIQUE(content_id, version_number)
					);
					CREATE INDEX IF NOT EXISTS idx_versions_content ON versions(content_id, version_number DESC);
					CREATE INDEX IF NOT EXISTS idx_versions_tag ON versions(content_id, branch_tag);
				`)
				return err
			},
		},
	}
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	migrations := schemaMigrations()
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	current, err := s.schemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := s.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
	}
	return nil
}

func (s *SQLiteStore) applyMigration(ctx context.Context, m migration) error {
	return s.transaction(ctx, func(tx *sql.Tx) error {
		if err := m.Up(tx); err != nil {
			return err
		}
		_, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version))
		return err
	})
}

func (s *SQLiteStore) schemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version)
	return version, err
}
