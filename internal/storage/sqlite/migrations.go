package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrate runs database migrations. Downgrade is unsupported.
func (s *SQLiteDB) migrate() error {
	ctx := context.Background()

	if err := s.createMigrationsTable(ctx); err != nil {
		return err
	}

	migrations := []migration{
		{version: 1, name: "work_items", up: migrateV1},
		{version: 2, name: "notes_and_dependencies", up: migrateV2},
		{version: 3, name: "role_transitions", up: migrateV3},
		{version: 4, name: "scheduling_indices", up: migrateV4},
	}

	for _, m := range migrations {
		if err := s.runMigration(ctx, m); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
		}
	}

	return nil
}

type migration struct {
	version int
	name    string
	up      func(context.Context, *sql.Tx) error
}

func (s *SQLiteDB) createMigrationsTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at INTEGER NOT NULL
	)`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

func (s *SQLiteDB) runMigration(ctx context.Context, m migration) error {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM schema_migrations WHERE version = ?", m.version).Scan(&count)
	if err != nil {
		return err
	}

	if count > 0 {
		return nil // Already applied
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := m.up(ctx, tx); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, strftime('%s', 'now'))",
		m.version, m.name)
	if err != nil {
		return err
	}

	s.logger.Info().Int("version", m.version).Str("name", m.name).Msg("Applied migration")
	return tx.Commit()
}

// migrateV1 creates the work items table.
func migrateV1(ctx context.Context, tx *sql.Tx) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS work_items (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL CHECK(length(title) > 0),
			summary TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '[]',
			priority INTEGER NOT NULL DEFAULT 1 CHECK(priority >= 0 AND priority <= 3),
			parent_id TEXT REFERENCES work_items(id) ON DELETE CASCADE,
			depth INTEGER NOT NULL DEFAULT 0 CHECK(depth >= 0 AND depth <= 3),
			role TEXT NOT NULL DEFAULT 'queue',
			previous_role TEXT,
			status_label TEXT,
			summary_on_complete TEXT,
			created_at INTEGER NOT NULL,
			modified_at INTEGER NOT NULL,
			role_changed_at INTEGER NOT NULL,
			CHECK (
				(role = 'blocked' AND previous_role IN ('queue', 'work', 'review')) OR
				(role <> 'blocked' AND previous_role IS NULL)
			)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_role ON work_items(role)`,
		`CREATE INDEX IF NOT EXISTS idx_items_parent ON work_items(parent_id)`,
	}

	for _, query := range queries {
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w\nQuery: %s", err, query)
		}
	}

	return nil
}

// migrateV2 creates the notes and dependencies tables.
func migrateV2(ctx context.Context, tx *sql.Tx) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS notes (
			id TEXT PRIMARY KEY,
			item_id TEXT NOT NULL REFERENCES work_items(id) ON DELETE CASCADE,
			key TEXT NOT NULL,
			role TEXT NOT NULL CHECK(role IN ('queue', 'work', 'review')),
			body TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			modified_at INTEGER NOT NULL,
			UNIQUE(item_id, key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_item ON notes(item_id)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_item_role ON notes(item_id, role)`,

		`CREATE TABLE IF NOT EXISTS dependencies (
			id TEXT PRIMARY KEY,
			from_item_id TEXT NOT NULL REFERENCES work_items(id) ON DELETE CASCADE,
			to_item_id TEXT NOT NULL REFERENCES work_items(id) ON DELETE CASCADE,
			type TEXT NOT NULL DEFAULT 'blocks' CHECK(type IN ('blocks', 'is-blocked-by', 'relates-to')),
			unblock_at TEXT,
			created_at INTEGER NOT NULL,
			UNIQUE(from_item_id, to_item_id, type),
			CHECK(from_item_id <> to_item_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_deps_from ON dependencies(from_item_id, type)`,
		`CREATE INDEX IF NOT EXISTS idx_deps_to ON dependencies(to_item_id, type)`,
	}

	for _, query := range queries {
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w\nQuery: %s", err, query)
		}
	}

	return nil
}

// migrateV3 creates the role transitions audit table. No foreign key: audit
// rows survive item deletion.
func migrateV3(ctx context.Context, tx *sql.Tx) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS role_transitions (
			id TEXT PRIMARY KEY,
			item_id TEXT NOT NULL,
			from_role TEXT NOT NULL,
			to_role TEXT NOT NULL,
			from_status_label TEXT,
			to_status_label TEXT,
			"trigger" TEXT NOT NULL,
			summary TEXT,
			transitioned_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transitions_item ON role_transitions(item_id, transitioned_at)`,
		`CREATE INDEX IF NOT EXISTS idx_transitions_time ON role_transitions(transitioned_at)`,
	}

	for _, query := range queries {
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w\nQuery: %s", err, query)
		}
	}

	return nil
}

// migrateV4 adds the recommendation-query index.
func migrateV4(ctx context.Context, tx *sql.Tx) error {
	query := `CREATE INDEX IF NOT EXISTS idx_items_priority_created ON work_items(priority DESC, created_at ASC)`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create scheduling index: %w", err)
	}
	return nil
}
