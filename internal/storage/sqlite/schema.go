package sqlite

// schemaSQL is the create-if-absent schema used when versioned migrations are
// disabled (USE_FLYWAY=false). It must stay equivalent to the terminal state
// of the migration chain in migrations.go.
const schemaSQL = `
-- Work items table
CREATE TABLE IF NOT EXISTS work_items (
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
	-- previous_role discipline: set exactly while blocked
	CHECK (
		(role = 'blocked' AND previous_role IN ('queue', 'work', 'review')) OR
		(role <> 'blocked' AND previous_role IS NULL)
	)
);

CREATE INDEX IF NOT EXISTS idx_items_role ON work_items(role);
CREATE INDEX IF NOT EXISTS idx_items_parent ON work_items(parent_id);
CREATE INDEX IF NOT EXISTS idx_items_priority_created ON work_items(priority DESC, created_at ASC);

-- Notes table
CREATE TABLE IF NOT EXISTS notes (
	id TEXT PRIMARY KEY,
	item_id TEXT NOT NULL REFERENCES work_items(id) ON DELETE CASCADE,
	key TEXT NOT NULL,
	role TEXT NOT NULL CHECK(role IN ('queue', 'work', 'review')),
	body TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	modified_at INTEGER NOT NULL,
	UNIQUE(item_id, key)
);

CREATE INDEX IF NOT EXISTS idx_notes_item ON notes(item_id);
CREATE INDEX IF NOT EXISTS idx_notes_item_role ON notes(item_id, role);

-- Dependencies table
CREATE TABLE IF NOT EXISTS dependencies (
	id TEXT PRIMARY KEY,
	from_item_id TEXT NOT NULL REFERENCES work_items(id) ON DELETE CASCADE,
	to_item_id TEXT NOT NULL REFERENCES work_items(id) ON DELETE CASCADE,
	type TEXT NOT NULL DEFAULT 'blocks' CHECK(type IN ('blocks', 'is-blocked-by', 'relates-to')),
	unblock_at TEXT,
	created_at INTEGER NOT NULL,
	UNIQUE(from_item_id, to_item_id, type),
	CHECK(from_item_id <> to_item_id)
);

CREATE INDEX IF NOT EXISTS idx_deps_from ON dependencies(from_item_id, type);
CREATE INDEX IF NOT EXISTS idx_deps_to ON dependencies(to_item_id, type);

-- Role transitions audit log. Deliberately no foreign key: audit rows must
-- survive item deletion and completion cleanup.
CREATE TABLE IF NOT EXISTS role_transitions (
	id TEXT PRIMARY KEY,
	item_id TEXT NOT NULL,
	from_role TEXT NOT NULL,
	to_role TEXT NOT NULL,
	from_status_label TEXT,
	to_status_label TEXT,
	"trigger" TEXT NOT NULL,
	summary TEXT,
	transitioned_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transitions_item ON role_transitions(item_id, transitioned_at);
CREATE INDEX IF NOT EXISTS idx_transitions_time ON role_transitions(transitioned_at);
`

// InitSchema initializes the database schema in one pass.
func (s *SQLiteDB) InitSchema() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return err
	}
	s.logger.Info().Msg("Database schema initialized")
	return nil
}
