package sqlite

import (
	"database/sql"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/ordino/internal/common"
	"github.com/ternarybob/ordino/internal/interfaces"
)

// Manager implements the StorageManager interface.
type Manager struct {
	db           *SQLiteDB
	showSQL      bool
	items        interfaces.ItemStorage
	notes        interfaces.NoteStorage
	dependencies interfaces.DependencyStorage
	transitions  interfaces.TransitionStorage
	logger       arbor.ILogger
}

// NewManager creates a new SQLite storage manager.
func NewManager(logger arbor.ILogger, config *common.SQLiteConfig) (interfaces.StorageManager, error) {
	db, err := NewSQLiteDB(logger, config)
	if err != nil {
		return nil, err
	}

	showSQL := config.ShowSQL
	return &Manager{
		db:           db,
		showSQL:      showSQL,
		items:        newItemStorage(db.db, logger, showSQL),
		notes:        newNoteStorage(db.db, logger, showSQL),
		dependencies: newDependencyStorage(db.db, logger, showSQL),
		transitions:  newTransitionStorage(db.db, logger, showSQL),
		logger:       logger,
	}, nil
}

// Items returns the work item repository.
func (m *Manager) Items() interfaces.ItemStorage {
	return m.items
}

// Notes returns the note repository.
func (m *Manager) Notes() interfaces.NoteStorage {
	return m.notes
}

// Dependencies returns the dependency repository.
func (m *Manager) Dependencies() interfaces.DependencyStorage {
	return m.dependencies
}

// Transitions returns the audit log repository.
func (m *Manager) Transitions() interfaces.TransitionStorage {
	return m.transitions
}

// DB returns the underlying database connection.
func (m *Manager) DB() *sql.DB {
	return m.db.DB()
}

// Close closes the database connection.
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
