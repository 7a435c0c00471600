package interfaces

import (
	"context"
	"database/sql"
	"time"

	"github.com/ternarybob/ordino/internal/models"
)

// ItemStorage is the repository for work items.
type ItemStorage interface {
	CreateItem(ctx context.Context, item *models.WorkItem) error
	GetItem(ctx context.Context, id string) (*models.WorkItem, error)
	UpdateItem(ctx context.Context, item *models.WorkItem) error
	DeleteItem(ctx context.Context, id string) error
	SearchItems(ctx context.Context, filter models.ItemFilter) ([]*models.WorkItem, error)
	// ListChildren returns the direct children of parentID ordered by
	// (priority desc, created_at asc).
	ListChildren(ctx context.Context, parentID string) ([]*models.WorkItem, error)
	// ListAncestors walks parent pointers from id to the root, nearest first.
	ListAncestors(ctx context.Context, id string) ([]*models.WorkItem, error)
	// Overview returns a hierarchical walk from rootID with per-node child
	// role counts, bounded by maxDepth levels below the root.
	Overview(ctx context.Context, rootID string, maxDepth int) (*models.OverviewNode, error)
	CountChildrenByRole(ctx context.Context, parentID string) (models.RoleCounts, error)
}

// NoteStorage is the repository for notes.
type NoteStorage interface {
	// UpsertNote inserts or replaces the note body for (itemID, key).
	UpsertNote(ctx context.Context, note *models.Note) (*models.Note, error)
	GetNote(ctx context.Context, itemID, key string) (*models.Note, error)
	ListNotes(ctx context.Context, itemID string, role *models.NoteRole) ([]*models.Note, error)
	DeleteNote(ctx context.Context, itemID, key string) error
}

// DependencyStorage is the repository for dependency edges. CreateDependency
// rejects self-edges, duplicate (from,to,type) rows, and inserts that would
// close a directed blocking cycle.
type DependencyStorage interface {
	CreateDependency(ctx context.Context, dep *models.Dependency) error
	GetDependency(ctx context.Context, id string) (*models.Dependency, error)
	DeleteDependency(ctx context.Context, id string) error
	DeleteDependencyBetween(ctx context.Context, fromItemID, toItemID string, depType *models.DependencyType) (int, error)
	DeleteDependenciesForItem(ctx context.Context, itemID string) (int, error)
	ListFrom(ctx context.Context, fromItemID string) ([]*models.Dependency, error)
	ListTo(ctx context.Context, toItemID string) ([]*models.Dependency, error)
	ListForItem(ctx context.Context, itemID string) ([]*models.Dependency, error)
	// ListBlocking returns the blocking edges gating itemID: blocks edges
	// pointing at it plus is-blocked-by edges leaving it.
	ListBlocking(ctx context.Context, itemID string) ([]*models.Dependency, error)
	// ListDependentsOf returns blocking edges where itemID is the blocker.
	ListDependentsOf(ctx context.Context, itemID string) ([]*models.Dependency, error)
}

// TransitionStorage is the append-only audit log repository.
type TransitionStorage interface {
	AppendTransition(ctx context.Context, t *models.RoleTransition) error
	ListTransitionsForItem(ctx context.Context, itemID string) ([]*models.RoleTransition, error)
	ListTransitionsSince(ctx context.Context, since time.Time) ([]*models.RoleTransition, error)
	ListTransitionsRange(ctx context.Context, from, to time.Time) ([]*models.RoleTransition, error)
}

// Transaction exposes the repositories bound to one database transaction.
// Operations share a connection; an error return from the callback rolls the
// whole set back.
type Transaction interface {
	Items() ItemStorage
	Notes() NoteStorage
	Dependencies() DependencyStorage
	Transitions() TransitionStorage
}

// StorageManager aggregates the repositories over one SQLite database.
type StorageManager interface {
	Items() ItemStorage
	Notes() NoteStorage
	Dependencies() DependencyStorage
	Transitions() TransitionStorage

	// RunInTransaction executes fn inside a single BEGIN IMMEDIATE
	// transaction. fn returning nil commits; an error or panic rolls back.
	RunInTransaction(ctx context.Context, fn func(tx Transaction) error) error

	DB() *sql.DB
	Close() error
}
