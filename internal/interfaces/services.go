package interfaces

import (
	"context"

	"github.com/ternarybob/ordino/internal/models"
)

// SchemaService is a read-through over the note schemas loaded at startup.
type SchemaService interface {
	// SchemaForTags returns the schema of the first matching tag, or nil for
	// schema-free mode.
	SchemaForTags(tags []string) *models.NoteSchema
	// HasReviewPhase reports whether the matched schema declares a review
	// entry. Unmatched tags skip the review phase.
	HasReviewPhase(tags []string) bool
	CleanupPolicy() models.CleanupPolicy
	CascadePolicy() models.CascadePolicy
}

// WorkflowService drives the three-phase transition handler.
type WorkflowService interface {
	// Advance resolves, validates and applies one trigger against an item,
	// then runs bounded auto-cascade when enabled.
	Advance(ctx context.Context, itemID string, trigger models.Trigger, summary string) (*models.TransitionResult, error)
	// DryRun resolves and validates without writing.
	DryRun(ctx context.Context, itemID string, trigger models.Trigger) (*models.DryRunResult, error)
}

// RecommendationService answers read-only scheduling queries.
type RecommendationService interface {
	// NextItems returns non-blocked, non-terminal items whose blocking
	// dependencies are satisfied, ordered (priority desc, created_at asc).
	NextItems(ctx context.Context, parentID *string, limit int) ([]*models.WorkItem, error)
	// BlockedItems returns items with at least one unsatisfied blocking edge.
	BlockedItems(ctx context.Context) ([]*models.BlockedItem, error)
}

// ItemService is the domain layer behind manage_items, query_items,
// create_work_tree and get_context.
type ItemService interface {
	CreateItem(ctx context.Context, req *models.CreateItemRequest) (*models.WorkItem, error)
	UpdateItem(ctx context.Context, req *models.UpdateItemRequest) (*models.WorkItem, error)
	DeleteItem(ctx context.Context, id string) error
	GetItem(ctx context.Context, id string) (*models.WorkItem, error)
	SearchItems(ctx context.Context, filter models.ItemFilter) ([]*models.WorkItem, error)
	Overview(ctx context.Context, rootID string) (*models.OverviewNode, error)
	Export(ctx context.Context, rootID string) (*models.ItemExport, error)
	CreateWorkTree(ctx context.Context, req *models.WorkTreeRequest) (*models.WorkTreeResult, error)
	ItemContext(ctx context.Context, itemID string) (*models.ItemContext, error)
	BoardContext(ctx context.Context) (*models.BoardContext, error)
}
