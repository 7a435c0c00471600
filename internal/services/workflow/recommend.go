package workflow

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/ordino/internal/interfaces"
	"github.com/ternarybob/ordino/internal/models"
)

// Recommender answers the read-only scheduling queries behind get_next_item
// and get_blocked_items.
type Recommender struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

// NewRecommender creates the recommendation service.
func NewRecommender(storage interfaces.StorageManager, logger arbor.ILogger) *Recommender {
	return &Recommender{storage: storage, logger: logger}
}

// NextItems returns workable items: not blocked, not terminal, and with every
// blocking dependency satisfied. Ordering follows the storage default of
// (priority desc, created_at asc). parentID narrows the scope to one subtree
// level.
func (r *Recommender) NextItems(ctx context.Context, parentID *string, limit int) ([]*models.WorkItem, error) {
	candidates, err := r.storage.Items().SearchItems(ctx, models.ItemFilter{ParentID: parentID})
	if err != nil {
		return nil, err
	}

	var out []*models.WorkItem
	for _, item := range candidates {
		if item.Role == models.RoleTerminal || item.Role == models.RoleBlocked {
			continue
		}
		blockers, err := checkBlockers(ctx, r.storage.Items(), r.storage.Dependencies(), item.ID)
		if err != nil {
			return nil, err
		}
		if len(blockers) > 0 {
			continue
		}
		out = append(out, item)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// BlockedItems returns every item that cannot progress right now: items in the
// blocked role, plus items with at least one unsatisfied blocking dependency.
func (r *Recommender) BlockedItems(ctx context.Context) ([]*models.BlockedItem, error) {
	candidates, err := r.storage.Items().SearchItems(ctx, models.ItemFilter{})
	if err != nil {
		return nil, err
	}

	var out []*models.BlockedItem
	for _, item := range candidates {
		if item.Role == models.RoleTerminal {
			continue
		}
		blockers, err := checkBlockers(ctx, r.storage.Items(), r.storage.Dependencies(), item.ID)
		if err != nil {
			return nil, err
		}
		if len(blockers) == 0 && item.Role != models.RoleBlocked {
			continue
		}
		out = append(out, &models.BlockedItem{Item: item, Blockers: blockers})
	}
	return out, nil
}
