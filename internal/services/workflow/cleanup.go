package workflow

import (
	"context"

	"github.com/ternarybob/ordino/internal/interfaces"
	"github.com/ternarybob/ordino/internal/models"
)

// runCleanup deletes the direct children of a completed parent, keeping any
// child carrying a retain tag. Grandchildren, notes and dependency edges go
// with their subtree via foreign-key cascade; audit rows stay. Returns the
// deleted item IDs.
func (s *Service) runCleanup(ctx context.Context, tx interfaces.Transaction, item *models.WorkItem) ([]string, error) {
	policy := s.schemas.CleanupPolicy()
	if !policy.Enabled {
		return nil, nil
	}

	// Cleanup is feature semantics: the completing item's children are leaf
	// tasks. Projects and mid-tree parents keep their children.
	if item.Depth != models.MaxDepth-1 {
		return nil, nil
	}

	children, err := tx.Items().ListChildren(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	if len(children) == 0 {
		return nil, nil
	}

	retain := policy.RetainSet()
	var deleted []string
	for _, child := range children {
		if child.HasAnyTag(retain) {
			continue
		}
		if err := tx.Items().DeleteItem(ctx, child.ID); err != nil {
			return nil, err
		}
		deleted = append(deleted, child.ID)
	}

	if len(deleted) > 0 {
		s.logger.Info().
			Str("item_id", item.ID).
			Int("deleted", len(deleted)).
			Msg("Completion cleanup removed child tasks")
	}
	return deleted, nil
}
