package workflow

import (
	"context"

	"github.com/ternarybob/ordino/internal/interfaces"
	"github.com/ternarybob/ordino/internal/models"
)

// detectCascades inspects the tree and dependency graph around a just-applied
// transition and returns follow-up suggestions. It runs inside the applying
// transaction so the snapshot is consistent with the write.
func (s *Service) detectCascades(ctx context.Context, tx interfaces.Transaction, item *models.WorkItem, fromRole models.Role) ([]models.CascadeEvent, error) {
	var events []models.CascadeEvent

	parentEvents, err := s.detectParentCascades(ctx, tx, item)
	if err != nil {
		return nil, err
	}
	events = append(events, parentEvents...)

	if forwardTransition(fromRole, item.Role) {
		unblocked, err := s.detectUnblockedDependents(ctx, tx, item)
		if err != nil {
			return nil, err
		}
		events = append(events, unblocked...)
	}
	return events, nil
}

func (s *Service) detectParentCascades(ctx context.Context, tx interfaces.Transaction, item *models.WorkItem) ([]models.CascadeEvent, error) {
	if item.ParentID == nil {
		return nil, nil
	}

	parent, err := tx.Items().GetItem(ctx, *item.ParentID)
	if err != nil {
		if models.AsDomainError(err).Code == models.CodeNotFound {
			return nil, nil
		}
		return nil, err
	}

	var events []models.CascadeEvent

	// First child entering work while the parent still queues.
	if item.Role == models.RoleWork && parent.Role == models.RoleQueue {
		events = append(events, models.CascadeEvent{
			Type:    models.CascadeParentStart,
			ItemID:  parent.ID,
			Trigger: models.TriggerStart,
			Detail:  "child entered work",
		})
	}

	// Every child terminal: the parent can move forward.
	if item.Role == models.RoleTerminal && parent.Role != models.RoleTerminal && parent.Role != models.RoleBlocked {
		counts, err := tx.Items().CountChildrenByRole(ctx, parent.ID)
		if err != nil {
			return nil, err
		}
		if counts.Total() > 0 && counts.Terminal == counts.Total() {
			events = append(events, models.CascadeEvent{
				Type:    models.CascadeParentAdvance,
				ItemID:  parent.ID,
				Trigger: models.TriggerStart,
				Detail:  "all children terminal",
			})
		}
	}
	return events, nil
}

// detectUnblockedDependents reports the dependents whose last unsatisfied
// blocking edge was cleared by this transition.
func (s *Service) detectUnblockedDependents(ctx context.Context, tx interfaces.Transaction, item *models.WorkItem) ([]models.CascadeEvent, error) {
	edges, err := tx.Dependencies().ListDependentsOf(ctx, item.ID)
	if err != nil {
		return nil, err
	}

	var freed []string
	seen := map[string]bool{}
	for _, edge := range edges {
		dependentID := edge.DependentID()
		if seen[dependentID] {
			continue
		}
		seen[dependentID] = true

		// This edge must have just crossed its threshold.
		if item.Role.Ordinal() < edge.Threshold().Ordinal() {
			continue
		}

		remaining, err := checkBlockers(ctx, tx.Items(), tx.Dependencies(), dependentID)
		if err != nil {
			return nil, err
		}
		if len(remaining) == 0 {
			freed = append(freed, dependentID)
		}
	}

	if len(freed) == 0 {
		return nil, nil
	}
	return []models.CascadeEvent{{
		Type:    models.CascadeDependentsUnblocked,
		ItemID:  item.ID,
		ItemIDs: freed,
		Detail:  "blocking threshold crossed",
	}}, nil
}
