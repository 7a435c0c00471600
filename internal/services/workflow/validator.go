package workflow

import (
	"context"

	"github.com/ternarybob/ordino/internal/interfaces"
	"github.com/ternarybob/ordino/internal/models"
)

// checkBlockers returns the unsatisfied blocking edges gating item. A
// dependency is satisfied when the blocker's role is at-or-beyond the edge's
// threshold; blocked blockers (ordinal -1) and missing blockers never satisfy.
func checkBlockers(ctx context.Context, items interfaces.ItemStorage, deps interfaces.DependencyStorage, itemID string) ([]models.BlockerInfo, error) {
	edges, err := deps.ListBlocking(ctx, itemID)
	if err != nil {
		return nil, err
	}

	var unsatisfied []models.BlockerInfo
	for _, edge := range edges {
		threshold := edge.Threshold()
		blocker, err := items.GetItem(ctx, edge.BlockerID())
		if err != nil {
			if models.AsDomainError(err).Code == models.CodeNotFound {
				// Missing blocker counts as unsatisfied, worst case.
				unsatisfied = append(unsatisfied, models.BlockerInfo{
					DependencyID:  edge.ID,
					BlockerItemID: edge.BlockerID(),
					RequiredRole:  threshold,
					Missing:       true,
				})
				continue
			}
			return nil, err
		}

		// Thresholds are >= 0, so a blocked blocker (ordinal -1) never passes.
		if blocker.Role.Ordinal() < threshold.Ordinal() {
			unsatisfied = append(unsatisfied, models.BlockerInfo{
				DependencyID:  edge.ID,
				BlockerItemID: blocker.ID,
				BlockerRole:   blocker.Role,
				RequiredRole:  threshold,
			})
		}
	}
	return unsatisfied, nil
}

// checkNoteGates returns the required notes of the phase being left that have
// no non-empty note yet. Only queue, work and review have note phases, so
// leaving blocked never gates.
func checkNoteGates(ctx context.Context, notes interfaces.NoteStorage, schema *models.NoteSchema, item *models.WorkItem) ([]models.ExpectedNote, error) {
	if schema == nil {
		return nil, nil
	}

	leavingPhase := models.NoteRole(item.Role)
	switch leavingPhase {
	case models.NoteRoleQueue, models.NoteRoleWork, models.NoteRoleReview:
	default:
		return nil, nil
	}

	existing, err := notes.ListNotes(ctx, item.ID, nil)
	if err != nil {
		return nil, err
	}
	bodies := make(map[string]string, len(existing))
	for _, n := range existing {
		bodies[n.Key] = n.Body
	}

	var missing []models.ExpectedNote
	for _, entry := range schema.Entries {
		if !entry.Required || entry.Role != leavingPhase {
			continue
		}
		if bodies[entry.Key] != "" {
			continue
		}
		missing = append(missing, models.ExpectedNote{
			Key:      entry.Key,
			Role:     entry.Role,
			Required: true,
			Guidance: entry.Guidance,
		})
	}
	return missing, nil
}

// expectedNotesFor lists the schema entries of one phase together with whether
// a satisfying note already exists.
func expectedNotesFor(ctx context.Context, notes interfaces.NoteStorage, schema *models.NoteSchema, itemID string, phase models.NoteRole) ([]models.ExpectedNote, error) {
	if schema == nil {
		return nil, nil
	}

	existing, err := notes.ListNotes(ctx, itemID, nil)
	if err != nil {
		return nil, err
	}
	bodies := make(map[string]string, len(existing))
	for _, n := range existing {
		bodies[n.Key] = n.Body
	}

	var expected []models.ExpectedNote
	for _, entry := range schema.Entries {
		if entry.Role != phase {
			continue
		}
		expected = append(expected, models.ExpectedNote{
			Key:      entry.Key,
			Role:     entry.Role,
			Required: entry.Required,
			Exists:   bodies[entry.Key] != "",
			Guidance: entry.Guidance,
		})
	}
	return expected, nil
}
