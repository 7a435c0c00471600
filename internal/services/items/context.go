package items

import (
	"context"

	"github.com/ternarybob/ordino/internal/models"
)

// ItemContext assembles everything an agent needs before touching an item:
// breadcrumbs, the active schema, expected notes for the current phase and
// whether the note gate would let it advance.
func (s *Service) ItemContext(ctx context.Context, itemID string) (*models.ItemContext, error) {
	item, err := s.storage.Items().GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	breadcrumbs, err := s.storage.Items().ListAncestors(ctx, itemID)
	if err != nil {
		return nil, err
	}

	schema := s.schemas.SchemaForTags(item.Tags)
	out := &models.ItemContext{
		Item:        item,
		Breadcrumbs: breadcrumbs,
		Schema:      schema,
		SchemaFree:  schema == nil,
		GateStatus:  models.GateStatus{CanAdvance: true, MissingRequiredNotes: []string{}},
	}
	if schema == nil {
		return out, nil
	}

	notes, err := s.storage.Notes().ListNotes(ctx, itemID, nil)
	if err != nil {
		return nil, err
	}
	bodies := make(map[string]string, len(notes))
	for _, n := range notes {
		bodies[n.Key] = n.Body
	}

	phase := models.NoteRole(item.Role)
	for _, entry := range schema.Entries {
		if entry.Role != phase {
			continue
		}
		exists := bodies[entry.Key] != ""
		out.ExpectedNotes = append(out.ExpectedNotes, models.ExpectedNote{
			Key:      entry.Key,
			Role:     entry.Role,
			Required: entry.Required,
			Exists:   exists,
			Guidance: entry.Guidance,
		})
		if entry.Required && !exists {
			out.GateStatus.CanAdvance = false
			out.GateStatus.MissingRequiredNotes = append(out.GateStatus.MissingRequiredNotes, entry.Key)
			if out.GuidancePointer == "" && entry.Guidance != "" {
				out.GuidancePointer = entry.Guidance
			}
		}
	}
	return out, nil
}

// BoardContext summarizes where work sits right now: in-flight items, items
// awaiting review, blocked items with their blockers, and queue items whose
// dependencies are already satisfied.
func (s *Service) BoardContext(ctx context.Context) (*models.BoardContext, error) {
	work := models.RoleWork
	active, err := s.storage.Items().SearchItems(ctx, models.ItemFilter{Role: &work})
	if err != nil {
		return nil, err
	}

	review := models.RoleReview
	inReview, err := s.storage.Items().SearchItems(ctx, models.ItemFilter{Role: &review})
	if err != nil {
		return nil, err
	}

	blocked, err := s.recommender.BlockedItems(ctx)
	if err != nil {
		return nil, err
	}

	ready, err := s.recommender.NextItems(ctx, nil, 0)
	if err != nil {
		return nil, err
	}
	var stalled []*models.WorkItem
	for _, item := range ready {
		if item.Role == models.RoleQueue {
			stalled = append(stalled, item)
		}
	}

	return &models.BoardContext{
		Active:  active,
		Review:  inReview,
		Blocked: blocked,
		Stalled: stalled,
	}, nil
}
