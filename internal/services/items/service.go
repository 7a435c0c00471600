// Package items is the domain layer behind manage_items, query_items,
// create_work_tree and get_context.
package items

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/ordino/internal/common"
	"github.com/ternarybob/ordino/internal/interfaces"
	"github.com/ternarybob/ordino/internal/models"
)

// validate enforces the shape rules declared on the request structs.
var validate = validator.New()

// Service implements interfaces.ItemService.
type Service struct {
	storage     interfaces.StorageManager
	schemas     interfaces.SchemaService
	recommender interfaces.RecommendationService
	logger      arbor.ILogger
}

// NewService creates the item service.
func NewService(storage interfaces.StorageManager, schemas interfaces.SchemaService, recommender interfaces.RecommendationService, logger arbor.ILogger) *Service {
	return &Service{storage: storage, schemas: schemas, recommender: recommender, logger: logger}
}

// CreateItem validates and persists one new work item in the queue role.
func (s *Service) CreateItem(ctx context.Context, req *models.CreateItemRequest) (*models.WorkItem, error) {
	item, err := s.buildItem(ctx, s.storage.Items(), req)
	if err != nil {
		return nil, err
	}
	if err := s.storage.Items().CreateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// buildItem validates a create request against an item repository (the shared
// pool or a transaction) and returns the item ready for insertion.
func (s *Service) buildItem(ctx context.Context, repo interfaces.ItemStorage, req *models.CreateItemRequest) (*models.WorkItem, error) {
	// Normalize before validating so "  " fails required and " a"/"a" fail
	// unique.
	req.Title = strings.TrimSpace(req.Title)
	req.Tags = normalizeTags(req.Tags)
	if err := validate.Struct(req); err != nil {
		return nil, models.ValidationErr("invalid item: %v", err)
	}
	priority, err := models.ParsePriority(req.Priority)
	if err != nil {
		return nil, models.ValidationErr("%v", err)
	}

	depth := 0
	if req.ParentID != nil {
		parent, err := repo.GetItem(ctx, *req.ParentID)
		if err != nil {
			return nil, err
		}
		depth = parent.Depth + 1
		if depth > models.MaxDepth {
			return nil, models.ValidationErr("cannot create item below depth %d (parent %s is already at depth %d)",
				models.MaxDepth, parent.ID, parent.Depth)
		}
	}

	now := time.Now().UTC()
	return &models.WorkItem{
		ID:            common.NewItemID(),
		Title:         req.Title,
		Summary:       req.Summary,
		Tags:          req.Tags,
		Priority:      priority,
		ParentID:      req.ParentID,
		Depth:         depth,
		Role:          models.RoleQueue,
		CreatedAt:     now,
		ModifiedAt:    now,
		RoleChangedAt: now,
	}, nil
}

// UpdateItem applies the non-nil fields of the request. Role changes are the
// transition handler's business and are not accepted here.
func (s *Service) UpdateItem(ctx context.Context, req *models.UpdateItemRequest) (*models.WorkItem, error) {
	if req.Tags != nil {
		normalized := normalizeTags(*req.Tags)
		req.Tags = &normalized
	}
	if err := validate.Struct(req); err != nil {
		return nil, models.ValidationErr("invalid update: %v", err)
	}

	item, err := s.storage.Items().GetItem(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, models.ValidationErr("title cannot be empty")
		}
		item.Title = title
	}
	if req.Summary != nil {
		item.Summary = *req.Summary
	}
	if req.Tags != nil {
		item.Tags = *req.Tags
	}
	if req.Priority != nil {
		priority, err := models.ParsePriority(*req.Priority)
		if err != nil {
			return nil, models.ValidationErr("%v", err)
		}
		item.Priority = priority
	}
	if req.StatusLabel != nil {
		if *req.StatusLabel == "" {
			item.StatusLabel = nil
		} else {
			item.StatusLabel = req.StatusLabel
		}
	}

	item.ModifiedAt = time.Now().UTC()
	if err := s.storage.Items().UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem removes an item and, through foreign keys, its subtree, notes and
// dependency edges.
func (s *Service) DeleteItem(ctx context.Context, id string) error {
	return s.storage.Items().DeleteItem(ctx, id)
}

// GetItem retrieves one item.
func (s *Service) GetItem(ctx context.Context, id string) (*models.WorkItem, error) {
	return s.storage.Items().GetItem(ctx, id)
}

// SearchItems runs a filtered search.
func (s *Service) SearchItems(ctx context.Context, filter models.ItemFilter) ([]*models.WorkItem, error) {
	return s.storage.Items().SearchItems(ctx, filter)
}

// Overview returns the hierarchical walk from rootID down to the leaves.
func (s *Service) Overview(ctx context.Context, rootID string) (*models.OverviewNode, error) {
	return s.storage.Items().Overview(ctx, rootID, models.MaxDepth)
}

// Export snapshots an item subtree with its notes and dependency edges.
func (s *Service) Export(ctx context.Context, rootID string) (*models.ItemExport, error) {
	item, err := s.storage.Items().GetItem(ctx, rootID)
	if err != nil {
		return nil, err
	}
	return s.exportItem(ctx, item)
}

func (s *Service) exportItem(ctx context.Context, item *models.WorkItem) (*models.ItemExport, error) {
	notes, err := s.storage.Notes().ListNotes(ctx, item.ID, nil)
	if err != nil {
		return nil, err
	}
	deps, err := s.storage.Dependencies().ListForItem(ctx, item.ID)
	if err != nil {
		return nil, err
	}

	export := &models.ItemExport{Item: item, Notes: notes, Dependencies: deps}

	children, err := s.storage.Items().ListChildren(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		childExport, err := s.exportItem(ctx, child)
		if err != nil {
			return nil, err
		}
		export.Children = append(export.Children, childExport)
	}
	return export, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, strings.TrimSpace(tag))
	}
	return out
}
