package items

import (
	"context"
	"time"

	"github.com/ternarybob/ordino/internal/common"
	"github.com/ternarybob/ordino/internal/interfaces"
	"github.com/ternarybob/ordino/internal/models"
)

// rootRef addresses the root item in work-tree dependencies and notes.
const rootRef = "root"

// CreateWorkTree builds a root item, its children, dependencies between them
// and initial notes in one transaction. Any violation rejects the whole tree.
func (s *Service) CreateWorkTree(ctx context.Context, req *models.WorkTreeRequest) (*models.WorkTreeResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, models.ValidationErr("invalid work tree: %v", err)
	}
	if err := validateTreeRefs(req); err != nil {
		return nil, err
	}

	result := &models.WorkTreeResult{Children: map[string]string{}}
	err := s.storage.RunInTransaction(ctx, func(tx interfaces.Transaction) error {
		root, err := s.buildItem(ctx, tx.Items(), &req.Root)
		if err != nil {
			return err
		}
		if err := tx.Items().CreateItem(ctx, root); err != nil {
			return err
		}
		result.Root = root

		refs := map[string]string{rootRef: root.ID}
		for _, childReq := range req.Children {
			child, err := s.buildItem(ctx, tx.Items(), &models.CreateItemRequest{
				Title:    childReq.Title,
				Summary:  childReq.Summary,
				Tags:     childReq.Tags,
				Priority: childReq.Priority,
				ParentID: &root.ID,
			})
			if err != nil {
				return err
			}
			if err := tx.Items().CreateItem(ctx, child); err != nil {
				return err
			}
			refs[childReq.Ref] = child.ID
			result.Children[childReq.Ref] = child.ID
		}

		for _, depReq := range req.Deps {
			dep, err := buildTreeDependency(refs, depReq)
			if err != nil {
				return err
			}
			if err := tx.Dependencies().CreateDependency(ctx, dep); err != nil {
				return err
			}
			result.DepIDs = append(result.DepIDs, dep.ID)
		}

		now := time.Now().UTC()
		for _, noteReq := range req.Notes {
			itemID, ok := refs[noteReq.Ref]
			if !ok {
				return models.ValidationErr("note references unknown ref %q", noteReq.Ref)
			}
			role, err := models.ParseNoteRole(noteReq.Role)
			if err != nil {
				return models.ValidationErr("%v", err)
			}
			if !models.ValidNoteKey(noteReq.Key) {
				return models.ValidationErr("invalid note key %q", noteReq.Key)
			}
			note, err := tx.Notes().UpsertNote(ctx, &models.Note{
				ID:         common.NewNoteID(),
				ItemID:     itemID,
				Key:        noteReq.Key,
				Role:       role,
				Body:       noteReq.Body,
				CreatedAt:  now,
				ModifiedAt: now,
			})
			if err != nil {
				return err
			}
			result.NoteIDs = append(result.NoteIDs, note.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("root_id", result.Root.ID).
		Int("children", len(result.Children)).
		Msg("Created work tree")
	return result, nil
}

func validateTreeRefs(req *models.WorkTreeRequest) error {
	seen := map[string]bool{rootRef: true}
	for _, child := range req.Children {
		if child.Ref == "" {
			return models.ValidationErr("every child needs a ref")
		}
		if seen[child.Ref] {
			return models.ValidationErr("duplicate ref %q", child.Ref)
		}
		seen[child.Ref] = true
	}
	for _, dep := range req.Deps {
		if !seen[dep.FromRef] {
			return models.ValidationErr("dependency references unknown ref %q", dep.FromRef)
		}
		if !seen[dep.ToRef] {
			return models.ValidationErr("dependency references unknown ref %q", dep.ToRef)
		}
	}
	return nil
}

func buildTreeDependency(refs map[string]string, req models.WorkTreeDependency) (*models.Dependency, error) {
	depType, err := models.ParseDependencyType(req.Type)
	if err != nil {
		return nil, models.ValidationErr("%v", err)
	}

	dep := &models.Dependency{
		ID:         common.NewDependencyID(),
		FromItemID: refs[req.FromRef],
		ToItemID:   refs[req.ToRef],
		Type:       depType,
		CreatedAt:  time.Now().UTC(),
	}
	if req.UnblockAt != "" {
		role, err := models.ParseRole(req.UnblockAt)
		if err != nil {
			return nil, models.ValidationErr("%v", err)
		}
		dep.UnblockAt = &role
	}
	return dep, nil
}
