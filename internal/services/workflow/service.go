// Package workflow implements the three-phase transition handler: resolve the
// trigger to a target role, validate dependency and note gates, then apply the
// change with its cascade and cleanup side effects in one transaction.
package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/ordino/internal/common"
	"github.com/ternarybob/ordino/internal/interfaces"
	"github.com/ternarybob/ordino/internal/models"
)

// maxApplyAttempts bounds the optimistic-concurrency restart loop.
const maxApplyAttempts = 3

// errRoleChanged signals that the item's role moved between validation and
// apply, so the whole three-phase pass must restart.
var errRoleChanged = errors.New("role changed since validation")

// Service drives item transitions.
type Service struct {
	storage interfaces.StorageManager
	schemas interfaces.SchemaService
	logger  arbor.ILogger
}

// NewService creates the workflow service.
func NewService(storage interfaces.StorageManager, schemas interfaces.SchemaService, logger arbor.ILogger) *Service {
	return &Service{storage: storage, schemas: schemas, logger: logger}
}

// Advance resolves, validates and applies one trigger against an item, then
// runs auto-cascade when the policy enables it.
func (s *Service) Advance(ctx context.Context, itemID string, trigger models.Trigger, summary string) (*models.TransitionResult, error) {
	return s.advance(ctx, itemID, trigger, summary, s.schemas.CascadePolicy().MaxDepth)
}

func (s *Service) advance(ctx context.Context, itemID string, trigger models.Trigger, summary string, cascadeBudget int) (*models.TransitionResult, error) {
	var result *models.TransitionResult
	var err error
	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		result, err = s.attemptAdvance(ctx, itemID, trigger, summary)
		if !errors.Is(err, errRoleChanged) {
			break
		}
		s.logger.Debug().Str("item_id", itemID).Int("attempt", attempt+1).
			Msg("Role changed mid-transition, restarting")
	}
	if err != nil {
		if errors.Is(err, errRoleChanged) {
			return nil, models.ConflictErr("item %s kept changing concurrently, giving up", itemID)
		}
		return nil, err
	}

	if s.schemas.CascadePolicy().Enabled {
		s.applyCascades(ctx, result, summaryFromCascade(trigger), cascadeBudget)
	}
	return result, nil
}

// attemptAdvance runs one resolve -> validate -> apply pass.
func (s *Service) attemptAdvance(ctx context.Context, itemID string, trigger models.Trigger, summary string) (*models.TransitionResult, error) {
	item, err := s.storage.Items().GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	schema := s.schemas.SchemaForTags(item.Tags)
	res, err := resolveTransition(item.Role, item.PreviousRole, trigger, schema.HasReviewPhase())
	if err != nil {
		return nil, err
	}

	if err := s.validate(ctx, item, trigger, res.target, schema); err != nil {
		return nil, err
	}

	return s.apply(ctx, item, trigger, res, summary, schema)
}

// validate runs phase 2. Transitions into blocked skip every check; cancel is
// an escape hatch and skips them too.
func (s *Service) validate(ctx context.Context, item *models.WorkItem, trigger models.Trigger, target models.Role, schema *models.NoteSchema) error {
	if target == models.RoleBlocked || trigger == models.TriggerCancel {
		return nil
	}
	if !forwardTransition(item.Role, target) {
		return nil
	}

	blockers, err := checkBlockers(ctx, s.storage.Items(), s.storage.Dependencies(), item.ID)
	if err != nil {
		return err
	}
	if len(blockers) > 0 {
		return models.DependencyErr("transition blocked by unsatisfied dependencies", blockers)
	}

	missing, err := checkNoteGates(ctx, s.storage.Notes(), schema, item)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return models.NoteGateErr("required notes missing for current phase", missing)
	}
	return nil
}

// apply runs phase 3 inside a single transaction: re-read, write the role
// change, append the audit row, run cleanup and compute cascade suggestions.
func (s *Service) apply(ctx context.Context, validated *models.WorkItem, trigger models.Trigger, res resolution, summary string, schema *models.NoteSchema) (*models.TransitionResult, error) {
	result := &models.TransitionResult{NewRole: res.target}
	now := time.Now().UTC()

	err := s.storage.RunInTransaction(ctx, func(tx interfaces.Transaction) error {
		item, err := tx.Items().GetItem(ctx, validated.ID)
		if err != nil {
			return err
		}
		if item.Role != validated.Role {
			return errRoleChanged
		}

		fromRole := item.Role
		fromLabel := item.StatusLabel

		switch {
		case res.target == models.RoleBlocked:
			prev := item.Role
			item.PreviousRole = &prev
			// status label preserved while blocked
		case fromRole == models.RoleBlocked:
			item.PreviousRole = nil
			item.StatusLabel = nil
		default:
			item.StatusLabel = nil
		}
		if res.statusLabel != nil {
			item.StatusLabel = res.statusLabel
		}
		if res.target == models.RoleTerminal && summary != "" {
			item.SummaryOnComplete = &summary
		}

		item.Role = res.target
		item.ModifiedAt = now
		item.RoleChangedAt = now

		if err := tx.Items().UpdateItem(ctx, item); err != nil {
			return err
		}

		audit := &models.RoleTransition{
			ID:              common.NewTransitionID(),
			ItemID:          item.ID,
			FromRole:        fromRole,
			ToRole:          item.Role,
			FromStatusLabel: fromLabel,
			ToStatusLabel:   item.StatusLabel,
			Trigger:         trigger,
			TransitionedAt:  now,
		}
		if summary != "" {
			audit.Summary = &summary
		}
		if err := tx.Transitions().AppendTransition(ctx, audit); err != nil {
			return err
		}

		if res.target == models.RoleTerminal {
			cleaned, err := s.runCleanup(ctx, tx, item)
			if err != nil {
				return err
			}
			result.CleanedUpIDs = cleaned
		}

		events, err := s.detectCascades(ctx, tx, item, fromRole)
		if err != nil {
			return err
		}
		result.CascadeEvents = events
		result.Item = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Expected notes for the phase just entered, so agents know what to write.
	if phase := models.NoteRole(res.target); phase == models.NoteRoleWork || phase == models.NoteRoleReview {
		expected, err := expectedNotesFor(ctx, s.storage.Notes(), schema, result.Item.ID, phase)
		if err == nil {
			result.ExpectedNotes = expected
		}
	}

	s.logger.Info().
		Str("item_id", result.Item.ID).
		Str("trigger", string(trigger)).
		Str("role", string(result.Item.Role)).
		Msg("Transition applied")
	return result, nil
}

// DryRun resolves and validates without writing anything.
func (s *Service) DryRun(ctx context.Context, itemID string, trigger models.Trigger) (*models.DryRunResult, error) {
	item, err := s.storage.Items().GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	schema := s.schemas.SchemaForTags(item.Tags)
	res, err := resolveTransition(item.Role, item.PreviousRole, trigger, schema.HasReviewPhase())
	if err != nil {
		return nil, err
	}

	out := &models.DryRunResult{
		ItemID:      item.ID,
		CurrentRole: item.Role,
		Trigger:     trigger,
		TargetRole:  res.target,
		StatusLabel: res.statusLabel,
		Valid:       true,
	}

	if res.target != models.RoleBlocked && trigger != models.TriggerCancel && forwardTransition(item.Role, res.target) {
		blockers, err := checkBlockers(ctx, s.storage.Items(), s.storage.Dependencies(), item.ID)
		if err != nil {
			return nil, err
		}
		missing, err := checkNoteGates(ctx, s.storage.Notes(), schema, item)
		if err != nil {
			return nil, err
		}
		out.Blockers = blockers
		out.MissingNotes = missing
		out.Valid = len(blockers) == 0 && len(missing) == 0
	}
	return out, nil
}

// summaryFromCascade maps the originating trigger onto the summary recorded
// for auto-applied cascade transitions.
func summaryFromCascade(trigger models.Trigger) string {
	return "auto-cascade after " + string(trigger)
}

// applyCascades executes suggested transitions up to the recursion budget.
// Failures downgrade the event back to a suggestion rather than failing the
// original transition.
func (s *Service) applyCascades(ctx context.Context, result *models.TransitionResult, summary string, budget int) {
	if budget <= 0 {
		return
	}
	for i := range result.CascadeEvents {
		ev := &result.CascadeEvents[i]
		if ev.Trigger == "" || ev.Applied {
			continue
		}
		inner, err := s.advance(ctx, ev.ItemID, ev.Trigger, summary, budget-1)
		if err != nil {
			ev.Detail = models.AsDomainError(err).Message
			s.logger.Debug().Str("item_id", ev.ItemID).Str("trigger", string(ev.Trigger)).
				Err(err).Msg("Cascade suggestion not applied")
			continue
		}
		ev.Applied = true
		result.CascadeEvents = append(result.CascadeEvents, inner.CascadeEvents...)
		result.CleanedUpIDs = append(result.CleanedUpIDs, inner.CleanedUpIDs...)
	}
}
