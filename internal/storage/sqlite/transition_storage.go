package sqlite

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/ordino/internal/models"
)

const transitionColumns = `id, item_id, from_role, to_role, from_status_label,
	to_status_label, "trigger", summary, transitioned_at`

// transitionStorage is the append-only audit log. There is no update or delete
// path: transition history outlives the items it describes.
type transitionStorage struct {
	db      queryer
	logger  arbor.ILogger
	showSQL bool
}

func newTransitionStorage(db queryer, logger arbor.ILogger, showSQL bool) *transitionStorage {
	return &transitionStorage{db: db, logger: logger, showSQL: showSQL}
}

// AppendTransition records one role change.
func (s *transitionStorage) AppendTransition(ctx context.Context, t *models.RoleTransition) error {
	query := `
		INSERT INTO role_transitions (` + transitionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	traceSQL(s.logger, s.showSQL, query)

	_, err := s.db.ExecContext(ctx, query,
		t.ID, t.ItemID, string(t.FromRole), string(t.ToRole),
		t.FromStatusLabel, t.ToStatusLabel, string(t.Trigger), t.Summary,
		t.TransitionedAt.Unix())
	if err != nil {
		return models.DatabaseErr(err, "failed to append transition for %s", t.ItemID)
	}
	return nil
}

// ListTransitionsForItem returns the transition history of one item, oldest
// first.
func (s *transitionStorage) ListTransitionsForItem(ctx context.Context, itemID string) ([]*models.RoleTransition, error) {
	query := `SELECT ` + transitionColumns + ` FROM role_transitions
		WHERE item_id = ? ORDER BY transitioned_at ASC, id ASC`
	return s.queryTransitions(ctx, query, itemID)
}

// ListTransitionsSince returns transitions at or after the given instant.
func (s *transitionStorage) ListTransitionsSince(ctx context.Context, since time.Time) ([]*models.RoleTransition, error) {
	query := `SELECT ` + transitionColumns + ` FROM role_transitions
		WHERE transitioned_at >= ? ORDER BY transitioned_at ASC, id ASC`
	return s.queryTransitions(ctx, query, since.Unix())
}

// ListTransitionsRange returns transitions within [from, to].
func (s *transitionStorage) ListTransitionsRange(ctx context.Context, from, to time.Time) ([]*models.RoleTransition, error) {
	query := `SELECT ` + transitionColumns + ` FROM role_transitions
		WHERE transitioned_at >= ? AND transitioned_at <= ?
		ORDER BY transitioned_at ASC, id ASC`
	return s.queryTransitions(ctx, query, from.Unix(), to.Unix())
}

func (s *transitionStorage) queryTransitions(ctx context.Context, query string, args ...interface{}) ([]*models.RoleTransition, error) {
	traceSQL(s.logger, s.showSQL, query)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, models.DatabaseErr(err, "failed to query transitions")
	}
	defer rows.Close()

	var transitions []*models.RoleTransition
	for rows.Next() {
		var t models.RoleTransition
		var fromRole, toRole, trigger string
		var transitionedAt int64

		err := rows.Scan(&t.ID, &t.ItemID, &fromRole, &toRole,
			&t.FromStatusLabel, &t.ToStatusLabel, &trigger, &t.Summary, &transitionedAt)
		if err != nil {
			return nil, models.DatabaseErr(err, "failed to scan transition")
		}

		t.FromRole = models.Role(fromRole)
		t.ToRole = models.Role(toRole)
		t.Trigger = models.Trigger(trigger)
		t.TransitionedAt = time.Unix(transitionedAt, 0).UTC()
		transitions = append(transitions, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, models.DatabaseErr(err, "failed to iterate transitions")
	}
	return transitions, nil
}
