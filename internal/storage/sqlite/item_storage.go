package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/ordino/internal/models"
)

const itemColumns = `id, title, summary, tags, priority, parent_id, depth, role,
	previous_role, status_label, summary_on_complete, created_at, modified_at, role_changed_at`

// itemStorage implements interfaces.ItemStorage over one queryer, so the same
// code serves the shared pool and transaction-bound connections.
type itemStorage struct {
	db      queryer
	logger  arbor.ILogger
	showSQL bool
}

func newItemStorage(db queryer, logger arbor.ILogger, showSQL bool) *itemStorage {
	return &itemStorage{db: db, logger: logger, showSQL: showSQL}
}

// CreateItem inserts a new work item.
func (s *itemStorage) CreateItem(ctx context.Context, item *models.WorkItem) error {
	tags, err := json.Marshal(item.Tags)
	if err != nil {
		return models.InternalErr(err, "failed to encode tags")
	}

	query := `
		INSERT INTO work_items (` + itemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	traceSQL(s.logger, s.showSQL, query)

	_, err = s.db.ExecContext(ctx, query,
		item.ID, item.Title, item.Summary, string(tags), item.Priority.Rank(),
		item.ParentID, item.Depth, string(item.Role), rolePtr(item.PreviousRole),
		item.StatusLabel, item.SummaryOnComplete,
		item.CreatedAt.Unix(), item.ModifiedAt.Unix(), item.RoleChangedAt.Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return models.ConflictErr("work item %s already exists", item.ID)
		}
		if isForeignKeyViolation(err) {
			return models.NotFoundErr("parent item %s not found", deref(item.ParentID))
		}
		return models.DatabaseErr(err, "failed to create work item")
	}

	s.logger.Debug().Str("item_id", item.ID).Int("depth", item.Depth).Msg("Created work item")
	return nil
}

// GetItem retrieves a work item by ID.
func (s *itemStorage) GetItem(ctx context.Context, id string) (*models.WorkItem, error) {
	query := `SELECT ` + itemColumns + ` FROM work_items WHERE id = ?`
	traceSQL(s.logger, s.showSQL, query)

	item, err := scanItem(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, models.NotFoundErr("work item %s not found", id)
	}
	if err != nil {
		return nil, models.DatabaseErr(err, "failed to get work item %s", id)
	}
	return item, nil
}

// UpdateItem persists all mutable fields of an existing item.
func (s *itemStorage) UpdateItem(ctx context.Context, item *models.WorkItem) error {
	tags, err := json.Marshal(item.Tags)
	if err != nil {
		return models.InternalErr(err, "failed to encode tags")
	}

	query := `
		UPDATE work_items
		SET title = ?, summary = ?, tags = ?, priority = ?, role = ?,
			previous_role = ?, status_label = ?, summary_on_complete = ?,
			modified_at = ?, role_changed_at = ?
		WHERE id = ?`
	traceSQL(s.logger, s.showSQL, query)

	result, err := s.db.ExecContext(ctx, query,
		item.Title, item.Summary, string(tags), item.Priority.Rank(), string(item.Role),
		rolePtr(item.PreviousRole), item.StatusLabel, item.SummaryOnComplete,
		item.ModifiedAt.Unix(), item.RoleChangedAt.Unix(), item.ID)
	if err != nil {
		return models.DatabaseErr(err, "failed to update work item %s", item.ID)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return models.NotFoundErr("work item %s not found", item.ID)
	}
	return nil
}

// DeleteItem removes an item. Children, notes and dependency edges go with it
// via ON DELETE CASCADE; transition audit rows stay.
func (s *itemStorage) DeleteItem(ctx context.Context, id string) error {
	query := `DELETE FROM work_items WHERE id = ?`
	traceSQL(s.logger, s.showSQL, query)

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return models.DatabaseErr(err, "failed to delete work item %s", id)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return models.NotFoundErr("work item %s not found", id)
	}

	s.logger.Debug().Str("item_id", id).Msg("Deleted work item")
	return nil
}

// SearchItems returns items matching the filter, ordered by priority then age.
func (s *itemStorage) SearchItems(ctx context.Context, filter models.ItemFilter) ([]*models.WorkItem, error) {
	var conditions []string
	var args []interface{}

	if filter.TagSubstring != "" {
		conditions = append(conditions, "tags LIKE ?")
		args = append(args, "%"+filter.TagSubstring+"%")
	}
	if filter.Role != nil {
		conditions = append(conditions, "role = ?")
		args = append(args, string(*filter.Role))
	}
	if filter.Priority != nil {
		conditions = append(conditions, "priority = ?")
		args = append(args, filter.Priority.Rank())
	}
	if filter.ParentID != nil {
		conditions = append(conditions, "parent_id = ?")
		args = append(args, *filter.ParentID)
	}
	if filter.Depth != nil {
		conditions = append(conditions, "depth = ?")
		args = append(args, *filter.Depth)
	}
	if filter.TitleContains != "" {
		conditions = append(conditions, "title LIKE ?")
		args = append(args, "%"+filter.TitleContains+"%")
	}

	query := `SELECT ` + itemColumns + ` FROM work_items`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY priority DESC, created_at ASC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}
	traceSQL(s.logger, s.showSQL, query)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, models.DatabaseErr(err, "failed to search work items")
	}
	defer rows.Close()

	return collectItems(rows)
}

// ListChildren returns the direct children of parentID, most urgent first.
func (s *itemStorage) ListChildren(ctx context.Context, parentID string) ([]*models.WorkItem, error) {
	query := `SELECT ` + itemColumns + ` FROM work_items
		WHERE parent_id = ?
		ORDER BY priority DESC, created_at ASC`
	traceSQL(s.logger, s.showSQL, query)

	rows, err := s.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, models.DatabaseErr(err, "failed to list children of %s", parentID)
	}
	defer rows.Close()

	return collectItems(rows)
}

// ListAncestors walks parent pointers from id up to the root, nearest first.
// The item itself is not included. Depth is bounded, so the loop terminates
// even if a corrupt row ever produced a parent cycle.
func (s *itemStorage) ListAncestors(ctx context.Context, id string) ([]*models.WorkItem, error) {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	var ancestors []*models.WorkItem
	current := item
	for i := 0; current.ParentID != nil && i <= models.MaxDepth; i++ {
		parent, err := s.GetItem(ctx, *current.ParentID)
		if err != nil {
			return nil, err
		}
		ancestors = append(ancestors, parent)
		current = parent
	}
	return ancestors, nil
}

// Overview builds a hierarchical walk from rootID, maxDepth levels down.
func (s *itemStorage) Overview(ctx context.Context, rootID string, maxDepth int) (*models.OverviewNode, error) {
	root, err := s.GetItem(ctx, rootID)
	if err != nil {
		return nil, err
	}
	return s.buildOverviewNode(ctx, root, maxDepth)
}

func (s *itemStorage) buildOverviewNode(ctx context.Context, item *models.WorkItem, levels int) (*models.OverviewNode, error) {
	counts, err := s.CountChildrenByRole(ctx, item.ID)
	if err != nil {
		return nil, err
	}

	node := &models.OverviewNode{Item: item, ChildCounts: counts}
	if total := counts.Total(); total > 0 {
		node.Completion = float64(counts.Terminal) / float64(total)
	}
	if levels <= 0 || item.Depth >= models.MaxDepth {
		return node, nil
	}

	children, err := s.ListChildren(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		childNode, err := s.buildOverviewNode(ctx, child, levels-1)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, childNode)
	}
	return node, nil
}

// CountChildrenByRole buckets direct-child counts by role.
func (s *itemStorage) CountChildrenByRole(ctx context.Context, parentID string) (models.RoleCounts, error) {
	query := `SELECT role, COUNT(*) FROM work_items WHERE parent_id = ? GROUP BY role`
	traceSQL(s.logger, s.showSQL, query)

	rows, err := s.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return models.RoleCounts{}, models.DatabaseErr(err, "failed to count children of %s", parentID)
	}
	defer rows.Close()

	var counts models.RoleCounts
	for rows.Next() {
		var role string
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return models.RoleCounts{}, models.DatabaseErr(err, "failed to scan child counts")
		}
		switch models.Role(role) {
		case models.RoleQueue:
			counts.Queue = n
		case models.RoleWork:
			counts.Work = n
		case models.RoleReview:
			counts.Review = n
		case models.RoleTerminal:
			counts.Terminal = n
		case models.RoleBlocked:
			counts.Blocked = n
		}
	}
	return counts, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*models.WorkItem, error) {
	var item models.WorkItem
	var tags string
	var priority int
	var role string
	var previousRole sql.NullString
	var createdAt, modifiedAt, roleChangedAt int64

	err := row.Scan(&item.ID, &item.Title, &item.Summary, &tags, &priority,
		&item.ParentID, &item.Depth, &role, &previousRole,
		&item.StatusLabel, &item.SummaryOnComplete,
		&createdAt, &modifiedAt, &roleChangedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tags), &item.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags for %s: %w", item.ID, err)
	}
	item.Priority = models.PriorityFromRank(priority)
	item.Role = models.Role(role)
	if previousRole.Valid {
		prev := models.Role(previousRole.String)
		item.PreviousRole = &prev
	}
	item.CreatedAt = time.Unix(createdAt, 0).UTC()
	item.ModifiedAt = time.Unix(modifiedAt, 0).UTC()
	item.RoleChangedAt = time.Unix(roleChangedAt, 0).UTC()
	return &item, nil
}

func collectItems(rows *sql.Rows) ([]*models.WorkItem, error) {
	var items []*models.WorkItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, models.DatabaseErr(err, "failed to scan work item")
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, models.DatabaseErr(err, "failed to iterate work items")
	}
	return items, nil
}

func rolePtr(r *models.Role) interface{} {
	if r == nil {
		return nil
	}
	return string(*r)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
