package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/ordino/internal/models"
)

const dependencyColumns = `id, from_item_id, to_item_id, type, unblock_at, created_at`

type dependencyStorage struct {
	db      queryer
	logger  arbor.ILogger
	showSQL bool
}

func newDependencyStorage(db queryer, logger arbor.ILogger, showSQL bool) *dependencyStorage {
	return &dependencyStorage{db: db, logger: logger, showSQL: showSQL}
}

// CreateDependency inserts a dependency edge. Self-edges, duplicate
// (from, to, type) rows and blocking edges that would close a directed cycle
// are rejected.
func (s *dependencyStorage) CreateDependency(ctx context.Context, dep *models.Dependency) error {
	if dep.FromItemID == dep.ToItemID {
		return models.ValidationErr("dependency cannot reference the same item on both ends")
	}
	// Thresholds must sit on the forward progression; "blocked" would make the
	// edge unsatisfiable.
	if dep.UnblockAt != nil && dep.UnblockAt.Ordinal() < 0 {
		return models.ValidationErr("unblockAt must be one of queue, work, review, terminal")
	}

	if dep.Type.Blocking() {
		cyclic, err := s.wouldCycle(ctx, dep.BlockerID(), dep.DependentID())
		if err != nil {
			return err
		}
		if cyclic {
			return models.ConflictErr("dependency %s -> %s would create a cycle",
				dep.BlockerID(), dep.DependentID())
		}
	}

	query := `
		INSERT INTO dependencies (` + dependencyColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)`
	traceSQL(s.logger, s.showSQL, query)

	_, err := s.db.ExecContext(ctx, query,
		dep.ID, dep.FromItemID, dep.ToItemID, string(dep.Type),
		rolePtr(dep.UnblockAt), dep.CreatedAt.Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return models.ConflictErr("dependency %s -%s-> %s already exists",
				dep.FromItemID, dep.Type, dep.ToItemID)
		}
		if isForeignKeyViolation(err) {
			return models.NotFoundErr("dependency endpoint not found (%s or %s)",
				dep.FromItemID, dep.ToItemID)
		}
		if isCheckViolation(err) {
			return models.ValidationErr("invalid dependency between %s and %s",
				dep.FromItemID, dep.ToItemID)
		}
		return models.DatabaseErr(err, "failed to create dependency")
	}

	s.logger.Debug().
		Str("from", dep.FromItemID).
		Str("to", dep.ToItemID).
		Str("type", string(dep.Type)).
		Msg("Created dependency")
	return nil
}

// wouldCycle reports whether adding a blocking edge blocker -> dependent would
// close a directed cycle: true iff blocker is already (transitively) gated by
// dependent. DFS over blocking edges normalized to blocker -> dependent
// direction.
func (s *dependencyStorage) wouldCycle(ctx context.Context, blockerID, dependentID string) (bool, error) {
	visited := map[string]bool{}
	stack := []string{dependentID}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if current == blockerID {
			return true, nil
		}
		if visited[current] {
			continue
		}
		visited[current] = true

		next, err := s.dependentsOf(ctx, current)
		if err != nil {
			return false, err
		}
		stack = append(stack, next...)
	}
	return false, nil
}

// dependentsOf returns the items directly gated by itemID over blocking edges.
func (s *dependencyStorage) dependentsOf(ctx context.Context, itemID string) ([]string, error) {
	query := `
		SELECT CASE WHEN type = 'blocks' THEN to_item_id ELSE from_item_id END
		FROM dependencies
		WHERE (type = 'blocks' AND from_item_id = ?)
		   OR (type = 'is-blocked-by' AND to_item_id = ?)`
	traceSQL(s.logger, s.showSQL, query)

	rows, err := s.db.QueryContext(ctx, query, itemID, itemID)
	if err != nil {
		return nil, models.DatabaseErr(err, "failed to query dependents of %s", itemID)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, models.DatabaseErr(err, "failed to scan dependent id")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetDependency retrieves one edge by ID.
func (s *dependencyStorage) GetDependency(ctx context.Context, id string) (*models.Dependency, error) {
	query := `SELECT ` + dependencyColumns + ` FROM dependencies WHERE id = ?`
	traceSQL(s.logger, s.showSQL, query)

	dep, err := scanDependency(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, models.NotFoundErr("dependency %s not found", id)
	}
	if err != nil {
		return nil, models.DatabaseErr(err, "failed to get dependency %s", id)
	}
	return dep, nil
}

// DeleteDependency removes one edge by ID.
func (s *dependencyStorage) DeleteDependency(ctx context.Context, id string) error {
	query := `DELETE FROM dependencies WHERE id = ?`
	traceSQL(s.logger, s.showSQL, query)

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return models.DatabaseErr(err, "failed to delete dependency %s", id)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return models.NotFoundErr("dependency %s not found", id)
	}
	return nil
}

// DeleteDependencyBetween removes edges between two specific items, optionally
// narrowed to one type. Returns the number of rows removed.
func (s *dependencyStorage) DeleteDependencyBetween(ctx context.Context, fromItemID, toItemID string, depType *models.DependencyType) (int, error) {
	query := `DELETE FROM dependencies WHERE from_item_id = ? AND to_item_id = ?`
	args := []interface{}{fromItemID, toItemID}
	if depType != nil {
		query += " AND type = ?"
		args = append(args, string(*depType))
	}
	traceSQL(s.logger, s.showSQL, query)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, models.DatabaseErr(err, "failed to delete dependencies %s -> %s", fromItemID, toItemID)
	}

	rows, _ := result.RowsAffected()
	return int(rows), nil
}

// DeleteDependenciesForItem removes every edge touching itemID.
func (s *dependencyStorage) DeleteDependenciesForItem(ctx context.Context, itemID string) (int, error) {
	query := `DELETE FROM dependencies WHERE from_item_id = ? OR to_item_id = ?`
	traceSQL(s.logger, s.showSQL, query)

	result, err := s.db.ExecContext(ctx, query, itemID, itemID)
	if err != nil {
		return 0, models.DatabaseErr(err, "failed to delete dependencies for %s", itemID)
	}

	rows, _ := result.RowsAffected()
	return int(rows), nil
}

// ListFrom returns edges originating at fromItemID.
func (s *dependencyStorage) ListFrom(ctx context.Context, fromItemID string) ([]*models.Dependency, error) {
	query := `SELECT ` + dependencyColumns + ` FROM dependencies
		WHERE from_item_id = ? ORDER BY created_at ASC`
	return s.queryDependencies(ctx, query, fromItemID)
}

// ListTo returns edges pointing at toItemID.
func (s *dependencyStorage) ListTo(ctx context.Context, toItemID string) ([]*models.Dependency, error) {
	query := `SELECT ` + dependencyColumns + ` FROM dependencies
		WHERE to_item_id = ? ORDER BY created_at ASC`
	return s.queryDependencies(ctx, query, toItemID)
}

// ListForItem returns every edge touching itemID in either direction.
func (s *dependencyStorage) ListForItem(ctx context.Context, itemID string) ([]*models.Dependency, error) {
	query := `SELECT ` + dependencyColumns + ` FROM dependencies
		WHERE from_item_id = ? OR to_item_id = ? ORDER BY created_at ASC`
	return s.queryDependencies(ctx, query, itemID, itemID)
}

// ListBlocking returns the blocking edges gating itemID: blocks edges pointing
// at it plus is-blocked-by edges leaving it.
func (s *dependencyStorage) ListBlocking(ctx context.Context, itemID string) ([]*models.Dependency, error) {
	query := `SELECT ` + dependencyColumns + ` FROM dependencies
		WHERE (type = 'blocks' AND to_item_id = ?)
		   OR (type = 'is-blocked-by' AND from_item_id = ?)
		ORDER BY created_at ASC`
	return s.queryDependencies(ctx, query, itemID, itemID)
}

// ListDependentsOf returns blocking edges where itemID is the blocker, used to
// find items freed up when itemID progresses.
func (s *dependencyStorage) ListDependentsOf(ctx context.Context, itemID string) ([]*models.Dependency, error) {
	query := `SELECT ` + dependencyColumns + ` FROM dependencies
		WHERE (type = 'blocks' AND from_item_id = ?)
		   OR (type = 'is-blocked-by' AND to_item_id = ?)
		ORDER BY created_at ASC`
	return s.queryDependencies(ctx, query, itemID, itemID)
}

func (s *dependencyStorage) queryDependencies(ctx context.Context, query string, args ...interface{}) ([]*models.Dependency, error) {
	traceSQL(s.logger, s.showSQL, query)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, models.DatabaseErr(err, "failed to query dependencies")
	}
	defer rows.Close()

	var deps []*models.Dependency
	for rows.Next() {
		dep, err := scanDependency(rows)
		if err != nil {
			return nil, models.DatabaseErr(err, "failed to scan dependency")
		}
		deps = append(deps, dep)
	}
	if err := rows.Err(); err != nil {
		return nil, models.DatabaseErr(err, "failed to iterate dependencies")
	}
	return deps, nil
}

func scanDependency(row rowScanner) (*models.Dependency, error) {
	var dep models.Dependency
	var depType string
	var unblockAt sql.NullString
	var createdAt int64

	err := row.Scan(&dep.ID, &dep.FromItemID, &dep.ToItemID, &depType, &unblockAt, &createdAt)
	if err != nil {
		return nil, err
	}

	dep.Type = models.DependencyType(depType)
	if unblockAt.Valid {
		role := models.Role(unblockAt.String)
		dep.UnblockAt = &role
	}
	dep.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &dep, nil
}
