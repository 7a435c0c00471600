package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/ordino/internal/common"
	"github.com/ternarybob/ordino/internal/interfaces"
	"github.com/ternarybob/ordino/internal/models"
)

// setupTestManager creates a storage manager over a throwaway database.
func setupTestManager(t *testing.T) *Manager {
	t.Helper()
	config := &common.SQLiteConfig{
		Path:          t.TempDir() + "/test.db",
		BusyTimeoutMS: 5000,
		WALMode:       false,
		UseMigrations: true,
	}

	logger := arbor.NewLogger()
	mgr, err := NewManager(logger, config)
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	return mgr.(*Manager)
}

func testItem(title string, parentID *string, depth int, tags ...string) *models.WorkItem {
	now := time.Now().UTC().Truncate(time.Second)
	if tags == nil {
		tags = []string{}
	}
	return &models.WorkItem{
		ID:            common.NewItemID(),
		Title:         title,
		Tags:          tags,
		Priority:      models.PriorityMedium,
		ParentID:      parentID,
		Depth:         depth,
		Role:          models.RoleQueue,
		CreatedAt:     now,
		ModifiedAt:    now,
		RoleChangedAt: now,
	}
}

func TestItemStorage_CreateAndGet(t *testing.T) {
	mgr := setupTestManager(t)
	ctx := context.Background()

	item := testItem("build parser", nil, 0, "feature-implementation")
	item.Summary = "tokenizer first"
	item.Priority = models.PriorityHigh
	require.NoError(t, mgr.Items().CreateItem(ctx, item))

	got, err := mgr.Items().GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.Title, got.Title)
	assert.Equal(t, item.Summary, got.Summary)
	assert.Equal(t, models.PriorityHigh, got.Priority)
	assert.Equal(t, []string{"feature-implementation"}, got.Tags)
	assert.Equal(t, models.RoleQueue, got.Role)
	assert.Nil(t, got.PreviousRole)
	assert.Equal(t, item.CreatedAt.Unix(), got.CreatedAt.Unix())
}

func TestItemStorage_GetMissing(t *testing.T) {
	mgr := setupTestManager(t)

	_, err := mgr.Items().GetItem(context.Background(), "item_missing")
	require.Error(t, err)
	assert.Equal(t, models.CodeNotFound, models.AsDomainError(err).Code)
}

func TestItemStorage_SearchFilters(t *testing.T) {
	mgr := setupTestManager(t)
	ctx := context.Background()

	a := testItem("alpha", nil, 0, "backend")
	a.Priority = models.PriorityCritical
	b := testItem("beta", nil, 0, "frontend")
	c := testItem("gamma worker", nil, 0, "backend")
	c.Role = models.RoleWork
	for _, item := range []*models.WorkItem{a, b, c} {
		require.NoError(t, mgr.Items().CreateItem(ctx, item))
	}

	work := models.RoleWork
	got, err := mgr.Items().SearchItems(ctx, models.ItemFilter{Role: &work})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, c.ID, got[0].ID)

	got, err = mgr.Items().SearchItems(ctx, models.ItemFilter{TagSubstring: "backend"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	// critical priority sorts first
	assert.Equal(t, a.ID, got[0].ID)

	got, err = mgr.Items().SearchItems(ctx, models.ItemFilter{TitleContains: "worker"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, c.ID, got[0].ID)
}

func TestItemStorage_ChildrenOrderingAndAncestors(t *testing.T) {
	mgr := setupTestManager(t)
	ctx := context.Background()

	root := testItem("project", nil, 0)
	require.NoError(t, mgr.Items().CreateItem(ctx, root))

	low := testItem("low", &root.ID, 1)
	low.Priority = models.PriorityLow
	high := testItem("high", &root.ID, 1)
	high.Priority = models.PriorityHigh
	require.NoError(t, mgr.Items().CreateItem(ctx, low))
	require.NoError(t, mgr.Items().CreateItem(ctx, high))

	children, err := mgr.Items().ListChildren(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, high.ID, children[0].ID)
	assert.Equal(t, low.ID, children[1].ID)

	grandchild := testItem("task", &high.ID, 2)
	require.NoError(t, mgr.Items().CreateItem(ctx, grandchild))

	ancestors, err := mgr.Items().ListAncestors(ctx, grandchild.ID)
	require.NoError(t, err)
	require.Len(t, ancestors, 2)
	assert.Equal(t, high.ID, ancestors[0].ID)
	assert.Equal(t, root.ID, ancestors[1].ID)
}

func TestItemStorage_DeleteCascadesSubtree(t *testing.T) {
	mgr := setupTestManager(t)
	ctx := context.Background()

	root := testItem("root", nil, 0)
	require.NoError(t, mgr.Items().CreateItem(ctx, root))
	child := testItem("child", &root.ID, 1)
	require.NoError(t, mgr.Items().CreateItem(ctx, child))

	note := &models.Note{
		ID: common.NewNoteID(), ItemID: child.ID, Key: "design",
		Role: models.NoteRoleQueue, Body: "sketch",
		CreatedAt: time.Now().UTC(), ModifiedAt: time.Now().UTC(),
	}
	_, err := mgr.Notes().UpsertNote(ctx, note)
	require.NoError(t, err)

	require.NoError(t, mgr.Items().DeleteItem(ctx, root.ID))

	_, err = mgr.Items().GetItem(ctx, child.ID)
	assert.Equal(t, models.CodeNotFound, models.AsDomainError(err).Code)
	_, err = mgr.Notes().GetNote(ctx, child.ID, "design")
	assert.Equal(t, models.CodeNotFound, models.AsDomainError(err).Code)
}

// Pragmas travel on the DSN, so every pooled connection enforces foreign keys,
// not just the one that ran the setup statements.
func TestConnection_ForeignKeysOnEveryPooledConnection(t *testing.T) {
	mgr := setupTestManager(t)
	ctx := context.Background()

	item := testItem("parent", nil, 0)
	require.NoError(t, mgr.Items().CreateItem(ctx, item))
	_, err := mgr.Notes().UpsertNote(ctx, &models.Note{
		ID: common.NewNoteID(), ItemID: item.ID, Key: "design",
		Role: models.NoteRoleQueue, Body: "plan",
		CreatedAt: item.CreatedAt, ModifiedAt: item.CreatedAt,
	})
	require.NoError(t, err)

	// Pin one connection so the second Conn call gets a different one.
	held, err := mgr.DB().Conn(ctx)
	require.NoError(t, err)
	defer held.Close()

	conn, err := mgr.DB().Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	var fk int
	require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	_, err = conn.ExecContext(ctx, "DELETE FROM work_items WHERE id = ?", item.ID)
	require.NoError(t, err)

	var orphans int
	require.NoError(t, conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notes WHERE item_id = ?", item.ID).Scan(&orphans))
	assert.Zero(t, orphans)
}

func TestItemStorage_Overview(t *testing.T) {
	mgr := setupTestManager(t)
	ctx := context.Background()

	root := testItem("root", nil, 0)
	require.NoError(t, mgr.Items().CreateItem(ctx, root))
	done := testItem("done", &root.ID, 1)
	done.Role = models.RoleTerminal
	queued := testItem("queued", &root.ID, 1)
	require.NoError(t, mgr.Items().CreateItem(ctx, done))
	require.NoError(t, mgr.Items().CreateItem(ctx, queued))

	node, err := mgr.Items().Overview(ctx, root.ID, models.MaxDepth)
	require.NoError(t, err)
	assert.Equal(t, root.ID, node.Item.ID)
	assert.Equal(t, 1, node.ChildCounts.Terminal)
	assert.Equal(t, 1, node.ChildCounts.Queue)
	assert.InDelta(t, 0.5, node.Completion, 1e-9)
	assert.Len(t, node.Children, 2)
	assert.Zero(t, node.Children[0].Completion)
}

func TestNoteStorage_UpsertReplacesBody(t *testing.T) {
	mgr := setupTestManager(t)
	ctx := context.Background()

	item := testItem("item", nil, 0)
	require.NoError(t, mgr.Items().CreateItem(ctx, item))

	now := time.Now().UTC()
	first := &models.Note{
		ID: common.NewNoteID(), ItemID: item.ID, Key: "requirements",
		Role: models.NoteRoleQueue, Body: "v1", CreatedAt: now, ModifiedAt: now,
	}
	_, err := mgr.Notes().UpsertNote(ctx, first)
	require.NoError(t, err)

	second := &models.Note{
		ID: common.NewNoteID(), ItemID: item.ID, Key: "requirements",
		Role: models.NoteRoleQueue, Body: "v2", CreatedAt: now, ModifiedAt: now.Add(time.Second),
	}
	stored, err := mgr.Notes().UpsertNote(ctx, second)
	require.NoError(t, err)

	// one row, replaced body, original identity kept
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, "v2", stored.Body)
	notes, err := mgr.Notes().ListNotes(ctx, item.ID, nil)
	require.NoError(t, err)
	assert.Len(t, notes, 1)
}

func TestNoteStorage_RoleFilter(t *testing.T) {
	mgr := setupTestManager(t)
	ctx := context.Background()

	item := testItem("item", nil, 0)
	require.NoError(t, mgr.Items().CreateItem(ctx, item))

	now := time.Now().UTC()
	for key, role := range map[string]models.NoteRole{
		"requirements": models.NoteRoleQueue,
		"testing":      models.NoteRoleWork,
	} {
		_, err := mgr.Notes().UpsertNote(ctx, &models.Note{
			ID: common.NewNoteID(), ItemID: item.ID, Key: key,
			Role: role, Body: "x", CreatedAt: now, ModifiedAt: now,
		})
		require.NoError(t, err)
	}

	queueRole := models.NoteRoleQueue
	notes, err := mgr.Notes().ListNotes(ctx, item.ID, &queueRole)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "requirements", notes[0].Key)
}

func createDep(t *testing.T, mgr *Manager, from, to string, depType models.DependencyType) *models.Dependency {
	t.Helper()
	dep := &models.Dependency{
		ID: common.NewDependencyID(), FromItemID: from, ToItemID: to,
		Type: depType, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, mgr.Dependencies().CreateDependency(context.Background(), dep))
	return dep
}

func TestDependencyStorage_RejectsSelfAndDuplicate(t *testing.T) {
	mgr := setupTestManager(t)
	ctx := context.Background()

	a := testItem("a", nil, 0)
	b := testItem("b", nil, 0)
	require.NoError(t, mgr.Items().CreateItem(ctx, a))
	require.NoError(t, mgr.Items().CreateItem(ctx, b))

	err := mgr.Dependencies().CreateDependency(ctx, &models.Dependency{
		ID: common.NewDependencyID(), FromItemID: a.ID, ToItemID: a.ID,
		Type: models.DepBlocks, CreatedAt: time.Now().UTC(),
	})
	assert.Equal(t, models.CodeValidation, models.AsDomainError(err).Code)

	createDep(t, mgr, a.ID, b.ID, models.DepBlocks)
	err = mgr.Dependencies().CreateDependency(ctx, &models.Dependency{
		ID: common.NewDependencyID(), FromItemID: a.ID, ToItemID: b.ID,
		Type: models.DepBlocks, CreatedAt: time.Now().UTC(),
	})
	assert.Equal(t, models.CodeConflict, models.AsDomainError(err).Code)

	// blocked is not a reachable threshold
	blocked := models.RoleBlocked
	err = mgr.Dependencies().CreateDependency(ctx, &models.Dependency{
		ID: common.NewDependencyID(), FromItemID: b.ID, ToItemID: a.ID,
		Type: models.DepBlocks, UnblockAt: &blocked, CreatedAt: time.Now().UTC(),
	})
	assert.Equal(t, models.CodeValidation, models.AsDomainError(err).Code)
}

func TestDependencyStorage_RejectsCycle(t *testing.T) {
	mgr := setupTestManager(t)
	ctx := context.Background()

	a := testItem("a", nil, 0)
	b := testItem("b", nil, 0)
	c := testItem("c", nil, 0)
	for _, item := range []*models.WorkItem{a, b, c} {
		require.NoError(t, mgr.Items().CreateItem(ctx, item))
	}

	createDep(t, mgr, a.ID, b.ID, models.DepBlocks)
	createDep(t, mgr, b.ID, c.ID, models.DepBlocks)

	err := mgr.Dependencies().CreateDependency(ctx, &models.Dependency{
		ID: common.NewDependencyID(), FromItemID: c.ID, ToItemID: a.ID,
		Type: models.DepBlocks, CreatedAt: time.Now().UTC(),
	})
	require.Error(t, err)
	assert.Equal(t, models.CodeConflict, models.AsDomainError(err).Code)

	// the inverted spelling closes the same cycle
	err = mgr.Dependencies().CreateDependency(ctx, &models.Dependency{
		ID: common.NewDependencyID(), FromItemID: a.ID, ToItemID: c.ID,
		Type: models.DepIsBlockedBy, CreatedAt: time.Now().UTC(),
	})
	require.Error(t, err)
	assert.Equal(t, models.CodeConflict, models.AsDomainError(err).Code)
}

func TestDependencyStorage_BlockingQueries(t *testing.T) {
	mgr := setupTestManager(t)
	ctx := context.Background()

	a := testItem("a", nil, 0)
	b := testItem("b", nil, 0)
	c := testItem("c", nil, 0)
	for _, item := range []*models.WorkItem{a, b, c} {
		require.NoError(t, mgr.Items().CreateItem(ctx, item))
	}

	// a blocks b, spelled both ways; c relates to b
	createDep(t, mgr, a.ID, b.ID, models.DepBlocks)
	createDep(t, mgr, c.ID, a.ID, models.DepIsBlockedBy) // c is blocked by a
	createDep(t, mgr, c.ID, b.ID, models.DepRelatesTo)

	blocking, err := mgr.Dependencies().ListBlocking(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, blocking, 1)
	assert.Equal(t, a.ID, blocking[0].BlockerID())

	blocking, err = mgr.Dependencies().ListBlocking(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, blocking, 1)
	assert.Equal(t, a.ID, blocking[0].BlockerID())

	dependents, err := mgr.Dependencies().ListDependentsOf(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, dependents, 2)
}

func TestTransitionStorage_AppendAndList(t *testing.T) {
	mgr := setupTestManager(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	for i, to := range []models.Role{models.RoleWork, models.RoleTerminal} {
		from := models.RoleQueue
		if i == 1 {
			from = models.RoleWork
		}
		require.NoError(t, mgr.Transitions().AppendTransition(ctx, &models.RoleTransition{
			ID: common.NewTransitionID(), ItemID: "item_x",
			FromRole: from, ToRole: to, Trigger: models.TriggerStart,
			TransitionedAt: now.Add(time.Duration(i) * time.Second),
		}))
	}

	got, err := mgr.Transitions().ListTransitionsForItem(ctx, "item_x")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.RoleWork, got[0].ToRole)
	assert.Equal(t, models.RoleTerminal, got[1].ToRole)

	since, err := mgr.Transitions().ListTransitionsSince(ctx, now.Add(time.Second))
	require.NoError(t, err)
	assert.Len(t, since, 1)
}

func TestManager_RunInTransactionRollsBack(t *testing.T) {
	mgr := setupTestManager(t)
	ctx := context.Background()

	item := testItem("tx-item", nil, 0)
	err := mgr.RunInTransaction(ctx, func(tx interfaces.Transaction) error {
		require.NoError(t, tx.Items().CreateItem(ctx, item))
		return models.ValidationErr("forced failure")
	})
	require.Error(t, err)

	_, err = mgr.Items().GetItem(ctx, item.ID)
	assert.Equal(t, models.CodeNotFound, models.AsDomainError(err).Code)
}

func TestManager_SchemaWithoutMigrations(t *testing.T) {
	config := &common.SQLiteConfig{
		Path:          t.TempDir() + "/plain.db",
		BusyTimeoutMS: 5000,
		UseMigrations: false,
	}
	mgr, err := NewManager(arbor.NewLogger(), config)
	require.NoError(t, err)
	defer mgr.Close()

	item := testItem("plain", nil, 0)
	require.NoError(t, mgr.Items().CreateItem(context.Background(), item))
}
