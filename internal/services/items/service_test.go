package items

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/ordino/internal/common"
	"github.com/ternarybob/ordino/internal/interfaces"
	"github.com/ternarybob/ordino/internal/models"
	"github.com/ternarybob/ordino/internal/services/schemas"
	"github.com/ternarybob/ordino/internal/services/workflow"
	"github.com/ternarybob/ordino/internal/storage/sqlite"
)

const gateSchemaYAML = `
note_schemas:
  feature-implementation:
    - key: requirements
      role: queue
      required: true
      description: What to build
      guidance: One paragraph per requirement
`

func setupItemService(t *testing.T, schemaYAML string) (*Service, interfaces.StorageManager) {
	t.Helper()
	dir := t.TempDir()

	if schemaYAML != "" {
		configDir := filepath.Join(dir, ".taskorchestrator")
		require.NoError(t, os.MkdirAll(configDir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(schemaYAML), 0644))
	}

	logger := arbor.NewLogger()
	storage, err := sqlite.NewManager(logger, &common.SQLiteConfig{
		Path:          filepath.Join(dir, "test.db"),
		BusyTimeoutMS: 5000,
		UseMigrations: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	schemaService := schemas.NewService(logger, dir)
	recommender := workflow.NewRecommender(storage, logger)
	return NewService(storage, schemaService, recommender, logger), storage
}

func mustCreate(t *testing.T, svc *Service, req *models.CreateItemRequest) *models.WorkItem {
	t.Helper()
	item, err := svc.CreateItem(context.Background(), req)
	require.NoError(t, err)
	return item
}

func TestCreateItem_Validation(t *testing.T) {
	svc, _ := setupItemService(t, "")
	ctx := context.Background()

	_, err := svc.CreateItem(ctx, &models.CreateItemRequest{Title: "  "})
	require.Error(t, err)
	assert.Equal(t, models.CodeValidation, models.AsDomainError(err).Code)

	_, err = svc.CreateItem(ctx, &models.CreateItemRequest{Title: "x", Tags: []string{"a", "a"}})
	require.Error(t, err)
	assert.Equal(t, models.CodeValidation, models.AsDomainError(err).Code)

	_, err = svc.CreateItem(ctx, &models.CreateItemRequest{Title: "x", Priority: "urgent"})
	require.Error(t, err)
	assert.Equal(t, models.CodeValidation, models.AsDomainError(err).Code)
}

func TestCreateItem_DepthBoundary(t *testing.T) {
	svc, _ := setupItemService(t, "")

	project := mustCreate(t, svc, &models.CreateItemRequest{Title: "project"})
	epic := mustCreate(t, svc, &models.CreateItemRequest{Title: "epic", ParentID: &project.ID})
	feature := mustCreate(t, svc, &models.CreateItemRequest{Title: "feature", ParentID: &epic.ID})
	task := mustCreate(t, svc, &models.CreateItemRequest{Title: "task", ParentID: &feature.ID})
	assert.Equal(t, 3, task.Depth)

	_, err := svc.CreateItem(context.Background(), &models.CreateItemRequest{Title: "too deep", ParentID: &task.ID})
	require.Error(t, err)
	assert.Equal(t, models.CodeValidation, models.AsDomainError(err).Code)
}

func TestUpdateItem_PartialFields(t *testing.T) {
	svc, _ := setupItemService(t, "")
	ctx := context.Background()

	item := mustCreate(t, svc, &models.CreateItemRequest{Title: "before", Summary: "old"})

	title := "after"
	priority := "critical"
	updated, err := svc.UpdateItem(ctx, &models.UpdateItemRequest{ID: item.ID, Title: &title, Priority: &priority})
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Title)
	assert.Equal(t, models.PriorityCritical, updated.Priority)
	assert.Equal(t, "old", updated.Summary)

	empty := ""
	_, err = svc.UpdateItem(ctx, &models.UpdateItemRequest{ID: item.ID, Title: &empty})
	require.Error(t, err)
	assert.Equal(t, models.CodeValidation, models.AsDomainError(err).Code)
}

func TestRequestValidation_StructTags(t *testing.T) {
	svc, _ := setupItemService(t, "")
	ctx := context.Background()

	item := mustCreate(t, svc, &models.CreateItemRequest{Title: "x"})

	bad := "urgent"
	_, err := svc.UpdateItem(ctx, &models.UpdateItemRequest{ID: item.ID, Priority: &bad})
	require.Error(t, err)
	assert.Equal(t, models.CodeValidation, models.AsDomainError(err).Code)

	// Note role outside queue/work/review fails before anything is written.
	_, err = svc.CreateWorkTree(ctx, &models.WorkTreeRequest{
		Root:  models.CreateItemRequest{Title: "tree"},
		Notes: []models.WorkTreeNote{{Ref: "root", Key: "k", Role: "terminal", Body: "b"}},
	})
	require.Error(t, err)
	assert.Equal(t, models.CodeValidation, models.AsDomainError(err).Code)

	_, err = svc.CreateWorkTree(ctx, &models.WorkTreeRequest{
		Root:     models.CreateItemRequest{Title: "tree"},
		Children: []models.WorkTreeChild{{Ref: "", Title: "child"}},
	})
	require.Error(t, err)
	assert.Equal(t, models.CodeValidation, models.AsDomainError(err).Code)
}

func TestCreateWorkTree_Atomic(t *testing.T) {
	svc, storage := setupItemService(t, "")
	ctx := context.Background()

	result, err := svc.CreateWorkTree(ctx, &models.WorkTreeRequest{
		Root: models.CreateItemRequest{Title: "auth feature", Tags: []string{"auth"}},
		Children: []models.WorkTreeChild{
			{Ref: "schema", Title: "db schema"},
			{Ref: "api", Title: "token api"},
		},
		Deps: []models.WorkTreeDependency{
			{FromRef: "schema", ToRef: "api"},
		},
		Notes: []models.WorkTreeNote{
			{Ref: "root", Key: "requirements", Role: "queue", Body: "oauth only"},
		},
	})
	require.NoError(t, err)
	assert.Len(t, result.Children, 2)
	assert.Len(t, result.DepIDs, 1)
	assert.Len(t, result.NoteIDs, 1)

	children, err := storage.Items().ListChildren(ctx, result.Root.ID)
	require.NoError(t, err)
	assert.Len(t, children, 2)

	blocking, err := storage.Dependencies().ListBlocking(ctx, result.Children["api"])
	require.NoError(t, err)
	require.Len(t, blocking, 1)
	assert.Equal(t, result.Children["schema"], blocking[0].BlockerID())
}

func TestCreateWorkTree_BadRefRollsBack(t *testing.T) {
	svc, storage := setupItemService(t, "")
	ctx := context.Background()

	_, err := svc.CreateWorkTree(ctx, &models.WorkTreeRequest{
		Root: models.CreateItemRequest{Title: "doomed"},
		Children: []models.WorkTreeChild{
			{Ref: "a", Title: "a"},
		},
		Notes: []models.WorkTreeNote{
			{Ref: "nope", Key: "k", Role: "queue", Body: "b"},
		},
	})
	require.Error(t, err)
	assert.Equal(t, models.CodeValidation, models.AsDomainError(err).Code)

	items, err := storage.Items().SearchItems(ctx, models.ItemFilter{TitleContains: "doomed"})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestItemContext_GateStatus(t *testing.T) {
	svc, storage := setupItemService(t, gateSchemaYAML)
	ctx := context.Background()

	item := mustCreate(t, svc, &models.CreateItemRequest{Title: "f", Tags: []string{"feature-implementation"}})

	itemCtx, err := svc.ItemContext(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, itemCtx.SchemaFree)
	assert.False(t, itemCtx.GateStatus.CanAdvance)
	assert.Equal(t, []string{"requirements"}, itemCtx.GateStatus.MissingRequiredNotes)
	assert.Equal(t, "One paragraph per requirement", itemCtx.GuidancePointer)
	require.Len(t, itemCtx.ExpectedNotes, 1)
	assert.False(t, itemCtx.ExpectedNotes[0].Exists)

	_, err = storage.Notes().UpsertNote(ctx, &models.Note{
		ID: common.NewNoteID(), ItemID: item.ID, Key: "requirements",
		Role: models.NoteRoleQueue, Body: "done",
		CreatedAt: item.CreatedAt, ModifiedAt: item.CreatedAt,
	})
	require.NoError(t, err)

	itemCtx, err = svc.ItemContext(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, itemCtx.GateStatus.CanAdvance)
	assert.Empty(t, itemCtx.GateStatus.MissingRequiredNotes)
}

func TestItemContext_SchemaFree(t *testing.T) {
	svc, _ := setupItemService(t, "")
	item := mustCreate(t, svc, &models.CreateItemRequest{Title: "untagged"})

	itemCtx, err := svc.ItemContext(context.Background(), item.ID)
	require.NoError(t, err)
	assert.True(t, itemCtx.SchemaFree)
	assert.True(t, itemCtx.GateStatus.CanAdvance)
	assert.Empty(t, itemCtx.ExpectedNotes)
}

func TestBoardContext_Buckets(t *testing.T) {
	svc, storage := setupItemService(t, "")
	ctx := context.Background()

	queued := mustCreate(t, svc, &models.CreateItemRequest{Title: "queued"})
	blocker := mustCreate(t, svc, &models.CreateItemRequest{Title: "blocker"})
	gated := mustCreate(t, svc, &models.CreateItemRequest{Title: "gated"})
	require.NoError(t, storage.Dependencies().CreateDependency(ctx, &models.Dependency{
		ID: common.NewDependencyID(), FromItemID: blocker.ID, ToItemID: gated.ID,
		Type: models.DepBlocks, CreatedAt: queued.CreatedAt,
	}))

	active := mustCreate(t, svc, &models.CreateItemRequest{Title: "active"})
	active.Role = models.RoleWork
	require.NoError(t, storage.Items().UpdateItem(ctx, active))

	board, err := svc.BoardContext(ctx)
	require.NoError(t, err)

	require.Len(t, board.Active, 1)
	assert.Equal(t, active.ID, board.Active[0].ID)
	require.Len(t, board.Blocked, 1)
	assert.Equal(t, gated.ID, board.Blocked[0].Item.ID)

	stalledIDs := make([]string, 0, len(board.Stalled))
	for _, item := range board.Stalled {
		stalledIDs = append(stalledIDs, item.ID)
	}
	assert.Contains(t, stalledIDs, queued.ID)
	assert.Contains(t, stalledIDs, blocker.ID)
	assert.NotContains(t, stalledIDs, gated.ID)
}

func TestExport_Subtree(t *testing.T) {
	svc, storage := setupItemService(t, "")
	ctx := context.Background()

	root := mustCreate(t, svc, &models.CreateItemRequest{Title: "root"})
	child := mustCreate(t, svc, &models.CreateItemRequest{Title: "child", ParentID: &root.ID})
	_, err := storage.Notes().UpsertNote(ctx, &models.Note{
		ID: common.NewNoteID(), ItemID: child.ID, Key: "design",
		Role: models.NoteRoleQueue, Body: "plan",
		CreatedAt: child.CreatedAt, ModifiedAt: child.CreatedAt,
	})
	require.NoError(t, err)

	export, err := svc.Export(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, root.ID, export.Item.ID)
	require.Len(t, export.Children, 1)
	assert.Equal(t, child.ID, export.Children[0].Item.ID)
	require.Len(t, export.Children[0].Notes, 1)
	assert.Equal(t, "design", export.Children[0].Notes[0].Key)
}
