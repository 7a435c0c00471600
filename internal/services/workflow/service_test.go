package workflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/ordino/internal/common"
	"github.com/ternarybob/ordino/internal/interfaces"
	"github.com/ternarybob/ordino/internal/models"
	"github.com/ternarybob/ordino/internal/services/schemas"
	"github.com/ternarybob/ordino/internal/storage/sqlite"
)

const testSchemaYAML = `
note_schemas:
  feature-implementation:
    - key: requirements
      role: queue
      required: true
      description: What to build
    - key: design
      role: queue
      required: true
      description: How to build it
      guidance: Link the design doc
    - key: review-findings
      role: review
      required: false
      description: Review outcome
  quickfix:
    - key: repro
      role: queue
      required: false
      description: Reproduction steps
`

// setupWorkflow builds the full stack (storage, schemas, workflow) over a
// throwaway database and schema config.
func setupWorkflow(t *testing.T, schemaYAML string) (*Service, interfaces.StorageManager) {
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
	return NewService(storage, schemaService, logger), storage
}

func seedItem(t *testing.T, storage interfaces.StorageManager, title string, parentID *string, depth int, tags ...string) *models.WorkItem {
	t.Helper()
	now := time.Now().UTC()
	if tags == nil {
		tags = []string{}
	}
	item := &models.WorkItem{
		ID: common.NewItemID(), Title: title, Tags: tags,
		Priority: models.PriorityMedium, ParentID: parentID, Depth: depth,
		Role: models.RoleQueue, CreatedAt: now, ModifiedAt: now, RoleChangedAt: now,
	}
	require.NoError(t, storage.Items().CreateItem(context.Background(), item))
	return item
}

func seedNote(t *testing.T, storage interfaces.StorageManager, itemID, key string, role models.NoteRole, body string) {
	t.Helper()
	now := time.Now().UTC()
	_, err := storage.Notes().UpsertNote(context.Background(), &models.Note{
		ID: common.NewNoteID(), ItemID: itemID, Key: key, Role: role, Body: body,
		CreatedAt: now, ModifiedAt: now,
	})
	require.NoError(t, err)
}

func seedDep(t *testing.T, storage interfaces.StorageManager, from, to string, depType models.DependencyType, unblockAt *models.Role) {
	t.Helper()
	require.NoError(t, storage.Dependencies().CreateDependency(context.Background(), &models.Dependency{
		ID: common.NewDependencyID(), FromItemID: from, ToItemID: to,
		Type: depType, UnblockAt: unblockAt, CreatedAt: time.Now().UTC(),
	}))
}

func TestResolveTransition(t *testing.T) {
	prevWork := models.RoleWork
	tests := []struct {
		name      string
		current   models.Role
		previous  *models.Role
		trigger   models.Trigger
		hasReview bool
		want      models.Role
		wantErr   bool
	}{
		{name: "queue start", current: models.RoleQueue, trigger: models.TriggerStart, want: models.RoleWork},
		{name: "work start with review", current: models.RoleWork, trigger: models.TriggerStart, hasReview: true, want: models.RoleReview},
		{name: "work start without review", current: models.RoleWork, trigger: models.TriggerStart, want: models.RoleTerminal},
		{name: "review start", current: models.RoleReview, trigger: models.TriggerStart, want: models.RoleTerminal},
		{name: "terminal start", current: models.RoleTerminal, trigger: models.TriggerStart, wantErr: true},
		{name: "blocked start", current: models.RoleBlocked, previous: &prevWork, trigger: models.TriggerStart, wantErr: true},
		{name: "queue complete", current: models.RoleQueue, trigger: models.TriggerComplete, want: models.RoleTerminal},
		{name: "terminal complete", current: models.RoleTerminal, trigger: models.TriggerComplete, wantErr: true},
		{name: "blocked complete", current: models.RoleBlocked, previous: &prevWork, trigger: models.TriggerComplete, wantErr: true},
		{name: "work block", current: models.RoleWork, trigger: models.TriggerBlock, want: models.RoleBlocked},
		{name: "work hold alias", current: models.RoleWork, trigger: models.TriggerHold, want: models.RoleBlocked},
		{name: "terminal block", current: models.RoleTerminal, trigger: models.TriggerBlock, wantErr: true},
		{name: "blocked resume", current: models.RoleBlocked, previous: &prevWork, trigger: models.TriggerResume, want: models.RoleWork},
		{name: "blocked resume no previous", current: models.RoleBlocked, trigger: models.TriggerResume, wantErr: true},
		{name: "work resume", current: models.RoleWork, trigger: models.TriggerResume, wantErr: true},
		{name: "queue cancel", current: models.RoleQueue, trigger: models.TriggerCancel, want: models.RoleTerminal},
		{name: "terminal cancel", current: models.RoleTerminal, trigger: models.TriggerCancel, wantErr: true},
		{name: "unknown trigger", current: models.RoleQueue, trigger: models.Trigger("bogus"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := resolveTransition(tt.current, tt.previous, tt.trigger, tt.hasReview)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, models.CodeValidation, models.AsDomainError(err).Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.target)
		})
	}
}

func TestResolveCancelSetsStatusLabel(t *testing.T) {
	res, err := resolveTransition(models.RoleWork, nil, models.TriggerCancel, false)
	require.NoError(t, err)
	require.NotNil(t, res.statusLabel)
	assert.Equal(t, "cancelled", *res.statusLabel)
}

func TestAdvance_NoteGateThenProgress(t *testing.T) {
	svc, storage := setupWorkflow(t, testSchemaYAML)
	ctx := context.Background()

	item := seedItem(t, storage, "build feature", nil, 0, "feature-implementation")

	_, err := svc.Advance(ctx, item.ID, models.TriggerStart, "")
	require.Error(t, err)
	de := models.AsDomainError(err)
	assert.Equal(t, models.CodeValidation, de.Code)
	require.Len(t, de.MissingNotes, 2)
	keys := []string{de.MissingNotes[0].Key, de.MissingNotes[1].Key}
	assert.Contains(t, keys, "requirements")
	assert.Contains(t, keys, "design")

	seedNote(t, storage, item.ID, "requirements", models.NoteRoleQueue, "must parse")
	seedNote(t, storage, item.ID, "design", models.NoteRoleQueue, "recursive descent")

	result, err := svc.Advance(ctx, item.ID, models.TriggerStart, "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleWork, result.NewRole)
	assert.Equal(t, models.RoleWork, result.Item.Role)

	audit, err := storage.Transitions().ListTransitionsForItem(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.Equal(t, models.RoleQueue, audit[0].FromRole)
	assert.Equal(t, models.RoleWork, audit[0].ToRole)
	assert.Equal(t, models.TriggerStart, audit[0].Trigger)
}

func TestAdvance_ReviewPhaseRouting(t *testing.T) {
	svc, storage := setupWorkflow(t, testSchemaYAML)
	ctx := context.Background()

	// quickfix schema has no review entry: work start jumps to terminal
	noReview := seedItem(t, storage, "fix typo", nil, 0, "quickfix")
	_, err := svc.Advance(ctx, noReview.ID, models.TriggerStart, "")
	require.NoError(t, err)
	result, err := svc.Advance(ctx, noReview.ID, models.TriggerStart, "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTerminal, result.NewRole)

	// feature schema declares review: work start lands there first
	withReview := seedItem(t, storage, "big feature", nil, 0, "feature-implementation")
	seedNote(t, storage, withReview.ID, "requirements", models.NoteRoleQueue, "r")
	seedNote(t, storage, withReview.ID, "design", models.NoteRoleQueue, "d")
	_, err = svc.Advance(ctx, withReview.ID, models.TriggerStart, "")
	require.NoError(t, err)
	result, err = svc.Advance(ctx, withReview.ID, models.TriggerStart, "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleReview, result.NewRole)
}

func TestAdvance_BlockingDependencyDefaultThreshold(t *testing.T) {
	svc, storage := setupWorkflow(t, "")
	ctx := context.Background()

	blocker := seedItem(t, storage, "I1", nil, 0)
	dependent := seedItem(t, storage, "I2", nil, 0)
	seedDep(t, storage, blocker.ID, dependent.ID, models.DepBlocks, nil)

	_, err := svc.Advance(ctx, dependent.ID, models.TriggerStart, "")
	require.Error(t, err)
	de := models.AsDomainError(err)
	assert.Equal(t, models.CodeDependency, de.Code)
	require.Len(t, de.Blockers, 1)
	assert.Equal(t, blocker.ID, de.Blockers[0].BlockerItemID)
	assert.Equal(t, models.RoleQueue, de.Blockers[0].BlockerRole)
	assert.Equal(t, models.RoleTerminal, de.Blockers[0].RequiredRole)

	_, err = svc.Advance(ctx, blocker.ID, models.TriggerComplete, "done")
	require.NoError(t, err)

	result, err := svc.Advance(ctx, dependent.ID, models.TriggerStart, "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleWork, result.NewRole)
}

func TestAdvance_UnblockAtOverride(t *testing.T) {
	svc, storage := setupWorkflow(t, "")
	ctx := context.Background()

	blocker := seedItem(t, storage, "I1", nil, 0)
	dependent := seedItem(t, storage, "I2", nil, 0)
	work := models.RoleWork
	seedDep(t, storage, blocker.ID, dependent.ID, models.DepBlocks, &work)

	_, err := svc.Advance(ctx, blocker.ID, models.TriggerStart, "")
	require.NoError(t, err)

	result, err := svc.Advance(ctx, dependent.ID, models.TriggerStart, "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleWork, result.NewRole)
}

func TestAdvance_BlockedBlockerNeverSatisfies(t *testing.T) {
	svc, storage := setupWorkflow(t, "")
	ctx := context.Background()

	blocker := seedItem(t, storage, "I1", nil, 0)
	dependent := seedItem(t, storage, "I2", nil, 0)
	queue := models.RoleQueue
	seedDep(t, storage, blocker.ID, dependent.ID, models.DepBlocks, &queue)

	// even a queue threshold is unsatisfied once the blocker is blocked
	_, err := svc.Advance(ctx, blocker.ID, models.TriggerBlock, "")
	require.NoError(t, err)

	_, err = svc.Advance(ctx, dependent.ID, models.TriggerStart, "")
	require.Error(t, err)
	assert.Equal(t, models.CodeDependency, models.AsDomainError(err).Code)
}

func TestAdvance_BlockAndResume(t *testing.T) {
	svc, storage := setupWorkflow(t, "")
	ctx := context.Background()

	item := seedItem(t, storage, "I", nil, 0)
	_, err := svc.Advance(ctx, item.ID, models.TriggerStart, "")
	require.NoError(t, err)

	result, err := svc.Advance(ctx, item.ID, models.TriggerBlock, "waiting on vendor")
	require.NoError(t, err)
	assert.Equal(t, models.RoleBlocked, result.Item.Role)
	require.NotNil(t, result.Item.PreviousRole)
	assert.Equal(t, models.RoleWork, *result.Item.PreviousRole)

	_, err = svc.Advance(ctx, item.ID, models.TriggerStart, "")
	require.Error(t, err)
	assert.Contains(t, models.AsDomainError(err).Message, "resume")

	result, err = svc.Advance(ctx, item.ID, models.TriggerResume, "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleWork, result.Item.Role)
	assert.Nil(t, result.Item.PreviousRole)

	audit, err := storage.Transitions().ListTransitionsForItem(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, audit, 3)
	assert.Equal(t, models.RoleBlocked, audit[1].ToRole)
	assert.Equal(t, models.RoleBlocked, audit[2].FromRole)
	assert.Equal(t, models.RoleWork, audit[2].ToRole)
}

func TestAdvance_SecondCompleteErrors(t *testing.T) {
	svc, storage := setupWorkflow(t, "")
	ctx := context.Background()

	item := seedItem(t, storage, "I", nil, 0)
	_, err := svc.Advance(ctx, item.ID, models.TriggerComplete, "")
	require.NoError(t, err)

	_, err = svc.Advance(ctx, item.ID, models.TriggerComplete, "")
	require.Error(t, err)
	assert.Equal(t, models.CodeValidation, models.AsDomainError(err).Code)
}

func TestAdvance_CancelRecordsStatusLabel(t *testing.T) {
	svc, storage := setupWorkflow(t, "")
	ctx := context.Background()

	item := seedItem(t, storage, "I", nil, 0)
	result, err := svc.Advance(ctx, item.ID, models.TriggerCancel, "superseded")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTerminal, result.Item.Role)
	require.NotNil(t, result.Item.StatusLabel)
	assert.Equal(t, "cancelled", *result.Item.StatusLabel)
	require.NotNil(t, result.Item.SummaryOnComplete)
	assert.Equal(t, "superseded", *result.Item.SummaryOnComplete)
}

func TestAdvance_FeatureCleanup(t *testing.T) {
	svc, storage := setupWorkflow(t, "")
	ctx := context.Background()

	project := seedItem(t, storage, "project", nil, 0)
	epic := seedItem(t, storage, "epic", &project.ID, 1)
	feature := seedItem(t, storage, "F", &epic.ID, 2)
	t1 := seedItem(t, storage, "T1", &feature.ID, 3)
	t2 := seedItem(t, storage, "T2", &feature.ID, 3, "bug")
	t3 := seedItem(t, storage, "T3", &feature.ID, 3)

	// leave some history on a doomed task
	_, err := svc.Advance(ctx, t1.ID, models.TriggerStart, "")
	require.NoError(t, err)

	result, err := svc.Advance(ctx, feature.ID, models.TriggerComplete, "shipped")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{t1.ID, t3.ID}, result.CleanedUpIDs)

	_, err = storage.Items().GetItem(ctx, feature.ID)
	assert.NoError(t, err)
	_, err = storage.Items().GetItem(ctx, t2.ID)
	assert.NoError(t, err)
	_, err = storage.Items().GetItem(ctx, t1.ID)
	assert.Equal(t, models.CodeNotFound, models.AsDomainError(err).Code)
	_, err = storage.Items().GetItem(ctx, t3.ID)
	assert.Equal(t, models.CodeNotFound, models.AsDomainError(err).Code)

	// audit rows survive cleanup
	audit, err := storage.Transitions().ListTransitionsForItem(ctx, t1.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, audit)
}

func TestAdvance_ParentCascadeAutoApplies(t *testing.T) {
	svc, storage := setupWorkflow(t, "")
	ctx := context.Background()

	parent := seedItem(t, storage, "parent", nil, 0)
	child := seedItem(t, storage, "child", &parent.ID, 1)

	// child entering work pulls the queued parent along
	result, err := svc.Advance(ctx, child.ID, models.TriggerStart, "")
	require.NoError(t, err)
	require.NotEmpty(t, result.CascadeEvents)
	assert.Equal(t, models.CascadeParentStart, result.CascadeEvents[0].Type)
	assert.True(t, result.CascadeEvents[0].Applied)

	got, err := storage.Items().GetItem(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleWork, got.Role)
}

func TestAdvance_DependentsUnblockedEvent(t *testing.T) {
	svc, storage := setupWorkflow(t, "")
	ctx := context.Background()

	blocker := seedItem(t, storage, "I1", nil, 0)
	dependent := seedItem(t, storage, "I2", nil, 0)
	seedDep(t, storage, blocker.ID, dependent.ID, models.DepBlocks, nil)

	result, err := svc.Advance(ctx, blocker.ID, models.TriggerComplete, "")
	require.NoError(t, err)

	var found bool
	for _, ev := range result.CascadeEvents {
		if ev.Type == models.CascadeDependentsUnblocked {
			found = true
			assert.Contains(t, ev.ItemIDs, dependent.ID)
		}
	}
	assert.True(t, found, "expected a dependents-unblocked event")
}

func TestDryRun_ReportsGatesWithoutWriting(t *testing.T) {
	svc, storage := setupWorkflow(t, testSchemaYAML)
	ctx := context.Background()

	item := seedItem(t, storage, "feature", nil, 0, "feature-implementation")
	blocker := seedItem(t, storage, "blocker", nil, 0)
	seedDep(t, storage, blocker.ID, item.ID, models.DepBlocks, nil)

	result, err := svc.DryRun(ctx, item.ID, models.TriggerStart)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, models.RoleWork, result.TargetRole)
	assert.Len(t, result.Blockers, 1)
	assert.Len(t, result.MissingNotes, 2)

	// nothing moved, nothing logged
	got, err := storage.Items().GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleQueue, got.Role)
	audit, err := storage.Transitions().ListTransitionsForItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Empty(t, audit)
}

func TestRecommender_NextAndBlocked(t *testing.T) {
	svc, storage := setupWorkflow(t, "")
	ctx := context.Background()

	ready := seedItem(t, storage, "ready", nil, 0)
	ready.Priority = models.PriorityHigh
	require.NoError(t, storage.Items().UpdateItem(ctx, ready))
	blocker := seedItem(t, storage, "blocker", nil, 0)
	gated := seedItem(t, storage, "gated", nil, 0)
	seedDep(t, storage, blocker.ID, gated.ID, models.DepBlocks, nil)

	done := seedItem(t, storage, "done", nil, 0)
	_, err := svc.Advance(ctx, done.ID, models.TriggerComplete, "")
	require.NoError(t, err)

	rec := NewRecommender(storage, arbor.NewLogger())
	next, err := rec.NextItems(ctx, nil, 10)
	require.NoError(t, err)
	ids := make([]string, 0, len(next))
	for _, item := range next {
		ids = append(ids, item.ID)
	}
	assert.Contains(t, ids, ready.ID)
	assert.Contains(t, ids, blocker.ID)
	assert.NotContains(t, ids, gated.ID)
	assert.NotContains(t, ids, done.ID)
	// high priority sorts ahead of medium
	assert.Equal(t, ready.ID, ids[0])

	blocked, err := rec.BlockedItems(ctx)
	require.NoError(t, err)
	require.Len(t, blocked, 1)
	assert.Equal(t, gated.ID, blocked[0].Item.ID)
	require.Len(t, blocked[0].Blockers, 1)
	assert.Equal(t, blocker.ID, blocked[0].Blockers[0].BlockerItemID)
}
