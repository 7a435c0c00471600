package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleOrdinal(t *testing.T) {
	assert.Equal(t, 0, RoleQueue.Ordinal())
	assert.Equal(t, 1, RoleWork.Ordinal())
	assert.Equal(t, 2, RoleReview.Ordinal())
	assert.Equal(t, 3, RoleTerminal.Ordinal())
	// blocked satisfies no threshold
	assert.Equal(t, -1, RoleBlocked.Ordinal())
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("review")
	require.NoError(t, err)
	assert.Equal(t, RoleReview, role)

	_, err = ParseRole("pending")
	assert.Error(t, err)
}

func TestPriorityRankRoundTrip(t *testing.T) {
	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical} {
		assert.Equal(t, p, PriorityFromRank(p.Rank()))
	}

	p, err := ParsePriority("")
	require.NoError(t, err)
	assert.Equal(t, PriorityMedium, p)
}

func TestDependencyDirectionAndThreshold(t *testing.T) {
	blocks := &Dependency{FromItemID: "a", ToItemID: "b", Type: DepBlocks}
	assert.Equal(t, "a", blocks.BlockerID())
	assert.Equal(t, "b", blocks.DependentID())
	assert.Equal(t, RoleTerminal, blocks.Threshold())

	inverse := &Dependency{FromItemID: "a", ToItemID: "b", Type: DepIsBlockedBy}
	assert.Equal(t, "b", inverse.BlockerID())
	assert.Equal(t, "a", inverse.DependentID())

	work := RoleWork
	override := &Dependency{Type: DepBlocks, UnblockAt: &work}
	assert.Equal(t, RoleWork, override.Threshold())

	assert.True(t, DepBlocks.Blocking())
	assert.True(t, DepIsBlockedBy.Blocking())
	assert.False(t, DepRelatesTo.Blocking())
}

func TestParseDependencyTypeDefaultsToBlocks(t *testing.T) {
	dt, err := ParseDependencyType("")
	require.NoError(t, err)
	assert.Equal(t, DepBlocks, dt)

	_, err = ParseDependencyType("depends-on")
	assert.Error(t, err)
}

func TestValidNoteKey(t *testing.T) {
	assert.True(t, ValidNoteKey("design"))
	assert.True(t, ValidNoteKey("review-findings-2"))
	assert.False(t, ValidNoteKey("Design"))
	assert.False(t, ValidNoteKey("has space"))
	assert.False(t, ValidNoteKey("-leading"))
	assert.False(t, ValidNoteKey(""))
}

func TestNoteSchemaHasReviewPhase(t *testing.T) {
	var none *NoteSchema
	assert.False(t, none.HasReviewPhase())

	schema := &NoteSchema{Entries: []NoteSchemaEntry{{Key: "design", Role: NoteRoleQueue}}}
	assert.False(t, schema.HasReviewPhase())

	schema.Entries = append(schema.Entries, NoteSchemaEntry{Key: "findings", Role: NoteRoleReview})
	assert.True(t, schema.HasReviewPhase())
}

func TestAsDomainErrorWrapsUnknown(t *testing.T) {
	de := AsDomainError(assert.AnError)
	assert.Equal(t, CodeInternal, de.Code)

	original := NotFoundErr("item %s not found", "item_1")
	assert.Same(t, original, AsDomainError(original))
}
