package models

import (
	"fmt"
	"time"
)

// MaxDepth is the deepest level a work item can occupy in the tree.
// Levels: 0 = project, 1 = epic, 2 = feature, 3 = task.
const MaxDepth = 3

// Role is the lifecycle phase of a work item.
type Role string

const (
	RoleQueue    Role = "queue"
	RoleWork     Role = "work"
	RoleReview   Role = "review"
	RoleTerminal Role = "terminal"
	RoleBlocked  Role = "blocked"
)

// Ordinal returns the position of the role on the forward progression
// queue -> work -> review -> terminal. Blocked sits outside the progression
// and satisfies no dependency threshold, so it maps to -1.
func (r Role) Ordinal() int {
	switch r {
	case RoleQueue:
		return 0
	case RoleWork:
		return 1
	case RoleReview:
		return 2
	case RoleTerminal:
		return 3
	default:
		return -1
	}
}

// Valid reports whether r is one of the five known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleQueue, RoleWork, RoleReview, RoleTerminal, RoleBlocked:
		return true
	}
	return false
}

// ParseRole converts a string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q (valid: queue, work, review, terminal, blocked)", s)
	}
	return r, nil
}

// Trigger is the verb a client issues to move an item through its lifecycle.
type Trigger string

const (
	TriggerStart    Trigger = "start"
	TriggerComplete Trigger = "complete"
	TriggerBlock    Trigger = "block"
	TriggerHold     Trigger = "hold" // alias of block
	TriggerResume   Trigger = "resume"
	TriggerCancel   Trigger = "cancel"
)

// Valid reports whether t is a known trigger.
func (t Trigger) Valid() bool {
	switch t {
	case TriggerStart, TriggerComplete, TriggerBlock, TriggerHold, TriggerResume, TriggerCancel:
		return true
	}
	return false
}

// ValidTriggers lists the accepted trigger verbs for error messages.
func ValidTriggers() []string {
	return []string{"start", "complete", "block", "hold", "resume", "cancel"}
}

// Priority is the scheduling weight of a work item.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank returns the numeric weight stored in the database. Higher is more
// urgent, so recommendation queries can ORDER BY rank DESC.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	case PriorityCritical:
		return 3
	default:
		return 1
	}
}

// PriorityFromRank converts a stored rank back into a Priority.
func PriorityFromRank(rank int) Priority {
	switch rank {
	case 0:
		return PriorityLow
	case 2:
		return PriorityHigh
	case 3:
		return PriorityCritical
	default:
		return PriorityMedium
	}
}

// ParsePriority converts a string into a Priority. Empty defaults to medium.
func ParsePriority(s string) (Priority, error) {
	if s == "" {
		return PriorityMedium, nil
	}
	p := Priority(s)
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return p, nil
	}
	return "", fmt.Errorf("unknown priority %q (valid: low, medium, high, critical)", s)
}

// WorkItem is a node in the orchestration tree.
//
// Invariants maintained by the storage and workflow layers:
//   - Depth is 0..MaxDepth and equals parent depth + 1 when ParentID is set.
//   - PreviousRole is non-nil exactly while Role == RoleBlocked.
//   - RoleChangedAt moves on every role change.
type WorkItem struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Summary           string    `json:"summary,omitempty"`
	Tags              []string  `json:"tags"`
	Priority          Priority  `json:"priority"`
	ParentID          *string   `json:"parentId,omitempty"`
	Depth             int       `json:"depth"`
	Role              Role      `json:"role"`
	PreviousRole      *Role     `json:"previousRole,omitempty"`
	StatusLabel       *string   `json:"statusLabel,omitempty"`
	SummaryOnComplete *string   `json:"summaryOnComplete,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	ModifiedAt        time.Time `json:"modifiedAt"`
	RoleChangedAt     time.Time `json:"roleChangedAt"`
}

// HasTag reports whether the item carries the given tag.
func (w *WorkItem) HasTag(tag string) bool {
	for _, t := range w.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// HasAnyTag reports whether the item carries any tag from the set.
func (w *WorkItem) HasAnyTag(tags map[string]struct{}) bool {
	for _, t := range w.Tags {
		if _, ok := tags[t]; ok {
			return true
		}
	}
	return false
}

// ItemFilter narrows SearchItems results. Nil/zero fields mean "no constraint".
type ItemFilter struct {
	TagSubstring  string
	Role          *Role
	Priority      *Priority
	ParentID      *string
	Depth         *int
	TitleContains string
	Limit         int
	Offset        int
}

// RoleCounts buckets child counts by role for overview queries.
type RoleCounts struct {
	Queue    int `json:"queue"`
	Work     int `json:"work"`
	Review   int `json:"review"`
	Terminal int `json:"terminal"`
	Blocked  int `json:"blocked"`
}

// Total returns the sum across all buckets.
func (c RoleCounts) Total() int {
	return c.Queue + c.Work + c.Review + c.Terminal + c.Blocked
}

// OverviewNode is one row of a hierarchical overview walk. Completion is the
// terminal share of direct children, 0 for leaves.
type OverviewNode struct {
	Item        *WorkItem       `json:"item"`
	ChildCounts RoleCounts      `json:"childCounts"`
	Completion  float64         `json:"completion"`
	Children    []*OverviewNode `json:"children,omitempty"`
}
