package models

import (
	"fmt"
	"time"
)

// DependencyType classifies an edge between two work items.
type DependencyType string

const (
	// DepBlocks: FromItemID is a prerequisite of ToItemID.
	DepBlocks DependencyType = "blocks"
	// DepIsBlockedBy is the directional inverse of DepBlocks: FromItemID is
	// the dependent and ToItemID the prerequisite.
	DepIsBlockedBy DependencyType = "is-blocked-by"
	// DepRelatesTo is informational and never gates a transition.
	DepRelatesTo DependencyType = "relates-to"
)

// Blocking reports whether the edge type participates in transition gating.
func (t DependencyType) Blocking() bool {
	return t == DepBlocks || t == DepIsBlockedBy
}

// ParseDependencyType converts a string into a DependencyType. Empty defaults
// to blocks.
func ParseDependencyType(s string) (DependencyType, error) {
	if s == "" {
		return DepBlocks, nil
	}
	t := DependencyType(s)
	switch t {
	case DepBlocks, DepIsBlockedBy, DepRelatesTo:
		return t, nil
	}
	return "", fmt.Errorf("unknown dependency type %q (valid: blocks, is-blocked-by, relates-to)", s)
}

// Dependency is a directed edge between two work items. UnblockAt, when set,
// overrides the default terminal threshold for when the dependent counts as
// unblocked.
type Dependency struct {
	ID         string         `json:"id"`
	FromItemID string         `json:"fromItemId"`
	ToItemID   string         `json:"toItemId"`
	Type       DependencyType `json:"type"`
	UnblockAt  *Role          `json:"unblockAt,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// BlockerID returns the item that must progress before the dependent may.
// For is-blocked-by edges the direction is inverted.
func (d *Dependency) BlockerID() string {
	if d.Type == DepIsBlockedBy {
		return d.ToItemID
	}
	return d.FromItemID
}

// DependentID returns the item gated by this edge.
func (d *Dependency) DependentID() string {
	if d.Type == DepIsBlockedBy {
		return d.FromItemID
	}
	return d.ToItemID
}

// Threshold returns the role the blocker must be at-or-beyond for the edge to
// be satisfied.
func (d *Dependency) Threshold() Role {
	if d.UnblockAt != nil {
		return *d.UnblockAt
	}
	return RoleTerminal
}

// BlockerInfo describes one unsatisfied blocking edge in a validation result.
type BlockerInfo struct {
	DependencyID  string `json:"dependencyId"`
	BlockerItemID string `json:"blockerItemId"`
	BlockerRole   Role   `json:"blockerRole,omitempty"`
	RequiredRole  Role   `json:"requiredRole"`
	Missing       bool   `json:"missing,omitempty"` // blocker item no longer exists
}

// DependencyFilter narrows dependency queries on the MCP surface.
type DependencyFilter struct {
	ItemID    string
	Direction string // "incoming", "outgoing" or "" for both
	Type      *DependencyType
}
