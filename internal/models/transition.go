package models

import "time"

// RoleTransition is an append-only audit record written on every successful
// role change. Audit rows outlive their item: completion cleanup deletes
// items but keeps their transition history.
type RoleTransition struct {
	ID              string    `json:"id"`
	ItemID          string    `json:"itemId"`
	FromRole        Role      `json:"fromRole"`
	ToRole          Role      `json:"toRole"`
	FromStatusLabel *string   `json:"fromStatusLabel,omitempty"`
	ToStatusLabel   *string   `json:"toStatusLabel,omitempty"`
	Trigger         Trigger   `json:"trigger"`
	Summary         *string   `json:"summary,omitempty"`
	TransitionedAt  time.Time `json:"transitionedAt"`
}

// TransitionResult is returned to the caller after a successful advance.
type TransitionResult struct {
	Item          *WorkItem      `json:"item"`
	NewRole       Role           `json:"newRole"`
	ExpectedNotes []ExpectedNote `json:"expectedNotes,omitempty"`
	CascadeEvents []CascadeEvent `json:"cascadeEvents,omitempty"`
	CleanedUpIDs  []string       `json:"cleanedUpIds,omitempty"`
}

// DryRunResult is the read-only preview produced by get_next_status.
type DryRunResult struct {
	ItemID       string         `json:"itemId"`
	CurrentRole  Role           `json:"currentRole"`
	Trigger      Trigger        `json:"trigger"`
	TargetRole   Role           `json:"targetRole"`
	StatusLabel  *string        `json:"statusLabel,omitempty"`
	Valid        bool           `json:"valid"`
	Blockers     []BlockerInfo  `json:"blockers,omitempty"`
	MissingNotes []ExpectedNote `json:"missingNotes,omitempty"`
}
