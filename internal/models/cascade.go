package models

// CascadeEventType classifies a structural side effect detected after a
// transition applies.
type CascadeEventType string

const (
	// CascadeParentAdvance: every child of the parent is terminal, the parent
	// can move forward.
	CascadeParentAdvance CascadeEventType = "parent-advance"
	// CascadeParentStart: the first child entered work while the parent still
	// queues.
	CascadeParentStart CascadeEventType = "parent-start"
	// CascadeDependentsUnblocked: the transition pushed a blocker past its
	// threshold and the listed dependents now have no unsatisfied blockers.
	CascadeDependentsUnblocked CascadeEventType = "dependents-unblocked"
)

// CascadeEvent is a suggested (or auto-applied) follow-up transition.
type CascadeEvent struct {
	Type    CascadeEventType `json:"type"`
	ItemID  string           `json:"itemId"`            // item the suggestion targets
	Trigger Trigger          `json:"trigger,omitempty"` // suggested trigger, empty for informational events
	ItemIDs []string         `json:"itemIds,omitempty"` // dependents for dependents-unblocked
	Applied bool             `json:"applied"`           // true when auto-cascade executed it
	Detail  string           `json:"detail,omitempty"`
}
