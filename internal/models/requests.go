package models

// CreateItemRequest carries one manage_items(create) entry. Shape rules live
// in the validate tags; callers trim and normalize before validating.
type CreateItemRequest struct {
	Title    string   `json:"title" validate:"required"`
	Summary  string   `json:"summary,omitempty"`
	Tags     []string `json:"tags,omitempty" validate:"unique,dive,required"`
	Priority string   `json:"priority,omitempty" validate:"omitempty,oneof=low medium high critical"`
	ParentID *string  `json:"parentId,omitempty"`
	// TemplateIDs are accepted for forward compatibility and ignored when
	// unknown.
	TemplateIDs []string `json:"templateIds,omitempty"`
}

// UpdateItemRequest carries one manage_items(update) entry. Nil fields are
// left untouched; role changes are rejected here and must go through
// advance_item.
type UpdateItemRequest struct {
	ID          string    `json:"id" validate:"required"`
	Title       *string   `json:"title,omitempty"`
	Summary     *string   `json:"summary,omitempty"`
	Tags        *[]string `json:"tags,omitempty" validate:"omitempty,unique,dive,required"`
	Priority    *string   `json:"priority,omitempty" validate:"omitempty,oneof=low medium high critical"`
	StatusLabel *string   `json:"statusLabel,omitempty"`
}

// WorkTreeRequest creates a root item plus children, dependencies between
// them and initial notes in one transaction.
type WorkTreeRequest struct {
	Root     CreateItemRequest    `json:"root"`
	Children []WorkTreeChild      `json:"children,omitempty" validate:"dive"`
	Deps     []WorkTreeDependency `json:"dependencies,omitempty" validate:"dive"`
	Notes    []WorkTreeNote       `json:"notes,omitempty" validate:"dive"`
}

// WorkTreeChild is one child spec; Ref names the child so dependencies and
// notes inside the same request can point at it before an ID exists.
type WorkTreeChild struct {
	Ref      string   `json:"ref" validate:"required"`
	Title    string   `json:"title" validate:"required"`
	Summary  string   `json:"summary,omitempty"`
	Tags     []string `json:"tags,omitempty" validate:"unique,dive,required"`
	Priority string   `json:"priority,omitempty" validate:"omitempty,oneof=low medium high critical"`
}

// WorkTreeDependency links two refs ("root" addresses the root item).
type WorkTreeDependency struct {
	FromRef   string `json:"fromRef" validate:"required"`
	ToRef     string `json:"toRef" validate:"required"`
	Type      string `json:"type,omitempty" validate:"omitempty,oneof=blocks is-blocked-by relates-to"`
	UnblockAt string `json:"unblockAt,omitempty" validate:"omitempty,oneof=queue work review terminal"`
}

// WorkTreeNote attaches an initial note to a ref.
type WorkTreeNote struct {
	Ref  string `json:"ref" validate:"required"`
	Key  string `json:"key" validate:"required"`
	Role string `json:"role" validate:"required,oneof=queue work review"`
	Body string `json:"body" validate:"required"`
}

// WorkTreeResult reports the created tree.
type WorkTreeResult struct {
	Root     *WorkItem         `json:"root"`
	Children map[string]string `json:"children"` // ref -> item id
	DepIDs   []string          `json:"dependencyIds,omitempty"`
	NoteIDs  []string          `json:"noteIds,omitempty"`
}

// BlockedItem pairs an unsatisfied item with its blockers.
type BlockedItem struct {
	Item     *WorkItem     `json:"item"`
	Blockers []BlockerInfo `json:"blockers"`
}

// ItemExport is the full payload of an item subtree for agent-side snapshots.
type ItemExport struct {
	Item         *WorkItem     `json:"item"`
	Notes        []*Note       `json:"notes,omitempty"`
	Dependencies []*Dependency `json:"dependencies,omitempty"`
	Children     []*ItemExport `json:"children,omitempty"`
}

// ItemContext is the get_context response for a single item.
type ItemContext struct {
	Item            *WorkItem      `json:"item"`
	Breadcrumbs     []*WorkItem    `json:"breadcrumbs,omitempty"`
	Schema          *NoteSchema    `json:"schema,omitempty"`
	SchemaFree      bool           `json:"schemaFree"`
	ExpectedNotes   []ExpectedNote `json:"expectedNotes"`
	GateStatus      GateStatus     `json:"gateStatus"`
	GuidancePointer string         `json:"guidancePointer,omitempty"`
}

// BoardContext is the get_context response without an item id: a summary of
// where work currently sits.
type BoardContext struct {
	Active  []*WorkItem    `json:"active"`  // role work
	Review  []*WorkItem    `json:"review"`  // role review
	Blocked []*BlockedItem `json:"blocked"` // blocked role or unsatisfied gates
	Stalled []*WorkItem    `json:"stalled"` // queue items whose gates are satisfied
}
