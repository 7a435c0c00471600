package models

// NoteSchemaEntry is one note contract inside a schema, loaded from the
// .taskorchestrator/config.yaml note_schemas section.
type NoteSchemaEntry struct {
	Key         string   `json:"key" yaml:"key"`
	Role        NoteRole `json:"role" yaml:"role"`
	Required    bool     `json:"required" yaml:"required"`
	Description string   `json:"description" yaml:"description"`
	Guidance    string   `json:"guidance,omitempty" yaml:"guidance,omitempty"`
}

// NoteSchema is an ordered list of note contracts keyed by a tag. An item's
// active schema is the first tag in item.Tags that matches a known schema.
type NoteSchema struct {
	Tag     string            `json:"tag"`
	Entries []NoteSchemaEntry `json:"entries"`
}

// HasReviewPhase reports whether any entry belongs to the review phase.
// Items whose schema (or absence of one) lacks a review phase skip REVIEW
// and go straight to TERMINAL on start-from-work.
func (s *NoteSchema) HasReviewPhase() bool {
	if s == nil {
		return false
	}
	for _, e := range s.Entries {
		if e.Role == NoteRoleReview {
			return true
		}
	}
	return false
}

// ExpectedNote pairs a schema entry with whether a satisfying note exists.
type ExpectedNote struct {
	Key      string   `json:"key"`
	Role     NoteRole `json:"role"`
	Required bool     `json:"required"`
	Exists   bool     `json:"exists"`
	Guidance string   `json:"guidance,omitempty"`
}

// GateStatus summarizes whether an item may advance out of its current phase.
type GateStatus struct {
	CanAdvance           bool     `json:"canAdvance"`
	MissingRequiredNotes []string `json:"missingRequiredNotes"`
}

// CleanupPolicy controls completion cleanup of a finished parent's children.
type CleanupPolicy struct {
	Enabled    bool     `json:"enabled" yaml:"enabled"`
	RetainTags []string `json:"retainTags" yaml:"retainTags"`
}

// DefaultRetainTags are the tags that exempt a child from completion cleanup.
func DefaultRetainTags() []string {
	return []string{"bug", "bugfix", "fix", "hotfix", "critical"}
}

// DefaultCleanupPolicy returns cleanup enabled with the default retain set.
func DefaultCleanupPolicy() CleanupPolicy {
	return CleanupPolicy{Enabled: true, RetainTags: DefaultRetainTags()}
}

// RetainSet returns the retain tags as a lookup set.
func (p CleanupPolicy) RetainSet() map[string]struct{} {
	set := make(map[string]struct{}, len(p.RetainTags))
	for _, t := range p.RetainTags {
		set[t] = struct{}{}
	}
	return set
}

// CascadePolicy controls automatic application of cascade events.
type CascadePolicy struct {
	Enabled  bool `json:"enabled" yaml:"enabled"`
	MaxDepth int  `json:"maxDepth" yaml:"maxDepth"`
}

// DefaultCascadePolicy returns auto-cascade enabled with recursion depth 3.
func DefaultCascadePolicy() CascadePolicy {
	return CascadePolicy{Enabled: true, MaxDepth: 3}
}
