package common

import (
	"github.com/google/uuid"
)

// NewItemID generates a unique work item ID.
// Format: item_<uuid>
func NewItemID() string {
	return "item_" + uuid.New().String()
}

// NewNoteID generates a unique note ID.
func NewNoteID() string {
	return "note_" + uuid.New().String()
}

// NewDependencyID generates a unique dependency ID.
func NewDependencyID() string {
	return "dep_" + uuid.New().String()
}

// NewTransitionID generates a unique role transition ID.
func NewTransitionID() string {
	return "rt_" + uuid.New().String()
}
