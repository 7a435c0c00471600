package models

import (
	"fmt"
	"regexp"
	"time"
)

// NoteRole is the lifecycle phase a note belongs to. Unlike item roles there
// is no terminal or blocked note phase.
type NoteRole string

const (
	NoteRoleQueue  NoteRole = "queue"
	NoteRoleWork   NoteRole = "work"
	NoteRoleReview NoteRole = "review"
)

// ParseNoteRole converts a string into a NoteRole.
func ParseNoteRole(s string) (NoteRole, error) {
	r := NoteRole(s)
	switch r {
	case NoteRoleQueue, NoteRoleWork, NoteRoleReview:
		return r, nil
	}
	return "", fmt.Errorf("unknown note role %q (valid: queue, work, review)", s)
}

var noteKeyPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidNoteKey reports whether key is a kebab-case identifier.
func ValidNoteKey(key string) bool {
	return noteKeyPattern.MatchString(key)
}

// Note is a keyed piece of text attached to a work item. The (ItemID, Key)
// pair is unique; upserting the same key replaces the body.
type Note struct {
	ID         string    `json:"id"`
	ItemID     string    `json:"itemId"`
	Key        string    `json:"key"`
	Role       NoteRole  `json:"role"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}
