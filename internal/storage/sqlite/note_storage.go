package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/ordino/internal/models"
)

const noteColumns = `id, item_id, key, role, body, created_at, modified_at`

type noteStorage struct {
	db      queryer
	logger  arbor.ILogger
	showSQL bool
}

func newNoteStorage(db queryer, logger arbor.ILogger, showSQL bool) *noteStorage {
	return &noteStorage{db: db, logger: logger, showSQL: showSQL}
}

// UpsertNote inserts the note or, when (item_id, key) already exists, replaces
// its body and role while keeping the original ID and created_at. Returns the
// stored row.
func (s *noteStorage) UpsertNote(ctx context.Context, note *models.Note) (*models.Note, error) {
	query := `
		INSERT INTO notes (` + noteColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id, key) DO UPDATE SET
			role = excluded.role,
			body = excluded.body,
			modified_at = excluded.modified_at`
	traceSQL(s.logger, s.showSQL, query)

	_, err := s.db.ExecContext(ctx, query,
		note.ID, note.ItemID, note.Key, string(note.Role), note.Body,
		note.CreatedAt.Unix(), note.ModifiedAt.Unix())
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, models.NotFoundErr("work item %s not found", note.ItemID)
		}
		if isCheckViolation(err) {
			return nil, models.ValidationErr("invalid note role %q", note.Role)
		}
		return nil, models.DatabaseErr(err, "failed to upsert note %s/%s", note.ItemID, note.Key)
	}

	return s.GetNote(ctx, note.ItemID, note.Key)
}

// GetNote retrieves one note by item and key.
func (s *noteStorage) GetNote(ctx context.Context, itemID, key string) (*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE item_id = ? AND key = ?`
	traceSQL(s.logger, s.showSQL, query)

	note, err := scanNote(s.db.QueryRowContext(ctx, query, itemID, key))
	if err == sql.ErrNoRows {
		return nil, models.NotFoundErr("note %q not found on item %s", key, itemID)
	}
	if err != nil {
		return nil, models.DatabaseErr(err, "failed to get note %s/%s", itemID, key)
	}
	return note, nil
}

// ListNotes returns the notes on an item, optionally limited to one role,
// ordered by key for stable output.
func (s *noteStorage) ListNotes(ctx context.Context, itemID string, role *models.NoteRole) ([]*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE item_id = ?`
	args := []interface{}{itemID}
	if role != nil {
		query += " AND role = ?"
		args = append(args, string(*role))
	}
	query += " ORDER BY key ASC"
	traceSQL(s.logger, s.showSQL, query)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, models.DatabaseErr(err, "failed to list notes for %s", itemID)
	}
	defer rows.Close()

	var notes []*models.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, models.DatabaseErr(err, "failed to scan note")
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, models.DatabaseErr(err, "failed to iterate notes")
	}
	return notes, nil
}

// DeleteNote removes one note by item and key.
func (s *noteStorage) DeleteNote(ctx context.Context, itemID, key string) error {
	query := `DELETE FROM notes WHERE item_id = ? AND key = ?`
	traceSQL(s.logger, s.showSQL, query)

	result, err := s.db.ExecContext(ctx, query, itemID, key)
	if err != nil {
		return models.DatabaseErr(err, "failed to delete note %s/%s", itemID, key)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return models.NotFoundErr("note %q not found on item %s", key, itemID)
	}
	return nil
}

func scanNote(row rowScanner) (*models.Note, error) {
	var note models.Note
	var role string
	var createdAt, modifiedAt int64

	err := row.Scan(&note.ID, &note.ItemID, &note.Key, &role, &note.Body, &createdAt, &modifiedAt)
	if err != nil {
		return nil, err
	}

	note.Role = models.NoteRole(role)
	note.CreatedAt = time.Unix(createdAt, 0).UTC()
	note.ModifiedAt = time.Unix(modifiedAt, 0).UTC()
	return &note, nil
}
