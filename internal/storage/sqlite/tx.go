package sqlite

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/ordino/internal/interfaces"
)

// txBundle exposes the repositories bound to one connection holding an open
// transaction.
type txBundle struct {
	items        interfaces.ItemStorage
	notes        interfaces.NoteStorage
	dependencies interfaces.DependencyStorage
	transitions  interfaces.TransitionStorage
}

func (t *txBundle) Items() interfaces.ItemStorage               { return t.items }
func (t *txBundle) Notes() interfaces.NoteStorage               { return t.notes }
func (t *txBundle) Dependencies() interfaces.DependencyStorage  { return t.dependencies }
func (t *txBundle) Transitions() interfaces.TransitionStorage   { return t.transitions }

func newTxBundle(q queryer, logger arbor.ILogger, showSQL bool) *txBundle {
	return &txBundle{
		items:        newItemStorage(q, logger, showSQL),
		notes:        newNoteStorage(q, logger, showSQL),
		dependencies: newDependencyStorage(q, logger, showSQL),
		transitions:  newTransitionStorage(q, logger, showSQL),
	}
}

// RunInTransaction executes fn within a BEGIN IMMEDIATE transaction on a
// dedicated connection. IMMEDIATE acquires the write lock up front so
// concurrent writers queue on busy_timeout instead of deadlocking mid-read.
// fn returning nil commits; an error or panic rolls back.
func (m *Manager) RunInTransaction(ctx context.Context, fn func(tx interfaces.Transaction) error) (err error) {
	conn, err := m.db.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if p := recover(); p != nil {
			_, _ = conn.ExecContext(ctx, "ROLLBACK")
			panic(p)
		}
		if !committed {
			_, _ = conn.ExecContext(ctx, "ROLLBACK")
		}
	}()

	bundle := newTxBundle(conn, m.logger, m.showSQL)
	if err := fn(bundle); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}
