package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrSessionFinalized is returned when an event targets a finalized session.
var ErrSessionFinalized = errors.New("session finalized")

// Tx is a write transaction holding the database's write lock. Writers on
// other connections, including other processes, wait on busy_timeout until
// it ends.
type Tx struct {
	q   querier
	seq *sequenceCounter
}

// Update runs fn inside a BEGIN IMMEDIATE transaction on a dedicated
// connection. An error from fn rolls everything back and is returned as is.
//
// The pool holds a single connection, so fn must only use tx.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) (err error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if _, rbErr := conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK"); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
	}()

	if err := fn(&Tx{q: conn, seq: s.seq}); err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

func (tx *Tx) GetSession(ctx context.Context, id string) (*Session, error) {
	return getSession(ctx, tx.q, id)
}

func (tx *Tx) PutSession(ctx context.Context, sess *Session) error {
	return putSession(ctx, tx.q, sess)
}

// AppendAttempt records an attempt unless the session is finalized.
func (tx *Tx) AppendAttempt(ctx context.Context, a *Attempt) error {
	return appendAttempt(ctx, tx.q, tx.seq, a)
}

// AppendError records an error event unless the session is finalized.
func (tx *Tx) AppendError(ctx context.Context, e *ErrorEvent) error {
	return appendError(ctx, tx.q, tx.seq, e)
}

// AppendAdjustment records a tier change unless the session is finalized.
func (tx *Tx) AppendAdjustment(ctx context.Context, adj *Adjustment) error {
	return appendAdjustment(ctx, tx.q, tx.seq, adj)
}

func (tx *Tx) ListAttempts(ctx context.Context, sessionID string) ([]Attempt, error) {
	return listAttempts(ctx, tx.q, sessionID)
}

func (tx *Tx) ListErrors(ctx context.Context, sessionID string) ([]ErrorEvent, error) {
	return listErrors(ctx, tx.q, sessionID)
}

func (tx *Tx) ListAdjustments(ctx context.Context, sessionID string) ([]Adjustment, error) {
	return listAdjustments(ctx, tx.q, sessionID)
}
