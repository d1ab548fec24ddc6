package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// Event columns shared by every per-session event table.
var eventColumns = []string{"id", "sequence", "session_id", "created_at"}

func withEventColumns(cols ...string) []string {
	return append(append([]string{}, eventColumns...), cols...)
}

var (
	attemptColumns    = []string{"signal_name", "answer", "correct", "latency", "zone", "round", "tier"}
	errorColumns      = []string{"signal_name", "answer", "category", "latency", "zone", "tier", "prior_attempts", "feedback"}
	adjustmentColumns = []string{"previous_tier", "new_tier", "justification", "hit_rate", "avg_latency", "zone", "round"}
)

// appendEvent checks that the session still accepts events, then assigns
// sequence and timestamp and inserts one event row. q should be a
// transaction so the check and the insert commit together.
func appendEvent(ctx context.Context, q querier, seq *sequenceCounter, table, sessionID string, at time.Time, cols []string, vals ...any) (int64, int64, time.Time, error) {
	if err := acceptsEvents(ctx, q, sessionID); err != nil {
		return 0, 0, time.Time{}, err
	}
	n, err := seq.Next(ctx, q)
	if err != nil {
		return 0, 0, time.Time{}, err
	}
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()

	res, err := execStmt(ctx, q, builder.Insert(table).
		Columns(append([]string{"sequence", "session_id", "created_at"}, cols...)...).
		Values(append([]any{n, sessionID, at}, vals...)...))
	if err != nil {
		return 0, 0, time.Time{}, fmt.Errorf("insert into %s: %w", table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, 0, time.Time{}, fmt.Errorf("insert into %s: %w", table, err)
	}
	return id, n, at, nil
}

// acceptsEvents returns ErrNotFound for an unknown session and
// ErrSessionFinalized for a closed one.
func acceptsEvents(ctx context.Context, q querier, sessionID string) error {
	text, args := builder.Select("status").
		From(builder.Table(tableSessions)).
		Where(entsql.EQ("id", sessionID)).
		Query()
	var status string
	err := q.QueryRowContext(ctx, text, args...).Scan(&status)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	case err != nil:
		return fmt.Errorf("check session %s: %w", sessionID, err)
	case status == StatusFinalized:
		return fmt.Errorf("session %s: %w", sessionID, ErrSessionFinalized)
	}
	return nil
}

// eventsFor selects the events of one session in insertion order.
func eventsFor(table, sessionID string, cols []string) *entsql.Selector {
	return builder.Select(withEventColumns(cols...)...).
		From(builder.Table(table)).
		Where(entsql.EQ("session_id", sessionID)).
		OrderBy("sequence")
}

// AppendAttempt records an attempt and fills in its id, sequence and timestamp.
// Finalized sessions reject it with ErrSessionFinalized.
func (s *Store) AppendAttempt(ctx context.Context, a *Attempt) error {
	return s.Update(ctx, func(tx *Tx) error { return tx.AppendAttempt(ctx, a) })
}

func appendAttempt(ctx context.Context, q querier, sc *sequenceCounter, a *Attempt) error {
	id, seq, at, err := appendEvent(ctx, q, sc, tableAttempts, a.SessionID, a.CreatedAt, attemptColumns,
		a.SignalName, nullString(a.Answer), a.Correct, a.Latency, a.Zone, a.Round, int(a.Tier))
	if err != nil {
		return fmt.Errorf("save attempt: %w", err)
	}
	a.ID, a.Sequence, a.CreatedAt = id, seq, at
	return nil
}

// ListAttempts returns a session's attempts in insertion order.
func (s *Store) ListAttempts(ctx context.Context, sessionID string) ([]Attempt, error) {
	return listAttempts(ctx, s.db, sessionID)
}

func listAttempts(ctx context.Context, q querier, sessionID string) ([]Attempt, error) {
	var out []Attempt
	err := selectRows(ctx, q, eventsFor(tableAttempts, sessionID, attemptColumns), func(rows *sql.Rows) error {
		var (
			a      Attempt
			answer sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Sequence, &a.SessionID, &a.CreatedAt,
			&a.SignalName, &answer, &a.Correct, &a.Latency, &a.Zone, &a.Round, &a.Tier); err != nil {
			return err
		}
		a.Answer = stringPtr(answer)
		out = append(out, a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return out, nil
}

// AppendError records an error event.
func (s *Store) AppendError(ctx context.Context, e *ErrorEvent) error {
	return s.Update(ctx, func(tx *Tx) error { return tx.AppendError(ctx, e) })
}

func appendError(ctx context.Context, q querier, sc *sequenceCounter, e *ErrorEvent) error {
	var feedback any
	if e.Feedback != "" {
		feedback = e.Feedback
	}
	id, seq, at, err := appendEvent(ctx, q, sc, tableErrors, e.SessionID, e.CreatedAt, errorColumns,
		e.SignalName, nullString(e.Answer), e.Category, e.Latency, e.Zone, int(e.Tier), e.PriorAttempts, feedback)
	if err != nil {
		return fmt.Errorf("save error event: %w", err)
	}
	e.ID, e.Sequence, e.CreatedAt = id, seq, at
	return nil
}

// ListErrors returns a session's error events in insertion order.
func (s *Store) ListErrors(ctx context.Context, sessionID string) ([]ErrorEvent, error) {
	return listErrors(ctx, s.db, sessionID)
}

func listErrors(ctx context.Context, q querier, sessionID string) ([]ErrorEvent, error) {
	var out []ErrorEvent
	err := selectRows(ctx, q, eventsFor(tableErrors, sessionID, errorColumns), func(rows *sql.Rows) error {
		var (
			e        ErrorEvent
			answer   sql.NullString
			feedback sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Sequence, &e.SessionID, &e.CreatedAt,
			&e.SignalName, &answer, &e.Category, &e.Latency, &e.Zone, &e.Tier, &e.PriorAttempts, &feedback); err != nil {
			return err
		}
		e.Answer = stringPtr(answer)
		e.Feedback = feedback.String
		out = append(out, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list error events: %w", err)
	}
	return out, nil
}

// AppendAdjustment records a difficulty tier change.
func (s *Store) AppendAdjustment(ctx context.Context, adj *Adjustment) error {
	return s.Update(ctx, func(tx *Tx) error { return tx.AppendAdjustment(ctx, adj) })
}

func appendAdjustment(ctx context.Context, q querier, sc *sequenceCounter, adj *Adjustment) error {
	id, seq, at, err := appendEvent(ctx, q, sc, tableAdjustments, adj.SessionID, adj.CreatedAt, adjustmentColumns,
		int(adj.PreviousTier), int(adj.NewTier), adj.Justification, adj.HitRate, adj.AvgLatency, adj.Zone, adj.Round)
	if err != nil {
		return fmt.Errorf("save adjustment: %w", err)
	}
	adj.ID, adj.Sequence, adj.CreatedAt = id, seq, at
	return nil
}

// ListAdjustments returns a session's tier changes in insertion order.
func (s *Store) ListAdjustments(ctx context.Context, sessionID string) ([]Adjustment, error) {
	return listAdjustments(ctx, s.db, sessionID)
}

func listAdjustments(ctx context.Context, q querier, sessionID string) ([]Adjustment, error) {
	var out []Adjustment
	err := selectRows(ctx, q, eventsFor(tableAdjustments, sessionID, adjustmentColumns), func(rows *sql.Rows) error {
		var a Adjustment
		if err := rows.Scan(&a.ID, &a.Sequence, &a.SessionID, &a.CreatedAt,
			&a.PreviousTier, &a.NewTier, &a.Justification, &a.HitRate, &a.AvgLatency, &a.Zone, &a.Round); err != nil {
			return err
		}
		out = append(out, a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	return out, nil
}
