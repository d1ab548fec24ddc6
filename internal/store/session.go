package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var sessionColumns = []string{
	"id", "sequence", "learner_id", "started_at", "ended_at", "duration_secs",
	"hits", "misses", "avg_latency", "zones_completed", "max_zone",
	"initial_tier", "current_tier", "final_tier", "status", "completed",
	"sufficient_data", "metrics_verified", "clock_skew",
}

// CreateSession inserts a new session row. StartedAt defaults to now.
func (s *Store) CreateSession(ctx context.Context, sess *Session) error {
	seq, err := s.seq.Next(ctx, s.db)
	if err != nil {
		return err
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}
	sess.StartedAt = sess.StartedAt.UTC()
	if sess.Status == "" {
		sess.Status = StatusCreated
	}
	sess.Sequence = seq

	_, err = execStmt(ctx, s.db, builder.Insert(tableSessions).
		Columns(sessionColumns...).
		Values(
			sess.ID, sess.Sequence, nullInt64(sess.LearnerID), sess.StartedAt, nullTime(sess.EndedAt),
			sess.DurationSecs, sess.Hits, sess.Misses, sess.AvgLatency, sess.ZonesCompleted,
			sess.MaxZone, int(sess.InitialTier), int(sess.CurrentTier), int(sess.FinalTier),
			sess.Status, sess.Completed, sess.SufficientData, sess.MetricsVerified, sess.ClockSkew,
		))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// GetSession returns the session with id, or ErrNotFound.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	return getSession(ctx, s.db, id)
}

func getSession(ctx context.Context, q querier, id string) (*Session, error) {
	sel := builder.Select(sessionColumns...).
		From(builder.Table(tableSessions)).
		Where(entsql.EQ("id", id))

	var found *Session
	err := selectRows(ctx, q, sel, func(rows *sql.Rows) error {
		sess, err := scanSession(rows)
		found = sess
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	if found == nil {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return found, nil
}

// PutSession overwrites the mutable columns of an existing session.
func (s *Store) PutSession(ctx context.Context, sess *Session) error {
	return putSession(ctx, s.db, sess)
}

func putSession(ctx context.Context, q querier, sess *Session) error {
	res, err := execStmt(ctx, q, builder.Update(tableSessions).
		Set("learner_id", nullInt64(sess.LearnerID)).
		Set("ended_at", nullTime(sess.EndedAt)).
		Set("duration_secs", sess.DurationSecs).
		Set("hits", sess.Hits).
		Set("misses", sess.Misses).
		Set("avg_latency", sess.AvgLatency).
		Set("zones_completed", sess.ZonesCompleted).
		Set("max_zone", sess.MaxZone).
		Set("initial_tier", int(sess.InitialTier)).
		Set("current_tier", int(sess.CurrentTier)).
		Set("final_tier", int(sess.FinalTier)).
		Set("status", sess.Status).
		Set("completed", sess.Completed).
		Set("sufficient_data", sess.SufficientData).
		Set("metrics_verified", sess.MetricsVerified).
		Set("clock_skew", sess.ClockSkew).
		Where(entsql.EQ("id", sess.ID)))
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", sess.ID, ErrNotFound)
	}
	return nil
}

// ListSessions returns sessions newest first.
func (s *Store) ListSessions(ctx context.Context, f SessionFilter) ([]Session, error) {
	sel := builder.Select(sessionColumns...).
		From(builder.Table(tableSessions)).
		OrderBy(entsql.Desc("started_at"), entsql.Desc("sequence"))

	var preds []*entsql.Predicate
	if f.LearnerID != nil {
		preds = append(preds, entsql.EQ("learner_id", *f.LearnerID))
	}
	if f.Completed != nil {
		preds = append(preds, entsql.EQ("completed", *f.Completed))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	if f.Limit > 0 {
		sel.Limit(f.Limit)
	}

	var out []Session
	err := selectRows(ctx, s.db, sel, func(rows *sql.Rows) error {
		sess, err := scanSession(rows)
		if err != nil {
			return err
		}
		out = append(out, *sess)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

func scanSession(rows *sql.Rows) (*Session, error) {
	var (
		sess    Session
		learner sql.NullInt64
		ended   sql.NullTime
	)
	err := rows.Scan(
		&sess.ID, &sess.Sequence, &learner, &sess.StartedAt, &ended, &sess.DurationSecs,
		&sess.Hits, &sess.Misses, &sess.AvgLatency, &sess.ZonesCompleted, &sess.MaxZone,
		&sess.InitialTier, &sess.CurrentTier, &sess.FinalTier, &sess.Status, &sess.Completed,
		&sess.SufficientData, &sess.MetricsVerified, &sess.ClockSkew,
	)
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	if learner.Valid {
		id := learner.Int64
		sess.LearnerID = &id
	}
	if ended.Valid {
		t := ended.Time
		sess.EndedAt = &t
	}
	return &sess, nil
}

func nullInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}

func nullString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
