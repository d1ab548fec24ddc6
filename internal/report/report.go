// Package report assembles the per-session analytics view and renders it
// for export.
package report

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/signcoach/internal/metrics"
	"github.com/abhisek/signcoach/internal/store"
)

// UnknownLearner is shown for sessions without a learner or whose learner
// row is gone.
const UnknownLearner = "Unknown"

// Source is what a report reads.
type Source interface {
	GetSession(ctx context.Context, id string) (*store.Session, error)
	Learner(ctx context.Context, id int64) (*store.Learner, error)
	ListAttempts(ctx context.Context, sessionID string) ([]store.Attempt, error)
	ListErrors(ctx context.Context, sessionID string) ([]store.ErrorEvent, error)
	ListAdjustments(ctx context.Context, sessionID string) ([]store.Adjustment, error)
}

// Report is a session with everything recorded against it.
type Report struct {
	Session     *store.Session              `json:"session"`
	LearnerName string                      `json:"learner_name"`
	HitRate     float64                     `json:"hit_rate"`
	Signals     []metrics.SignalBreakdown   `json:"signals"`
	Categories  []metrics.CategoryBreakdown `json:"categories"`
	Adjustments []store.Adjustment          `json:"adjustments"`
	Attempts    []store.Attempt             `json:"attempts"`
	Errors      []store.ErrorEvent          `json:"errors"`
}

// Build loads the session and its events. The event lists load in parallel.
func Build(ctx context.Context, src Source, sessionID string) (*Report, error) {
	sess, err := src.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	r := &Report{Session: sess, LearnerName: UnknownLearner}
	g, gctx := errgroup.WithContext(ctx)

	if sess.LearnerID != nil {
		g.Go(func() error {
			l, err := src.Learner(gctx, *sess.LearnerID)
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("load learner: %w", err)
			}
			r.LearnerName = l.Name
			return nil
		})
	}
	g.Go(func() (err error) {
		r.Attempts, err = src.ListAttempts(gctx, sessionID)
		return err
	})
	g.Go(func() (err error) {
		r.Errors, err = src.ListErrors(gctx, sessionID)
		return err
	})
	g.Go(func() (err error) {
		r.Adjustments, err = src.ListAdjustments(gctx, sessionID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// The stored triple stands in for the log when nothing was recorded.
	m := metrics.Reconcile(r.Attempts, r.Errors, metrics.ClientReport{
		Hits:       sess.Hits,
		Misses:     sess.Misses,
		AvgLatency: sess.AvgLatency,
	})
	r.HitRate = m.HitRate()
	r.Signals = m.Signals
	r.Categories = m.Categories
	return r, nil
}

// Total is hits plus misses as stored on the session.
func (r *Report) Total() int {
	return r.Session.Hits + r.Session.Misses
}
