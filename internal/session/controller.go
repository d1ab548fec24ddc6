// Package session drives a training session from creation to finalization:
// it appends events, asks the decision engine for tier changes and reconciles
// the event log into the session's final record.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/signcoach/internal/decision"
	"github.com/abhisek/signcoach/internal/diagnosis"
	"github.com/abhisek/signcoach/internal/difficulty"
	"github.com/abhisek/signcoach/internal/logging"
	"github.com/abhisek/signcoach/internal/metrics"
	"github.com/abhisek/signcoach/internal/store"
	"github.com/abhisek/signcoach/internal/telemetry"
)

// Store is the persistence the controller needs. Every mutation of an
// existing session runs inside Update, so the status check and the write
// commit together even when another process shares the database.
type Store interface {
	CreateSession(ctx context.Context, s *store.Session) error
	GetSession(ctx context.Context, id string) (*store.Session, error)
	Learner(ctx context.Context, id int64) (*store.Learner, error)
	Update(ctx context.Context, fn func(tx *store.Tx) error) error
}

type sessionGetter interface {
	GetSession(ctx context.Context, id string) (*store.Session, error)
}

// ConfigSource yields the active difficulty configuration.
type ConfigSource interface {
	Current() difficulty.Configuration
}

// Deps wires a Controller. Store, Engine and Config are required.
type Deps struct {
	Store       Store
	Engine      *decision.Engine
	Config      ConfigSource
	Classifiers []diagnosis.Classifier
	Logger      *slog.Logger
	Now         func() time.Time
}

// Controller owns session state transitions. Mutations of one session are
// serialized in process by a keyed lock and across processes by the store's
// write transaction; different sessions proceed independently in process.
type Controller struct {
	store       Store
	engine      *decision.Engine
	config      ConfigSource
	classifiers []diagnosis.Classifier
	logger      *slog.Logger
	now         func() time.Time
	locks       *keyedMutex
}

// NewController creates a Controller.
func NewController(d Deps) *Controller {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Classifiers == nil {
		d.Classifiers = diagnosis.DefaultClassifiers(nil)
	}
	return &Controller{
		store:       d.Store,
		engine:      d.Engine,
		config:      d.Config,
		classifiers: d.Classifiers,
		logger:      logging.OrDiscard(d.Logger),
		now:         d.Now,
		locks:       newKeyedMutex(),
	}
}

// StartRequest opens a session. Nil fields take configured defaults.
type StartRequest struct {
	LearnerID   *int64           `json:"learner_id,omitempty"`
	InitialTier *difficulty.Tier `json:"initial_tier,omitempty"`
}

// Start persists a new session in the created state.
func (c *Controller) Start(ctx context.Context, req StartRequest) (*store.Session, error) {
	if req.LearnerID != nil {
		if _, err := c.store.Learner(ctx, *req.LearnerID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("%w: %d", ErrLearnerNotFound, *req.LearnerID)
			}
			return nil, err
		}
	}

	tier := c.config.Current().InitialTier
	if req.InitialTier != nil {
		tier = difficulty.ClampTier(int(*req.InitialTier))
	}

	sess := &store.Session{
		ID:          uuid.NewString(),
		LearnerID:   req.LearnerID,
		StartedAt:   c.now(),
		InitialTier: tier,
		CurrentTier: tier,
		FinalTier:   tier,
		Status:      store.StatusCreated,
	}
	if err := c.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	c.logger.Info("session started", "session_id", sess.ID, "tier", tier.String())
	return sess, nil
}

// Get returns the session.
func (c *Controller) Get(ctx context.Context, id string) (*store.Session, error) {
	return c.load(ctx, c.store, id)
}

func (c *Controller) load(ctx context.Context, src sessionGetter, id string) (*store.Session, error) {
	sess, err := src.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, err
	}
	return sess, nil
}

// State returns the session's lifecycle state.
func (c *Controller) State(ctx context.Context, id string) (string, error) {
	sess, err := c.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return sess.Status, nil
}

// openSession loads a session that still accepts events. Callers hold the
// session lock and run inside tx.
func (c *Controller) openSession(ctx context.Context, tx *store.Tx, id string) (*store.Session, error) {
	sess, err := c.load(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if sess.Status == store.StatusFinalized {
		telemetry.AppendsRejected.Inc()
		return nil, fmt.Errorf("%w: %s", ErrSessionClosed, id)
	}
	return sess, nil
}

// closedErr maps the store's finalized guard onto ErrSessionClosed.
func closedErr(err error, id string) error {
	if errors.Is(err, store.ErrSessionFinalized) {
		telemetry.AppendsRejected.Inc()
		return fmt.Errorf("%w: %s", ErrSessionClosed, id)
	}
	return err
}

// markActive moves a created session to active on its first event and
// tracks zone progress. It reports whether the session row changed.
func markActive(sess *store.Session, zone int) bool {
	changed := trackZone(sess, zone)
	if sess.Status == store.StatusCreated {
		sess.Status = store.StatusActive
		changed = true
	}
	return changed
}

// trackZone raises MaxZone to zone. It reports whether it changed.
func trackZone(sess *store.Session, zone int) bool {
	if zone <= sess.MaxZone {
		return false
	}
	sess.MaxZone = zone
	return true
}

func sanitizeLatency(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// AttemptInput is one recognition attempt reported by the simulator.
type AttemptInput struct {
	SignalName string           `json:"signal_name"`
	Answer     *string          `json:"answer"`
	Correct    bool             `json:"correct"`
	Latency    float64          `json:"latency"`
	Zone       int              `json:"zone"`
	Round      int              `json:"round"`
	Tier       *difficulty.Tier `json:"tier,omitempty"`
}

// AppendAttempt records an attempt. Finalized sessions reject it with
// ErrSessionClosed.
func (c *Controller) AppendAttempt(ctx context.Context, sessionID string, in AttemptInput) (*store.Attempt, error) {
	if in.SignalName == "" {
		return nil, fmt.Errorf("%w: signal name is required", ErrInvalidEvent)
	}

	unlock := c.locks.Lock(sessionID)
	defer unlock()

	var a *store.Attempt
	err := c.store.Update(ctx, func(tx *store.Tx) error {
		sess, err := c.openSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}

		tier := sess.CurrentTier
		if in.Tier != nil {
			tier = difficulty.ClampTier(int(*in.Tier))
		}
		a = &store.Attempt{
			SessionID:  sessionID,
			SignalName: in.SignalName,
			Answer:     in.Answer,
			Correct:    in.Correct,
			Latency:    sanitizeLatency(in.Latency),
			Zone:       in.Zone,
			Round:      in.Round,
			Tier:       tier,
		}
		if err := tx.AppendAttempt(ctx, a); err != nil {
			return err
		}
		if markActive(sess, in.Zone) {
			return tx.PutSession(ctx, sess)
		}
		return nil
	})
	if err != nil {
		return nil, closedErr(err, sessionID)
	}
	telemetry.EventsAppended.WithLabelValues("attempt").Inc()
	return a, nil
}

// ErrorInput is a miss reported by the simulator. An empty Category is
// inferred by the diagnosis classifiers; a nil PriorAttempts is counted from
// the session's attempts at the same signal.
type ErrorInput struct {
	SignalName    string           `json:"signal_name"`
	Answer        *string          `json:"answer"`
	Category      string           `json:"category,omitempty"`
	Latency       float64          `json:"latency"`
	Zone          int              `json:"zone"`
	Tier          *difficulty.Tier `json:"tier,omitempty"`
	PriorAttempts *int             `json:"prior_attempts,omitempty"`
	Feedback      string           `json:"feedback,omitempty"`
}

// AppendError records an error event. Finalized sessions reject it with
// ErrSessionClosed.
func (c *Controller) AppendError(ctx context.Context, sessionID string, in ErrorInput) (*store.ErrorEvent, error) {
	if in.SignalName == "" {
		return nil, fmt.Errorf("%w: signal name is required", ErrInvalidEvent)
	}

	var category diagnosis.ErrorCategory
	if in.Category != "" {
		cat, err := diagnosis.ParseCategory(in.Category)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
		category = cat
	}

	unlock := c.locks.Lock(sessionID)
	defer unlock()

	var e *store.ErrorEvent
	err := c.store.Update(ctx, func(tx *store.Tx) error {
		sess, err := c.openSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}

		tier := sess.CurrentTier
		if in.Tier != nil {
			tier = difficulty.ClampTier(int(*in.Tier))
		}
		latency := sanitizeLatency(in.Latency)

		cat := category
		if cat == "" {
			result := diagnosis.Diagnose(c.classifiers, &diagnosis.ClassifyInput{
				SignalName: in.SignalName,
				Answer:     in.Answer,
				Latency:    latency,
				TimeLimit:  c.config.Current().TimeLimit(tier),
			})
			cat = result.Category
			c.logger.Debug("error category inferred", "session_id", sessionID,
				"signal", in.SignalName, "category", cat, "classifier", result.ClassifierName)
		}

		prior := 0
		if in.PriorAttempts != nil {
			prior = max(*in.PriorAttempts, 0)
		} else {
			attempts, err := tx.ListAttempts(ctx, sessionID)
			if err != nil {
				return err
			}
			for _, a := range attempts {
				if a.SignalName == in.SignalName {
					prior++
				}
			}
		}

		e = &store.ErrorEvent{
			SessionID:     sessionID,
			SignalName:    in.SignalName,
			Answer:        in.Answer,
			Category:      string(cat),
			Latency:       latency,
			Zone:          in.Zone,
			Tier:          tier,
			PriorAttempts: prior,
			Feedback:      in.Feedback,
		}
		if err := tx.AppendError(ctx, e); err != nil {
			return err
		}
		if markActive(sess, in.Zone) {
			return tx.PutSession(ctx, sess)
		}
		return nil
	})
	if err != nil {
		return nil, closedErr(err, sessionID)
	}
	telemetry.EventsAppended.WithLabelValues("error").Inc()
	return e, nil
}

// EvaluateInput is the running feature snapshot at a decision point.
type EvaluateInput struct {
	Zone          int     `json:"zone"`
	Round         int     `json:"round"`
	SignalsShown  int     `json:"signals_shown"`
	Hits          int     `json:"hits"`
	Misses        int     `json:"misses"`
	AvgLatency    float64 `json:"avg_latency"`
	ZoneCompleted bool    `json:"zone_completed"`
}

// Evaluation is the outcome of a decision point.
type Evaluation struct {
	decision.Decision
	PreviousTier difficulty.Tier   `json:"previous_tier"`
	Changed      bool              `json:"changed"`
	Adjustment   *store.Adjustment `json:"adjustment,omitempty"`
	// Parameters for the next round at the decided tier.
	SignalCount int     `json:"signal_count"`
	TimeLimit   float64 `json:"time_limit"`
}

// Evaluate asks the decision engine for the next tier and records a
// DifficultyAdjustment when it differs from the session's current tier.
// It tracks zone progress but leaves the lifecycle state alone: only
// appended events move a session to active.
func (c *Controller) Evaluate(ctx context.Context, sessionID string, in EvaluateInput) (*Evaluation, error) {
	unlock := c.locks.Lock(sessionID)
	defer unlock()

	var ev *Evaluation
	err := c.store.Update(ctx, func(tx *store.Tx) error {
		sess, err := c.openSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}

		cfg := c.config.Current()
		d := c.engine.Decide(decision.FeatureVector{
			Zone:         in.Zone,
			SignalsShown: in.SignalsShown,
			Hits:         in.Hits,
			Misses:       in.Misses,
			AvgLatency:   sanitizeLatency(in.AvgLatency),
		}, cfg.UseModel)

		ev = &Evaluation{
			Decision:     d,
			PreviousTier: sess.CurrentTier,
			Changed:      d.Tier != sess.CurrentTier,
			SignalCount:  cfg.SignalCount(d.Tier),
			TimeLimit:    cfg.TimeLimit(d.Tier),
		}

		dirty := trackZone(sess, in.Zone)
		if ev.Changed {
			adj := &store.Adjustment{
				SessionID:     sessionID,
				PreviousTier:  sess.CurrentTier,
				NewTier:       d.Tier,
				Justification: justification(d, in),
				HitRate:       d.HitRate,
				AvgLatency:    sanitizeLatency(in.AvgLatency),
				Zone:          in.Zone,
				Round:         in.Round,
			}
			if err := tx.AppendAdjustment(ctx, adj); err != nil {
				return err
			}
			ev.Adjustment = adj
			sess.CurrentTier = d.Tier
			dirty = true
		}
		if in.ZoneCompleted {
			sess.ZonesCompleted++
			dirty = true
		}
		if dirty {
			return tx.PutSession(ctx, sess)
		}
		return nil
	})
	if err != nil {
		return nil, closedErr(err, sessionID)
	}

	if ev.Changed {
		telemetry.EventsAppended.WithLabelValues("adjustment").Inc()
		c.logger.Info("difficulty adjusted", "session_id", sessionID,
			"from", ev.PreviousTier.String(), "to", ev.Tier.String(), "rationale", ev.Rationale)
	}
	return ev, nil
}

func justification(d decision.Decision, in EvaluateInput) string {
	return fmt.Sprintf("%s: hit rate %.2f over %d signals in zone %d, round %d",
		d.Rationale, d.HitRate, in.SignalsShown, in.Zone, in.Round)
}

// FinalizeInput carries the client's provisional end-of-session values.
type FinalizeInput struct {
	Client         metrics.ClientReport `json:"client"`
	FinalTier      *int                 `json:"final_tier,omitempty"`
	ZonesCompleted *int                 `json:"zones_completed,omitempty"`
	MaxZone        *int                 `json:"max_zone,omitempty"`
}

// FinalizeResult is the finalized session with its reconciled metrics.
type FinalizeResult struct {
	Session *store.Session        `json:"session"`
	Metrics metrics.Authoritative `json:"metrics"`
}

// Finalize stamps the end of the session, reconciles the event log and
// persists the authoritative aggregate. It is terminal: later appends and a
// second Finalize fail with ErrSessionClosed.
//
// The read, reconcile and update run in one write transaction, so no event
// can commit between reading the log and closing the session.
func (c *Controller) Finalize(ctx context.Context, sessionID string, in FinalizeInput) (*FinalizeResult, error) {
	unlock := c.locks.Lock(sessionID)
	defer unlock()

	var (
		sess *store.Session
		m    metrics.Authoritative
		skew bool
	)
	err := c.store.Update(ctx, func(tx *store.Tx) error {
		var err error
		sess, err = c.openSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}

		end := c.now()
		duration := end.Sub(sess.StartedAt)
		if duration < 0 {
			sess.ClockSkew = true
			skew = true
			duration = 0
		}

		m, err = metrics.NewReconciler(tx).Reconcile(ctx, sessionID, in.Client)
		if err != nil {
			return err
		}

		adjustments, err := tx.ListAdjustments(ctx, sessionID)
		if err != nil {
			return err
		}
		switch {
		case len(adjustments) > 0:
			sess.FinalTier = sess.CurrentTier
		case in.FinalTier != nil:
			sess.FinalTier = difficulty.ClampTier(*in.FinalTier)
		default:
			sess.FinalTier = sess.CurrentTier
		}

		if in.ZonesCompleted != nil && *in.ZonesCompleted > sess.ZonesCompleted {
			sess.ZonesCompleted = *in.ZonesCompleted
		}
		if in.MaxZone != nil && *in.MaxZone > sess.MaxZone {
			sess.MaxZone = *in.MaxZone
		}

		sess.EndedAt = &end
		sess.DurationSecs = duration.Seconds()
		sess.Hits = m.Hits
		sess.Misses = m.Misses
		sess.AvgLatency = m.AvgLatency
		sess.SufficientData = m.SufficientData
		sess.MetricsVerified = m.Verified
		sess.Completed = true
		sess.Status = store.StatusFinalized

		return tx.PutSession(ctx, sess)
	})
	if err != nil {
		return nil, closedErr(err, sessionID)
	}

	if skew {
		telemetry.ClockSkew.Inc()
		c.logger.Warn("session end precedes start, duration clamped to zero",
			"session_id", sessionID, "started_at", sess.StartedAt, "ended_at", *sess.EndedAt)
	}
	source := "event_log"
	if !m.Verified {
		source = "client_echo"
	}
	telemetry.SessionsFinalized.WithLabelValues(source).Inc()
	c.logger.Info("session finalized", "session_id", sessionID,
		"hits", m.Hits, "misses", m.Misses, "source", source,
		"sufficient_data", m.SufficientData, "final_tier", strconv.Itoa(int(sess.FinalTier)))

	return &FinalizeResult{Session: sess, Metrics: m}, nil
}
