// Package api exposes sessions, configuration, prediction and feedback over
// HTTP for the simulator and dashboards.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abhisek/signcoach/internal/decision"
	"github.com/abhisek/signcoach/internal/difficulty"
	"github.com/abhisek/signcoach/internal/feedback"
	"github.com/abhisek/signcoach/internal/logging"
	"github.com/abhisek/signcoach/internal/report"
	"github.com/abhisek/signcoach/internal/session"
	"github.com/abhisek/signcoach/internal/store"
)

// Store is the read side the handlers use directly. Session writes go
// through the controller.
type Store interface {
	report.Source
	CreateLearner(ctx context.Context, name, identifier string) (*store.Learner, error)
	ListLearners(ctx context.Context) ([]store.Learner, error)
	LearnerByIdentifier(ctx context.Context, identifier string) (*store.Learner, error)
	ListSessions(ctx context.Context, f store.SessionFilter) ([]store.Session, error)
	GlobalStats(ctx context.Context) (*store.GlobalStats, error)
	ConfigurationHistory(ctx context.Context, limit int) ([]store.ConfigurationRecord, error)
}

// Deps wires the handlers. Feedback may be nil.
type Deps struct {
	Store      Store
	Controller *session.Controller
	Engine     *decision.Engine
	Config     *difficulty.Active
	Feedback   *feedback.Service
	Logger     *slog.Logger
}

type handlers struct {
	Deps
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	d.Logger = logging.OrDiscard(d.Logger)
	if d.Feedback == nil {
		d.Feedback = feedback.NewService(nil, feedback.DefaultConfig(), d.Logger)
	}
	h := &handlers{Deps: d}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(d.Logger))

	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		v1.POST("/learners", h.createLearner)
		v1.GET("/learners", h.listLearners)
		v1.GET("/learners/:identifier", h.getLearner)

		sessions := v1.Group("/sessions")
		{
			sessions.POST("", h.startSession)
			sessions.GET("", h.listSessions)
			sessions.GET("/:id", h.getSession)
			sessions.POST("/:id/attempts", h.appendAttempt)
			sessions.POST("/:id/errors", h.appendError)
			sessions.POST("/:id/evaluate", h.evaluate)
			sessions.POST("/:id/finalize", h.finalize)
			sessions.GET("/:id/report", h.sessionReport)
			sessions.GET("/:id/export", h.exportSession)
		}

		v1.POST("/predict", h.predict)
		v1.POST("/feedback", h.feedback)
		v1.GET("/config", h.getConfig)
		v1.PUT("/config", h.putConfig)
		v1.GET("/config/history", h.configHistory)
		v1.GET("/stats", h.stats)
	}
	return r
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// Serve runs handler on addr until ctx is cancelled, then shuts down within
// shutdownTimeout.
func Serve(ctx context.Context, addr string, handler http.Handler, shutdownTimeout time.Duration, logger *slog.Logger) error {
	logger = logging.OrDiscard(logger)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
