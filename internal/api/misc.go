package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/signcoach/internal/decision"
	"github.com/abhisek/signcoach/internal/difficulty"
	"github.com/abhisek/signcoach/internal/feedback"
)

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":             "ok",
		"model_available":    h.Engine.ModelAvailable(),
		"feedback_available": h.Feedback.Available(),
	})
}

type predictRequest struct {
	Zone         int     `json:"zone" binding:"gte=0"`
	SignalsShown int     `json:"signals_shown" binding:"gte=0"`
	Hits         int     `json:"hits" binding:"gte=0"`
	Misses       int     `json:"misses" binding:"gte=0"`
	AvgLatency   float64 `json:"avg_latency" binding:"gte=0"`
}

type predictResponse struct {
	decision.Decision
	Description string  `json:"description"`
	SignalCount int     `json:"signal_count"`
	TimeLimit   float64 `json:"time_limit"`
}

// predict is the stateless decision: it records nothing.
func (h *handlers) predict(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cfg := h.Config.Current()
	d := h.Engine.Decide(decision.FeatureVector(req), cfg.UseModel)
	c.JSON(http.StatusOK, predictResponse{
		Decision:    d,
		Description: describe(d),
		SignalCount: cfg.SignalCount(d.Tier),
		TimeLimit:   cfg.TimeLimit(d.Tier),
	})
}

func describe(d decision.Decision) string {
	name := d.Tier.DisplayName()
	if d.Rationale == decision.RationaleFallback {
		return name + " (fallback)"
	}
	return name
}

func (h *handlers) feedback(c *gin.Context) {
	var req feedback.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.Tier = difficulty.ClampTier(int(req.Tier))
	c.JSON(http.StatusOK, h.Feedback.Generate(c.Request.Context(), req))
}

func (h *handlers) stats(c *gin.Context) {
	st, err := h.Store.GlobalStats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
