package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/signcoach/internal/difficulty"
	"github.com/abhisek/signcoach/internal/telemetry"
)

func (h *handlers) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.Config.Current())
}

// putConfig replaces the active configuration. Omitted fields keep their
// current values; a rejected candidate leaves the active one untouched.
func (h *handlers) putConfig(c *gin.Context) {
	candidate := h.Config.Current()
	if err := c.ShouldBindJSON(&candidate); err != nil {
		badRequest(c, err)
		return
	}
	saved, err := h.Config.Replace(c.Request.Context(), candidate)
	if err != nil {
		result := "error"
		var verr *difficulty.ValidationError
		if errors.As(err, &verr) {
			result = "rejected"
		}
		telemetry.ConfigReplacements.WithLabelValues(result).Inc()
		h.fail(c, err)
		return
	}
	telemetry.ConfigReplacements.WithLabelValues("applied").Inc()
	h.Logger.Info("difficulty configuration replaced", "id", saved.ID, "name", saved.Name)
	c.JSON(http.StatusOK, saved)
}

func (h *handlers) configHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 0 {
		badRequest(c, errors.New("limit must be a non-negative integer"))
		return
	}
	recs, err := h.Store.ConfigurationHistory(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}
