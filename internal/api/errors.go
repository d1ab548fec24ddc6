package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/signcoach/internal/difficulty"
	"github.com/abhisek/signcoach/internal/report"
	"github.com/abhisek/signcoach/internal/session"
	"github.com/abhisek/signcoach/internal/store"
)

type errorBody struct {
	Error      string                 `json:"error"`
	Violations []difficulty.Violation `json:"violations,omitempty"`
}

func statusFor(err error) int {
	var verr *difficulty.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, session.ErrInvalidEvent),
		errors.Is(err, report.ErrNoAttempts):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrLearnerNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSessionClosed),
		errors.Is(err, store.ErrSessionFinalized),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}
	var verr *difficulty.ValidationError
	if errors.As(err, &verr) {
		body.Violations = verr.Violations
	}
	if status == http.StatusInternalServerError {
		h.Logger.Error("request failed", "path", c.FullPath(), "err", err)
		body.Error = "internal error"
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: err.Error()})
}
