package api

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/signcoach/internal/report"
	"github.com/abhisek/signcoach/internal/session"
	"github.com/abhisek/signcoach/internal/store"
)

func (h *handlers) startSession(c *gin.Context) {
	var req session.StartRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	sess, err := h.Controller.Start(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

type listSessionsQuery struct {
	LearnerID *int64 `form:"learner_id"`
	Completed *bool  `form:"completed"`
	Limit     int    `form:"limit" binding:"gte=0,lte=1000"`
}

func (h *handlers) listSessions(c *gin.Context) {
	var q listSessionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	if q.Limit == 0 {
		q.Limit = 50
	}
	sessions, err := h.Store.ListSessions(c.Request.Context(), store.SessionFilter{
		LearnerID: q.LearnerID,
		Completed: q.Completed,
		Limit:     q.Limit,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *handlers) getSession(c *gin.Context) {
	sess, err := h.Controller.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *handlers) appendAttempt(c *gin.Context) {
	var in session.AttemptInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	a, err := h.Controller.AppendAttempt(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *handlers) appendError(c *gin.Context) {
	var in session.ErrorInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	e, err := h.Controller.AppendError(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *handlers) evaluate(c *gin.Context) {
	var in session.EvaluateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	ev, err := h.Controller.Evaluate(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (h *handlers) finalize(c *gin.Context) {
	var in session.FinalizeInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err)
			return
		}
	}
	res, err := h.Controller.Finalize(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) sessionReport(c *gin.Context) {
	r, err := report.Build(c.Request.Context(), h.Store, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *handlers) exportSession(c *gin.Context) {
	format, err := report.ParseFormat(c.Query("format"))
	if err != nil {
		badRequest(c, err)
		return
	}
	id := c.Param("id")
	r, err := report.Build(c.Request.Context(), h.Store, id)
	if err != nil {
		h.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := report.Export(&buf, r, format); err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+format.Filename(id))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}
