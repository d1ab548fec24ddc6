package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type createLearnerRequest struct {
	Name       string `json:"name" binding:"required,max=200"`
	Identifier string `json:"identifier" binding:"required,max=100"`
}

func (h *handlers) createLearner(c *gin.Context) {
	var req createLearnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	l, err := h.Store.CreateLearner(c.Request.Context(), req.Name, req.Identifier)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, l)
}

func (h *handlers) listLearners(c *gin.Context) {
	ls, err := h.Store.ListLearners(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ls)
}

func (h *handlers) getLearner(c *gin.Context) {
	l, err := h.Store.LearnerByIdentifier(c.Request.Context(), c.Param("identifier"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}
