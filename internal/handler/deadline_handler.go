package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qau-se/cfms-api/internal/service"
	appErrors "github.com/qau-se/cfms-api/pkg/errors"
	"github.com/qau-se/cfms-api/pkg/response"
)

// DeadlineHandler exposes submission deadline endpoints.
type DeadlineHandler struct {
	deadlines *service.DeadlineService
}

// NewDeadlineHandler constructs a deadline handler.
func NewDeadlineHandler(deadlines *service.DeadlineService) *DeadlineHandler {
	return &DeadlineHandler{deadlines: deadlines}
}

// Set godoc
// @Summary Set a submission deadline
// @Tags Deadlines
// @Accept json
// @Produce json
// @Param payload body service.SetDeadlineRequest true "Deadline payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /deadlines [put]
func (h *DeadlineHandler) Set(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SetDeadlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid deadline payload"))
		return
	}

	deadline, err := h.deadlines.Set(c.Request.Context(), claims.Role, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, deadline, nil)
}

// List godoc
// @Summary List deadlines of a term
// @Tags Deadlines
// @Produce json
// @Param term query string true "Term"
// @Success 200 {object} response.Envelope
// @Router /deadlines [get]
func (h *DeadlineHandler) List(c *gin.Context) {
	term := c.Query("term")
	if term == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "term required"))
		return
	}

	deadlines, err := h.deadlines.List(c.Request.Context(), term)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, deadlines, nil)
}
