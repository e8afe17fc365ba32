package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qau-se/cfms-api/internal/models"
	"github.com/qau-se/cfms-api/internal/service"
	appErrors "github.com/qau-se/cfms-api/pkg/errors"
	"github.com/qau-se/cfms-api/pkg/response"
)

// FeedbackHandler exposes reviewer annotation endpoints.
type FeedbackHandler struct {
	feedback *service.FeedbackService
}

// NewFeedbackHandler constructs a feedback handler.
func NewFeedbackHandler(feedback *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback}
}

// Get godoc
// @Summary Feedback for a folder and channel
// @Description Returns the section-keyed annotation map for one channel. Always 200; an unreachable store yields an empty map.
// @Tags Feedback
// @Produce json
// @Param id path string true "Folder ID"
// @Param channel query string true "COORDINATOR or AUDIT_MEMBER"
// @Success 200 {object} response.Envelope
// @Router /folders/{id}/feedback [get]
func (h *FeedbackHandler) Get(c *gin.Context) {
	channel := models.FeedbackChannel(c.Query("channel"))
	entries := h.feedback.Get(c.Request.Context(), c.Param("id"), channel)
	response.JSON(c, http.StatusOK, entries, nil)
}

// Put godoc
// @Summary Save feedback on a section
// @Description Overwrites the channel's annotation for the section. Empty notes clear earlier feedback.
// @Tags Feedback
// @Accept json
// @Produce json
// @Param id path string true "Folder ID"
// @Param channel query string true "COORDINATOR or AUDIT_MEMBER"
// @Param payload body service.SaveFeedbackRequest true "Feedback payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /folders/{id}/feedback [put]
func (h *FeedbackHandler) Put(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SaveFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid feedback payload"))
		return
	}

	channel := models.FeedbackChannel(c.Query("channel"))
	entry, err := h.feedback.Put(c.Request.Context(), c.Param("id"), channel, claims.Role, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entry, nil)
}
