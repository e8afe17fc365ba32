package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qau-se/cfms-api/internal/service"
	appErrors "github.com/qau-se/cfms-api/pkg/errors"
	"github.com/qau-se/cfms-api/pkg/response"
)

// AuditHandler exposes audit assignment endpoints.
type AuditHandler struct {
	audits *service.AuditService
}

// NewAuditHandler constructs an audit handler.
func NewAuditHandler(audits *service.AuditService) *AuditHandler {
	return &AuditHandler{audits: audits}
}

// Assign godoc
// @Summary Assign audit members to a folder
// @Tags Audit
// @Accept json
// @Produce json
// @Param id path string true "Folder ID"
// @Param payload body map[string][]string true "Auditor IDs"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /folders/{id}/audit [post]
func (h *AuditHandler) Assign(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		AuditorIDs []string `json:"auditor_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "auditor_ids required"))
		return
	}

	assignments, err := h.audits.Assign(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role, payload.AuditorIDs)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, assignments)
}

// List godoc
// @Summary Audit roster of a folder
// @Tags Audit
// @Produce json
// @Param id path string true "Folder ID"
// @Success 200 {object} response.Envelope
// @Router /folders/{id}/audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	assignments, err := h.audits.ListAssignments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}

// SubmitDecision godoc
// @Summary Submit an audit verdict
// @Description Records the caller's verdict; the last pending verdict completes the audit stage.
// @Tags Audit
// @Accept json
// @Produce json
// @Param id path string true "Folder ID"
// @Param payload body service.AuditDecisionRequest true "Verdict payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /folders/{id}/audit/decision [post]
func (h *AuditHandler) SubmitDecision(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.AuditDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid verdict payload"))
		return
	}

	assignment, err := h.audits.SubmitDecision(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, assignment, nil)
}
