package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qau-se/cfms-api/internal/models"
	"github.com/qau-se/cfms-api/internal/service"
	appErrors "github.com/qau-se/cfms-api/pkg/errors"
	"github.com/qau-se/cfms-api/pkg/response"
)

// FolderHandler exposes the folder lifecycle endpoints.
type FolderHandler struct {
	folders *service.FolderService
}

// NewFolderHandler constructs a folder handler.
func NewFolderHandler(folders *service.FolderService) *FolderHandler {
	return &FolderHandler{folders: folders}
}

// Create godoc
// @Summary Create course folder
// @Tags Folders
// @Accept json
// @Produce json
// @Param payload body service.CreateFolderRequest true "Folder payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /folders [post]
func (h *FolderHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid folder payload"))
		return
	}

	folder, err := h.folders.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, folder)
}

// List godoc
// @Summary List folders
// @Tags Folders
// @Produce json
// @Param term query string false "Term"
// @Param department query string false "Department"
// @Param status query string false "Comma-separated statuses"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /folders [get]
func (h *FolderHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := folderFilterFromQuery(c)
	// Faculty members only ever see their own folders.
	if claims.Role == models.RoleFaculty {
		filter.FacultyID = claims.UserID
	}

	folders, pagination, err := h.folders.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, folders, pagination)
}

// Get godoc
// @Summary Get folder with editability verdict
// @Tags Folders
// @Produce json
// @Param id path string true "Folder ID"
// @Param review query bool false "Review mode"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /folders/{id} [get]
func (h *FolderHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	detail, err := h.folders.Get(c.Request.Context(), c.Param("id"), reviewContextFromRequest(c, claims))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// History godoc
// @Summary Folder status history
// @Tags Folders
// @Produce json
// @Param id path string true "Folder ID"
// @Success 200 {object} response.Envelope
// @Router /folders/{id}/history [get]
func (h *FolderHandler) History(c *gin.Context) {
	entries, err := h.folders.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// StatusCounts godoc
// @Summary Folder counts per status
// @Tags Folders
// @Produce json
// @Param term query string false "Term"
// @Param department query string false "Department"
// @Success 200 {object} response.Envelope
// @Router /folders/status-counts [get]
func (h *FolderHandler) StatusCounts(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := folderFilterFromQuery(c)
	if claims.Role == models.RoleFaculty {
		filter.FacultyID = claims.UserID
	}

	counts, err := h.folders.StatusCounts(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, counts, nil)
}

// EditSection godoc
// @Summary Buffer a section edit
// @Description Accepts a section mutation into the caller's debounced autosave session
// @Tags Folders
// @Accept json
// @Produce json
// @Param id path string true "Folder ID"
// @Param section path string true "Section key"
// @Success 202 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /folders/{id}/sections/{section} [put]
func (h *FolderHandler) EditSection(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var content json.RawMessage
	if err := c.ShouldBindJSON(&content); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid section payload"))
		return
	}

	err := h.folders.AttemptEdit(c.Request.Context(), c.Param("id"), sessionKeyFromRequest(c, claims), c.Param("section"), content, reviewContextFromRequest(c, claims))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Accepted(c, gin.H{"buffered": true})
}

// FlushEdits godoc
// @Summary Force-save buffered edits
// @Tags Folders
// @Produce json
// @Param id path string true "Folder ID"
// @Success 204 {object} response.Envelope
// @Router /folders/{id}/flush [post]
func (h *FolderHandler) FlushEdits(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.folders.FlushEdits(c.Request.Context(), c.Param("id"), sessionKeyFromRequest(c, claims)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// CloseSession godoc
// @Summary Close the editing session
// @Description Flushes buffered edits and discards the autosave session
// @Tags Folders
// @Produce json
// @Param id path string true "Folder ID"
// @Success 204 {object} response.Envelope
// @Router /folders/{id}/session [delete]
func (h *FolderHandler) CloseSession(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.folders.CloseEditingSession(c.Request.Context(), c.Param("id"), sessionKeyFromRequest(c, claims)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// HideSession godoc
// @Summary Signal that the editing view went hidden
// @Description Re-arms the autosave debounce so buffered edits save promptly
// @Tags Folders
// @Produce json
// @Param id path string true "Folder ID"
// @Success 204 {object} response.Envelope
// @Router /folders/{id}/session/hide [post]
func (h *FolderHandler) HideSession(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.folders.HideSession(c.Param("id"), sessionKeyFromRequest(c, claims)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Beacon godoc
// @Summary Unload beacon for the editing session
// @Description Fire-and-forget notification sent while the page unloads
// @Tags Folders
// @Produce json
// @Param id path string true "Folder ID"
// @Success 204 {object} response.Envelope
// @Router /folders/{id}/session/beacon [post]
func (h *FolderHandler) Beacon(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.folders.ReleaseSession(c.Param("id"), sessionKeyFromRequest(c, claims)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Submit godoc
// @Summary Submit folder for review
// @Tags Folders
// @Produce json
// @Param id path string true "Folder ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /folders/{id}/submit [post]
func (h *FolderHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	folder, err := h.folders.Submit(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, folder, nil)
}

// Decide godoc
// @Summary Apply a reviewer decision
// @Tags Folders
// @Accept json
// @Produce json
// @Param id path string true "Folder ID"
// @Param payload body service.DecideRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /folders/{id}/decide [post]
func (h *FolderHandler) Decide(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}

	folder, err := h.folders.Decide(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, folder, nil)
}

func reviewContextFromRequest(c *gin.Context, claims *models.JWTClaims) models.ReviewContext {
	return models.ReviewContext{
		UserID:       claims.UserID,
		Role:         claims.Role,
		IsReviewMode: c.Query("review") == "true",
	}
}

func folderFilterFromQuery(c *gin.Context) models.FolderFilter {
	filter := models.FolderFilter{
		FacultyID:  c.Query("faculty_id"),
		Term:       c.Query("term"),
		Department: c.Query("department"),
	}
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s != "" {
				filter.Status = append(filter.Status, models.FolderStatus(s))
			}
		}
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	filter.Limit = limit
	filter.Offset = (page - 1) * limit
	return filter
}
