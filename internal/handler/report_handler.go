package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qau-se/cfms-api/internal/service"
	appErrors "github.com/qau-se/cfms-api/pkg/errors"
	"github.com/qau-se/cfms-api/pkg/response"
)

// ReportHandler exposes review-report job endpoints.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs a report handler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Create godoc
// @Summary Queue a review report
// @Description Enqueues asynchronous PDF generation for a folder
// @Tags Reports
// @Produce json
// @Param id path string true "Folder ID"
// @Success 202 {object} response.Envelope
// @Router /folders/{id}/report [post]
func (h *ReportHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	job, err := h.reports.CreateJob(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Accepted(c, job)
}

// Status godoc
// @Summary Report job status
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{id} [get]
func (h *ReportHandler) Status(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	job, err := h.reports.GetStatus(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download a finished report
// @Description Serves the PDF addressed by a signed token
// @Tags Reports
// @Produce application/pdf
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /reports/download/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	download, err := h.reports.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	c.Header("Content-Disposition", `attachment; filename="`+download.Filename+`"`)
	c.Header("Content-Type", "application/pdf")
	http.ServeContent(c.Writer, c.Request, download.Filename, download.ExpiresAt, download.File)
}
