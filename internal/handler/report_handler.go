package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edutrack-io/kocluk-api/internal/models"
	"github.com/edutrack-io/kocluk-api/internal/service"
	appErrors "github.com/edutrack-io/kocluk-api/pkg/errors"
	"github.com/edutrack-io/kocluk-api/pkg/response"
)

// ReportHandler exposes asynchronous coaching-report generation.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Create godoc
// @Summary Queue a coaching report for one of the teacher's students
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body models.CreateReportRequest true "Report payload"
// @Success 202 {object} response.Envelope
// @Router /reports [post]
func (h *ReportHandler) Create(c *gin.Context) {
	var req models.CreateReportRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	from, err := time.Parse("2006-01-02", req.RangeStart)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "range_start must be formatted as YYYY-MM-DD"))
		return
	}
	to, err := time.Parse("2006-01-02", req.RangeEnd)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "range_end must be formatted as YYYY-MM-DD"))
		return
	}

	scope := scopeFromContext(c)
	job, err := h.reports.Request(c.Request.Context(), scope.ActorID, req.StudentID, req.Format, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// Get godoc
// @Summary Get report job status
// @Tags Reports
// @Produce json
// @Param id path string true "Report job ID"
// @Success 200 {object} response.Envelope
// @Router /reports/{id} [get]
func (h *ReportHandler) Get(c *gin.Context) {
	scope := scopeFromContext(c)
	job, err := h.reports.Get(c.Request.Context(), scope.ActorID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download a rendered report via signed token
// @Tags Reports
// @Produce application/octet-stream
// @Param token query string true "Signed download token"
// @Success 200
// @Router /reports/download [get]
func (h *ReportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	file, job, err := h.reports.OpenDownload(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stat report file"))
		return
	}

	contentType := "application/pdf"
	if job.Format == models.ReportFormatCSV {
		contentType = "text/csv"
	}
	filename := fmt.Sprintf("report-%s.%s", job.ID, job.Format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, nil)
}
