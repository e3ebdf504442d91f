package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stemsi/exstem-interview/internal/middleware"
	"github.com/stemsi/exstem-interview/internal/model"
	"github.com/stemsi/exstem-interview/internal/response"
	"github.com/stemsi/exstem-interview/internal/service"
)

// Reports is the report API used by the handlers.
type Reports interface {
	Generate(ctx context.Context, sessionID uuid.UUID, caller service.Caller) (*model.Report, error)
	Get(ctx context.Context, id uuid.UUID, caller service.Caller) (*model.Report, error)
	RequestArtifact(ctx context.Context, reportID uuid.UUID, caller service.Caller) (*model.Artifact, error)
	OpenArtifact(ctx context.Context, filename string, caller service.Caller) (io.ReadCloser, error)
}

// ReportHandler handles report generation and download endpoints.
type ReportHandler struct {
	reports Reports
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reports Reports) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// GenerateReport godoc
// POST /api/v1/interviews/:id/report
// Scores a completed interview. Retrying after a failure is safe.
func (h *ReportHandler) GenerateReport(c *gin.Context) {
	caller, id, ok := sessionTarget(c)
	if !ok {
		return
	}

	rep, err := h.reports.Generate(c.Request.Context(), id, caller)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, rep)
}

// GetReport godoc
// GET /api/v1/reports/:id
func (h *ReportHandler) GetReport(c *gin.Context) {
	caller, id, ok := sessionTarget(c)
	if !ok {
		return
	}

	rep, err := h.reports.Get(c.Request.Context(), id, caller)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, rep)
}

// RequestArtifact godoc
// POST /api/v1/reports/:id/artifact
// Renders the report to PDF and returns its download reference.
func (h *ReportHandler) RequestArtifact(c *gin.Context) {
	caller, id, ok := sessionTarget(c)
	if !ok {
		return
	}

	art, err := h.reports.RequestArtifact(c.Request.Context(), id, caller)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, art)
}

// DownloadArtifact godoc
// GET /api/v1/reports/artifacts/:filename
func (h *ReportHandler) DownloadArtifact(c *gin.Context) {
	caller, ok := middleware.GetCaller(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	filename := c.Param("filename")
	rc, err := h.reports.OpenArtifact(c.Request.Context(), filename, caller)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.DataFromReader(http.StatusOK, -1, "application/pdf", rc, nil)
}
