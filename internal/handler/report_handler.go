package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bbec/class-ops-api/internal/service"
	"github.com/bbec/class-ops-api/pkg/response"
)

// ReportHandler exposes the aggregation report endpoints.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Summary godoc
// @Summary Confirmed classes summary with per-teacher breakdown
// @Tags Reports
// @Security BearerAuth
// @Produce json
// @Param start query string false "Start date YYYY-MM-DD"
// @Param end query string false "End date YYYY-MM-DD (inclusive)"
// @Success 200 {object} response.Envelope
// @Router /reports/summary [get]
func (h *ReportHandler) Summary(c *gin.Context) {
	report, err := h.reports.Summary(c.Request.Context(), claimsFromContext(c), c.Query("start"), c.Query("end"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

// UploadedVideos godoc
// @Summary Uploaded video counts with per-editor breakdown
// @Tags Reports
// @Security BearerAuth
// @Produce json
// @Param start query string false "Start date YYYY-MM-DD"
// @Param end query string false "End date YYYY-MM-DD (inclusive)"
// @Success 200 {object} response.Envelope
// @Router /reports/uploads [get]
func (h *ReportHandler) UploadedVideos(c *gin.Context) {
	report, err := h.reports.UploadedVideos(c.Request.Context(), claimsFromContext(c), c.Query("start"), c.Query("end"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}
