package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bbec/class-ops-api/internal/dto"
	"github.com/bbec/class-ops-api/internal/service"
	appErrors "github.com/bbec/class-ops-api/pkg/errors"
	"github.com/bbec/class-ops-api/pkg/response"
)

// BillingHandler exposes the bill generation endpoints. Bills return JSON by
// default; format=csv or format=pdf downloads a printable document instead.
type BillingHandler struct {
	billing *service.BillingService
	export  *service.ExportService
}

// NewBillingHandler constructs handler.
func NewBillingHandler(billing *service.BillingService, export *service.ExportService) *BillingHandler {
	return &BillingHandler{billing: billing, export: export}
}

// DailyBill godoc
// @Summary Generate the daily class bill and mark its sessions paid
// @Tags Billing
// @Security BearerAuth
// @Produce json
// @Param day query string false "Day YYYY-MM-DD, defaults to today"
// @Param format query string false "json, csv or pdf"
// @Success 200 {object} response.Envelope
// @Router /billing/daily [post]
func (h *BillingHandler) DailyBill(c *gin.Context) {
	bill, err := h.billing.DailyBill(c.Request.Context(), claimsFromContext(c), c.Query("day"))
	if err != nil {
		response.Error(c, err)
		return
	}
	format := c.Query("format")
	if format == "" || format == "json" {
		response.JSON(c, http.StatusOK, bill)
		return
	}
	payload, err := h.export.RenderDailyBill(bill, service.ExportFormat(format))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.download(c, payload, service.ExportFormat(format), bill.InvoiceID)
}

// UploadsBill godoc
// @Summary Generate the uploads bill for a period
// @Tags Billing
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.UploadBillRequest true "Period and per-video rate"
// @Param format query string false "json, csv or pdf"
// @Success 200 {object} response.Envelope
// @Router /billing/uploads [post]
func (h *BillingHandler) UploadsBill(c *gin.Context) {
	var req dto.UploadBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid bill payload"))
		return
	}
	bill, err := h.billing.UploadsBill(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := c.Query("format")
	if format == "" || format == "json" {
		response.JSON(c, http.StatusOK, bill)
		return
	}
	payload, err := h.export.RenderUploadsBill(bill, service.ExportFormat(format))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.download(c, payload, service.ExportFormat(format), bill.InvoiceID)
}

func (h *BillingHandler) download(c *gin.Context, payload []byte, format service.ExportFormat, invoiceID string) {
	filename := fmt.Sprintf("%s.%s", invoiceID, format)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	c.Data(http.StatusOK, h.export.ContentType(format), payload)
}
