package service

import (
	"fmt"

	"github.com/bbec/class-ops-api/internal/dto"
	appErrors "github.com/bbec/class-ops-api/pkg/errors"
	"github.com/bbec/class-ops-api/pkg/export"
)

// ExportFormat selects the bill download encoding.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ExportService flattens assembled bills into printable documents.
type ExportService struct {
	csv          *export.CSVExporter
	pdf          *export.PDFExporter
	businessName string
}

// NewExportService constructs an ExportService.
func NewExportService(businessName string) *ExportService {
	return &ExportService{
		csv:          export.NewCSVExporter(),
		pdf:          export.NewPDFExporter(),
		businessName: businessName,
	}
}

// ContentType returns the MIME type for the given format.
func (s *ExportService) ContentType(format ExportFormat) string {
	if format == FormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}

// RenderDailyBill renders the daily class bill, one row per session with a
// subtotal row closing each teacher block.
func (s *ExportService) RenderDailyBill(bill *dto.DailyBillResponse, format ExportFormat) ([]byte, error) {
	headers := []string{"Teacher", "TPIN", "Course", "Class", "Hours", "Rate", "Amount"}
	dataset := export.Dataset{Headers: headers}
	for _, block := range bill.Teachers {
		for _, line := range block.Lines {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Teacher": block.TeacherName,
				"TPIN":    block.TeacherTpin,
				"Course":  line.CourseName,
				"Class":   line.SessionName,
				"Hours":   line.Hours.String(),
				"Rate":    line.HourlyRate.String(),
				"Amount":  line.Amount.String(),
			})
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Teacher": block.TeacherName,
			"Class":   "Subtotal",
			"Amount":  block.Subtotal.String(),
		})
	}
	dataset.Footer = []map[string]string{{
		"Class":  "Grand Total",
		"Amount": bill.GrandTotal.String(),
	}}
	subtitle := fmt.Sprintf("Daily Class Bill %s | %s", bill.Day, bill.InvoiceID)
	return s.render(dataset, subtitle, format)
}

// RenderUploadsBill renders the uploads bill, one row per uploaded video.
func (s *ExportService) RenderUploadsBill(bill *dto.UploadBillResponse, format ExportFormat) ([]byte, error) {
	headers := []string{"Course", "Class", "Teacher", "Uploaded", "Amount"}
	dataset := export.Dataset{Headers: headers}
	for _, line := range bill.Lines {
		uploaded := ""
		if line.UploadedAt != nil {
			uploaded = line.UploadedAt.Format("2006-01-02")
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Course":   line.CourseName,
			"Class":    line.SessionName,
			"Teacher":  line.TeacherName,
			"Uploaded": uploaded,
			"Amount":   line.Amount.String(),
		})
	}
	dataset.Footer = []map[string]string{
		{"Class": "Subtotal", "Amount": bill.Subtotal.String()},
		{"Class": "Tip", "Amount": bill.Tip.String()},
		{"Class": "Grand Total", "Amount": bill.GrandTotal.String()},
	}
	subtitle := fmt.Sprintf("Uploads Bill %s | %s", bill.Period, bill.InvoiceID)
	return s.render(dataset, subtitle, format)
}

func (s *ExportService) render(dataset export.Dataset, subtitle string, format ExportFormat) ([]byte, error) {
	switch format {
	case FormatCSV:
		return s.csv.Render(dataset)
	case FormatPDF:
		return s.pdf.Render(dataset, s.businessName, subtitle)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}
