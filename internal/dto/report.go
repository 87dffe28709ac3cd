package dto

import "github.com/shopspring/decimal"

// SummaryTotals aggregates confirmed sessions: count, taught hours and the
// billable amount (hours × hourly rate per session).
type SummaryTotals struct {
	TotalClasses int             `json:"total_classes"`
	TotalHours   decimal.Decimal `json:"total_hours"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
}

// TeacherBreakdown carries per-teacher aggregates inside the summary report.
type TeacherBreakdown struct {
	TeacherID   string          `json:"teacher_id"`
	TeacherName string          `json:"teacher_name"`
	TeacherTpin string          `json:"teacher_tpin"`
	Classes     int             `json:"classes"`
	Hours       decimal.Decimal `json:"hours"`
	Amount      decimal.Decimal `json:"amount"`
}

// SummaryReportResponse is the payload of GET /reports/summary.
type SummaryReportResponse struct {
	Summary   SummaryTotals      `json:"summary"`
	ByTeacher []TeacherBreakdown `json:"by_teacher"`
}

// EditorBreakdown carries per-editor video counts. Editor payment rates are
// decided at bill time, so there is no monetary figure here.
type EditorBreakdown struct {
	EditorID   string `json:"editor_id"`
	EditorName string `json:"editor_name"`
	Videos     int    `json:"videos"`
}

// UploadedVideosReportResponse is the payload of GET /reports/uploaded-videos.
type UploadedVideosReportResponse struct {
	TotalVideos int               `json:"total_videos"`
	ByEditor    []EditorBreakdown `json:"by_editor"`
}
