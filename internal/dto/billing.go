package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillLine is one session row inside a teacher's block of the daily bill.
type BillLine struct {
	SessionID   string          `json:"session_id"`
	CourseName  string          `json:"course_name"`
	SessionName string          `json:"session_name"`
	ConfirmedAt *time.Time      `json:"confirmed_at,omitempty"`
	Hours       decimal.Decimal `json:"hours"`
	HourlyRate  decimal.Decimal `json:"hourly_rate"`
	Amount      decimal.Decimal `json:"amount"`
}

// TeacherBillBlock groups a teacher's sessions with their subtotal.
type TeacherBillBlock struct {
	TeacherID   string          `json:"teacher_id"`
	TeacherName string          `json:"teacher_name"`
	TeacherTpin string          `json:"teacher_tpin"`
	Lines       []BillLine      `json:"lines"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// DailyBillResponse is a printable daily class bill. Generating it marks the
// included sessions paid: a printed bill is treated as a payment commitment.
type DailyBillResponse struct {
	InvoiceID   string             `json:"invoice_id"`
	Day         string             `json:"day"`
	Teachers    []TeacherBillBlock `json:"teachers"`
	GrandTotal  decimal.Decimal    `json:"grand_total"`
	Sessions    int                `json:"sessions"`
	MarkedPaid  int                `json:"marked_paid"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// UploadBillLine is one uploaded video row in the uploads bill.
type UploadBillLine struct {
	TaskID      string          `json:"task_id"`
	CourseName  string          `json:"course_name"`
	SessionName string          `json:"session_name"`
	TeacherName string          `json:"teacher_name"`
	TeacherTpin string          `json:"teacher_tpin"`
	UploadedAt  *time.Time      `json:"uploaded_at,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
}

// UploadBillRequest carries the admin-chosen per-video rate and optional tip.
type UploadBillRequest struct {
	Start        string `json:"start" form:"start"`
	End          string `json:"end" form:"end"`
	PerVideoRate string `json:"per_video_rate" form:"per_video_rate" validate:"required"`
	Tip          string `json:"tip" form:"tip"`
}

// UploadBillResponse is the uploads bill: count × perVideoRate + tip.
// It never mutates task state.
type UploadBillResponse struct {
	InvoiceID    string           `json:"invoice_id"`
	Period       string           `json:"period"`
	Lines        []UploadBillLine `json:"lines"`
	Videos       int              `json:"videos"`
	PerVideoRate decimal.Decimal  `json:"per_video_rate"`
	Subtotal     decimal.Decimal  `json:"subtotal"`
	Tip          decimal.Decimal  `json:"tip"`
	GrandTotal   decimal.Decimal  `json:"grand_total"`
	GeneratedAt  time.Time        `json:"generated_at"`
}
