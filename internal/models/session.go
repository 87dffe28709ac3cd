package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SessionStatus is the lifecycle state of a class session. The status only
// advances forward; the paid flag is orthogonal and toggles freely.
type SessionStatus string

const (
	SessionPending          SessionStatus = "pending"
	SessionTeacherCompleted SessionStatus = "teacherCompleted"
	SessionAdminConfirmed   SessionStatus = "adminConfirmed"
)

// ClassSession is one scheduled, billable teaching engagement tied to a
// course and a teacher. teacher_name and teacher_tpin are snapshots taken at
// assignment time and never refreshed, so historical bills stay accurate
// even when the user record changes later.
type ClassSession struct {
	ID          string          `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	CourseID    string          `db:"course_id" json:"course_id"`
	TeacherID   string          `db:"teacher_id" json:"teacher_id"`
	TeacherTpin string          `db:"teacher_tpin" json:"teacher_tpin"`
	TeacherName string          `db:"teacher_name" json:"teacher_name"`
	Hours       decimal.Decimal `db:"hours" json:"hours"`
	HourlyRate  decimal.Decimal `db:"hourly_rate" json:"hourly_rate"`
	Status      SessionStatus   `db:"status" json:"status"`
	Paid        bool            `db:"paid" json:"paid"`
	CompletedAt *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	ConfirmedAt *time.Time      `db:"confirmed_at" json:"confirmed_at,omitempty"`
	PaidAt      *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// Amount is the sole monetary derivation rule in the system.
func (s *ClassSession) Amount() decimal.Decimal {
	return s.Hours.Mul(s.HourlyRate)
}

// ClassSessionDetail enriches a session with the joined course name for
// display in lists and bills.
type ClassSessionDetail struct {
	ClassSession
	CourseName string `db:"course_name" json:"course_name"`
}

// SessionFilter captures the filters accepted by the completed-sessions list.
// Start/End bound confirmed_at; End is inclusive of the whole final day.
type SessionFilter struct {
	CourseID  string
	TeacherID string
	Tpin      string
	Start     *time.Time
	End       *time.Time
}
