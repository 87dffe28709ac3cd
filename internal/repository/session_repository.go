package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/bbec/class-ops-api/internal/models"
)

const sessionColumns = "id, name, course_id, teacher_id, teacher_tpin, teacher_name, hours, hourly_rate, status, paid, completed_at, confirmed_at, paid_at, created_at, updated_at"

const sessionDetailColumns = "s.id, s.name, s.course_id, s.teacher_id, s.teacher_tpin, s.teacher_name, s.hours, s.hourly_rate, s.status, s.paid, s.completed_at, s.confirmed_at, s.paid_at, s.created_at, s.updated_at, c.name AS course_name"

// SessionRepository manages persistence for class sessions. Status
// transitions are expressed as conditional updates so concurrent actors
// cannot advance the same session twice: the WHERE clause carries the
// expected current status and callers check the affected-row count.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session record. A unique index on (course_id, name)
// backs the duplicate-name invariant; violations surface as ErrDuplicateKey.
func (r *SessionRepository) Create(ctx context.Context, session *models.ClassSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	const query = `INSERT INTO class_sessions (id, name, course_id, teacher_id, teacher_tpin, teacher_name, hours, hourly_rate, status, paid, created_at, updated_at)
		VALUES (:id, :name, :course_id, :teacher_id, :teacher_tpin, :teacher_name, :hours, :hourly_rate, :status, :paid, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// FindByID fetches a session by ID.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.ClassSession, error) {
	query := fmt.Sprintf("SELECT %s FROM class_sessions WHERE id = $1", sessionColumns)
	var session models.ClassSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// ExistsByCourseAndName checks the (course, name) uniqueness invariant.
func (r *SessionRepository) ExistsByCourseAndName(ctx context.Context, courseID, name string) (bool, error) {
	const query = `SELECT 1 FROM class_sessions WHERE course_id = $1 AND name = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, courseID, name); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check session name: %w", err)
	}
	return true, nil
}

// ListPending returns pending sessions, optionally scoped to one teacher.
func (r *SessionRepository) ListPending(ctx context.Context, teacherID string) ([]models.ClassSessionDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM class_sessions s JOIN courses c ON c.id = s.course_id WHERE s.status = $1", sessionDetailColumns)
	args := []interface{}{models.SessionPending}
	if teacherID != "" {
		query += " AND s.teacher_id = $2"
		args = append(args, teacherID)
	}
	query += " ORDER BY s.created_at DESC"

	sessions := []models.ClassSessionDetail{}
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list pending sessions: %w", err)
	}
	return sessions, nil
}

// ListByStatus returns all sessions in the given status.
func (r *SessionRepository) ListByStatus(ctx context.Context, status models.SessionStatus) ([]models.ClassSessionDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM class_sessions s JOIN courses c ON c.id = s.course_id WHERE s.status = $1 ORDER BY s.created_at DESC", sessionDetailColumns)
	sessions := []models.ClassSessionDetail{}
	if err := r.db.SelectContext(ctx, &sessions, query, status); err != nil {
		return nil, fmt.Errorf("list sessions by status: %w", err)
	}
	return sessions, nil
}

// ListConfirmed returns adminConfirmed sessions matching the filter.
// The End bound is expected to already be extended to end-of-day.
func (r *SessionRepository) ListConfirmed(ctx context.Context, filter models.SessionFilter) ([]models.ClassSessionDetail, error) {
	base := fmt.Sprintf("SELECT %s FROM class_sessions s JOIN courses c ON c.id = s.course_id WHERE s.status = $1", sessionDetailColumns)
	args := []interface{}{models.SessionAdminConfirmed}
	var conditions []string

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("s.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("s.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Tpin != "" {
		conditions = append(conditions, fmt.Sprintf("s.teacher_tpin = $%d", len(args)+1))
		args = append(args, filter.Tpin)
	}
	if filter.Start != nil {
		conditions = append(conditions, fmt.Sprintf("s.confirmed_at >= $%d", len(args)+1))
		args = append(args, *filter.Start)
	}
	if filter.End != nil {
		conditions = append(conditions, fmt.Sprintf("s.confirmed_at <= $%d", len(args)+1))
		args = append(args, *filter.End)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}
	base += " ORDER BY s.confirmed_at DESC"

	sessions := []models.ClassSessionDetail{}
	if err := r.db.SelectContext(ctx, &sessions, base, args...); err != nil {
		return nil, fmt.Errorf("list confirmed sessions: %w", err)
	}
	return sessions, nil
}

// ListUnpaid returns confirmed sessions that have not been paid yet.
func (r *SessionRepository) ListUnpaid(ctx context.Context) ([]models.ClassSessionDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM class_sessions s JOIN courses c ON c.id = s.course_id WHERE s.status = $1 AND s.paid = FALSE ORDER BY s.confirmed_at DESC", sessionDetailColumns)
	sessions := []models.ClassSessionDetail{}
	if err := r.db.SelectContext(ctx, &sessions, query, models.SessionAdminConfirmed); err != nil {
		return nil, fmt.Errorf("list unpaid sessions: %w", err)
	}
	return sessions, nil
}

// MarkCompleted advances pending → teacherCompleted. It returns false when
// the session was not in pending status at update time.
func (r *SessionRepository) MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error) {
	const query = `UPDATE class_sessions SET status = $2, completed_at = $3, updated_at = $3 WHERE id = $1 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, id, models.SessionTeacherCompleted, at, models.SessionPending)
	if err != nil {
		return false, fmt.Errorf("mark session completed: %w", err)
	}
	return affected(res)
}

// MarkConfirmed advances teacherCompleted → adminConfirmed.
func (r *SessionRepository) MarkConfirmed(ctx context.Context, id string, at time.Time) (bool, error) {
	const query = `UPDATE class_sessions SET status = $2, confirmed_at = $3, updated_at = $3 WHERE id = $1 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, id, models.SessionAdminConfirmed, at, models.SessionTeacherCompleted)
	if err != nil {
		return false, fmt.Errorf("mark session confirmed: %w", err)
	}
	return affected(res)
}

// SetPaid toggles the paid flag. Marking paid refreshes paid_at; marking
// unpaid clears it.
func (r *SessionRepository) SetPaid(ctx context.Context, id string, paid bool, at time.Time) (bool, error) {
	var res sql.Result
	var err error
	if paid {
		res, err = r.db.ExecContext(ctx, `UPDATE class_sessions SET paid = TRUE, paid_at = $2, updated_at = $2 WHERE id = $1`, id, at)
	} else {
		res, err = r.db.ExecContext(ctx, `UPDATE class_sessions SET paid = FALSE, paid_at = NULL, updated_at = $2 WHERE id = $1`, id, at)
	}
	if err != nil {
		return false, fmt.Errorf("set session paid: %w", err)
	}
	return affected(res)
}

// BulkMarkPaid flips the given confirmed, unpaid sessions to paid one record
// at a time. Each update is atomic on its own; on a mid-loop fault the count
// of already-updated records is returned alongside the error.
func (r *SessionRepository) BulkMarkPaid(ctx context.Context, ids []string, at time.Time) (int, error) {
	const query = `UPDATE class_sessions SET paid = TRUE, paid_at = $2, updated_at = $2 WHERE id = $1 AND status = $3 AND paid = FALSE`
	modified := 0
	for _, id := range ids {
		res, err := r.db.ExecContext(ctx, query, id, at, models.SessionAdminConfirmed)
		if err != nil {
			return modified, fmt.Errorf("bulk mark paid %s: %w", id, err)
		}
		if ok, err := affected(res); err != nil {
			return modified, err
		} else if ok {
			modified++
		}
	}
	return modified, nil
}

// MarkAllUnpaidPaid flips every confirmed, unpaid session in one statement
// and reports how many rows actually changed.
func (r *SessionRepository) MarkAllUnpaidPaid(ctx context.Context, at time.Time) (int, error) {
	const query = `UPDATE class_sessions SET paid = TRUE, paid_at = $1, updated_at = $1 WHERE status = $2 AND paid = FALSE`
	res, err := r.db.ExecContext(ctx, query, at, models.SessionAdminConfirmed)
	if err != nil {
		return 0, fmt.Errorf("mark all unpaid paid: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all unpaid paid: %w", err)
	}
	return int(count), nil
}

// Delete removes a session, but only while it is still pending. Completed and
// confirmed sessions are immutable financial records.
func (r *SessionRepository) Delete(ctx context.Context, id string) (bool, error) {
	const query = `DELETE FROM class_sessions WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id, models.SessionPending)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return affected(res)
}

func affected(res sql.Result) (bool, error) {
	count, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return count > 0, nil
}
