package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bbec/class-ops-api/internal/models"
)

const uploadColumns = "id, class_session_id, editor_id, uploaded, video_url, uploaded_at, created_at, updated_at"

const uploadDetailColumns = "u.id, u.class_session_id, u.editor_id, u.uploaded, u.video_url, u.uploaded_at, u.created_at, u.updated_at, s.name AS session_name, c.name AS course_name, s.teacher_name, s.teacher_tpin, e.full_name AS editor_name"

const uploadDetailFrom = ` FROM upload_tasks u
	JOIN class_sessions s ON s.id = u.class_session_id
	JOIN courses c ON c.id = s.course_id
	LEFT JOIN users e ON e.id = u.editor_id`

// UploadRepository manages persistence for upload tasks. The unique index on
// class_session_id enforces at most one task per session; EnsureForSession
// leans on it with ON CONFLICT DO NOTHING so concurrent ensure calls stay
// idempotent.
type UploadRepository struct {
	db *sqlx.DB
}

// NewUploadRepository constructs an UploadRepository.
func NewUploadRepository(db *sqlx.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

// EnsureForSession creates a task for the session if none exists. It returns
// true when a new row was inserted.
func (r *UploadRepository) EnsureForSession(ctx context.Context, sessionID string) (bool, error) {
	const query = `INSERT INTO upload_tasks (id, class_session_id, uploaded, created_at, updated_at)
		VALUES ($1, $2, FALSE, $3, $3)
		ON CONFLICT (class_session_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, uuid.NewString(), sessionID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("ensure upload task: %w", err)
	}
	return affected(res)
}

// FindByID fetches an upload task by ID.
func (r *UploadRepository) FindByID(ctx context.Context, id string) (*models.UploadTask, error) {
	query := fmt.Sprintf("SELECT %s FROM upload_tasks WHERE id = $1", uploadColumns)
	var task models.UploadTask
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		return nil, err
	}
	return &task, nil
}

// SessionIDsWithTask returns the set of session ids that already have a task.
func (r *UploadRepository) SessionIDsWithTask(ctx context.Context) (map[string]struct{}, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT class_session_id FROM upload_tasks`); err != nil {
		return nil, fmt.Errorf("list task session ids: %w", err)
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// ListByUploaded returns tasks filtered on the uploaded flag, joined with the
// parent session, its course and the fulfilling editor for display.
func (r *UploadRepository) ListByUploaded(ctx context.Context, uploaded bool) ([]models.UploadTaskDetail, error) {
	query := "SELECT " + uploadDetailColumns + uploadDetailFrom + " WHERE u.uploaded = $1 ORDER BY u.created_at DESC"
	tasks := []models.UploadTaskDetail{}
	if err := r.db.SelectContext(ctx, &tasks, query, uploaded); err != nil {
		return nil, fmt.Errorf("list upload tasks: %w", err)
	}
	return tasks, nil
}

// ListUploadedBetween returns uploaded tasks whose uploaded_at falls inside
// the filter range. The End bound is expected to be end-of-day inclusive.
func (r *UploadRepository) ListUploadedBetween(ctx context.Context, filter models.UploadTaskFilter) ([]models.UploadTaskDetail, error) {
	base := "SELECT " + uploadDetailColumns + uploadDetailFrom + " WHERE u.uploaded = TRUE"
	var args []interface{}
	var conditions []string

	if filter.Start != nil {
		conditions = append(conditions, fmt.Sprintf("u.uploaded_at >= $%d", len(args)+1))
		args = append(args, *filter.Start)
	}
	if filter.End != nil {
		conditions = append(conditions, fmt.Sprintf("u.uploaded_at <= $%d", len(args)+1))
		args = append(args, *filter.End)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}
	base += " ORDER BY u.uploaded_at DESC"

	tasks := []models.UploadTaskDetail{}
	if err := r.db.SelectContext(ctx, &tasks, base, args...); err != nil {
		return nil, fmt.Errorf("list uploaded tasks: %w", err)
	}
	return tasks, nil
}

// MarkUploaded records the delivered video. The editor id is optional and
// only stamped when the acting user is an editor.
func (r *UploadRepository) MarkUploaded(ctx context.Context, id string, videoURL *string, editorID *string, at time.Time) (bool, error) {
	const query = `UPDATE upload_tasks SET uploaded = TRUE, video_url = COALESCE($2, video_url), editor_id = COALESCE($3, editor_id), uploaded_at = $4, updated_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, videoURL, editorID, at)
	if err != nil {
		return false, fmt.Errorf("mark task uploaded: %w", err)
	}
	return affected(res)
}

// MarkNotUploaded reverts a mistaken upload, clearing url and timestamp.
func (r *UploadRepository) MarkNotUploaded(ctx context.Context, id string, at time.Time) (bool, error) {
	const query = `UPDATE upload_tasks SET uploaded = FALSE, video_url = NULL, uploaded_at = NULL, updated_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("mark task not uploaded: %w", err)
	}
	return affected(res)
}

// Delete removes the task record only; the underlying session is untouched.
func (r *UploadRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM upload_tasks WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete upload task: %w", err)
	}
	return affected(res)
}
