package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bbec/class-ops-api/internal/models"
	appErrors "github.com/bbec/class-ops-api/pkg/errors"
)

type uploadRepository interface {
	EnsureForSession(ctx context.Context, sessionID string) (bool, error)
	FindByID(ctx context.Context, id string) (*models.UploadTask, error)
	SessionIDsWithTask(ctx context.Context) (map[string]struct{}, error)
	ListByUploaded(ctx context.Context, uploaded bool) ([]models.UploadTaskDetail, error)
	MarkUploaded(ctx context.Context, id string, videoURL *string, editorID *string, at time.Time) (bool, error)
	MarkNotUploaded(ctx context.Context, id string, at time.Time) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type confirmedSessionLister interface {
	ListByStatus(ctx context.Context, status models.SessionStatus) ([]models.ClassSessionDetail, error)
}

// UploadService bridges confirmed sessions to their video upload tasks: one
// task per confirmed session, tracked independently through an
// uploaded/not-uploaded flag.
type UploadService struct {
	repo     uploadRepository
	sessions confirmedSessionLister
	logger   *zap.Logger
	now      func() time.Time
}

// NewUploadService constructs an UploadService.
func NewUploadService(repo uploadRepository, sessions confirmedSessionLister, logger *zap.Logger) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadService{repo: repo, sessions: sessions, logger: logger, now: time.Now}
}

// EnsureTask idempotently creates the upload task for a confirmed session.
// Calling it twice leaves exactly one task.
func (s *UploadService) EnsureTask(ctx context.Context, sessionID string) (bool, error) {
	created, err := s.repo.EnsureForSession(ctx, sessionID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to ensure upload task")
	}
	return created, nil
}

// ReconcileAll backfills tasks for confirmed sessions that lack one and
// returns the number created. Useful when an eager creation on confirm was
// lost.
func (s *UploadService) ReconcileAll(ctx context.Context, actor *models.JWTClaims) (int, error) {
	if err := Authorize(actor, OpReconcileUploads); err != nil {
		return 0, err
	}
	confirmed, err := s.sessions.ListByStatus(ctx, models.SessionAdminConfirmed)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list confirmed sessions")
	}
	existing, err := s.repo.SessionIDsWithTask(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list existing tasks")
	}

	created := 0
	for _, session := range confirmed {
		if _, ok := existing[session.ID]; ok {
			continue
		}
		inserted, err := s.repo.EnsureForSession(ctx, session.ID)
		if err != nil {
			// Keep the partial progress and report the actual count.
			s.logger.Error("reconcile stopped partway", zap.Int("created", created), zap.Error(err))
			return created, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "reconcile stopped partway")
		}
		if inserted {
			created++
		}
	}
	return created, nil
}

// ListPending returns not-yet-uploaded tasks for the editor work queue.
func (s *UploadService) ListPending(ctx context.Context, actor *models.JWTClaims) ([]models.UploadTaskDetail, error) {
	if err := Authorize(actor, OpListUploads); err != nil {
		return nil, err
	}
	tasks, err := s.repo.ListByUploaded(ctx, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending uploads")
	}
	return tasks, nil
}

// ListUploaded returns fulfilled tasks.
func (s *UploadService) ListUploaded(ctx context.Context, actor *models.JWTClaims) ([]models.UploadTaskDetail, error) {
	if err := Authorize(actor, OpListUploads); err != nil {
		return nil, err
	}
	tasks, err := s.repo.ListByUploaded(ctx, true)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list uploaded tasks")
	}
	return tasks, nil
}

// MarkUploaded records a delivered video. When the actor is an editor they
// are stamped as the fulfilling editor; admins marking on behalf of someone
// leave the editor unset.
func (s *UploadService) MarkUploaded(ctx context.Context, actor *models.JWTClaims, id, videoURL string) (*models.UploadTask, error) {
	if err := Authorize(actor, OpMarkUploaded); err != nil {
		return nil, err
	}
	if _, err := s.loadTask(ctx, id); err != nil {
		return nil, err
	}

	var url *string
	if trimmed := strings.TrimSpace(videoURL); trimmed != "" {
		url = &trimmed
	}
	var editorID *string
	if actor.Role == models.RoleEditor {
		editorID = &actor.UserID
	}

	if _, err := s.repo.MarkUploaded(ctx, id, url, editorID, s.now().UTC()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark task uploaded")
	}
	return s.loadTask(ctx, id)
}

// MarkNotUploaded reverts a mistaken upload.
func (s *UploadService) MarkNotUploaded(ctx context.Context, actor *models.JWTClaims, id string) (*models.UploadTask, error) {
	if err := Authorize(actor, OpMarkNotUploaded); err != nil {
		return nil, err
	}
	if _, err := s.loadTask(ctx, id); err != nil {
		return nil, err
	}
	if _, err := s.repo.MarkNotUploaded(ctx, id, s.now().UTC()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revert task")
	}
	return s.loadTask(ctx, id)
}

// Delete removes the task record only. The parent session is never touched.
func (s *UploadService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	if err := Authorize(actor, OpDeleteUploadTask); err != nil {
		return err
	}
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete upload task")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "upload task not found")
	}
	return nil
}

func (s *UploadService) loadTask(ctx context.Context, id string) (*models.UploadTask, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "upload task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load upload task")
	}
	return task, nil
}
