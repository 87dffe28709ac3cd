package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bbec/class-ops-api/internal/models"
	"github.com/bbec/class-ops-api/internal/repository"
	appErrors "github.com/bbec/class-ops-api/pkg/errors"
)

type sessionRepository interface {
	Create(ctx context.Context, session *models.ClassSession) error
	FindByID(ctx context.Context, id string) (*models.ClassSession, error)
	ExistsByCourseAndName(ctx context.Context, courseID, name string) (bool, error)
	ListPending(ctx context.Context, teacherID string) ([]models.ClassSessionDetail, error)
	ListByStatus(ctx context.Context, status models.SessionStatus) ([]models.ClassSessionDetail, error)
	ListConfirmed(ctx context.Context, filter models.SessionFilter) ([]models.ClassSessionDetail, error)
	ListUnpaid(ctx context.Context) ([]models.ClassSessionDetail, error)
	MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error)
	MarkConfirmed(ctx context.Context, id string, at time.Time) (bool, error)
	SetPaid(ctx context.Context, id string, paid bool, at time.Time) (bool, error)
	BulkMarkPaid(ctx context.Context, ids []string, at time.Time) (int, error)
	MarkAllUnpaidPaid(ctx context.Context, at time.Time) (int, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type courseDirectory interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type personDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type taskEnsurer interface {
	EnsureTask(ctx context.Context, sessionID string) (bool, error)
}

// AssignSessionRequest is the payload for creating a session. Hours and
// hourly rate are decimal strings; empty values fall back to the configured
// business defaults.
type AssignSessionRequest struct {
	CourseID   string `json:"course_id" validate:"required"`
	TeacherID  string `json:"teacher_id" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Hours      string `json:"hours"`
	HourlyRate string `json:"hourly_rate"`
}

// ListCompletedRequest carries the completed-list filters. Dates are
// YYYY-MM-DD in the business timezone.
type ListCompletedRequest struct {
	CourseID  string
	TeacherID string
	Tpin      string
	Start     string
	End       string
}

// SessionServiceConfig carries billing defaults and the business timezone.
type SessionServiceConfig struct {
	DefaultHours decimal.Decimal
	DefaultRate  decimal.Decimal
	Location     *time.Location
}

// SessionService is the lifecycle engine for class sessions: it owns the
// pending → teacherCompleted → adminConfirmed state machine, the orthogonal
// paid flag, and the role/ownership gates on every transition.
type SessionService struct {
	repo      sessionRepository
	courses   courseDirectory
	people    personDirectory
	tasks     taskEnsurer
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	cfg       SessionServiceConfig
}

// NewSessionService constructs a SessionService.
func NewSessionService(repo sessionRepository, courses courseDirectory, people personDirectory, tasks taskEnsurer, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cfg SessionServiceConfig) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultHours.IsZero() {
		cfg.DefaultHours = decimal.RequireFromString("1.5")
	}
	if cfg.DefaultRate.IsZero() {
		cfg.DefaultRate = decimal.NewFromInt(600)
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &SessionService{
		repo:      repo,
		courses:   courses,
		people:    people,
		tasks:     tasks,
		cache:     cache,
		validator: validate,
		logger:    logger,
		now:       time.Now,
		cfg:       cfg,
	}
}

// Assign creates a pending session, snapshotting the assignee's current name
// and tpin onto the record for billing stability.
func (s *SessionService) Assign(ctx context.Context, actor *models.JWTClaims, req AssignSessionRequest) (*models.ClassSession, error) {
	if err := Authorize(actor, OpAssignSession); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class name is required")
	}

	hours, err := parsePositiveDecimal(req.Hours, s.cfg.DefaultHours, "hours")
	if err != nil {
		return nil, err
	}
	rate, err := parseNonNegativeDecimal(req.HourlyRate, s.cfg.DefaultRate, "hourly rate")
	if err != nil {
		return nil, err
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCourse
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	assignee, err := s.people.FindByID(ctx, req.TeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidAssignee
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignee")
	}
	if !assignee.Active || !assignee.CanTeach() {
		return nil, appErrors.ErrInvalidAssignee
	}

	exists, err := s.repo.ExistsByCourseAndName(ctx, course.ID, name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check name uniqueness")
	}
	if exists {
		return nil, appErrors.ErrDuplicateName
	}

	session := &models.ClassSession{
		Name:        name,
		CourseID:    course.ID,
		TeacherID:   assignee.ID,
		TeacherTpin: assignee.Tpin,
		TeacherName: assignee.FullName,
		Hours:       hours,
		HourlyRate:  rate,
		Status:      models.SessionPending,
		Paid:        false,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, appErrors.ErrDuplicateName
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}

	s.logger.Info("session assigned",
		zap.String("session_id", session.ID),
		zap.String("course_id", course.ID),
		zap.String("teacher_tpin", assignee.Tpin))
	return session, nil
}

// ListPending returns pending sessions. Admins see all; teachers only their
// own.
func (s *SessionService) ListPending(ctx context.Context, actor *models.JWTClaims) ([]models.ClassSessionDetail, error) {
	if err := Authorize(actor, OpListPending); err != nil {
		return nil, err
	}
	teacherID := ""
	if actor.Role == models.RoleTeacher {
		teacherID = actor.UserID
	}
	sessions, err := s.repo.ListPending(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending sessions")
	}
	return sessions, nil
}

// Complete advances a pending session to teacherCompleted. Teachers may only
// complete sessions assigned to them; admins may complete any.
func (s *SessionService) Complete(ctx context.Context, actor *models.JWTClaims, id string) (*models.ClassSession, error) {
	if err := Authorize(actor, OpCompleteSession); err != nil {
		return nil, err
	}
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "session is not pending")
	}
	if actor.Role == models.RoleTeacher && session.TeacherID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}

	ok, err := s.repo.MarkCompleted(ctx, id, s.now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete session")
	}
	if !ok {
		// Lost the race to a concurrent transition or delete.
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "session is not pending")
	}
	return s.load(ctx, id)
}

// ConfirmationQueue lists teacherCompleted sessions awaiting admin review.
func (s *SessionService) ConfirmationQueue(ctx context.Context, actor *models.JWTClaims) ([]models.ClassSessionDetail, error) {
	if err := Authorize(actor, OpConfirmQueue); err != nil {
		return nil, err
	}
	sessions, err := s.repo.ListByStatus(ctx, models.SessionTeacherCompleted)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list confirmation queue")
	}
	return sessions, nil
}

// Confirm advances teacherCompleted → adminConfirmed and eagerly derives the
// session's upload task. A task-creation failure does not fail the confirm;
// the reconcile endpoint backfills it later.
func (s *SessionService) Confirm(ctx context.Context, actor *models.JWTClaims, id string) (*models.ClassSession, error) {
	if err := Authorize(actor, OpConfirmSession); err != nil {
		return nil, err
	}
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionTeacherCompleted {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "session is not in the confirmation queue")
	}

	ok, err := s.repo.MarkConfirmed(ctx, id, s.now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm session")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "session is not in the confirmation queue")
	}

	if s.tasks != nil {
		if _, err := s.tasks.EnsureTask(ctx, id); err != nil {
			s.logger.Warn("upload task creation failed after confirm, reconcile will backfill",
				zap.String("session_id", id), zap.Error(err))
		}
	}
	s.invalidateReports(ctx)
	return s.load(ctx, id)
}

// ListCompleted returns adminConfirmed sessions with optional course,
// teacher, tpin and confirmed_at range filters.
func (s *SessionService) ListCompleted(ctx context.Context, actor *models.JWTClaims, req ListCompletedRequest) ([]models.ClassSessionDetail, error) {
	if err := Authorize(actor, OpListCompleted); err != nil {
		return nil, err
	}
	start, end, err := parseDateRange(req.Start, req.End, s.cfg.Location)
	if err != nil {
		return nil, err
	}
	sessions, err := s.repo.ListConfirmed(ctx, models.SessionFilter{
		CourseID:  req.CourseID,
		TeacherID: req.TeacherID,
		Tpin:      req.Tpin,
		Start:     start,
		End:       end,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list completed sessions")
	}
	return sessions, nil
}

// ListUnpaid returns confirmed-but-unpaid sessions.
func (s *SessionService) ListUnpaid(ctx context.Context, actor *models.JWTClaims) ([]models.ClassSessionDetail, error) {
	if err := Authorize(actor, OpListUnpaid); err != nil {
		return nil, err
	}
	sessions, err := s.repo.ListUnpaid(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list unpaid sessions")
	}
	return sessions, nil
}

// SetPaid toggles the paid flag. There is deliberately no status
// precondition, matching the established billing workflow.
func (s *SessionService) SetPaid(ctx context.Context, actor *models.JWTClaims, id string, paid bool) (*models.ClassSession, error) {
	if err := Authorize(actor, OpMarkPaid); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	if _, err := s.repo.SetPaid(ctx, id, paid, s.now().UTC()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update paid flag")
	}
	return s.load(ctx, id)
}

// BulkMarkPaid marks the given sessions paid, or every confirmed unpaid
// session when no ids are supplied. It returns the number of records
// actually modified, which is zero when called twice in a row.
func (s *SessionService) BulkMarkPaid(ctx context.Context, actor *models.JWTClaims, ids []string) (int, error) {
	if err := Authorize(actor, OpBulkMarkPaid); err != nil {
		return 0, err
	}
	now := s.now().UTC()
	var modified int
	var err error
	if len(ids) == 0 {
		modified, err = s.repo.MarkAllUnpaidPaid(ctx, now)
	} else {
		modified, err = s.repo.BulkMarkPaid(ctx, ids, now)
	}
	if err != nil {
		// Partial progress is kept; report what actually changed.
		s.logger.Error("bulk mark paid failed partway", zap.Int("modified", modified), zap.Error(err))
		return modified, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "bulk mark paid failed partway")
	}
	return modified, nil
}

// Delete removes a pending session. Completed and confirmed sessions are
// immutable financial records and cannot be deleted.
func (s *SessionService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	if err := Authorize(actor, OpDeleteSession); err != nil {
		return err
	}
	session, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if session.Status != models.SessionPending {
		return appErrors.Clone(appErrors.ErrInvalidState, "only pending sessions can be deleted")
	}
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete session")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrInvalidState, "only pending sessions can be deleted")
	}
	return nil
}

func (s *SessionService) load(ctx context.Context, id string) (*models.ClassSession, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

func (s *SessionService) invalidateReports(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "report:*"); err != nil {
		s.logger.Warn("report cache invalidation failed", zap.Error(err))
	}
}

func parsePositiveDecimal(raw string, fallback decimal.Decimal, field string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, appErrors.Clone(appErrors.ErrValidation, "invalid "+field)
	}
	if value.Sign() <= 0 {
		return decimal.Zero, appErrors.Clone(appErrors.ErrValidation, field+" must be positive")
	}
	return value, nil
}

func parseNonNegativeDecimal(raw string, fallback decimal.Decimal, field string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, appErrors.Clone(appErrors.ErrValidation, "invalid "+field)
	}
	if value.Sign() < 0 {
		return decimal.Zero, appErrors.Clone(appErrors.ErrValidation, field+" cannot be negative")
	}
	return value, nil
}
