package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bbec/class-ops-api/internal/models"
	appErrors "github.com/bbec/class-ops-api/pkg/errors"
)

type mockSessionRepo struct {
	items     map[string]*models.ClassSession
	nameIndex map[string]bool
	unpaidAll int
	deleted   []string
}

func (m *mockSessionRepo) Create(ctx context.Context, session *models.ClassSession) error {
	if m.items == nil {
		m.items = make(map[string]*models.ClassSession)
	}
	if session.ID == "" {
		session.ID = "generated"
	}
	cp := *session
	m.items[session.ID] = &cp
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*models.ClassSession, error) {
	if session, ok := m.items[id]; ok {
		cp := *session
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSessionRepo) ExistsByCourseAndName(ctx context.Context, courseID, name string) (bool, error) {
	return m.nameIndex[courseID+"/"+name], nil
}

func (m *mockSessionRepo) ListPending(ctx context.Context, teacherID string) ([]models.ClassSessionDetail, error) {
	var out []models.ClassSessionDetail
	for _, s := range m.items {
		if s.Status != models.SessionPending {
			continue
		}
		if teacherID != "" && s.TeacherID != teacherID {
			continue
		}
		out = append(out, models.ClassSessionDetail{ClassSession: *s})
	}
	return out, nil
}

func (m *mockSessionRepo) ListByStatus(ctx context.Context, status models.SessionStatus) ([]models.ClassSessionDetail, error) {
	var out []models.ClassSessionDetail
	for _, s := range m.items {
		if s.Status == status {
			out = append(out, models.ClassSessionDetail{ClassSession: *s})
		}
	}
	return out, nil
}

func (m *mockSessionRepo) ListConfirmed(ctx context.Context, filter models.SessionFilter) ([]models.ClassSessionDetail, error) {
	return m.ListByStatus(ctx, models.SessionAdminConfirmed)
}

func (m *mockSessionRepo) ListUnpaid(ctx context.Context) ([]models.ClassSessionDetail, error) {
	var out []models.ClassSessionDetail
	for _, s := range m.items {
		if s.Status == models.SessionAdminConfirmed && !s.Paid {
			out = append(out, models.ClassSessionDetail{ClassSession: *s})
		}
	}
	return out, nil
}

func (m *mockSessionRepo) MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error) {
	s, ok := m.items[id]
	if !ok || s.Status != models.SessionPending {
		return false, nil
	}
	s.Status = models.SessionTeacherCompleted
	s.CompletedAt = &at
	return true, nil
}

func (m *mockSessionRepo) MarkConfirmed(ctx context.Context, id string, at time.Time) (bool, error) {
	s, ok := m.items[id]
	if !ok || s.Status != models.SessionTeacherCompleted {
		return false, nil
	}
	s.Status = models.SessionAdminConfirmed
	s.ConfirmedAt = &at
	return true, nil
}

func (m *mockSessionRepo) SetPaid(ctx context.Context, id string, paid bool, at time.Time) (bool, error) {
	s, ok := m.items[id]
	if !ok {
		return false, nil
	}
	s.Paid = paid
	if paid {
		s.PaidAt = &at
	} else {
		s.PaidAt = nil
	}
	return true, nil
}

func (m *mockSessionRepo) BulkMarkPaid(ctx context.Context, ids []string, at time.Time) (int, error) {
	modified := 0
	for _, id := range ids {
		s, ok := m.items[id]
		if !ok || s.Status != models.SessionAdminConfirmed || s.Paid {
			continue
		}
		s.Paid = true
		s.PaidAt = &at
		modified++
	}
	return modified, nil
}

func (m *mockSessionRepo) MarkAllUnpaidPaid(ctx context.Context, at time.Time) (int, error) {
	modified := 0
	for _, s := range m.items {
		if s.Status == models.SessionAdminConfirmed && !s.Paid {
			s.Paid = true
			s.PaidAt = &at
			modified++
		}
	}
	m.unpaidAll = modified
	return modified, nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, id string) (bool, error) {
	s, ok := m.items[id]
	if !ok || s.Status != models.SessionPending {
		return false, nil
	}
	delete(m.items, id)
	m.deleted = append(m.deleted, id)
	return true, nil
}

type mockCourseDir struct {
	items map[string]*models.Course
}

func (m *mockCourseDir) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if course, ok := m.items[id]; ok {
		cp := *course
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type mockPersonDir struct {
	items map[string]*models.User
}

func (m *mockPersonDir) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.items[id]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type mockTaskEnsurer struct {
	ensured []string
	err     error
}

func (m *mockTaskEnsurer) EnsureTask(ctx context.Context, sessionID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	m.ensured = append(m.ensured, sessionID)
	return true, nil
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin, Tpin: "9000"}
}

func teacherClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleTeacher, Tpin: "1001"}
}

func newTestSessionService(repo *mockSessionRepo, tasks *mockTaskEnsurer) *SessionService {
	courses := &mockCourseDir{items: map[string]*models.Course{
		"c1": {ID: "c1", Name: "Math", Active: true},
	}}
	people := &mockPersonDir{items: map[string]*models.User{
		"t1": {ID: "t1", Tpin: "1001", FullName: "Teacher A", Role: models.RoleTeacher, Active: true},
		"t2": {ID: "t2", Tpin: "1002", FullName: "Teacher B", Role: models.RoleTeacher, Active: true},
		"e1": {ID: "e1", Tpin: "2001", FullName: "Editor One", Role: models.RoleEditor, Active: true},
		"t3": {ID: "t3", Tpin: "1003", FullName: "Gone Teacher", Role: models.RoleTeacher, Active: false},
	}}
	return NewSessionService(repo, courses, people, tasks, nil, validator.New(), zap.NewNop(), SessionServiceConfig{})
}

func TestSessionServiceAssignSnapshotsTeacher(t *testing.T) {
	repo := &mockSessionRepo{}
	svc := newTestSessionService(repo, &mockTaskEnsurer{})

	session, err := svc.Assign(context.Background(), adminClaims(), AssignSessionRequest{
		CourseID:  "c1",
		TeacherID: "t1",
		Name:      "Algebra 1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.SessionPending, session.Status)
	assert.Equal(t, "1001", session.TeacherTpin)
	assert.Equal(t, "Teacher A", session.TeacherName)
	assert.True(t, session.Hours.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, session.HourlyRate.Equal(decimal.NewFromInt(600)))
	assert.False(t, session.Paid)
}

func TestSessionServiceAssignRejectsDuplicateName(t *testing.T) {
	repo := &mockSessionRepo{nameIndex: map[string]bool{"c1/Algebra 1": true}}
	svc := newTestSessionService(repo, &mockTaskEnsurer{})

	_, err := svc.Assign(context.Background(), adminClaims(), AssignSessionRequest{
		CourseID:  "c1",
		TeacherID: "t1",
		Name:      "Algebra 1",
	})
	require.Error(t, err)
	assert.Equal(t, "DUPLICATE_NAME", appErrors.FromError(err).Code)
}

func TestSessionServiceAssignRejectsEditorAssignee(t *testing.T) {
	svc := newTestSessionService(&mockSessionRepo{}, &mockTaskEnsurer{})

	_, err := svc.Assign(context.Background(), adminClaims(), AssignSessionRequest{
		CourseID:  "c1",
		TeacherID: "e1",
		Name:      "Algebra 1",
	})
	require.Error(t, err)
	assert.Equal(t, "INVALID_ASSIGNEE", appErrors.FromError(err).Code)
}

func TestSessionServiceAssignRejectsInactiveAssignee(t *testing.T) {
	svc := newTestSessionService(&mockSessionRepo{}, &mockTaskEnsurer{})

	_, err := svc.Assign(context.Background(), adminClaims(), AssignSessionRequest{
		CourseID:  "c1",
		TeacherID: "t3",
		Name:      "Algebra 1",
	})
	require.Error(t, err)
	assert.Equal(t, "INVALID_ASSIGNEE", appErrors.FromError(err).Code)
}

func TestSessionServiceAssignForbiddenForTeacher(t *testing.T) {
	svc := newTestSessionService(&mockSessionRepo{}, &mockTaskEnsurer{})

	_, err := svc.Assign(context.Background(), teacherClaims("t1"), AssignSessionRequest{
		CourseID:  "c1",
		TeacherID: "t1",
		Name:      "Algebra 1",
	})
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", appErrors.FromError(err).Code)
}

func TestSessionServiceCompleteOwnershipEnforced(t *testing.T) {
	repo := &mockSessionRepo{items: map[string]*models.ClassSession{
		"s1": {ID: "s1", TeacherID: "t1", Status: models.SessionPending},
	}}
	svc := newTestSessionService(repo, &mockTaskEnsurer{})

	_, err := svc.Complete(context.Background(), teacherClaims("t2"), "s1")
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", appErrors.FromError(err).Code)

	session, err := svc.Complete(context.Background(), teacherClaims("t1"), "s1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionTeacherCompleted, session.Status)
	assert.NotNil(t, session.CompletedAt)
}

func TestSessionServiceCompleteRejectsNonPending(t *testing.T) {
	repo := &mockSessionRepo{items: map[string]*models.ClassSession{
		"s1": {ID: "s1", TeacherID: "t1", Status: models.SessionAdminConfirmed},
	}}
	svc := newTestSessionService(repo, &mockTaskEnsurer{})

	_, err := svc.Complete(context.Background(), adminClaims(), "s1")
	require.Error(t, err)
	assert.Equal(t, "INVALID_STATE", appErrors.FromError(err).Code)

	// The status check comes before ownership, so a non-owner gets the same
	// answer as the owner would.
	_, err = svc.Complete(context.Background(), teacherClaims("t2"), "s1")
	require.Error(t, err)
	assert.Equal(t, "INVALID_STATE", appErrors.FromError(err).Code)
}

func TestSessionServiceConfirmCreatesUploadTask(t *testing.T) {
	repo := &mockSessionRepo{items: map[string]*models.ClassSession{
		"s1": {ID: "s1", TeacherID: "t1", Status: models.SessionTeacherCompleted},
	}}
	tasks := &mockTaskEnsurer{}
	svc := newTestSessionService(repo, tasks)

	session, err := svc.Confirm(context.Background(), adminClaims(), "s1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionAdminConfirmed, session.Status)
	assert.NotNil(t, session.ConfirmedAt)
	assert.Equal(t, []string{"s1"}, tasks.ensured)
}

func TestSessionServiceConfirmSurvivesTaskFailure(t *testing.T) {
	repo := &mockSessionRepo{items: map[string]*models.ClassSession{
		"s1": {ID: "s1", TeacherID: "t1", Status: models.SessionTeacherCompleted},
	}}
	svc := newTestSessionService(repo, &mockTaskEnsurer{err: sql.ErrConnDone})

	session, err := svc.Confirm(context.Background(), adminClaims(), "s1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionAdminConfirmed, session.Status)
}

func TestSessionServiceConfirmRejectsPending(t *testing.T) {
	repo := &mockSessionRepo{items: map[string]*models.ClassSession{
		"s1": {ID: "s1", TeacherID: "t1", Status: models.SessionPending},
	}}
	svc := newTestSessionService(repo, &mockTaskEnsurer{})

	_, err := svc.Confirm(context.Background(), adminClaims(), "s1")
	require.Error(t, err)
	assert.Equal(t, "INVALID_STATE", appErrors.FromError(err).Code)
}

func TestSessionServiceListPendingScopedToTeacher(t *testing.T) {
	repo := &mockSessionRepo{items: map[string]*models.ClassSession{
		"s1": {ID: "s1", TeacherID: "t1", Status: models.SessionPending},
		"s2": {ID: "s2", TeacherID: "t2", Status: models.SessionPending},
	}}
	svc := newTestSessionService(repo, &mockTaskEnsurer{})

	mine, err := svc.ListPending(context.Background(), teacherClaims("t1"))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "s1", mine[0].ID)

	all, err := svc.ListPending(context.Background(), adminClaims())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSessionServiceBulkMarkPaidIsIdempotent(t *testing.T) {
	repo := &mockSessionRepo{items: map[string]*models.ClassSession{
		"s1": {ID: "s1", Status: models.SessionAdminConfirmed},
		"s2": {ID: "s2", Status: models.SessionAdminConfirmed},
		"s3": {ID: "s3", Status: models.SessionAdminConfirmed},
		"s4": {ID: "s4", Status: models.SessionPending},
	}}
	svc := newTestSessionService(repo, &mockTaskEnsurer{})

	modified, err := svc.BulkMarkPaid(context.Background(), adminClaims(), []string{"s1", "s2", "s3", "s4"})
	require.NoError(t, err)
	assert.Equal(t, 3, modified)

	modified, err = svc.BulkMarkPaid(context.Background(), adminClaims(), []string{"s1", "s2", "s3", "s4"})
	require.NoError(t, err)
	assert.Equal(t, 0, modified)
}

func TestSessionServiceBulkMarkPaidEmptyMarksAllUnpaid(t *testing.T) {
	repo := &mockSessionRepo{items: map[string]*models.ClassSession{
		"s1": {ID: "s1", Status: models.SessionAdminConfirmed},
		"s2": {ID: "s2", Status: models.SessionAdminConfirmed, Paid: true},
	}}
	svc := newTestSessionService(repo, &mockTaskEnsurer{})

	modified, err := svc.BulkMarkPaid(context.Background(), adminClaims(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, modified)
}

func TestSessionServiceSetPaidTogglesFreely(t *testing.T) {
	repo := &mockSessionRepo{items: map[string]*models.ClassSession{
		"s1": {ID: "s1", Status: models.SessionPending},
	}}
	svc := newTestSessionService(repo, &mockTaskEnsurer{})

	session, err := svc.SetPaid(context.Background(), adminClaims(), "s1", true)
	require.NoError(t, err)
	assert.True(t, session.Paid)
	assert.NotNil(t, session.PaidAt)

	session, err = svc.SetPaid(context.Background(), adminClaims(), "s1", false)
	require.NoError(t, err)
	assert.False(t, session.Paid)
	assert.Nil(t, session.PaidAt)
}

func TestSessionServiceDeleteOnlyPending(t *testing.T) {
	repo := &mockSessionRepo{items: map[string]*models.ClassSession{
		"s1": {ID: "s1", Status: models.SessionPending},
		"s2": {ID: "s2", Status: models.SessionAdminConfirmed},
	}}
	svc := newTestSessionService(repo, &mockTaskEnsurer{})

	require.NoError(t, svc.Delete(context.Background(), adminClaims(), "s1"))

	err := svc.Delete(context.Background(), adminClaims(), "s2")
	require.Error(t, err)
	assert.Equal(t, "INVALID_STATE", appErrors.FromError(err).Code)

	err = svc.Delete(context.Background(), adminClaims(), "missing")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", appErrors.FromError(err).Code)
}
