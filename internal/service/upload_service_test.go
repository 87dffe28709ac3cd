package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bbec/class-ops-api/internal/models"
	appErrors "github.com/bbec/class-ops-api/pkg/errors"
)

type mockUploadRepo struct {
	items map[string]*models.UploadTask
	// bySession mirrors the unique index on class_session_id.
	bySession map[string]string
}

func newMockUploadRepo() *mockUploadRepo {
	return &mockUploadRepo{
		items:     make(map[string]*models.UploadTask),
		bySession: make(map[string]string),
	}
}

func (m *mockUploadRepo) EnsureForSession(ctx context.Context, sessionID string) (bool, error) {
	if _, ok := m.bySession[sessionID]; ok {
		return false, nil
	}
	id := "task-" + sessionID
	m.items[id] = &models.UploadTask{ID: id, ClassSessionID: sessionID}
	m.bySession[sessionID] = id
	return true, nil
}

func (m *mockUploadRepo) FindByID(ctx context.Context, id string) (*models.UploadTask, error) {
	if task, ok := m.items[id]; ok {
		cp := *task
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUploadRepo) SessionIDsWithTask(ctx context.Context) (map[string]struct{}, error) {
	set := make(map[string]struct{}, len(m.bySession))
	for sessionID := range m.bySession {
		set[sessionID] = struct{}{}
	}
	return set, nil
}

func (m *mockUploadRepo) ListByUploaded(ctx context.Context, uploaded bool) ([]models.UploadTaskDetail, error) {
	var out []models.UploadTaskDetail
	for _, task := range m.items {
		if task.Uploaded == uploaded {
			out = append(out, models.UploadTaskDetail{UploadTask: *task})
		}
	}
	return out, nil
}

func (m *mockUploadRepo) MarkUploaded(ctx context.Context, id string, videoURL *string, editorID *string, at time.Time) (bool, error) {
	task, ok := m.items[id]
	if !ok {
		return false, nil
	}
	task.Uploaded = true
	task.UploadedAt = &at
	if videoURL != nil {
		task.VideoURL = videoURL
	}
	if editorID != nil {
		task.EditorID = editorID
	}
	return true, nil
}

func (m *mockUploadRepo) MarkNotUploaded(ctx context.Context, id string, at time.Time) (bool, error) {
	task, ok := m.items[id]
	if !ok {
		return false, nil
	}
	task.Uploaded = false
	task.VideoURL = nil
	task.UploadedAt = nil
	return true, nil
}

func (m *mockUploadRepo) Delete(ctx context.Context, id string) (bool, error) {
	task, ok := m.items[id]
	if !ok {
		return false, nil
	}
	delete(m.bySession, task.ClassSessionID)
	delete(m.items, id)
	return true, nil
}

func editorClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleEditor, Tpin: "2001"}
}

func TestUploadServiceEnsureTaskIdempotent(t *testing.T) {
	repo := newMockUploadRepo()
	svc := NewUploadService(repo, &mockSessionRepo{}, zap.NewNop())

	created, err := svc.EnsureTask(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureTask(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, repo.items, 1)
}

func TestUploadServiceReconcileBackfillsMissingTasks(t *testing.T) {
	sessions := &mockSessionRepo{items: map[string]*models.ClassSession{
		"s1": {ID: "s1", Status: models.SessionAdminConfirmed},
		"s2": {ID: "s2", Status: models.SessionAdminConfirmed},
		"s3": {ID: "s3", Status: models.SessionPending},
	}}
	repo := newMockUploadRepo()
	_, err := repo.EnsureForSession(context.Background(), "s1")
	require.NoError(t, err)

	svc := NewUploadService(repo, sessions, zap.NewNop())

	created, err := svc.ReconcileAll(context.Background(), adminClaims())
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Len(t, repo.items, 2)

	// Nothing left to backfill on the second run.
	created, err = svc.ReconcileAll(context.Background(), adminClaims())
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestUploadServiceReconcileForbiddenForEditor(t *testing.T) {
	svc := NewUploadService(newMockUploadRepo(), &mockSessionRepo{}, zap.NewNop())

	_, err := svc.ReconcileAll(context.Background(), editorClaims("e1"))
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", appErrors.FromError(err).Code)
}

func TestUploadServiceMarkUploadedStampsEditor(t *testing.T) {
	repo := newMockUploadRepo()
	_, err := repo.EnsureForSession(context.Background(), "s1")
	require.NoError(t, err)
	svc := NewUploadService(repo, &mockSessionRepo{}, zap.NewNop())

	task, err := svc.MarkUploaded(context.Background(), editorClaims("e1"), "task-s1", "https://cdn.example.com/v1")
	require.NoError(t, err)
	assert.True(t, task.Uploaded)
	require.NotNil(t, task.EditorID)
	assert.Equal(t, "e1", *task.EditorID)
	require.NotNil(t, task.VideoURL)
	assert.Equal(t, "https://cdn.example.com/v1", *task.VideoURL)
	assert.NotNil(t, task.UploadedAt)
}

func TestUploadServiceMarkUploadedByAdminLeavesEditorUnset(t *testing.T) {
	repo := newMockUploadRepo()
	_, err := repo.EnsureForSession(context.Background(), "s1")
	require.NoError(t, err)
	svc := NewUploadService(repo, &mockSessionRepo{}, zap.NewNop())

	task, err := svc.MarkUploaded(context.Background(), adminClaims(), "task-s1", "")
	require.NoError(t, err)
	assert.True(t, task.Uploaded)
	assert.Nil(t, task.EditorID)
	assert.Nil(t, task.VideoURL)
}

func TestUploadServiceMarkNotUploadedClearsDelivery(t *testing.T) {
	repo := newMockUploadRepo()
	_, err := repo.EnsureForSession(context.Background(), "s1")
	require.NoError(t, err)
	svc := NewUploadService(repo, &mockSessionRepo{}, zap.NewNop())

	_, err = svc.MarkUploaded(context.Background(), editorClaims("e1"), "task-s1", "https://cdn.example.com/v1")
	require.NoError(t, err)

	task, err := svc.MarkNotUploaded(context.Background(), editorClaims("e1"), "task-s1")
	require.NoError(t, err)
	assert.False(t, task.Uploaded)
	assert.Nil(t, task.VideoURL)
	assert.Nil(t, task.UploadedAt)
}

func TestUploadServiceDeleteUnknownTask(t *testing.T) {
	svc := NewUploadService(newMockUploadRepo(), &mockSessionRepo{}, zap.NewNop())

	err := svc.Delete(context.Background(), adminClaims(), "missing")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", appErrors.FromError(err).Code)
}
