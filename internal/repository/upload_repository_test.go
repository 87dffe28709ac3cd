package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbec/class-ops-api/internal/models"
)

func newUploadRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestUploadRepositoryEnsureForSessionIdempotent(t *testing.T) {
	db, mock, cleanup := newUploadRepoMock(t)
	defer cleanup()
	repo := NewUploadRepository(db)

	mock.ExpectExec("INSERT INTO upload_tasks").
		WithArgs(sqlmock.AnyArg(), "s1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := repo.EnsureForSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, created)

	// Second call conflicts on class_session_id and inserts nothing.
	mock.ExpectExec("INSERT INTO upload_tasks").
		WithArgs(sqlmock.AnyArg(), "s1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err = repo.EnsureForSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUploadRepositoryMarkUploadedKeepsExistingValues(t *testing.T) {
	db, mock, cleanup := newUploadRepoMock(t)
	defer cleanup()
	repo := NewUploadRepository(db)
	at := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE upload_tasks SET uploaded = TRUE, video_url = COALESCE($2, video_url), editor_id = COALESCE($3, editor_id), uploaded_at = $4, updated_at = $4 WHERE id = $1")).
		WithArgs("u1", nil, nil, at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.MarkUploaded(context.Background(), "u1", nil, nil, at)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUploadRepositoryMarkNotUploadedClearsFields(t *testing.T) {
	db, mock, cleanup := newUploadRepoMock(t)
	defer cleanup()
	repo := NewUploadRepository(db)
	at := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE upload_tasks SET uploaded = FALSE, video_url = NULL, uploaded_at = NULL, updated_at = $2 WHERE id = $1")).
		WithArgs("u1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.MarkNotUploaded(context.Background(), "u1", at)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUploadRepositoryListUploadedBetween(t *testing.T) {
	db, mock, cleanup := newUploadRepoMock(t)
	defer cleanup()
	repo := NewUploadRepository(db)

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "class_session_id", "editor_id", "uploaded", "video_url", "uploaded_at",
		"created_at", "updated_at", "session_name", "course_name", "teacher_name",
		"teacher_tpin", "editor_name",
	}).AddRow("u1", "s1", "e1", true, "https://cdn.example.com/v1", now, now, now,
		"Algebra 1", "Math", "Teacher A", "1001", "Editor One")

	mock.ExpectQuery("SELECT .* FROM upload_tasks u").
		WithArgs(start, end).
		WillReturnRows(rows)

	tasks, err := repo.ListUploadedBetween(context.Background(), models.UploadTaskFilter{Start: &start, End: &end})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Math", tasks[0].CourseName)
	require.NotNil(t, tasks[0].EditorName)
	assert.Equal(t, "Editor One", *tasks[0].EditorName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUploadRepositorySessionIDsWithTask(t *testing.T) {
	db, mock, cleanup := newUploadRepoMock(t)
	defer cleanup()
	repo := NewUploadRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT class_session_id FROM upload_tasks")).
		WillReturnRows(sqlmock.NewRows([]string{"class_session_id"}).AddRow("s1").AddRow("s2"))

	set, err := repo.SessionIDsWithTask(context.Background())
	require.NoError(t, err)
	assert.Len(t, set, 2)
	_, ok := set["s1"]
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
