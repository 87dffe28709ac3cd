package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbec/class-ops-api/internal/models"
)

func newSessionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func sessionDetailRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "course_id", "teacher_id", "teacher_tpin", "teacher_name",
		"hours", "hourly_rate", "status", "paid", "completed_at", "confirmed_at",
		"paid_at", "created_at", "updated_at", "course_name",
	})
}

func TestSessionRepositoryCreateDuplicateName(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec("INSERT INTO class_sessions").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.ClassSession{
		Name:      "Algebra 1",
		CourseID:  "c1",
		TeacherID: "t1",
		Status:    models.SessionPending,
	})
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryMarkCompletedGuardsStatus(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)
	at := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE class_sessions SET status = $2, completed_at = $3, updated_at = $3 WHERE id = $1 AND status = $4")).
		WithArgs("s1", models.SessionTeacherCompleted, at, models.SessionPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.MarkCompleted(context.Background(), "s1", at)
	require.NoError(t, err)
	assert.True(t, ok)

	// A second attempt finds the session already advanced.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE class_sessions SET status = $2, completed_at = $3, updated_at = $3 WHERE id = $1 AND status = $4")).
		WithArgs("s1", models.SessionTeacherCompleted, at, models.SessionPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err = repo.MarkCompleted(context.Background(), "s1", at)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryMarkConfirmedLosesRace(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)
	at := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE class_sessions SET status = $2, confirmed_at = $3, updated_at = $3 WHERE id = $1 AND status = $4")).
		WithArgs("s1", models.SessionAdminConfirmed, at, models.SessionTeacherCompleted).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.MarkConfirmed(context.Background(), "s1", at)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryListConfirmedWithFilters(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)
	now := time.Now()

	rows := sessionDetailRows().AddRow(
		"s1", "Algebra 1", "c1", "t1", "1001", "Teacher A",
		"1.5", "600", string(models.SessionAdminConfirmed), false, now, now,
		nil, now, now, "Math")

	mock.ExpectQuery("SELECT .* FROM class_sessions s JOIN courses c ON c.id = s.course_id WHERE s.status = \\$1 AND s.course_id = \\$2 AND s.confirmed_at >= \\$3 AND s.confirmed_at <= \\$4 ORDER BY s.confirmed_at DESC").
		WithArgs(models.SessionAdminConfirmed, "c1", start, end).
		WillReturnRows(rows)

	sessions, err := repo.ListConfirmed(context.Background(), models.SessionFilter{
		CourseID: "c1",
		Start:    &start,
		End:      &end,
	})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "Math", sessions[0].CourseName)
	assert.Equal(t, "1001", sessions[0].TeacherTpin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryBulkMarkPaidCountsOnlyChangedRows(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)
	at := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE class_sessions SET paid = TRUE, paid_at = $2, updated_at = $2 WHERE id = $1 AND status = $3 AND paid = FALSE")).
		WithArgs("s1", at, models.SessionAdminConfirmed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE class_sessions SET paid = TRUE, paid_at = $2, updated_at = $2 WHERE id = $1 AND status = $3 AND paid = FALSE")).
		WithArgs("s2", at, models.SessionAdminConfirmed).
		WillReturnResult(sqlmock.NewResult(0, 0))

	modified, err := repo.BulkMarkPaid(context.Background(), []string{"s1", "s2"}, at)
	require.NoError(t, err)
	assert.Equal(t, 1, modified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryDeleteOnlyPending(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM class_sessions WHERE id = $1 AND status = $2")).
		WithArgs("s1", models.SessionPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Delete(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryExistsByCourseAndName(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM class_sessions WHERE course_id = $1 AND name = $2 LIMIT 1")).
		WithArgs("c1", "Algebra 1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.ExistsByCourseAndName(context.Background(), "c1", "Algebra 1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
