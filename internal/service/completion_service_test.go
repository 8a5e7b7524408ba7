package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edutrack-io/kocluk-api/internal/models"
	"github.com/edutrack-io/kocluk-api/internal/repository"
	appErrors "github.com/edutrack-io/kocluk-api/pkg/errors"
)

var taskTestColumns = []string{
	"id", "teacher_id", "student_id", "subject_id", "description", "resource_name", "task_type",
	"start_at", "end_at", "page_start", "page_end", "video_count", "test_count",
	"routine_name", "scheduled_date",
	"completed_at", "completion_note", "correct_answers", "wrong_answers", "blank_answers", "net_score",
	"created_at", "updated_at",
}

func newCompletionFixture(t *testing.T) (*CompletionService, sqlmock.Sqlmock, func()) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	db := sqlx.NewDb(mockDB, "sqlmock")
	svc := NewCompletionService(
		db,
		repository.NewTaskRepository(db),
		repository.NewTestResultRepository(db),
		repository.NewStudentRepository(db),
		repository.NewCurriculumRepository(db),
		repository.NewExtensionRequestRepository(db),
		nil,
		zap.NewNop(),
	)
	return svc, mock, func() { db.Close() }
}

func expectTaskLookup(mock sqlmock.Sqlmock, endAt time.Time, testCount *int, completedAt *time.Time) {
	created := endAt.Add(-72 * time.Hour)
	mock.ExpectQuery(`SELECT (.+) FROM tasks WHERE id = \$1`).
		WithArgs("task-1").
		WillReturnRows(sqlmock.NewRows(taskTestColumns).AddRow(
			"task-1", "teacher-1", "student-1", nil, "deneme sınavı", "XYZ yayınları", "deneme",
			endAt.Add(-24*time.Hour), endAt, nil, nil, nil, testCount,
			nil, nil,
			completedAt, nil, nil, nil, nil, nil,
			created, created,
		))
}

func expectStudentLookup(mock sqlmock.Sqlmock, active bool) {
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT (.+) FROM students s JOIN users u ON u.id = s.user_id`).
		WithArgs("student-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "teacher_id", "grade_level", "school_name", "target_note",
			"created_at", "updated_at", "email", "full_name", "active",
		}).AddRow("student-1", "user-1", "teacher-1", 11, "Anadolu Lisesi", "",
			now, now, "ali@example.com", "Ali Veli", active))
}

func TestCompleteScoredTask(t *testing.T) {
	svc, mock, cleanup := newCompletionFixture(t)
	defer cleanup()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	total := 20
	expectTaskLookup(mock, now.Add(6*time.Hour), &total, nil)
	expectStudentLookup(mock, true)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE tasks SET completed_at = \$2`).
		WithArgs("task-1", now, nil, 18, 2, 0, 17.5, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO test_results`).
		WithArgs(sqlmock.AnyArg(), "student-1", "teacher-1", "task-1", "Ali Veli", "",
			18, 2, 0, 17.5, now, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	correct, wrong, blank := 18, 2, 0
	result, err := svc.Complete(context.Background(), "student-1", "task-1", models.CompleteTaskRequest{
		CorrectAnswers: &correct,
		WrongAnswers:   &wrong,
		BlankAnswers:   &blank,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, result.Task.Status)
	assert.False(t, result.IsOverdue)
	assert.False(t, result.CanRequestExtension)
	require.NotNil(t, result.Task.NetScore)
	assert.Equal(t, 17.5, *result.Task.NetScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteLateTaskSignalsOverdue(t *testing.T) {
	svc, mock, cleanup := newCompletionFixture(t)
	defer cleanup()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	total := 10
	expectTaskLookup(mock, now.Add(-48*time.Hour), &total, nil)
	expectStudentLookup(mock, true)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE tasks SET completed_at = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO test_results`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(`SELECT 1 FROM extension_requests WHERE task_id = \$1`).
		WithArgs("task-1").
		WillReturnError(sql.ErrNoRows)

	correct, wrong, blank := 8, 2, 0
	result, err := svc.Complete(context.Background(), "student-1", "task-1", models.CompleteTaskRequest{
		CorrectAnswers: &correct,
		WrongAnswers:   &wrong,
		BlankAnswers:   &blank,
	})
	require.NoError(t, err)
	assert.True(t, result.IsOverdue)
	assert.True(t, result.CanRequestExtension)
	// Completing late is still completed, never overdue.
	assert.Equal(t, models.TaskStatusCompleted, result.Task.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteAlreadyCompletedFastPath(t *testing.T) {
	svc, mock, cleanup := newCompletionFixture(t)
	defer cleanup()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	done := now.Add(-time.Hour)
	expectTaskLookup(mock, now.Add(6*time.Hour), nil, &done)

	_, err := svc.Complete(context.Background(), "student-1", "task-1", models.CompleteTaskRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyCompleted.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteLosesRace(t *testing.T) {
	svc, mock, cleanup := newCompletionFixture(t)
	defer cleanup()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	total := 20
	expectTaskLookup(mock, now.Add(6*time.Hour), &total, nil)
	expectStudentLookup(mock, true)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE tasks SET completed_at = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	correct, wrong, blank := 18, 2, 0
	_, err := svc.Complete(context.Background(), "student-1", "task-1", models.CompleteTaskRequest{
		CorrectAnswers: &correct,
		WrongAnswers:   &wrong,
		BlankAnswers:   &blank,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyCompleted.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteCountMismatchWritesNothing(t *testing.T) {
	svc, mock, cleanup := newCompletionFixture(t)
	defer cleanup()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	total := 20
	expectTaskLookup(mock, now.Add(6*time.Hour), &total, nil)
	expectStudentLookup(mock, true)

	correct, wrong, blank := 10, 5, 0
	_, err := svc.Complete(context.Background(), "student-1", "task-1", models.CompleteTaskRequest{
		CorrectAnswers: &correct,
		WrongAnswers:   &wrong,
		BlankAnswers:   &blank,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidSubmission.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteMissingCountsForScoredType(t *testing.T) {
	svc, mock, cleanup := newCompletionFixture(t)
	defer cleanup()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	total := 20
	expectTaskLookup(mock, now.Add(6*time.Hour), &total, nil)
	expectStudentLookup(mock, true)

	_, err := svc.Complete(context.Background(), "student-1", "task-1", models.CompleteTaskRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidSubmission.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteForeignTaskLooksMissing(t *testing.T) {
	svc, mock, cleanup := newCompletionFixture(t)
	defer cleanup()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	expectTaskLookup(mock, now.Add(6*time.Hour), nil, nil)

	_, err := svc.Complete(context.Background(), "other-student", "task-1", models.CompleteTaskRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteInactiveStudentBlocked(t *testing.T) {
	svc, mock, cleanup := newCompletionFixture(t)
	defer cleanup()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	total := 20
	expectTaskLookup(mock, now.Add(6*time.Hour), &total, nil)
	expectStudentLookup(mock, false)

	correct, wrong, blank := 18, 2, 0
	_, err := svc.Complete(context.Background(), "student-1", "task-1", models.CompleteTaskRequest{
		CorrectAnswers: &correct,
		WrongAnswers:   &wrong,
		BlankAnswers:   &blank,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
