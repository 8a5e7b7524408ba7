package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/edutrack-io/kocluk-api/internal/models"
)

func newTaskRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTaskRepositoryCompleteTxWinsRace(t *testing.T) {
	db, mock, cleanup := newTaskRepoMock(t)
	defer cleanup()

	repo := NewTaskRepository(db)
	completedAt := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	score := 17.5
	correct, wrong, blank := 18, 2, 0

	mock.ExpectExec(regexp.QuoteMeta("completed_at IS NULL")).
		WithArgs("task-1", completedAt, nil, correct, wrong, blank, score, completedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	won, err := repo.CompleteTx(context.Background(), db, "task-1", completedAt, nil, &correct, &wrong, &blank, &score)
	require.NoError(t, err)
	require.True(t, won)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryCompleteTxLosesRace(t *testing.T) {
	db, mock, cleanup := newTaskRepoMock(t)
	defer cleanup()

	repo := NewTaskRepository(db)
	completedAt := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("completed_at IS NULL")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := repo.CompleteTx(context.Background(), db, "task-1", completedAt, nil, nil, nil, nil, nil)
	require.NoError(t, err)
	require.False(t, won)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryInsertGeneratedCountsOnlyNewRows(t *testing.T) {
	db, mock, cleanup := newTaskRepoMock(t)
	defer cleanup()

	repo := NewTaskRepository(db)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	routineName := "morning reading"
	tasks := []models.Task{
		{TeacherID: "teacher-1", StudentID: "student-1", Description: routineName, Type: models.TaskTypeLecture,
			StartAt: day, EndAt: day.Add(23 * time.Hour), RoutineName: &routineName, ScheduledDate: &day},
		{TeacherID: "teacher-1", StudentID: "student-1", Description: routineName, Type: models.TaskTypeLecture,
			StartAt: day.AddDate(0, 0, 1), EndAt: day.AddDate(0, 0, 1).Add(23 * time.Hour), RoutineName: &routineName, ScheduledDate: &day},
	}

	// First insert lands, second hits the unique triple and is skipped.
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (student_id, routine_name, scheduled_date) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (student_id, routine_name, scheduled_date) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := repo.InsertGenerated(context.Background(), tasks)
	require.NoError(t, err)
	require.Equal(t, 1, inserted)
	require.NotEmpty(t, tasks[0].ID)
	require.NotEmpty(t, tasks[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryExtendWindow(t *testing.T) {
	db, mock, cleanup := newTaskRepoMock(t)
	defer cleanup()

	repo := NewTaskRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("end_at = end_at + make_interval(days => $2)")).
		WithArgs("task-1", 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ExtendWindow(context.Background(), "task-1", 3))
	require.NoError(t, mock.ExpectationsWereMet())
}
