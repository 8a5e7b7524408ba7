package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/edutrack-io/kocluk-api/internal/models"
)

func newRoutineRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func routineRows(id, teacherID, name string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "teacher_id", "name", "task_type", "subject_id", "resource_name", "time_of_day",
		"frequency", "weekdays", "is_active", "created_at", "updated_at",
	}).AddRow(id, teacherID, name, "konu_anlatimi", nil, "", "", "weekly", pq.Int64Array{1, 3}, true, time.Now(), time.Now())
}

func TestRoutineTaskRepositoryCreateInsertsRosterInOneTx(t *testing.T) {
	db, mock, cleanup := newRoutineRepoMock(t)
	defer cleanup()

	repo := NewRoutineTaskRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO routine_tasks")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO routine_task_students")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	routine := &models.RoutineTask{
		TeacherID: "teacher-1",
		Name:      "morning reading",
		Type:      models.TaskTypeLecture,
		Frequency: models.FrequencyWeekly,
		Weekdays:  pq.Int64Array{1, 3},
		IsActive:  true,
	}
	err := repo.Create(context.Background(), routine, []string{"student-1", "student-2"})
	require.NoError(t, err)
	require.NotEmpty(t, routine.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoutineTaskRepositoryCreateSkipsRosterInsertWhenEmpty(t *testing.T) {
	db, mock, cleanup := newRoutineRepoMock(t)
	defer cleanup()

	repo := NewRoutineTaskRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO routine_tasks")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	routine := &models.RoutineTask{
		TeacherID: "teacher-1",
		Name:      "daily review",
		Type:      models.TaskTypeLecture,
		Frequency: models.FrequencyDaily,
		IsActive:  true,
	}
	require.NoError(t, repo.Create(context.Background(), routine, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoutineTaskRepositoryFindByTeacherAndName(t *testing.T) {
	db, mock, cleanup := newRoutineRepoMock(t)
	defer cleanup()

	repo := NewRoutineTaskRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE teacher_id = $1 AND name = $2")).
		WithArgs("teacher-1", "morning reading").
		WillReturnRows(routineRows("routine-1", "teacher-1", "morning reading"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id FROM routine_task_students")).
		WithArgs("routine-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow("student-1").AddRow("student-2"))

	found, err := repo.FindByTeacherAndName(context.Background(), "teacher-1", "morning reading")
	require.NoError(t, err)
	require.Equal(t, "routine-1", found.ID)
	require.Equal(t, []string{"student-1", "student-2"}, found.StudentIDs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoutineTaskRepositorySetStudentsClearsThenInserts(t *testing.T) {
	db, mock, cleanup := newRoutineRepoMock(t)
	defer cleanup()

	repo := NewRoutineTaskRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM routine_task_students WHERE routine_task_id = $1")).
		WithArgs("routine-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO routine_task_students")).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	err := repo.SetStudents(context.Background(), "routine-1", []string{"student-1", "student-2", "student-3"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
