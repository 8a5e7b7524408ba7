package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edutrack-io/kocluk-api/internal/repository"
	appErrors "github.com/edutrack-io/kocluk-api/pkg/errors"
)

func newDeletionFixture(t *testing.T) (*DeletionService, sqlmock.Sqlmock, func()) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	db := sqlx.NewDb(mockDB, "sqlmock")
	svc := NewDeletionService(
		db,
		repository.NewTeacherRepository(db),
		repository.NewStudentRepository(db),
		repository.NewParentRepository(db),
		repository.NewUserRepository(db),
		repository.NewTaskRepository(db),
		repository.NewRoutineTaskRepository(db),
		repository.NewProgressRepository(db),
		repository.NewExtensionRequestRepository(db),
		repository.NewTestResultRepository(db),
		nil,
		zap.NewNop(),
	)
	return svc, mock, func() { db.Close() }
}

func expectStudentGraphDeletion(mock sqlmock.Sqlmock, studentID, userID string) {
	ok := sqlmock.NewResult(0, 1)
	mock.ExpectExec(`UPDATE test_results SET student_id = NULL, task_id = NULL WHERE student_id = \$1`).
		WithArgs(studentID).WillReturnResult(ok)
	mock.ExpectExec(`DELETE FROM extension_requests WHERE student_id = \$1`).
		WithArgs(studentID).WillReturnResult(ok)
	mock.ExpectExec(`DELETE FROM tasks WHERE student_id = \$1`).
		WithArgs(studentID).WillReturnResult(ok)
	mock.ExpectExec(`DELETE FROM student_topic_progress WHERE student_id = \$1`).
		WithArgs(studentID).WillReturnResult(ok)
	mock.ExpectExec(`DELETE FROM student_subjects WHERE student_id = \$1`).
		WithArgs(studentID).WillReturnResult(ok)
	mock.ExpectExec(`DELETE FROM routine_task_students WHERE student_id = \$1`).
		WithArgs(studentID).WillReturnResult(ok)
	mock.ExpectExec(`UPDATE parents SET student_id = NULL`).
		WithArgs(studentID, sqlmock.AnyArg()).WillReturnResult(ok)
	mock.ExpectExec(`DELETE FROM students WHERE id = \$1`).
		WithArgs(studentID).WillReturnResult(ok)
	mock.ExpectExec(`DELETE FROM refresh_tokens WHERE user_id = \$1`).
		WithArgs(userID).WillReturnResult(ok)
	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs(userID).WillReturnResult(ok)
}

func teacherDetailRows() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "user_id", "phone", "branch", "created_at", "updated_at", "email", "full_name", "active",
	}).AddRow("teacher-1", "tu-1", "", "Matematik", now, now, "hoca@example.com", "Ayşe Hoca", true)
}

func studentDetailRows(id, userID string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "user_id", "teacher_id", "grade_level", "school_name", "target_note",
		"created_at", "updated_at", "email", "full_name", "active",
	}).AddRow(id, userID, "teacher-1", 11, "", "", now, now, id+"@example.com", "Öğrenci", true)
}

func TestDeleteTeacherCascadesInOrder(t *testing.T) {
	svc, mock, cleanup := newDeletionFixture(t)
	defer cleanup()

	now := time.Now().UTC()
	ok := sqlmock.NewResult(0, 1)

	mock.ExpectQuery(`SELECT (.+) FROM teachers t JOIN users u ON u.id = t.user_id`).
		WithArgs("teacher-1").WillReturnRows(teacherDetailRows())
	mock.ExpectQuery(`SELECT (.+) FROM students s JOIN users u ON u.id = s.user_id\s+WHERE s.teacher_id = \$1`).
		WithArgs("teacher-1").
		WillReturnRows(studentDetailRows("student-1", "su-1").AddRow(
			"student-2", "su-2", "teacher-1", 12, "", "", now, now, "s2@example.com", "Öğrenci 2", true))

	mock.ExpectBegin()
	expectStudentGraphDeletion(mock, "student-1", "su-1")
	expectStudentGraphDeletion(mock, "student-2", "su-2")

	mock.ExpectQuery(`SELECT (.+) FROM parents WHERE teacher_id = \$1`).
		WithArgs("teacher-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "teacher_id", "student_id", "phone", "created_at", "updated_at",
		}).AddRow("parent-1", "pu-1", "teacher-1", nil, "", now, now))
	mock.ExpectExec(`DELETE FROM parents WHERE id = \$1`).
		WithArgs("parent-1").WillReturnResult(ok)
	mock.ExpectExec(`DELETE FROM refresh_tokens WHERE user_id = \$1`).
		WithArgs("pu-1").WillReturnResult(ok)
	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs("pu-1").WillReturnResult(ok)

	mock.ExpectExec(`UPDATE test_results SET teacher_id = NULL WHERE teacher_id = \$1`).
		WithArgs("teacher-1").WillReturnResult(ok)
	mock.ExpectExec(`DELETE FROM tasks WHERE teacher_id = \$1`).
		WithArgs("teacher-1").WillReturnResult(ok)
	mock.ExpectExec(`DELETE FROM routine_task_students\s+WHERE routine_task_id IN`).
		WithArgs("teacher-1").WillReturnResult(ok)
	mock.ExpectExec(`DELETE FROM routine_tasks WHERE teacher_id = \$1`).
		WithArgs("teacher-1").WillReturnResult(ok)
	mock.ExpectExec(`DELETE FROM teachers WHERE id = \$1`).
		WithArgs("teacher-1").WillReturnResult(ok)
	mock.ExpectExec(`DELETE FROM refresh_tokens WHERE user_id = \$1`).
		WithArgs("tu-1").WillReturnResult(ok)
	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs("tu-1").WillReturnResult(ok)
	mock.ExpectCommit()

	require.NoError(t, svc.DeleteTeacher(context.Background(), "teacher-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTeacherRollsBackOnFailure(t *testing.T) {
	svc, mock, cleanup := newDeletionFixture(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT (.+) FROM teachers t JOIN users u ON u.id = t.user_id`).
		WithArgs("teacher-1").WillReturnRows(teacherDetailRows())
	mock.ExpectQuery(`SELECT (.+) FROM students s JOIN users u ON u.id = s.user_id\s+WHERE s.teacher_id = \$1`).
		WithArgs("teacher-1").WillReturnRows(studentDetailRows("student-1", "su-1"))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE test_results SET student_id = NULL, task_id = NULL WHERE student_id = \$1`).
		WithArgs("student-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM extension_requests WHERE student_id = \$1`).
		WithArgs("student-1").WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := svc.DeleteTeacher(context.Background(), "teacher-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTransactionFailure.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteStudentRemovesGraph(t *testing.T) {
	svc, mock, cleanup := newDeletionFixture(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT (.+) FROM students s JOIN users u ON u.id = s.user_id\s+WHERE s.id = \$1`).
		WithArgs("student-1").WillReturnRows(studentDetailRows("student-1", "su-1"))

	mock.ExpectBegin()
	expectStudentGraphDeletion(mock, "student-1", "su-1")
	mock.ExpectCommit()

	require.NoError(t, svc.DeleteStudent(context.Background(), "student-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteParentWithLinkedStudentRejected(t *testing.T) {
	svc, mock, cleanup := newDeletionFixture(t)
	defer cleanup()

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT (.+) FROM parents p JOIN users u ON u.id = p.user_id`).
		WithArgs("parent-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "teacher_id", "student_id", "phone", "created_at", "updated_at",
			"email", "full_name", "active",
		}).AddRow("parent-1", "pu-1", "teacher-1", "student-1", "", now, now,
			"veli@example.com", "Veli", true))

	err := svc.DeleteParent(context.Background(), "parent-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrHasDependent.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteParentUnlinked(t *testing.T) {
	svc, mock, cleanup := newDeletionFixture(t)
	defer cleanup()

	now := time.Now().UTC()
	ok := sqlmock.NewResult(0, 1)
	mock.ExpectQuery(`SELECT (.+) FROM parents p JOIN users u ON u.id = p.user_id`).
		WithArgs("parent-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "teacher_id", "student_id", "phone", "created_at", "updated_at",
			"email", "full_name", "active",
		}).AddRow("parent-1", "pu-1", "teacher-1", nil, "", now, now,
			"veli@example.com", "Veli", true))

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM parents WHERE id = \$1`).
		WithArgs("parent-1").WillReturnResult(ok)
	mock.ExpectExec(`DELETE FROM refresh_tokens WHERE user_id = \$1`).
		WithArgs("pu-1").WillReturnResult(ok)
	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs("pu-1").WillReturnResult(ok)
	mock.ExpectCommit()

	require.NoError(t, svc.DeleteParent(context.Background(), "parent-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTeacherNotFound(t *testing.T) {
	svc, mock, cleanup := newDeletionFixture(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT (.+) FROM teachers t JOIN users u ON u.id = t.user_id`).
		WithArgs("missing").WillReturnError(sql.ErrNoRows)

	err := svc.DeleteTeacher(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
