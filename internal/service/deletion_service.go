package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/edutrack-io/kocluk-api/internal/models"
	appErrors "github.com/edutrack-io/kocluk-api/pkg/errors"
)

type deletionTeacherStore interface {
	FindByID(ctx context.Context, id string) (*models.TeacherDetail, error)
	DeleteTx(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type deletionStudentStore interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.StudentDetail, error)
	DeleteTx(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type deletionParentStore interface {
	FindByID(ctx context.Context, id string) (*models.ParentDetail, error)
	ListByTeacherTx(ctx context.Context, exec sqlx.ExtContext, teacherID string) ([]models.Parent, error)
	UnlinkStudentTx(ctx context.Context, exec sqlx.ExtContext, studentID string) error
	DeleteTx(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type deletionUserStore interface {
	DeleteTx(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type deletionTaskStore interface {
	DeleteByStudentTx(ctx context.Context, exec sqlx.ExtContext, studentID string) error
	DeleteByTeacherTx(ctx context.Context, exec sqlx.ExtContext, teacherID string) error
}

type deletionRoutineStore interface {
	DisconnectStudentTx(ctx context.Context, exec sqlx.ExtContext, studentID string) error
	DeleteByTeacherTx(ctx context.Context, exec sqlx.ExtContext, teacherID string) error
}

type deletionProgressStore interface {
	DeleteByStudentTx(ctx context.Context, exec sqlx.ExtContext, studentID string) error
}

type deletionExtensionStore interface {
	DeleteByStudentTx(ctx context.Context, exec sqlx.ExtContext, studentID string) error
}

type deletionResultStore interface {
	DetachStudentTx(ctx context.Context, exec sqlx.ExtContext, studentID string) error
	DetachTeacherTx(ctx context.Context, exec sqlx.ExtContext, teacherID string) error
}

// DeletionService removes an actor and every record that would otherwise
// dangle. Each root deletion runs in a single transaction; child rows go
// before their parent, actors before the teacher, and the account row last,
// because every actor row foreign-keys into users. Test results are detached
// rather than deleted so the analytics trail survives.
type DeletionService struct {
	db         *sqlx.DB
	teachers   deletionTeacherStore
	students   deletionStudentStore
	parents    deletionParentStore
	users      deletionUserStore
	tasks      deletionTaskStore
	routines   deletionRoutineStore
	progress   deletionProgressStore
	extensions deletionExtensionStore
	results    deletionResultStore
	dashboards dashboardInvalidator
	logger     *zap.Logger
}

// NewDeletionService constructs a DeletionService.
func NewDeletionService(
	db *sqlx.DB,
	teachers deletionTeacherStore,
	students deletionStudentStore,
	parents deletionParentStore,
	users deletionUserStore,
	tasks deletionTaskStore,
	routines deletionRoutineStore,
	progress deletionProgressStore,
	extensions deletionExtensionStore,
	results deletionResultStore,
	dashboards dashboardInvalidator,
	logger *zap.Logger,
) *DeletionService {
	return &DeletionService{
		db:         db,
		teachers:   teachers,
		students:   students,
		parents:    parents,
		users:      users,
		tasks:      tasks,
		routines:   routines,
		progress:   progress,
		extensions: extensions,
		results:    results,
		dashboards: dashboards,
		logger:     logger,
	}
}

// DeleteTeacher removes the teacher, every owned student and parent, and all
// of their dependent records in one transaction.
func (s *DeletionService) DeleteTeacher(ctx context.Context, teacherID string) error {
	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load teacher")
	}

	students, err := s.students.ListByTeacher(ctx, teacherID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list students")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "begin teacher deletion")
	}
	defer tx.Rollback() //nolint:errcheck

	for i := range students {
		if err := s.deleteStudentGraphTx(ctx, tx, &students[i].Student); err != nil {
			return err
		}
	}

	parents, err := s.parents.ListByTeacherTx(ctx, tx, teacherID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "list parents")
	}
	for i := range parents {
		parent := &parents[i]
		if err := s.parents.DeleteTx(ctx, tx, parent.ID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "delete parent")
		}
		if err := s.users.DeleteTx(ctx, tx, parent.UserID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "delete parent account")
		}
	}

	if err := s.results.DetachTeacherTx(ctx, tx, teacherID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "detach test results")
	}
	if err := s.tasks.DeleteByTeacherTx(ctx, tx, teacherID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "delete teacher tasks")
	}
	if err := s.routines.DeleteByTeacherTx(ctx, tx, teacherID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "delete routine tasks")
	}
	if err := s.teachers.DeleteTx(ctx, tx, teacherID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "delete teacher")
	}
	if err := s.users.DeleteTx(ctx, tx, teacher.UserID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "delete teacher account")
	}

	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "commit teacher deletion")
	}

	s.invalidateStudents(ctx, students)
	s.logger.Info("teacher deleted",
		zap.String("teacher_id", teacherID),
		zap.Int("students", len(students)),
		zap.Int("parents", len(parents)))
	return nil
}

// DeleteStudent removes a single student and its dependent records.
func (s *DeletionService) DeleteStudent(ctx context.Context, studentID string) error {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load student")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "begin student deletion")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := s.deleteStudentGraphTx(ctx, tx, &student.Student); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "commit student deletion")
	}

	if s.dashboards != nil {
		if err := s.dashboards.InvalidateStudent(ctx, studentID); err != nil {
			s.logger.Warn("dashboard invalidation failed", zap.String("student_id", studentID), zap.Error(err))
		}
	}
	s.logger.Info("student deleted", zap.String("student_id", studentID))
	return nil
}

// DeleteParent removes a single parent. A parent still linked to a student is
// rejected; the caller must break the link first. The teacher cascade never
// hits this check because its students are removed before its parents.
func (s *DeletionService) DeleteParent(ctx context.Context, parentID string) error {
	parent, err := s.parents.FindByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "parent not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load parent")
	}
	if parent.StudentID != nil {
		return appErrors.Clone(appErrors.ErrHasDependent, "parent is still linked to a student")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "begin parent deletion")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := s.parents.DeleteTx(ctx, tx, parentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "delete parent")
	}
	if err := s.users.DeleteTx(ctx, tx, parent.UserID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "delete parent account")
	}
	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "commit parent deletion")
	}

	s.logger.Info("parent deleted", zap.String("parent_id", parentID))
	return nil
}

// deleteStudentGraphTx removes everything hanging off one student inside the
// caller's transaction. Test results are detached before the tasks they point
// at are removed; extension requests go before tasks for the same reason.
func (s *DeletionService) deleteStudentGraphTx(ctx context.Context, tx sqlx.ExtContext, student *models.Student) error {
	if err := s.results.DetachStudentTx(ctx, tx, student.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "detach test results")
	}
	if err := s.extensions.DeleteByStudentTx(ctx, tx, student.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "delete extension requests")
	}
	if err := s.tasks.DeleteByStudentTx(ctx, tx, student.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "delete tasks")
	}
	if err := s.progress.DeleteByStudentTx(ctx, tx, student.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "delete progress")
	}
	if err := s.routines.DisconnectStudentTx(ctx, tx, student.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "disconnect routines")
	}
	if err := s.parents.UnlinkStudentTx(ctx, tx, student.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "unlink parents")
	}
	if err := s.students.DeleteTx(ctx, tx, student.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "delete student")
	}
	if err := s.users.DeleteTx(ctx, tx, student.UserID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "delete student account")
	}
	return nil
}

func (s *DeletionService) invalidateStudents(ctx context.Context, students []models.StudentDetail) {
	if s.dashboards == nil {
		return
	}
	for i := range students {
		if err := s.dashboards.InvalidateStudent(ctx, students[i].ID); err != nil {
			s.logger.Warn("dashboard invalidation failed",
				zap.String("student_id", students[i].ID), zap.Error(err))
		}
	}
}
