package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/edutrack-io/kocluk-api/internal/models"
	appErrors "github.com/edutrack-io/kocluk-api/pkg/errors"
)

type taskStore interface {
	Create(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id string) (*models.Task, error)
	List(ctx context.Context, filter models.TaskFilter) ([]models.Task, int, error)
	ListForStudentRange(ctx context.Context, studentID string, from, to time.Time) ([]models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	DeleteTx(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type taskStudentStore interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type taskExpander interface {
	EnsureExpanded(ctx context.Context, studentID string, from, to time.Time) (int, error)
}

type taskCleanupResultStore interface {
	DetachTaskTx(ctx context.Context, exec sqlx.ExtContext, taskID string) error
}

type taskCleanupExtensionStore interface {
	DeleteByTaskTx(ctx context.Context, exec sqlx.ExtContext, taskID string) error
}

// TaskService covers teacher-authored task CRUD and the student task listing
// that triggers lazy routine expansion.
type TaskService struct {
	db         *sqlx.DB
	tasks      taskStore
	students   taskStudentStore
	expander   taskExpander
	results    taskCleanupResultStore
	extensions taskCleanupExtensionStore
	dashboards dashboardInvalidator
	logger     *zap.Logger
	now        func() time.Time
}

// NewTaskService constructs a TaskService.
func NewTaskService(
	db *sqlx.DB,
	tasks taskStore,
	students taskStudentStore,
	expander taskExpander,
	results taskCleanupResultStore,
	extensions taskCleanupExtensionStore,
	dashboards dashboardInvalidator,
	logger *zap.Logger,
) *TaskService {
	return &TaskService{
		db:         db,
		tasks:      tasks,
		students:   students,
		expander:   expander,
		results:    results,
		extensions: extensions,
		dashboards: dashboards,
		logger:     logger,
		now:        time.Now,
	}
}

// Create inserts a teacher-authored task for one of the teacher's students.
func (s *TaskService) Create(ctx context.Context, teacherID string, req models.CreateTaskRequest) (*models.TaskWithStatus, error) {
	if !req.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown task type")
	}
	if req.EndAt.Before(req.StartAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "task window ends before it starts")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load student")
	}
	if student.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	if !student.Active {
		return nil, appErrors.ErrInactiveAccount
	}

	task := &models.Task{
		TeacherID:    teacherID,
		StudentID:    req.StudentID,
		SubjectID:    req.SubjectID,
		Description:  req.Description,
		ResourceName: req.ResourceName,
		Type:         req.Type,
		StartAt:      req.StartAt,
		EndAt:        req.EndAt,
		PageStart:    req.PageStart,
		PageEnd:      req.PageEnd,
		VideoCount:   req.VideoCount,
		TestCount:    req.TestCount,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create task")
	}

	s.invalidate(ctx, req.StudentID)
	return &models.TaskWithStatus{Task: *task, Status: ClassifyTask(task.EndAt, nil, s.now().UTC())}, nil
}

// Get returns a task visible to the given scope.
func (s *TaskService) Get(ctx context.Context, scope models.AccessScope, id string) (*models.TaskWithStatus, error) {
	task, err := s.findVisible(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	return &models.TaskWithStatus{Task: *task, Status: ClassifyTask(task.EndAt, task.CompletedAt, s.now().UTC())}, nil
}

// List returns tasks narrowed to the scope's visibility.
func (s *TaskService) List(ctx context.Context, scope models.AccessScope, filter models.TaskFilter) ([]models.TaskWithStatus, int, error) {
	switch scope.Role {
	case models.RoleAdmin:
	case models.RoleTeacher:
		filter.TeacherID = scope.ActorID
	case models.RoleStudent:
		filter.StudentID = scope.ActorID
	case models.RoleParent:
		if scope.StudentID == nil {
			return []models.TaskWithStatus{}, 0, nil
		}
		filter.StudentID = *scope.StudentID
	default:
		return nil, 0, appErrors.ErrForbidden
	}

	tasks, total, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list tasks")
	}
	return AttachStatus(tasks, s.now().UTC()), total, nil
}

// ListStudentRange returns a student's tasks in a date range, expanding any
// missing routine instances first so the listing is complete.
func (s *TaskService) ListStudentRange(ctx context.Context, scope models.AccessScope, studentID string, from, to time.Time) ([]models.TaskWithStatus, error) {
	if err := s.authorizeStudentView(ctx, scope, studentID); err != nil {
		return nil, err
	}

	if _, err := s.expander.EnsureExpanded(ctx, studentID, from, to); err != nil {
		return nil, err
	}

	tasks, err := s.tasks.ListForStudentRange(ctx, studentID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list student tasks")
	}
	return AttachStatus(tasks, s.now().UTC()), nil
}

// Update edits an uncompleted task's assignment fields.
func (s *TaskService) Update(ctx context.Context, teacherID, id string, req models.UpdateTaskRequest) (*models.TaskWithStatus, error) {
	task, err := s.findOwned(ctx, teacherID, id)
	if err != nil {
		return nil, err
	}
	if task.IsCompleted() {
		return nil, appErrors.Clone(appErrors.ErrAlreadyCompleted, "completed tasks cannot be edited")
	}

	if req.SubjectID != nil {
		task.SubjectID = req.SubjectID
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.ResourceName != nil {
		task.ResourceName = *req.ResourceName
	}
	if req.Type != nil {
		if !req.Type.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown task type")
		}
		task.Type = *req.Type
	}
	if req.StartAt != nil {
		task.StartAt = *req.StartAt
	}
	if req.EndAt != nil {
		task.EndAt = *req.EndAt
	}
	if task.EndAt.Before(task.StartAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "task window ends before it starts")
	}
	if req.PageStart != nil {
		task.PageStart = req.PageStart
	}
	if req.PageEnd != nil {
		task.PageEnd = req.PageEnd
	}
	if req.VideoCount != nil {
		task.VideoCount = req.VideoCount
	}
	if req.TestCount != nil {
		task.TestCount = req.TestCount
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "update task")
	}

	s.invalidate(ctx, task.StudentID)
	return &models.TaskWithStatus{Task: *task, Status: ClassifyTask(task.EndAt, task.CompletedAt, s.now().UTC())}, nil
}

// Delete removes a single task. Extension requests on the task go with it;
// test result rows are detached and preserved.
func (s *TaskService) Delete(ctx context.Context, teacherID, id string) error {
	task, err := s.findOwned(ctx, teacherID, id)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "begin task deletion")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := s.results.DetachTaskTx(ctx, tx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "detach test results")
	}
	if err := s.extensions.DeleteByTaskTx(ctx, tx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "delete extension requests")
	}
	if err := s.tasks.DeleteTx(ctx, tx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "delete task")
	}
	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "commit task deletion")
	}

	s.invalidate(ctx, task.StudentID)
	s.logger.Info("task deleted", zap.String("task_id", id), zap.String("teacher_id", teacherID))
	return nil
}

func (s *TaskService) findOwned(ctx context.Context, teacherID, id string) (*models.Task, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load task")
	}
	if task.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
	}
	return task, nil
}

func (s *TaskService) findVisible(ctx context.Context, scope models.AccessScope, id string) (*models.Task, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load task")
	}

	visible := false
	switch scope.Role {
	case models.RoleAdmin:
		visible = true
	case models.RoleTeacher:
		visible = task.TeacherID == scope.ActorID
	case models.RoleStudent:
		visible = task.StudentID == scope.ActorID
	case models.RoleParent:
		visible = scope.StudentID != nil && task.StudentID == *scope.StudentID
	}
	if !visible {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
	}
	return task, nil
}

// authorizeStudentView checks scope access to a student's data; teachers are
// matched against the student's owning teacher.
func (s *TaskService) authorizeStudentView(ctx context.Context, scope models.AccessScope, studentID string) error {
	if scope.CanViewStudent(studentID) {
		return nil
	}
	if scope.Role == models.RoleTeacher {
		student, err := s.students.FindByID(ctx, studentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load student")
		}
		if student.TeacherID == scope.ActorID {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrNotFound, "student not found")
}

func (s *TaskService) invalidate(ctx context.Context, studentID string) {
	if s.dashboards == nil {
		return
	}
	if err := s.dashboards.InvalidateStudent(ctx, studentID); err != nil {
		s.logger.Warn("dashboard invalidation failed", zap.String("student_id", studentID), zap.Error(err))
	}
}
