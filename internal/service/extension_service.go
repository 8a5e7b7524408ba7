package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/edutrack-io/kocluk-api/internal/models"
	appErrors "github.com/edutrack-io/kocluk-api/pkg/errors"
)

type extensionStore interface {
	Create(ctx context.Context, req *models.ExtensionRequest) error
	FindByID(ctx context.Context, id string) (*models.ExtensionRequest, error)
	ExistsForTask(ctx context.Context, taskID string) (bool, error)
	Decide(ctx context.Context, id string, status models.ExtensionStatus, approvedDays *int, decidedAt time.Time) error
	ListByTeacher(ctx context.Context, teacherID string) ([]models.ExtensionRequest, error)
}

type extensionTaskStore interface {
	FindByID(ctx context.Context, id string) (*models.Task, error)
	ExtendWindow(ctx context.Context, id string, days int) error
}

// ExtensionService handles the more-time flow: a student may file one request
// per task; the owning teacher approves or rejects, and approval pushes the
// task's end window forward.
type ExtensionService struct {
	extensions extensionStore
	tasks      extensionTaskStore
	dashboards dashboardInvalidator
	logger     *zap.Logger
	now        func() time.Time
}

// NewExtensionService constructs an ExtensionService.
func NewExtensionService(extensions extensionStore, tasks extensionTaskStore, dashboards dashboardInvalidator, logger *zap.Logger) *ExtensionService {
	return &ExtensionService{
		extensions: extensions,
		tasks:      tasks,
		dashboards: dashboards,
		logger:     logger,
		now:        time.Now,
	}
}

// Request files a student's extension request. Tasks finished inside their
// window cannot be extended; tasks completed after the deadline still can,
// matching the completion response's can_request_extension flag.
func (s *ExtensionService) Request(ctx context.Context, studentID, taskID string, req models.CreateExtensionRequest) (*models.ExtensionRequest, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load task")
	}
	if task.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
	}
	if task.IsCompleted() && !task.CompletedAt.After(task.EndAt) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "tasks completed on time cannot be extended")
	}

	exists, err := s.extensions.ExistsForTask(ctx, taskID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "check extension request")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an extension request already exists for this task")
	}

	request := &models.ExtensionRequest{
		TaskID:        taskID,
		StudentID:     studentID,
		RequestedDays: req.RequestedDays,
		Reason:        req.Reason,
	}
	if err := s.extensions.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create extension request")
	}

	s.logger.Info("extension requested",
		zap.String("task_id", taskID),
		zap.String("student_id", studentID),
		zap.Int("days", req.RequestedDays))
	return request, nil
}

// ListForTeacher returns requests on the teacher's tasks, pending first.
func (s *ExtensionService) ListForTeacher(ctx context.Context, teacherID string) ([]models.ExtensionRequest, error) {
	requests, err := s.extensions.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list extension requests")
	}
	return requests, nil
}

// Decide records the teacher's decision. Approval extends the task window by
// the approved day count, defaulting to the requested days.
func (s *ExtensionService) Decide(ctx context.Context, teacherID, requestID string, decision models.DecideExtensionRequest) (*models.ExtensionRequest, error) {
	request, err := s.extensions.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "extension request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load extension request")
	}
	if request.Status != models.ExtensionPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "extension request already decided")
	}

	task, err := s.tasks.FindByID(ctx, request.TaskID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load task")
	}
	if task.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "extension request not found")
	}

	decidedAt := s.now().UTC()
	status := models.ExtensionRejected
	var approvedDays *int
	if decision.Approve {
		status = models.ExtensionApproved
		days := request.RequestedDays
		if decision.ApprovedDays != nil {
			days = *decision.ApprovedDays
		}
		approvedDays = &days
	}

	if err := s.extensions.Decide(ctx, requestID, status, approvedDays, decidedAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "decide extension request")
	}

	if status == models.ExtensionApproved {
		if err := s.tasks.ExtendWindow(ctx, task.ID, *approvedDays); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "extend task window")
		}
		if s.dashboards != nil {
			if err := s.dashboards.InvalidateStudent(ctx, task.StudentID); err != nil {
				s.logger.Warn("dashboard invalidation failed", zap.String("student_id", task.StudentID), zap.Error(err))
			}
		}
	}

	request.Status = status
	request.ApprovedDays = approvedDays
	request.DecidedAt = &decidedAt
	s.logger.Info("extension decided",
		zap.String("request_id", requestID),
		zap.String("status", string(status)))
	return request, nil
}
