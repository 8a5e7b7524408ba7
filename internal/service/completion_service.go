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

type completionTaskStore interface {
	FindByID(ctx context.Context, id string) (*models.Task, error)
	CompleteTx(ctx context.Context, exec sqlx.ExtContext, id string, completedAt time.Time, note *string, correct, wrong, blank *int, netScore *float64) (bool, error)
}

type completionResultStore interface {
	InsertTx(ctx context.Context, exec sqlx.ExtContext, result *models.TestResult) error
}

type completionStudentStore interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type completionSubjectStore interface {
	FindSubject(ctx context.Context, id string) (*models.Subject, error)
}

type completionExtensionStore interface {
	ExistsForTask(ctx context.Context, taskID string) (bool, error)
}

type dashboardInvalidator interface {
	InvalidateStudent(ctx context.Context, studentID string) error
}

// CompletionService applies a student's completion submission to a task. The
// task update and the test result append share one transaction; the
// conditional update inside CompleteTx serializes racing attempts.
type CompletionService struct {
	db         *sqlx.DB
	tasks      completionTaskStore
	results    completionResultStore
	students   completionStudentStore
	subjects   completionSubjectStore
	extensions completionExtensionStore
	dashboards dashboardInvalidator
	logger     *zap.Logger
	now        func() time.Time
}

// NewCompletionService constructs a CompletionService.
func NewCompletionService(
	db *sqlx.DB,
	tasks completionTaskStore,
	results completionResultStore,
	students completionStudentStore,
	subjects completionSubjectStore,
	extensions completionExtensionStore,
	dashboards dashboardInvalidator,
	logger *zap.Logger,
) *CompletionService {
	return &CompletionService{
		db:         db,
		tasks:      tasks,
		results:    results,
		students:   students,
		subjects:   subjects,
		extensions: extensions,
		dashboards: dashboards,
		logger:     logger,
		now:        time.Now,
	}
}

// Complete validates and applies the submission on behalf of the student.
// Existence and ownership are checked together so a foreign task id yields
// the same not-found answer as a missing one.
func (s *CompletionService) Complete(ctx context.Context, studentID, taskID string, req models.CompleteTaskRequest) (*models.CompletionResult, error) {
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
	if task.IsCompleted() {
		return nil, appErrors.ErrAlreadyCompleted
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load student")
	}
	if !student.Active {
		return nil, appErrors.ErrInactiveAccount
	}

	var netScore *float64
	if task.Type.Scored() {
		if req.CorrectAnswers == nil || req.WrongAnswers == nil || req.BlankAnswers == nil {
			return nil, appErrors.Clone(appErrors.ErrInvalidSubmission, "correct, wrong and blank answer counts are required")
		}
		score, err := NetScore(*req.CorrectAnswers, *req.WrongAnswers, *req.BlankAnswers, task.TestCount)
		if err != nil {
			return nil, err
		}
		netScore = &score
	} else {
		// Unscored types keep only the note; stray counts are dropped.
		req.CorrectAnswers = nil
		req.WrongAnswers = nil
		req.BlankAnswers = nil
	}

	completedAt := s.now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "begin completion")
	}
	defer tx.Rollback() //nolint:errcheck

	won, err := s.tasks.CompleteTx(ctx, tx, task.ID, completedAt, req.CompletionNote,
		req.CorrectAnswers, req.WrongAnswers, req.BlankAnswers, netScore)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "record completion")
	}
	if !won {
		return nil, appErrors.ErrAlreadyCompleted
	}

	if task.Type.Scored() {
		result := &models.TestResult{
			StudentID:   &task.StudentID,
			TeacherID:   &task.TeacherID,
			TaskID:      &task.ID,
			StudentName: student.FullName,
			SubjectName: s.subjectName(ctx, task.SubjectID),
			Correct:     *req.CorrectAnswers,
			Wrong:       *req.WrongAnswers,
			Blank:       *req.BlankAnswers,
			NetScore:    *netScore,
			TakenAt:     completedAt,
		}
		if err := s.results.InsertTx(ctx, tx, result); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "append test result")
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "commit completion")
	}

	if s.dashboards != nil {
		if err := s.dashboards.InvalidateStudent(ctx, studentID); err != nil {
			s.logger.Warn("dashboard invalidation failed",
				zap.String("student_id", studentID), zap.Error(err))
		}
	}

	isOverdue := completedAt.After(task.EndAt)
	canRequestExtension := false
	if isOverdue {
		exists, err := s.extensions.ExistsForTask(ctx, task.ID)
		if err != nil {
			s.logger.Warn("extension lookup failed", zap.String("task_id", task.ID), zap.Error(err))
		} else {
			canRequestExtension = !exists
		}
	}

	task.CompletedAt = &completedAt
	task.CompletionNote = req.CompletionNote
	task.CorrectAnswers = req.CorrectAnswers
	task.WrongAnswers = req.WrongAnswers
	task.BlankAnswers = req.BlankAnswers
	task.NetScore = netScore
	task.UpdatedAt = completedAt

	s.logger.Info("task completed",
		zap.String("task_id", task.ID),
		zap.String("student_id", studentID),
		zap.Bool("is_overdue", isOverdue))

	return &models.CompletionResult{
		Task:                models.TaskWithStatus{Task: *task, Status: models.TaskStatusCompleted},
		IsOverdue:           isOverdue,
		CanRequestExtension: canRequestExtension,
	}, nil
}

func (s *CompletionService) subjectName(ctx context.Context, subjectID *string) string {
	if subjectID == nil || s.subjects == nil {
		return ""
	}
	subject, err := s.subjects.FindSubject(ctx, *subjectID)
	if err != nil {
		s.logger.Warn("subject lookup failed", zap.String("subject_id", *subjectID), zap.Error(err))
		return ""
	}
	return subject.Name
}
