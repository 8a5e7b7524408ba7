package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/edutrack-io/kocluk-api/internal/models"
	appErrors "github.com/edutrack-io/kocluk-api/pkg/errors"
)

type resultReadStore interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.TestResult, error)
	ListByStudentRange(ctx context.Context, studentID string, from, to time.Time) ([]models.TestResult, error)
}

// TestResultService exposes the append-only score history. Rows are written
// only by the completion flow; this service is read-only.
type TestResultService struct {
	results  resultReadStore
	students taskStudentStore
	logger   *zap.Logger
}

// NewTestResultService constructs a TestResultService.
func NewTestResultService(results resultReadStore, students taskStudentStore, logger *zap.Logger) *TestResultService {
	return &TestResultService{results: results, students: students, logger: logger}
}

// ListForStudent returns a student's score history, newest first. An optional
// range narrows by taken_at.
func (s *TestResultService) ListForStudent(ctx context.Context, scope models.AccessScope, studentID string, from, to *time.Time) ([]models.TestResult, error) {
	if err := s.authorize(ctx, scope, studentID); err != nil {
		return nil, err
	}
	if from != nil && to != nil {
		if to.Before(*from) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "range end precedes range start")
		}
		results, err := s.results.ListByStudentRange(ctx, studentID, *from, *to)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list test results")
		}
		return results, nil
	}
	results, err := s.results.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list test results")
	}
	return results, nil
}

func (s *TestResultService) authorize(ctx context.Context, scope models.AccessScope, studentID string) error {
	if scope.CanViewStudent(studentID) {
		return nil
	}
	if scope.Role == models.RoleTeacher {
		student, err := s.students.FindByID(ctx, studentID)
		if err != nil {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		if student.TeacherID == scope.ActorID {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrNotFound, "student not found")
}
