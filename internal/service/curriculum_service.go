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

type curriculumStore interface {
	ListClasses(ctx context.Context) ([]models.Class, error)
	ListSubjectsByClass(ctx context.Context, classID string) ([]models.Subject, error)
	FindSubject(ctx context.Context, id string) (*models.Subject, error)
	ListTopicsBySubject(ctx context.Context, subjectID string) ([]models.Topic, error)
	FindTopic(ctx context.Context, id string) (*models.Topic, error)
}

type progressStore interface {
	AssignSubject(ctx context.Context, studentID, subjectID string, topicIDs []string) (*models.StudentSubject, error)
	UnassignSubject(ctx context.Context, studentID, subjectID string) error
	ExistsAssignment(ctx context.Context, studentID, subjectID string) (bool, error)
	ListAssignments(ctx context.Context, studentID string) ([]models.StudentSubjectDetail, error)
	FindProgress(ctx context.Context, studentID, topicID string) (*models.StudentTopicProgress, error)
	CompleteTopic(ctx context.Context, studentID, topicID string, completedAt time.Time) error
}

// CurriculumService serves the read-only class/subject/topic hierarchy and
// manages per-student subject assignments with their derived progress.
type CurriculumService struct {
	curriculum curriculumStore
	progress   progressStore
	students   taskStudentStore
	logger     *zap.Logger
	now        func() time.Time
}

// NewCurriculumService constructs a CurriculumService.
func NewCurriculumService(curriculum curriculumStore, progress progressStore, students taskStudentStore, logger *zap.Logger) *CurriculumService {
	return &CurriculumService{
		curriculum: curriculum,
		progress:   progress,
		students:   students,
		logger:     logger,
		now:        time.Now,
	}
}

// ListClasses returns the class hierarchy roots.
func (s *CurriculumService) ListClasses(ctx context.Context) ([]models.Class, error) {
	classes, err := s.curriculum.ListClasses(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list classes")
	}
	return classes, nil
}

// ListSubjects returns a class's subjects.
func (s *CurriculumService) ListSubjects(ctx context.Context, classID string) ([]models.Subject, error) {
	subjects, err := s.curriculum.ListSubjectsByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list subjects")
	}
	return subjects, nil
}

// ListTopics returns a subject's topics in curriculum order.
func (s *CurriculumService) ListTopics(ctx context.Context, subjectID string) ([]models.Topic, error) {
	topics, err := s.curriculum.ListTopicsBySubject(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list topics")
	}
	return topics, nil
}

// AssignSubject assigns a subject to a teacher's student, seeding one pending
// progress row per topic.
func (s *CurriculumService) AssignSubject(ctx context.Context, teacherID, studentID, subjectID string) (*models.StudentSubject, error) {
	if err := s.ensureOwnStudent(ctx, teacherID, studentID); err != nil {
		return nil, err
	}
	if _, err := s.curriculum.FindSubject(ctx, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load subject")
	}

	exists, err := s.progress.ExistsAssignment(ctx, studentID, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "check assignment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "subject already assigned")
	}

	topics, err := s.curriculum.ListTopicsBySubject(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list topics")
	}
	topicIDs := make([]string, 0, len(topics))
	for _, topic := range topics {
		topicIDs = append(topicIDs, topic.ID)
	}

	assignment, err := s.progress.AssignSubject(ctx, studentID, subjectID, topicIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "assign subject")
	}

	s.logger.Info("subject assigned",
		zap.String("student_id", studentID),
		zap.String("subject_id", subjectID),
		zap.Int("topics", len(topicIDs)))
	return assignment, nil
}

// UnassignSubject removes the assignment together with its progress rows.
func (s *CurriculumService) UnassignSubject(ctx context.Context, teacherID, studentID, subjectID string) error {
	if err := s.ensureOwnStudent(ctx, teacherID, studentID); err != nil {
		return err
	}
	exists, err := s.progress.ExistsAssignment(ctx, studentID, subjectID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "check assignment")
	}
	if !exists {
		return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	if err := s.progress.UnassignSubject(ctx, studentID, subjectID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "unassign subject")
	}
	return nil
}

// ListAssignments returns a student's subject assignments with the aggregate
// status derived from topic counts.
func (s *CurriculumService) ListAssignments(ctx context.Context, scope models.AccessScope, studentID string) ([]models.StudentSubjectDetail, error) {
	if err := s.authorizeStudentView(ctx, scope, studentID); err != nil {
		return nil, err
	}
	assignments, err := s.progress.ListAssignments(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list assignments")
	}
	for i := range assignments {
		assignments[i].Status = models.DeriveAssignmentStatus(assignments[i].CompletedTopics, assignments[i].TotalTopics)
	}
	return assignments, nil
}

// CompleteTopic marks a student's pending topic as completed.
func (s *CurriculumService) CompleteTopic(ctx context.Context, teacherID, studentID, topicID string) (*models.StudentTopicProgress, error) {
	if err := s.ensureOwnStudent(ctx, teacherID, studentID); err != nil {
		return nil, err
	}

	progress, err := s.progress.FindProgress(ctx, studentID, topicID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "topic progress not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load progress")
	}
	if progress.Status == models.ProgressCompleted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "topic already completed")
	}

	completedAt := s.now().UTC()
	if err := s.progress.CompleteTopic(ctx, studentID, topicID, completedAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "complete topic")
	}
	progress.Status = models.ProgressCompleted
	progress.CompletedAt = &completedAt
	return progress, nil
}

func (s *CurriculumService) ensureOwnStudent(ctx context.Context, teacherID, studentID string) error {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load student")
	}
	if student.TeacherID != teacherID {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return nil
}

func (s *CurriculumService) authorizeStudentView(ctx context.Context, scope models.AccessScope, studentID string) error {
	if scope.CanViewStudent(studentID) {
		return nil
	}
	if scope.Role == models.RoleTeacher {
		return s.ensureOwnStudent(ctx, scope.ActorID, studentID)
	}
	return appErrors.Clone(appErrors.ErrNotFound, "student not found")
}
