package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/edutrack-io/kocluk-api/internal/models"
	appErrors "github.com/edutrack-io/kocluk-api/pkg/errors"
)

type expansionRoutineStore interface {
	ListActiveForStudent(ctx context.Context, studentID string) ([]models.RoutineTask, error)
}

type expansionTaskStore interface {
	InsertGenerated(ctx context.Context, tasks []models.Task) (int, error)
}

type expansionStudentStore interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

// ExpansionService materializes task instances from routine templates on
// demand. There is no scheduler; expansion runs lazily when a student's task
// list is requested for a date range. Idempotency rests entirely on the
// store's unique (student, routine name, date) constraint, so overlapping
// runs insert each instance once.
type ExpansionService struct {
	routines       expansionRoutineStore
	tasks          expansionTaskStore
	students       expansionStudentStore
	dashboards     dashboardInvalidator
	maxHorizonDays int
	metrics        *MetricsService
	logger         *zap.Logger
	now            func() time.Time
}

// NewExpansionService constructs an ExpansionService.
func NewExpansionService(
	routines expansionRoutineStore,
	tasks expansionTaskStore,
	students expansionStudentStore,
	dashboards dashboardInvalidator,
	maxHorizonDays int,
	logger *zap.Logger,
) *ExpansionService {
	if maxHorizonDays <= 0 {
		maxHorizonDays = 31
	}
	return &ExpansionService{
		routines:       routines,
		tasks:          tasks,
		students:       students,
		dashboards:     dashboards,
		maxHorizonDays: maxHorizonDays,
		logger:         logger,
		now:            time.Now,
	}
}

// SetInvalidator attaches the dashboard invalidation hook after construction.
// The dashboard service itself depends on the expander, so the hook cannot be
// passed to the constructor.
func (s *ExpansionService) SetInvalidator(dashboards dashboardInvalidator) {
	s.dashboards = dashboards
}

// SetMetrics attaches the generated-task counter.
func (s *ExpansionService) SetMetrics(metrics *MetricsService) {
	s.metrics = metrics
}

// EnsureExpanded generates any missing routine instances for the student in
// the [from, to] date range and returns how many were inserted. An inactive
// student account produces nothing; existing instances are left untouched.
func (s *ExpansionService) EnsureExpanded(ctx context.Context, studentID string, from, to time.Time) (int, error) {
	fromDay := truncateToDay(from)
	toDay := truncateToDay(to)
	if toDay.Before(fromDay) {
		return 0, appErrors.Clone(appErrors.ErrValidation, "range end precedes range start")
	}
	if days := int(toDay.Sub(fromDay).Hours()/24) + 1; days > s.maxHorizonDays {
		return 0, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("expansion range of %d days exceeds the %d day horizon", days, s.maxHorizonDays))
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load student")
	}
	if !student.Active {
		s.logger.Debug("skipping expansion for inactive student", zap.String("student_id", studentID))
		return 0, nil
	}

	routines, err := s.routines.ListActiveForStudent(ctx, studentID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load routine templates")
	}
	if len(routines) == 0 {
		return 0, nil
	}

	var generated []models.Task
	for day := fromDay; !day.After(toDay); day = day.AddDate(0, 0, 1) {
		for i := range routines {
			routine := &routines[i]
			if !routine.MatchesDate(day) {
				continue
			}
			generated = append(generated, s.instantiate(routine, studentID, day))
		}
	}
	if len(generated) == 0 {
		return 0, nil
	}

	inserted, err := s.tasks.InsertGenerated(ctx, generated)
	if err != nil {
		return inserted, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "insert generated tasks")
	}

	if inserted > 0 {
		s.metrics.ObserveTasksGenerated(inserted)
		s.logger.Info("expanded routine tasks",
			zap.String("student_id", studentID),
			zap.Int("inserted", inserted),
			zap.Time("from", fromDay),
			zap.Time("to", toDay))
		if s.dashboards != nil {
			if err := s.dashboards.InvalidateStudent(ctx, studentID); err != nil {
				s.logger.Warn("dashboard invalidation failed",
					zap.String("student_id", studentID), zap.Error(err))
			}
		}
	}
	return inserted, nil
}

// ExpandForDate generates instances for a single day.
func (s *ExpansionService) ExpandForDate(ctx context.Context, studentID string, date time.Time) (int, error) {
	return s.EnsureExpanded(ctx, studentID, date, date)
}

func (s *ExpansionService) instantiate(routine *models.RoutineTask, studentID string, day time.Time) models.Task {
	name := routine.Name
	scheduled := day
	return models.Task{
		TeacherID:     routine.TeacherID,
		StudentID:     studentID,
		SubjectID:     routine.SubjectID,
		Description:   routine.Name,
		ResourceName:  routine.ResourceName,
		Type:          routine.Type,
		StartAt:       day,
		EndAt:         day.Add(23*time.Hour + 59*time.Minute),
		RoutineName:   &name,
		ScheduledDate: &scheduled,
	}
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
