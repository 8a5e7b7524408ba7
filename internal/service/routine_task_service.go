package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/edutrack-io/kocluk-api/internal/models"
	appErrors "github.com/edutrack-io/kocluk-api/pkg/errors"
)

type routineTaskStore interface {
	Create(ctx context.Context, routine *models.RoutineTask, studentIDs []string) error
	FindByID(ctx context.Context, id string) (*models.RoutineTaskWithStudents, error)
	FindByTeacherAndName(ctx context.Context, teacherID, name string) (*models.RoutineTaskWithStudents, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.RoutineTaskWithStudents, error)
	Update(ctx context.Context, routine *models.RoutineTask) error
	SetStudents(ctx context.Context, routineID string, studentIDs []string) error
	Deactivate(ctx context.Context, id string) error
}

// RoutineTaskService manages recurrence templates. One row carries the full
// weekday set; requests arriving in the legacy one-weekday-per-call shape
// under the same name are merged into the existing row rather than creating
// siblings.
type RoutineTaskService struct {
	routines routineTaskStore
	logger   *zap.Logger
}

// NewRoutineTaskService constructs a RoutineTaskService.
func NewRoutineTaskService(routines routineTaskStore, logger *zap.Logger) *RoutineTaskService {
	return &RoutineTaskService{routines: routines, logger: logger}
}

// Create inserts a template, or merges into an existing template of the same
// name: the weekday sets and rosters are unioned.
func (s *RoutineTaskService) Create(ctx context.Context, teacherID string, req models.CreateRoutineTaskRequest) (*models.RoutineTaskWithStudents, error) {
	if !req.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown task type")
	}
	if !req.Frequency.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown frequency")
	}
	if req.Frequency == models.FrequencyWeekly && len(req.Weekdays) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "weekly templates need at least one weekday")
	}
	for _, d := range req.Weekdays {
		if d < 0 || d > 6 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "weekdays must be between 0 and 6")
		}
	}

	existing, err := s.routines.FindByTeacherAndName(ctx, teacherID, req.Name)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "lookup routine task")
	}
	if existing != nil {
		return s.merge(ctx, existing, req)
	}

	routine := &models.RoutineTask{
		TeacherID:    teacherID,
		Name:         req.Name,
		Type:         req.Type,
		SubjectID:    req.SubjectID,
		ResourceName: req.ResourceName,
		TimeOfDay:    req.TimeOfDay,
		Frequency:    req.Frequency,
		Weekdays:     dedupeWeekdays(req.Weekdays),
		IsActive:     true,
	}
	if err := s.routines.Create(ctx, routine, req.StudentIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create routine task")
	}

	s.logger.Info("routine task created",
		zap.String("routine_id", routine.ID),
		zap.String("teacher_id", teacherID),
		zap.Int("students", len(req.StudentIDs)))
	return &models.RoutineTaskWithStudents{RoutineTask: *routine, StudentIDs: sortedCopy(req.StudentIDs)}, nil
}

// Get returns a teacher's template with its roster.
func (s *RoutineTaskService) Get(ctx context.Context, teacherID, id string) (*models.RoutineTaskWithStudents, error) {
	return s.findOwned(ctx, teacherID, id)
}

// List returns all of a teacher's templates.
func (s *RoutineTaskService) List(ctx context.Context, teacherID string) ([]models.RoutineTaskWithStudents, error) {
	routines, err := s.routines.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list routine tasks")
	}
	return routines, nil
}

// Update edits a template's fields and, when student ids are provided,
// replaces its roster.
func (s *RoutineTaskService) Update(ctx context.Context, teacherID, id string, req models.UpdateRoutineTaskRequest, studentIDs []string) (*models.RoutineTaskWithStudents, error) {
	existing, err := s.findOwned(ctx, teacherID, id)
	if err != nil {
		return nil, err
	}

	routine := existing.RoutineTask
	if req.Name != nil {
		routine.Name = *req.Name
	}
	if req.Type != nil {
		if !req.Type.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown task type")
		}
		routine.Type = *req.Type
	}
	if req.SubjectID != nil {
		routine.SubjectID = req.SubjectID
	}
	if req.ResourceName != nil {
		routine.ResourceName = *req.ResourceName
	}
	if req.TimeOfDay != nil {
		routine.TimeOfDay = *req.TimeOfDay
	}
	if req.Frequency != nil {
		if !req.Frequency.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown frequency")
		}
		routine.Frequency = *req.Frequency
	}
	if req.Weekdays != nil {
		routine.Weekdays = dedupeWeekdays(req.Weekdays)
	}
	if req.IsActive != nil {
		routine.IsActive = *req.IsActive
	}
	if routine.Frequency == models.FrequencyWeekly && len(routine.Weekdays) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "weekly templates need at least one weekday")
	}

	if err := s.routines.Update(ctx, &routine); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "update routine task")
	}

	roster := existing.StudentIDs
	if studentIDs != nil {
		if err := s.routines.SetStudents(ctx, id, studentIDs); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "set roster")
		}
		roster = sortedCopy(studentIDs)
	}
	return &models.RoutineTaskWithStudents{RoutineTask: routine, StudentIDs: roster}, nil
}

// Deactivate stops a template from producing instances. Already generated
// task instances are untouched.
func (s *RoutineTaskService) Deactivate(ctx context.Context, teacherID, id string) error {
	if _, err := s.findOwned(ctx, teacherID, id); err != nil {
		return err
	}
	if err := s.routines.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "deactivate routine task")
	}
	return nil
}

func (s *RoutineTaskService) merge(ctx context.Context, existing *models.RoutineTaskWithStudents, req models.CreateRoutineTaskRequest) (*models.RoutineTaskWithStudents, error) {
	routine := existing.RoutineTask
	routine.Weekdays = dedupeWeekdays(append(routine.Weekdays, req.Weekdays...))
	routine.IsActive = true
	if err := s.routines.Update(ctx, &routine); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "merge routine task")
	}

	roster := unionStrings(existing.StudentIDs, req.StudentIDs)
	if len(roster) != len(existing.StudentIDs) {
		if err := s.routines.SetStudents(ctx, routine.ID, roster); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "merge roster")
		}
	}

	s.logger.Info("routine task merged",
		zap.String("routine_id", routine.ID),
		zap.Int64s("weekdays", routine.Weekdays))
	return &models.RoutineTaskWithStudents{RoutineTask: routine, StudentIDs: roster}, nil
}

func (s *RoutineTaskService) findOwned(ctx context.Context, teacherID, id string) (*models.RoutineTaskWithStudents, error) {
	routine, err := s.routines.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "routine task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load routine task")
	}
	if routine.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "routine task not found")
	}
	return routine, nil
}

func dedupeWeekdays(days []int64) []int64 {
	seen := make(map[int64]struct{}, len(days))
	result := make([]int64, 0, len(days))
	for _, d := range days {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	result := make([]string, 0, len(a)+len(b))
	for _, lists := range [][]string{a, b} {
		for _, v := range lists {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			result = append(result, v)
		}
	}
	sort.Strings(result)
	return result
}

func sortedCopy(values []string) []string {
	result := append([]string(nil), values...)
	sort.Strings(result)
	return result
}
