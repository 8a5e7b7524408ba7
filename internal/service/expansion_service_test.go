package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edutrack-io/kocluk-api/internal/models"
	appErrors "github.com/edutrack-io/kocluk-api/pkg/errors"
)

type fakeRoutineStore struct {
	routines []models.RoutineTask
}

func (f *fakeRoutineStore) ListActiveForStudent(_ context.Context, _ string) ([]models.RoutineTask, error) {
	return f.routines, nil
}

type fakeTaskStore struct {
	generated []models.Task
	inserted  int
}

func (f *fakeTaskStore) InsertGenerated(_ context.Context, tasks []models.Task) (int, error) {
	f.generated = tasks
	if f.inserted >= 0 {
		return f.inserted, nil
	}
	return len(tasks), nil
}

type fakeStudentStore struct {
	active bool
}

func (f *fakeStudentStore) FindByID(_ context.Context, id string) (*models.StudentDetail, error) {
	detail := &models.StudentDetail{Active: f.active}
	detail.ID = id
	detail.UserID = "user-" + id
	return detail, nil
}

func newExpansionFixture(routines []models.RoutineTask, active bool) (*ExpansionService, *fakeTaskStore) {
	tasks := &fakeTaskStore{inserted: -1}
	svc := NewExpansionService(
		&fakeRoutineStore{routines: routines},
		tasks,
		&fakeStudentStore{active: active},
		nil,
		31,
		zap.NewNop(),
	)
	return svc, tasks
}

func TestEnsureExpandedWeeklyTemplate(t *testing.T) {
	// Monday and Wednesday only.
	routine := models.RoutineTask{
		ID:           "rt-1",
		TeacherID:    "teacher-1",
		Name:         "Paragraf sorusu",
		Type:         models.TaskTypeQuestionSolving,
		ResourceName: "Soru bankası",
		Frequency:    models.FrequencyWeekly,
		Weekdays:     []int64{1, 3},
		IsActive:     true,
	}
	svc, tasks := newExpansionFixture([]models.RoutineTask{routine}, true)

	// 2025-03-10 is a Monday.
	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC)

	inserted, err := svc.EnsureExpanded(context.Background(), "student-1", from, to)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	require.Len(t, tasks.generated, 2)

	mon, wed := tasks.generated[0], tasks.generated[1]
	assert.Equal(t, from, mon.StartAt)
	assert.Equal(t, from.Add(23*time.Hour+59*time.Minute), mon.EndAt)
	assert.Equal(t, time.Wednesday, wed.StartAt.Weekday())
	require.NotNil(t, mon.RoutineName)
	assert.Equal(t, "Paragraf sorusu", *mon.RoutineName)
	require.NotNil(t, mon.ScheduledDate)
	assert.Equal(t, from, *mon.ScheduledDate)
	assert.Equal(t, "Paragraf sorusu", mon.Description)
	assert.Equal(t, "Soru bankası", mon.ResourceName)
	assert.Equal(t, models.TaskTypeQuestionSolving, mon.Type)
	assert.Nil(t, mon.CompletedAt)
}

func TestEnsureExpandedDailyTemplate(t *testing.T) {
	routine := models.RoutineTask{
		ID:        "rt-1",
		TeacherID: "teacher-1",
		Name:      "Kitap okuma",
		Type:      models.TaskTypeOther,
		Frequency: models.FrequencyDaily,
		IsActive:  true,
	}
	svc, tasks := newExpansionFixture([]models.RoutineTask{routine}, true)

	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	inserted, err := svc.EnsureExpanded(context.Background(), "student-1", from, from.AddDate(0, 0, 6))
	require.NoError(t, err)
	assert.Equal(t, 7, inserted)
	assert.Len(t, tasks.generated, 7)
}

func TestEnsureExpandedReportsStoreCount(t *testing.T) {
	// The store skips triples that already exist; the service reports the
	// store's count, not how many candidates it produced.
	routine := models.RoutineTask{
		ID:        "rt-1",
		TeacherID: "teacher-1",
		Name:      "Kitap okuma",
		Type:      models.TaskTypeOther,
		Frequency: models.FrequencyDaily,
		IsActive:  true,
	}
	svc, tasks := newExpansionFixture([]models.RoutineTask{routine}, true)
	tasks.inserted = 3

	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	inserted, err := svc.EnsureExpanded(context.Background(), "student-1", from, from.AddDate(0, 0, 6))
	require.NoError(t, err)
	assert.Equal(t, 3, inserted)
	assert.Len(t, tasks.generated, 7)
}

func TestEnsureExpandedInactiveStudentProducesNothing(t *testing.T) {
	routine := models.RoutineTask{
		ID:        "rt-1",
		Name:      "Kitap okuma",
		Frequency: models.FrequencyDaily,
		IsActive:  true,
	}
	svc, tasks := newExpansionFixture([]models.RoutineTask{routine}, false)

	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	inserted, err := svc.EnsureExpanded(context.Background(), "student-1", from, from)
	require.NoError(t, err)
	assert.Zero(t, inserted)
	assert.Empty(t, tasks.generated)
}

func TestEnsureExpandedRejectsExcessiveHorizon(t *testing.T) {
	svc, _ := newExpansionFixture(nil, true)

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.EnsureExpanded(context.Background(), "student-1", from, from.AddDate(0, 0, 45))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnsureExpandedRejectsInvertedRange(t *testing.T) {
	svc, _ := newExpansionFixture(nil, true)

	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	_, err := svc.EnsureExpanded(context.Background(), "student-1", from, from.AddDate(0, 0, -1))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExpandForDateMonthlyTemplate(t *testing.T) {
	created := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	routine := models.RoutineTask{
		ID:        "rt-1",
		TeacherID: "teacher-1",
		Name:      "Aylık deneme",
		Type:      models.TaskTypePracticeExam,
		Frequency: models.FrequencyMonthly,
		IsActive:  true,
		CreatedAt: created,
	}
	svc, tasks := newExpansionFixture([]models.RoutineTask{routine}, true)

	inserted, err := svc.ExpandForDate(context.Background(), "student-1", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	require.Len(t, tasks.generated, 1)

	inserted, err = svc.ExpandForDate(context.Background(), "student-1", time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, inserted)
}
