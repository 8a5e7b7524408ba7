package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edutrack-io/kocluk-api/internal/models"
	appErrors "github.com/edutrack-io/kocluk-api/pkg/errors"
)

type fakeRoutineTaskStore struct {
	byName  map[string]*models.RoutineTaskWithStudents
	created *models.RoutineTask
	updated *models.RoutineTask
	rosters map[string][]string
}

func newFakeRoutineTaskStore() *fakeRoutineTaskStore {
	return &fakeRoutineTaskStore{
		byName:  map[string]*models.RoutineTaskWithStudents{},
		rosters: map[string][]string{},
	}
}

func (f *fakeRoutineTaskStore) Create(_ context.Context, routine *models.RoutineTask, studentIDs []string) error {
	routine.ID = "rt-" + routine.Name
	f.created = routine
	f.rosters[routine.ID] = studentIDs
	return nil
}

func (f *fakeRoutineTaskStore) FindByID(_ context.Context, id string) (*models.RoutineTaskWithStudents, error) {
	for _, routine := range f.byName {
		if routine.ID == id {
			return routine, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRoutineTaskStore) FindByTeacherAndName(_ context.Context, teacherID, name string) (*models.RoutineTaskWithStudents, error) {
	routine, ok := f.byName[name]
	if !ok || routine.TeacherID != teacherID {
		return nil, sql.ErrNoRows
	}
	return routine, nil
}

func (f *fakeRoutineTaskStore) ListByTeacher(_ context.Context, _ string) ([]models.RoutineTaskWithStudents, error) {
	return nil, nil
}

func (f *fakeRoutineTaskStore) Update(_ context.Context, routine *models.RoutineTask) error {
	f.updated = routine
	return nil
}

func (f *fakeRoutineTaskStore) SetStudents(_ context.Context, routineID string, studentIDs []string) error {
	f.rosters[routineID] = studentIDs
	return nil
}

func (f *fakeRoutineTaskStore) Deactivate(_ context.Context, _ string) error { return nil }

func TestCreateRoutineTask(t *testing.T) {
	store := newFakeRoutineTaskStore()
	svc := NewRoutineTaskService(store, zap.NewNop())

	created, err := svc.Create(context.Background(), "teacher-1", models.CreateRoutineTaskRequest{
		Name:       "Paragraf",
		Type:       models.TaskTypeQuestionSolving,
		Frequency:  models.FrequencyWeekly,
		Weekdays:   []int64{3, 1, 3},
		StudentIDs: []string{"s2", "s1"},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, []int64(created.Weekdays))
	assert.True(t, created.IsActive)
	assert.Equal(t, []string{"s1", "s2"}, created.StudentIDs)
	require.NotNil(t, store.created)
}

func TestCreateRoutineTaskMergesLegacyShape(t *testing.T) {
	store := newFakeRoutineTaskStore()
	store.byName["Paragraf"] = &models.RoutineTaskWithStudents{
		RoutineTask: models.RoutineTask{
			ID:        "rt-1",
			TeacherID: "teacher-1",
			Name:      "Paragraf",
			Type:      models.TaskTypeQuestionSolving,
			Frequency: models.FrequencyWeekly,
			Weekdays:  []int64{1},
			IsActive:  true,
		},
		StudentIDs: []string{"s1"},
	}
	svc := NewRoutineTaskService(store, zap.NewNop())

	// Legacy clients send one weekday per call under the same name.
	merged, err := svc.Create(context.Background(), "teacher-1", models.CreateRoutineTaskRequest{
		Name:       "Paragraf",
		Type:       models.TaskTypeQuestionSolving,
		Frequency:  models.FrequencyWeekly,
		Weekdays:   []int64{4},
		StudentIDs: []string{"s1", "s2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "rt-1", merged.ID)
	assert.Equal(t, []int64{1, 4}, []int64(merged.Weekdays))
	assert.Equal(t, []string{"s1", "s2"}, merged.StudentIDs)
	require.NotNil(t, store.updated)
	assert.Nil(t, store.created)
	assert.Equal(t, []string{"s1", "s2"}, store.rosters["rt-1"])
}

func TestCreateRoutineTaskSameNameOtherTeacher(t *testing.T) {
	store := newFakeRoutineTaskStore()
	store.byName["Paragraf"] = &models.RoutineTaskWithStudents{
		RoutineTask: models.RoutineTask{ID: "rt-1", TeacherID: "teacher-1", Name: "Paragraf"},
	}
	svc := NewRoutineTaskService(store, zap.NewNop())

	created, err := svc.Create(context.Background(), "teacher-2", models.CreateRoutineTaskRequest{
		Name:      "Paragraf",
		Type:      models.TaskTypeOther,
		Frequency: models.FrequencyDaily,
	})
	require.NoError(t, err)
	assert.NotEqual(t, "rt-1", created.ID)
	require.NotNil(t, store.created)
}

func TestCreateRoutineTaskValidation(t *testing.T) {
	svc := NewRoutineTaskService(newFakeRoutineTaskStore(), zap.NewNop())

	_, err := svc.Create(context.Background(), "teacher-1", models.CreateRoutineTaskRequest{
		Name: "X", Type: "bogus", Frequency: models.FrequencyDaily,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), "teacher-1", models.CreateRoutineTaskRequest{
		Name: "X", Type: models.TaskTypeOther, Frequency: models.FrequencyWeekly,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), "teacher-1", models.CreateRoutineTaskRequest{
		Name: "X", Type: models.TaskTypeOther, Frequency: models.FrequencyWeekly, Weekdays: []int64{9},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRoutineTaskOwnershipHidden(t *testing.T) {
	store := newFakeRoutineTaskStore()
	store.byName["Paragraf"] = &models.RoutineTaskWithStudents{
		RoutineTask: models.RoutineTask{ID: "rt-1", TeacherID: "teacher-1", Name: "Paragraf"},
	}
	svc := NewRoutineTaskService(store, zap.NewNop())

	_, err := svc.Get(context.Background(), "teacher-2", "rt-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
