package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edutrack-io/kocluk-api/internal/models"
	appErrors "github.com/edutrack-io/kocluk-api/pkg/errors"
)

type fakeExtensionStore struct {
	requests map[string]*models.ExtensionRequest
	byTask   map[string]bool
	created  *models.ExtensionRequest
}

func (f *fakeExtensionStore) Create(_ context.Context, req *models.ExtensionRequest) error {
	req.ID = "ext-1"
	req.Status = models.ExtensionPending
	req.CreatedAt = time.Now().UTC()
	f.created = req
	return nil
}

func (f *fakeExtensionStore) FindByID(_ context.Context, id string) (*models.ExtensionRequest, error) {
	req, ok := f.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *req
	return &copied, nil
}

func (f *fakeExtensionStore) ExistsForTask(_ context.Context, taskID string) (bool, error) {
	return f.byTask[taskID], nil
}

func (f *fakeExtensionStore) Decide(_ context.Context, id string, status models.ExtensionStatus, approvedDays *int, decidedAt time.Time) error {
	req := f.requests[id]
	req.Status = status
	req.ApprovedDays = approvedDays
	req.DecidedAt = &decidedAt
	return nil
}

func (f *fakeExtensionStore) ListByTeacher(_ context.Context, _ string) ([]models.ExtensionRequest, error) {
	out := make([]models.ExtensionRequest, 0, len(f.requests))
	for _, req := range f.requests {
		out = append(out, *req)
	}
	return out, nil
}

type fakeExtensionTaskStore struct {
	tasks    map[string]*models.Task
	extended map[string]int
}

func (f *fakeExtensionTaskStore) FindByID(_ context.Context, id string) (*models.Task, error) {
	task, ok := f.tasks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *task
	return &copied, nil
}

func (f *fakeExtensionTaskStore) ExtendWindow(_ context.Context, id string, days int) error {
	if f.extended == nil {
		f.extended = map[string]int{}
	}
	f.extended[id] = days
	return nil
}

type fakeStudentInvalidator struct {
	invalidated []string
}

func (f *fakeStudentInvalidator) InvalidateStudent(_ context.Context, studentID string) error {
	f.invalidated = append(f.invalidated, studentID)
	return nil
}

func newExtensionFixture(tasks map[string]*models.Task) (*ExtensionService, *fakeExtensionStore, *fakeExtensionTaskStore, *fakeStudentInvalidator) {
	extensions := &fakeExtensionStore{
		requests: map[string]*models.ExtensionRequest{},
		byTask:   map[string]bool{},
	}
	taskStore := &fakeExtensionTaskStore{tasks: tasks}
	invalidator := &fakeStudentInvalidator{}
	svc := NewExtensionService(extensions, taskStore, invalidator, zap.NewNop())
	return svc, extensions, taskStore, invalidator
}

func extensionTask(id string, endAt time.Time, completedAt *time.Time) *models.Task {
	return &models.Task{
		ID:          id,
		TeacherID:   "teacher-1",
		StudentID:   "student-1",
		Description: "Paragraf sorusu",
		EndAt:       endAt,
		CompletedAt: completedAt,
	}
}

func TestExtensionRequestOnOpenTask(t *testing.T) {
	endAt := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)
	svc, extensions, _, _ := newExtensionFixture(map[string]*models.Task{
		"task-1": extensionTask("task-1", endAt, nil),
	})

	req, err := svc.Request(context.Background(), "student-1", "task-1",
		models.CreateExtensionRequest{RequestedDays: 3, Reason: "hastaydım"})
	require.NoError(t, err)
	assert.Equal(t, models.ExtensionPending, req.Status)
	assert.Equal(t, 3, req.RequestedDays)
	require.NotNil(t, extensions.created)
	assert.Equal(t, "task-1", extensions.created.TaskID)
}

func TestExtensionRequestAfterLateCompletion(t *testing.T) {
	// A task finished past its deadline keeps the extension door open, the
	// same contract the completion response advertises.
	endAt := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)
	completedAt := endAt.Add(26 * time.Hour)
	svc, extensions, _, _ := newExtensionFixture(map[string]*models.Task{
		"task-1": extensionTask("task-1", endAt, &completedAt),
	})

	req, err := svc.Request(context.Background(), "student-1", "task-1",
		models.CreateExtensionRequest{RequestedDays: 2})
	require.NoError(t, err)
	assert.Equal(t, models.ExtensionPending, req.Status)
	assert.NotNil(t, extensions.created)
}

func TestExtensionRequestRejectsOnTimeCompletion(t *testing.T) {
	endAt := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)
	completedAt := endAt.Add(-2 * time.Hour)
	svc, _, _, _ := newExtensionFixture(map[string]*models.Task{
		"task-1": extensionTask("task-1", endAt, &completedAt),
	})

	_, err := svc.Request(context.Background(), "student-1", "task-1",
		models.CreateExtensionRequest{RequestedDays: 2})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestExtensionRequestRejectsDuplicate(t *testing.T) {
	endAt := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)
	svc, extensions, _, _ := newExtensionFixture(map[string]*models.Task{
		"task-1": extensionTask("task-1", endAt, nil),
	})
	extensions.byTask["task-1"] = true

	_, err := svc.Request(context.Background(), "student-1", "task-1",
		models.CreateExtensionRequest{RequestedDays: 2})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestExtensionRequestHidesForeignTask(t *testing.T) {
	endAt := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)
	svc, _, _, _ := newExtensionFixture(map[string]*models.Task{
		"task-1": extensionTask("task-1", endAt, nil),
	})

	_, err := svc.Request(context.Background(), "student-2", "task-1",
		models.CreateExtensionRequest{RequestedDays: 2})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExtensionDecideApproveDefaultsToRequestedDays(t *testing.T) {
	endAt := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)
	svc, extensions, taskStore, invalidator := newExtensionFixture(map[string]*models.Task{
		"task-1": extensionTask("task-1", endAt, nil),
	})
	extensions.requests["ext-1"] = &models.ExtensionRequest{
		ID:            "ext-1",
		TaskID:        "task-1",
		StudentID:     "student-1",
		RequestedDays: 5,
		Status:        models.ExtensionPending,
	}

	decided, err := svc.Decide(context.Background(), "teacher-1", "ext-1",
		models.DecideExtensionRequest{Approve: true})
	require.NoError(t, err)
	assert.Equal(t, models.ExtensionApproved, decided.Status)
	require.NotNil(t, decided.ApprovedDays)
	assert.Equal(t, 5, *decided.ApprovedDays)
	require.NotNil(t, decided.DecidedAt)
	assert.Equal(t, 5, taskStore.extended["task-1"])
	assert.Equal(t, []string{"student-1"}, invalidator.invalidated)
}

func TestExtensionDecideApproveWithOverride(t *testing.T) {
	endAt := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)
	svc, extensions, taskStore, _ := newExtensionFixture(map[string]*models.Task{
		"task-1": extensionTask("task-1", endAt, nil),
	})
	extensions.requests["ext-1"] = &models.ExtensionRequest{
		ID:            "ext-1",
		TaskID:        "task-1",
		StudentID:     "student-1",
		RequestedDays: 5,
		Status:        models.ExtensionPending,
	}

	override := 2
	decided, err := svc.Decide(context.Background(), "teacher-1", "ext-1",
		models.DecideExtensionRequest{Approve: true, ApprovedDays: &override})
	require.NoError(t, err)
	require.NotNil(t, decided.ApprovedDays)
	assert.Equal(t, 2, *decided.ApprovedDays)
	assert.Equal(t, 2, taskStore.extended["task-1"])
}

func TestExtensionDecideReject(t *testing.T) {
	endAt := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)
	svc, extensions, taskStore, invalidator := newExtensionFixture(map[string]*models.Task{
		"task-1": extensionTask("task-1", endAt, nil),
	})
	extensions.requests["ext-1"] = &models.ExtensionRequest{
		ID:            "ext-1",
		TaskID:        "task-1",
		StudentID:     "student-1",
		RequestedDays: 5,
		Status:        models.ExtensionPending,
	}

	decided, err := svc.Decide(context.Background(), "teacher-1", "ext-1",
		models.DecideExtensionRequest{Approve: false})
	require.NoError(t, err)
	assert.Equal(t, models.ExtensionRejected, decided.Status)
	assert.Nil(t, decided.ApprovedDays)
	assert.Empty(t, taskStore.extended)
	assert.Empty(t, invalidator.invalidated)
}

func TestExtensionDecideAlreadyDecided(t *testing.T) {
	endAt := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)
	svc, extensions, _, _ := newExtensionFixture(map[string]*models.Task{
		"task-1": extensionTask("task-1", endAt, nil),
	})
	extensions.requests["ext-1"] = &models.ExtensionRequest{
		ID:            "ext-1",
		TaskID:        "task-1",
		StudentID:     "student-1",
		RequestedDays: 5,
		Status:        models.ExtensionRejected,
	}

	_, err := svc.Decide(context.Background(), "teacher-1", "ext-1",
		models.DecideExtensionRequest{Approve: true})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestExtensionDecideHidesForeignRequest(t *testing.T) {
	endAt := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)
	svc, extensions, _, _ := newExtensionFixture(map[string]*models.Task{
		"task-1": extensionTask("task-1", endAt, nil),
	})
	extensions.requests["ext-1"] = &models.ExtensionRequest{
		ID:            "ext-1",
		TaskID:        "task-1",
		StudentID:     "student-1",
		RequestedDays: 5,
		Status:        models.ExtensionPending,
	}

	_, err := svc.Decide(context.Background(), "teacher-2", "ext-1",
		models.DecideExtensionRequest{Approve: true})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
