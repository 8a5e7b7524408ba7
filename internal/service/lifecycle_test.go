package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/edutrack-io/kocluk-api/internal/models"
)

func TestClassifyTaskPendingUntilDeadline(t *testing.T) {
	endAt := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)

	assert.Equal(t, models.TaskStatusPending, ClassifyTask(endAt, nil, endAt.Add(-48*time.Hour)))
	assert.Equal(t, models.TaskStatusPending, ClassifyTask(endAt, nil, endAt.Add(-time.Second)))
	// now == endAt is still pending; only strictly past the window is overdue.
	assert.Equal(t, models.TaskStatusPending, ClassifyTask(endAt, nil, endAt))
}

func TestClassifyTaskOverduePastDeadline(t *testing.T) {
	endAt := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)

	assert.Equal(t, models.TaskStatusOverdue, ClassifyTask(endAt, nil, endAt.Add(time.Second)))
	assert.Equal(t, models.TaskStatusOverdue, ClassifyTask(endAt, nil, endAt.Add(30*24*time.Hour)))
}

func TestClassifyTaskCompletedRegardlessOfNow(t *testing.T) {
	endAt := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)

	onTime := endAt.Add(-time.Hour)
	late := endAt.Add(72 * time.Hour)

	for _, completedAt := range []time.Time{onTime, late} {
		completedAt := completedAt
		assert.Equal(t, models.TaskStatusCompleted, ClassifyTask(endAt, &completedAt, endAt.Add(-24*time.Hour)))
		assert.Equal(t, models.TaskStatusCompleted, ClassifyTask(endAt, &completedAt, endAt.Add(24*time.Hour)))
	}
}

func TestAttachStatus(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	completed := now.Add(-time.Hour)

	tasks := []models.Task{
		{ID: "t1", EndAt: now.Add(time.Hour)},
		{ID: "t2", EndAt: now.Add(-time.Hour)},
		{ID: "t3", EndAt: now.Add(-time.Hour), CompletedAt: &completed},
	}

	decorated := AttachStatus(tasks, now)
	assert.Equal(t, models.TaskStatusPending, decorated[0].Status)
	assert.Equal(t, models.TaskStatusOverdue, decorated[1].Status)
	assert.Equal(t, models.TaskStatusCompleted, decorated[2].Status)
}
