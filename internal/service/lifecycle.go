package service

import (
	"time"

	"github.com/edutrack-io/kocluk-api/internal/models"
)

// ClassifyTask derives a task's lifecycle status from its date window and
// completion timestamp. Status is never persisted; the window and the
// completion timestamp are the only durable facts, so every read recomputes.
//
// A task completed after its end window is still classified completed;
// callers that care about lateness compare the completion timestamp to the
// window themselves (the completion flow surfaces this as is_overdue).
func ClassifyTask(endAt time.Time, completedAt *time.Time, now time.Time) models.TaskStatus {
	if completedAt != nil {
		return models.TaskStatusCompleted
	}
	if now.After(endAt) {
		return models.TaskStatusOverdue
	}
	return models.TaskStatusPending
}

// AttachStatus decorates tasks with their derived status as of now.
func AttachStatus(tasks []models.Task, now time.Time) []models.TaskWithStatus {
	result := make([]models.TaskWithStatus, 0, len(tasks))
	for _, task := range tasks {
		result = append(result, models.TaskWithStatus{
			Task:   task,
			Status: ClassifyTask(task.EndAt, task.CompletedAt, now),
		})
	}
	return result
}
