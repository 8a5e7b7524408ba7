package models

import (
	"time"

	"github.com/lib/pq"
)

// Frequency enumerates how often a routine task recurs.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Valid reports whether the frequency is a known value.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// RoutineTask is a recurrence template the expander turns into concrete task
// instances. One row holds the full weekday set (0=Sunday..6=Saturday); the
// legacy one-row-per-weekday shape is merged by name on input and never
// written back.
type RoutineTask struct {
	ID           string        `db:"id" json:"id"`
	TeacherID    string        `db:"teacher_id" json:"teacher_id"`
	Name         string        `db:"name" json:"name"`
	Type         TaskType      `db:"task_type" json:"task_type"`
	SubjectID    *string       `db:"subject_id" json:"subject_id,omitempty"`
	ResourceName string        `db:"resource_name" json:"resource_name"`
	TimeOfDay    string        `db:"time_of_day" json:"time_of_day"`
	Frequency    Frequency     `db:"frequency" json:"frequency"`
	Weekdays     pq.Int64Array `db:"weekdays" json:"weekdays"`
	IsActive     bool          `db:"is_active" json:"is_active"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// MatchesDate reports whether the template should produce an instance on the
// given calendar date. Daily templates match every day, weekly templates match
// their weekday set, monthly templates match the day-of-month the template
// was created on, clamped to the last day of shorter months so a template
// anchored on the 31st still fires in February.
func (r *RoutineTask) MatchesDate(date time.Time) bool {
	switch r.Frequency {
	case FrequencyDaily:
		return true
	case FrequencyWeekly:
		wd := int64(date.Weekday())
		for _, d := range r.Weekdays {
			if d == wd {
				return true
			}
		}
		return false
	case FrequencyMonthly:
		anchor := r.CreatedAt.Day()
		if last := lastDayOfMonth(date); anchor > last {
			anchor = last
		}
		return date.Day() == anchor
	}
	return false
}

func lastDayOfMonth(date time.Time) int {
	return time.Date(date.Year(), date.Month()+1, 0, 0, 0, 0, 0, date.Location()).Day()
}

// CreateRoutineTaskRequest is the payload for creating a template. The legacy
// client sends one request per weekday under the same name; those merge into
// a single row with the union of weekdays and roster.
type CreateRoutineTaskRequest struct {
	Name         string    `json:"name" validate:"required"`
	Type         TaskType  `json:"task_type" validate:"required"`
	SubjectID    *string   `json:"subject_id" validate:"omitempty,uuid"`
	ResourceName string    `json:"resource_name"`
	TimeOfDay    string    `json:"time_of_day"`
	Frequency    Frequency `json:"frequency" validate:"required"`
	Weekdays     []int64   `json:"weekdays" validate:"omitempty,dive,min=0,max=6"`
	StudentIDs   []string  `json:"student_ids" validate:"omitempty,dive,uuid"`
}

// UpdateRoutineTaskRequest is the payload for editing a template.
type UpdateRoutineTaskRequest struct {
	Name         *string    `json:"name"`
	Type         *TaskType  `json:"task_type"`
	SubjectID    *string    `json:"subject_id" validate:"omitempty,uuid"`
	ResourceName *string    `json:"resource_name"`
	TimeOfDay    *string    `json:"time_of_day"`
	Frequency    *Frequency `json:"frequency"`
	Weekdays     []int64    `json:"weekdays" validate:"omitempty,dive,min=0,max=6"`
	StudentIDs   []string   `json:"student_ids" validate:"omitempty,dive,uuid"`
	IsActive     *bool      `json:"is_active"`
}

// RoutineTaskWithStudents carries the template together with its roster.
type RoutineTaskWithStudents struct {
	RoutineTask
	StudentIDs []string `json:"student_ids"`
}
