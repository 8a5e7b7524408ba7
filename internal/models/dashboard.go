package models

import "time"

// StudentDashboard is the cached daily summary served to students and their
// teacher. Tasks carry derived statuses; the snapshot is invalidated whenever
// a completion or expansion writes for the student.
type StudentDashboard struct {
	StudentID       string           `json:"student_id"`
	Date            string           `json:"date"`
	Tasks           []TaskWithStatus `json:"tasks"`
	OverdueCount    int              `json:"overdue_count"`
	CompletedCount  int              `json:"completed_count"`
	AverageNetScore *float64         `json:"average_net_score,omitempty"`
	GeneratedAt     time.Time        `json:"generated_at"`
}
