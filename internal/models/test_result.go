package models

import "time"

// TestResult is an append-only analytics record produced exactly once per
// completed scored task. It intentionally duplicates the task's completion
// numbers: the task row is mutable-once history, this row is the audit trail
// and must survive task and actor deletion. Cascades detach the foreign keys
// instead of deleting the row; the denormalized names keep it readable.
type TestResult struct {
	ID          string    `db:"id" json:"id"`
	StudentID   *string   `db:"student_id" json:"student_id,omitempty"`
	TeacherID   *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	TaskID      *string   `db:"task_id" json:"task_id,omitempty"`
	StudentName string    `db:"student_name" json:"student_name"`
	SubjectName string    `db:"subject_name" json:"subject_name"`
	Correct     int       `db:"correct_answers" json:"correct_answers"`
	Wrong       int       `db:"wrong_answers" json:"wrong_answers"`
	Blank       int       `db:"blank_answers" json:"blank_answers"`
	NetScore    float64   `db:"net_score" json:"net_score"`
	TakenAt     time.Time `db:"taken_at" json:"taken_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
