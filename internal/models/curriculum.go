package models

import "time"

// Class is a grade level grouping subjects.
type Class struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	GradeLevel int       `db:"grade_level" json:"grade_level"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Subject belongs to a class; names are unique within the class.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	Name      string    `db:"name" json:"name"`
	Position  int       `db:"position" json:"position"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Topic is the ordered unit of progress tracking within a subject.
type Topic struct {
	ID        string    `db:"id" json:"id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	Name      string    `db:"name" json:"name"`
	Position  int       `db:"position" json:"position"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AssignmentStatus is the aggregate state of a student's subject assignment.
// It is always derived from the per-topic progress rows, never stored.
type AssignmentStatus string

const (
	AssignmentAssigned   AssignmentStatus = "assigned"
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentCompleted  AssignmentStatus = "completed"
)

// DeriveAssignmentStatus computes the aggregate subject status from topic
// progress counts.
func DeriveAssignmentStatus(completedTopics, totalTopics int) AssignmentStatus {
	switch {
	case totalTopics > 0 && completedTopics >= totalTopics:
		return AssignmentCompleted
	case completedTopics > 0:
		return AssignmentInProgress
	default:
		return AssignmentAssigned
	}
}

// StudentSubject links a student to an assigned subject.
type StudentSubject struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	SubjectID  string    `db:"subject_id" json:"subject_id"`
	AssignedAt time.Time `db:"assigned_at" json:"assigned_at"`
}

// StudentSubjectDetail carries the assignment together with topic counts and
// the derived status.
type StudentSubjectDetail struct {
	StudentSubject
	SubjectName     string           `db:"subject_name" json:"subject_name"`
	CompletedTopics int              `db:"completed_topics" json:"completed_topics"`
	TotalTopics     int              `db:"total_topics" json:"total_topics"`
	Status          AssignmentStatus `json:"status"`
}

// ProgressStatus is the per-topic progress state.
type ProgressStatus string

const (
	ProgressPending   ProgressStatus = "pending"
	ProgressCompleted ProgressStatus = "completed"
)

// StudentTopicProgress is one row per (student, topic); the leaf of the
// progress tree. Everything above it is derived.
type StudentTopicProgress struct {
	ID          string         `db:"id" json:"id"`
	StudentID   string         `db:"student_id" json:"student_id"`
	TopicID     string         `db:"topic_id" json:"topic_id"`
	Status      ProgressStatus `db:"status" json:"status"`
	CompletedAt *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}
