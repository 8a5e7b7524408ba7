package models

import "time"

// TaskType enumerates the kinds of work a teacher can assign. The values are
// the platform's canonical Turkish identifiers and are stored as-is.
type TaskType string

const (
	// TaskTypeLecture is topic study from a book or handout (konu anlatımı).
	TaskTypeLecture TaskType = "konu_anlatimi"
	// TaskTypeLectureVideo is topic study from recorded video.
	TaskTypeLectureVideo TaskType = "konu_anlatimi_video"
	// TaskTypeQuestionSolving is a question-solving drill with a declared count.
	TaskTypeQuestionSolving TaskType = "soru_cozumu"
	// TaskTypePracticeExam is a full practice exam (deneme).
	TaskTypePracticeExam TaskType = "deneme"
	// TaskTypeOther covers free-form assignments.
	TaskTypeOther TaskType = "diger"
)

// Valid reports whether the type is one of the known kinds.
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeLecture, TaskTypeLectureVideo, TaskTypeQuestionSolving, TaskTypePracticeExam, TaskTypeOther:
		return true
	}
	return false
}

// Scored reports whether tasks of this type carry a numeric net score.
func (t TaskType) Scored() bool {
	return t == TaskTypeQuestionSolving || t == TaskTypePracticeExam
}

// TaskStatus is the derived lifecycle state of a task. It is never stored;
// the only durable facts are the date window and the completion timestamp.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusOverdue   TaskStatus = "overdue"
)

// Task is a single unit of work assigned to one student by one teacher.
// Completion fields are populated exactly once and are immutable afterwards:
// either all of CompletedAt/CompletionNote/counts/NetScore are set, or none.
type Task struct {
	ID           string  `db:"id" json:"id"`
	TeacherID    string  `db:"teacher_id" json:"teacher_id"`
	StudentID    string  `db:"student_id" json:"student_id"`
	SubjectID    *string `db:"subject_id" json:"subject_id,omitempty"`
	Description  string  `db:"description" json:"description"`
	ResourceName string  `db:"resource_name" json:"resource_name"`
	Type         TaskType `db:"task_type" json:"task_type"`

	StartAt time.Time `db:"start_at" json:"start_at"`
	EndAt   time.Time `db:"end_at" json:"end_at"`

	PageStart  *int `db:"page_start" json:"page_start,omitempty"`
	PageEnd    *int `db:"page_end" json:"page_end,omitempty"`
	VideoCount *int `db:"video_count" json:"video_count,omitempty"`
	TestCount  *int `db:"test_count" json:"test_count,omitempty"`

	// RoutineName and ScheduledDate are set only on instances produced by the
	// recurrence expander; together with StudentID they form the dedup key.
	RoutineName   *string    `db:"routine_name" json:"routine_name,omitempty"`
	ScheduledDate *time.Time `db:"scheduled_date" json:"scheduled_date,omitempty"`

	CompletedAt    *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CompletionNote *string    `db:"completion_note" json:"completion_note,omitempty"`
	CorrectAnswers *int       `db:"correct_answers" json:"correct_answers,omitempty"`
	WrongAnswers   *int       `db:"wrong_answers" json:"wrong_answers,omitempty"`
	BlankAnswers   *int       `db:"blank_answers" json:"blank_answers,omitempty"`
	NetScore       *float64   `db:"net_score" json:"net_score,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsCompleted reports whether the completion fields have been set.
func (t *Task) IsCompleted() bool {
	return t.CompletedAt != nil
}

// TaskWithStatus decorates a task with its derived lifecycle status for
// list and detail responses.
type TaskWithStatus struct {
	Task
	Status TaskStatus `json:"status"`
}

// CreateTaskRequest is the payload for teacher-authored task creation.
type CreateTaskRequest struct {
	StudentID    string    `json:"student_id" validate:"required,uuid"`
	SubjectID    *string   `json:"subject_id" validate:"omitempty,uuid"`
	Description  string    `json:"description" validate:"required"`
	ResourceName string    `json:"resource_name"`
	Type         TaskType  `json:"task_type" validate:"required"`
	StartAt      time.Time `json:"start_at" validate:"required"`
	EndAt        time.Time `json:"end_at" validate:"required"`
	PageStart    *int      `json:"page_start" validate:"omitempty,min=0"`
	PageEnd      *int      `json:"page_end" validate:"omitempty,min=0"`
	VideoCount   *int      `json:"video_count" validate:"omitempty,min=0"`
	TestCount    *int      `json:"test_count" validate:"omitempty,min=1"`
}

// UpdateTaskRequest is the payload for editing an uncompleted task.
type UpdateTaskRequest struct {
	SubjectID    *string    `json:"subject_id" validate:"omitempty,uuid"`
	Description  *string    `json:"description"`
	ResourceName *string    `json:"resource_name"`
	Type         *TaskType  `json:"task_type"`
	StartAt      *time.Time `json:"start_at"`
	EndAt        *time.Time `json:"end_at"`
	PageStart    *int       `json:"page_start" validate:"omitempty,min=0"`
	PageEnd      *int       `json:"page_end" validate:"omitempty,min=0"`
	VideoCount   *int       `json:"video_count" validate:"omitempty,min=0"`
	TestCount    *int       `json:"test_count" validate:"omitempty,min=1"`
}

// CompleteTaskRequest is a student's completion submission. Answer counts are
// required for scored types and ignored otherwise.
type CompleteTaskRequest struct {
	CompletionNote *string `json:"completion_note"`
	CorrectAnswers *int    `json:"correct_answers" validate:"omitempty,min=0"`
	WrongAnswers   *int    `json:"wrong_answers" validate:"omitempty,min=0"`
	BlankAnswers   *int    `json:"blank_answers" validate:"omitempty,min=0"`
}

// CompletionResult is returned by the completion flow: the updated task plus
// the lateness signal the caller uses to offer the extension request flow.
type CompletionResult struct {
	Task                TaskWithStatus `json:"task"`
	IsOverdue           bool           `json:"is_overdue"`
	CanRequestExtension bool           `json:"can_request_extension"`
}

// TaskFilter captures filtering criteria for task listings.
type TaskFilter struct {
	TeacherID string
	StudentID string
	SubjectID string
	Type      TaskType
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
