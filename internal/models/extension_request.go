package models

import "time"

// ExtensionStatus tracks the teacher's decision on an extension request.
type ExtensionStatus string

const (
	ExtensionPending  ExtensionStatus = "pending"
	ExtensionApproved ExtensionStatus = "approved"
	ExtensionRejected ExtensionStatus = "rejected"
)

// CreateExtensionRequest is a student's payload asking for more time.
type CreateExtensionRequest struct {
	RequestedDays int    `json:"requested_days" validate:"required,min=1,max=30"`
	Reason        string `json:"reason"`
}

// DecideExtensionRequest is the teacher's decision payload. ApprovedDays
// defaults to the requested days when approving.
type DecideExtensionRequest struct {
	Approve      bool `json:"approve"`
	ApprovedDays *int `json:"approved_days" validate:"omitempty,min=1,max=30"`
}

// ExtensionRequest is a student's request for more time on a specific task.
// At most one request exists per task.
type ExtensionRequest struct {
	ID            string          `db:"id" json:"id"`
	TaskID        string          `db:"task_id" json:"task_id"`
	StudentID     string          `db:"student_id" json:"student_id"`
	RequestedDays int             `db:"requested_days" json:"requested_days"`
	Reason        string          `db:"reason" json:"reason"`
	Status        ExtensionStatus `db:"status" json:"status"`
	ApprovedDays  *int            `db:"approved_days" json:"approved_days,omitempty"`
	DecidedAt     *time.Time      `db:"decided_at" json:"decided_at,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}
