package models

import "time"

// ReportFormat enumerates the supported report renderings.
type ReportFormat string

const (
	ReportFormatPDF ReportFormat = "pdf"
	ReportFormatCSV ReportFormat = "csv"
)

// ReportStatus tracks the async generation lifecycle of a coaching report.
type ReportStatus string

const (
	ReportStatusQueued     ReportStatus = "queued"
	ReportStatusProcessing ReportStatus = "processing"
	ReportStatusCompleted  ReportStatus = "completed"
	ReportStatusFailed     ReportStatus = "failed"
)

// CreateReportRequest queues a report over a closed date range.
type CreateReportRequest struct {
	StudentID  string       `json:"student_id" validate:"required,uuid"`
	Format     ReportFormat `json:"format" validate:"required,oneof=pdf csv"`
	RangeStart string       `json:"range_start" validate:"required,datetime=2006-01-02"`
	RangeEnd   string       `json:"range_end" validate:"required,datetime=2006-01-02"`
}

// ReportJob is a queued coaching-report generation request covering a
// student's tasks and test results over a date range.
type ReportJob struct {
	ID            string       `db:"id" json:"id"`
	TeacherID     string       `db:"teacher_id" json:"teacher_id"`
	StudentID     string       `db:"student_id" json:"student_id"`
	Format        ReportFormat `db:"format" json:"format"`
	Status        ReportStatus `db:"status" json:"status"`
	RangeStart    time.Time    `db:"range_start" json:"range_start"`
	RangeEnd      time.Time    `db:"range_end" json:"range_end"`
	FilePath      *string      `db:"file_path" json:"-"`
	DownloadToken *string      `db:"download_token" json:"download_token,omitempty"`
	ExpiresAt     *time.Time   `db:"expires_at" json:"expires_at,omitempty"`
	ErrorMessage  *string      `db:"error_message" json:"error_message,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}
