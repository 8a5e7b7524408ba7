package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edutrack-io/kocluk-api/internal/models"
)

// ReportRepository manages report job records.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs a ReportRepository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a queued report job.
func (r *ReportRepository) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = models.ReportStatusQueued
	}
	const query = `INSERT INTO report_jobs (id, teacher_id, student_id, format, status, range_start, range_end, created_at, updated_at)
        VALUES (:id, :teacher_id, :student_id, :format, :status, :range_start, :range_end, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// FindByID fetches a report job by ID.
func (r *ReportRepository) FindByID(ctx context.Context, id string) (*models.ReportJob, error) {
	const query = `SELECT id, teacher_id, student_id, format, status, range_start, range_end,
        file_path, download_token, expires_at, error_message, created_at, updated_at
        FROM report_jobs WHERE id = $1`
	var job models.ReportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateStatus moves a job through its lifecycle.
func (r *ReportRepository) UpdateStatus(ctx context.Context, id string, status models.ReportStatus, errorMessage *string) error {
	const query = `UPDATE report_jobs SET status = $2, error_message = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, errorMessage, time.Now().UTC()); err != nil {
		return fmt.Errorf("update report status: %w", err)
	}
	return nil
}

// AttachFile records the rendered file and its signed download token.
func (r *ReportRepository) AttachFile(ctx context.Context, id, filePath, token string, expiresAt time.Time) error {
	const query = `UPDATE report_jobs SET status = $2, file_path = $3, download_token = $4, expires_at = $5, updated_at = $6 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ReportStatusCompleted, filePath, token, expiresAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("attach report file: %w", err)
	}
	return nil
}
