package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edutrack-io/kocluk-api/internal/models"
)

// ExtensionRequestRepository manages extension request records.
type ExtensionRequestRepository struct {
	db *sqlx.DB
}

// NewExtensionRequestRepository constructs an ExtensionRequestRepository.
func NewExtensionRequestRepository(db *sqlx.DB) *ExtensionRequestRepository {
	return &ExtensionRequestRepository{db: db}
}

// Create inserts a new pending request.
func (r *ExtensionRequestRepository) Create(ctx context.Context, req *models.ExtensionRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	req.Status = models.ExtensionPending
	const query = `INSERT INTO extension_requests (id, task_id, student_id, requested_days, reason, status, created_at)
        VALUES (:id, :task_id, :student_id, :requested_days, :reason, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create extension request: %w", err)
	}
	return nil
}

// FindByID fetches a request by ID.
func (r *ExtensionRequestRepository) FindByID(ctx context.Context, id string) (*models.ExtensionRequest, error) {
	const query = `SELECT id, task_id, student_id, requested_days, reason, status, approved_days, decided_at, created_at
        FROM extension_requests WHERE id = $1`
	var req models.ExtensionRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// ExistsForTask reports whether any request exists for the task.
func (r *ExtensionRequestRepository) ExistsForTask(ctx context.Context, taskID string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM extension_requests WHERE task_id = $1 LIMIT 1`, taskID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check extension request: %w", err)
	}
	return true, nil
}

// Decide records the teacher's decision on a pending request.
func (r *ExtensionRequestRepository) Decide(ctx context.Context, id string, status models.ExtensionStatus, approvedDays *int, decidedAt time.Time) error {
	const query = `UPDATE extension_requests SET status = $2, approved_days = $3, decided_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, approvedDays, decidedAt); err != nil {
		return fmt.Errorf("decide extension request: %w", err)
	}
	return nil
}

// ListByTeacher returns requests on tasks owned by the teacher, pending first.
func (r *ExtensionRequestRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.ExtensionRequest, error) {
	const query = `SELECT er.id, er.task_id, er.student_id, er.requested_days, er.reason, er.status, er.approved_days, er.decided_at, er.created_at
        FROM extension_requests er
        JOIN tasks t ON t.id = er.task_id
        WHERE t.teacher_id = $1
        ORDER BY er.status = 'pending' DESC, er.created_at DESC`
	var requests []models.ExtensionRequest
	if err := r.db.SelectContext(ctx, &requests, query, teacherID); err != nil {
		return nil, fmt.Errorf("list extension requests: %w", err)
	}
	return requests, nil
}

// DeleteByTaskTx removes the requests attached to a single task.
func (r *ExtensionRequestRepository) DeleteByTaskTx(ctx context.Context, exec sqlx.ExtContext, taskID string) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM extension_requests WHERE task_id = $1`, taskID); err != nil {
		return fmt.Errorf("delete task extension requests: %w", err)
	}
	return nil
}

// DeleteByStudentTx removes a student's requests inside a transaction.
func (r *ExtensionRequestRepository) DeleteByStudentTx(ctx context.Context, exec sqlx.ExtContext, studentID string) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM extension_requests WHERE student_id = $1`, studentID); err != nil {
		return fmt.Errorf("delete extension requests: %w", err)
	}
	return nil
}
