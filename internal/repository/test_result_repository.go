package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edutrack-io/kocluk-api/internal/models"
)

// TestResultRepository manages the append-only test result trail.
type TestResultRepository struct {
	db *sqlx.DB
}

// NewTestResultRepository constructs a TestResultRepository.
func NewTestResultRepository(db *sqlx.DB) *TestResultRepository {
	return &TestResultRepository{db: db}
}

// InsertTx appends a result row inside an ongoing transaction. Completion and
// the result append commit or roll back together.
func (r *TestResultRepository) InsertTx(ctx context.Context, exec sqlx.ExtContext, result *models.TestResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO test_results (id, student_id, teacher_id, task_id, student_name, subject_name,
        correct_answers, wrong_answers, blank_answers, net_score, taken_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	if _, err := exec.ExecContext(ctx, query, result.ID, result.StudentID, result.TeacherID, result.TaskID,
		result.StudentName, result.SubjectName, result.Correct, result.Wrong, result.Blank,
		result.NetScore, result.TakenAt, result.CreatedAt); err != nil {
		return fmt.Errorf("insert test result: %w", err)
	}
	return nil
}

// ListByStudent returns a student's results newest first.
func (r *TestResultRepository) ListByStudent(ctx context.Context, studentID string) ([]models.TestResult, error) {
	const query = `SELECT id, student_id, teacher_id, task_id, student_name, subject_name,
        correct_answers, wrong_answers, blank_answers, net_score, taken_at, created_at
        FROM test_results WHERE student_id = $1 ORDER BY taken_at DESC`
	var results []models.TestResult
	if err := r.db.SelectContext(ctx, &results, query, studentID); err != nil {
		return nil, fmt.Errorf("list test results: %w", err)
	}
	return results, nil
}

// ListByStudentRange returns a student's results taken inside the range.
func (r *TestResultRepository) ListByStudentRange(ctx context.Context, studentID string, from, to time.Time) ([]models.TestResult, error) {
	const query = `SELECT id, student_id, teacher_id, task_id, student_name, subject_name,
        correct_answers, wrong_answers, blank_answers, net_score, taken_at, created_at
        FROM test_results WHERE student_id = $1 AND taken_at BETWEEN $2 AND $3 ORDER BY taken_at`
	var results []models.TestResult
	if err := r.db.SelectContext(ctx, &results, query, studentID, from, to); err != nil {
		return nil, fmt.Errorf("list test results range: %w", err)
	}
	return results, nil
}

// DetachStudentTx nulls the student and task references when the student
// graph is removed. The rows and their denormalized names stay behind as the
// analytics trail.
func (r *TestResultRepository) DetachStudentTx(ctx context.Context, exec sqlx.ExtContext, studentID string) error {
	const query = `UPDATE test_results SET student_id = NULL, task_id = NULL WHERE student_id = $1`
	if _, err := exec.ExecContext(ctx, query, studentID); err != nil {
		return fmt.Errorf("detach test results: %w", err)
	}
	return nil
}

// DetachTaskTx nulls the task reference when a single task is deleted.
func (r *TestResultRepository) DetachTaskTx(ctx context.Context, exec sqlx.ExtContext, taskID string) error {
	const query = `UPDATE test_results SET task_id = NULL WHERE task_id = $1`
	if _, err := exec.ExecContext(ctx, query, taskID); err != nil {
		return fmt.Errorf("detach task test results: %w", err)
	}
	return nil
}

// DetachTeacherTx nulls the teacher reference on cascade.
func (r *TestResultRepository) DetachTeacherTx(ctx context.Context, exec sqlx.ExtContext, teacherID string) error {
	const query = `UPDATE test_results SET teacher_id = NULL WHERE teacher_id = $1`
	if _, err := exec.ExecContext(ctx, query, teacherID); err != nil {
		return fmt.Errorf("detach teacher test results: %w", err)
	}
	return nil
}
