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

// ProgressRepository manages subject assignments and per-topic progress rows.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository constructs a ProgressRepository.
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// AssignSubject creates the assignment and one pending progress row per topic
// in a single transaction, so no orphan progress rows can exist.
func (r *ProgressRepository) AssignSubject(ctx context.Context, studentID, subjectID string, topicIDs []string) (*models.StudentSubject, error) {
	assignment := &models.StudentSubject{
		ID:         uuid.NewString(),
		StudentID:  studentID,
		SubjectID:  subjectID,
		AssignedAt: time.Now().UTC(),
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin assign subject: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const assignQuery = `INSERT INTO student_subjects (id, student_id, subject_id, assigned_at)
        VALUES ($1, $2, $3, $4)`
	if _, err := tx.ExecContext(ctx, assignQuery, assignment.ID, assignment.StudentID, assignment.SubjectID, assignment.AssignedAt); err != nil {
		return nil, fmt.Errorf("assign subject: %w", err)
	}

	const progressQuery = `INSERT INTO student_topic_progress (id, student_id, topic_id, status, created_at)
        VALUES ($1, $2, $3, $4, $5)`
	now := time.Now().UTC()
	for _, topicID := range topicIDs {
		if _, err := tx.ExecContext(ctx, progressQuery, uuid.NewString(), studentID, topicID, models.ProgressPending, now); err != nil {
			return nil, fmt.Errorf("seed topic progress: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit assign subject: %w", err)
	}
	return assignment, nil
}

// UnassignSubject removes the assignment and its topic progress rows together.
func (r *ProgressRepository) UnassignSubject(ctx context.Context, studentID, subjectID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin unassign subject: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const progressQuery = `DELETE FROM student_topic_progress
        WHERE student_id = $1 AND topic_id IN (SELECT id FROM topics WHERE subject_id = $2)`
	if _, err := tx.ExecContext(ctx, progressQuery, studentID, subjectID); err != nil {
		return fmt.Errorf("delete topic progress: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM student_subjects WHERE student_id = $1 AND subject_id = $2`, studentID, subjectID); err != nil {
		return fmt.Errorf("delete subject assignment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit unassign subject: %w", err)
	}
	return nil
}

// ExistsAssignment reports whether the student already has the subject.
func (r *ProgressRepository) ExistsAssignment(ctx context.Context, studentID, subjectID string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM student_subjects WHERE student_id = $1 AND subject_id = $2 LIMIT 1`, studentID, subjectID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check assignment: %w", err)
	}
	return true, nil
}

// ListAssignments returns a student's subject assignments with topic counts.
// The aggregate status is derived by the service from the counts.
func (r *ProgressRepository) ListAssignments(ctx context.Context, studentID string) ([]models.StudentSubjectDetail, error) {
	const query = `SELECT ss.id, ss.student_id, ss.subject_id, ss.assigned_at, s.name AS subject_name,
        COUNT(stp.id) FILTER (WHERE stp.status = 'completed') AS completed_topics,
        COUNT(t.id) AS total_topics
        FROM student_subjects ss
        JOIN subjects s ON s.id = ss.subject_id
        LEFT JOIN topics t ON t.subject_id = ss.subject_id
        LEFT JOIN student_topic_progress stp ON stp.topic_id = t.id AND stp.student_id = ss.student_id
        WHERE ss.student_id = $1
        GROUP BY ss.id, ss.student_id, ss.subject_id, ss.assigned_at, s.name
        ORDER BY ss.assigned_at`
	var assignments []models.StudentSubjectDetail
	if err := r.db.SelectContext(ctx, &assignments, query, studentID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// FindProgress fetches the progress row for a (student, topic) pair.
func (r *ProgressRepository) FindProgress(ctx context.Context, studentID, topicID string) (*models.StudentTopicProgress, error) {
	const query = `SELECT id, student_id, topic_id, status, completed_at, created_at
        FROM student_topic_progress WHERE student_id = $1 AND topic_id = $2`
	var progress models.StudentTopicProgress
	if err := r.db.GetContext(ctx, &progress, query, studentID, topicID); err != nil {
		return nil, err
	}
	return &progress, nil
}

// CompleteTopic marks a pending progress row completed with a timestamp.
func (r *ProgressRepository) CompleteTopic(ctx context.Context, studentID, topicID string, completedAt time.Time) error {
	const query = `UPDATE student_topic_progress SET status = $3, completed_at = $4
        WHERE student_id = $1 AND topic_id = $2`
	if _, err := r.db.ExecContext(ctx, query, studentID, topicID, models.ProgressCompleted, completedAt); err != nil {
		return fmt.Errorf("complete topic: %w", err)
	}
	return nil
}

// DeleteByStudentTx removes all of a student's assignments and progress rows
// inside a transaction.
func (r *ProgressRepository) DeleteByStudentTx(ctx context.Context, exec sqlx.ExtContext, studentID string) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM student_topic_progress WHERE student_id = $1`, studentID); err != nil {
		return fmt.Errorf("delete student progress: %w", err)
	}
	if _, err := exec.ExecContext(ctx, `DELETE FROM student_subjects WHERE student_id = $1`, studentID); err != nil {
		return fmt.Errorf("delete student assignments: %w", err)
	}
	return nil
}
