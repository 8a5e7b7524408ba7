package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edutrack-io/kocluk-api/internal/models"
)

// ParentRepository manages persistence for parent records.
type ParentRepository struct {
	db *sqlx.DB
}

// NewParentRepository constructs a ParentRepository.
func NewParentRepository(db *sqlx.DB) *ParentRepository {
	return &ParentRepository{db: db}
}

// CreateTx inserts a parent row inside an ongoing transaction.
func (r *ParentRepository) CreateTx(ctx context.Context, exec sqlx.ExtContext, parent *models.Parent) error {
	if parent.ID == "" {
		parent.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if parent.CreatedAt.IsZero() {
		parent.CreatedAt = now
	}
	parent.UpdatedAt = now
	const query = `INSERT INTO parents (id, user_id, teacher_id, student_id, phone, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := exec.ExecContext(ctx, query, parent.ID, parent.UserID, parent.TeacherID, parent.StudentID,
		parent.Phone, parent.CreatedAt, parent.UpdatedAt); err != nil {
		return fmt.Errorf("create parent: %w", err)
	}
	return nil
}

// FindByID fetches a parent detail by ID.
func (r *ParentRepository) FindByID(ctx context.Context, id string) (*models.ParentDetail, error) {
	const query = `SELECT p.id, p.user_id, p.teacher_id, p.student_id, p.phone, p.created_at, p.updated_at,
        u.email, u.full_name, u.active
        FROM parents p JOIN users u ON u.id = p.user_id
        WHERE p.id = $1`
	var detail models.ParentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByUserID fetches the parent row owned by an account.
func (r *ParentRepository) FindByUserID(ctx context.Context, userID string) (*models.Parent, error) {
	const query = `SELECT id, user_id, teacher_id, student_id, phone, created_at, updated_at
        FROM parents WHERE user_id = $1`
	var parent models.Parent
	if err := r.db.GetContext(ctx, &parent, query, userID); err != nil {
		return nil, err
	}
	return &parent, nil
}

// List returns parents matching the filter.
func (r *ParentRepository) List(ctx context.Context, filter models.ActorFilter) ([]models.ParentDetail, int, error) {
	base := "FROM parents p JOIN users u ON u.id = p.user_id"
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("p.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.full_name) LIKE $%d OR LOWER(u.email) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT p.id, p.user_id, p.teacher_id, p.student_id, p.phone, p.created_at, p.updated_at,
        u.email, u.full_name, u.active
        %s ORDER BY u.full_name LIMIT %d OFFSET %d`, base, size, offset)

	var parents []models.ParentDetail
	if err := r.db.SelectContext(ctx, &parents, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list parents: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count parents: %w", err)
	}
	return parents, total, nil
}

// ListByTeacherTx returns a teacher's parents inside the cascade transaction.
func (r *ParentRepository) ListByTeacherTx(ctx context.Context, exec sqlx.ExtContext, teacherID string) ([]models.Parent, error) {
	const query = `SELECT id, user_id, teacher_id, student_id, phone, created_at, updated_at
        FROM parents WHERE teacher_id = $1 ORDER BY created_at`
	var parents []models.Parent
	if err := sqlx.SelectContext(ctx, exec, &parents, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher parents: %w", err)
	}
	return parents, nil
}

// Update modifies a parent's profile fields and student link.
func (r *ParentRepository) Update(ctx context.Context, parent *models.Parent) error {
	parent.UpdatedAt = time.Now().UTC()
	const query = `UPDATE parents SET student_id = :student_id, phone = :phone, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, parent); err != nil {
		return fmt.Errorf("update parent: %w", err)
	}
	return nil
}

// UnlinkStudentTx clears the student reference from any parent pointing at it.
func (r *ParentRepository) UnlinkStudentTx(ctx context.Context, exec sqlx.ExtContext, studentID string) error {
	const query = `UPDATE parents SET student_id = NULL, updated_at = $2 WHERE student_id = $1`
	if _, err := exec.ExecContext(ctx, query, studentID, time.Now().UTC()); err != nil {
		return fmt.Errorf("unlink parents: %w", err)
	}
	return nil
}

// DeleteTx removes the parent row inside the cascade transaction.
func (r *ParentRepository) DeleteTx(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM parents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete parent: %w", err)
	}
	return nil
}
