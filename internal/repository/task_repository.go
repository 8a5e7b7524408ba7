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

const taskColumns = `id, teacher_id, student_id, subject_id, description, resource_name, task_type,
        start_at, end_at, page_start, page_end, video_count, test_count,
        routine_name, scheduled_date,
        completed_at, completion_note, correct_answers, wrong_answers, blank_answers, net_score,
        created_at, updated_at`

// TaskRepository manages persistence for task records.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository constructs a TaskRepository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a new teacher-authored task.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	const query = `INSERT INTO tasks (id, teacher_id, student_id, subject_id, description, resource_name, task_type,
        start_at, end_at, page_start, page_end, video_count, test_count, routine_name, scheduled_date, created_at, updated_at)
        VALUES (:id, :teacher_id, :student_id, :subject_id, :description, :resource_name, :task_type,
        :start_at, :end_at, :page_start, :page_end, :video_count, :test_count, :routine_name, :scheduled_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, task); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// FindByID fetches a task by ID.
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE id = $1`, taskColumns)
	var task models.Task
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		return nil, err
	}
	return &task, nil
}

// List returns tasks matching the provided filters.
func (r *TaskRepository) List(ctx context.Context, filter models.TaskFilter) ([]models.Task, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("task_type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("end_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("start_at <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	where := strings.Join(conditions, " AND ")

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"start_at":   "start_at",
		"end_at":     "end_at",
		"created_at": "created_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "start_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		taskColumns, where, column, order, size, offset)

	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM tasks WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}
	return tasks, total, nil
}

// ListForStudentRange returns a student's tasks whose window overlaps the range.
func (r *TaskRepository) ListForStudentRange(ctx context.Context, studentID string, from, to time.Time) ([]models.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks
        WHERE student_id = $1 AND start_at <= $3 AND end_at >= $2
        ORDER BY start_at ASC`, taskColumns)
	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, query, studentID, from, to); err != nil {
		return nil, fmt.Errorf("list student tasks: %w", err)
	}
	return tasks, nil
}

// Update modifies the assignment fields of an uncompleted task. Completion
// fields are written only by Complete.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now().UTC()
	const query = `UPDATE tasks SET subject_id = :subject_id, description = :description, resource_name = :resource_name,
        task_type = :task_type, start_at = :start_at, end_at = :end_at,
        page_start = :page_start, page_end = :page_end, video_count = :video_count, test_count = :test_count,
        updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, task); err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// ExtendWindow pushes the end of the task window forward by the given days.
func (r *TaskRepository) ExtendWindow(ctx context.Context, id string, days int) error {
	const query = `UPDATE tasks SET end_at = end_at + make_interval(days => $2), updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, days, time.Now().UTC()); err != nil {
		return fmt.Errorf("extend task window: %w", err)
	}
	return nil
}

// DeleteTx removes a task row inside an ongoing transaction.
func (r *TaskRepository) DeleteTx(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// CompleteTx sets the completion fields if and only if they are still unset.
// Returns false when another completion won the race; the caller maps that to
// an already-completed conflict. The conditional update is the serialization
// point for concurrent completion attempts.
func (r *TaskRepository) CompleteTx(ctx context.Context, exec sqlx.ExtContext, id string, completedAt time.Time, note *string, correct, wrong, blank *int, netScore *float64) (bool, error) {
	const query = `UPDATE tasks SET completed_at = $2, completion_note = $3,
        correct_answers = $4, wrong_answers = $5, blank_answers = $6, net_score = $7, updated_at = $8
        WHERE id = $1 AND completed_at IS NULL`
	res, err := exec.ExecContext(ctx, query, id, completedAt, note, correct, wrong, blank, netScore, completedAt)
	if err != nil {
		return false, fmt.Errorf("complete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete task rows: %w", err)
	}
	return affected == 1, nil
}

// InsertGenerated inserts expander-produced instances, silently skipping any
// (student, routine name, date) triple that already exists. The partial unique
// index on the triple makes concurrent expansion runs safe without in-process
// locking.
func (r *TaskRepository) InsertGenerated(ctx context.Context, tasks []models.Task) (int, error) {
	const query = `INSERT INTO tasks (id, teacher_id, student_id, subject_id, description, resource_name, task_type,
        start_at, end_at, page_start, page_end, video_count, test_count, routine_name, scheduled_date, created_at, updated_at)
        VALUES (:id, :teacher_id, :student_id, :subject_id, :description, :resource_name, :task_type,
        :start_at, :end_at, :page_start, :page_end, :video_count, :test_count, :routine_name, :scheduled_date, :created_at, :updated_at)
        ON CONFLICT (student_id, routine_name, scheduled_date) DO NOTHING`
	inserted := 0
	now := time.Now().UTC()
	for i := range tasks {
		task := &tasks[i]
		if task.ID == "" {
			task.ID = uuid.NewString()
		}
		if task.CreatedAt.IsZero() {
			task.CreatedAt = now
		}
		task.UpdatedAt = now
		res, err := r.db.NamedExecContext(ctx, query, task)
		if err != nil {
			return inserted, fmt.Errorf("insert generated task: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("insert generated task rows: %w", err)
		}
		inserted += int(affected)
	}
	return inserted, nil
}

// DeleteByStudentTx removes all of a student's tasks inside a transaction.
func (r *TaskRepository) DeleteByStudentTx(ctx context.Context, exec sqlx.ExtContext, studentID string) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM tasks WHERE student_id = $1`, studentID); err != nil {
		return fmt.Errorf("delete student tasks: %w", err)
	}
	return nil
}

// DeleteByTeacherTx removes any tasks the teacher authored that remain after
// per-student deletion.
func (r *TaskRepository) DeleteByTeacherTx(ctx context.Context, exec sqlx.ExtContext, teacherID string) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM tasks WHERE teacher_id = $1`, teacherID); err != nil {
		return fmt.Errorf("delete teacher tasks: %w", err)
	}
	return nil
}
