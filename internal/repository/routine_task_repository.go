package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/edutrack-io/kocluk-api/internal/models"
)

const routineTaskColumns = `id, teacher_id, name, task_type, subject_id, resource_name, time_of_day,
        frequency, weekdays, is_active, created_at, updated_at`

// RoutineTaskRepository manages persistence for routine task templates and
// their student rosters.
type RoutineTaskRepository struct {
	db *sqlx.DB
}

// NewRoutineTaskRepository constructs a RoutineTaskRepository.
func NewRoutineTaskRepository(db *sqlx.DB) *RoutineTaskRepository {
	return &RoutineTaskRepository{db: db}
}

// Create inserts a template together with its student roster in one transaction.
func (r *RoutineTaskRepository) Create(ctx context.Context, routine *models.RoutineTask, studentIDs []string) error {
	if routine.ID == "" {
		routine.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if routine.CreatedAt.IsZero() {
		routine.CreatedAt = now
	}
	routine.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create routine task: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `INSERT INTO routine_tasks (id, teacher_id, name, task_type, subject_id, resource_name, time_of_day,
        frequency, weekdays, is_active, created_at, updated_at)
        VALUES (:id, :teacher_id, :name, :task_type, :subject_id, :resource_name, :time_of_day,
        :frequency, :weekdays, :is_active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, routine); err != nil {
		return fmt.Errorf("create routine task: %w", err)
	}
	if err := r.replaceStudents(ctx, tx, routine.ID, studentIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create routine task: %w", err)
	}
	return nil
}

// FindByID fetches a template with its roster.
func (r *RoutineTaskRepository) FindByID(ctx context.Context, id string) (*models.RoutineTaskWithStudents, error) {
	query := fmt.Sprintf(`SELECT %s FROM routine_tasks WHERE id = $1`, routineTaskColumns)
	var routine models.RoutineTask
	if err := r.db.GetContext(ctx, &routine, query, id); err != nil {
		return nil, err
	}
	studentIDs, err := r.studentIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.RoutineTaskWithStudents{RoutineTask: routine, StudentIDs: studentIDs}, nil
}

// FindByTeacherAndName fetches a teacher's template by its name. The legacy
// client shape sends one request per weekday under the same name; the service
// merges those into the existing row instead of inserting a sibling.
func (r *RoutineTaskRepository) FindByTeacherAndName(ctx context.Context, teacherID, name string) (*models.RoutineTaskWithStudents, error) {
	query := fmt.Sprintf(`SELECT %s FROM routine_tasks WHERE teacher_id = $1 AND name = $2`, routineTaskColumns)
	var routine models.RoutineTask
	if err := r.db.GetContext(ctx, &routine, query, teacherID, name); err != nil {
		return nil, err
	}
	studentIDs, err := r.studentIDs(ctx, routine.ID)
	if err != nil {
		return nil, err
	}
	return &models.RoutineTaskWithStudents{RoutineTask: routine, StudentIDs: studentIDs}, nil
}

// ListByTeacher returns all templates owned by a teacher with their rosters.
func (r *RoutineTaskRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.RoutineTaskWithStudents, error) {
	query := fmt.Sprintf(`SELECT %s FROM routine_tasks WHERE teacher_id = $1 ORDER BY name, created_at`, routineTaskColumns)
	var routines []models.RoutineTask
	if err := r.db.SelectContext(ctx, &routines, query, teacherID); err != nil {
		return nil, fmt.Errorf("list routine tasks: %w", err)
	}
	result := make([]models.RoutineTaskWithStudents, 0, len(routines))
	for _, routine := range routines {
		studentIDs, err := r.studentIDs(ctx, routine.ID)
		if err != nil {
			return nil, err
		}
		result = append(result, models.RoutineTaskWithStudents{RoutineTask: routine, StudentIDs: studentIDs})
	}
	return result, nil
}

// ListActiveForStudent returns active templates whose roster includes the student.
func (r *RoutineTaskRepository) ListActiveForStudent(ctx context.Context, studentID string) ([]models.RoutineTask, error) {
	query := fmt.Sprintf(`SELECT %s FROM routine_tasks
        WHERE is_active = true
          AND EXISTS (SELECT 1 FROM routine_task_students rts WHERE rts.routine_task_id = routine_tasks.id AND rts.student_id = $1)
        ORDER BY name`, routineTaskColumns)
	var routines []models.RoutineTask
	if err := r.db.SelectContext(ctx, &routines, query, studentID); err != nil {
		return nil, fmt.Errorf("list active routine tasks: %w", err)
	}
	return routines, nil
}

// Update modifies a template's fields.
func (r *RoutineTaskRepository) Update(ctx context.Context, routine *models.RoutineTask) error {
	routine.UpdatedAt = time.Now().UTC()
	const query = `UPDATE routine_tasks SET name = :name, task_type = :task_type, subject_id = :subject_id,
        resource_name = :resource_name, time_of_day = :time_of_day, frequency = :frequency,
        weekdays = :weekdays, is_active = :is_active, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, routine); err != nil {
		return fmt.Errorf("update routine task: %w", err)
	}
	return nil
}

// SetStudents replaces the template's roster.
func (r *RoutineTaskRepository) SetStudents(ctx context.Context, routineID string, studentIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set roster: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM routine_task_students WHERE routine_task_id = $1`, routineID); err != nil {
		return fmt.Errorf("clear roster: %w", err)
	}
	if err := r.replaceStudents(ctx, tx, routineID, studentIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit set roster: %w", err)
	}
	return nil
}

// Deactivate stops a template from producing new instances.
func (r *RoutineTaskRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE routine_tasks SET is_active = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate routine task: %w", err)
	}
	return nil
}

// DisconnectStudentTx removes the student from every roster without touching
// the templates; other students may still reference them.
func (r *RoutineTaskRepository) DisconnectStudentTx(ctx context.Context, exec sqlx.ExtContext, studentID string) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM routine_task_students WHERE student_id = $1`, studentID); err != nil {
		return fmt.Errorf("disconnect student from routines: %w", err)
	}
	return nil
}

// DeleteByTeacherTx removes the teacher's templates and their roster rows.
func (r *RoutineTaskRepository) DeleteByTeacherTx(ctx context.Context, exec sqlx.ExtContext, teacherID string) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM routine_task_students
        WHERE routine_task_id IN (SELECT id FROM routine_tasks WHERE teacher_id = $1)`, teacherID); err != nil {
		return fmt.Errorf("delete routine rosters: %w", err)
	}
	if _, err := exec.ExecContext(ctx, `DELETE FROM routine_tasks WHERE teacher_id = $1`, teacherID); err != nil {
		return fmt.Errorf("delete routine tasks: %w", err)
	}
	return nil
}

func (r *RoutineTaskRepository) studentIDs(ctx context.Context, routineID string) ([]string, error) {
	var ids []string
	const query = `SELECT student_id FROM routine_task_students WHERE routine_task_id = $1 ORDER BY student_id`
	if err := r.db.SelectContext(ctx, &ids, query, routineID); err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return ids, nil
}

func (r *RoutineTaskRepository) replaceStudents(ctx context.Context, exec sqlx.ExtContext, routineID string, studentIDs []string) error {
	if len(studentIDs) == 0 {
		return nil
	}
	const query = `INSERT INTO routine_task_students (routine_task_id, student_id)
        SELECT $1, unnest($2::text[]) ON CONFLICT DO NOTHING`
	if _, err := exec.ExecContext(ctx, query, routineID, pq.Array(studentIDs)); err != nil {
		return fmt.Errorf("attach roster: %w", err)
	}
	return nil
}
