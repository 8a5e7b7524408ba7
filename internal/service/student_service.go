package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/edutrack-io/kocluk-api/internal/models"
	appErrors "github.com/edutrack-io/kocluk-api/pkg/errors"
)

type studentStore interface {
	CreateTx(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	List(ctx context.Context, filter models.ActorFilter) ([]models.StudentDetail, int, error)
	Update(ctx context.Context, student *models.Student) error
}

// StudentService manages student registration and profile maintenance under
// an owning teacher.
type StudentService struct {
	db       *sqlx.DB
	students studentStore
	users    actorUserStore
	logger   *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(db *sqlx.DB, students studentStore, users actorUserStore, logger *zap.Logger) *StudentService {
	return &StudentService{db: db, students: students, users: users, logger: logger}
}

// Create registers a student and its account under the teacher.
func (s *StudentService) Create(ctx context.Context, teacherID string, req models.CreateStudentRequest) (*models.StudentDetail, error) {
	if err := ensureEmailFree(ctx, s.users, req.Email); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "hash password")
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         models.RoleStudent,
		Active:       true,
	}
	student := &models.Student{
		TeacherID:  teacherID,
		GradeLevel: req.GradeLevel,
		SchoolName: req.SchoolName,
		TargetNote: req.TargetNote,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "begin student creation")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := s.users.CreateTx(ctx, tx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "create account")
	}
	student.UserID = user.ID
	if err := s.students.CreateTx(ctx, tx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "create student")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "commit student creation")
	}

	s.logger.Info("student registered",
		zap.String("student_id", student.ID),
		zap.String("teacher_id", teacherID))
	return &models.StudentDetail{
		Student:  *student,
		Email:    user.Email,
		FullName: user.FullName,
		Active:   user.Active,
	}, nil
}

// Get fetches a student visible to the scope.
func (s *StudentService) Get(ctx context.Context, scope models.AccessScope, id string) (*models.StudentDetail, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load student")
	}
	if !scope.CanViewStudent(id) && !(scope.Role == models.RoleTeacher && student.TeacherID == scope.ActorID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return student, nil
}

// List returns students matching the filter; teachers only see their own.
func (s *StudentService) List(ctx context.Context, scope models.AccessScope, filter models.ActorFilter) ([]models.StudentDetail, int, error) {
	if scope.Role == models.RoleTeacher {
		filter.TeacherID = scope.ActorID
	}
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list students")
	}
	return students, total, nil
}

// Update edits a student's profile fields.
func (s *StudentService) Update(ctx context.Context, scope models.AccessScope, id string, req models.UpdateStudentRequest) (*models.StudentDetail, error) {
	detail, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	student := detail.Student
	if req.GradeLevel != nil {
		student.GradeLevel = *req.GradeLevel
	}
	if req.SchoolName != nil {
		student.SchoolName = *req.SchoolName
	}
	if req.TargetNote != nil {
		student.TargetNote = *req.TargetNote
	}
	if err := s.students.Update(ctx, &student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "update student")
	}
	detail.Student = student
	return detail, nil
}

// SetStatus toggles the student's account status.
func (s *StudentService) SetStatus(ctx context.Context, scope models.AccessScope, id string, status models.AccountStatus) (*models.StudentDetail, error) {
	detail, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	active := status == models.AccountActive
	if err := s.users.UpdateActive(ctx, detail.UserID, active); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "update status")
	}
	detail.Active = active
	return detail, nil
}
