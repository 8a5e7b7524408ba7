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

type teacherStore interface {
	CreateTx(ctx context.Context, exec sqlx.ExtContext, teacher *models.Teacher) error
	FindByID(ctx context.Context, id string) (*models.TeacherDetail, error)
	List(ctx context.Context, filter models.ActorFilter) ([]models.TeacherDetail, int, error)
	Update(ctx context.Context, teacher *models.Teacher) error
}

type actorUserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	CreateTx(ctx context.Context, exec sqlx.ExtContext, user *models.User) error
	UpdateActive(ctx context.Context, id string, active bool) error
}

// TeacherService manages teacher registration and profile maintenance. The
// account and the teacher row are created in one transaction so neither can
// exist without the other.
type TeacherService struct {
	db       *sqlx.DB
	teachers teacherStore
	users    actorUserStore
	logger   *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(db *sqlx.DB, teachers teacherStore, users actorUserStore, logger *zap.Logger) *TeacherService {
	return &TeacherService{db: db, teachers: teachers, users: users, logger: logger}
}

// Create registers a teacher and its account.
func (s *TeacherService) Create(ctx context.Context, req models.CreateTeacherRequest) (*models.TeacherDetail, error) {
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
		Role:         models.RoleTeacher,
		Active:       true,
	}
	teacher := &models.Teacher{Phone: req.Phone, Branch: req.Branch}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "begin teacher creation")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := s.users.CreateTx(ctx, tx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "create account")
	}
	teacher.UserID = user.ID
	if err := s.teachers.CreateTx(ctx, tx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "create teacher")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "commit teacher creation")
	}

	s.logger.Info("teacher registered", zap.String("teacher_id", teacher.ID))
	return &models.TeacherDetail{
		Teacher:  *teacher,
		Email:    user.Email,
		FullName: user.FullName,
		Active:   user.Active,
	}, nil
}

// Get fetches a teacher.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.TeacherDetail, error) {
	teacher, err := s.teachers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load teacher")
	}
	return teacher, nil
}

// List returns teachers matching the filter.
func (s *TeacherService) List(ctx context.Context, filter models.ActorFilter) ([]models.TeacherDetail, int, error) {
	teachers, total, err := s.teachers.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list teachers")
	}
	return teachers, total, nil
}

// Update edits a teacher's profile fields.
func (s *TeacherService) Update(ctx context.Context, id string, req models.UpdateTeacherRequest) (*models.TeacherDetail, error) {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	teacher := detail.Teacher
	if req.Phone != nil {
		teacher.Phone = *req.Phone
	}
	if req.Branch != nil {
		teacher.Branch = *req.Branch
	}
	if err := s.teachers.Update(ctx, &teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "update teacher")
	}
	detail.Teacher = teacher
	return detail, nil
}

// SetStatus toggles the teacher's account status.
func (s *TeacherService) SetStatus(ctx context.Context, id string, status models.AccountStatus) (*models.TeacherDetail, error) {
	detail, err := s.Get(ctx, id)
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

func ensureEmailFree(ctx context.Context, users actorUserStore, email string) error {
	_, err := users.FindByEmail(ctx, email)
	if err == nil {
		return appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "check email")
}
