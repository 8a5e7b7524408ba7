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

type parentStore interface {
	CreateTx(ctx context.Context, exec sqlx.ExtContext, parent *models.Parent) error
	FindByID(ctx context.Context, id string) (*models.ParentDetail, error)
	List(ctx context.Context, filter models.ActorFilter) ([]models.ParentDetail, int, error)
	Update(ctx context.Context, parent *models.Parent) error
}

// ParentService manages parent registration and the optional student link.
type ParentService struct {
	db       *sqlx.DB
	parents  parentStore
	students studentStore
	users    actorUserStore
	logger   *zap.Logger
}

// NewParentService constructs a ParentService.
func NewParentService(db *sqlx.DB, parents parentStore, students studentStore, users actorUserStore, logger *zap.Logger) *ParentService {
	return &ParentService{db: db, parents: parents, students: students, users: users, logger: logger}
}

// Create registers a parent and its account under the teacher, optionally
// linked to one of the teacher's students.
func (s *ParentService) Create(ctx context.Context, teacherID string, req models.CreateParentRequest) (*models.ParentDetail, error) {
	if err := ensureEmailFree(ctx, s.users, req.Email); err != nil {
		return nil, err
	}
	if req.StudentID != nil {
		if err := s.ensureOwnStudent(ctx, teacherID, *req.StudentID); err != nil {
			return nil, err
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "hash password")
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         models.RoleParent,
		Active:       true,
	}
	parent := &models.Parent{
		TeacherID: teacherID,
		StudentID: req.StudentID,
		Phone:     req.Phone,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "begin parent creation")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := s.users.CreateTx(ctx, tx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "create account")
	}
	parent.UserID = user.ID
	if err := s.parents.CreateTx(ctx, tx, parent); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "create parent")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "commit parent creation")
	}

	s.logger.Info("parent registered", zap.String("parent_id", parent.ID), zap.String("teacher_id", teacherID))
	return &models.ParentDetail{
		Parent:   *parent,
		Email:    user.Email,
		FullName: user.FullName,
		Active:   user.Active,
	}, nil
}

// Get fetches a parent; teachers only see their own.
func (s *ParentService) Get(ctx context.Context, scope models.AccessScope, id string) (*models.ParentDetail, error) {
	parent, err := s.parents.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "parent not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load parent")
	}
	switch scope.Role {
	case models.RoleAdmin:
	case models.RoleTeacher:
		if parent.TeacherID != scope.ActorID {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "parent not found")
		}
	case models.RoleParent:
		if parent.ID != scope.ActorID {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "parent not found")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrNotFound, "parent not found")
	}
	return parent, nil
}

// List returns parents matching the filter; teachers only see their own.
func (s *ParentService) List(ctx context.Context, scope models.AccessScope, filter models.ActorFilter) ([]models.ParentDetail, int, error) {
	if scope.Role == models.RoleTeacher {
		filter.TeacherID = scope.ActorID
	}
	parents, total, err := s.parents.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list parents")
	}
	return parents, total, nil
}

// Update edits a parent's profile and student link.
func (s *ParentService) Update(ctx context.Context, scope models.AccessScope, id string, req models.UpdateParentRequest) (*models.ParentDetail, error) {
	detail, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	parent := detail.Parent
	if req.Phone != nil {
		parent.Phone = *req.Phone
	}
	if req.ClearStudent {
		parent.StudentID = nil
	} else if req.StudentID != nil {
		if err := s.ensureOwnStudent(ctx, parent.TeacherID, *req.StudentID); err != nil {
			return nil, err
		}
		parent.StudentID = req.StudentID
	}
	if err := s.parents.Update(ctx, &parent); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "update parent")
	}
	detail.Parent = parent
	return detail, nil
}

// SetStatus toggles the parent's account status.
func (s *ParentService) SetStatus(ctx context.Context, scope models.AccessScope, id string, status models.AccountStatus) (*models.ParentDetail, error) {
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

func (s *ParentService) ensureOwnStudent(ctx context.Context, teacherID, studentID string) error {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load student")
	}
	if student.TeacherID != teacherID {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return nil
}
