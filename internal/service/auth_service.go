package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/edutrack-io/kocluk-api/internal/models"
	appErrors "github.com/edutrack-io/kocluk-api/pkg/errors"
)

type authUserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error
}

type authTeacherStore interface {
	FindByUserID(ctx context.Context, userID string) (*models.Teacher, error)
}

type authStudentStore interface {
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

type authParentStore interface {
	FindByUserID(ctx context.Context, userID string) (*models.Parent, error)
}

// AuthService issues and validates JWT access tokens and rotated refresh
// tokens. Access tokens carry the actor row id next to the account id, so
// handlers can scope queries without an extra lookup.
type AuthService struct {
	users    authUserStore
	teachers authTeacherStore
	students authStudentStore
	parents  authParentStore

	secret            []byte
	expiration        time.Duration
	refreshExpiration time.Duration
	logger            *zap.Logger
	now               func() time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(
	users authUserStore,
	teachers authTeacherStore,
	students authStudentStore,
	parents authParentStore,
	secret string,
	expiration, refreshExpiration time.Duration,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:             users,
		teachers:          teachers,
		students:          students,
		parents:           parents,
		secret:            []byte(secret),
		expiration:        expiration,
		refreshExpiration: refreshExpiration,
		logger:            logger,
		now:               time.Now,
	}
}

// Login verifies credentials and issues a token pair.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}
	if !user.Active {
		return nil, appErrors.ErrInactiveAccount
	}

	now := s.now().UTC()
	actorID, err := s.resolveActorID(ctx, user)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.signAccessToken(user, actorID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "sign token")
	}

	refresh := &models.RefreshToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(s.refreshExpiration),
		IPAddress: req.IP,
		UserAgent: req.UserAgent,
	}
	if err := s.users.CreateRefreshToken(ctx, refresh); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "store refresh token")
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("last login update failed", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))

	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refresh.Token,
		ExpiresIn:    int64(s.expiration.Seconds()),
		IssuedAt:     now,
		User: models.UserInfo{
			ID:       user.ID,
			Email:    user.Email,
			FullName: user.FullName,
			Role:     user.Role,
		},
	}, nil
}

// Refresh rotates the refresh token and issues a fresh access token.
func (s *AuthService) Refresh(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	stored, err := s.users.FindRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrUnauthorized
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load refresh token")
	}

	now := s.now().UTC()
	if stored.Revoked || now.After(stored.ExpiresAt) {
		return nil, appErrors.ErrUnauthorized
	}

	user, err := s.users.FindByID(ctx, stored.UserID)
	if err != nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !user.Active {
		return nil, appErrors.ErrInactiveAccount
	}

	actorID, err := s.resolveActorID(ctx, user)
	if err != nil {
		return nil, err
	}
	accessToken, err := s.signAccessToken(user, actorID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "sign token")
	}

	if err := s.users.RevokeRefreshToken(ctx, stored.ID, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "revoke refresh token")
	}
	rotated := &models.RefreshToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(s.refreshExpiration),
		IPAddress: req.IP,
		UserAgent: req.UserAgent,
	}
	if err := s.users.CreateRefreshToken(ctx, rotated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "store refresh token")
	}

	return &models.RefreshTokenResponse{
		AccessToken:  accessToken,
		RefreshToken: rotated.Token,
		ExpiresIn:    int64(s.expiration.Seconds()),
		IssuedAt:     now,
	}, nil
}

// ValidateToken parses and verifies an access token.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.ErrUnauthorized
	}
	return claims, nil
}

func (s *AuthService) signAccessToken(user *models.User, actorID string, now time.Time) (string, error) {
	claims := models.JWTClaims{
		UserID:   user.ID,
		ActorID:  actorID,
		Role:     user.Role,
		Email:    user.Email,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// resolveActorID maps the account to its teacher/student/parent row. Admins
// have no actor row and get an empty actor id.
func (s *AuthService) resolveActorID(ctx context.Context, user *models.User) (string, error) {
	var id string
	var err error
	switch user.Role {
	case models.RoleTeacher:
		var teacher *models.Teacher
		if teacher, err = s.teachers.FindByUserID(ctx, user.ID); err == nil {
			id = teacher.ID
		}
	case models.RoleStudent:
		var student *models.Student
		if student, err = s.students.FindByUserID(ctx, user.ID); err == nil {
			id = student.ID
		}
	case models.RoleParent:
		var parent *models.Parent
		if parent, err = s.parents.FindByUserID(ctx, user.ID); err == nil {
			id = parent.ID
		}
	default:
		return "", nil
	}
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "resolve actor")
	}
	return id, nil
}
