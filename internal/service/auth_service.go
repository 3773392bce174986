package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/carelog/carelog/internal/auth"
	"github.com/carelog/carelog/internal/config"
	"github.com/carelog/carelog/internal/domain"
	"github.com/carelog/carelog/internal/repository"
	apperrors "github.com/carelog/carelog/pkg/util"
)

// AuthService handles registration, sign-in, and password changes.
type AuthService struct {
	users  repository.UserRepository
	orgs   repository.OrganizationRepository
	tokens *auth.TokenManager
	cfg    config.AuthConfig
}

// RegisterInput is the payload for member self-registration.
type RegisterInput struct {
	OrganizationID string
	FirstName      string
	LastName       string
	Email          string
	Password       string
}

// LoginResult carries the issued token alongside the account.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService constructs the service.
func NewAuthService(users repository.UserRepository, orgs repository.OrganizationRepository, tokens *auth.TokenManager, cfg config.AuthConfig) *AuthService {
	return &AuthService{users: users, orgs: orgs, tokens: tokens, cfg: cfg}
}

// Register creates a member account bound to an organization.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperrors.NewValidationError("valid email required", nil)
	}
	if len(input.Password) < 8 {
		return nil, apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	if strings.TrimSpace(input.FirstName) == "" {
		return nil, apperrors.NewValidationError("first name required", nil)
	}

	org, err := s.orgs.GetByID(ctx, input.OrganizationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("organization", nil)
		}
		return nil, err
	}
	if !org.IsActive {
		return nil, apperrors.NewValidationError("organization inactive", nil)
	}

	if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hashed, err := auth.HashPassword(input.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		OrganizationID: &org.ID,
		FirstName:      strings.TrimSpace(input.FirstName),
		LastName:       strings.TrimSpace(input.LastName),
		Email:          email,
		PasswordHash:   hashed,
		Role:           domain.RoleMember,
		Status:         domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues an access token. Invalid email
// and invalid password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if user.Status != domain.UserStatusActive {
		return nil, apperrors.NewForbidden("account suspended")
	}

	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// ChangePassword rotates the caller's password after verifying the
// current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if len(next) < 8 {
		return apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", nil)
		}
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, current); err != nil {
		return apperrors.NewUnauthorized("current password incorrect")
	}

	hashed, err := auth.HashPassword(next, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hashed
	return s.users.Update(ctx, user)
}
