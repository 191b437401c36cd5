package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"cosmicwatch/internal/auth"
	"cosmicwatch/internal/logger"
	"cosmicwatch/internal/models"
	"cosmicwatch/internal/repository"

	"gorm.io/gorm"
)

const minPasswordLength = 8

type AuthService interface {
	Register(ctx context.Context, email, password string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Authenticate(ctx context.Context, token string) (*models.User, error)
	Deactivate(ctx context.Context, userID uint) error
}

type AuthResult struct {
	User        *models.User
	AccessToken string
	TokenType   string
}

type authService struct {
	userRepo repository.UserRepository
	tokens   *auth.JWTManager
	hasher   *auth.PasswordHasher
}

func NewAuthService(userRepo repository.UserRepository, tokens *auth.JWTManager, hasher *auth.PasswordHasher) AuthService {
	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
		hasher:   hasher,
	}
}

func (s *authService) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, newError(ErrValidation, "password must be at least %d characters", minPasswordLength)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, newError(ErrValidation, "password must be at most 72 bytes")
		}
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, newError(ErrConflict, "Email already registered")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.Component("auth").WithField("user_id", user.ID).Info("User registered")
	return s.issue(user)
}

func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ErrUnauthorized, "Incorrect email or password")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		return nil, newError(ErrUnauthorized, "Incorrect email or password")
	}
	if !user.IsActive {
		return nil, newError(ErrForbidden, "Account is inactive")
	}

	return s.issue(user)
}

// Authenticate: невалидный токен или несуществующий пользователь дают 401,
// деактивированный дает 403.
func (s *authService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, newError(ErrUnauthorized, "Could not validate credentials")
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, newError(ErrUnauthorized, "Could not validate credentials")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ErrUnauthorized, "Could not validate credentials")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !user.IsActive {
		return nil, newError(ErrForbidden, "Inactive user")
	}
	return user, nil
}

func (s *authService) Deactivate(ctx context.Context, userID uint) error {
	if err := s.userRepo.Deactivate(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newError(ErrNotFound, "User not found")
		}
		return err
	}

	logger.Component("auth").WithField("user_id", userID).Info("User deactivated")
	return nil
}

func (s *authService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, AccessToken: token, TokenType: "bearer"}, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", newError(ErrValidation, "invalid email address")
	}
	return email, nil
}
