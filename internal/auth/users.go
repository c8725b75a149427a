package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hoteldesk/internal/apperrors"
	"github.com/hoteldesk/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const minPasswordLength = 8

// Login checks credentials and returns a token for the user.
func (a *Authenticator) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	var user models.User
	if err := a.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
		}
		return "", nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.CheckPassword(password) {
		return "", nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
	}
	if !user.IsActive {
		return "", nil, fmt.Errorf("%w: user is inactive", apperrors.ErrForbidden)
	}

	token, err := a.GenerateToken(&user)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return token, &user, nil
}

type UserInput struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
}

func (a *Authenticator) CreateUser(ctx context.Context, in UserInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", apperrors.ErrValidation)
	}
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", apperrors.ErrValidation, minPasswordLength)
	}
	if !in.Role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", apperrors.ErrValidation, in.Role)
	}

	var existing int64
	if err := a.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: username %q already exists", apperrors.ErrValidation, username)
	}

	user := &models.User{
		Username: username,
		Email:    strings.TrimSpace(in.Email),
		Role:     in.Role,
		IsActive: true,
	}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := a.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (a *Authenticator) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := a.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// EnsureAdmin creates the first admin account when there are no users yet.
func (a *Authenticator) EnsureAdmin(ctx context.Context, username, password, email string, logger *zap.Logger) error {
	var count int64
	if err := a.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil
	}
	if password == "" {
		return fmt.Errorf("%w: auth.admin_password must be set to bootstrap the first admin", apperrors.ErrValidation)
	}

	user, err := a.CreateUser(ctx, UserInput{
		Username: username,
		Password: password,
		Email:    email,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		return err
	}
	logger.Info("Admin user created", zap.String("username", user.Username))
	return nil
}
