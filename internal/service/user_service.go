package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/booking-service/internal/auth"
	"github.com/spec-kit/booking-service/internal/config"
	"github.com/spec-kit/booking-service/internal/domain"
	"github.com/spec-kit/booking-service/internal/repository"
	apperrors "github.com/spec-kit/booking-service/pkg/util/errorutil"
)

// UserService manages existing accounts. Registration lives in AuthService.
type UserService struct {
	users      repository.UserRepository
	bcryptCost int
	logger     *zap.Logger
}

// UserUpdateInput carries a partial account edit; nil fields are left unchanged.
type UserUpdateInput struct {
	Username *string
	Email    *string
	Password *string
	Role     *domain.UserRole
}

// NewUserService constructs the service.
func NewUserService(cfg config.AuthConfig, users repository.UserRepository, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, bcryptCost: cfg.BcryptCost, logger: logger}
}

// ListUsers returns every account ordered by username.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

// GetUser returns one account.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user", id)
	}
	return user, nil
}

// UpdateUser edits username, email, password or role.
func (s *UserService) UpdateUser(ctx context.Context, id string, input UserUpdateInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user", id)
	}

	details := map[string]any{}
	if input.Username != nil {
		if user.Username = strings.TrimSpace(*input.Username); user.Username == "" {
			details["username"] = "required"
		}
	}
	if input.Email != nil {
		if user.Email = strings.ToLower(strings.TrimSpace(*input.Email)); user.Email == "" {
			details["email"] = "required"
		}
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			details["role"] = "must be one of USER, ADMIN"
		}
		user.Role = *input.Role
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid user", details)
	}

	if input.Password != nil {
		hash, err := auth.HashPassword(*input.Password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("username or email already registered", nil)
		}
		return nil, notFoundOr(err, "user", id)
	}
	s.logger.Info("user updated", zap.String("user_id", user.ID))
	return user, nil
}

// DeleteUser removes an account no booking references.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrInUse) {
			return apperrors.NewConflict("user still has bookings", map[string]any{"user_id": id})
		}
		return notFoundOr(err, "user", id)
	}
	s.logger.Info("user deleted", zap.String("user_id", id))
	return nil
}
