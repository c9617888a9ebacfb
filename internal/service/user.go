package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dan9191/card-transfer-service/internal/models"
	"github.com/Dan9191/card-transfer-service/internal/repository"
	"github.com/sirupsen/logrus"
)

// UserService handles administrative user management
type UserService struct {
	users UserStore
	log   *logrus.Logger
}

// NewUserService initializes a new user service
func NewUserService(users UserStore, log *logrus.Logger) *UserService {
	return &UserService{users: users, log: log}
}

// UserUpdateRequest carries optional user profile changes
type UserUpdateRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// GetUserByID retrieves a user by id
func (s *UserService) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrUserNotFound, userID)
	}
	return user, err
}

// ListUsers retrieves users, newest first
func (s *UserService) ListUsers(ctx context.Context, page Page) ([]*models.User, error) {
	limit, offset := page.limitOffset()
	return s.users.ListUsers(ctx, limit, offset)
}

// UpdateUser changes a user's email and/or name
func (s *UserService) UpdateUser(ctx context.Context, userID int64, req UserUpdateRequest) (*models.User, error) {
	s.log.Infof("Updating user: %d", userID)

	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Email != "" && req.Email != user.Email {
		exists, err := s.users.EmailExists(ctx, req.Email)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("%w: email already exists: %s", ErrDuplicateResource, req.Email)
		}
		user.Email = req.Email
	}
	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Infof("User updated successfully: %d", userID)
	return user, nil
}

// ToggleUserStatus flips the enabled flag of a user
func (s *UserService) ToggleUserStatus(ctx context.Context, userID int64) (*models.User, error) {
	s.log.Infof("Toggling user status: %d", userID)

	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Enabled = !user.Enabled
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Infof("User status toggled to %t for user: %d", user.Enabled, userID)
	return user, nil
}

// DeleteUser removes a user
func (s *UserService) DeleteUser(ctx context.Context, userID int64) error {
	s.log.Infof("Deleting user: %d", userID)

	err := s.users.DeleteUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %d", ErrUserNotFound, userID)
	}
	if err != nil {
		return err
	}

	s.log.Infof("User deleted: %d", userID)
	return nil
}
