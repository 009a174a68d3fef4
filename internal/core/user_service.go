package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"audioeq-backend-go/internal/db"
	"audioeq-backend-go/internal/models"
)

// ErrRemoteUnavailable is returned when an operation needs the remote
// profile store and Firebase is not configured.
var ErrRemoteUnavailable = errors.New("remote profile store is not configured")

// UserService maintains profile metadata in the remote store.
type UserService interface {
	SyncProfile(ctx context.Context, req *models.SyncUserRequest) error
}

// userService implements UserService.
type userService struct {
	users  db.UserRepository // nil when Firebase is not configured
	logger *zap.Logger
}

// NewUserService creates a new UserService instance.
func NewUserService(users db.UserRepository, logger *zap.Logger) UserService {
	return &userService{users: users, logger: logger}
}

// SyncProfile upserts the login metadata for a profile document. Entitlement
// fields are untouched; a payment landing concurrently cannot be clobbered
// by a login.
func (s *userService) SyncProfile(ctx context.Context, req *models.SyncUserRequest) error {
	if s.users == nil {
		return ErrRemoteUnavailable
	}

	profile := &models.UserProfile{
		UID:         req.UID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
	}
	if err := s.users.SyncProfile(ctx, profile); err != nil {
		return fmt.Errorf("failed to sync profile for %q: %w", req.UID, err)
	}

	s.logger.Info("User synced to remote store",
		zap.String("uid", req.UID), zap.String("email", req.Email))
	return nil
}
