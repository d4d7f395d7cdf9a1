package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"healthtracker/internal/models"
	"healthtracker/internal/repositories"
)

// UserService covers the signed-in user's own account.
type UserService struct {
	store repositories.Store
	log   *slog.Logger
}

func NewUserService(store repositories.Store, log *slog.Logger) *UserService {
	return &UserService{store: store, log: log}
}

func (s *UserService) GetMe(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	u, err := s.store.Users().GetByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotFound
	}
	return u, err
}

// DeleteAccount removes the user together with sessions, resets, profile and
// measurements.
func (s *UserService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.Users().Delete(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.log.Info("[user][delete] account removed", "user_id", userID)
	return nil
}
