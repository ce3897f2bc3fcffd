package services

import (
	"context"

	"github.com/trackline/issue-board-backend/internal/core/domain"
	"github.com/trackline/issue-board-backend/internal/core/ports"
)

// UserLookupService provides read-only access to user records
type UserLookupService struct {
	userRepo ports.UserRepository
}

var _ ports.UserLookupService = (*UserLookupService)(nil)

// NewUserLookupService creates a new user lookup service
func NewUserLookupService(userRepo ports.UserRepository) ports.UserLookupService {
	return &UserLookupService{userRepo: userRepo}
}

func (s *UserLookupService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.userRepo.GetByUsername(ctx, username)
}

func (s *UserLookupService) ListUsers(ctx context.Context, limit int) ([]*domain.User, error) {
	return s.userRepo.List(ctx, limit)
}
