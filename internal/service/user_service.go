package service

import (
	"context"

	"ripple/internal/models"
	"ripple/internal/repository"
)

// UserService exposes profile reads over the user repository.
type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// GetProfile returns a user with their most recent posts attached.
func (s *UserService) GetProfile(ctx context.Context, userID uint, postLimit int) (*models.User, error) {
	return s.userRepo.GetByIDWithPosts(ctx, userID, postLimit)
}

// GetUser returns a user without posts.
func (s *UserService) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// ListUsers returns a page of users.
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.userRepo.List(ctx, limit, offset)
}
