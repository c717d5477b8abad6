package services

import (
	"context"
	"errors"

	"github.com/hireboard/apiserver/internal/store"
	"github.com/hireboard/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateRole(ctx context.Context, email string, role types.Role) (types.User, error)
}

// UserService encapsulates account administration use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, notFoundError("user not found")
		}
		return types.User{}, internalError("failed to load user", err)
	}
	return user, nil
}

// GrantRole changes the role of an existing account. Only used by
// operator tooling; signup never produces admins.
func (s *UserService) GrantRole(ctx context.Context, email string, role types.Role) (types.User, error) {
	if !role.Valid() {
		return types.User{}, validationError("invalid role")
	}
	user, err := s.repo.UpdateRole(ctx, email, role)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, notFoundError("user not found")
		}
		return types.User{}, internalError("failed to update user", err)
	}
	return user, nil
}
