package services

import (
	"context"
	"errors"

	"storefront/internal/apperr"
	"storefront/internal/domain"
	"storefront/internal/repos"
)

const MaxUserPage = 100

// UserService is the admin side of principal management.
type UserService struct {
	Users *repos.UserRepo
}

func NewUserService(users *repos.UserRepo) *UserService { return &UserService{Users: users} }

func (s *UserService) List(ctx context.Context, f repos.UserFilter) ([]domain.User, error) {
	if f.Role != "" && !domain.ValidRole(f.Role) {
		return nil, apperr.Newf(apperr.Validation, "Unknown role %q", f.Role)
	}
	f.Limit = clamp(f.Limit, 1, MaxUserPage, 20)
	if f.Skip < 0 {
		f.Skip = 0
	}
	return s.Users.List(ctx, f)
}

func (s *UserService) get(ctx context.Context, id int64) (*domain.User, error) {
	u, err := s.Users.ByID(ctx, id)
	if errors.Is(err, repos.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "User not found")
	}
	return u, err
}

// SetRole changes another principal's role. Admins cannot change their own.
func (s *UserService) SetRole(ctx context.Context, actorID, id int64, role string) (*domain.User, error) {
	if !domain.ValidRole(role) {
		return nil, apperr.Newf(apperr.Validation, "Unknown role %q", role)
	}
	if actorID == id {
		return nil, apperr.New(apperr.Validation, "Cannot change your own role")
	}
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.Users.SetRole(ctx, id, role); err != nil {
		return nil, err
	}
	return s.Users.ByID(ctx, id)
}

// SetActive activates or deactivates another principal. Tokens already
// issued to a deactivated principal stop working at the next request
// because authentication reloads the principal.
func (s *UserService) SetActive(ctx context.Context, actorID, id int64, active bool) (*domain.User, error) {
	if actorID == id {
		return nil, apperr.New(apperr.Validation, "Cannot change your own status")
	}
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.Users.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	return s.Users.ByID(ctx, id)
}

// Stats counts principals by role and status.
func (s *UserService) Stats(ctx context.Context) (repos.UserStats, error) {
	return s.Users.Stats(ctx)
}
