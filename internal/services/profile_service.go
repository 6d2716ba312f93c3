package services

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/apperr"
	"storefront/internal/domain"
	"storefront/internal/repos"
)

// ProfileService manages the optional profile of the signed-in principal.
type ProfileService struct {
	Profiles *repos.ProfileRepo
}

func NewProfileService(r *repos.ProfileRepo) *ProfileService { return &ProfileService{Profiles: r} }

// ProfileInput is a whole profile. Omitted fields are stored empty.
type ProfileInput struct {
	FirstName    string `json:"first_name" validate:"max=50"`
	LastName     string `json:"last_name" validate:"max=50"`
	Address      string `json:"address" validate:"max=255"`
	Phone        string `json:"phone" validate:"omitempty,phone"`
	ProfileImage string `json:"profile_image" validate:"omitempty,url,max=500"`
}

// ProfilePatch changes only the fields present.
type ProfilePatch struct {
	FirstName    *string `json:"first_name" validate:"omitempty,max=50"`
	LastName     *string `json:"last_name" validate:"omitempty,max=50"`
	Address      *string `json:"address" validate:"omitempty,max=255"`
	Phone        *string `json:"phone" validate:"omitempty,phone"`
	ProfileImage *string `json:"profile_image" validate:"omitempty,url,max=500"`
}

func (in ProfileInput) apply(p *domain.UserProfile) {
	p.FirstName = strings.TrimSpace(in.FirstName)
	p.LastName = strings.TrimSpace(in.LastName)
	p.Address = strings.TrimSpace(in.Address)
	p.Phone = strings.TrimSpace(in.Phone)
	p.ProfileImage = strings.TrimSpace(in.ProfileImage)
}

func (s *ProfileService) Get(ctx context.Context, userID int64) (*domain.UserProfile, error) {
	p, err := s.Profiles.ByUser(ctx, userID)
	if errors.Is(err, repos.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "Profile not found. Create one using POST /users/profile")
	}
	return p, err
}

func (s *ProfileService) Create(ctx context.Context, userID int64, in ProfileInput) (*domain.UserProfile, error) {
	if _, err := s.Profiles.ByUser(ctx, userID); err == nil {
		return nil, apperr.New(apperr.Conflict, "User already has a profile. Use PUT or PATCH to update it.")
	} else if !errors.Is(err, repos.ErrNotFound) {
		return nil, err
	}
	p := &domain.UserProfile{UserID: userID}
	in.apply(p)
	out, err := s.Profiles.Create(ctx, p)
	if repos.IsUniqueViolation(err) {
		return nil, apperr.New(apperr.Conflict, "User already has a profile. Use PUT or PATCH to update it.")
	}
	return out, err
}

// Replace overwrites every field.
func (s *ProfileService) Replace(ctx context.Context, userID int64, in ProfileInput) (*domain.UserProfile, error) {
	p, err := s.existing(ctx, userID)
	if err != nil {
		return nil, err
	}
	in.apply(p)
	return s.save(ctx, p)
}

func (s *ProfileService) Patch(ctx context.Context, userID int64, in ProfilePatch) (*domain.UserProfile, error) {
	p, err := s.existing(ctx, userID)
	if err != nil {
		return nil, err
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&p.FirstName, in.FirstName)
	set(&p.LastName, in.LastName)
	set(&p.Address, in.Address)
	set(&p.Phone, in.Phone)
	set(&p.ProfileImage, in.ProfileImage)
	return s.save(ctx, p)
}

// Delete removes the profile and returns what was removed. The account
// itself is untouched.
func (s *ProfileService) Delete(ctx context.Context, userID int64) (*domain.UserProfile, error) {
	p, err := s.Profiles.ByUser(ctx, userID)
	if errors.Is(err, repos.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "Profile not found. Nothing to delete.")
	}
	if err != nil {
		return nil, err
	}
	if err := s.Profiles.Delete(ctx, userID); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProfileService) existing(ctx context.Context, userID int64) (*domain.UserProfile, error) {
	p, err := s.Profiles.ByUser(ctx, userID)
	if errors.Is(err, repos.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "Profile not found. Create one first using POST /users/profile")
	}
	return p, err
}

func (s *ProfileService) save(ctx context.Context, p *domain.UserProfile) (*domain.UserProfile, error) {
	if err := s.Profiles.Update(ctx, p); err != nil {
		return nil, err
	}
	return s.Profiles.ByUser(ctx, p.UserID)
}
