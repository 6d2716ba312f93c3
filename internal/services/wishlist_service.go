package services

import (
	"context"
	"errors"

	"storefront/internal/apperr"
	"storefront/internal/domain"
	"storefront/internal/repos"
)

type WishlistService struct {
	Repo  *repos.WishlistRepo
	Prods *repos.ProductRepo
}

func NewWishlistService(r *repos.WishlistRepo, prods *repos.ProductRepo) *WishlistService {
	return &WishlistService{Repo: r, Prods: prods}
}

func (s *WishlistService) Save(ctx context.Context, userID, productID int64) ([]domain.WishlistItem, error) {
	p, err := s.Prods.Get(ctx, productID)
	if errors.Is(err, repos.ErrNotFound) || (err == nil && !p.IsActive) {
		return nil, apperr.New(apperr.NotFound, "Product not found")
	}
	if err != nil {
		return nil, err
	}
	if err := s.Repo.Add(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.Repo.List(ctx, userID)
}

func (s *WishlistService) Unsave(ctx context.Context, userID, productID int64) ([]domain.WishlistItem, error) {
	if err := s.Repo.Remove(ctx, userID, productID); errors.Is(err, repos.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "Product not in wishlist")
	} else if err != nil {
		return nil, err
	}
	return s.Repo.List(ctx, userID)
}

func (s *WishlistService) List(ctx context.Context, userID int64) ([]domain.WishlistItem, error) {
	return s.Repo.List(ctx, userID)
}
