package services

import (
	"context"
	"errors"

	"storefront/internal/apperr"
	"storefront/internal/domain"
	"storefront/internal/repos"
)

const MaxLineQty = 99

type CartService struct {
	Carts *repos.CartRepo
	Prods *repos.ProductRepo
}

func NewCartService(carts *repos.CartRepo, prods *repos.ProductRepo) *CartService {
	return &CartService{Carts: carts, Prods: prods}
}

func (s *CartService) activeProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.Prods.Get(ctx, id)
	if errors.Is(err, repos.ErrNotFound) || (err == nil && !p.IsActive) {
		return nil, apperr.New(apperr.NotFound, "Product not found")
	}
	return p, err
}

func checkQty(qty int) error {
	if qty < 1 || qty > MaxLineQty {
		return apperr.Newf(apperr.Validation, "Quantity must be between 1 and %d", MaxLineQty)
	}
	return nil
}

func (s *CartService) Add(ctx context.Context, userID, productID int64, qty int) (domain.Cart, error) {
	if err := checkQty(qty); err != nil {
		return domain.Cart{}, err
	}
	p, err := s.activeProduct(ctx, productID)
	if err != nil {
		return domain.Cart{}, err
	}
	cartID, err := s.Carts.EnsureCart(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	if err := s.Carts.AddItem(ctx, cartID, productID, qty, p.Price); err != nil {
		return domain.Cart{}, err
	}
	return s.view(ctx, cartID)
}

func (s *CartService) Update(ctx context.Context, userID, productID int64, qty int) (domain.Cart, error) {
	if err := checkQty(qty); err != nil {
		return domain.Cart{}, err
	}
	cartID, err := s.Carts.EnsureCart(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	if err := s.Carts.SetQty(ctx, cartID, productID, qty); errors.Is(err, repos.ErrNotFound) {
		return domain.Cart{}, apperr.New(apperr.NotFound, "Item not in cart")
	} else if err != nil {
		return domain.Cart{}, err
	}
	return s.view(ctx, cartID)
}

func (s *CartService) Remove(ctx context.Context, userID, productID int64) (domain.Cart, error) {
	cartID, err := s.Carts.EnsureCart(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	if err := s.Carts.RemoveItem(ctx, cartID, productID); errors.Is(err, repos.ErrNotFound) {
		return domain.Cart{}, apperr.New(apperr.NotFound, "Item not in cart")
	} else if err != nil {
		return domain.Cart{}, err
	}
	return s.view(ctx, cartID)
}

func (s *CartService) Clear(ctx context.Context, userID int64) (domain.Cart, error) {
	cartID, err := s.Carts.EnsureCart(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	if err := s.Carts.Clear(ctx, cartID); err != nil {
		return domain.Cart{}, err
	}
	return s.view(ctx, cartID)
}

func (s *CartService) View(ctx context.Context, userID int64) (domain.Cart, error) {
	cartID, err := s.Carts.EnsureCart(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	return s.view(ctx, cartID)
}

func (s *CartService) view(ctx context.Context, cartID int64) (domain.Cart, error) {
	items, err := s.Carts.Items(ctx, cartID)
	if err != nil {
		return domain.Cart{}, err
	}
	total := 0.0
	for _, it := range items {
		total += it.Subtotal
	}
	return domain.Cart{ID: cartID, Items: items, Total: roundCents(total)}, nil
}

func roundCents(v float64) float64 {
	if v < 0 {
		return -roundCents(-v)
	}
	return float64(int64(v*100+0.5)) / 100
}
