package services

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/apperr"
	"storefront/internal/domain"
	"storefront/internal/repos"
)

const MaxMovementPage = 200

type InventoryService struct {
	Inv   *repos.InventoryRepo
	Prods *repos.ProductRepo
}

func NewInventoryService(inv *repos.InventoryRepo, prods *repos.ProductRepo) *InventoryService {
	return &InventoryService{Inv: inv, Prods: prods}
}

type StoreInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Address  string `json:"address" validate:"max=300"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Email    string `json:"email" validate:"omitempty,email"`
	IsActive *bool  `json:"is_active"`
}

type InventoryInput struct {
	ProductID         int64  `json:"product_id" validate:"required,gt=0"`
	Quantity          int    `json:"quantity" validate:"gte=0"`
	Location          string `json:"location" validate:"max=50"`
	LowStockThreshold *int   `json:"low_stock_threshold" validate:"omitempty,gte=0"`
}

func (s *InventoryService) Store(ctx context.Context, id int64) (*domain.Store, error) {
	st, err := s.Inv.Store(ctx, id)
	if errors.Is(err, repos.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "Store not found")
	}
	return st, err
}

func (s *InventoryService) Stores(ctx context.Context, activeOnly bool) ([]domain.Store, error) {
	return s.Inv.Stores(ctx, activeOnly)
}

func (s *InventoryService) CreateStore(ctx context.Context, in StoreInput) (*domain.Store, error) {
	st := &domain.Store{
		Name: strings.TrimSpace(in.Name), Address: in.Address, Phone: in.Phone, Email: in.Email,
		IsActive: in.IsActive == nil || *in.IsActive,
	}
	id, err := s.Inv.CreateStore(ctx, st)
	if repos.IsUniqueViolation(err) {
		return nil, apperr.New(apperr.Conflict, "A store with this name already exists")
	}
	if err != nil {
		return nil, err
	}
	return s.Inv.Store(ctx, id)
}

func (s *InventoryService) UpdateStore(ctx context.Context, id int64, in StoreInput) (*domain.Store, error) {
	cur, err := s.Store(ctx, id)
	if err != nil {
		return nil, err
	}
	cur.Name = strings.TrimSpace(in.Name)
	cur.Address = in.Address
	cur.Phone = in.Phone
	cur.Email = in.Email
	if in.IsActive != nil {
		cur.IsActive = *in.IsActive
	}
	if err := s.Inv.UpdateStore(ctx, cur); err != nil {
		if repos.IsUniqueViolation(err) {
			return nil, apperr.New(apperr.Conflict, "A store with this name already exists")
		}
		return nil, err
	}
	return s.Inv.Store(ctx, id)
}

func (s *InventoryService) StoreInventory(ctx context.Context, storeID int64) ([]domain.InventoryRow, error) {
	if _, err := s.Store(ctx, storeID); err != nil {
		return nil, err
	}
	return s.Inv.ListAll(ctx, &storeID)
}

// SetInventory upserts a shelf row; userID is recorded on the movement.
func (s *InventoryService) SetInventory(ctx context.Context, storeID, userID int64, in InventoryInput) ([]domain.InventoryRow, error) {
	if _, err := s.Store(ctx, storeID); err != nil {
		return nil, err
	}
	if in.Quantity < 0 {
		return nil, apperr.New(apperr.Validation, "Quantity cannot be negative")
	}
	if _, err := s.Prods.Get(ctx, in.ProductID); errors.Is(err, repos.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "Product not found")
	} else if err != nil {
		return nil, err
	}
	threshold := domain.DefaultLowStockThreshold
	if in.LowStockThreshold != nil {
		threshold = *in.LowStockThreshold
	}
	row := domain.InventoryRow{
		StoreID: storeID, ProductID: in.ProductID, Quantity: in.Quantity,
		Location: strings.TrimSpace(in.Location), LowStockThreshold: threshold,
	}
	if err := s.Inv.Upsert(ctx, row, userID); err != nil {
		return nil, err
	}
	return s.Inv.ListAll(ctx, &storeID)
}

func (s *InventoryService) LowStock(ctx context.Context, storeID *int64) ([]domain.InventoryRow, error) {
	if storeID != nil {
		if _, err := s.Store(ctx, *storeID); err != nil {
			return nil, err
		}
	}
	return s.Inv.LowStock(ctx, storeID)
}

func (s *InventoryService) Movements(ctx context.Context, storeID int64, limit int) ([]domain.InventoryMovement, error) {
	if _, err := s.Store(ctx, storeID); err != nil {
		return nil, err
	}
	return s.Inv.Movements(ctx, storeID, clamp(limit, 1, MaxMovementPage, 50))
}

// CheckAvailability classifies stock as IN_STOCK, LOW_STOCK or OUT_OF_STOCK.
// With a store it reads the shelf row and that row's threshold; without one
// it reads online stock against the default threshold. A store that does not
// carry the product counts as zero.
func (s *InventoryService) CheckAvailability(ctx context.Context, productID int64, storeID *int64) (domain.Availability, error) {
	p, err := s.Prods.Get(ctx, productID)
	if errors.Is(err, repos.ErrNotFound) || (err == nil && !p.IsActive) {
		return domain.Availability{}, apperr.New(apperr.NotFound, "Product not found")
	}
	if err != nil {
		return domain.Availability{}, err
	}
	a := domain.Availability{ProductID: productID, StoreID: storeID}
	if storeID == nil {
		a.Qty = p.OnlineStock
		a.Status = stockStatus(a.Qty, domain.DefaultLowStockThreshold)
		return a, nil
	}
	if _, err := s.Store(ctx, *storeID); err != nil {
		return domain.Availability{}, err
	}
	qty, threshold, err := s.Inv.Qty(ctx, *storeID, productID)
	if errors.Is(err, repos.ErrNotFound) {
		a.Status = domain.StockOut
		return a, nil
	}
	if err != nil {
		return domain.Availability{}, err
	}
	a.Qty = qty
	a.Status = stockStatus(qty, threshold)
	return a, nil
}

func stockStatus(qty, threshold int) string {
	switch {
	case qty <= 0:
		return domain.StockOut
	case qty <= threshold:
		return domain.StockLow
	default:
		return domain.StockIn
	}
}
