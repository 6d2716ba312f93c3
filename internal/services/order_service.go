package services

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/google/uuid"

	"storefront/internal/apperr"
	"storefront/internal/domain"
	"storefront/internal/repos"
)

const MaxOrderPage = 100

type CheckoutInput struct {
	DeliveryMethod  string `json:"delivery_method" validate:"required,oneof=shipping store_pickup"`
	StoreID         *int64 `json:"store_id" validate:"omitempty,gt=0"`
	ShippingAddress string `json:"shipping_address" validate:"max=500"`
	// ExpectedTotal, when sent, must equal the total computed from current
	// prices.
	ExpectedTotal *float64 `json:"expected_total" validate:"omitempty,gte=0"`
}

type OrderService struct {
	Carts  *repos.CartRepo
	Inv    *repos.InventoryRepo
	Orders *repos.OrderRepo
	Prods  *repos.ProductRepo
}

func NewOrderService(carts *repos.CartRepo, inv *repos.InventoryRepo, orders *repos.OrderRepo, prods *repos.ProductRepo) *OrderService {
	return &OrderService{Carts: carts, Inv: inv, Orders: orders, Prods: prods}
}

// Checkout turns the principal's cart into a pending order. Prices are taken
// from the product rows at checkout, never from the cart or the client.
func (s *OrderService) Checkout(ctx context.Context, userID int64, in CheckoutInput) (*domain.Order, error) {
	o := &domain.Order{
		Reference:       uuid.NewString(),
		UserID:          userID,
		Status:          domain.OrderPending,
		DeliveryMethod:  in.DeliveryMethod,
		ShippingAddress: strings.TrimSpace(in.ShippingAddress),
	}
	switch in.DeliveryMethod {
	case domain.DeliveryShipping:
		if o.ShippingAddress == "" {
			return nil, apperr.New(apperr.Validation, "Shipping address is required")
		}
	case domain.DeliveryStorePickup:
		if in.StoreID == nil {
			return nil, apperr.New(apperr.Validation, "store_id is required for store pickup")
		}
		st, err := s.Inv.Store(ctx, *in.StoreID)
		if errors.Is(err, repos.ErrNotFound) || (err == nil && !st.IsActive) {
			return nil, apperr.New(apperr.Validation, "Store not found or inactive")
		}
		if err != nil {
			return nil, err
		}
		o.StoreID = in.StoreID
	default:
		return nil, apperr.New(apperr.Validation, "delivery_method must be shipping or store_pickup")
	}

	cartID, err := s.Carts.EnsureCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.Carts.Items(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperr.New(apperr.Validation, "Cart is empty")
	}

	total := 0.0
	for _, it := range items {
		p, err := s.Prods.Get(ctx, it.ProductID)
		if errors.Is(err, repos.ErrNotFound) || (err == nil && !p.IsActive) {
			return nil, apperr.Newf(apperr.Validation, "Product %s is no longer available", it.SKU)
		}
		if err != nil {
			return nil, err
		}
		total += p.Price * float64(it.Quantity)
		o.Items = append(o.Items, domain.OrderItem{
			ProductID: p.ID, Name: p.Name, Quantity: it.Quantity, PriceAtTime: p.Price,
		})
	}
	o.Total = roundCents(total)
	if in.ExpectedTotal != nil && math.Abs(*in.ExpectedTotal-o.Total) > 0.005 {
		return nil, apperr.Newf(apperr.Validation, "Cart total changed to %.2f; review the cart and retry", o.Total)
	}

	id, err := s.Orders.Place(ctx, o, cartID)
	var short *repos.InsufficientStockError
	if errors.As(err, &short) {
		return nil, apperr.Wrap(err, apperr.Validation,
			"Insufficient stock for product "+skuOf(items, short.ProductID))
	}
	if err != nil {
		return nil, err
	}
	return s.Orders.Get(ctx, id)
}

func skuOf(items []domain.CartItem, productID int64) string {
	for _, it := range items {
		if it.ProductID == productID {
			return it.SKU
		}
	}
	return ""
}

// Get returns an order. A non-nil ownerID restricts the lookup to that
// principal's orders; someone else's order reads as not found.
func (s *OrderService) Get(ctx context.Context, id int64, ownerID *int64) (*domain.Order, error) {
	o, err := s.Orders.Get(ctx, id)
	if errors.Is(err, repos.ErrNotFound) || (err == nil && ownerID != nil && o.UserID != *ownerID) {
		return nil, apperr.New(apperr.NotFound, "Order not found")
	}
	return o, err
}

func (s *OrderService) List(ctx context.Context, f repos.OrderFilter) ([]domain.Order, error) {
	if f.Status != "" && !domain.ValidOrderStatus(f.Status) {
		return nil, apperr.Newf(apperr.Validation, "Unknown order status %q", f.Status)
	}
	f.Limit = clamp(f.Limit, 1, MaxOrderPage, 20)
	if f.Skip < 0 {
		f.Skip = 0
	}
	return s.Orders.List(ctx, f)
}

// SetStatus moves an order along its lifecycle. Cancelling returns the
// reserved stock.
func (s *OrderService) SetStatus(ctx context.Context, id int64, status, tracking string) (*domain.Order, error) {
	if !domain.ValidOrderStatus(status) {
		return nil, apperr.Newf(apperr.Validation, "Unknown order status %q", status)
	}
	o, err := s.Orders.SetStatus(ctx, id, status, strings.TrimSpace(tracking), func(cur *domain.Order) error {
		if !domain.CanTransition(cur.Status, status) {
			return apperr.Newf(apperr.Validation, "Cannot change order status from %s to %s", cur.Status, status)
		}
		return nil
	})
	if errors.Is(err, repos.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "Order not found")
	}
	return o, err
}

// Cancel lets the owner cancel an order that has not shipped.
func (s *OrderService) Cancel(ctx context.Context, userID, id int64) (*domain.Order, error) {
	if _, err := s.Get(ctx, id, &userID); err != nil {
		return nil, err
	}
	return s.SetStatus(ctx, id, domain.OrderCancelled, "")
}
