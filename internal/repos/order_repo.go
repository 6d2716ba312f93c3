package repos

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

// InsufficientStockError names the first line that could not be reserved.
type InsufficientStockError struct {
	ProductID int64
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d (requested %d)", e.ProductID, e.Requested)
}

const orderCols = `id,reference,user_id,total,status,delivery_method,store_id,shipping_address,tracking_number,created_at,updated_at`

// Place reserves stock for every line, writes the order with its items and
// empties the cart, all in one transaction. Pickup orders draw from the
// store's shelf; shipped orders from online stock.
func (r *OrderRepo) Place(ctx context.Context, o *domain.Order, cartID int64) (int64, error) {
	var id int64
	err := inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, it := range o.Items {
			if err := reserve(ctx, tx, o, it); err != nil {
				return err
			}
		}
		var err error
		id, err = insertID(ctx, tx, `
			INSERT INTO orders(reference,user_id,total,status,delivery_method,store_id,shipping_address)
			VALUES(?,?,?,?,?,?,?)
			RETURNING id`,
			o.Reference, o.UserID, o.Total, o.Status, o.DeliveryMethod, o.StoreID, o.ShippingAddress)
		if err != nil {
			return err
		}
		for _, it := range o.Items {
			if _, err := exec(ctx, tx, `
				INSERT INTO order_items(order_id,product_id,quantity,price_at_time)
				VALUES(?,?,?,?)`, id, it.ProductID, it.Quantity, it.PriceAtTime); err != nil {
				return err
			}
		}
		_, err = exec(ctx, tx, `DELETE FROM cart_items WHERE cart_id=?`, cartID)
		return err
	})
	return id, err
}

func reserve(ctx context.Context, tx *sqlx.Tx, o *domain.Order, it domain.OrderItem) error {
	var err error
	if o.DeliveryMethod == domain.DeliveryStorePickup && o.StoreID != nil {
		err = affected(ctx, tx, `
			UPDATE store_inventory SET quantity=quantity-?, updated_at=CURRENT_TIMESTAMP
			WHERE store_id=? AND product_id=? AND quantity>=?`, it.Quantity, *o.StoreID, it.ProductID, it.Quantity)
	} else {
		err = affected(ctx, tx, `
			UPDATE products SET online_stock=online_stock-?, updated_at=CURRENT_TIMESTAMP
			WHERE id=? AND is_active=TRUE AND online_stock>=?`, it.Quantity, it.ProductID, it.Quantity)
	}
	if errors.Is(err, ErrNotFound) {
		return &InsufficientStockError{ProductID: it.ProductID, Requested: it.Quantity}
	}
	if err != nil || o.DeliveryMethod != domain.DeliveryStorePickup || o.StoreID == nil {
		return err
	}
	return recordMovement(ctx, tx, domain.InventoryMovement{
		StoreID: *o.StoreID, ProductID: it.ProductID, UserID: &o.UserID,
		MovementType: domain.MovementReservation, Quantity: -it.Quantity, Reference: o.Reference,
	})
}

func release(ctx context.Context, tx *sqlx.Tx, o *domain.Order, it domain.OrderItem) error {
	if o.DeliveryMethod == domain.DeliveryStorePickup && o.StoreID != nil {
		if _, err := exec(ctx, tx, `
			UPDATE store_inventory SET quantity=quantity+?, updated_at=CURRENT_TIMESTAMP
			WHERE store_id=? AND product_id=?`, it.Quantity, *o.StoreID, it.ProductID); err != nil {
			return err
		}
		return recordMovement(ctx, tx, domain.InventoryMovement{
			StoreID: *o.StoreID, ProductID: it.ProductID,
			MovementType: domain.MovementRelease, Quantity: it.Quantity, Reference: o.Reference,
		})
	}
	_, err := exec(ctx, tx, `
		UPDATE products SET online_stock=online_stock+?, updated_at=CURRENT_TIMESTAMP
		WHERE id=?`, it.Quantity, it.ProductID)
	return err
}

func (r *OrderRepo) Get(ctx context.Context, id int64) (*domain.Order, error) {
	return getOrder(ctx, r.db, id)
}

func getOrder(ctx context.Context, q sqlx.ExtContext, id int64) (*domain.Order, error) {
	var o domain.Order
	if err := get(ctx, q, &o, `SELECT `+orderCols+` FROM orders WHERE id=?`, id); err != nil {
		return nil, notFound(err)
	}
	o.Items = []domain.OrderItem{}
	if err := sel(ctx, q, &o.Items, `
		SELECT oi.product_id, p.name, oi.quantity, oi.price_at_time,
		       (oi.quantity*oi.price_at_time) AS subtotal
		FROM order_items oi JOIN products p ON p.id=oi.product_id
		WHERE oi.order_id=?
		ORDER BY p.name`, id); err != nil {
		return nil, err
	}
	return &o, nil
}

type OrderFilter struct {
	UserID *int64
	Status string
	Skip   int
	Limit  int
}

func (r *OrderRepo) List(ctx context.Context, f OrderFilter) ([]domain.Order, error) {
	q := `SELECT ` + orderCols + ` FROM orders WHERE 1=1`
	var args []any
	if f.UserID != nil {
		q += ` AND user_id=?`
		args = append(args, *f.UserID)
	}
	if f.Status != "" {
		q += ` AND status=?`
		args = append(args, f.Status)
	}
	q += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Skip)

	out := []domain.Order{}
	err := sel(ctx, r.db, &out, q, args...)
	return out, err
}

// SetStatus moves an order to status. Cancelling returns reserved stock in
// the same transaction. check is called with the current order and may veto.
func (r *OrderRepo) SetStatus(ctx context.Context, id int64, status, tracking string, check func(*domain.Order) error) (*domain.Order, error) {
	var out *domain.Order
	err := inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		o, err := getOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(o); err != nil {
				return err
			}
		}
		if status == domain.OrderCancelled {
			for _, it := range o.Items {
				if err := release(ctx, tx, o, it); err != nil {
					return err
				}
			}
		}
		if tracking == "" {
			tracking = o.TrackingNumber
		}
		if err := affected(ctx, tx, `
			UPDATE orders SET status=?, tracking_number=?, updated_at=CURRENT_TIMESTAMP
			WHERE id=?`, status, tracking, id); err != nil {
			return err
		}
		out, err = getOrder(ctx, tx, id)
		return err
	})
	return out, err
}
