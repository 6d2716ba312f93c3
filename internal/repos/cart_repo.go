package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
)

type CartRepo struct{ db *sqlx.DB }

func NewCartRepo(db *sqlx.DB) *CartRepo { return &CartRepo{db: db} }

// EnsureCart returns the user's cart id, creating the cart on first use.
func (r *CartRepo) EnsureCart(ctx context.Context, userID int64) (int64, error) {
	if _, err := exec(ctx, r.db, `
		INSERT INTO carts(user_id) VALUES(?)
		ON CONFLICT(user_id) DO NOTHING`, userID); err != nil {
		return 0, err
	}
	var id int64
	err := get(ctx, r.db, &id, `SELECT id FROM carts WHERE user_id=?`, userID)
	return id, err
}

// AddItem inserts a line or adds qty to an existing one. The unit price is
// refreshed to the current product price.
func (r *CartRepo) AddItem(ctx context.Context, cartID, productID int64, qty int, price float64) error {
	_, err := exec(ctx, r.db, `
		INSERT INTO cart_items(cart_id,product_id,quantity,unit_price)
		VALUES(?,?,?,?)
		ON CONFLICT(cart_id,product_id) DO UPDATE
		SET quantity = cart_items.quantity + excluded.quantity,
		    unit_price = excluded.unit_price,
		    updated_at = CURRENT_TIMESTAMP`, cartID, productID, qty, price)
	if err != nil {
		return err
	}
	return r.touch(ctx, cartID)
}

func (r *CartRepo) SetQty(ctx context.Context, cartID, productID int64, qty int) error {
	if err := affected(ctx, r.db, `
		UPDATE cart_items SET quantity=?, updated_at=CURRENT_TIMESTAMP
		WHERE cart_id=? AND product_id=?`, qty, cartID, productID); err != nil {
		return err
	}
	return r.touch(ctx, cartID)
}

func (r *CartRepo) RemoveItem(ctx context.Context, cartID, productID int64) error {
	if err := affected(ctx, r.db, `DELETE FROM cart_items WHERE cart_id=? AND product_id=?`, cartID, productID); err != nil {
		return err
	}
	return r.touch(ctx, cartID)
}

func (r *CartRepo) Items(ctx context.Context, cartID int64) ([]domain.CartItem, error) {
	out := []domain.CartItem{}
	err := sel(ctx, r.db, &out, `
		SELECT ci.product_id, p.name, p.sku, ci.quantity, ci.unit_price,
		       (ci.quantity*ci.unit_price) AS subtotal
		FROM cart_items ci JOIN products p ON p.id=ci.product_id
		WHERE ci.cart_id=?
		ORDER BY p.name`, cartID)
	return out, err
}

func (r *CartRepo) Clear(ctx context.Context, cartID int64) error {
	if _, err := exec(ctx, r.db, `DELETE FROM cart_items WHERE cart_id=?`, cartID); err != nil {
		return err
	}
	return r.touch(ctx, cartID)
}

func (r *CartRepo) touch(ctx context.Context, cartID int64) error {
	_, err := exec(ctx, r.db, `UPDATE carts SET updated_at=CURRENT_TIMESTAMP WHERE id=?`, cartID)
	return err
}
