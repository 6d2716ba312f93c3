package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
)

type WishlistRepo struct{ db *sqlx.DB }

func NewWishlistRepo(db *sqlx.DB) *WishlistRepo { return &WishlistRepo{db: db} }

// Add saves productID for userID; saving twice is a no-op.
func (r *WishlistRepo) Add(ctx context.Context, userID, productID int64) error {
	_, err := exec(ctx, r.db, `
		INSERT INTO wishlist_items(user_id, product_id)
		VALUES(?, ?)
		ON CONFLICT(user_id, product_id) DO NOTHING`, userID, productID)
	return err
}

func (r *WishlistRepo) Remove(ctx context.Context, userID, productID int64) error {
	return affected(ctx, r.db, `DELETE FROM wishlist_items WHERE user_id=? AND product_id=?`, userID, productID)
}

func (r *WishlistRepo) List(ctx context.Context, userID int64) ([]domain.WishlistItem, error) {
	out := []domain.WishlistItem{}
	err := sel(ctx, r.db, &out, `
		SELECT p.id AS product_id, p.name, p.sku, p.price, p.is_active, wi.created_at
		FROM wishlist_items wi
		JOIN products p ON p.id = wi.product_id
		WHERE wi.user_id = ?
		ORDER BY wi.created_at DESC, p.name`, userID)
	return out, err
}
