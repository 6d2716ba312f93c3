package repos

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type ReportRepo struct{ db *sqlx.DB }

func NewReportRepo(db *sqlx.DB) *ReportRepo { return &ReportRepo{db: db} }

type StatusTotal struct {
	Status  string  `db:"status" json:"status"`
	Orders  int     `db:"orders" json:"orders"`
	Revenue float64 `db:"revenue" json:"revenue"`
}

type TopProduct struct {
	ProductID int64   `db:"product_id" json:"product_id"`
	Name      string  `db:"name" json:"name"`
	SKU       string  `db:"sku" json:"sku"`
	Units     int     `db:"units" json:"units"`
	Revenue   float64 `db:"revenue" json:"revenue"`
}

type CatalogCounts struct {
	Users      int `db:"users" json:"users"`
	Products   int `db:"products" json:"products"`
	Categories int `db:"categories" json:"categories"`
	Stores     int `db:"stores" json:"stores"`
}

func (r *ReportRepo) SalesByStatus(ctx context.Context) ([]StatusTotal, error) {
	out := []StatusTotal{}
	err := sel(ctx, r.db, &out, `
		SELECT status, COUNT(*) AS orders, COALESCE(SUM(total),0) AS revenue
		FROM orders
		GROUP BY status
		ORDER BY status`)
	return out, err
}

// TopProducts ranks products by units sold on orders that were not cancelled.
func (r *ReportRepo) TopProducts(ctx context.Context, limit int) ([]TopProduct, error) {
	out := []TopProduct{}
	err := sel(ctx, r.db, &out, `
		SELECT p.id AS product_id, p.name, p.sku,
		       SUM(oi.quantity) AS units,
		       SUM(oi.quantity*oi.price_at_time) AS revenue
		FROM order_items oi
		JOIN orders o   ON o.id=oi.order_id
		JOIN products p ON p.id=oi.product_id
		WHERE o.status<>'cancelled'
		GROUP BY p.id, p.name, p.sku
		ORDER BY units DESC, revenue DESC, p.id
		LIMIT ?`, limit)
	return out, err
}

func (r *ReportRepo) Counts(ctx context.Context) (CatalogCounts, error) {
	var c CatalogCounts
	err := get(ctx, r.db, &c, `
		SELECT
		  (SELECT COUNT(*) FROM users)                          AS users,
		  (SELECT COUNT(*) FROM products WHERE is_active=TRUE)   AS products,
		  (SELECT COUNT(*) FROM categories WHERE is_active=TRUE) AS categories,
		  (SELECT COUNT(*) FROM stores WHERE is_active=TRUE)     AS stores`)
	return c, err
}
