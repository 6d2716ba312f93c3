package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
)

// InventoryRepo owns physical stores and their per-product shelf counts.
type InventoryRepo struct{ db *sqlx.DB }

func NewInventoryRepo(db *sqlx.DB) *InventoryRepo { return &InventoryRepo{db: db} }

const storeCols = `id,name,address,phone,email,is_active,created_at,updated_at`

func (r *InventoryRepo) Store(ctx context.Context, id int64) (*domain.Store, error) {
	var s domain.Store
	if err := get(ctx, r.db, &s, `SELECT `+storeCols+` FROM stores WHERE id=?`, id); err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *InventoryRepo) Stores(ctx context.Context, activeOnly bool) ([]domain.Store, error) {
	q := `SELECT ` + storeCols + ` FROM stores`
	if activeOnly {
		q += ` WHERE is_active=TRUE`
	}
	q += ` ORDER BY name`
	out := []domain.Store{}
	err := sel(ctx, r.db, &out, q)
	return out, err
}

func (r *InventoryRepo) CreateStore(ctx context.Context, s *domain.Store) (int64, error) {
	return insertID(ctx, r.db, `
		INSERT INTO stores(name,address,phone,email,is_active)
		VALUES(?,?,?,?,?)
		RETURNING id`, s.Name, s.Address, s.Phone, s.Email, s.IsActive)
}

func (r *InventoryRepo) UpdateStore(ctx context.Context, s *domain.Store) error {
	return affected(ctx, r.db, `
		UPDATE stores SET name=?, address=?, phone=?, email=?, is_active=?, updated_at=CURRENT_TIMESTAMP
		WHERE id=?`, s.Name, s.Address, s.Phone, s.Email, s.IsActive, s.ID)
}

const inventoryCols = `i.store_id, i.product_id, p.name AS product_name, p.sku, i.quantity, i.location, i.low_stock_threshold, i.updated_at`

// ListAll returns the shelf rows of one store, or of every store when
// storeID is nil.
func (r *InventoryRepo) ListAll(ctx context.Context, storeID *int64) ([]domain.InventoryRow, error) {
	q := `SELECT ` + inventoryCols + ` FROM store_inventory i JOIN products p ON p.id=i.product_id`
	var args []any
	if storeID != nil {
		q += ` WHERE i.store_id=?`
		args = append(args, *storeID)
	}
	q += ` ORDER BY i.store_id, p.name`
	out := []domain.InventoryRow{}
	err := sel(ctx, r.db, &out, q, args...)
	return out, err
}

// LowStock returns rows at or below their threshold.
func (r *InventoryRepo) LowStock(ctx context.Context, storeID *int64) ([]domain.InventoryRow, error) {
	q := `SELECT ` + inventoryCols + ` FROM store_inventory i JOIN products p ON p.id=i.product_id
		WHERE i.quantity <= i.low_stock_threshold`
	var args []any
	if storeID != nil {
		q += ` AND i.store_id=?`
		args = append(args, *storeID)
	}
	q += ` ORDER BY i.quantity, p.name`
	out := []domain.InventoryRow{}
	err := sel(ctx, r.db, &out, q, args...)
	return out, err
}

// Qty returns the shelf count of a product in a store, or ErrNotFound when
// the store does not carry it.
func (r *InventoryRepo) Qty(ctx context.Context, storeID, productID int64) (qty, threshold int, err error) {
	var row struct {
		Quantity  int `db:"quantity"`
		Threshold int `db:"low_stock_threshold"`
	}
	if err := get(ctx, r.db, &row, `
		SELECT quantity, low_stock_threshold FROM store_inventory
		WHERE store_id=? AND product_id=?`, storeID, productID); err != nil {
		return 0, 0, notFound(err)
	}
	return row.Quantity, row.Threshold, nil
}

// Upsert sets quantity, location and threshold for (store, product) and
// records the signed difference as an adjustment made by userID.
func (r *InventoryRepo) Upsert(ctx context.Context, row domain.InventoryRow, userID int64) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var prev int
		err := get(ctx, tx, &prev, `SELECT quantity FROM store_inventory WHERE store_id=? AND product_id=?`, row.StoreID, row.ProductID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if _, err := exec(ctx, tx, `
			INSERT INTO store_inventory(store_id,product_id,quantity,location,low_stock_threshold,updated_at)
			VALUES(?,?,?,?,?,CURRENT_TIMESTAMP)
			ON CONFLICT(store_id,product_id) DO UPDATE
			SET quantity=excluded.quantity,
			    location=excluded.location,
			    low_stock_threshold=excluded.low_stock_threshold,
			    updated_at=CURRENT_TIMESTAMP`,
			row.StoreID, row.ProductID, row.Quantity, row.Location, row.LowStockThreshold); err != nil {
			return err
		}
		if delta := row.Quantity - prev; delta != 0 {
			return recordMovement(ctx, tx, domain.InventoryMovement{
				StoreID: row.StoreID, ProductID: row.ProductID, UserID: &userID,
				MovementType: domain.MovementAdjustment, Quantity: delta,
			})
		}
		return nil
	})
}

func recordMovement(ctx context.Context, q sqlx.ExtContext, m domain.InventoryMovement) error {
	_, err := exec(ctx, q, `
		INSERT INTO inventory_movements(store_id,product_id,user_id,movement_type,quantity,reference)
		VALUES(?,?,?,?,?,?)`, m.StoreID, m.ProductID, m.UserID, m.MovementType, m.Quantity, m.Reference)
	return err
}

// Movements returns the newest shelf movements of a store first.
func (r *InventoryRepo) Movements(ctx context.Context, storeID int64, limit int) ([]domain.InventoryMovement, error) {
	out := []domain.InventoryMovement{}
	err := sel(ctx, r.db, &out, `
		SELECT id,store_id,product_id,user_id,movement_type,quantity,reference,created_at
		FROM inventory_movements
		WHERE store_id=?
		ORDER BY id DESC
		LIMIT ?`, storeID, limit)
	return out, err
}
