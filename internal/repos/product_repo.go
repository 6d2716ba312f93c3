package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

const productCols = `id,name,sku,price,description,image_url,online_stock,is_featured,is_active,product_type,created_at,updated_at`

func (r *ProductRepo) Get(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	if err := get(ctx, r.db, &p, `SELECT `+productCols+` FROM products WHERE id=?`, id); err != nil {
		return nil, notFound(err)
	}
	if err := r.attachCategories(ctx, []*domain.Product{&p}); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepo) SKUTaken(ctx context.Context, sku string, excludeID int64) (bool, error) {
	var n int
	err := get(ctx, r.db, &n, `SELECT COUNT(*) FROM products WHERE LOWER(sku)=LOWER(?) AND id<>?`, sku, excludeID)
	return n > 0, err
}

func (r *ProductRepo) Create(ctx context.Context, p *domain.Product) (int64, error) {
	var id int64
	err := inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		id, err = insertID(ctx, tx, `
			INSERT INTO products(name,sku,price,description,image_url,online_stock,is_featured,is_active,product_type)
			VALUES(?,?,?,?,?,?,?,?,?)
			RETURNING id`,
			p.Name, p.SKU, p.Price, p.Description, p.ImageURL, p.OnlineStock, p.IsFeatured, p.IsActive, p.ProductType)
		if err != nil {
			return err
		}
		return linkCategories(ctx, tx, id, p.CategoryIDs)
	})
	return id, err
}

// Update writes every mutable column. Category links are replaced only when
// replaceCategories is set.
func (r *ProductRepo) Update(ctx context.Context, p *domain.Product, replaceCategories bool) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		err := affected(ctx, tx, `
			UPDATE products
			SET name=?, sku=?, price=?, description=?, image_url=?, online_stock=?, is_featured=?, is_active=?, product_type=?,
			    updated_at=CURRENT_TIMESTAMP
			WHERE id=?`,
			p.Name, p.SKU, p.Price, p.Description, p.ImageURL, p.OnlineStock, p.IsFeatured, p.IsActive, p.ProductType, p.ID)
		if err != nil || !replaceCategories {
			return err
		}
		if _, err := exec(ctx, tx, `DELETE FROM product_categories WHERE product_id=?`, p.ID); err != nil {
			return err
		}
		return linkCategories(ctx, tx, p.ID, p.CategoryIDs)
	})
}

func linkCategories(ctx context.Context, tx *sqlx.Tx, productID int64, categoryIDs []int64) error {
	for _, cid := range categoryIDs {
		if _, err := exec(ctx, tx, `
			INSERT INTO product_categories(product_id,category_id) VALUES(?,?)
			ON CONFLICT(product_id,category_id) DO NOTHING`, productID, cid); err != nil {
			return err
		}
	}
	return nil
}

func (r *ProductRepo) SetActive(ctx context.Context, id int64, active bool) error {
	return affected(ctx, r.db, `UPDATE products SET is_active=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`, active, id)
}

func (r *ProductRepo) SetStock(ctx context.Context, id int64, stock int) error {
	return affected(ctx, r.db, `UPDATE products SET online_stock=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`, stock, id)
}

type ProductFilter struct {
	Query           string
	CategoryID      *int64
	MinPrice        *float64
	MaxPrice        *float64
	IsFeatured      *bool
	IncludeInactive bool
	Skip            int
	Limit           int
}

func (r *ProductRepo) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	q := `SELECT ` + productCols + ` FROM products p WHERE 1=1`
	var args []any
	if !f.IncludeInactive {
		q += ` AND p.is_active=TRUE`
	}
	if f.Query != "" {
		q += ` AND (LOWER(p.name) LIKE LOWER(?) OR LOWER(p.sku) LIKE LOWER(?))`
		like := "%" + f.Query + "%"
		args = append(args, like, like)
	}
	if f.CategoryID != nil {
		q += ` AND EXISTS (SELECT 1 FROM product_categories pc WHERE pc.product_id=p.id AND pc.category_id=?)`
		args = append(args, *f.CategoryID)
	}
	if f.MinPrice != nil {
		q += ` AND p.price>=?`
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q += ` AND p.price<=?`
		args = append(args, *f.MaxPrice)
	}
	if f.IsFeatured != nil {
		q += ` AND p.is_featured=?`
		args = append(args, *f.IsFeatured)
	}
	q += ` ORDER BY p.name, p.id LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Skip)

	out := []domain.Product{}
	if err := sel(ctx, r.db, &out, q, args...); err != nil {
		return nil, err
	}
	ptrs := make([]*domain.Product, len(out))
	for i := range out {
		ptrs[i] = &out[i]
	}
	return out, r.attachCategories(ctx, ptrs)
}

func (r *ProductRepo) attachCategories(ctx context.Context, ps []*domain.Product) error {
	if len(ps) == 0 {
		return nil
	}
	ids := make([]int64, len(ps))
	byID := make(map[int64]*domain.Product, len(ps))
	for i, p := range ps {
		ids[i] = p.ID
		p.CategoryIDs = []int64{}
		byID[p.ID] = p
	}
	query, args, err := sqlx.In(`SELECT product_id, category_id FROM product_categories WHERE product_id IN (?) ORDER BY category_id`, ids)
	if err != nil {
		return err
	}
	var links []struct {
		ProductID  int64 `db:"product_id"`
		CategoryID int64 `db:"category_id"`
	}
	if err := sel(ctx, r.db, &links, query, args...); err != nil {
		return err
	}
	for _, l := range links {
		byID[l.ProductID].CategoryIDs = append(byID[l.ProductID].CategoryIDs, l.CategoryID)
	}
	return nil
}
