package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
)

type CategoryRepo struct{ db *sqlx.DB }

func NewCategoryRepo(db *sqlx.DB) *CategoryRepo { return &CategoryRepo{db: db} }

const categoryCols = `id,name,description,category_image,parent_category_id,is_active,created_at,updated_at`

func (r *CategoryRepo) Get(ctx context.Context, id int64) (*domain.Category, error) {
	var c domain.Category
	if err := get(ctx, r.db, &c, `SELECT `+categoryCols+` FROM categories WHERE id=?`, id); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// NameTaken reports whether another category already uses name,
// compared case-insensitively. excludeID skips the row being edited.
func (r *CategoryRepo) NameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	var n int
	err := get(ctx, r.db, &n, `SELECT COUNT(*) FROM categories WHERE LOWER(name)=LOWER(?) AND id<>?`, name, excludeID)
	return n > 0, err
}

func (r *CategoryRepo) Create(ctx context.Context, c *domain.Category) (int64, error) {
	return insertID(ctx, r.db, `
		INSERT INTO categories(name,description,category_image,parent_category_id,is_active)
		VALUES(?,?,?,?,?)
		RETURNING id`, c.Name, c.Description, c.ImageURL, c.ParentID, c.IsActive)
}

// Update writes every mutable column of c.
func (r *CategoryRepo) Update(ctx context.Context, c *domain.Category) error {
	return affected(ctx, r.db, `
		UPDATE categories
		SET name=?, description=?, category_image=?, parent_category_id=?, is_active=?, updated_at=CURRENT_TIMESTAMP
		WHERE id=?`, c.Name, c.Description, c.ImageURL, c.ParentID, c.IsActive, c.ID)
}

func (r *CategoryRepo) SetParent(ctx context.Context, id int64, parentID *int64) error {
	return affected(ctx, r.db, `UPDATE categories SET parent_category_id=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`, parentID, id)
}

func (r *CategoryRepo) SetActive(ctx context.Context, id int64, active bool) error {
	return affected(ctx, r.db, `UPDATE categories SET is_active=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`, active, id)
}

func (r *CategoryRepo) CountChildren(ctx context.Context, id int64, activeOnly bool) (int, error) {
	q := `SELECT COUNT(*) FROM categories WHERE parent_category_id=?`
	if activeOnly {
		q += ` AND is_active=TRUE`
	}
	var n int
	err := get(ctx, r.db, &n, q, id)
	return n, err
}

// CountProducts counts products linked to the category. Inactive products
// are included only when includeInactive is set.
func (r *CategoryRepo) CountProducts(ctx context.Context, id int64, includeInactive bool) (int, error) {
	q := `SELECT COUNT(*) FROM product_categories pc JOIN products p ON p.id=pc.product_id WHERE pc.category_id=?`
	if !includeInactive {
		q += ` AND p.is_active=TRUE`
	}
	var n int
	err := get(ctx, r.db, &n, q, id)
	return n, err
}

type CategoryFilter struct {
	Name      string
	IsActive  *bool
	ParentID  *int64
	RootsOnly bool
	Skip      int
	Limit     int
}

func (r *CategoryRepo) List(ctx context.Context, f CategoryFilter) ([]domain.Category, error) {
	q := `SELECT ` + categoryCols + ` FROM categories WHERE 1=1`
	var args []any
	if f.Name != "" {
		q += ` AND LOWER(name) LIKE LOWER(?)`
		args = append(args, "%"+f.Name+"%")
	}
	if f.IsActive != nil {
		q += ` AND is_active=?`
		args = append(args, *f.IsActive)
	}
	switch {
	case f.RootsOnly:
		q += ` AND parent_category_id IS NULL`
	case f.ParentID != nil:
		q += ` AND parent_category_id=?`
		args = append(args, *f.ParentID)
	}
	q += ` ORDER BY name`
	if f.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Skip)
	}
	out := []domain.Category{}
	err := sel(ctx, r.db, &out, q, args...)
	return out, err
}

func (r *CategoryRepo) Children(ctx context.Context, id int64, activeOnly bool) ([]domain.Category, error) {
	var active *bool
	if activeOnly {
		t := true
		active = &t
	}
	return r.List(ctx, CategoryFilter{ParentID: &id, IsActive: active})
}

// Search matches term against name and description.
func (r *CategoryRepo) Search(ctx context.Context, term string, limit int) ([]domain.Category, error) {
	like := "%" + term + "%"
	out := []domain.Category{}
	err := sel(ctx, r.db, &out, `
		SELECT `+categoryCols+` FROM categories
		WHERE LOWER(name) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)
		ORDER BY name LIMIT ?`, like, like, limit)
	return out, err
}

func (r *CategoryRepo) Exists(ctx context.Context, ids []int64) (missing []int64, err error) {
	for _, id := range ids {
		var n int
		if err := get(ctx, r.db, &n, `SELECT COUNT(*) FROM categories WHERE id=?`, id); err != nil {
			return nil, err
		}
		if n == 0 {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// HardDelete removes the row. With detach set, product links go first in
// the same transaction; the count of removed links is returned.
func (r *CategoryRepo) HardDelete(ctx context.Context, id int64, detach bool) (int, error) {
	var unlinked int
	err := inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if detach {
			res, err := exec(ctx, tx, `DELETE FROM product_categories WHERE category_id=?`, id)
			if err != nil {
				return err
			}
			n, _ := res.RowsAffected()
			unlinked = int(n)
		}
		return affected(ctx, tx, `DELETE FROM categories WHERE id=?`, id)
	})
	return unlinked, err
}
