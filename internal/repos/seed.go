package repos

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/domain"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "Passw0rd!"

// Seed inserts demo principals, a small category tree, products, one store
// and its inventory. It is idempotent: catalog data is only written into an
// empty catalog and accounts that already exist are left alone.
func Seed(ctx context.Context, db *sqlx.DB, cost int) error {
	if err := seedUsers(ctx, db, cost); err != nil {
		return err
	}
	var n int
	if err := get(ctx, db, &n, `SELECT COUNT(*) FROM categories`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return inTx(ctx, db, func(tx *sqlx.Tx) error { return seedCatalog(ctx, tx) })
}

func seedUsers(ctx context.Context, db *sqlx.DB, cost int) error {
	users := []struct{ email, username, role string }{
		{"admin@storefront.test", "admin", domain.RoleAdmin},
		{"staff@storefront.test", "staff", domain.RoleStoreStaff},
		{"alice@storefront.test", "alice", domain.RoleCommon},
		{"bob@storefront.test", "bob", domain.RoleCommon},
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), cost)
	if err != nil {
		return err
	}
	return inTx(ctx, db, func(tx *sqlx.Tx) error {
		for _, u := range users {
			if _, err := exec(ctx, tx, `
				INSERT INTO users(email,username,password_hash,role,is_active)
				VALUES(?,?,?,?,TRUE)
				ON CONFLICT DO NOTHING`, u.email, u.username, string(hash), u.role); err != nil {
				return err
			}
		}
		return nil
	})
}

func seedCatalog(ctx context.Context, tx *sqlx.Tx) error {
	cat := func(name, desc string, parent *int64) (int64, error) {
		return insertID(ctx, tx, `
			INSERT INTO categories(name,description,parent_category_id,is_active)
			VALUES(?,?,?,TRUE) RETURNING id`, name, desc, parent)
	}
	books, err := cat("Books", "Printed and digital books", nil)
	if err != nil {
		return err
	}
	fiction, err := cat("Fiction", "Novels and short stories", &books)
	if err != nil {
		return err
	}
	scifi, err := cat("Science Fiction", "Space, time and robots", &fiction)
	if err != nil {
		return err
	}
	electronics, err := cat("Electronics", "Gadgets and accessories", nil)
	if err != nil {
		return err
	}

	products := []struct {
		name, sku string
		price     float64
		stock     int
		featured  bool
		cats      []int64
	}{
		{"Dune", "BK-DUNE", 18.50, 40, true, []int64{books, scifi}},
		{"Foundation", "BK-FOUND", 15.00, 25, false, []int64{books, scifi}},
		{"Pride and Prejudice", "BK-PRIDE", 9.99, 12, false, []int64{books, fiction}},
		{"E-Reader", "EL-READER", 129.00, 5, true, []int64{electronics}},
	}
	ids := make([]int64, 0, len(products))
	for _, p := range products {
		id, err := insertID(ctx, tx, `
			INSERT INTO products(name,sku,price,online_stock,is_featured,is_active,product_type)
			VALUES(?,?,?,?,?,TRUE,'physical') RETURNING id`, p.name, p.sku, p.price, p.stock, p.featured)
		if err != nil {
			return err
		}
		if err := linkCategories(ctx, tx, id, p.cats); err != nil {
			return err
		}
		ids = append(ids, id)
	}

	store, err := insertID(ctx, tx, `
		INSERT INTO stores(name,address,phone,email,is_active)
		VALUES('Downtown','1 Main St','555-0100','downtown@storefront.test',TRUE) RETURNING id`)
	if err != nil {
		return err
	}
	for i, id := range ids {
		if _, err := exec(ctx, tx, `
			INSERT INTO store_inventory(store_id,product_id,quantity,location,low_stock_threshold)
			VALUES(?,?,?,?,?)`, store, id, 3*(i+1), fmt.Sprintf("A-%d", i+1), domain.DefaultLowStockThreshold); err != nil {
			return err
		}
	}
	return nil
}
