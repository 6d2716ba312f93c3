package services_test

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/repos"
)

// Seeded ids, in insertion order.
const (
	adminID int64 = 1
	staffID int64 = 2
	aliceID int64 = 3
	bobID   int64 = 4

	booksID       int64 = 1
	fictionID     int64 = 2
	scifiID       int64 = 3
	electronicsID int64 = 4

	duneID   int64 = 1
	foundID  int64 = 2
	prideID  int64 = 3
	readerID int64 = 4

	downtownID int64 = 1
)

type env struct {
	db    *sqlx.DB
	users *repos.UserRepo
	cats  *repos.CategoryRepo
	prods *repos.ProductRepo
	carts *repos.CartRepo
	inv   *repos.InventoryRepo
	ords  *repos.OrderRepo
	reps  *repos.ReportRepo
	wish  *repos.WishlistRepo
}

func setup(t *testing.T) *env {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repos.Seed(context.Background(), db, bcrypt.MinCost))
	return &env{
		db:    db,
		users: repos.NewUserRepo(db),
		cats:  repos.NewCategoryRepo(db),
		prods: repos.NewProductRepo(db),
		carts: repos.NewCartRepo(db),
		inv:   repos.NewInventoryRepo(db),
		ords:  repos.NewOrderRepo(db),
		reps:  repos.NewReportRepo(db),
		wish:  repos.NewWishlistRepo(db),
	}
}
