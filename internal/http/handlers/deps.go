package handlers

import (
	"github.com/jmoiron/sqlx"

	"storefront/internal/auth"
	"storefront/internal/metrics"
	"storefront/internal/repos"
	"storefront/internal/services"
)

// Deps holds every handler plus the auth service the route guards need.
type Deps struct {
	Auth    *services.AuthService
	Metrics *metrics.Metrics

	AuthHandler      *AuthHandler
	AdminHandler     *AdminHandler
	CategoryHandler  *CategoryHandler
	ProductHandler   *ProductHandler
	InventoryHandler *InventoryHandler
	SearchHandler    *SearchHandler
	CartHandler      *CartHandler
	OrderHandler     *OrderHandler
	WishlistHandler  *WishlistHandler
	ProfileHandler   *ProfileHandler
}

func NewDeps(db *sqlx.DB, tokens *auth.Service, m *metrics.Metrics) *Deps {
	userRepo := repos.NewUserRepo(db)
	catRepo := repos.NewCategoryRepo(db)
	prodRepo := repos.NewProductRepo(db)
	invRepo := repos.NewInventoryRepo(db)
	cartRepo := repos.NewCartRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	wishRepo := repos.NewWishlistRepo(db)
	reportRepo := repos.NewReportRepo(db)
	profileRepo := repos.NewProfileRepo(db)

	authSvc := services.NewAuthService(userRepo, tokens)
	userSvc := services.NewUserService(userRepo)
	catSvc := services.NewCategoryService(catRepo)
	catalogSvc := services.NewCatalogService(catRepo, prodRepo)
	invSvc := services.NewInventoryService(invRepo, prodRepo)
	cartSvc := services.NewCartService(cartRepo, prodRepo)
	orderSvc := services.NewOrderService(cartRepo, invRepo, orderRepo, prodRepo)
	wishSvc := services.NewWishlistService(wishRepo, prodRepo)
	reportSvc := services.NewReportService(reportRepo)
	profileSvc := services.NewProfileService(profileRepo)

	return &Deps{
		Auth:    authSvc,
		Metrics: m,

		AuthHandler: &AuthHandler{Auth: authSvc, Metrics: m},
		AdminHandler: &AdminHandler{
			Users: userSvc, Orders: orderSvc, Reports: reportSvc,
			Inv: invSvc, Catalog: catalogSvc,
		},
		CategoryHandler:  &CategoryHandler{Cats: catSvc, Metrics: m},
		ProductHandler:   &ProductHandler{Catalog: catalogSvc},
		InventoryHandler: &InventoryHandler{Inv: invSvc},
		SearchHandler:    &SearchHandler{Catalog: catalogSvc},
		CartHandler:      &CartHandler{Cart: cartSvc},
		OrderHandler:     &OrderHandler{Order: orderSvc, Metrics: m},
		WishlistHandler:  &WishlistHandler{Wish: wishSvc},
		ProfileHandler:   &ProfileHandler{Profiles: profileSvc},
	}
}
