// Package server assembles the fiber application: middleware, route guards
// and the /api/v1 routes.
package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jmoiron/sqlx"

	"storefront/internal/apperr"
	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/http/handlers"
	"storefront/internal/http/views"
	applog "storefront/internal/log"
	"storefront/internal/metrics"
)

type Options struct {
	Config  config.Config
	DB      *sqlx.DB
	Tokens  *auth.Service
	Metrics *metrics.Metrics
	// Storage backs the rate limiters; nil keeps counters in memory.
	Storage fiber.Storage
	// LoginMax is the number of login attempts per IP in LoginWindow.
	LoginMax    int
	LoginWindow time.Duration
}

func (o *Options) defaults() {
	if o.Metrics == nil {
		o.Metrics = metrics.New()
	}
	if o.LoginMax == 0 {
		o.LoginMax = 5
	}
	if o.LoginWindow == 0 {
		o.LoginWindow = 10 * time.Minute
	}
	if o.Config.BodyLimit == 0 {
		o.Config.BodyLimit = 1 << 20
	}
	if o.Config.CORSOrigins == "" {
		o.Config.CORSOrigins = "*"
	}
}

func New(o Options) *fiber.App {
	o.defaults()

	app := fiber.New(fiber.Config{
		AppName:               "storefront",
		Views:                 views.Engine(),
		ErrorHandler:          apperr.Handler,
		BodyLimit:             o.Config.BodyLimit,
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
	})

	app.Use(requestid.New(requestid.Config{ContextKey: applog.LocalRequestID}))
	app.Use(o.Metrics.Middleware())
	app.Use(applog.Access())
	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: o.Config.CORSOrigins,
		AllowHeaders: "Authorization, Content-Type",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Storage:    o.Storage,
		Next: func(c *fiber.Ctx) bool {
			p := c.Path()
			return p == "/healthz" || p == "/metrics"
		},
		LimitReached: limitReached("rate.global.hit"),
	}))

	app.Get("/healthz", health(o.DB))
	app.Get("/metrics", o.Metrics.Handler())

	d := handlers.NewDeps(o.DB, o.Tokens, o.Metrics)
	routes(app.Group("/api/v1"), d, o)

	app.Use(func(c *fiber.Ctx) error {
		return apperr.New(apperr.NotFound, "Not found")
	})
	return app
}

func limitReached(action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		applog.Security(c, action, nil)
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"detail": "Too many requests. Please try again later."})
	}
}

func health(db *sqlx.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			applog.Error(c, "health.db.fail", err, nil)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"ok": false})
		}
		return c.JSON(fiber.Map{"ok": true})
	}
}

func routes(api fiber.Router, d *handlers.Deps, o Options) {
	userAuth := handlers.RequireAuth(d.Auth, d.Metrics, auth.ClassUser)
	adminAuth := handlers.RequireAuth(d.Auth, d.Metrics, auth.ClassAdmin)
	backOffice := handlers.RequireRoles(domain.BackOfficeRoles...)
	adminOnly := handlers.RequireRoles(domain.RoleAdmin)

	user := func(h fiber.Handler) []fiber.Handler { return []fiber.Handler{userAuth, h} }
	staff := func(h fiber.Handler) []fiber.Handler { return []fiber.Handler{adminAuth, backOffice, h} }
	admin := func(h fiber.Handler) []fiber.Handler { return []fiber.Handler{adminAuth, adminOnly, h} }

	loginLimiter := limiter.New(limiter.Config{
		Max:        o.LoginMax,
		Expiration: o.LoginWindow,
		Storage:    o.Storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|login"
		},
		LimitReached: limitReached("rate.login.hit"),
	})
	availLimiter := limiter.New(limiter.Config{
		Max:        15,
		Expiration: 30 * time.Second,
		Storage:    o.Storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|avail"
		},
		LimitReached: limitReached("rate.availability.hit"),
	})

	// Auth
	ah := d.AuthHandler
	api.Post("/auth/register", ah.Register)
	api.Post("/auth/login", loginLimiter, ah.Login)
	api.Get("/auth/me", user(ah.Me)...)
	api.Post("/admin/login", loginLimiter, ah.AdminLogin)
	api.Post("/admin/verify-token", staff(ah.VerifyToken)...)

	// Account
	api.Get("/users/me", user(ah.Me)...)
	api.Put("/users/me", user(ah.UpdateMe)...)
	prof := d.ProfileHandler
	api.Get("/users/profile", user(prof.Get)...)
	api.Post("/users/profile", user(prof.Create)...)
	api.Put("/users/profile", user(prof.Replace)...)
	api.Patch("/users/profile", user(prof.Patch)...)
	api.Delete("/users/profile", user(prof.Delete)...)

	// Categories
	ch := d.CategoryHandler
	api.Get("/categories", ch.List)
	api.Get("/categories/roots", ch.Roots)
	api.Get("/categories/search/:term", ch.Search)
	api.Post("/categories/bulk/deactivate", staff(ch.BulkDeactivate)...)
	api.Post("/categories", staff(ch.Create)...)
	api.Get("/categories/:id", ch.Get)
	api.Get("/categories/:id/subcategories", ch.Subcategories)
	api.Get("/categories/:id/tree", ch.Tree)
	api.Get("/categories/:id/products-count", ch.ProductsCount)
	api.Put("/categories/:id", staff(ch.Replace)...)
	api.Patch("/categories/:id", staff(ch.Patch)...)
	api.Put("/categories/:id/move", staff(ch.Move)...)
	api.Patch("/categories/:id/toggle-status", staff(ch.ToggleStatus)...)
	api.Delete("/categories/:id", staff(ch.SoftDelete)...)
	api.Delete("/categories/:id/hard", staff(ch.HardDelete)...)

	// Products
	ph := d.ProductHandler
	api.Get("/products", ph.List)
	api.Get("/products/:id", ph.Detail)
	api.Get("/products/:id/availability", availLimiter, d.InventoryHandler.Check)
	api.Post("/products", staff(ph.Create)...)
	api.Put("/products/:id", staff(ph.Update)...)
	api.Patch("/products/:id/toggle-status", staff(ph.Toggle)...)
	api.Patch("/products/:id/stock", staff(ph.SetStock)...)
	api.Delete("/products/:id", staff(ph.Delete)...)
	api.Get("/search", d.SearchHandler.Search)

	// Cart and orders
	cart := d.CartHandler
	api.Get("/cart", user(cart.View)...)
	api.Post("/cart/items", user(cart.Add)...)
	api.Patch("/cart/items/:product_id", user(cart.Update)...)
	api.Delete("/cart/items/:product_id", user(cart.Remove)...)
	api.Delete("/cart", user(cart.Clear)...)

	oh := d.OrderHandler
	api.Post("/orders", user(oh.Checkout)...)
	api.Get("/orders", user(oh.History)...)
	api.Get("/orders/:id", user(oh.View)...)
	api.Post("/orders/:id/cancel", user(oh.Cancel)...)

	wh := d.WishlistHandler
	api.Get("/wishlist", user(wh.List)...)
	api.Post("/wishlist", user(wh.Save)...)
	api.Delete("/wishlist/:product_id", user(wh.Unsave)...)

	// Stores
	inv := d.InventoryHandler
	api.Get("/stores", inv.Stores)

	// Back office
	adm := d.AdminHandler
	api.Get("/admin/users", admin(adm.UsersPage)...)
	api.Get("/admin/users/stats", admin(adm.UserStats)...)
	api.Patch("/admin/users/:id/role", admin(adm.SetRole)...)
	api.Patch("/admin/users/:id/status", admin(adm.SetStatus)...)

	api.Get("/admin/orders", staff(adm.OrdersPage)...)
	api.Get("/admin/orders/:id", staff(adm.Order)...)
	api.Patch("/admin/orders/:id/status", staff(adm.UpdateOrderStatus)...)

	api.Get("/admin/stores", staff(inv.AllStores)...)
	api.Post("/admin/stores", admin(inv.CreateStore)...)
	api.Put("/admin/stores/:id", admin(inv.UpdateStore)...)
	api.Get("/admin/stores/:id/inventory", staff(inv.StoreInventory)...)
	api.Put("/admin/stores/:id/inventory", staff(inv.SetInventory)...)
	api.Get("/admin/stores/:id/movements", staff(inv.Movements)...)
	api.Get("/admin/inventory/low-stock", staff(inv.LowStock)...)

	api.Get("/admin/reports/sales", staff(adm.Sales)...)
	api.Get("/admin/reports/top-products", staff(adm.TopProducts)...)
	api.Get("/admin/reports/sales.xlsx", staff(adm.SalesXLSX)...)
	api.Get("/admin/reports/view", staff(adm.Dashboard)...)

	api.Post("/admin/products/import", staff(adm.ImportProducts)...)
	api.Get("/admin/products/import-template", staff(adm.ImportTemplate)...)
}
