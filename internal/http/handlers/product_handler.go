package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/log"
	"storefront/internal/repos"
	"storefront/internal/services"
)

type ProductHandler struct {
	Catalog *services.CatalogService
}

type stockBody struct {
	OnlineStock *int `json:"online_stock" validate:"required,gte=0"`
}

// GET /products
func (h *ProductHandler) List(c *fiber.Ctx) error {
	var f repos.ProductFilter
	var err error
	if f.Skip, err = queryInt(c, "skip", 0); err != nil {
		return err
	}
	if f.Limit, err = queryInt(c, "limit", 20); err != nil {
		return err
	}
	if f.CategoryID, err = queryID(c, "category_id"); err != nil {
		return err
	}
	if f.MinPrice, err = queryFloat(c, "min_price"); err != nil {
		return err
	}
	if f.MaxPrice, err = queryFloat(c, "max_price"); err != nil {
		return err
	}
	if f.IsFeatured, err = queryBool(c, "is_featured"); err != nil {
		return err
	}
	f.Query = c.Query("q")
	prods, err := h.Catalog.ListProducts(c.UserContext(), f)
	if err != nil {
		return err
	}
	return c.JSON(prods)
}

// GET /products/:id
func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.Catalog.GetProduct(c.UserContext(), id, false)
	if err != nil {
		return err
	}
	return c.JSON(p)
}

// POST /products
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var in services.ProductInput
	if err := bind(c, &in); err != nil {
		return err
	}
	p, err := h.Catalog.CreateProduct(c.UserContext(), in)
	if err != nil {
		return err
	}
	log.Audit(c, "admin.products.create", map[string]any{"product_id": p.ID, "sku": p.SKU})
	return c.Status(fiber.StatusCreated).JSON(p)
}

// PUT /products/:id
func (h *ProductHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in services.ProductInput
	if err := bind(c, &in); err != nil {
		return err
	}
	p, err := h.Catalog.UpdateProduct(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	log.Audit(c, "admin.products.update", map[string]any{"product_id": id})
	return c.JSON(p)
}

// PATCH /products/:id/toggle-status
func (h *ProductHandler) Toggle(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.Catalog.ToggleProduct(c.UserContext(), id)
	if err != nil {
		return err
	}
	log.Audit(c, "admin.products.toggle", map[string]any{"product_id": id, "is_active": p.IsActive})
	return c.JSON(p)
}

// PATCH /products/:id/stock
func (h *ProductHandler) SetStock(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in stockBody
	if err := bind(c, &in); err != nil {
		return err
	}
	p, err := h.Catalog.SetStock(c.UserContext(), id, *in.OnlineStock)
	if err != nil {
		return err
	}
	log.Audit(c, "admin.products.stock", map[string]any{"product_id": id, "online_stock": p.OnlineStock})
	return c.JSON(p)
}

// DELETE /products/:id
func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Catalog.DeleteProduct(c.UserContext(), id); err != nil {
		return err
	}
	log.Audit(c, "admin.products.delete", map[string]any{"product_id": id})
	return c.JSON(fiber.Map{"message": "Product deactivated", "product_id": id})
}
