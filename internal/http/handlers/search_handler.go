package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/apperr"
	"storefront/internal/log"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type SearchHandler struct {
	Catalog *services.CatalogService
}

// GET /search?q=
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	raw := c.Query("q")
	q, ok := validate.Q(raw)
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "q", "value": raw})
		return apperr.New(apperr.Validation, "Enter a valid keyword (letters and numbers only)")
	}
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		return err
	}
	res, err := h.Catalog.Search(c.UserContext(), q, limit)
	if err != nil {
		return err
	}
	return c.JSON(res)
}
