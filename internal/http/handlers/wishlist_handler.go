package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "storefront/internal/log"
	"storefront/internal/services"
)

type WishlistHandler struct {
	Wish *services.WishlistService
}

type wishlistBody struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
}

// GET /wishlist
func (h *WishlistHandler) List(c *fiber.Ctx) error {
	items, err := h.Wish.List(c.UserContext(), CurrentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(items)
}

// POST /wishlist
func (h *WishlistHandler) Save(c *fiber.Ctx) error {
	var in wishlistBody
	if err := bind(c, &in); err != nil {
		return err
	}
	items, err := h.Wish.Save(c.UserContext(), CurrentUser(c).ID, in.ProductID)
	if err != nil {
		return err
	}
	applog.Info(c, "wishlist.save", map[string]any{"product_id": in.ProductID})
	return c.Status(fiber.StatusCreated).JSON(items)
}

// DELETE /wishlist/:product_id
func (h *WishlistHandler) Unsave(c *fiber.Ctx) error {
	pid, err := paramID(c, "product_id")
	if err != nil {
		return err
	}
	items, err := h.Wish.Unsave(c.UserContext(), CurrentUser(c).ID, pid)
	if err != nil {
		return err
	}
	applog.Info(c, "wishlist.unsave", map[string]any{"product_id": pid})
	return c.JSON(items)
}
