package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/services"
)

type CartHandler struct {
	Cart *services.CartService
}

type cartItemBody struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,min=1,max=99"`
}

type cartQtyBody struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=99"`
}

// GET /cart
func (h *CartHandler) View(c *fiber.Ctx) error {
	cart, err := h.Cart.View(c.UserContext(), CurrentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(cart)
}

// POST /cart/items
func (h *CartHandler) Add(c *fiber.Ctx) error {
	var in cartItemBody
	if err := bind(c, &in); err != nil {
		return err
	}
	cart, err := h.Cart.Add(c.UserContext(), CurrentUser(c).ID, in.ProductID, in.Quantity)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(cart)
}

// PATCH /cart/items/:product_id
func (h *CartHandler) Update(c *fiber.Ctx) error {
	pid, err := paramID(c, "product_id")
	if err != nil {
		return err
	}
	var in cartQtyBody
	if err := bind(c, &in); err != nil {
		return err
	}
	cart, err := h.Cart.Update(c.UserContext(), CurrentUser(c).ID, pid, in.Quantity)
	if err != nil {
		return err
	}
	return c.JSON(cart)
}

// DELETE /cart/items/:product_id
func (h *CartHandler) Remove(c *fiber.Ctx) error {
	pid, err := paramID(c, "product_id")
	if err != nil {
		return err
	}
	cart, err := h.Cart.Remove(c.UserContext(), CurrentUser(c).ID, pid)
	if err != nil {
		return err
	}
	return c.JSON(cart)
}

// DELETE /cart
func (h *CartHandler) Clear(c *fiber.Ctx) error {
	cart, err := h.Cart.Clear(c.UserContext(), CurrentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(cart)
}
