package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "storefront/internal/log"
	"storefront/internal/metrics"
	"storefront/internal/repos"
	"storefront/internal/services"
)

type OrderHandler struct {
	Order   *services.OrderService
	Metrics *metrics.Metrics
}

// POST /orders
func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	var in services.CheckoutInput
	if err := bind(c, &in); err != nil {
		return err
	}
	o, err := h.Order.Checkout(c.UserContext(), CurrentUser(c).ID, in)
	if err != nil {
		applog.Info(c, "orders.checkout.fail", map[string]any{"reason": err.Error()})
		return err
	}
	if h.Metrics != nil {
		h.Metrics.OrdersPlaced.WithLabelValues(o.DeliveryMethod).Inc()
	}
	applog.Audit(c, "orders.place", map[string]any{
		"order_id": o.ID, "reference": o.Reference, "total": o.Total, "delivery_method": o.DeliveryMethod,
	})
	return c.Status(fiber.StatusCreated).JSON(o)
}

// GET /orders
func (h *OrderHandler) History(c *fiber.Ctx) error {
	uid := CurrentUser(c).ID
	f := repos.OrderFilter{UserID: &uid, Status: c.Query("status")}
	var err error
	if f.Skip, err = queryInt(c, "skip", 0); err != nil {
		return err
	}
	if f.Limit, err = queryInt(c, "limit", 20); err != nil {
		return err
	}
	orders, err := h.Order.List(c.UserContext(), f)
	if err != nil {
		return err
	}
	return c.JSON(orders)
}

// GET /orders/:id
func (h *OrderHandler) View(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	uid := CurrentUser(c).ID
	o, err := h.Order.Get(c.UserContext(), id, &uid)
	if err != nil {
		return err
	}
	return c.JSON(o)
}

// POST /orders/:id/cancel
func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	o, err := h.Order.Cancel(c.UserContext(), CurrentUser(c).ID, id)
	if err != nil {
		return err
	}
	applog.Audit(c, "orders.cancel", map[string]any{"order_id": id})
	return c.JSON(o)
}
