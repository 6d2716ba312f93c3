package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "storefront/internal/log"
	"storefront/internal/services"
)

type InventoryHandler struct {
	Inv *services.InventoryService
}

// GET /stores
func (h *InventoryHandler) Stores(c *fiber.Ctx) error {
	stores, err := h.Inv.Stores(c.UserContext(), true)
	if err != nil {
		return err
	}
	return c.JSON(stores)
}

// GET /products/:id/availability?store_id=
func (h *InventoryHandler) Check(c *fiber.Ctx) error {
	pid, err := paramID(c, "id")
	if err != nil {
		return err
	}
	storeID, err := queryID(c, "store_id")
	if err != nil {
		return err
	}
	avail, err := h.Inv.CheckAvailability(c.UserContext(), pid, storeID)
	if err != nil {
		return err
	}
	return c.JSON(avail)
}

// GET /admin/stores
func (h *InventoryHandler) AllStores(c *fiber.Ctx) error {
	stores, err := h.Inv.Stores(c.UserContext(), false)
	if err != nil {
		return err
	}
	return c.JSON(stores)
}

// POST /admin/stores
func (h *InventoryHandler) CreateStore(c *fiber.Ctx) error {
	var in services.StoreInput
	if err := bind(c, &in); err != nil {
		return err
	}
	s, err := h.Inv.CreateStore(c.UserContext(), in)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.stores.create", map[string]any{"store_id": s.ID})
	return c.Status(fiber.StatusCreated).JSON(s)
}

// PUT /admin/stores/:id
func (h *InventoryHandler) UpdateStore(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in services.StoreInput
	if err := bind(c, &in); err != nil {
		return err
	}
	s, err := h.Inv.UpdateStore(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.stores.update", map[string]any{"store_id": id})
	return c.JSON(s)
}

// GET /admin/stores/:id/inventory
func (h *InventoryHandler) StoreInventory(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	rows, err := h.Inv.StoreInventory(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(rows)
}

// PUT /admin/stores/:id/inventory
func (h *InventoryHandler) SetInventory(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in services.InventoryInput
	if err := bind(c, &in); err != nil {
		return err
	}
	rows, err := h.Inv.SetInventory(c.UserContext(), id, CurrentUser(c).ID, in)
	if err != nil {
		applog.Error(c, "admin.inventory.save.fail", err, map[string]any{"store_id": id, "product_id": in.ProductID})
		return err
	}
	applog.Audit(c, "admin.inventory.save", map[string]any{
		"store_id": id, "product_id": in.ProductID, "quantity": in.Quantity,
	})
	return c.JSON(rows)
}

// GET /admin/stores/:id/movements
func (h *InventoryHandler) Movements(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return err
	}
	ms, err := h.Inv.Movements(c.UserContext(), id, limit)
	if err != nil {
		return err
	}
	return c.JSON(ms)
}

// GET /admin/inventory/low-stock?store_id=
func (h *InventoryHandler) LowStock(c *fiber.Ctx) error {
	storeID, err := queryID(c, "store_id")
	if err != nil {
		return err
	}
	rows, err := h.Inv.LowStock(c.UserContext(), storeID)
	if err != nil {
		return err
	}
	return c.JSON(rows)
}
