package handlers

import (
	"bytes"
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/log"
	"storefront/internal/metrics"
	"storefront/internal/repos"
	"storefront/internal/services"
)

type CategoryHandler struct {
	Cats    *services.CategoryService
	Metrics *metrics.Metrics
}

// optionalID tells an absent JSON key apart from an explicit null.
type optionalID struct {
	Set   bool
	Value *int64
}

func (o *optionalID) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(b, []byte("null")) {
		o.Value = nil
		return nil
	}
	var v int64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

type categoryPatchBody struct {
	Name        *string    `json:"name" validate:"omitempty,min=2,max=100"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	ImageURL    *string    `json:"category_image" validate:"omitempty,url,max=500"`
	ParentID    optionalID `json:"parent_category_id"`
	IsActive    *bool      `json:"is_active"`
}

type moveBody struct {
	NewParentID *int64 `json:"new_parent_id" validate:"omitempty,gte=0"`
}

type bulkBody struct {
	IDs []int64 `json:"category_ids" validate:"required,min=1,max=100,dive,gt=0"`
}

// rejected counts hierarchy rule violations before handing err back.
func (h *CategoryHandler) rejected(c *fiber.Ctx, id int64, err error) error {
	if rule := services.HierarchyRule(err); rule != "" {
		log.Security(c, "category.hierarchy.reject", map[string]any{"category_id": id, "rule": rule})
		if h.Metrics != nil {
			h.Metrics.CategoryRejects.WithLabelValues(rule).Inc()
		}
	}
	return err
}

// GET /categories
func (h *CategoryHandler) List(c *fiber.Ctx) error {
	var f repos.CategoryFilter
	var err error
	if f.Skip, err = queryInt(c, "skip", 0); err != nil {
		return err
	}
	if f.Limit, err = queryInt(c, "limit", 100); err != nil {
		return err
	}
	if f.IsActive, err = queryBool(c, "is_active"); err != nil {
		return err
	}
	if f.ParentID, err = queryID(c, "parent_category_id"); err != nil {
		return err
	}
	f.Name = c.Query("name")
	cats, err := h.Cats.List(c.UserContext(), f)
	if err != nil {
		return err
	}
	return c.JSON(cats)
}

// GET /categories/roots
func (h *CategoryHandler) Roots(c *fiber.Ctx) error {
	active, err := queryBool(c, "is_active")
	if err != nil {
		return err
	}
	if active == nil {
		t := true
		active = &t
	}
	cats, err := h.Cats.Roots(c.UserContext(), active)
	if err != nil {
		return err
	}
	return c.JSON(cats)
}

// GET /categories/search/:term
func (h *CategoryHandler) Search(c *fiber.Ctx) error {
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return err
	}
	cats, err := h.Cats.Search(c.UserContext(), c.Params("term"), limit)
	if err != nil {
		return err
	}
	return c.JSON(cats)
}

// GET /categories/:id
func (h *CategoryHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	cat, err := h.Cats.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(cat)
}

// GET /categories/:id/subcategories
func (h *CategoryHandler) Subcategories(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	cats, err := h.Cats.Subcategories(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(cats)
}

// GET /categories/:id/tree
func (h *CategoryHandler) Tree(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	depth, err := queryInt(c, "max_depth", services.DefaultTreeDepth)
	if err != nil {
		return err
	}
	tree, err := h.Cats.Tree(c.UserContext(), id, depth)
	if err != nil {
		return err
	}
	return c.JSON(tree)
}

// GET /categories/:id/products-count
func (h *CategoryHandler) ProductsCount(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	inactive, err := queryBool(c, "include_inactive")
	if err != nil {
		return err
	}
	n, err := h.Cats.ProductsCount(c.UserContext(), id, inactive != nil && *inactive)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"category_id": id, "product_count": n})
}

// POST /categories
func (h *CategoryHandler) Create(c *fiber.Ctx) error {
	var in services.CategoryInput
	if err := bind(c, &in); err != nil {
		return err
	}
	cat, err := h.Cats.Create(c.UserContext(), in)
	if err != nil {
		return h.rejected(c, 0, err)
	}
	log.Audit(c, "admin.categories.create", map[string]any{"category_id": cat.ID})
	return c.Status(fiber.StatusCreated).JSON(cat)
}

// PUT /categories/:id
func (h *CategoryHandler) Replace(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in services.CategoryInput
	if err := bind(c, &in); err != nil {
		return err
	}
	cat, err := h.Cats.Replace(c.UserContext(), id, in)
	if err != nil {
		return h.rejected(c, id, err)
	}
	log.Audit(c, "admin.categories.update", map[string]any{"category_id": id})
	return c.JSON(cat)
}

// PATCH /categories/:id
func (h *CategoryHandler) Patch(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in categoryPatchBody
	if err := bind(c, &in); err != nil {
		return err
	}
	cat, err := h.Cats.Patch(c.UserContext(), id, services.CategoryPatch{
		Name:        in.Name,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		SetParent:   in.ParentID.Set,
		ParentID:    in.ParentID.Value,
		IsActive:    in.IsActive,
	})
	if err != nil {
		return h.rejected(c, id, err)
	}
	log.Audit(c, "admin.categories.update", map[string]any{"category_id": id})
	return c.JSON(cat)
}

// PUT /categories/:id/move
func (h *CategoryHandler) Move(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in moveBody
	if err := bind(c, &in); err != nil {
		return err
	}
	cat, err := h.Cats.Move(c.UserContext(), id, in.NewParentID)
	if err != nil {
		return h.rejected(c, id, err)
	}
	log.Audit(c, "admin.categories.move", map[string]any{"category_id": id, "parent_category_id": cat.ParentID})
	return c.JSON(cat)
}

// PATCH /categories/:id/toggle-status
func (h *CategoryHandler) ToggleStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	cat, err := h.Cats.ToggleStatus(c.UserContext(), id)
	if err != nil {
		return h.rejected(c, id, err)
	}
	log.Audit(c, "admin.categories.toggle", map[string]any{"category_id": id, "is_active": cat.IsActive})
	return c.JSON(cat)
}

// DELETE /categories/:id
func (h *CategoryHandler) SoftDelete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	n, err := h.Cats.SoftDelete(c.UserContext(), id)
	if err != nil {
		return h.rejected(c, id, err)
	}
	log.Audit(c, "admin.categories.deactivate", map[string]any{"category_id": id})
	return c.JSON(fiber.Map{
		"message":         "Category deactivated",
		"category_id":     id,
		"active_products": n,
	})
}

// DELETE /categories/:id/hard
func (h *CategoryHandler) HardDelete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	force, err := queryBool(c, "force")
	if err != nil {
		return err
	}
	detached, err := h.Cats.HardDelete(c.UserContext(), id, force != nil && *force)
	if err != nil {
		return h.rejected(c, id, err)
	}
	log.Audit(c, "admin.categories.delete", map[string]any{"category_id": id, "detached_products": detached})
	return c.JSON(fiber.Map{
		"message":           "Category permanently deleted",
		"category_id":       id,
		"detached_products": detached,
	})
}

// POST /categories/bulk/deactivate
func (h *CategoryHandler) BulkDeactivate(c *fiber.Ctx) error {
	var in bulkBody
	if err := bind(c, &in); err != nil {
		return err
	}
	res, err := h.Cats.BulkDeactivate(c.UserContext(), in.IDs)
	if err != nil {
		return err
	}
	log.Audit(c, "admin.categories.bulk_deactivate", map[string]any{
		"deactivated": res.Deactivated, "failed": len(res.Errors),
	})
	return c.JSON(res)
}
