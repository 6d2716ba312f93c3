package handlers

import (
	"bytes"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/apperr"
	applog "storefront/internal/log"
	"storefront/internal/repos"
	"storefront/internal/services"
	"storefront/internal/validate"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxImportSize caps an uploaded workbook. The app body limit applies first.
const maxImportSize = 5 << 20

type AdminHandler struct {
	Users   *services.UserService
	Orders  *services.OrderService
	Reports *services.ReportService
	Inv     *services.InventoryService
	Catalog *services.CatalogService
}

type roleBody struct {
	Role string `json:"role" validate:"required,oneof=common admin store_staff"`
}

type statusBody struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

type orderStatusBody struct {
	Status         string `json:"status" validate:"required"`
	TrackingNumber string `json:"tracking_number" validate:"max=100"`
}

// GET /admin/users
func (h *AdminHandler) UsersPage(c *fiber.Ctx) error {
	f := repos.UserFilter{Role: c.Query("role")}
	var err error
	if f.IsActive, err = queryBool(c, "is_active"); err != nil {
		return err
	}
	if f.Skip, err = queryInt(c, "skip", 0); err != nil {
		return err
	}
	if f.Limit, err = queryInt(c, "limit", 20); err != nil {
		return err
	}
	users, err := h.Users.List(c.UserContext(), f)
	if err != nil {
		return err
	}
	return c.JSON(users)
}

// GET /admin/users/stats
func (h *AdminHandler) UserStats(c *fiber.Ctx) error {
	st, err := h.Users.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(st)
}

// PATCH /admin/users/:id/role
func (h *AdminHandler) SetRole(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in roleBody
	if err := bind(c, &in); err != nil {
		return err
	}
	u, err := h.Users.SetRole(c.UserContext(), CurrentUser(c).ID, id, in.Role)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.users.role", map[string]any{"target_id": id, "role": u.Role})
	return c.JSON(u)
}

// PATCH /admin/users/:id/status
func (h *AdminHandler) SetStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in statusBody
	if err := bind(c, &in); err != nil {
		return err
	}
	u, err := h.Users.SetActive(c.UserContext(), CurrentUser(c).ID, id, *in.IsActive)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.users.status", map[string]any{"target_id": id, "is_active": u.IsActive})
	return c.JSON(u)
}

// GET /admin/orders
func (h *AdminHandler) OrdersPage(c *fiber.Ctx) error {
	f := repos.OrderFilter{Status: c.Query("status")}
	var err error
	if f.UserID, err = queryID(c, "user_id"); err != nil {
		return err
	}
	if f.Skip, err = queryInt(c, "skip", 0); err != nil {
		return err
	}
	if f.Limit, err = queryInt(c, "limit", 50); err != nil {
		return err
	}
	orders, err := h.Orders.List(c.UserContext(), f)
	if err != nil {
		applog.Error(c, "admin.orders.list.fail", err, nil)
		return err
	}
	return c.JSON(orders)
}

// GET /admin/orders/:id
func (h *AdminHandler) Order(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	o, err := h.Orders.Get(c.UserContext(), id, nil)
	if err != nil {
		return err
	}
	return c.JSON(o)
}

// PATCH /admin/orders/:id/status
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in orderStatusBody
	if err := bind(c, &in); err != nil {
		return err
	}
	o, err := h.Orders.SetStatus(c.UserContext(), id, in.Status, in.TrackingNumber)
	if err != nil {
		applog.Error(c, "admin.orders.update.fail", err, map[string]any{"order_id": id, "status": in.Status})
		return err
	}
	applog.Audit(c, "admin.orders.update", map[string]any{"order_id": id, "status": o.Status})
	return c.JSON(o)
}

// GET /admin/reports/sales
func (h *AdminHandler) Sales(c *fiber.Ctx) error {
	rep, err := h.Reports.Sales(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(rep)
}

// GET /admin/reports/top-products
func (h *AdminHandler) TopProducts(c *fiber.Ctx) error {
	limit, err := queryInt(c, "limit", 10)
	if err != nil {
		return err
	}
	top, err := h.Reports.TopProducts(c.UserContext(), limit)
	if err != nil {
		return err
	}
	return c.JSON(top)
}

// GET /admin/reports/sales.xlsx
func (h *AdminHandler) SalesXLSX(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := h.Reports.WriteSalesXLSX(c.UserContext(), &buf); err != nil {
		return err
	}
	applog.Audit(c, "admin.reports.export", nil)
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Attachment("sales-" + time.Now().UTC().Format("20060102") + ".xlsx")
	return c.Send(buf.Bytes())
}

// GET /admin/reports/view
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	ctx := c.UserContext()
	sales, err := h.Reports.Sales(ctx)
	if err != nil {
		return err
	}
	top, err := h.Reports.TopProducts(ctx, 10)
	if err != nil {
		return err
	}
	low, err := h.Inv.LowStock(ctx, nil)
	if err != nil {
		return err
	}
	return render(c, "report", fiber.Map{
		"Sales":       sales,
		"Top":         top,
		"LowStock":    low,
		"GeneratedAt": time.Now().UTC().Format(time.RFC1123),
	})
}

// POST /admin/products/import (multipart field "file")
func (h *AdminHandler) ImportProducts(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return apperr.New(apperr.Validation, "Upload an .xlsx file in the \"file\" field")
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".xlsx") {
		applog.Security(c, "upload.reject", map[string]any{"filename": fh.Filename})
		return apperr.New(apperr.Validation, "Only .xlsx files are accepted")
	}
	if fh.Size > maxImportSize {
		return apperr.New(apperr.Validation, "File too large")
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := h.Catalog.ImportProducts(c.UserContext(), f, validate.Struct)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.products.import", map[string]any{
		"filename": fh.Filename, "created": len(res.Created), "failed": len(res.Errors),
	})
	return c.JSON(res)
}

// GET /admin/products/import-template
func (h *AdminHandler) ImportTemplate(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := services.ImportTemplate(&buf); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Attachment("products-import.xlsx")
	return c.Send(buf.Bytes())
}
