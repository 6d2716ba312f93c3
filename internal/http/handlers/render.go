package handlers

import "github.com/gofiber/fiber/v2"

// render executes an HTML view with the signed-in principal available as
// .User.
func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if u := CurrentUser(c); u != nil {
		data["User"] = u
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Render(tmpl, data)
}
