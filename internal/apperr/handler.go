package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "storefront/internal/log"
)

const genericInternal = "internal server error"

// Handler is the fiber ErrorHandler. Every error leaves as {"detail": ...};
// internal causes are logged and never echoed.
func Handler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	detail := genericInternal

	var ae *Error
	var fe *fiber.Error
	switch {
	case errors.As(err, &ae):
		status = ae.HTTPStatus()
		if status < fiber.StatusInternalServerError {
			detail = ae.Message
		}
	case errors.As(err, &fe):
		status = fe.Code
		if status < fiber.StatusInternalServerError {
			detail = fe.Message
		}
	}

	if status >= fiber.StatusInternalServerError {
		applog.Error(c, "server.error", err, nil)
	}
	if status == fiber.StatusUnauthorized {
		c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
	}
	return c.Status(status).JSON(fiber.Map{"detail": detail})
}
