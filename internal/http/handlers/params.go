package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/apperr"
	applog "storefront/internal/log"
	"storefront/internal/validate"
)

// paramID reads a positive integer path parameter.
func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		applog.Security(c, "validation.fail", map[string]any{"field": name, "value": c.Params(name)})
		return 0, apperr.Newf(apperr.Validation, "%s must be a positive integer", name)
	}
	return id, nil
}

func queryInt(c *fiber.Ctx, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Newf(apperr.Validation, "%s must be an integer", name)
	}
	return v, nil
}

func queryID(c *fiber.Ctx, name string) (*int64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return nil, apperr.Newf(apperr.Validation, "%s must be a positive integer", name)
	}
	return &v, nil
}

func queryBool(c *fiber.Ctx, name string) (*bool, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperr.Newf(apperr.Validation, "%s must be true or false", name)
	}
	return &v, nil
}

func queryFloat(c *fiber.Ctx, name string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil, apperr.Newf(apperr.Validation, "%s must be a non-negative number", name)
	}
	return &v, nil
}

// bind decodes a JSON body into out and checks its validate tags.
func bind(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return apperr.New(apperr.Validation, "Request body is required")
	}
	if err := c.BodyParser(out); err != nil {
		applog.Security(c, "validation.fail", map[string]any{"field": "body"})
		return apperr.Wrap(err, apperr.Validation, "Invalid request body")
	}
	if err := validate.Struct(out); err != nil {
		applog.Security(c, "validation.fail", map[string]any{"field": "body", "detail": err.Error()})
		return err
	}
	return nil
}
