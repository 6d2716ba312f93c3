package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "storefront/internal/log"
	"storefront/internal/services"
)

type ProfileHandler struct {
	Profiles *services.ProfileService
}

// GET /users/profile
func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	p, err := h.Profiles.Get(c.UserContext(), CurrentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(p)
}

// POST /users/profile
func (h *ProfileHandler) Create(c *fiber.Ctx) error {
	var in services.ProfileInput
	if err := bind(c, &in); err != nil {
		return err
	}
	p, err := h.Profiles.Create(c.UserContext(), CurrentUser(c).ID, in)
	if err != nil {
		return err
	}
	applog.Info(c, "users.profile.create", map[string]any{"profile_id": p.ID})
	return c.Status(fiber.StatusCreated).JSON(p)
}

// PUT /users/profile
func (h *ProfileHandler) Replace(c *fiber.Ctx) error {
	var in services.ProfileInput
	if err := bind(c, &in); err != nil {
		return err
	}
	p, err := h.Profiles.Replace(c.UserContext(), CurrentUser(c).ID, in)
	if err != nil {
		return err
	}
	applog.Info(c, "users.profile.update", map[string]any{"profile_id": p.ID})
	return c.JSON(p)
}

// PATCH /users/profile
func (h *ProfileHandler) Patch(c *fiber.Ctx) error {
	var in services.ProfilePatch
	if err := bind(c, &in); err != nil {
		return err
	}
	p, err := h.Profiles.Patch(c.UserContext(), CurrentUser(c).ID, in)
	if err != nil {
		return err
	}
	applog.Info(c, "users.profile.update", map[string]any{"profile_id": p.ID})
	return c.JSON(p)
}

// DELETE /users/profile
func (h *ProfileHandler) Delete(c *fiber.Ctx) error {
	u := CurrentUser(c)
	p, err := h.Profiles.Delete(c.UserContext(), u.ID)
	if err != nil {
		return err
	}
	applog.Info(c, "users.profile.delete", map[string]any{"profile_id": p.ID})
	return c.JSON(fiber.Map{
		"message": "Profile successfully deleted",
		"deleted_profile": fiber.Map{
			"profile_id": p.ID,
			"first_name": p.FirstName,
			"last_name":  p.LastName,
		},
		"user_id":    u.ID,
		"user_email": u.Email,
	})
}
