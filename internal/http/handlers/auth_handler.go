package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/auth"
	"storefront/internal/log"
	"storefront/internal/metrics"
	"storefront/internal/services"
)

type AuthHandler struct {
	Auth    *services.AuthService
	Metrics *metrics.Metrics
}

type loginBody struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// POST /auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := bind(c, &in); err != nil {
		return err
	}
	u, err := h.Auth.Register(c.UserContext(), in)
	if err != nil {
		log.Security(c, "auth.register.fail", map[string]any{"email": in.Email})
		return err
	}
	log.Audit(c, "auth.register", map[string]any{"user_id": u.ID})
	return c.Status(fiber.StatusCreated).JSON(u)
}

// POST /auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in loginBody
	if err := bind(c, &in); err != nil {
		return err
	}
	s, err := h.Auth.Login(c.UserContext(), in.Email, in.Password)
	if err != nil {
		h.loginFailed(c, "auth.login.fail", in.Email, err)
		return err
	}
	c.Locals(log.LocalUserID, s.User.ID)
	log.Audit(c, "auth.login.success", nil)
	return c.JSON(s)
}

// GET /auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return c.JSON(CurrentUser(c))
}

// PUT /users/me
func (h *AuthHandler) UpdateMe(c *fiber.Ctx) error {
	var in services.AccountUpdate
	if err := bind(c, &in); err != nil {
		return err
	}
	u, err := h.Auth.UpdateAccount(c.UserContext(), CurrentUser(c), in)
	if err != nil {
		if errors.Is(err, services.ErrBadCreds) {
			log.Security(c, "users.me.password.fail", nil)
		}
		return err
	}
	log.Audit(c, "users.me.update", map[string]any{
		"email":    in.Email != nil,
		"username": in.Username != nil,
		"password": in.NewPassword != "",
	})
	return c.JSON(u)
}

// POST /admin/login
func (h *AuthHandler) AdminLogin(c *fiber.Ctx) error {
	var in loginBody
	if err := bind(c, &in); err != nil {
		return err
	}
	s, err := h.Auth.AdminLogin(c.UserContext(), in.Email, in.Password)
	if err != nil {
		h.loginFailed(c, "auth.admin_login.fail", in.Email, err)
		return err
	}
	c.Locals(log.LocalUserID, s.User.ID)
	log.Audit(c, "auth.admin_login.success", map[string]any{"role": s.User.Role})
	return c.JSON(s)
}

// POST /admin/verify-token
func (h *AuthHandler) VerifyToken(c *fiber.Ctx) error {
	u := CurrentUser(c)
	resp := fiber.Map{
		"valid":       true,
		"user":        u,
		"permissions": auth.Permissions(u.Role),
	}
	if cl := currentClaims(c); cl != nil && cl.ExpiresAt != nil {
		resp["expires_at"] = cl.ExpiresAt.Time
	}
	return c.JSON(resp)
}

func (h *AuthHandler) loginFailed(c *fiber.Ctx, action, email string, err error) {
	reason := "denied"
	if errors.Is(err, services.ErrBadCreds) {
		reason = "bad_credentials"
	}
	log.Security(c, action, map[string]any{"email": email, "reason": reason})
	if h.Metrics != nil {
		h.Metrics.AuthFailures.WithLabelValues(reason).Inc()
	}
}
