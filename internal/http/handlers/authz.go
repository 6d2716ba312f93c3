package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/apperr"
	"storefront/internal/auth"
	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/metrics"
	"storefront/internal/services"
)

const (
	localUser   = "user"
	localClaims = "claims"
)

func bearer(c *fiber.Ctx) string {
	h := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// RequireAuth admits requests carrying a valid bearer token of class whose
// principal exists and is active. The principal is stored in Locals.
func RequireAuth(svc *services.AuthService, m *metrics.Metrics, class auth.Class) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tok := bearer(c)
		u, claims, err := svc.Authenticate(c.UserContext(), tok, class)
		if err != nil {
			reason := rejectReason(tok, err)
			applog.Security(c, "auth.token.reject", map[string]any{"class": string(class), "reason": reason})
			if m != nil {
				m.AuthFailures.WithLabelValues(reason).Inc()
			}
			return err
		}
		c.Locals(localUser, u)
		c.Locals(localClaims, claims)
		c.Locals(applog.LocalUserID, u.ID)
		return c.Next()
	}
}

func rejectReason(tok string, err error) string {
	switch {
	case tok == "":
		return "missing"
	case errors.Is(err, auth.ErrExpiredOrInvalid):
		return "invalid"
	case apperr.CodeOf(err) == apperr.Forbidden:
		return "wrong_class"
	default:
		return "principal"
	}
}

// RequireRoles must run after RequireAuth. It gates on the stored role of
// the principal, so a role change applies to tokens already issued.
func RequireRoles(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := CurrentUser(c)
		if u == nil {
			return apperr.New(apperr.Unauthenticated, "Token required")
		}
		if err := auth.CheckRole(u.Role, roles...); err != nil {
			fields := map[string]any{"path": c.Path(), "role": u.Role}
			if cl := currentClaims(c); cl != nil && cl.Role != u.Role {
				fields["token_role"] = cl.Role
			}
			applog.Security(c, "access.denied.role", fields)
			return err
		}
		return c.Next()
	}
}

// CurrentUser returns the principal RequireAuth stored.
func CurrentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals(localUser).(*domain.User)
	return u
}

func currentClaims(c *fiber.Ctx) *auth.Claims {
	cl, _ := c.Locals(localClaims).(*auth.Claims)
	return cl
}
