package server_test

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/auth"
)

func TestRegisterAndLogin(t *testing.T) {
	a := newApp(t)

	r := a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "carol@example.com", "username": "carol", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, r.Status, string(r.Body))
	var u struct {
		Role string `json:"role"`
		Hash string `json:"password_hash"`
	}
	r.JSON(t, &u)
	assert.Equal(t, "common", u.Role)
	assert.Empty(t, u.Hash)

	r = a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "carol@example.com", "username": "carol2", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, r.Status)
	assert.Equal(t, "Email already registered", r.Detail(t))

	r = a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "dave@example.com", "username": "dave", "password": "abc",
	})
	assert.Equal(t, http.StatusBadRequest, r.Status)
	assert.Equal(t, "password must be at least 6 characters", r.Detail(t))

	tok := a.login(t, "carol@example.com")
	r = a.do(t, http.MethodGet, "/api/v1/auth/me", tok, nil)
	require.Equal(t, http.StatusOK, r.Status)
	assert.Contains(t, string(r.Body), `"username":"carol"`)
}

func TestLoginIssuesThirtyMinuteUserToken(t *testing.T) {
	a := newApp(t)
	r := a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": aliceEmail, "password": "Passw0rd!",
	})
	require.Equal(t, http.StatusOK, r.Status)
	var s session
	r.JSON(t, &s)
	assert.Equal(t, "bearer", s.TokenType)

	claims, err := a.tokens.Verify(s.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, auth.ClassUser, claims.TokenType)
	assert.Equal(t, "common", claims.Role)
	assert.Equal(t, aliceEmail, claims.Subject)
	assert.WithinDuration(t, a.clock.Now().Add(30*time.Minute), claims.ExpiresAt.Time, 0)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	a := newApp(t)
	r := a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": aliceEmail, "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, r.Status)
	assert.Equal(t, "Bearer", r.Header.Get("WWW-Authenticate"))
	assert.Equal(t, "Incorrect email or password", r.Detail(t))

	r = a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "nobody@storefront.test", "password": "whatever",
	})
	assert.Equal(t, http.StatusUnauthorized, r.Status)
	assert.Equal(t, "Incorrect email or password", r.Detail(t))
	assert.Equal(t, 2.0, testutil.ToFloat64(a.metrics.AuthFailures.WithLabelValues("bad_credentials")))
}

func TestAdminLogin(t *testing.T) {
	a := newApp(t)

	s := a.adminLogin(t, adminEmail)
	claims, err := a.tokens.Verify(s.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, auth.ClassAdmin, claims.TokenType)
	assert.WithinDuration(t, a.clock.Now().Add(60*time.Minute), s.ExpiresAt, 0)
	assert.ElementsMatch(t, []string{
		"manage_users", "manage_catalog", "view_reports",
		"manage_orders", "manage_inventory", "system_settings",
	}, s.Permissions)

	staff := a.adminLogin(t, staffEmail)
	assert.ElementsMatch(t, []string{"manage_catalog", "manage_orders", "manage_inventory", "view_reports"}, staff.Permissions)

	r := a.do(t, http.MethodPost, "/api/v1/admin/login", "", map[string]string{
		"email": aliceEmail, "password": "Passw0rd!",
	})
	assert.Equal(t, http.StatusForbidden, r.Status)
	assert.Equal(t, "Not authorized for admin access", r.Detail(t))

	r = a.do(t, http.MethodPost, "/api/v1/admin/verify-token", s.AccessToken, nil)
	require.Equal(t, http.StatusOK, r.Status)
	var v struct {
		Valid       bool     `json:"valid"`
		Permissions []string `json:"permissions"`
	}
	r.JSON(t, &v)
	assert.True(t, v.Valid)
	assert.Len(t, v.Permissions, 6)
}

func TestTokenClassIsEnforced(t *testing.T) {
	a := newApp(t)

	// An admin principal signed in through the user login holds a user
	// token; the role claim alone does not open admin routes.
	userTok := a.login(t, adminEmail)
	claims, err := a.tokens.Verify(userTok)
	require.NoError(t, err)
	require.Equal(t, "admin", claims.Role)

	r := a.do(t, http.MethodGet, "/api/v1/admin/users", userTok, nil)
	assert.Equal(t, http.StatusForbidden, r.Status)
	assert.Equal(t, "admin token required", r.Detail(t))

	adminTok := a.adminLogin(t, adminEmail).AccessToken
	r = a.do(t, http.MethodGet, "/api/v1/cart", adminTok, nil)
	assert.Equal(t, http.StatusForbidden, r.Status)
	assert.Equal(t, "user token required", r.Detail(t))

	assert.Equal(t, 2.0, testutil.ToFloat64(a.metrics.AuthFailures.WithLabelValues("wrong_class")))
}

func TestRoleGates(t *testing.T) {
	a := newApp(t)
	staff := a.adminLogin(t, staffEmail).AccessToken

	r := a.do(t, http.MethodGet, "/api/v1/admin/orders", staff, nil)
	assert.Equal(t, http.StatusOK, r.Status)

	r = a.do(t, http.MethodGet, "/api/v1/admin/users", staff, nil)
	assert.Equal(t, http.StatusForbidden, r.Status)
	assert.Equal(t, "Insufficient permissions", r.Detail(t))

	r = a.do(t, http.MethodPost, "/api/v1/admin/stores", staff, map[string]any{"name": "Uptown"})
	assert.Equal(t, http.StatusForbidden, r.Status)
}

func TestMissingMalformedAndExpiredTokens(t *testing.T) {
	a := newApp(t)

	r := a.do(t, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, r.Status)
	assert.Equal(t, "Bearer", r.Header.Get("WWW-Authenticate"))

	r = a.do(t, http.MethodGet, "/api/v1/auth/me", "not.a.token", nil)
	assert.Equal(t, http.StatusUnauthorized, r.Status)
	assert.Equal(t, "Could not validate credentials", r.Detail(t))

	tok := a.login(t, aliceEmail)
	r = a.do(t, http.MethodGet, "/api/v1/auth/me", tok, nil)
	require.Equal(t, http.StatusOK, r.Status)

	a.clock.Advance(29 * time.Minute)
	r = a.do(t, http.MethodGet, "/api/v1/auth/me", tok, nil)
	assert.Equal(t, http.StatusOK, r.Status)

	a.clock.Advance(time.Minute)
	r = a.do(t, http.MethodGet, "/api/v1/auth/me", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, r.Status)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.metrics.AuthFailures.WithLabelValues("missing")))
	assert.Equal(t, 2.0, testutil.ToFloat64(a.metrics.AuthFailures.WithLabelValues("invalid")))
}

func TestDeactivatedPrincipalLosesAccess(t *testing.T) {
	a := newApp(t)
	bob := a.login(t, bobEmail)
	admin := a.adminLogin(t, adminEmail).AccessToken

	r := a.do(t, http.MethodGet, "/api/v1/admin/users?role=common", admin, nil)
	require.Equal(t, http.StatusOK, r.Status)
	var users []struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	}
	r.JSON(t, &users)
	var bobID int64
	for _, u := range users {
		if u.Email == bobEmail {
			bobID = u.ID
		}
	}
	require.NotZero(t, bobID)

	path := "/api/v1/admin/users/" + strconv.FormatInt(bobID, 10) + "/status"
	r = a.do(t, http.MethodPatch, path, admin, map[string]bool{"is_active": false})
	require.Equal(t, http.StatusOK, r.Status, string(r.Body))

	r = a.do(t, http.MethodGet, "/api/v1/auth/me", bob, nil)
	assert.Equal(t, http.StatusUnauthorized, r.Status)
	assert.Equal(t, "Inactive user", r.Detail(t))

	r = a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": bobEmail, "password": "Passw0rd!"})
	assert.Equal(t, http.StatusUnauthorized, r.Status)

	// Admins cannot lock themselves out.
	r = a.do(t, http.MethodPatch, "/api/v1/admin/users/1/status", admin, map[string]bool{"is_active": false})
	assert.Equal(t, http.StatusBadRequest, r.Status)
}

func TestRoleChangeAppliesToIssuedTokens(t *testing.T) {
	a := newApp(t)
	staff := a.adminLogin(t, staffEmail)
	admin := a.adminLogin(t, adminEmail).AccessToken
	require.Equal(t, "store_staff", staff.User.Role)

	r := a.do(t, http.MethodGet, "/api/v1/admin/orders", staff.AccessToken, nil)
	require.Equal(t, http.StatusOK, r.Status)

	path := "/api/v1/admin/users/" + strconv.FormatInt(staff.User.ID, 10) + "/role"
	r = a.do(t, http.MethodPatch, path, admin, map[string]string{"role": "common"})
	require.Equal(t, http.StatusOK, r.Status, string(r.Body))

	entries := captureLogs(t, func() {
		r = a.do(t, http.MethodPost, "/api/v1/categories", staff.AccessToken, map[string]any{"name": "Sneaky"})
	})
	assert.Equal(t, http.StatusForbidden, r.Status, string(r.Body))
	assert.Equal(t, "Insufficient permissions", r.Detail(t))
	e, ok := findLog(entries, "access.denied.role")
	require.True(t, ok)
	assert.Equal(t, "common", e.Fields["role"])
	assert.Equal(t, "store_staff", e.Fields["token_role"])

	r = a.do(t, http.MethodGet, "/api/v1/admin/orders", staff.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, r.Status)

	// Promotion takes effect without a new login as well.
	r = a.do(t, http.MethodPatch, path, admin, map[string]string{"role": "admin"})
	require.Equal(t, http.StatusOK, r.Status, string(r.Body))
	r = a.do(t, http.MethodGet, "/api/v1/admin/users", staff.AccessToken, nil)
	assert.Equal(t, http.StatusOK, r.Status)
}
