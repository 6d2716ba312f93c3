package server_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/server"
)

func TestLoginIsThrottled(t *testing.T) {
	a := newApp(t, func(o *server.Options) { o.LoginMax = 2 })
	body := map[string]string{"email": aliceEmail, "password": "wrong-password"}

	for i := 0; i < 2; i++ {
		r := a.do(t, http.MethodPost, "/api/v1/auth/login", "", body)
		require.Equal(t, http.StatusUnauthorized, r.Status, "attempt %d", i)
	}
	var r response
	logs := captureLogs(t, func() {
		r = a.do(t, http.MethodPost, "/api/v1/auth/login", "", body)
	})
	assert.Equal(t, http.StatusTooManyRequests, r.Status)
	_, ok := findLog(logs, "rate.login.hit")
	assert.True(t, ok, "rate.login.hit not logged")

	// The admin login shares the bucket.
	r = a.do(t, http.MethodPost, "/api/v1/admin/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, r.Status)
}

func TestAvailabilityIsThrottled(t *testing.T) {
	a := newApp(t)
	for i := 0; i < 15; i++ {
		r := a.do(t, http.MethodGet, "/api/v1/products/1/availability", "", nil)
		require.Equal(t, http.StatusOK, r.Status, "request %d", i)
	}
	r := a.do(t, http.MethodGet, "/api/v1/products/1/availability", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, r.Status)
}

func TestOversizedBodyIsRejected(t *testing.T) {
	a := newApp(t)
	tok := a.login(t, aliceEmail)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewReader(bytes.Repeat([]byte("A"), (1<<20)+10)))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+tok)
	resp, err := a.app.Test(req, -1)
	if err != nil {
		// fasthttp may refuse the body before a response is written.
		assert.True(t, strings.Contains(err.Error(), "body size exceeds") || strings.Contains(err.Error(), "too large"), err.Error())
		return
	}
	defer resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestErrorSurface(t *testing.T) {
	a := newApp(t)
	tok := a.login(t, aliceEmail)

	r := a.do(t, http.MethodGet, "/api/v1/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, r.Status)
	assert.Equal(t, "Not found", r.Detail(t))

	r = a.do(t, http.MethodPost, "/api/v1/cart/items", tok, `{"product_id":`)
	assert.Equal(t, http.StatusBadRequest, r.Status)
	assert.Equal(t, "Invalid request body", r.Detail(t))

	r = a.do(t, http.MethodPost, "/api/v1/cart/items", tok, nil)
	assert.Equal(t, http.StatusBadRequest, r.Status)
	assert.Equal(t, "Request body is required", r.Detail(t))

	r = a.do(t, http.MethodPost, "/api/v1/cart/items", tok, map[string]any{"product_id": 1, "quantity": 100})
	assert.Equal(t, http.StatusBadRequest, r.Status)
	assert.Equal(t, "quantity must be at most 99", r.Detail(t))

	r = a.do(t, http.MethodPost, "/api/v1/cart/items", tok, map[string]any{"product_id": 999, "quantity": 1})
	assert.Equal(t, http.StatusNotFound, r.Status)
}

func TestHealthMetricsAndHeaders(t *testing.T) {
	a := newApp(t)

	r := a.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, r.Status)
	assert.JSONEq(t, `{"ok":true}`, string(r.Body))
	assert.NotEmpty(t, r.Header.Get(fiber.HeaderXRequestID))
	assert.Equal(t, "nosniff", r.Header.Get(fiber.HeaderXContentTypeOptions))

	a.do(t, http.MethodGet, "/api/v1/categories/1", "", nil)
	r = a.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, r.Status)
	body := string(r.Body)
	assert.Contains(t, body, "storefront_http_requests_total")
	assert.Contains(t, body, `route="/api/v1/categories/:id"`)
	assert.Contains(t, body, "go_goroutines")
}

func TestProductsAndSearch(t *testing.T) {
	a := newApp(t)
	staff := a.adminLogin(t, staffEmail).AccessToken

	r := a.do(t, http.MethodGet, "/api/v1/products?category_id=3", "", nil)
	require.Equal(t, http.StatusOK, r.Status)
	var prods []struct {
		ID  int64  `json:"product_id"`
		SKU string `json:"sku"`
	}
	r.JSON(t, &prods)
	assert.Len(t, prods, 2)

	r = a.do(t, http.MethodGet, "/api/v1/products?min_price=20&max_price=10", "", nil)
	assert.Equal(t, http.StatusBadRequest, r.Status)

	r = a.do(t, http.MethodPost, "/api/v1/products", staff, map[string]any{
		"name": "Neuromancer", "sku": "BK-NEURO", "price": 12.5, "online_stock": 3, "category_ids": []int64{3},
	})
	require.Equal(t, http.StatusCreated, r.Status, string(r.Body))

	r = a.do(t, http.MethodPost, "/api/v1/products", staff, map[string]any{
		"name": "Neuromancer again", "sku": "BK-NEURO", "price": 12.5,
	})
	assert.Equal(t, http.StatusBadRequest, r.Status)

	r = a.do(t, http.MethodPatch, "/api/v1/products/1/stock", staff, map[string]any{"online_stock": -1})
	assert.Equal(t, http.StatusBadRequest, r.Status)

	r = a.do(t, http.MethodDelete, "/api/v1/products/2", staff, nil)
	require.Equal(t, http.StatusOK, r.Status)
	r = a.do(t, http.MethodGet, "/api/v1/products/2", "", nil)
	assert.Equal(t, http.StatusNotFound, r.Status)

	r = a.do(t, http.MethodGet, "/api/v1/search?q=neuro", "", nil)
	require.Equal(t, http.StatusOK, r.Status)
	assert.Contains(t, string(r.Body), "BK-NEURO")

	r = a.do(t, http.MethodGet, "/api/v1/search?q=%3Cscript%3E", "", nil)
	assert.Equal(t, http.StatusBadRequest, r.Status)
}
