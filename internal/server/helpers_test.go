package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/auth"
	"storefront/internal/config"
	applog "storefront/internal/log"
	"storefront/internal/metrics"
	"storefront/internal/repos"
	"storefront/internal/server"
)

const testSecret = "server-test-signing-key-0123456789abcdef"

const (
	adminEmail = "admin@storefront.test"
	staffEmail = "staff@storefront.test"
	aliceEmail = "alice@storefront.test"
	bobEmail   = "bob@storefront.test"
)

// clock is a settable time source shared by the app and the test.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testApp struct {
	app     *fiber.App
	tokens  *auth.Service
	metrics *metrics.Metrics
	clock   *clock
}

func newApp(t *testing.T, mutate ...func(*server.Options)) *testApp {
	t.Helper()
	// Quiet by default; captureLogs swaps in its own sink.
	t.Cleanup(applog.SetOutput(io.Discard))

	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repos.Seed(context.Background(), db, bcrypt.MinCost))

	clk := &clock{now: time.Now().UTC().Truncate(time.Second)}
	tokens, err := auth.NewService(testSecret, auth.WithClock(clk.Now))
	require.NoError(t, err)

	o := server.Options{
		Config:   config.Config{BodyLimit: 1 << 20, CORSOrigins: "*"},
		DB:       db,
		Tokens:   tokens,
		Metrics:  metrics.New(),
		LoginMax: 100,
	}
	for _, m := range mutate {
		m(&o)
	}
	return &testApp{app: server.New(o), tokens: tokens, metrics: o.Metrics, clock: clk}
}

type response struct {
	Status int
	Header http.Header
	Body   []byte
}

func (r response) JSON(t *testing.T, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Body, out), string(r.Body))
}

func (r response) Detail(t *testing.T) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	r.JSON(t, &body)
	return body.Detail
}

// do sends a JSON request. body may be nil, a string (sent raw) or any
// value to marshal.
func (a *testApp) do(t *testing.T, method, path, token string, body any) response {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if rd != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return a.send(t, req)
}

func (a *testApp) send(t *testing.T, req *http.Request) response {
	t.Helper()
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{Status: resp.StatusCode, Header: resp.Header, Body: raw}
}

type session struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Permissions []string  `json:"permissions"`
	User        struct {
		ID   int64  `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
}

func (a *testApp) login(t *testing.T, email string) string {
	t.Helper()
	r := a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": repos.DemoPassword})
	require.Equal(t, http.StatusOK, r.Status, string(r.Body))
	var s session
	r.JSON(t, &s)
	return s.AccessToken
}

func (a *testApp) adminLogin(t *testing.T, email string) session {
	t.Helper()
	r := a.do(t, http.MethodPost, "/api/v1/admin/login", "", map[string]string{"email": email, "password": repos.DemoPassword})
	require.Equal(t, http.StatusOK, r.Status, string(r.Body))
	var s session
	r.JSON(t, &s)
	return s
}

type logEntry struct {
	Action string         `json:"action"`
	Kind   string         `json:"kind"`
	Level  string         `json:"level"`
	UserID int64          `json:"user_id"`
	ReqID  string         `json:"req_id"`
	Status int            `json:"status"`
	Fields map[string]any `json:"fields"`
}

type lockedBuf struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (l *lockedBuf) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

// captureLogs collects every entry written while fn runs.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	var buf lockedBuf
	restore := applog.SetOutput(&buf)
	fn()
	restore()

	buf.mu.Lock()
	defer buf.mu.Unlock()
	var out []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.b.String()), "\n") {
		var e logEntry
		if json.Unmarshal([]byte(line), &e) == nil {
			out = append(out, e)
		}
	}
	return out
}

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}
