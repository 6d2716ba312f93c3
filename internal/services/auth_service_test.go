package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/apperr"
	"storefront/internal/auth"
	"storefront/internal/domain"
	"storefront/internal/repos"
	"storefront/internal/services"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newAuth(t *testing.T, e *env, now func() time.Time) *services.AuthService {
	t.Helper()
	opts := []auth.Option{}
	if now != nil {
		opts = append(opts, auth.WithClock(now))
	}
	tokens, err := auth.NewService(testSecret, opts...)
	require.NoError(t, err)
	svc := services.NewAuthService(e.users, tokens)
	svc.Cost = bcrypt.MinCost
	return svc
}

func TestAuthService_Register(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	svc := newAuth(t, e, nil)

	u, err := svc.Register(ctx, services.RegisterInput{Email: "carol@example.com", Username: "carol", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCommon, u.Role)
	assert.True(t, u.IsActive)
	assert.NotEqual(t, "secret1", u.Hash)

	_, err = svc.Register(ctx, services.RegisterInput{Email: "CAROL@example.com", Username: "carol2", Password: "secret1"})
	require.Error(t, err)
	assert.Equal(t, apperr.Conflict, apperr.CodeOf(err))
	assert.Contains(t, err.Error(), "Email already registered")

	_, err = svc.Register(ctx, services.RegisterInput{Email: "c2@example.com", Username: "Carol", Password: "secret1"})
	assert.Contains(t, err.Error(), "Username already taken")
}

func TestAuthService_LoginIssuesUserToken(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	svc := newAuth(t, e, nil)

	s, err := svc.Login(ctx, "alice@storefront.test", repos.DemoPassword)
	require.NoError(t, err)
	assert.Equal(t, "bearer", s.TokenType)

	claims, err := svc.Tokens.Verify(s.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, auth.ClassUser, claims.TokenType)
	assert.Equal(t, aliceID, claims.UserID)
	assert.Equal(t, "alice@storefront.test", claims.Subject)

	u, err := e.users.ByID(ctx, aliceID)
	require.NoError(t, err)
	assert.NotNil(t, u.LastLogin)

	_, err = svc.Login(ctx, "alice@storefront.test", "wrong")
	assert.Equal(t, apperr.Unauthenticated, apperr.CodeOf(err))
	assert.ErrorIs(t, err, services.ErrBadCreds)

	_, err = svc.Login(ctx, "nobody@storefront.test", "wrong")
	assert.ErrorIs(t, err, services.ErrBadCreds)
}

func TestAuthService_AdminLogin(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	svc := newAuth(t, e, nil)

	s, err := svc.AdminLogin(ctx, "staff@storefront.test", repos.DemoPassword)
	require.NoError(t, err)
	assert.ElementsMatch(t, auth.Permissions(domain.RoleStoreStaff), s.Permissions)
	claims, err := svc.Tokens.Verify(s.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, auth.ClassAdmin, claims.TokenType)
	assert.Equal(t, auth.DefaultAdminTTL, claims.ExpiresAt.Sub(claims.IssuedAt.Time))

	_, err = svc.AdminLogin(ctx, "alice@storefront.test", repos.DemoPassword)
	assert.Equal(t, apperr.Forbidden, apperr.CodeOf(err))

	_, err = svc.AdminLogin(ctx, "admin@storefront.test", "nope")
	assert.Equal(t, apperr.Unauthenticated, apperr.CodeOf(err))
}

func TestAuthService_Authenticate(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newAuth(t, e, func() time.Time { return now })

	user, err := svc.Login(ctx, "bob@storefront.test", repos.DemoPassword)
	require.NoError(t, err)
	admin, err := svc.AdminLogin(ctx, "admin@storefront.test", repos.DemoPassword)
	require.NoError(t, err)

	u, claims, err := svc.Authenticate(ctx, user.AccessToken, auth.ClassUser)
	require.NoError(t, err)
	assert.Equal(t, bobID, u.ID)
	assert.Equal(t, domain.RoleCommon, claims.Role)

	t.Run("class mismatch is forbidden both ways", func(t *testing.T) {
		_, _, err := svc.Authenticate(ctx, user.AccessToken, auth.ClassAdmin)
		assert.Equal(t, apperr.Forbidden, apperr.CodeOf(err))
		_, _, err = svc.Authenticate(ctx, admin.AccessToken, auth.ClassUser)
		assert.Equal(t, apperr.Forbidden, apperr.CodeOf(err))
	})

	t.Run("missing token", func(t *testing.T) {
		_, _, err := svc.Authenticate(ctx, "", auth.ClassUser)
		assert.Equal(t, apperr.Unauthenticated, apperr.CodeOf(err))
	})

	t.Run("deactivated principal", func(t *testing.T) {
		require.NoError(t, e.users.SetActive(ctx, bobID, false))
		defer func() { require.NoError(t, e.users.SetActive(ctx, bobID, true)) }()
		_, _, err := svc.Authenticate(ctx, user.AccessToken, auth.ClassUser)
		assert.Equal(t, apperr.Unauthenticated, apperr.CodeOf(err))
	})

	t.Run("expired", func(t *testing.T) {
		now = now.Add(auth.DefaultUserTTL)
		_, _, err := svc.Authenticate(ctx, user.AccessToken, auth.ClassUser)
		assert.ErrorIs(t, err, auth.ErrExpiredOrInvalid)
		// admin token lives twice as long
		_, _, err = svc.Authenticate(ctx, admin.AccessToken, auth.ClassAdmin)
		assert.NoError(t, err)
	})
}

func TestAuthService_CreatePrincipal(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	svc := newAuth(t, e, nil)

	u, err := svc.CreatePrincipal(ctx, services.RegisterInput{Email: "ops@example.com", Username: "ops", Password: "secret1"}, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, u.Role)

	_, err = svc.CreatePrincipal(ctx, services.RegisterInput{Email: "x@example.com", Username: "xx1", Password: "secret1"}, "root")
	assert.Equal(t, apperr.Validation, apperr.CodeOf(err))
}
