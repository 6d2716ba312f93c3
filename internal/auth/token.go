// Package auth issues and verifies the signed bearer tokens used by the API.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"storefront/internal/apperr"
)

// Class separates tokens minted by the customer login from those minted by
// the back-office login. A route accepts exactly one class.
type Class string

const (
	ClassUser  Class = "user"
	ClassAdmin Class = "admin"
)

const (
	DefaultUserTTL  = 30 * time.Minute
	DefaultAdminTTL = 60 * time.Minute
)

var ErrExpiredOrInvalid = errors.New("token expired or invalid")

type Claims struct {
	UserID    int64  `json:"user_id"`
	Role      string `json:"role"`
	TokenType Class  `json:"token_type"`
	jwt.RegisteredClaims
}

type Service struct {
	secret   []byte
	userTTL  time.Duration
	adminTTL time.Duration
	now      func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now for issuing and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTTLs overrides the per-class default lifetimes. Zero keeps the default.
func WithTTLs(user, admin time.Duration) Option {
	return func(s *Service) {
		if user > 0 {
			s.userTTL = user
		}
		if admin > 0 {
			s.adminTTL = admin
		}
	}
}

func NewService(secret string, opts ...Option) (*Service, error) {
	if secret == "" {
		return nil, errors.New("auth: empty signing key")
	}
	s := &Service{
		secret:   []byte(secret),
		userTTL:  DefaultUserTTL,
		adminTTL: DefaultAdminTTL,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// DefaultTTL is the lifetime Issue uses for class when none is given.
func (s *Service) DefaultTTL(class Class) time.Duration {
	if class == ClassAdmin {
		return s.adminTTL
	}
	return s.userTTL
}

// Issue signs a token for subject. A non-positive ttl selects the class default.
func (s *Service) Issue(subject string, userID int64, role string, class Class, ttl time.Duration) (string, time.Time, error) {
	if class != ClassUser && class != ClassAdmin {
		return "", time.Time{}, fmt.Errorf("auth: unknown token class %q", class)
	}
	if ttl <= 0 {
		ttl = s.DefaultTTL(class)
	}
	now := s.now().UTC()
	exp := now.Add(ttl)
	claims := &Claims{
		UserID:    userID,
		Role:      role,
		TokenType: class,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign: %w", err)
	}
	return signed, exp, nil
}

// Verify checks signature and expiry and returns the claims. It does not
// consult the principal store; callers do that.
func (s *Service) Verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, invalid(err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, invalid(errors.New("unexpected claims"))
	}
	if claims.Subject == "" {
		return nil, invalid(errors.New("missing subject"))
	}
	if claims.TokenType != ClassUser && claims.TokenType != ClassAdmin {
		return nil, invalid(fmt.Errorf("unknown token class %q", claims.TokenType))
	}
	return claims, nil
}

func invalid(cause error) error {
	return &apperr.Error{
		Code:    apperr.Unauthenticated,
		Message: "Could not validate credentials",
		Cause:   fmt.Errorf("%w: %v", ErrExpiredOrInvalid, cause),
	}
}

// RequireRole fails with Forbidden unless the role claim is one of allowed.
func RequireRole(claims *Claims, allowed ...string) error {
	if claims == nil {
		return apperr.New(apperr.Unauthenticated, "Token required")
	}
	return CheckRole(claims.Role, allowed...)
}

// CheckRole fails with Forbidden unless role is one of allowed.
func CheckRole(role string, allowed ...string) error {
	for _, r := range allowed {
		if role == r {
			return nil
		}
	}
	return apperr.New(apperr.Forbidden, "Insufficient permissions")
}

// RequireTokenClass fails with Forbidden when the token was minted for the
// other login surface, whatever its role claim says.
func RequireTokenClass(claims *Claims, expected Class) error {
	if claims == nil {
		return apperr.New(apperr.Unauthenticated, "Token required")
	}
	if claims.TokenType != expected {
		return apperr.Newf(apperr.Forbidden, "%s token required", expected)
	}
	return nil
}
