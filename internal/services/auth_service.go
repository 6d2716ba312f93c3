package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"storefront/internal/apperr"
	"storefront/internal/auth"
	"storefront/internal/domain"
	"storefront/internal/repos"
)

var ErrBadCreds = errors.New("invalid email or password")

type AuthService struct {
	Users  *repos.UserRepo
	Tokens *auth.Service
	// Cost is the bcrypt cost for new hashes; zero means bcrypt.DefaultCost+2.
	Cost int
}

func NewAuthService(users *repos.UserRepo, tokens *auth.Service) *AuthService {
	return &AuthService{Users: users, Tokens: tokens}
}

func (s *AuthService) cost() int {
	if s.Cost == 0 {
		return bcrypt.DefaultCost + 2
	}
	return s.Cost
}

type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Username string `json:"username" validate:"required,min=3,max=50,username"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// Session is what a successful login hands back to the client.
type Session struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *domain.User `json:"user"`
	Permissions []string     `json:"permissions,omitempty"`
}

// Register creates a common principal.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	return s.create(ctx, in, domain.RoleCommon)
}

// CreatePrincipal creates a principal with any role. It backs the
// create-admin command since registration always yields common users.
func (s *AuthService) CreatePrincipal(ctx context.Context, in RegisterInput, role string) (*domain.User, error) {
	if !domain.ValidRole(role) {
		return nil, apperr.Newf(apperr.Validation, "Unknown role %q", role)
	}
	return s.create(ctx, in, role)
}

func (s *AuthService) create(ctx context.Context, in RegisterInput, role string) (*domain.User, error) {
	email := strings.TrimSpace(in.Email)
	username := strings.TrimSpace(in.Username)
	if taken, err := s.Users.EmailTaken(ctx, email); err != nil {
		return nil, err
	} else if taken {
		return nil, apperr.New(apperr.Conflict, "Email already registered")
	}
	if taken, err := s.Users.UsernameTaken(ctx, username); err != nil {
		return nil, err
	} else if taken {
		return nil, apperr.New(apperr.Conflict, "Username already taken")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost())
	if err != nil {
		return nil, err
	}
	u, err := s.Users.Create(ctx, email, username, string(hash), role)
	if repos.IsUniqueViolation(err) {
		return nil, apperr.New(apperr.Conflict, "Email or username already registered")
	}
	return u, err
}

// check returns the principal if the password matches and the account is
// active. Every failure looks the same to the caller.
func (s *AuthService) check(ctx context.Context, email, password string) (*domain.User, error) {
	u, err := s.Users.ByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repos.ErrNotFound) {
		return nil, apperr.Wrap(ErrBadCreds, apperr.Unauthenticated, "Incorrect email or password")
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, apperr.Wrap(ErrBadCreds, apperr.Unauthenticated, "Incorrect email or password")
	}
	if !u.IsActive {
		return nil, apperr.New(apperr.Unauthenticated, "Inactive user")
	}
	return u, nil
}

// Login issues a user-class token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.check(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.Users.TouchLastLogin(ctx, u.ID); err != nil {
		return nil, err
	}
	tok, exp, err := s.Tokens.Issue(u.Email, u.ID, u.Role, auth.ClassUser, 0)
	if err != nil {
		return nil, err
	}
	return &Session{AccessToken: tok, TokenType: "bearer", ExpiresAt: exp, User: u}, nil
}

// AdminLogin issues an admin-class token to back-office principals only.
func (s *AuthService) AdminLogin(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.check(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if !u.IsBackOffice() {
		return nil, apperr.New(apperr.Forbidden, "Not authorized for admin access")
	}
	if err := s.Users.TouchLastLogin(ctx, u.ID); err != nil {
		return nil, err
	}
	tok, exp, err := s.Tokens.Issue(u.Email, u.ID, u.Role, auth.ClassAdmin, 0)
	if err != nil {
		return nil, err
	}
	return &Session{
		AccessToken: tok, TokenType: "bearer", ExpiresAt: exp, User: u,
		Permissions: auth.Permissions(u.Role),
	}, nil
}

// Authenticate verifies a bearer token of the expected class and loads the
// principal it names. The principal must still exist and be active.
func (s *AuthService) Authenticate(ctx context.Context, token string, class auth.Class) (*domain.User, *auth.Claims, error) {
	if token == "" {
		return nil, nil, apperr.New(apperr.Unauthenticated, "Not authenticated")
	}
	claims, err := s.Tokens.Verify(token)
	if err != nil {
		return nil, nil, err
	}
	if err := auth.RequireTokenClass(claims, class); err != nil {
		return nil, nil, err
	}
	u, err := s.Users.ByEmail(ctx, claims.Subject)
	if errors.Is(err, repos.ErrNotFound) {
		return nil, nil, apperr.New(apperr.Unauthenticated, "Could not validate credentials")
	}
	if err != nil {
		return nil, nil, err
	}
	if !u.IsActive {
		return nil, nil, apperr.New(apperr.Unauthenticated, "Inactive user")
	}
	return u, claims, nil
}

// AccountUpdate changes the sign-in fields of the caller. A new password
// needs the current one.
type AccountUpdate struct {
	Email           *string `json:"email" validate:"omitempty,email,max=255"`
	Username        *string `json:"username" validate:"omitempty,min=3,max=50,username"`
	CurrentPassword string  `json:"current_password" validate:"required_with=NewPassword"`
	NewPassword     string  `json:"new_password" validate:"omitempty,min=6,max=128"`
}

// UpdateAccount applies in to u. Tokens name the principal by email, so
// changing it ends every session issued before the change.
func (s *AuthService) UpdateAccount(ctx context.Context, u *domain.User, in AccountUpdate) (*domain.User, error) {
	email, username, hash := u.Email, u.Username, u.Hash

	if in.NewPassword != "" {
		if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(in.CurrentPassword)) != nil {
			return nil, apperr.Wrap(ErrBadCreds, apperr.Validation, "Incorrect password")
		}
		h, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), s.cost())
		if err != nil {
			return nil, err
		}
		hash = string(h)
	}
	if in.Email != nil {
		if e := strings.TrimSpace(*in.Email); !strings.EqualFold(e, u.Email) {
			if taken, err := s.Users.EmailTaken(ctx, e); err != nil {
				return nil, err
			} else if taken {
				return nil, apperr.New(apperr.Conflict, "Email already registered")
			}
			email = e
		}
	}
	if in.Username != nil {
		if n := strings.TrimSpace(*in.Username); !strings.EqualFold(n, u.Username) {
			if taken, err := s.Users.UsernameTaken(ctx, n); err != nil {
				return nil, err
			} else if taken {
				return nil, apperr.New(apperr.Conflict, "Username already taken")
			}
			username = n
		}
	}

	err := s.Users.UpdateAccount(ctx, u.ID, email, username, hash)
	if repos.IsUniqueViolation(err) {
		return nil, apperr.New(apperr.Conflict, "Email or username already registered")
	}
	if err != nil {
		return nil, err
	}
	return s.Users.ByID(ctx, u.ID)
}
