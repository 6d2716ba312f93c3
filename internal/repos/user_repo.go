package repos

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = `id,email,username,password_hash,role,is_active,last_login,created_at,updated_at`

func (r *UserRepo) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := get(ctx, r.DB, &u, `SELECT `+userCols+` FROM users WHERE LOWER(email)=LOWER(?)`, email)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepo) ByID(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	err := get(ctx, r.DB, &u, `SELECT `+userCols+` FROM users WHERE id=?`, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepo) EmailTaken(ctx context.Context, email string) (bool, error) {
	var n int
	err := get(ctx, r.DB, &n, `SELECT COUNT(*) FROM users WHERE LOWER(email)=LOWER(?)`, email)
	return n > 0, err
}

func (r *UserRepo) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var n int
	err := get(ctx, r.DB, &n, `SELECT COUNT(*) FROM users WHERE LOWER(username)=LOWER(?)`, username)
	return n > 0, err
}

func (r *UserRepo) Create(ctx context.Context, email, username, hash, role string) (*domain.User, error) {
	id, err := insertID(ctx, r.DB, `
		INSERT INTO users(email,username,password_hash,role,is_active)
		VALUES(?,?,?,?,TRUE)
		RETURNING id`, strings.TrimSpace(email), strings.TrimSpace(username), hash, role)
	if err != nil {
		return nil, err
	}
	return r.ByID(ctx, id)
}

func (r *UserRepo) TouchLastLogin(ctx context.Context, id int64) error {
	return affected(ctx, r.DB, `UPDATE users SET last_login=CURRENT_TIMESTAMP WHERE id=?`, id)
}

func (r *UserRepo) SetRole(ctx context.Context, id int64, role string) error {
	return affected(ctx, r.DB, `UPDATE users SET role=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`, role, id)
}

func (r *UserRepo) SetActive(ctx context.Context, id int64, active bool) error {
	return affected(ctx, r.DB, `UPDATE users SET is_active=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`, active, id)
}

// UpdateAccount writes the sign-in fields of a principal. The caller
// passes the current values for anything that does not change.
func (r *UserRepo) UpdateAccount(ctx context.Context, id int64, email, username, hash string) error {
	return affected(ctx, r.DB, `
		UPDATE users SET email=?, username=?, password_hash=?, updated_at=CURRENT_TIMESTAMP
		WHERE id=?`, strings.TrimSpace(email), strings.TrimSpace(username), hash, id)
}

// UserStats counts principals by role and status.
type UserStats struct {
	Total      int `db:"total_users" json:"total_users"`
	Active     int `db:"active_users" json:"active_users"`
	Common     int `db:"common_users" json:"common_users"`
	Admins     int `db:"admin_users" json:"admin_users"`
	StoreStaff int `db:"store_staff_users" json:"store_staff_users"`
}

func (r *UserRepo) Stats(ctx context.Context) (UserStats, error) {
	var s UserStats
	err := get(ctx, r.DB, &s, `
		SELECT COUNT(*) AS total_users,
		       COALESCE(SUM(CASE WHEN is_active THEN 1 ELSE 0 END),0) AS active_users,
		       COALESCE(SUM(CASE WHEN role='common' THEN 1 ELSE 0 END),0) AS common_users,
		       COALESCE(SUM(CASE WHEN role='admin' THEN 1 ELSE 0 END),0) AS admin_users,
		       COALESCE(SUM(CASE WHEN role='store_staff' THEN 1 ELSE 0 END),0) AS store_staff_users
		FROM users`)
	return s, err
}

type UserFilter struct {
	Role     string
	IsActive *bool
	Skip     int
	Limit    int
}

func (r *UserRepo) List(ctx context.Context, f UserFilter) ([]domain.User, error) {
	q := `SELECT ` + userCols + ` FROM users WHERE 1=1`
	var args []any
	if f.Role != "" {
		q += ` AND role=?`
		args = append(args, f.Role)
	}
	if f.IsActive != nil {
		q += ` AND is_active=?`
		args = append(args, *f.IsActive)
	}
	q += ` ORDER BY id LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Skip)

	out := []domain.User{}
	err := sel(ctx, r.DB, &out, q, args...)
	return out, err
}
