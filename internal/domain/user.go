package domain

const (
	RoleCommon     = "common"
	RoleAdmin      = "admin"
	RoleStoreStaff = "store_staff"
)

// BackOfficeRoles may sign in through the admin login.
var BackOfficeRoles = []string{RoleAdmin, RoleStoreStaff}

func ValidRole(r string) bool {
	switch r {
	case RoleCommon, RoleAdmin, RoleStoreStaff:
		return true
	}
	return false
}

type User struct {
	ID        int64   `db:"id" json:"id"`
	Email     string  `db:"email" json:"email"`
	Username  string  `db:"username" json:"username"`
	Hash      string  `db:"password_hash" json:"-"`
	Role      string  `db:"role" json:"role"`
	IsActive  bool    `db:"is_active" json:"is_active"`
	LastLogin *string `db:"last_login" json:"last_login"`
	CreatedAt string  `db:"created_at" json:"created_at"`
	UpdatedAt *string `db:"updated_at" json:"updated_at"`
}

func (u *User) IsBackOffice() bool {
	return u.Role == RoleAdmin || u.Role == RoleStoreStaff
}

// UserProfile holds optional personal details of a principal.
type UserProfile struct {
	ID           int64   `db:"id" json:"profile_id"`
	UserID       int64   `db:"user_id" json:"user_id"`
	FirstName    string  `db:"first_name" json:"first_name"`
	LastName     string  `db:"last_name" json:"last_name"`
	Address      string  `db:"address" json:"address"`
	Phone        string  `db:"phone" json:"phone"`
	ProfileImage string  `db:"profile_image" json:"profile_image"`
	CreatedAt    string  `db:"created_at" json:"created_at"`
	UpdatedAt    *string `db:"updated_at" json:"updated_at"`
}
