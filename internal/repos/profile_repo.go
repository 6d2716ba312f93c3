package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
)

type ProfileRepo struct{ db *sqlx.DB }

func NewProfileRepo(db *sqlx.DB) *ProfileRepo { return &ProfileRepo{db: db} }

const profileCols = `id,user_id,first_name,last_name,address,phone,profile_image,created_at,updated_at`

func (r *ProfileRepo) ByUser(ctx context.Context, userID int64) (*domain.UserProfile, error) {
	var p domain.UserProfile
	if err := get(ctx, r.db, &p, `SELECT `+profileCols+` FROM user_profiles WHERE user_id=?`, userID); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// Create fails with a unique violation when the principal already has one.
func (r *ProfileRepo) Create(ctx context.Context, p *domain.UserProfile) (*domain.UserProfile, error) {
	if _, err := insertID(ctx, r.db, `
		INSERT INTO user_profiles(user_id,first_name,last_name,address,phone,profile_image)
		VALUES(?,?,?,?,?,?) RETURNING id`,
		p.UserID, p.FirstName, p.LastName, p.Address, p.Phone, p.ProfileImage); err != nil {
		return nil, err
	}
	return r.ByUser(ctx, p.UserID)
}

// Update overwrites every field of the principal's profile.
func (r *ProfileRepo) Update(ctx context.Context, p *domain.UserProfile) error {
	return affected(ctx, r.db, `
		UPDATE user_profiles
		SET first_name=?, last_name=?, address=?, phone=?, profile_image=?, updated_at=CURRENT_TIMESTAMP
		WHERE user_id=?`,
		p.FirstName, p.LastName, p.Address, p.Phone, p.ProfileImage, p.UserID)
}

func (r *ProfileRepo) Delete(ctx context.Context, userID int64) error {
	return affected(ctx, r.db, `DELETE FROM user_profiles WHERE user_id=?`, userID)
}
