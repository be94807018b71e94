// Package profiles serves the signed-in user's profile together with their
// locations.
package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/database"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/locations"
)

var (
	ErrNotFound   = errors.New("profile not found")
	ErrValidation = errors.New("invalid profile")
)

// Profile is the user's public details.
type Profile struct {
	UserID      uuid.UUID            `json:"id"`
	Email       string               `json:"email"`
	FirstName   string               `json:"first_name"`
	LastName    string               `json:"last_name"`
	Gender      string               `json:"gender"`
	DateOfBirth *string              `json:"date_of_birth"`
	PhoneNumber string               `json:"phone_number"`
	ImageKey    string               `json:"image_key"`
	ImageURL    string               `json:"image_url,omitempty"`
	Locations   []locations.Location `json:"locations"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// Update carries the editable profile fields. Nil fields are left alone.
type Update struct {
	FirstName   *string
	LastName    *string
	Gender      *string
	DateOfBirth *time.Time
	PhoneNumber *string
	ImageKey    *string
}

// Repository reads and writes profiles.
type Repository interface {
	Get(ctx context.Context, userID uuid.UUID) (*Profile, error)
	Update(ctx context.Context, userID uuid.UUID, update Update) error
}

type repository struct {
	db database.Service
}

// NewRepository creates a Postgres-backed profile repository.
func NewRepository(db database.Service) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	const q = `
		SELECT u.id, u.email, u.first_name, u.last_name,
		       p.gender, to_char(p.date_of_birth, 'YYYY-MM-DD'), p.phone_number, p.image_key, p.updated_at
		FROM users u
		JOIN profiles p ON p.user_id = u.id
		WHERE u.id = $1
	`
	var (
		p   Profile
		dob sql.NullString
	)
	err := r.db.QueryRow(ctx, q, userID).Scan(&p.UserID, &p.Email, &p.FirstName, &p.LastName,
		&p.Gender, &dob, &p.PhoneNumber, &p.ImageKey, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if dob.Valid {
		p.DateOfBirth = &dob.String
	}
	return &p, nil
}

func (r *repository) Update(ctx context.Context, userID uuid.UUID, u Update) error {
	now := time.Now().UTC()
	return r.db.WithTx(ctx, func(tx database.Querier) error {
		if u.FirstName != nil || u.LastName != nil {
			_, err := tx.Exec(ctx, `
				UPDATE users
				SET first_name = COALESCE($2, first_name),
				    last_name  = COALESCE($3, last_name),
				    updated_at = $4
				WHERE id = $1`, userID, u.FirstName, u.LastName, now)
			if err != nil {
				return fmt.Errorf("update user names: %w", err)
			}
		}

		res, err := tx.Exec(ctx, `
			UPDATE profiles
			SET gender        = COALESCE($2, gender),
			    date_of_birth = COALESCE($3, date_of_birth),
			    phone_number  = COALESCE($4, phone_number),
			    image_key     = COALESCE($5, image_key),
			    updated_at    = $6
			WHERE user_id = $1`, userID, u.Gender, u.DateOfBirth, u.PhoneNumber, u.ImageKey, now)
		if err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}
