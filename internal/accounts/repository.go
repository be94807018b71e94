package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/database"
)

const userColumns = `id, email, password_hash, first_name, last_name, is_active, created_at, updated_at`

// Repository is the user store, keyed by unique email.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	// Create inserts the user and its profile in one transaction.
	Create(ctx context.Context, user *User, profile ProfileInfo) error
	Activate(ctx context.Context, id uuid.UUID) error
	SetPassword(ctx context.Context, id uuid.UUID, hash string) error
	UpdateNames(ctx context.Context, id uuid.UUID, update NameUpdate) (*User, error)
	UpdateEmail(ctx context.Context, id uuid.UUID, email string) (*User, error)
}

type repository struct {
	db database.Service
}

// NewRepository creates a Postgres-backed user store.
func NewRepository(db database.Service) Repository {
	return &repository{db: db}
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *repository) Create(ctx context.Context, user *User, profile ProfileInfo) error {
	return r.db.WithTx(ctx, func(tx database.Querier) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, email, password_hash, first_name, last_name, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName, user.IsActive, user.CreatedAt, user.UpdatedAt)
		if database.IsUniqueViolation(err, "users_email_key") {
			return ErrEmailExists
		}
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO profiles (user_id, gender, date_of_birth, phone_number, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)`,
			user.ID, profile.Gender, profile.DateOfBirth, profile.PhoneNumber, user.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert profile: %w", err)
		}
		return nil
	})
}

func (r *repository) Activate(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, `UPDATE users SET is_active = TRUE, updated_at = $2 WHERE id = $1`, id, time.Now().UTC())
}

func (r *repository) SetPassword(ctx context.Context, id uuid.UUID, hash string) error {
	return r.exec(ctx, `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, hash, time.Now().UTC())
}

func (r *repository) UpdateNames(ctx context.Context, id uuid.UUID, update NameUpdate) (*User, error) {
	return scanUser(r.db.QueryRow(ctx, `
		UPDATE users
		SET first_name = COALESCE($2, first_name),
		    last_name  = COALESCE($3, last_name),
		    updated_at = $4
		WHERE id = $1
		RETURNING `+userColumns,
		id, update.FirstName, update.LastName, time.Now().UTC()))
}

func (r *repository) UpdateEmail(ctx context.Context, id uuid.UUID, email string) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `
		UPDATE users SET email = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+userColumns,
		id, email, time.Now().UTC()))
	if database.IsUniqueViolation(err, "users_email_key") {
		return nil, ErrEmailExists
	}
	return u, err
}

func (r *repository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
