package otp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/database"
)

// PostgresStore keeps codes in the one_time_codes table.
type PostgresStore struct {
	db database.Querier
}

// NewPostgresStore creates a store over db.
func NewPostgresStore(db database.Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Exists(ctx context.Context, value string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM one_time_codes WHERE code = $1)`, value).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *PostgresStore) Insert(ctx context.Context, code *Code) error {
	// Postgres keeps microseconds; keep the caller's copy in step with the row.
	code.CreatedAt = code.CreatedAt.Truncate(time.Microsecond)

	const q = `
		INSERT INTO one_time_codes (id, user_id, code, purpose, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.Exec(ctx, q, code.ID, code.OwnerID, code.Value, string(code.Purpose), code.CreatedAt)
	if database.IsUniqueViolation(err, "") {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert otp: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByValue(ctx context.Context, value string) (*Code, error) {
	const q = `
		SELECT id, user_id, code, purpose, created_at
		FROM one_time_codes
		WHERE code = $1
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`
	var (
		c       Code
		purpose string
	)
	err := s.db.QueryRow(ctx, q, value).Scan(&c.ID, &c.OwnerID, &c.Value, &purpose, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Purpose = Purpose(purpose)
	return &c, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.Exec(ctx, `DELETE FROM one_time_codes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteByOwnerPurpose(ctx context.Context, ownerID uuid.UUID, purpose Purpose) (int64, error) {
	res, err := s.db.Exec(ctx, `DELETE FROM one_time_codes WHERE user_id = $1 AND purpose = $2`, ownerID, string(purpose))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *PostgresStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(ctx, `DELETE FROM one_time_codes WHERE created_at <= $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
