package locations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/database"
)

// Store persists locations.
type Store interface {
	// WithOwnerLock runs fn in a transaction holding the owner's exclusive
	// lock. It returns ErrNotFound when the owner does not exist.
	WithOwnerLock(ctx context.Context, ownerID uuid.UUID, fn func(tx Tx) error) error

	List(ctx context.Context, ownerID uuid.UUID) ([]Location, error)
	Default(ctx context.Context, ownerID uuid.UUID) (*Location, error)
}

// Tx is the set of writes available while holding an owner's lock.
type Tx interface {
	// List returns the owner's locations oldest first.
	List(ctx context.Context, ownerID uuid.UUID) ([]Location, error)
	Insert(ctx context.Context, l *Location) error
	UpdateFields(ctx context.Context, l *Location) error
	ClearDefault(ctx context.Context, ownerID uuid.UUID) error
	MarkDefault(ctx context.Context, ownerID, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

// PostgresStore keeps locations in the locations table and locks owners with
// SELECT ... FOR UPDATE on their users row.
type PostgresStore struct {
	db database.Service
}

func NewPostgresStore(db database.Service) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) WithOwnerLock(ctx context.Context, ownerID uuid.UUID, fn func(tx Tx) error) error {
	return s.db.WithTx(ctx, func(q database.Querier) error {
		var id uuid.UUID
		err := q.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, ownerID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock owner: %w", err)
		}
		return fn(pgTx{q: q})
	})
}

func (s *PostgresStore) List(ctx context.Context, ownerID uuid.UUID) ([]Location, error) {
	return listLocations(ctx, s.db, ownerID)
}

func (s *PostgresStore) Default(ctx context.Context, ownerID uuid.UUID) (*Location, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+locationColumns+`
		FROM locations
		WHERE user_id = $1 AND is_default
	`, ownerID)

	l, err := scanLocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

const locationColumns = `id, user_id, country, state, district, postal_code, is_default, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanLocation(row scanner) (*Location, error) {
	var l Location
	err := row.Scan(&l.ID, &l.OwnerID, &l.Country, &l.State, &l.District,
		&l.PostalCode, &l.IsDefault, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func listLocations(ctx context.Context, q database.Querier, ownerID uuid.UUID) ([]Location, error) {
	rows, err := q.Query(ctx, `
		SELECT `+locationColumns+`
		FROM locations
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	locations := make([]Location, 0)
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locations = append(locations, *l)
	}
	return locations, rows.Err()
}

type pgTx struct {
	q database.Querier
}

func (t pgTx) List(ctx context.Context, ownerID uuid.UUID) ([]Location, error) {
	return listLocations(ctx, t.q, ownerID)
}

func (t pgTx) Insert(ctx context.Context, l *Location) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO locations (`+locationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, l.ID, l.OwnerID, l.Country, l.State, l.District, l.PostalCode, l.IsDefault, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert location: %w", err)
	}
	return nil
}

func (t pgTx) UpdateFields(ctx context.Context, l *Location) error {
	res, err := t.q.Exec(ctx, `
		UPDATE locations
		SET country = $3, state = $4, district = $5, postal_code = $6, updated_at = $7
		WHERE id = $1 AND user_id = $2
	`, l.ID, l.OwnerID, l.Country, l.State, l.District, l.PostalCode, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update location: %w", err)
	}
	return expectOne(res)
}

func (t pgTx) ClearDefault(ctx context.Context, ownerID uuid.UUID) error {
	_, err := t.q.Exec(ctx, `UPDATE locations SET is_default = FALSE WHERE user_id = $1 AND is_default`, ownerID)
	if err != nil {
		return fmt.Errorf("clear default location: %w", err)
	}
	return nil
}

func (t pgTx) MarkDefault(ctx context.Context, ownerID, id uuid.UUID, at time.Time) error {
	res, err := t.q.Exec(ctx, `
		UPDATE locations SET is_default = TRUE, updated_at = $3
		WHERE id = $1 AND user_id = $2
	`, id, ownerID, at)
	if err != nil {
		return fmt.Errorf("mark default location: %w", err)
	}
	return expectOne(res)
}

func (t pgTx) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	res, err := t.q.Exec(ctx, `DELETE FROM locations WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete location: %w", err)
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
