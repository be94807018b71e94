// Package languages manages the list of languages users can pick from.
package languages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/database"
)

var (
	ErrNotFound   = errors.New("language not found")
	ErrExists     = errors.New("language already exists")
	ErrValidation = errors.New("invalid language")
)

const (
	maxNameLength = 100
	maxCodeLength = 10
)

type Language struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

// Update carries the fields to change; nil leaves a field as it is.
type Update struct {
	Name *string
	Code *string
}

type Service interface {
	List(ctx context.Context) ([]Language, error)
	Get(ctx context.Context, id int64) (*Language, error)
	Create(ctx context.Context, name, code string) (*Language, error)
	Update(ctx context.Context, id int64, update Update) (*Language, error)
	Delete(ctx context.Context, id int64) error
}

type service struct {
	db database.Service
}

func NewService(db database.Service) Service {
	return &service{db: db}
}

func clean(field, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" || len(value) > max {
		return "", fmt.Errorf("%w: %s must be 1 to %d characters", ErrValidation, field, max)
	}
	return value, nil
}

// conflict maps a unique violation to ErrExists naming the taken field.
func conflict(err error) error {
	switch {
	case database.IsUniqueViolation(err, "languages_name_key"):
		return fmt.Errorf("%w: name is taken", ErrExists)
	case database.IsUniqueViolation(err, "languages_code_key"):
		return fmt.Errorf("%w: code is taken", ErrExists)
	}
	return nil
}

func (s *service) List(ctx context.Context) ([]Language, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, code, created_at FROM languages ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list languages: %w", err)
	}
	defer rows.Close()

	out := []Language{}
	for rows.Next() {
		var l Language
		if err := rows.Scan(&l.ID, &l.Name, &l.Code, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *service) Get(ctx context.Context, id int64) (*Language, error) {
	var l Language
	err := s.db.QueryRow(ctx, `SELECT id, name, code, created_at FROM languages WHERE id = $1`, id).
		Scan(&l.ID, &l.Name, &l.Code, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *service) Create(ctx context.Context, name, code string) (*Language, error) {
	name, err := clean("name", name, maxNameLength)
	if err != nil {
		return nil, err
	}
	code, err = clean("code", code, maxCodeLength)
	if err != nil {
		return nil, err
	}

	l := Language{Name: name, Code: code}
	err = s.db.QueryRow(ctx, `INSERT INTO languages (name, code) VALUES ($1, $2) RETURNING id, created_at`, name, code).
		Scan(&l.ID, &l.CreatedAt)
	if cerr := conflict(err); cerr != nil {
		return nil, cerr
	}
	if err != nil {
		return nil, fmt.Errorf("insert language: %w", err)
	}
	return &l, nil
}

func (s *service) Update(ctx context.Context, id int64, update Update) (*Language, error) {
	var name, code sql.NullString
	if update.Name != nil {
		v, err := clean("name", *update.Name, maxNameLength)
		if err != nil {
			return nil, err
		}
		name = sql.NullString{String: v, Valid: true}
	}
	if update.Code != nil {
		v, err := clean("code", *update.Code, maxCodeLength)
		if err != nil {
			return nil, err
		}
		code = sql.NullString{String: v, Valid: true}
	}

	var l Language
	err := s.db.QueryRow(ctx, `
		UPDATE languages
		SET name = COALESCE($2, name), code = COALESCE($3, code)
		WHERE id = $1
		RETURNING id, name, code, created_at`, id, name, code).
		Scan(&l.ID, &l.Name, &l.Code, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if cerr := conflict(err); cerr != nil {
		return nil, cerr
	}
	if err != nil {
		return nil, fmt.Errorf("update language: %w", err)
	}
	return &l, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	res, err := s.db.Exec(ctx, `DELETE FROM languages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete language: %w", err)
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
