// Package categories manages the post categories and the categories each user
// follows.
package categories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/database"
)

var (
	ErrNotFound        = errors.New("category not found")
	ErrExists          = errors.New("category already exists")
	ErrAlreadySelected = errors.New("category already selected")
	ErrValidation      = errors.New("invalid category")
)

const maxNameLength = 50

type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// UserCategory is a category chosen by a user.
type UserCategory struct {
	ID           int64     `json:"id"`
	CategoryID   int64     `json:"category"`
	CategoryName string    `json:"category_name"`
	CreatedAt    time.Time `json:"created_at"`
}

type Service interface {
	List(ctx context.Context) ([]Category, error)
	Get(ctx context.Context, id int64) (*Category, error)
	Create(ctx context.Context, name string) (*Category, error)
	Rename(ctx context.Context, id int64, name string) (*Category, error)
	Delete(ctx context.Context, id int64) error

	// AllExist reports whether every id names a category.
	AllExist(ctx context.Context, ids []int64) (bool, error)

	ListForUser(ctx context.Context, userID uuid.UUID) ([]UserCategory, error)
	AddForUser(ctx context.Context, userID uuid.UUID, categoryID int64) (*UserCategory, error)
	RemoveForUser(ctx context.Context, userID uuid.UUID, id int64) error
}

type service struct {
	db database.Service
}

func NewService(db database.Service) Service {
	return &service{db: db}
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLength {
		return "", fmt.Errorf("%w: name must be 1 to %d characters", ErrValidation, maxNameLength)
	}
	return name, nil
}

func (s *service) List(ctx context.Context) ([]Category, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *service) Get(ctx context.Context, id int64) (*Category, error) {
	var c Category
	err := s.db.QueryRow(ctx, `SELECT id, name, created_at FROM categories WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *service) Create(ctx context.Context, name string) (*Category, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}

	c := Category{Name: name}
	err = s.db.QueryRow(ctx, `INSERT INTO categories (name) VALUES ($1) RETURNING id, created_at`, name).
		Scan(&c.ID, &c.CreatedAt)
	if database.IsUniqueViolation(err, "categories_name_key") {
		return nil, ErrExists
	}
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	return &c, nil
}

func (s *service) Rename(ctx context.Context, id int64, name string) (*Category, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}

	c := Category{ID: id, Name: name}
	err = s.db.QueryRow(ctx, `UPDATE categories SET name = $2 WHERE id = $1 RETURNING created_at`, id, name).
		Scan(&c.CreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case database.IsUniqueViolation(err, "categories_name_key"):
		return nil, ErrExists
	case err != nil:
		return nil, fmt.Errorf("rename category: %w", err)
	}
	return &c, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	res, err := s.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
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

func (s *service) AllExist(ctx context.Context, ids []int64) (bool, error) {
	if len(ids) == 0 {
		return true, nil
	}
	unique := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}

	var n int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM categories WHERE id = ANY($1)`, ids).Scan(&n); err != nil {
		return false, fmt.Errorf("count categories: %w", err)
	}
	return n == len(unique), nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]UserCategory, error) {
	const q = `
		SELECT uc.id, uc.category_id, c.name, uc.created_at
		FROM user_categories uc
		JOIN categories c ON c.id = uc.category_id
		WHERE uc.user_id = $1
		ORDER BY uc.created_at, uc.id
	`
	rows, err := s.db.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list user categories: %w", err)
	}
	defer rows.Close()

	out := []UserCategory{}
	for rows.Next() {
		var uc UserCategory
		if err := rows.Scan(&uc.ID, &uc.CategoryID, &uc.CategoryName, &uc.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, uc)
	}
	return out, rows.Err()
}

func (s *service) AddForUser(ctx context.Context, userID uuid.UUID, categoryID int64) (*UserCategory, error) {
	c, err := s.Get(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	uc := UserCategory{CategoryID: c.ID, CategoryName: c.Name}
	err = s.db.QueryRow(ctx, `
		INSERT INTO user_categories (user_id, category_id)
		VALUES ($1, $2)
		RETURNING id, created_at`, userID, categoryID).Scan(&uc.ID, &uc.CreatedAt)
	if database.IsUniqueViolation(err, "user_categories_user_category_key") {
		return nil, ErrAlreadySelected
	}
	if err != nil {
		return nil, fmt.Errorf("insert user category: %w", err)
	}
	return &uc, nil
}

func (s *service) RemoveForUser(ctx context.Context, userID uuid.UUID, id int64) error {
	res, err := s.db.Exec(ctx, `DELETE FROM user_categories WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete user category: %w", err)
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
