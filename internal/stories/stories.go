// Package stories serves image stories that stay listed for a day.
package stories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/database"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/files"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/storage"
)

var (
	ErrNotFound   = errors.New("story not found")
	ErrForbidden  = errors.New("not the owner of this story")
	ErrValidation = errors.New("invalid story")
)

const (
	// Lifetime is how long a story stays listed.
	Lifetime = 24 * time.Hour

	MaxImages = 10
	imageTTL  = time.Hour
)

type Owner struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type Image struct {
	ID       uuid.UUID `json:"id"`
	ImageKey string    `json:"image_key"`
	ImageURL string    `json:"image_url,omitempty"`
}

type Story struct {
	ID        uuid.UUID `json:"id"`
	User      Owner     `json:"user"`
	Images    []Image   `json:"images"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	IsExpired bool      `json:"is_expired"`
}

type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, imageKeys []string) (*Story, error)
	Get(ctx context.Context, id uuid.UUID) (*Story, error)
	// ListActive returns stories younger than Lifetime, newest first.
	ListActive(ctx context.Context) ([]Story, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

type service struct {
	db      database.Service
	storage storage.Service
	now     func() time.Time
	logger  *slog.Logger
}

// NewService creates the story service. A nil storage omits image URLs.
func NewService(db database.Service, store storage.Service, logger *slog.Logger) Service {
	return &service{db: db, storage: store, now: time.Now, logger: logger}
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, imageKeys []string) (*Story, error) {
	if len(imageKeys) == 0 {
		return nil, fmt.Errorf("%w: at least one image is required", ErrValidation)
	}
	if len(imageKeys) > MaxImages {
		return nil, fmt.Errorf("%w: at most %d images", ErrValidation, MaxImages)
	}
	keys := make([]string, len(imageKeys))
	for i, key := range imageKeys {
		key = strings.TrimSpace(key)
		if !files.OwnedBy(key, ownerID) {
			return nil, fmt.Errorf("%w: image %q was not uploaded by this user", ErrValidation, key)
		}
		keys[i] = key
	}

	id := uuid.New()
	now := s.now().UTC()
	err := s.db.WithTx(ctx, func(tx database.Querier) error {
		if _, err := tx.Exec(ctx, `INSERT INTO stories (id, user_id, created_at) VALUES ($1, $2, $3)`, id, ownerID, now); err != nil {
			return fmt.Errorf("insert story: %w", err)
		}
		for i, key := range keys {
			// Offsets keep the upload order when listing images.
			at := now.Add(time.Duration(i) * time.Microsecond)
			if _, err := tx.Exec(ctx, `INSERT INTO story_images (id, story_id, image_key, created_at) VALUES ($1, $2, $3, $4)`,
				uuid.New(), id, key, at); err != nil {
				return fmt.Errorf("insert story image: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Story created", "story_id", id, "user_id", ownerID, "images", len(keys))
	return s.Get(ctx, id)
}

const selectStory = `
	SELECT s.id, s.user_id, u.first_name, u.last_name, s.created_at
	FROM stories s
	JOIN users u ON u.id = s.user_id
`

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Story, error) {
	list, err := s.query(ctx, selectStory+` WHERE s.id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

func (s *service) ListActive(ctx context.Context) ([]Story, error) {
	cutoff := s.now().UTC().Add(-Lifetime)
	return s.query(ctx, selectStory+` WHERE s.created_at >= $1 ORDER BY s.created_at DESC`, cutoff)
}

func (s *service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	var owner uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT user_id FROM stories WHERE id = $1`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if owner != ownerID {
		return ErrForbidden
	}

	if _, err := s.db.Exec(ctx, `DELETE FROM stories WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete story: %w", err)
	}
	return nil
}

func (s *service) query(ctx context.Context, q string, args ...any) ([]Story, error) {
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}

	now := s.now()
	out := []Story{}
	index := map[uuid.UUID]int{}
	for rows.Next() {
		var (
			st          Story
			first, last string
		)
		if err := rows.Scan(&st.ID, &st.User.ID, &first, &last, &st.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		st.User.Name = strings.TrimSpace(first + " " + last)
		st.ExpiresAt = st.CreatedAt.Add(Lifetime)
		st.IsExpired = !now.Before(st.ExpiresAt)
		st.Images = []Image{}
		index[st.ID] = len(out)
		out = append(out, st)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, len(out))
	for i, st := range out {
		ids[i] = st.ID.String()
	}

	imgRows, err := s.db.Query(ctx, `
		SELECT story_id, id, image_key
		FROM story_images
		WHERE story_id = ANY($1::uuid[])
		ORDER BY created_at, id`, ids)
	if err != nil {
		return nil, fmt.Errorf("list story images: %w", err)
	}
	defer imgRows.Close()

	for imgRows.Next() {
		var (
			storyID uuid.UUID
			img     Image
		)
		if err := imgRows.Scan(&storyID, &img.ID, &img.ImageKey); err != nil {
			return nil, err
		}
		if s.storage != nil {
			url, err := s.storage.GeneratePresignedDownloadURL(ctx, img.ImageKey, imageTTL)
			if err != nil {
				s.logger.Warn("Failed to sign story image", "story_id", storyID, "error", err)
			} else {
				img.ImageURL = url
			}
		}
		st := &out[index[storyID]]
		st.Images = append(st.Images, img)
	}
	return out, imgRows.Err()
}
