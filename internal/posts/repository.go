package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/categories"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/database"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/locations"
)

// Repository handles database operations for posts
type Repository struct {
	db database.Service
}

// NewRepository creates a new posts repository
func NewRepository(db database.Service) *Repository {
	return &Repository{db: db}
}

const selectPost = `
	SELECT p.post_id, p.user_id, u.first_name, u.last_name, p.content_type,
	       p.text_content, p.media_key, p.link, p.created_at, p.updated_at
	FROM posts p
	JOIN users u ON u.id = p.user_id
`

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (Post, error) {
	var (
		p           Post
		first, last string
		contentType string
	)
	err := row.Scan(&p.PostID, &p.Author.ID, &first, &last, &contentType,
		&p.TextContent, &p.MediaKey, &p.Link, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	p.Author.Name = strings.TrimSpace(first + " " + last)
	p.ContentType = ContentType(contentType)
	p.Locations = []locations.Location{}
	p.Categories = []categories.Category{}
	return p, nil
}

// Create inserts a post with its location and category links.
func (r *Repository) Create(ctx context.Context, authorID uuid.UUID, in Input) (*Post, error) {
	now := time.Now().UTC()

	var id int64
	err := r.db.WithTx(ctx, func(tx database.Querier) error {
		const q = `
			INSERT INTO posts (user_id, content_type, text_content, media_key, link, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)
			RETURNING post_id
		`
		if err := tx.QueryRow(ctx, q, authorID, string(in.ContentType), in.TextContent, in.MediaKey, in.Link, now).Scan(&id); err != nil {
			return fmt.Errorf("insert post: %w", err)
		}
		return linkRelations(ctx, tx, id, in)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func linkRelations(ctx context.Context, tx database.Querier, postID int64, in Input) error {
	for _, locID := range in.LocationIDs {
		_, err := tx.Exec(ctx, `INSERT INTO post_locations (post_id, location_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, postID, locID)
		if err != nil {
			return fmt.Errorf("link post location: %w", err)
		}
	}
	for _, catID := range in.CategoryIDs {
		_, err := tx.Exec(ctx, `INSERT INTO post_categories (post_id, category_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, postID, catID)
		if err != nil {
			return fmt.Errorf("link post category: %w", err)
		}
	}
	return nil
}

// GetByID retrieves a post with its locations and categories.
func (r *Repository) GetByID(ctx context.Context, postID int64) (*Post, error) {
	p, err := scanPost(r.db.QueryRow(ctx, selectPost+` WHERE p.post_id = $1`, postID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}

	list := []Post{p}
	if err := r.loadRelations(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// List returns a page of posts, newest first, and the total number of
// matching posts.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Post, int64, error) {
	var (
		where string
		args  []any
	)
	if f.AuthorID != nil {
		where = ` WHERE p.user_id = $1`
		args = append(args, *f.AuthorID)
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM posts p`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	q := fmt.Sprintf(`%s%s ORDER BY p.created_at DESC, p.post_id DESC LIMIT $%d OFFSET $%d`,
		selectPost, where, len(args)+1, len(args)+2)
	rows, err := r.db.Query(ctx, q, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	out := []Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.loadRelations(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// AuthorOf returns the author of a post.
func (r *Repository) AuthorOf(ctx context.Context, postID int64) (uuid.UUID, error) {
	var author uuid.UUID
	err := r.db.QueryRow(ctx, `SELECT user_id FROM posts WHERE post_id = $1`, postID).Scan(&author)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, ErrPostNotFound
	}
	return author, err
}

// Update replaces the content and links of a post.
func (r *Repository) Update(ctx context.Context, postID int64, in Input) (*Post, error) {
	err := r.db.WithTx(ctx, func(tx database.Querier) error {
		const q = `
			UPDATE posts
			SET content_type = $2, text_content = $3, media_key = $4, link = $5, updated_at = $6
			WHERE post_id = $1
		`
		res, err := tx.Exec(ctx, q, postID, string(in.ContentType), in.TextContent, in.MediaKey, in.Link, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("update post: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrPostNotFound
		}

		if _, err := tx.Exec(ctx, `DELETE FROM post_locations WHERE post_id = $1`, postID); err != nil {
			return fmt.Errorf("clear post locations: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM post_categories WHERE post_id = $1`, postID); err != nil {
			return fmt.Errorf("clear post categories: %w", err)
		}
		return linkRelations(ctx, tx, postID, in)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, postID)
}

// Delete deletes a post by ID
func (r *Repository) Delete(ctx context.Context, postID int64) error {
	res, err := r.db.Exec(ctx, `DELETE FROM posts WHERE post_id = $1`, postID)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPostNotFound
	}
	return nil
}

// Stats returns like and comment counters for each post as seen by viewer.
func (r *Repository) Stats(ctx context.Context, viewer uuid.UUID, ids []int64) (map[int64]Stats, error) {
	out := make(map[int64]Stats, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	const q = `
		SELECT p.post_id,
		       (SELECT COUNT(*) FROM likes l WHERE l.post_id = p.post_id),
		       EXISTS (SELECT 1 FROM likes l WHERE l.post_id = p.post_id AND l.user_id = $2),
		       (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.post_id)
		FROM posts p
		WHERE p.post_id = ANY($1)
	`
	rows, err := r.db.Query(ctx, q, ids, viewer)
	if err != nil {
		return nil, fmt.Errorf("post stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id int64
			s  Stats
		)
		if err := rows.Scan(&id, &s.LikesCount, &s.LikedByMe, &s.CommentsCount); err != nil {
			return nil, err
		}
		out[id] = s
	}
	return out, rows.Err()
}

func (r *Repository) loadRelations(ctx context.Context, list []Post) error {
	if len(list) == 0 {
		return nil
	}

	ids := make([]int64, len(list))
	index := make(map[int64]int, len(list))
	for i, p := range list {
		ids[i] = p.PostID
		index[p.PostID] = i
	}

	rows, err := r.db.Query(ctx, `
		SELECT pl.post_id, l.id, l.user_id, l.country, l.state, l.district,
		       l.postal_code, l.is_default, l.created_at, l.updated_at
		FROM post_locations pl
		JOIN locations l ON l.id = pl.location_id
		WHERE pl.post_id = ANY($1)
		ORDER BY l.created_at, l.id`, ids)
	if err != nil {
		return fmt.Errorf("load post locations: %w", err)
	}
	for rows.Next() {
		var (
			postID int64
			l      locations.Location
		)
		if err := rows.Scan(&postID, &l.ID, &l.OwnerID, &l.Country, &l.State, &l.District,
			&l.PostalCode, &l.IsDefault, &l.CreatedAt, &l.UpdatedAt); err != nil {
			rows.Close()
			return err
		}
		p := &list[index[postID]]
		p.Locations = append(p.Locations, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.db.Query(ctx, `
		SELECT pc.post_id, c.id, c.name, c.created_at
		FROM post_categories pc
		JOIN categories c ON c.id = pc.category_id
		WHERE pc.post_id = ANY($1)
		ORDER BY c.name`, ids)
	if err != nil {
		return fmt.Errorf("load post categories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			postID int64
			c      categories.Category
		)
		if err := rows.Scan(&postID, &c.ID, &c.Name, &c.CreatedAt); err != nil {
			return err
		}
		p := &list[index[postID]]
		p.Categories = append(p.Categories, c)
	}
	return rows.Err()
}
