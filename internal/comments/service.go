package comments

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
	ErrNotFound     = errors.New("comment not found")
	ErrPostNotFound = errors.New("post not found")
	ErrForbidden    = errors.New("not the author of this comment")
	ErrValidation   = errors.New("invalid comment")
)

type Service interface {
	// Create adds a comment to a post. A parent makes it a reply; the parent
	// must be on the same post.
	Create(ctx context.Context, userID uuid.UUID, postID int64, content string, parentID *int64) (*Comment, error)
	Update(ctx context.Context, userID uuid.UUID, commentID int64, content string) (*Comment, error)
	Delete(ctx context.Context, userID uuid.UUID, commentID int64) error
	// ListByPost returns the top-level comments of a post, newest first.
	ListByPost(ctx context.Context, postID int64, limit, offset int) (*Page, error)
	// Replies returns the direct replies to a comment, newest first.
	Replies(ctx context.Context, commentID int64, limit, offset int) (*Page, error)
}

type service struct {
	db database.Service
}

func NewService(db database.Service) Service {
	return &service{db: db}
}

const selectComment = `
	SELECT c.comment_id, c.post_id, c.parent_id, c.user_id, u.first_name, u.last_name,
	       c.body, c.created_at, c.updated_at,
	       (SELECT COUNT(*) FROM comments r WHERE r.parent_id = c.comment_id)
	FROM comments c
	JOIN users u ON u.id = c.user_id
`

type scanner interface {
	Scan(dest ...any) error
}

func scanComment(row scanner) (Comment, error) {
	var (
		c           Comment
		parent      sql.NullInt64
		first, last string
	)
	err := row.Scan(&c.ID, &c.PostID, &parent, &c.User.ID, &first, &last,
		&c.Content, &c.CreatedAt, &c.UpdatedAt, &c.RepliesCount)
	if err != nil {
		return c, err
	}
	if parent.Valid {
		c.ParentID = &parent.Int64
	}
	c.User.Name = strings.TrimSpace(first + " " + last)
	return c, nil
}

func cleanContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("%w: content is required", ErrValidation)
	}
	return content, nil
}

func (s *service) get(ctx context.Context, commentID int64) (*Comment, error) {
	c, err := scanComment(s.db.QueryRow(ctx, selectComment+` WHERE c.comment_id = $1`, commentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return &c, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, postID int64, content string, parentID *int64) (*Comment, error) {
	content, err := cleanContent(content)
	if err != nil {
		return nil, err
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM posts WHERE post_id = $1)`, postID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check post: %w", err)
	}
	if !exists {
		return nil, ErrPostNotFound
	}

	if parentID != nil {
		var parentPost int64
		err := s.db.QueryRow(ctx, `SELECT post_id FROM comments WHERE comment_id = $1`, *parentID).Scan(&parentPost)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: parent comment does not exist", ErrValidation)
		}
		if err != nil {
			return nil, fmt.Errorf("check parent comment: %w", err)
		}
		if parentPost != postID {
			return nil, fmt.Errorf("%w: parent comment belongs to another post", ErrValidation)
		}
	}

	now := time.Now().UTC()
	const q = `
		INSERT INTO comments (post_id, user_id, parent_id, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING comment_id
	`
	var id int64
	if err := s.db.QueryRow(ctx, q, postID, userID, parentID, content, now).Scan(&id); err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return s.get(ctx, id)
}

func (s *service) authorize(ctx context.Context, userID uuid.UUID, commentID int64) error {
	var author uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT user_id FROM comments WHERE comment_id = $1`, commentID).Scan(&author)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if author != userID {
		return ErrForbidden
	}
	return nil
}

func (s *service) Update(ctx context.Context, userID uuid.UUID, commentID int64, content string) (*Comment, error) {
	content, err := cleanContent(content)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, userID, commentID); err != nil {
		return nil, err
	}

	const q = `UPDATE comments SET body = $2, updated_at = NOW() WHERE comment_id = $1`
	if _, err := s.db.Exec(ctx, q, commentID, content); err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	return s.get(ctx, commentID)
}

func (s *service) Delete(ctx context.Context, userID uuid.UUID, commentID int64) error {
	if err := s.authorize(ctx, userID, commentID); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `DELETE FROM comments WHERE comment_id = $1`, commentID)
	return err
}

func (s *service) ListByPost(ctx context.Context, postID int64, limit, offset int) (*Page, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM posts WHERE post_id = $1)`, postID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check post: %w", err)
	}
	if !exists {
		return nil, ErrPostNotFound
	}
	return s.page(ctx, `c.post_id = $1 AND c.parent_id IS NULL`, postID, limit, offset)
}

func (s *service) Replies(ctx context.Context, commentID int64, limit, offset int) (*Page, error) {
	if _, err := s.get(ctx, commentID); err != nil {
		return nil, err
	}
	return s.page(ctx, `c.parent_id = $1`, commentID, limit, offset)
}

func (s *service) page(ctx context.Context, where string, arg int64, limit, offset int) (*Page, error) {
	p := &Page{Limit: limit, Offset: offset, Results: []Comment{}}
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM comments c WHERE `+where, arg).Scan(&p.Count); err != nil {
		return nil, fmt.Errorf("count comments: %w", err)
	}

	q := selectComment + ` WHERE ` + where + ` ORDER BY c.created_at DESC, c.comment_id DESC LIMIT $2 OFFSET $3`
	rows, err := s.db.Query(ctx, q, arg, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		p.Results = append(p.Results, c)
	}
	return p, rows.Err()
}
