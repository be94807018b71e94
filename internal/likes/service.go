package likes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/database"
)

var ErrPostNotFound = errors.New("post not found")

type Service interface {
	// Toggle likes the post when the user has not liked it yet and removes
	// the like otherwise.
	Toggle(ctx context.Context, userID uuid.UUID, postID int64) (ToggleResult, error)
	Count(ctx context.Context, postID int64) (int64, error)
	IsLiked(ctx context.Context, userID uuid.UUID, postID int64) (bool, error)
}

type service struct {
	db     database.Service
	logger *slog.Logger
}

func NewService(db database.Service, logger *slog.Logger) Service {
	return &service{db: db, logger: logger}
}

func (s *service) Toggle(ctx context.Context, userID uuid.UUID, postID int64) (ToggleResult, error) {
	var result ToggleResult
	err := s.db.WithTx(ctx, func(tx database.Querier) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM posts WHERE post_id = $1)`, postID).Scan(&exists); err != nil {
			return fmt.Errorf("check post: %w", err)
		}
		if !exists {
			return ErrPostNotFound
		}

		res, err := tx.Exec(ctx, `DELETE FROM likes WHERE user_id = $1 AND post_id = $2`, userID, postID)
		if err != nil {
			return fmt.Errorf("delete like: %w", err)
		}
		removed, err := res.RowsAffected()
		if err != nil {
			return err
		}

		if removed > 0 {
			result.Status = StatusUnliked
		} else {
			const q = `
				INSERT INTO likes (id, post_id, user_id, created_at)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (user_id, post_id) DO NOTHING
			`
			if _, err := tx.Exec(ctx, q, uuid.New(), postID, userID, time.Now().UTC()); err != nil {
				return fmt.Errorf("insert like: %w", err)
			}
			result.Status = StatusLiked
		}

		return tx.QueryRow(ctx, `SELECT COUNT(*) FROM likes WHERE post_id = $1`, postID).Scan(&result.LikesCount)
	})
	if err != nil {
		return ToggleResult{}, err
	}

	s.logger.Debug("Like toggled", "post_id", postID, "user_id", userID, "status", result.Status)
	return result, nil
}

func (s *service) Count(ctx context.Context, postID int64) (int64, error) {
	const q = `SELECT COUNT(*) FROM likes WHERE post_id=$1`
	var cnt int64
	if err := s.db.QueryRow(ctx, q, postID).Scan(&cnt); err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	return cnt, nil
}

func (s *service) IsLiked(ctx context.Context, userID uuid.UUID, postID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM likes WHERE user_id=$1 AND post_id=$2)`
	var liked bool
	if err := s.db.QueryRow(ctx, q, userID, postID).Scan(&liked); err != nil {
		return false, fmt.Errorf("check like: %w", err)
	}
	return liked, nil
}
