package posts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/cache"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/files"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/locations"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/storage"
)

var (
	ErrPostNotFound = errors.New("post not found")
	ErrForbidden    = errors.New("not the author of this post")
	ErrValidation   = errors.New("invalid post")
)

const (
	DefaultLimit = 20
	MaxLimit     = 100

	postTTL  = 5 * time.Minute
	listTTL  = 2 * time.Minute
	mediaTTL = time.Hour
)

// CategoryChecker reports whether categories exist.
type CategoryChecker interface {
	AllExist(ctx context.Context, ids []int64) (bool, error)
}

// Service handles business logic for posts with caching. Cached entries hold
// the viewer-independent part of a post; counters are read on every request.
type Service struct {
	repo       *Repository
	cache      *cache.Cache
	locations  locations.Service
	categories CategoryChecker
	storage    storage.Service
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewService creates the posts service. A nil cache disables caching and a
// nil storage omits media URLs.
func NewService(repo *Repository, c *cache.Cache, locs locations.Service, cats CategoryChecker, store storage.Service, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		cache:      c,
		locations:  locs,
		categories: cats,
		storage:    store,
		validate:   validator.New(),
		logger:     logger,
	}
}

// CreatePost creates a new post and invalidates relevant caches
func (s *Service) CreatePost(ctx context.Context, authorID uuid.UUID, in Input) (*Post, error) {
	in, err := s.check(ctx, authorID, in)
	if err != nil {
		return nil, err
	}

	post, err := s.repo.Create(ctx, authorID, in)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Post created", "post_id", post.PostID, "user_id", authorID, "content_type", post.ContentType)

	s.invalidateLists(ctx, authorID)
	return s.decorateOne(ctx, authorID, post)
}

// GetPost retrieves a post by ID with caching
func (s *Service) GetPost(ctx context.Context, viewer uuid.UUID, postID int64) (*Post, error) {
	key := fmt.Sprintf("post:%d", postID)

	var post Post
	if !s.cache.Get(ctx, key, &post) {
		p, err := s.repo.GetByID(ctx, postID)
		if err != nil {
			return nil, err
		}
		post = *p
		s.cache.Set(ctx, key, post, postTTL)
	}
	return s.decorateOne(ctx, viewer, &post)
}

type cachedPage struct {
	Posts []Post `json:"posts"`
	Count int64  `json:"count"`
}

// ListPosts returns a page of posts, newest first.
func (s *Service) ListPosts(ctx context.Context, viewer uuid.UUID, f ListFilter) (*Page, error) {
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	scope := "all"
	if f.AuthorID != nil {
		scope = "user:" + f.AuthorID.String()
	}
	key := fmt.Sprintf("posts:%s:limit:%d:offset:%d", scope, f.Limit, f.Offset)

	var page cachedPage
	if !s.cache.Get(ctx, key, &page) {
		list, total, err := s.repo.List(ctx, f)
		if err != nil {
			return nil, err
		}
		page = cachedPage{Posts: list, Count: total}
		s.cache.Set(ctx, key, page, listTTL)
	}

	if err := s.decorate(ctx, viewer, page.Posts); err != nil {
		return nil, err
	}
	return &Page{Count: page.Count, Limit: f.Limit, Offset: f.Offset, Results: page.Posts}, nil
}

// UpdatePost replaces the content of a post owned by the caller.
func (s *Service) UpdatePost(ctx context.Context, userID uuid.UUID, postID int64, in Input) (*Post, error) {
	if err := s.authorize(ctx, userID, postID); err != nil {
		return nil, err
	}
	in, err := s.check(ctx, userID, in)
	if err != nil {
		return nil, err
	}

	post, err := s.repo.Update(ctx, postID, in)
	if err != nil {
		return nil, err
	}

	s.cache.Delete(ctx, fmt.Sprintf("post:%d", postID))
	s.invalidateLists(ctx, userID)
	return s.decorateOne(ctx, userID, post)
}

// DeletePost removes a post owned by the caller.
func (s *Service) DeletePost(ctx context.Context, userID uuid.UUID, postID int64) error {
	if err := s.authorize(ctx, userID, postID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, postID); err != nil {
		return err
	}
	s.logger.Info("Post deleted", "post_id", postID, "user_id", userID)

	s.cache.Delete(ctx, fmt.Sprintf("post:%d", postID))
	s.invalidateLists(ctx, userID)
	return nil
}

// Exists reports whether a post exists.
func (s *Service) Exists(ctx context.Context, postID int64) error {
	_, err := s.repo.AuthorOf(ctx, postID)
	return err
}

func (s *Service) authorize(ctx context.Context, userID uuid.UUID, postID int64) error {
	author, err := s.repo.AuthorOf(ctx, postID)
	if err != nil {
		return err
	}
	if author != userID {
		return ErrForbidden
	}
	return nil
}

// check validates the content against its type and resolves the location
// and category references. It returns the input with duplicates removed.
func (s *Service) check(ctx context.Context, authorID uuid.UUID, in Input) (Input, error) {
	in.TextContent = strings.TrimSpace(in.TextContent)
	in.MediaKey = strings.TrimSpace(in.MediaKey)
	in.Link = strings.TrimSpace(in.Link)

	switch {
	case !in.ContentType.Valid():
		return in, fmt.Errorf("%w: invalid post type", ErrValidation)

	case in.ContentType == ContentText:
		if in.TextContent == "" {
			return in, fmt.Errorf("%w: a text post must have text content", ErrValidation)
		}
		if in.MediaKey != "" || in.Link != "" {
			return in, fmt.Errorf("%w: a text post cannot have media or a link", ErrValidation)
		}

	case in.ContentType.IsMedia():
		if in.MediaKey == "" {
			return in, fmt.Errorf("%w: a %s post must have a media file", ErrValidation, in.ContentType)
		}
		if in.Link != "" {
			return in, fmt.Errorf("%w: a %s post cannot have a link", ErrValidation, in.ContentType)
		}
		if !files.OwnedBy(in.MediaKey, authorID) {
			return in, fmt.Errorf("%w: media file was not uploaded by this user", ErrValidation)
		}

	case in.ContentType == ContentLink:
		if in.Link == "" {
			return in, fmt.Errorf("%w: a link post must have a valid link", ErrValidation)
		}
		if err := s.validate.Var(in.Link, "http_url"); err != nil {
			return in, fmt.Errorf("%w: a link post must have a valid link", ErrValidation)
		}
		if in.MediaKey != "" {
			return in, fmt.Errorf("%w: a link post cannot have a media file", ErrValidation)
		}
	}

	in.LocationIDs = dedupe(in.LocationIDs)
	in.CategoryIDs = dedupe(in.CategoryIDs)

	if len(in.LocationIDs) > 0 {
		owned, err := s.locations.List(ctx, authorID)
		if err != nil {
			return in, fmt.Errorf("list author locations: %w", err)
		}
		for _, id := range in.LocationIDs {
			if !slices.ContainsFunc(owned, func(l locations.Location) bool { return l.ID == id }) {
				return in, fmt.Errorf("%w: location %s does not belong to this user", ErrValidation, id)
			}
		}
	}

	if len(in.CategoryIDs) > 0 {
		ok, err := s.categories.AllExist(ctx, in.CategoryIDs)
		if err != nil {
			return in, err
		}
		if !ok {
			return in, fmt.Errorf("%w: unknown category", ErrValidation)
		}
	}
	return in, nil
}

func dedupe[T comparable](in []T) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func (s *Service) decorateOne(ctx context.Context, viewer uuid.UUID, post *Post) (*Post, error) {
	list := []Post{*post}
	if err := s.decorate(ctx, viewer, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// decorate fills the viewer's counters and the media URLs.
func (s *Service) decorate(ctx context.Context, viewer uuid.UUID, list []Post) error {
	ids := make([]int64, len(list))
	for i := range list {
		ids[i] = list[i].PostID
	}

	stats, err := s.repo.Stats(ctx, viewer, ids)
	if err != nil {
		return err
	}

	for i := range list {
		p := &list[i]
		st := stats[p.PostID]
		p.LikesCount, p.LikedByMe, p.CommentsCount = st.LikesCount, st.LikedByMe, st.CommentsCount

		if p.MediaKey != "" && s.storage != nil {
			url, err := s.storage.GeneratePresignedDownloadURL(ctx, p.MediaKey, mediaTTL)
			if err != nil {
				s.logger.Warn("Failed to sign post media", "post_id", p.PostID, "error", err)
				continue
			}
			p.MediaURL = url
		}
	}
	return nil
}

func (s *Service) invalidateLists(ctx context.Context, authorID uuid.UUID) {
	s.cache.DeleteByPattern(ctx, "posts:all:*")
	s.cache.DeleteByPattern(ctx, fmt.Sprintf("posts:user:%s:*", authorID))
}
