package posts

import (
	"time"

	"github.com/google/uuid"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/categories"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/locations"
)

// ContentType is the kind of content a post carries.
type ContentType string

const (
	ContentText     ContentType = "text"
	ContentImage    ContentType = "image"
	ContentVideo    ContentType = "video"
	ContentAudio    ContentType = "audio"
	ContentDocument ContentType = "document"
	ContentLink     ContentType = "link"
)

// IsMedia reports whether the type needs an uploaded file.
func (t ContentType) IsMedia() bool {
	switch t {
	case ContentImage, ContentVideo, ContentAudio, ContentDocument:
		return true
	}
	return false
}

func (t ContentType) Valid() bool {
	return t == ContentText || t == ContentLink || t.IsMedia()
}

// Author is the public identity shown on a post.
type Author struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Post is a piece of content with its locations and categories. The counters
// and LikedByMe depend on the viewer and are filled in per request.
type Post struct {
	PostID      int64                 `json:"id"`
	Author      Author                `json:"user"`
	ContentType ContentType           `json:"content_type"`
	TextContent string                `json:"text_content"`
	MediaKey    string                `json:"media_key,omitempty"`
	MediaURL    string                `json:"media_url,omitempty"`
	Link        string                `json:"link,omitempty"`
	Locations   []locations.Location  `json:"zip_code_details"`
	Categories  []categories.Category `json:"categories_details"`

	LikesCount    int64 `json:"likes_count"`
	LikedByMe     bool  `json:"is_liked_by_user"`
	CommentsCount int64 `json:"comment_number"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stats are the viewer-dependent counters of a post.
type Stats struct {
	LikesCount    int64
	LikedByMe     bool
	CommentsCount int64
}

// Input is the writable content of a post. Update replaces all of it.
type Input struct {
	ContentType ContentType
	TextContent string
	MediaKey    string
	Link        string
	LocationIDs []uuid.UUID
	CategoryIDs []int64
}

// PostRequest is the body of POST /posts and PUT /posts/:id.
type PostRequest struct {
	ContentType string      `json:"content_type" binding:"required"`
	TextContent string      `json:"text_content" binding:"max=5000"`
	MediaKey    string      `json:"media_key"`
	Link        string      `json:"link" binding:"max=2048"`
	ZipCodes    []uuid.UUID `json:"zip_code"`
	Categories  []int64     `json:"categories"`
}

func (r *PostRequest) Input() Input {
	return Input{
		ContentType: ContentType(r.ContentType),
		TextContent: r.TextContent,
		MediaKey:    r.MediaKey,
		Link:        r.Link,
		LocationIDs: r.ZipCodes,
		CategoryIDs: r.Categories,
	}
}

// ListFilter selects a page of posts, optionally from one author.
type ListFilter struct {
	AuthorID *uuid.UUID
	Limit    int
	Offset   int
}

// Page is a limit/offset page of posts.
type Page struct {
	Count   int64  `json:"count"`
	Limit   int    `json:"limit"`
	Offset  int    `json:"offset"`
	Results []Post `json:"results"`
}

// PostResponse is a standard response wrapper
type PostResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    *Post  `json:"data,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
