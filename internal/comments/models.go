package comments

import (
	"time"

	"github.com/google/uuid"
)

// Commenter is the author of a comment.
type Commenter struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type Comment struct {
	ID           int64     `json:"id"`
	PostID       int64     `json:"post"`
	ParentID     *int64    `json:"parent_id"`
	User         Commenter `json:"user"`
	Content      string    `json:"comment_text"`
	RepliesCount int64     `json:"replies_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Page is a limit/offset page of comments.
type Page struct {
	Count   int64     `json:"count"`
	Limit   int       `json:"limit"`
	Offset  int       `json:"offset"`
	Results []Comment `json:"results"`
}

type CreateCommentRequest struct {
	Content  string `json:"content" binding:"required,max=2000"`
	ParentID *int64 `json:"parent_id" binding:"omitempty,min=1"`
}

type UpdateCommentRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
}
