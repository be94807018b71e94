package likes

const (
	StatusLiked   = "liked"
	StatusUnliked = "unliked"
)

// ToggleResult is the state of the caller's like after a toggle.
type ToggleResult struct {
	Status     string `json:"status"`
	LikesCount int64  `json:"likes_count"`
}

func (r ToggleResult) Liked() bool { return r.Status == StatusLiked }

type CountResponse struct {
	PostID int64 `json:"post_id"`
	Count  int64 `json:"count"`
}

// StatusResponse tells whether the caller likes a post.
type StatusResponse struct {
	PostID int64 `json:"post_id"`
	Liked  bool  `json:"liked"`
}
