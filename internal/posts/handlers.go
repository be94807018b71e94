package posts

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/middleware"
)

// Handler handles HTTP requests for posts
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates a new posts handler
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts /posts on an authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListPosts)
	rg.POST("", h.CreatePost)
	rg.GET("/:id", h.GetPost)
	rg.PUT("/:id", h.UpdatePost)
	rg.DELETE("/:id", h.DeletePost)
}

// RegisterUserRoutes mounts GET /users/:user_id/posts.
func (h *Handler) RegisterUserRoutes(rg *gin.RouterGroup) {
	rg.GET("/:user_id/posts", h.GetUserPosts)
}

// PostID parses the :id path parameter and writes 400 when it is malformed.
func PostID(c *gin.Context) (int64, bool) {
	postID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || postID < 1 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: "Invalid post ID"})
		return 0, false
	}
	return postID, true
}

// Pagination reads limit and offset query parameters.
func Pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > MaxLimit {
		limit = DefaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Success: false,
			Error:   "Unauthorized: user not authenticated",
		})
	}
	return userID, ok
}

// CreatePost handles POST /posts
func (h *Handler) CreatePost(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Invalid request body: " + err.Error(),
		})
		return
	}

	post, err := h.service.CreatePost(c.Request.Context(), userID, req.Input())
	if err != nil {
		h.fail(c, err, "Failed to create post")
		return
	}

	c.JSON(http.StatusCreated, PostResponse{
		Success: true,
		Message: "Post created successfully",
		Data:    post,
	})
}

// GetPost handles GET /posts/:id
func (h *Handler) GetPost(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	postID, ok := PostID(c)
	if !ok {
		return
	}

	post, err := h.service.GetPost(c.Request.Context(), userID, postID)
	if err != nil {
		h.fail(c, err, "Failed to retrieve post")
		return
	}

	c.JSON(http.StatusOK, PostResponse{
		Success: true,
		Data:    post,
	})
}

// ListPosts handles GET /posts?limit=&offset=
func (h *Handler) ListPosts(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	limit, offset := Pagination(c)

	page, err := h.service.ListPosts(c.Request.Context(), userID, ListFilter{Limit: limit, Offset: offset})
	if err != nil {
		h.fail(c, err, "Failed to retrieve posts")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    page,
	})
}

// GetUserPosts handles GET /users/:user_id/posts
func (h *Handler) GetUserPosts(c *gin.Context) {
	viewer, ok := currentUser(c)
	if !ok {
		return
	}
	authorID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Invalid user ID",
		})
		return
	}
	limit, offset := Pagination(c)

	page, err := h.service.ListPosts(c.Request.Context(), viewer, ListFilter{AuthorID: &authorID, Limit: limit, Offset: offset})
	if err != nil {
		h.fail(c, err, "Failed to retrieve user posts")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    page,
	})
}

// UpdatePost handles PUT /posts/:id
func (h *Handler) UpdatePost(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	postID, ok := PostID(c)
	if !ok {
		return
	}

	var req PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Invalid request body: " + err.Error(),
		})
		return
	}

	post, err := h.service.UpdatePost(c.Request.Context(), userID, postID, req.Input())
	if err != nil {
		h.fail(c, err, "Failed to update post")
		return
	}

	c.JSON(http.StatusOK, PostResponse{
		Success: true,
		Message: "Post updated successfully",
		Data:    post,
	})
}

// DeletePost handles DELETE /posts/:id
func (h *Handler) DeletePost(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	postID, ok := PostID(c)
	if !ok {
		return
	}

	if err := h.service.DeletePost(c.Request.Context(), userID, postID); err != nil {
		h.fail(c, err, "Failed to delete post")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Post deleted successfully",
	})
}

func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrPostNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Success: false, Error: "Post not found"})
	case errors.Is(err, ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Success: false, Error: "You cannot modify someone else's post."})
	case errors.Is(err, ErrValidation):
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: err.Error()})
	default:
		h.logger.Error(fallback, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Success: false, Error: fallback})
	}
}
