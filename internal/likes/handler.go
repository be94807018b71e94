package likes

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/middleware"
)

type Handler struct {
	svc    Service
	logger *slog.Logger
}

func NewHandler(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the like endpoints on the /posts group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/like", h.Toggle)
	rg.GET("/:id/like", h.Status)
	rg.GET("/:id/likes/count", h.Count)
}

func postID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return 0, false
	}
	return id, true
}

// POST /posts/:id/like
func (h *Handler) Toggle(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := postID(c)
	if !ok {
		return
	}

	res, err := h.svc.Toggle(c.Request.Context(), userID, id)
	if errors.Is(err, ErrPostNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to toggle like", "post_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to like"})
		return
	}

	status := http.StatusOK
	if res.Liked() {
		status = http.StatusCreated
	}
	c.JSON(status, res)
}

// GET /posts/:id/likes/count
func (h *Handler) Count(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	cnt, err := h.svc.Count(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to count likes", "post_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count"})
		return
	}
	c.JSON(http.StatusOK, CountResponse{PostID: id, Count: cnt})
}

// GET /posts/:id/like
func (h *Handler) Status(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := postID(c)
	if !ok {
		return
	}
	liked, err := h.svc.IsLiked(c.Request.Context(), userID, id)
	if err != nil {
		h.logger.Error("Failed to read like status", "post_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read like status"})
		return
	}
	c.JSON(http.StatusOK, StatusResponse{PostID: id, Liked: liked})
}
