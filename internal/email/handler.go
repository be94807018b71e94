package email

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Handler serves the email worker's health and monitoring endpoints
type Handler struct {
	redis  redis.Cmdable
	store  *IdempotencyStore
	logger *slog.Logger
}

func NewHandler(client redis.Cmdable, store *IdempotencyStore, logger *slog.Logger) *Handler {
	return &Handler{
		redis:  client,
		store:  store,
		logger: logger,
	}
}

// RegisterRoutes mounts the worker endpoints.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/stats", h.Stats)
	r.GET("/messages/:id", h.MessageStatus)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	redisStatus := "connected"
	if err := h.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "disconnected"
		h.logger.Error("Redis health check failed", "error", err)
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if redisStatus != "connected" {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"service":   "email-service",
		"redis":     redisStatus,
		"timestamp": time.Now().UTC(),
	})
}

// Stats handles GET /stats
func (h *Handler) Stats(c *gin.Context) {
	count, err := h.store.Count(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"idempotency_records": count,
		"ttl_hours":           int(h.store.TTL().Hours()),
	})
}

// MessageStatus handles GET /messages/:id
func (h *Handler) MessageStatus(c *gin.Context) {
	metadata, err := h.store.GetMetadata(c.Request.Context(), c.Param("id"))
	if errors.Is(err, ErrUnknownMessage) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not delivered yet"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to get message status", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve message status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "delivered", "delivery": metadata})
}
