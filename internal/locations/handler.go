package locations

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/middleware"
)

// Handler serves the /profile/locations endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts the handlers on an authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/default", h.Default)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/set-default", h.SetDefault)
}

type CreateRequest struct {
	Country    string `json:"country" binding:"required,max=100"`
	State      string `json:"state" binding:"required,max=100"`
	District   string `json:"district" binding:"required,max=100"`
	PostalCode string `json:"postal_code" binding:"required,postalcode"`
	IsDefault  bool   `json:"is_default"`
}

type UpdateRequest struct {
	Country    *string `json:"country" binding:"omitempty,min=1,max=100"`
	State      *string `json:"state" binding:"omitempty,min=1,max=100"`
	District   *string `json:"district" binding:"omitempty,min=1,max=100"`
	PostalCode *string `json:"postal_code" binding:"omitempty,postalcode"`
}

func (h *Handler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	locations, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"locations": locations, "count": len(locations)})
}

func (h *Handler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	location, err := h.service.Create(c.Request.Context(), userID, Fields{
		Country:    req.Country,
		State:      req.State,
		District:   req.District,
		PostalCode: req.PostalCode,
	}, req.IsDefault)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, location)
}

func (h *Handler) Default(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	location, err := h.service.Default(c.Request.Context(), userID)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No default location set"})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, location)
}

func (h *Handler) Update(c *gin.Context) {
	userID, id, ok := h.target(c)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	location, err := h.service.Update(c.Request.Context(), userID, id, Update{
		Country:    req.Country,
		State:      req.State,
		District:   req.District,
		PostalCode: req.PostalCode,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, location)
}

func (h *Handler) Delete(c *gin.Context) {
	userID, id, ok := h.target(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, id); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Location deleted successfully"})
}

func (h *Handler) SetDefault(c *gin.Context) {
	userID, id, ok := h.target(c)
	if !ok {
		return
	}

	location, err := h.service.SetDefault(c.Request.Context(), userID, id)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Default location updated", "location": location})
}

func (h *Handler) target(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return uuid.Nil, uuid.Nil, false
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid location ID"})
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrLimitExceeded):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Maximum limit of %d locations reached", h.service.MaxPerOwner()),
		})
	case errors.Is(err, ErrLastAddress):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete your last location"})
	case errors.Is(err, ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid location", "details": err.Error()})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Location not found"})
	default:
		h.logger.Error("Location request failed",
			"error", err,
			"request_id", c.GetString(middleware.RequestIDKey))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
