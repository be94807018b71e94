package files

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/middleware"
)

// Handler handles HTTP requests for media files
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates a new files handler
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts the file endpoints on an authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/upload-url", h.GenerateUploadURL)
	rg.POST("/download-url", h.GenerateDownloadURL)
	rg.DELETE("/*key", h.DeleteFile)
}

// GenerateUploadURL handles POST /files/upload-url
func (h *Handler) GenerateUploadURL(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req GenerateUploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	response, err := h.service.GenerateUploadURL(c.Request.Context(), userID, &req)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GenerateDownloadURL handles POST /files/download-url
func (h *Handler) GenerateDownloadURL(c *gin.Context) {
	var req GenerateDownloadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	response, err := h.service.GenerateDownloadURL(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// DeleteFile handles DELETE /files/*key
func (h *Handler) DeleteFile(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	fileKey := strings.TrimLeft(c.Param("key"), "/")
	if err := h.service.DeleteFile(c.Request.Context(), userID, fileKey); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "File deleted successfully",
		"file_key": fileKey,
	})
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own files"})
	default:
		h.logger.Error("File operation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Storage is unavailable"})
	}
}
