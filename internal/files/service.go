// Package files hands out presigned URLs for user media. Uploaded objects
// are keyed "<folder>/<owner id>/<uuid>-<filename>"; posts, stories and
// profiles store those keys.
package files

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/storage"
)

var (
	ErrValidation = errors.New("invalid file request")
	ErrForbidden  = errors.New("file belongs to another user")
)

// Service handles business logic for file operations
type Service struct {
	storage storage.Service
	now     func() time.Time
}

// NewService creates a new files service
func NewService(storage storage.Service) *Service {
	return &Service{storage: storage, now: time.Now}
}

// ValidateFilename checks if filename is safe and valid
func ValidateFilename(filename string) error {
	if filename == "" {
		return fmt.Errorf("%w: filename cannot be empty", ErrValidation)
	}
	if len(filename) > MaxFilenameLength {
		return fmt.Errorf("%w: filename too long (max %d characters)", ErrValidation, MaxFilenameLength)
	}
	if strings.Contains(filename, "..") || strings.ContainsAny(filename, `/\`) {
		return fmt.Errorf("%w: filename contains invalid characters", ErrValidation)
	}
	if filepath.Ext(filename) == "" {
		return fmt.Errorf("%w: filename must have an extension", ErrValidation)
	}
	return nil
}

// ValidateContentType checks if content type is allowed
func ValidateContentType(contentType string) error {
	if !AllowedContentTypes[contentType] {
		return fmt.Errorf("%w: content type %q is not allowed", ErrValidation, contentType)
	}
	return nil
}

// OwnedBy reports whether key was issued to ownerID.
func OwnedBy(key string, ownerID uuid.UUID) bool {
	parts := strings.SplitN(key, "/", 3)
	return len(parts) == 3 && parts[1] == ownerID.String()
}

// GenerateUploadURL creates a presigned URL for a new object owned by ownerID.
func (s *Service) GenerateUploadURL(ctx context.Context, ownerID uuid.UUID, req *GenerateUploadURLRequest) (*GenerateUploadURLResponse, error) {
	if err := ValidateFilename(req.Filename); err != nil {
		return nil, err
	}
	if err := ValidateContentType(req.ContentType); err != nil {
		return nil, err
	}
	if req.MaxSize > MaxFileSize {
		return nil, fmt.Errorf("%w: max file size cannot exceed %d bytes", ErrValidation, MaxFileSize)
	}

	folder := req.Folder
	if folder == "" {
		folder = DefaultFolder
	}
	fileKey := fmt.Sprintf("%s/%s/%s-%s", folder, ownerID, uuid.New(), req.Filename)

	uploadURL, err := s.storage.GeneratePresignedUploadURL(ctx, fileKey, req.ContentType, uploadTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate upload URL: %w", err)
	}

	return &GenerateUploadURLResponse{
		UploadURL: uploadURL,
		FileKey:   fileKey,
		ExpiresAt: s.now().Add(uploadTTL).Unix(),
	}, nil
}

// GenerateDownloadURL creates a presigned URL for file download
func (s *Service) GenerateDownloadURL(ctx context.Context, req *GenerateDownloadURLRequest) (*GenerateDownloadURLResponse, error) {
	if req.FileKey == "" {
		return nil, fmt.Errorf("%w: file key cannot be empty", ErrValidation)
	}

	downloadURL, err := s.storage.GeneratePresignedDownloadURL(ctx, req.FileKey, downloadTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate download URL: %w", err)
	}

	return &GenerateDownloadURLResponse{
		DownloadURL: downloadURL,
		ExpiresAt:   s.now().Add(downloadTTL).Unix(),
	}, nil
}

// DeleteFile removes an object owned by ownerID.
func (s *Service) DeleteFile(ctx context.Context, ownerID uuid.UUID, fileKey string) error {
	if fileKey == "" {
		return fmt.Errorf("%w: file key cannot be empty", ErrValidation)
	}
	if !OwnedBy(fileKey, ownerID) {
		return ErrForbidden
	}

	if err := s.storage.DeleteFile(ctx, fileKey); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
