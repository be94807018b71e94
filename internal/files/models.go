package files

import "time"

// GenerateUploadURLRequest represents request for upload URL generation
type GenerateUploadURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	// Folder groups media by feature: profiles, posts or stories.
	Folder  string `json:"folder" binding:"omitempty,oneof=profiles posts stories"`
	MaxSize int64  `json:"max_size,omitempty"`
}

// GenerateUploadURLResponse represents response with presigned upload URL
type GenerateUploadURLResponse struct {
	UploadURL string `json:"upload_url"`
	FileKey   string `json:"file_key"`
	ExpiresAt int64  `json:"expires_at"` // Unix timestamp
}

// GenerateDownloadURLRequest represents request for download URL generation
type GenerateDownloadURLRequest struct {
	FileKey string `json:"file_key" binding:"required"`
}

// GenerateDownloadURLResponse represents response with presigned download URL
type GenerateDownloadURLResponse struct {
	DownloadURL string `json:"download_url"`
	ExpiresAt   int64  `json:"expires_at"` // Unix timestamp
}

const (
	MaxFilenameLength = 255
	MaxFileSize       = 100 * 1024 * 1024
	DefaultFolder     = "posts"

	uploadTTL   = 15 * time.Minute
	downloadTTL = time.Hour
)

// AllowedContentTypes is the upload whitelist.
var AllowedContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/jpg":       true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
	"text/plain":      true,
	"video/mp4":       true,
	"video/webm":      true,
	"audio/mpeg":      true,
	"audio/ogg":       true,
}
