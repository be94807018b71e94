package files

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/logger"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/middleware"
)

type fakeStorage struct {
	uploads []string
	deleted []string
	err     error
}

func (f *fakeStorage) GeneratePresignedUploadURL(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploads = append(f.uploads, key)
	return "https://media.example.com/" + key + "?sig=1", nil
}

func (f *fakeStorage) GeneratePresignedDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://media.example.com/" + key, f.err
}

func (f *fakeStorage) DeleteFile(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return f.err
}

func (f *fakeStorage) EnsureBucketExists(context.Context) error { return nil }
func (f *fakeStorage) Health(context.Context) error             { return f.err }

func TestValidateFilename(t *testing.T) {
	assert.NoError(t, ValidateFilename("photo.jpg"))
	for _, bad := range []string{"", "noext", "../etc.jpg", "a/b.jpg", `a\b.jpg`, strings.Repeat("a", 260) + ".jpg"} {
		assert.ErrorIs(t, ValidateFilename(bad), ErrValidation, bad)
	}
}

func TestGenerateUploadURL_KeysByOwner(t *testing.T) {
	store := &fakeStorage{}
	svc := NewService(store)
	owner := uuid.New()

	resp, err := svc.GenerateUploadURL(context.Background(), owner, &GenerateUploadURLRequest{
		Filename:    "beach.png",
		ContentType: "image/png",
		Folder:      "stories",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(resp.FileKey, "stories/"+owner.String()+"/"))
	assert.True(t, strings.HasSuffix(resp.FileKey, "-beach.png"))
	assert.True(t, OwnedBy(resp.FileKey, owner))
	assert.False(t, OwnedBy(resp.FileKey, uuid.New()))

	_, err = svc.GenerateUploadURL(context.Background(), owner, &GenerateUploadURLRequest{
		Filename:    "x.exe",
		ContentType: "application/x-msdownload",
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDeleteFile_OnlyOwner(t *testing.T) {
	store := &fakeStorage{}
	svc := NewService(store)
	owner := uuid.New()
	key := "posts/" + owner.String() + "/abc-a.jpg"

	assert.ErrorIs(t, svc.DeleteFile(context.Background(), uuid.New(), key), ErrForbidden)
	require.NoError(t, svc.DeleteFile(context.Background(), owner, key))
	assert.Equal(t, []string{key}, store.deleted)
}

func newRouter(svc *Service, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Next()
	})
	NewHandler(svc, logger.Discard()).RegisterRoutes(r.Group("/files"))
	return r
}

func TestHandler(t *testing.T) {
	store := &fakeStorage{}
	owner := uuid.New()
	r := newRouter(NewService(store), owner)

	body, _ := json.Marshal(GenerateUploadURLRequest{Filename: "a.jpg", ContentType: "image/jpeg"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/files/upload-url", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)

	var resp GenerateUploadURLResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.FileKey, "posts/"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/files/"+resp.FileKey, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{resp.FileKey}, store.deleted)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/files/posts/"+uuid.NewString()+"/x-a.jpg", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	store.err = errors.New("s3 down")
	body, _ = json.Marshal(GenerateDownloadURLRequest{FileKey: resp.FileKey})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/files/download-url", bytes.NewReader(body)))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
