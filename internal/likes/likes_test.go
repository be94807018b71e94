package likes_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/database"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/database/dbtest"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/likes"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/logger"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/middleware"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	code := m.Run()
	dbtest.Shutdown()
	os.Exit(code)
}

func createPost(t *testing.T, db database.Service, author uuid.UUID) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(context.Background(),
		`INSERT INTO posts (user_id, content_type, text_content) VALUES ($1, 'text', 'hello') RETURNING post_id`,
		author).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestToggle(t *testing.T) {
	db := dbtest.New(t)
	svc := likes.NewService(db, logger.Discard())
	ctx := context.Background()

	author := dbtest.CreateUser(t, db)
	fan := dbtest.CreateUser(t, db)
	post := createPost(t, db, author)

	res, err := svc.Toggle(ctx, fan, post)
	require.NoError(t, err)
	assert.Equal(t, likes.ToggleResult{Status: likes.StatusLiked, LikesCount: 1}, res)

	res, err = svc.Toggle(ctx, author, post)
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.LikesCount)

	liked, err := svc.IsLiked(ctx, fan, post)
	require.NoError(t, err)
	assert.True(t, liked)

	res, err = svc.Toggle(ctx, fan, post)
	require.NoError(t, err)
	assert.Equal(t, likes.ToggleResult{Status: likes.StatusUnliked, LikesCount: 1}, res)

	liked, err = svc.IsLiked(ctx, fan, post)
	require.NoError(t, err)
	assert.False(t, liked)

	_, err = svc.Toggle(ctx, fan, post+100)
	assert.ErrorIs(t, err, likes.ErrPostNotFound)
}

func TestHandler_ToggleStatusCodes(t *testing.T) {
	db := dbtest.New(t)
	user := dbtest.CreateUser(t, db)
	post := createPost(t, db, user)

	r := gin.New()
	g := r.Group("/posts", func(c *gin.Context) {
		c.Set(middleware.UserIDKey, user)
		c.Next()
	})
	likes.NewHandler(likes.NewService(db, logger.Discard()), logger.Discard()).RegisterRoutes(g)

	path := "/posts/" + strconv.FormatInt(post, 10) + "/like"

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
	assert.Equal(t, http.StatusCreated, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "liked", body["status"])
	assert.EqualValues(t, 1, body["likes_count"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"post_id":`+strconv.FormatInt(post, 10)+`,"liked":true}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"unliked"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"post_id":`+strconv.FormatInt(post, 10)+`,"liked":false}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/posts/abc/like", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/posts/99999/like", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
