package languages_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/database/dbtest"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/languages"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/logger"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	code := m.Run()
	dbtest.Shutdown()
	os.Exit(code)
}

func TestLanguageCRUD(t *testing.T) {
	db := dbtest.New(t)
	svc := languages.NewService(db)
	ctx := context.Background()

	en, err := svc.Create(ctx, " English ", "en")
	require.NoError(t, err)
	assert.Equal(t, "English", en.Name)
	assert.Equal(t, "en", en.Code)

	_, err = svc.Create(ctx, "English", "eng")
	assert.ErrorIs(t, err, languages.ErrExists)
	_, err = svc.Create(ctx, "Anglais", "en")
	assert.ErrorIs(t, err, languages.ErrExists)
	_, err = svc.Create(ctx, "", "xx")
	assert.ErrorIs(t, err, languages.ErrValidation)
	_, err = svc.Create(ctx, "Klingon", "tlh-extended")
	assert.ErrorIs(t, err, languages.ErrValidation)

	fr, err := svc.Create(ctx, "French", "fr")
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "English", list[0].Name)

	code := "fr-FR"
	updated, err := svc.Update(ctx, fr.ID, languages.Update{Code: &code})
	require.NoError(t, err)
	assert.Equal(t, "French", updated.Name)
	assert.Equal(t, "fr-FR", updated.Code)

	taken := "en"
	_, err = svc.Update(ctx, fr.ID, languages.Update{Code: &taken})
	assert.ErrorIs(t, err, languages.ErrExists)

	_, err = svc.Update(ctx, 9999, languages.Update{Code: &code})
	assert.ErrorIs(t, err, languages.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, fr.ID))
	assert.ErrorIs(t, svc.Delete(ctx, fr.ID), languages.ErrNotFound)
	_, err = svc.Get(ctx, fr.ID)
	assert.ErrorIs(t, err, languages.ErrNotFound)
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_Languages(t *testing.T) {
	db := dbtest.New(t)
	r := gin.New()
	languages.NewHandler(languages.NewService(db), logger.Discard()).RegisterRoutes(r.Group("/languages"))

	w := do(r, http.MethodPost, "/languages", gin.H{"name": "German", "code": "de"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Message string             `json:"message"`
		Data    languages.Language `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Language created successfully", created.Message)
	assert.Equal(t, "de", created.Data.Code)
	path := "/languages/" + strconv.FormatInt(created.Data.ID, 10)

	w = do(r, http.MethodPost, "/languages", gin.H{"name": "Deutsch", "code": "de"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPost, "/languages", gin.H{"name": "German"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPut, path, gin.H{"name": "Deutsch"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPatch, path, gin.H{"name": "Deutsch"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"de"`)

	w = do(r, http.MethodGet, "/languages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Deutsch"`)

	w = do(r, http.MethodGet, "/languages/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(r, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
