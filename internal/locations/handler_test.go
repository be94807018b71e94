package locations

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/logger"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/middleware"
)

func newTestRouter(t *testing.T, owner uuid.UUID) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, RegisterValidators())

	svc := newTestService(t, newMemStore(owner))
	h := NewHandler(svc, logger.Discard())

	r := gin.New()
	g := r.Group("/profile/locations", func(c *gin.Context) {
		c.Set(middleware.UserIDKey, owner)
		c.Next()
	})
	h.RegisterRoutes(g)
	return r
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
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

func createBody(zip string) gin.H {
	return gin.H{"country": "India", "state": "Goa", "district": "North Goa", "postal_code": zip}
}

func TestHandler_CreateAndList(t *testing.T) {
	r := newTestRouter(t, uuid.New())

	w := doJSON(r, http.MethodPost, "/profile/locations", createBody("403 001"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created Location
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.True(t, created.IsDefault)
	assert.Equal(t, "403001", created.PostalCode)

	w = doJSON(r, http.MethodGet, "/profile/locations", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Locations []Location `json:"locations"`
		Count     int        `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
}

func TestHandler_RejectsBadPostalCode(t *testing.T) {
	r := newTestRouter(t, uuid.New())

	w := doJSON(r, http.MethodPost, "/profile/locations", createBody("12"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_LimitMessage(t *testing.T) {
	r := newTestRouter(t, uuid.New())

	for i := 0; i < 4; i++ {
		w := doJSON(r, http.MethodPost, "/profile/locations", createBody("403001"))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(r, http.MethodPost, "/profile/locations", createBody("403001"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Maximum limit of 4 locations reached"}`, w.Body.String())
}

func TestHandler_DeleteLastLocation(t *testing.T) {
	r := newTestRouter(t, uuid.New())

	w := doJSON(r, http.MethodPost, "/profile/locations", createBody("403001"))
	require.Equal(t, http.StatusCreated, w.Code)
	var created Location
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(r, http.MethodDelete, "/profile/locations/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Cannot delete your last location"}`, w.Body.String())
}

func TestHandler_DefaultMissing(t *testing.T) {
	r := newTestRouter(t, uuid.New())

	w := doJSON(r, http.MethodGet, "/profile/locations/default", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"No default location set"}`, w.Body.String())
}

func TestHandler_SetDefaultAndUpdate(t *testing.T) {
	r := newTestRouter(t, uuid.New())

	w := doJSON(r, http.MethodPost, "/profile/locations", createBody("403001"))
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(r, http.MethodPost, "/profile/locations", createBody("403002"))
	require.Equal(t, http.StatusCreated, w.Code)
	var second Location
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))

	w = doJSON(r, http.MethodPost, "/profile/locations/"+second.ID.String()+"/set-default", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPatch, "/profile/locations/"+second.ID.String(), gin.H{"district": "South Goa"})
	require.Equal(t, http.StatusOK, w.Code)
	var updated Location
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "South Goa", updated.District)
	assert.True(t, updated.IsDefault)

	w = doJSON(r, http.MethodPatch, "/profile/locations/not-a-uuid", gin.H{"district": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/profile/locations/"+uuid.NewString()+"/set-default", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
