package post

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, svc *Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHTTPCreateListRoundTrip(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	r := newTestRouter(t, svc)

	w := doJSON(t, r, http.MethodPost, "/posts", `{
		"title": "Hello HTTP",
		"status": "publish",
		"tags": ["wire"],
		"extras": {"subtitle": "over the wire"}
	}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created CreateResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "hello-http", created.Slug)
	assert.Equal(t, "publish", created.Status)

	w = doJSON(t, r, http.MethodGet, "/posts", "")
	require.Equal(t, http.StatusOK, w.Code)

	var listed struct {
		Total int   `json:"total"`
		Items []Row `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Equal(t, 1, listed.Total)
	assert.Equal(t, "Hello HTTP", listed.Items[0].Title)
	assert.Equal(t, "wire", listed.Items[0].TagNames)
	assert.Equal(t, "over the wire", listed.Items[0].Subtitle)
}

func TestHTTPUpdateNullClearsSchedule(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	r := newTestRouter(t, svc)

	w := doJSON(t, r, http.MethodPost, "/posts", `{
		"title": "Queued",
		"scheduled_at": "2024-04-01 08:00"
	}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created CreateResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Equal(t, "future", created.Status)

	// explicit null, not omission, drops the schedule
	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/posts/%d", created.ID), `{
		"status": "draft",
		"scheduled_at": null
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/posts/%d", created.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"draft"`)
	assert.Contains(t, w.Body.String(), `"date_local":"2024-03-15 19:00:00"`)
}

func TestHTTPErrorMapping(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	r := newTestRouter(t, svc)

	// missing required title
	w := doJSON(t, r, http.MethodPost, "/posts", `{"content": "x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// unknown category
	w = doJSON(t, r, http.MethodPost, "/posts", `{"title": "x", "category_ids": [999]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// bad timestamp
	w = doJSON(t, r, http.MethodPost, "/posts", `{"title": "x", "scheduled_at": "whenever"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// lifecycle on a missing post
	w = doJSON(t, r, http.MethodPost, "/posts/999/trash", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/posts/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHTTPQuickEditAndTrashFlow(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	r := newTestRouter(t, svc)

	w := doJSON(t, r, http.MethodPost, "/posts", `{"title": "Flow", "status": "publish"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created CreateResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	base := fmt.Sprintf("/posts/%d", created.ID)

	w = doJSON(t, r, http.MethodPost, base+"/quick-edit", `{"status": "pending"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, base+"/trash", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, base+"/restore", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"pending"`)

	w = doJSON(t, r, http.MethodDelete, base, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
