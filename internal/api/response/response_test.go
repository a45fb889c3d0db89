package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobswipe/engine/internal/api/response"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	response.JSON(w, map[string]string{"name": "test"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	data := body["data"].(map[string]any)
	assert.Equal(t, "test", data["name"])
}

func TestAccepted(t *testing.T) {
	w := httptest.NewRecorder()
	response.Accepted(w, map[string]string{"id": "abc"})

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestStatus(t *testing.T) {
	w := httptest.NewRecorder()
	response.Status(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	data := body["data"].(map[string]any)
	assert.Equal(t, "unhealthy", data["status"])
}

func TestCollection(t *testing.T) {
	w := httptest.NewRecorder()
	response.Collection(w, []string{"a", "b"}, response.PaginationMeta{
		Page: 1, Limit: 2, Total: 5, HasNext: true,
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body["data"], 2)
	meta := body["meta"].(map[string]any)
	assert.Equal(t, float64(5), meta["total"])
	assert.Equal(t, true, meta["has_next"])
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()
	response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "job.url is required", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "INVALID_REQUEST", errBody["code"])
	assert.Equal(t, "job.url is required", errBody["message"])
	_, hasDetails := errBody["details"]
	assert.False(t, hasDetails)
}
