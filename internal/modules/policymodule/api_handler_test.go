package policymodule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	handler := NewAPIHandler(testManager(t))

	router := gin.New()
	group := router.Group("/api/policy")
	group.POST("/decide", handler.HandleDecide)
	group.POST("/outcomes", handler.HandlePlaybackStart)
	group.PUT("/outcomes/:outcomeId/stop", handler.HandlePlaybackStop)
	group.GET("/clients/:deviceId", handler.HandleGetClient)
	group.POST("/clients/:deviceId/recalibrate", handler.HandleRecalibrate)
	group.GET("/stats", handler.HandleStats)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decideRequestBody() map[string]interface{} {
	return map[string]interface{}{
		"device": map[string]interface{}{
			"device_id":   "tv-1",
			"device_name": "Living Room TV",
			"app_name":    "MediaMesh Tizen",
		},
		"media": map[string]interface{}{
			"video_codec": "hevc",
			"container":   "mkv",
			"height":      1080,
		},
	}
}

func TestHandleDecide(t *testing.T) {
	router := testRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/policy/decide", decideRequestBody())
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Policy       PlaybackPolicy     `json:"policy"`
		Capabilities CapabilityDocument `json:"capabilities"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	assert.True(t, response.Policy.AllowDirectPlay)
	assert.NotEmpty(t, response.Policy.Rationale)
	assert.NotEmpty(t, response.Capabilities.PlayMethods)
}

func TestHandleDecideRejectsMissingDevice(t *testing.T) {
	router := testRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/policy/decide", map[string]interface{}{
		"media": map[string]interface{}{"video_codec": "h264"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlePlaybackStartAndStop(t *testing.T) {
	router := testRouter(t)

	body := decideRequestBody()
	body["method"] = "direct_play"
	w := doJSON(t, router, http.MethodPost, "/api/policy/outcomes", body)
	require.Equal(t, http.StatusCreated, w.Code)

	var outcome struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &outcome))
	require.NotEmpty(t, outcome.ID)

	w = doJSON(t, router, http.MethodPut,
		fmt.Sprintf("/api/policy/outcomes/%s/stop", outcome.ID),
		map[string]interface{}{"played_ticks": 9000, "total_ticks": 10000})
	require.Equal(t, http.StatusOK, w.Code)

	var finalized struct {
		Classification string `json:"classification"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &finalized))
	assert.Equal(t, string(OutcomeSuccess), finalized.Classification)
}

func TestHandlePlaybackStartRejectsBadMethod(t *testing.T) {
	router := testRouter(t)

	body := decideRequestBody()
	body["method"] = "teleport"
	w := doJSON(t, router, http.MethodPost, "/api/policy/outcomes", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlePlaybackStopUnknownOutcome(t *testing.T) {
	router := testRouter(t)

	w := doJSON(t, router, http.MethodPut, "/api/policy/outcomes/nope/stop",
		map[string]interface{}{"played_ticks": 1, "total_ticks": 2})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGetClient(t *testing.T) {
	router := testRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/policy/clients/tv-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.Equal(t, http.StatusOK,
		doJSON(t, router, http.MethodPost, "/api/policy/decide", decideRequestBody()).Code)

	w = doJSON(t, router, http.MethodGet, "/api/policy/clients/tv-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var client struct {
		Category string `json:"category"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &client))
	assert.Equal(t, string(CategoryTV), client.Category)
}

func TestHandleRecalibrateUnknownDevice(t *testing.T) {
	router := testRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/policy/clients/ghost/recalibrate", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleStats(t *testing.T) {
	router := testRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/policy/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Contains(t, stats, "clients")
	assert.Contains(t, stats, "dynamic_shaping")
}
