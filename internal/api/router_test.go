package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"visit-route-engine/internal/adapters/distance"
	"visit-route-engine/internal/api/dto"
	"visit-route-engine/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	topts := services.DefaultTravelOptions()
	topts.RatePerSecond = 0
	matrix := services.NewTravelMatrixService(distance.NewLocalEstimator(distance.DefaultUrbanSpeedKmh), topts)
	hours := services.NewHoursResolver(nil, time.Second, 2)

	planner, err := services.NewPlanner(services.DefaultOptions(), matrix, hours, nil)
	require.NoError(t, err)

	return NewRouter(Deps{Planner: planner, RequestTimeout: 10 * time.Second})
}

func TestOptimizeEndToEnd(t *testing.T) {
	router := newTestRouter(t)

	body := `{
		"start_time": "2026-03-02T08:00:00Z",
		"points": [
			{"id":"A","lat":-1.6700,"lng":-78.6500,"priority":2,"estimated_duration_minutes":30,"visit_type":"company"},
			{"id":"B","lat":-1.6600,"lng":-78.6500,"priority":1,"estimated_duration_minutes":30,"visit_type":"government"},
			{"id":"C","lat":-1.6500,"lng":-78.6500,"priority":3,"estimated_duration_minutes":30}
		]
	}`
	req := httptest.NewRequest(http.MethodPost, "/routes/optimize", strings.NewReader(body))
	req.Header.Set("X-Request-ID", "req-42")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "req-42", rr.Header().Get("X-Request-ID"))

	var res dto.DayResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Len(t, res.Route.Stops, 3)
	assert.Equal(t, "exact_branch_and_bound", res.Route.Metadata.Algorithm)
	assert.True(t, res.Route.Metadata.Degraded, "no remote provider configured")
	require.NotNil(t, res.Report)
	assert.GreaterOrEqual(t, res.Report.Score, 0.0)
	assert.LessOrEqual(t, res.Report.Score, 100.0)
}

func TestMalformedCoordinateIsInputInvalid(t *testing.T) {
	router := newTestRouter(t)

	body := `{"points":[
		{"id":"A","lat":95,"lng":-78.65,"priority":1,"estimated_duration_minutes":30},
		{"id":"B","lat":-1.66,"lng":-78.65,"priority":1,"estimated_duration_minutes":30}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/routes/optimize", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var res dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.NotEmpty(t, res.Details)
	assert.Equal(t, "INPUT_INVALID", res.Details[0].Code)
	assert.Equal(t, "A", res.Details[0].PointID)
}

func TestRouterAssignsRequestIDAndServesMetrics(t *testing.T) {
	router := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}
