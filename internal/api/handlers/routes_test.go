package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"visit-route-engine/internal/api/dto"
	"visit-route-engine/internal/domain"
	"visit-route-engine/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlanner struct {
	dayReq  services.DayRequest
	weekReq services.WeekRequest
	day     *services.DayResult
	week    *domain.WeeklyPlan
	points  []domain.RoutePoint
	err     error
}

func (f *fakePlanner) OptimizeDay(_ context.Context, req services.DayRequest) (*services.DayResult, error) {
	f.dayReq = req
	return f.day, f.err
}

func (f *fakePlanner) CompareProfiles(_ context.Context, req services.DayRequest, profiles []services.Profile) ([]*services.DayResult, error) {
	f.dayReq = req
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*services.DayResult, len(profiles))
	for i := range profiles {
		out[i] = f.day
	}
	return out, nil
}

func (f *fakePlanner) PlanWeek(_ context.Context, req services.WeekRequest) (*domain.WeeklyPlan, error) {
	f.weekReq = req
	return f.week, f.err
}

func (f *fakePlanner) EligiblePoints(_ context.Context, _ string, _ time.Time) ([]domain.RoutePoint, error) {
	return f.points, f.err
}

func sampleDay() *services.DayResult {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	p := domain.RoutePoint{ID: "P1", Name: "Town hall", Priority: 1, EstimatedDuration: 30 * time.Minute}
	route := &domain.OptimizedRoute{
		ID:        "r-1",
		RouteType: domain.RouteSingleDay,
		StartTime: start,
		Points:    []domain.RoutePoint{p},
		Legs:      []domain.Leg{{ToID: "P1"}},
		Metadata:  domain.RouteMetadata{Algorithm: domain.AlgorithmSingle, Profile: "balanced"},
	}
	sched := &domain.Schedule{
		RouteID:   "r-1",
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
		Items: []domain.ScheduleItem{{
			Sequence: 1, Point: p, Arrival: start, Departure: start.Add(30 * time.Minute),
			Hours:  domain.BusinessHours{Open: domain.MustClock("08:00"), Close: domain.MustClock("17:00"), Provenance: domain.ProvenanceEstimated},
			Status: domain.HoursOK,
		}},
	}
	return &services.DayResult{Route: route, Schedule: sched, Report: &domain.EfficiencyReport{RouteID: "r-1", Stops: 1, Score: 90}}
}

func do(t *testing.T, h http.HandlerFunc, method, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

const onePoint = `{"points":[{"id":"P1","name":"Town hall","lat":-1.66,"lng":-78.65,"priority":1,"estimated_duration_minutes":30}]}`

func TestOptimizeMapsRequestAndResponse(t *testing.T) {
	fp := &fakePlanner{day: sampleDay()}
	h := &RouteHandler{Planner: fp}

	rr := do(t, h.Optimize, http.MethodPost, onePoint)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	require.Len(t, fp.dayReq.Points, 1)
	assert.Equal(t, 30*time.Minute, fp.dayReq.Points[0].EstimatedDuration)
	assert.Equal(t, domain.VisitOther, fp.dayReq.Points[0].VisitType)
	assert.Equal(t, services.ProfileBalanced, fp.dayReq.Profile)

	var res dto.DayResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, "r-1", res.Route.ID)
	require.Len(t, res.Route.Stops, 1)
	assert.Equal(t, 1, res.Route.Stops[0].Sequence)
	require.NotNil(t, res.Schedule)
	assert.True(t, res.Schedule.Feasible)
	require.NotNil(t, res.Schedule.Items[0].Open)
	assert.Equal(t, "08:00", *res.Schedule.Items[0].Open)
}

func TestOptimizeRejectsBadRequests(t *testing.T) {
	h := &RouteHandler{Planner: &fakePlanner{day: sampleDay()}}

	cases := map[string]struct {
		method string
		body   string
		status int
	}{
		"wrong method":     {http.MethodGet, "", http.StatusMethodNotAllowed},
		"invalid json":     {http.MethodPost, "{", http.StatusBadRequest},
		"unknown field":    {http.MethodPost, `{"pointz":[]}`, http.StatusBadRequest},
		"two objects":      {http.MethodPost, `{} {}`, http.StatusBadRequest},
		"nothing to plan":  {http.MethodPost, `{}`, http.StatusBadRequest},
		"missing point id": {http.MethodPost, `{"points":[{"lat":1,"lng":1}]}`, http.StatusBadRequest},
		"unknown profile":  {http.MethodPost, `{"municipality":"Riobamba","profile":"fastest"}`, http.StatusBadRequest},
		"bad date":         {http.MethodPost, `{"municipality":"Riobamba","date":"02/03/2026"}`, http.StatusBadRequest},
		"bad start lat":    {http.MethodPost, `{"municipality":"Riobamba","start_location":{"lat":500,"lng":-78.6}}`, http.StatusBadRequest},
		"bad start lng":    {http.MethodPost, `{"municipality":"Riobamba","start_location":{"lat":-1.6,"lng":900}}`, http.StatusBadRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rr := do(t, h.Optimize, tc.method, tc.body)
			assert.Equal(t, tc.status, rr.Code, rr.Body.String())
		})
	}
}

func TestEngineErrorsMapToStatus(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
	}{
		"input invalid": {
			errors.Join(domain.InputInvalid("A", "bad coordinate"), domain.InputInvalid("B", "bad priority")),
			http.StatusBadRequest,
		},
		"capacity":   {&domain.EngineError{Code: domain.CodeCapacityExceeded, Stage: domain.StageOptimize}, http.StatusUnprocessableEntity},
		"provider":   {domain.ProviderUnavailable("A", errors.New("boom")), http.StatusServiceUnavailable},
		"deadline":   {context.DeadlineExceeded, http.StatusGatewayTimeout},
		"unexpected": {errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := &RouteHandler{Planner: &fakePlanner{err: tc.err}}
			rr := do(t, h.Optimize, http.MethodPost, onePoint)
			assert.Equal(t, tc.status, rr.Code)
		})
	}
}

func TestInputInvalidListsEveryPoint(t *testing.T) {
	err := errors.Join(domain.InputInvalid("A", "bad coordinate"), domain.InputInvalid("B", "bad priority"))
	h := &RouteHandler{Planner: &fakePlanner{err: err}}

	rr := do(t, h.Optimize, http.MethodPost, onePoint)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var res dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Len(t, res.Details, 2)
	assert.Equal(t, "INPUT_INVALID", res.Details[0].Code)
	assert.Equal(t, "A", res.Details[0].PointID)
	assert.Equal(t, "B", res.Details[1].PointID)
}

func TestCompareParsesProfiles(t *testing.T) {
	h := &RouteHandler{Planner: &fakePlanner{day: sampleDay()}}

	rr := do(t, h.Compare, http.MethodPost, `{"municipality":"Riobamba","profiles":["time_first","distance_first"]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var res dto.CompareResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Len(t, res.Alternatives, 2)
}

func TestWeeklyDefaultsToFiveDays(t *testing.T) {
	fp := &fakePlanner{week: &domain.WeeklyPlan{ID: "w-1"}}
	h := &RouteHandler{Planner: fp}

	rr := do(t, h.Weekly, http.MethodPost, `{"municipality":"Riobamba","start_date":"2026-03-02"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 5, fp.weekReq.DayCount)
	assert.Equal(t, time.Monday, fp.weekReq.StartDate.Weekday())

	var res dto.WeeklyResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, "w-1", res.ID)
	assert.NotNil(t, res.Warnings)
}

func TestListPointsRequiresMunicipality(t *testing.T) {
	h := &PointHandler{Planner: &fakePlanner{}}

	req := httptest.NewRequest(http.MethodGet, "/points", nil)
	rr := httptest.NewRecorder()
	h.List(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	fp := &fakePlanner{points: []domain.RoutePoint{{ID: "P1", Priority: 2, EstimatedDuration: time.Hour}}}
	h = &PointHandler{Planner: fp}
	req = httptest.NewRequest(http.MethodGet, "/points?municipality=Riobamba&date=2026-03-02", nil)
	rr = httptest.NewRecorder()
	h.List(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var res dto.ListPointsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Len(t, res.Points, 1)
	assert.Equal(t, 60.0, res.Points[0].DurationMinutes)
}

func TestHealthReportsDependencies(t *testing.T) {
	h := &HealthHandler{Checks: map[string]Pinger{
		"postgres": PingFunc(func(context.Context) error { return nil }),
		"redis":    PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	}}

	rr := do(t, h.Health, http.MethodGet, "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var res map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, "up", res["postgres"])
	assert.Equal(t, "degraded", res["status"])
}
