package handlers

import (
	"context"
	"net/http"
	"time"
	"visit-route-engine/internal/api/dto"
	"visit-route-engine/internal/domain"
	"visit-route-engine/internal/services"
)

// RoutePlanner is the engine surface the HTTP layer needs.
type RoutePlanner interface {
	OptimizeDay(ctx context.Context, req services.DayRequest) (*services.DayResult, error)
	CompareProfiles(ctx context.Context, req services.DayRequest, profiles []services.Profile) ([]*services.DayResult, error)
	PlanWeek(ctx context.Context, req services.WeekRequest) (*domain.WeeklyPlan, error)
	EligiblePoints(ctx context.Context, municipality string, date time.Time) ([]domain.RoutePoint, error)
}

type RouteHandler struct {
	Planner RoutePlanner
	// Upper bound for one planning request; zero means no extra limit.
	Timeout time.Duration
}

func (h *RouteHandler) context(r *http.Request) (context.Context, context.CancelFunc) {
	if h.Timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.Timeout)
}

func dayRequest(req dto.OptimizeRequest) (services.DayRequest, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return services.DayRequest{}, err
	}
	profile, err := services.ParseProfile(req.Profile)
	if err != nil {
		return services.DayRequest{}, err
	}

	out := services.DayRequest{
		Points:        dto.ToRoutePoints(req.Points),
		Municipality:  req.Municipality,
		Date:          date,
		StartLocation: req.StartLocation.ToDomain(),
		Profile:       profile,
		Weights:       req.Weights.ToDomain(),
	}
	if req.StartTime != nil {
		out.StartTime = *req.StartTime
	}
	return out, nil
}

// Optimize plans a single working day.
func (h *RouteHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.OptimizeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Points) == 0 && req.Municipality == "" {
		writeError(w, r, http.StatusBadRequest, "points or municipality is required")
		return
	}
	dayReq, err := dayRequest(req)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()

	res, err := h.Planner.OptimizeDay(ctx, dayReq)
	if err != nil {
		writeEngineError(w, r, "optimize route", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.FromDayResult(res))
}

// Compare optimizes the same day under several profiles, best first.
func (h *RouteHandler) Compare(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.CompareRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Points) == 0 && req.Municipality == "" {
		writeError(w, r, http.StatusBadRequest, "points or municipality is required")
		return
	}
	dayReq, err := dayRequest(req.OptimizeRequest)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	profiles := make([]services.Profile, 0, len(req.Profiles))
	for _, name := range req.Profiles {
		p, err := services.ParseProfile(name)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		profiles = append(profiles, p)
	}

	ctx, cancel := h.context(r)
	defer cancel()

	results, err := h.Planner.CompareProfiles(ctx, dayReq, profiles)
	if err != nil {
		writeEngineError(w, r, "compare routes", err)
		return
	}

	res := dto.CompareResponse{Alternatives: make([]dto.DayResponse, 0, len(results))}
	for _, d := range results {
		res.Alternatives = append(res.Alternatives, dto.FromDayResult(d))
	}
	writeJSON(w, r, http.StatusOK, res)
}

// Weekly spreads points across working days.
func (h *RouteHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.WeeklyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Points) == 0 && req.Municipality == "" {
		writeError(w, r, http.StatusBadRequest, "points or municipality is required")
		return
	}

	profile, err := services.ParseProfile(req.Profile)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid start_date")
		return
	}
	if start.IsZero() {
		start = time.Now()
	}
	dates := make([]time.Time, 0, len(req.Dates))
	for _, s := range req.Dates {
		d, err := parseDate(s)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid date "+s)
			return
		}
		dates = append(dates, d)
	}
	dayCount := req.DayCount
	if dayCount == 0 && len(dates) == 0 {
		dayCount = 5
	}

	ctx, cancel := h.context(r)
	defer cancel()

	plan, err := h.Planner.PlanWeek(ctx, services.WeekRequest{
		Points:        dto.ToRoutePoints(req.Points),
		Municipality:  req.Municipality,
		Dates:         dates,
		StartDate:     start,
		DayCount:      dayCount,
		StartLocation: req.StartLocation.ToDomain(),
		Profile:       profile,
		Weights:       req.Weights.ToDomain(),
	})
	if err != nil {
		writeEngineError(w, r, "plan week", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.FromWeeklyPlan(plan))
}
