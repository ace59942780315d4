package handlers

import (
	"net/http"
	"strings"
	"time"
	"visit-route-engine/internal/api/dto"
)

// PointHandler exposes read-only access to eligible visit targets.
type PointHandler struct {
	Planner RoutePlanner
}

func (h *PointHandler) List(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	q := r.URL.Query()
	municipality := strings.TrimSpace(q.Get("municipality"))
	if municipality == "" {
		writeError(w, r, http.StatusBadRequest, "municipality is required")
		return
	}
	date, err := parseDate(q.Get("date"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}
	if date.IsZero() {
		date = time.Now()
	}

	points, err := h.Planner.EligiblePoints(r.Context(), municipality, date)
	if err != nil {
		writeEngineError(w, r, "list points", err)
		return
	}

	res := dto.ListPointsResponse{
		Municipality: municipality,
		Date:         date.Format(time.DateOnly),
		Points:       make([]dto.PointResponse, 0, len(points)),
	}
	for _, p := range points {
		res.Points = append(res.Points, dto.FromRoutePoint(p))
	}
	writeJSON(w, r, http.StatusOK, res)
}
