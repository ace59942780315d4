package dto

import (
	"strings"
	"time"
	"visit-route-engine/internal/domain"
)

type TimeWindow struct {
	Open  domain.Clock `json:"open"`
	Close domain.Clock `json:"close"`
}

type PointRequest struct {
	ID              string      `json:"id"                         validate:"required"`
	Name            string      `json:"name"`
	Lat             float64     `json:"lat"`
	Lng             float64     `json:"lng"`
	Municipality    string      `json:"municipality"`
	Priority        int         `json:"priority"`
	DurationMinutes float64     `json:"estimated_duration_minutes"`
	TimeWindow      *TimeWindow `json:"time_window,omitempty"`
	VisitType       string      `json:"visit_type"                 validate:"omitempty,oneof=government company cooperative other"`
	Requirements    []string    `json:"requirements,omitempty"`
}

// PointResponse shares its shape with PointRequest so clients can feed
// listed points straight back into an optimize call.
type PointResponse = PointRequest

type ListPointsResponse struct {
	Municipality string          `json:"municipality"`
	Date         string          `json:"date"`
	Points       []PointResponse `json:"points"`
}

type Location struct {
	ID  string  `json:"id"`
	Lat float64 `json:"lat" validate:"latitude"`
	Lng float64 `json:"lng" validate:"longitude"`
}

func (l *Location) ToDomain() *domain.Location {
	if l == nil {
		return nil
	}
	id := strings.TrimSpace(l.ID)
	if id == "" {
		id = "start"
	}
	return &domain.Location{ID: id, Coordinates: domain.Coordinates{Lat: l.Lat, Lng: l.Lng}}
}

func FromLocation(l *domain.Location) *Location {
	if l == nil {
		return nil
	}
	return &Location{ID: l.ID, Lat: l.Coordinates.Lat, Lng: l.Coordinates.Lng}
}

// ToRoutePoints converts request points. Semantic checks (coordinates,
// priority tiers, windows) are left to the engine so they surface as
// per-point INPUT_INVALID errors.
func ToRoutePoints(reqs []PointRequest) []domain.RoutePoint {
	out := make([]domain.RoutePoint, 0, len(reqs))
	for _, r := range reqs {
		p := domain.RoutePoint{
			ID:                strings.TrimSpace(r.ID),
			Name:              r.Name,
			Coordinates:       domain.Coordinates{Lat: r.Lat, Lng: r.Lng},
			Municipality:      r.Municipality,
			Priority:          r.Priority,
			EstimatedDuration: time.Duration(r.DurationMinutes * float64(time.Minute)),
			VisitType:         domain.VisitType(r.VisitType),
		}
		if p.VisitType == "" {
			p.VisitType = domain.VisitOther
		}
		if r.TimeWindow != nil {
			p.TimeWindow = &domain.TimeWindow{Open: r.TimeWindow.Open, Close: r.TimeWindow.Close}
		}
		for _, req := range r.Requirements {
			p.Requirements = append(p.Requirements, domain.Requirement(req))
		}
		out = append(out, p)
	}
	return out
}

func FromRoutePoint(p domain.RoutePoint) PointResponse {
	r := PointResponse{
		ID:              p.ID,
		Name:            p.Name,
		Lat:             p.Coordinates.Lat,
		Lng:             p.Coordinates.Lng,
		Municipality:    p.Municipality,
		Priority:        p.Priority,
		DurationMinutes: p.EstimatedDuration.Minutes(),
		VisitType:       string(p.VisitType),
	}
	if p.TimeWindow != nil {
		r.TimeWindow = &TimeWindow{Open: p.TimeWindow.Open, Close: p.TimeWindow.Close}
	}
	for _, req := range p.Requirements {
		r.Requirements = append(r.Requirements, string(req))
	}
	return r
}
