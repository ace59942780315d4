package domain

import "time"

// RouteType distinguishes how a route was produced.
type RouteType string

const (
	RouteSingleDay   RouteType = "single_day"
	RouteWeeklyDay   RouteType = "weekly_day"
	RouteAlternative RouteType = "alternative"
)

// Algorithm names the ordering strategy used for a route.
type Algorithm string

const (
	AlgorithmEmpty    Algorithm = "empty"
	AlgorithmSingle   Algorithm = "single_stop"
	AlgorithmExact    Algorithm = "exact_branch_and_bound"
	AlgorithmGenetic  Algorithm = "genetic"
	AlgorithmIdentity Algorithm = "identity"
)

// Leg is the travel segment that ends at a stop.
type Leg struct {
	FromID         string
	ToID           string
	DistanceMeters float64
	TravelTime     time.Duration
	Source         EntrySource
}

// RouteMetadata explains how a route was computed and which degradations applied.
type RouteMetadata struct {
	Algorithm     Algorithm
	Profile       string
	Degradations  []Degradation
	FallbackPairs int
	Seed          int64
	Generations   int
	Evaluations   int
	Elapsed       time.Duration
}

// Degraded reports whether any fidelity degradation was recorded.
func (m RouteMetadata) Degraded() bool { return len(m.Degradations) > 0 }

// HasDegradation reports whether a degradation of the given kind was recorded.
func (m RouteMetadata) HasDegradation(kind string) bool {
	for _, d := range m.Degradations {
		if d.Kind == kind {
			return true
		}
	}
	return false
}

// Represents the ordered single-day route produced by the optimizer.
// It is created once per call and treated as immutable planning data;
// alternatives are separate instances.
type OptimizedRoute struct {
	ID                  string
	RouteType           RouteType
	StartTime           time.Time
	StartLocation       *Location
	Points              []RoutePoint
	Legs                []Leg
	TotalDistanceMeters float64
	TotalDuration       time.Duration
	TotalDrivingTime    time.Duration
	TotalServiceTime    time.Duration
	Objective           float64
	OptimizationScore   float64
	Metadata            RouteMetadata
}

// PointIDs returns the visiting order as ids.
func (r *OptimizedRoute) PointIDs() []string {
	ids := make([]string, len(r.Points))
	for i, p := range r.Points {
		ids[i] = p.ID
	}
	return ids
}

// Len returns the number of stops.
func (r *OptimizedRoute) Len() int { return len(r.Points) }

// Last returns the final stop, if any.
func (r *OptimizedRoute) Last() (RoutePoint, bool) {
	if len(r.Points) == 0 {
		return RoutePoint{}, false
	}
	return r.Points[len(r.Points)-1], true
}
