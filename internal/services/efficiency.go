package services

import (
	"fmt"
	"math"
	"slices"
	"time"
	"visit-route-engine/internal/domain"
)

// EfficiencyScorer computes comparison metrics for finished routes. The
// blend weights and thresholds only affect ranking, never the route itself.
type EfficiencyScorer struct {
	// Inter-stop distance at which the distance component scores 0.5.
	ReferenceInterStop float64
	WorkRatioWeight    float64
	DistanceWeight     float64
	CompactnessWeight  float64
	PriorityWeight     float64

	HighInterStopMeters float64
	LowWorkRatio        float64
	HighSpread          float64
	LowPriorityQuality  float64
}

func NewEfficiencyScorer() *EfficiencyScorer {
	return &EfficiencyScorer{
		ReferenceInterStop:  5000,
		WorkRatioWeight:     0.30,
		DistanceWeight:      0.25,
		CompactnessWeight:   0.20,
		PriorityWeight:      0.25,
		HighInterStopMeters: 8000,
		LowWorkRatio:        0.5,
		HighSpread:          1.0,
		LowPriorityQuality:  0.8,
	}
}

// Score rates a route on its planned totals.
func (s *EfficiencyScorer) Score(route *domain.OptimizedRoute) *domain.EfficiencyReport {
	return s.score(route, route.TotalDuration, nil)
}

// ScoreSchedule rates a route on its timed schedule, so waits, lunch and
// violations count against it.
func (s *EfficiencyScorer) ScoreSchedule(route *domain.OptimizedRoute, sched *domain.Schedule) *domain.EfficiencyReport {
	if sched == nil || len(sched.Items) == 0 {
		return s.Score(route)
	}
	return s.score(route, sched.EndTime.Sub(sched.StartTime), sched)
}

func (s *EfficiencyScorer) score(route *domain.OptimizedRoute, span time.Duration, sched *domain.Schedule) *domain.EfficiencyReport {
	r := &domain.EfficiencyReport{
		RouteID:              route.ID,
		Stops:                route.Len(),
		WorkTimeRatio:        1,
		Compactness:          1,
		PriorityOrderQuality: 1,
		Score:                100,
	}
	if r.Stops == 0 {
		return r
	}

	if span > 0 {
		r.WorkTimeRatio = math.Min(1, route.TotalServiceTime.Seconds()/span.Seconds())
	}
	r.AverageInterStopMeters = averageInterStop(route)
	r.GeographicSpread = geographicSpread(route.Points)
	r.Compactness = 1 / (1 + r.GeographicSpread)
	r.PriorityOrderQuality = priorityOrderQuality(route.Points)

	distanceScore := 1 / (1 + r.AverageInterStopMeters/s.ReferenceInterStop)
	blend := s.WorkRatioWeight*r.WorkTimeRatio +
		s.DistanceWeight*distanceScore +
		s.CompactnessWeight*r.Compactness +
		s.PriorityWeight*r.PriorityOrderQuality
	total := s.WorkRatioWeight + s.DistanceWeight + s.CompactnessWeight + s.PriorityWeight
	if total > 0 {
		blend /= total
	}
	r.Score = math.Round(clamp(100*blend, 0, 100)*100) / 100

	r.Suggestions = s.suggest(route, r, sched)
	return r
}

func (s *EfficiencyScorer) suggest(route *domain.OptimizedRoute, r *domain.EfficiencyReport, sched *domain.Schedule) []string {
	var out []string
	if r.Stops > 1 && r.AverageInterStopMeters > s.HighInterStopMeters {
		out = append(out, fmt.Sprintf("average inter-stop distance is high (%.1f km); consider grouping stops by municipality", r.AverageInterStopMeters/1000))
	}
	if r.WorkTimeRatio < s.LowWorkRatio {
		out = append(out, fmt.Sprintf("only %.0f%% of the day is spent on visits; travel and waiting dominate", r.WorkTimeRatio*100))
	}
	if r.GeographicSpread > s.HighSpread {
		out = append(out, "stops are geographically dispersed; a multi-day split may shorten travel")
	}
	if r.PriorityOrderQuality < s.LowPriorityQuality {
		out = append(out, "some higher-priority points are visited after lower-priority ones")
	}
	if route.Metadata.FallbackPairs > 0 {
		out = append(out, fmt.Sprintf("%d travel estimates are local approximations; verify timings before dispatch", route.Metadata.FallbackPairs))
	}
	if sched != nil {
		if n := len(sched.Violations); n > 0 {
			out = append(out, fmt.Sprintf("%d stops violate business hours; review the schedule", n))
		}
		if sched.TotalWait > time.Hour {
			out = append(out, fmt.Sprintf("waiting for openings totals %s; consider starting later", sched.TotalWait.Round(time.Minute)))
		}
	}
	return out
}

// RankRoutes orders routes by descending score; equal scores keep the
// shorter route first, then the original order.
func RankRoutes(routes []*domain.OptimizedRoute) []*domain.OptimizedRoute {
	out := slices.Clone(routes)
	slices.SortStableFunc(out, func(a, b *domain.OptimizedRoute) int {
		switch {
		case a.OptimizationScore > b.OptimizationScore:
			return -1
		case a.OptimizationScore < b.OptimizationScore:
			return 1
		case a.TotalDistanceMeters < b.TotalDistanceMeters:
			return -1
		case a.TotalDistanceMeters > b.TotalDistanceMeters:
			return 1
		}
		return 0
	})
	return out
}

func averageInterStop(route *domain.OptimizedRoute) float64 {
	if len(route.Points) < 2 {
		return 0
	}
	total := 0.0
	legs := 0
	for _, l := range route.Legs {
		if l.FromID == "" || (route.StartLocation != nil && l.FromID == route.StartLocation.ID) {
			continue
		}
		total += l.DistanceMeters
		legs++
	}
	if legs == 0 {
		return 0
	}
	return total / float64(legs)
}

// geographicSpread is the variance of distance-from-centroid normalized by
// the squared mean distance.
func geographicSpread(points []domain.RoutePoint) float64 {
	if len(points) < 2 {
		return 0
	}
	var c domain.Coordinates
	for _, p := range points {
		c.Lat += p.Coordinates.Lat
		c.Lng += p.Coordinates.Lng
	}
	c.Lat /= float64(len(points))
	c.Lng /= float64(len(points))

	dists := make([]float64, len(points))
	mean := 0.0
	for i, p := range points {
		dists[i] = domain.HaversineMeters(c, p.Coordinates)
		mean += dists[i]
	}
	mean /= float64(len(points))
	if mean == 0 {
		return 0
	}

	variance := 0.0
	for _, d := range dists {
		variance += (d - mean) * (d - mean)
	}
	variance /= float64(len(points))
	return variance / (mean * mean)
}

// priorityOrderQuality is the fraction of differently-prioritized pairs
// visited in priority order.
func priorityOrderQuality(points []domain.RoutePoint) float64 {
	pairs, good := 0, 0
	for i := range points {
		for j := i + 1; j < len(points); j++ {
			pi, pj := points[i].Priority, points[j].Priority
			if pi == pj {
				continue
			}
			pairs++
			if pi < pj {
				good++
			}
		}
	}
	if pairs == 0 {
		return 1
	}
	return float64(good) / float64(pairs)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
