package services

import (
	"context"
	"testing"
	"time"
	"visit-route-engine/internal/adapters/distance"
	"visit-route-engine/internal/domain"
)

// 2026-03-02 is a Monday.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(clock string) time.Time { return domain.MustClock(clock).On(monday) }

func testOptions() Options {
	o := DefaultOptions()
	o.SearchBudget = 0
	return o
}

func testTravelOptions() TravelOptions {
	o := DefaultTravelOptions()
	o.RatePerSecond = 0
	return o
}

func point(id string, lat, lng float64, priority int, minutes int) domain.RoutePoint {
	return domain.RoutePoint{
		ID:                id,
		Name:              "Point " + id,
		Coordinates:       domain.Coordinates{Lat: lat, Lng: lng},
		Municipality:      "Riobamba",
		Priority:          priority,
		EstimatedDuration: time.Duration(minutes) * time.Minute,
		VisitType:         domain.VisitOther,
	}
}

func window(open, closing string) *domain.TimeWindow {
	return &domain.TimeWindow{Open: domain.MustClock(open), Close: domain.MustClock(closing)}
}

// localMatrix fills a matrix with local estimates only.
func localMatrix(points []domain.RoutePoint, anchor *domain.Location) *domain.DistanceMatrix {
	locs := make([]domain.Location, 0, len(points)+1)
	for _, p := range points {
		locs = append(locs, p.Location())
	}
	if anchor != nil {
		locs = append(locs, *anchor)
	}
	est := distance.NewLocalEstimator(0)
	m := domain.NewDistanceMatrix(locs)
	for i := range locs {
		for j := range locs {
			if i != j {
				m.Entries[i][j] = est.Estimate(locs[i].Coordinates, locs[j].Coordinates)
			}
		}
	}
	return m
}

func newLocalPlanner(t *testing.T, opts Options, extra ...TravelOption) *Planner {
	t.Helper()
	matrix := NewTravelMatrixService(distance.NewLocalEstimator(0), testTravelOptions(), extra...)
	p, err := NewPlanner(opts, matrix, NewHoursResolver(nil, time.Second, 2), nil)
	if err != nil {
		t.Fatalf("new planner: %v", err)
	}
	return p
}

// cluster returns n points scattered around downtown Riobamba.
func cluster(n int) []domain.RoutePoint {
	out := make([]domain.RoutePoint, n)
	for i := range n {
		lat := -1.67 + float64((i*37)%11)*0.004
		lng := -78.65 + float64((i*53)%13)*0.004
		out[i] = point(string(rune('A'+i)), lat, lng, 1+i%3, 20+(i%4)*10)
	}
	return out
}

func permutations(n int, visit func([]int)) {
	perm := identity(n)
	var gen func(k int)
	gen = func(k int) {
		if k == 1 {
			visit(perm)
			return
		}
		for i := 0; i < k; i++ {
			gen(k - 1)
			if k%2 == 0 {
				perm[i], perm[k-1] = perm[k-1], perm[i]
			} else {
				perm[0], perm[k-1] = perm[k-1], perm[0]
			}
		}
	}
	if n > 0 {
		gen(n)
	}
}

var bg = context.Background()
