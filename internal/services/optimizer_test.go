package services

import (
	"errors"
	"math"
	"slices"
	"testing"
	"time"
	"visit-route-engine/internal/adapters/distance"
	"visit-route-engine/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizeDayPicksShortestTravel(t *testing.T) {
	opts := testOptions()
	opts.TravelBuffer = 0

	pairs := []distance.MockPair{
		{From: "A", To: "B", Meters: 5000, Seconds: 600},
		{From: "B", To: "C", Meters: 5000, Seconds: 600},
		{From: "A", To: "C", Meters: 8000, Seconds: 960},
	}
	remote := distance.NewMockDistanceProvider(pairs, true)
	planner := newLocalPlanner(t, opts, WithRemote(remote))

	points := []domain.RoutePoint{
		point("A", -1.670, -78.650, 1, 60),
		point("B", -1.660, -78.640, 1, 60),
		point("C", -1.650, -78.630, 1, 60),
	}
	for i := range points {
		points[i].TimeWindow = window("08:00", "17:00")
	}

	res, err := planner.OptimizeDay(bg, DayRequest{Points: points, StartTime: at("08:00")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := res.Route.PointIDs(); !slices.Equal(got, []string{"A", "B", "C"}) {
		t.Fatalf("order = %v, want [A B C]", got)
	}
	if res.Route.TotalDrivingTime != 20*time.Minute {
		t.Fatalf("driving time = %s, want 20m", res.Route.TotalDrivingTime)
	}
	if res.Route.TotalDistanceMeters != 10000 {
		t.Fatalf("distance = %v, want 10000", res.Route.TotalDistanceMeters)
	}

	want := []time.Time{at("08:00"), at("09:10"), at("10:20")}
	for i, item := range res.Schedule.Items {
		if !item.Arrival.Equal(want[i]) {
			t.Errorf("arrival at %s = %s, want %s", item.Point.ID, item.Arrival.Format("15:04"), want[i].Format("15:04"))
		}
	}
	if res.Route.Metadata.Degraded() {
		t.Fatalf("unexpected degradations: %+v", res.Route.Metadata.Degradations)
	}
	if res.Route.Metadata.Algorithm != domain.AlgorithmExact {
		t.Fatalf("algorithm = %s", res.Route.Metadata.Algorithm)
	}
}

func TestExactSearchMatchesBruteForce(t *testing.T) {
	opts := testOptions()
	resolver := NewHoursResolver(nil, time.Second, 2)
	weights, err := ProfileBalanced.Weights()
	require.NoError(t, err)

	for _, n := range []int{2, 4, 6, 8} {
		points := cluster(n)
		// Late openers and an early closer make hours penalties matter.
		points[0].TimeWindow = window("10:30", "17:00")
		points[n-1].TimeWindow = window("08:00", "09:30")

		start := at("08:00")
		hours, _ := resolver.ResolveAll(bg, points, start)
		ev, err := newEvaluator(points, hours, localMatrix(points, nil), start, nil, weights, opts)
		require.NoError(t, err)

		order, obj, complete := ev.exactSearch(bg, ev.priorityOrder())
		require.True(t, complete)

		best := math.Inf(1)
		permutations(n, func(p []int) {
			best = math.Min(best, ev.objective(p))
		})

		assert.InDelta(t, best, obj, 1e-6, "n=%d", n)
		assert.True(t, isPermutation(order, n))
		assert.InDelta(t, ev.objective(order), obj, 1e-9)
	}
}

func TestOptimizeEmptyAndSingle(t *testing.T) {
	opt, err := NewOptimizer(testOptions(), nil)
	require.NoError(t, err)

	empty, err := opt.Optimize(bg, OptimizeInput{StartTime: at("08:00")})
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
	assert.Zero(t, empty.TotalDistanceMeters)
	assert.Equal(t, domain.AlgorithmEmpty, empty.Metadata.Algorithm)
	assert.Equal(t, 100.0, empty.OptimizationScore)

	p := point("A", -1.67, -78.65, 2, 45)
	single, err := opt.Optimize(bg, OptimizeInput{
		Points:    []domain.RoutePoint{p},
		Matrix:    localMatrix([]domain.RoutePoint{p}, nil),
		StartTime: at("08:00"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, single.PointIDs())
	assert.Zero(t, single.TotalDistanceMeters)
	assert.Equal(t, 45*time.Minute, single.TotalDuration)
	assert.Equal(t, domain.AlgorithmSingle, single.Metadata.Algorithm)

	anchor := &domain.Location{ID: "office", Coordinates: domain.Coordinates{Lat: -1.66, Lng: -78.65}}
	anchored, err := opt.Optimize(bg, OptimizeInput{
		Points:        []domain.RoutePoint{p},
		Matrix:        localMatrix([]domain.RoutePoint{p}, anchor),
		StartTime:     at("08:00"),
		StartLocation: anchor,
	})
	require.NoError(t, err)
	assert.InDelta(t, domain.HaversineMeters(anchor.Coordinates, p.Coordinates), anchored.TotalDistanceMeters, 1e-9)
	assert.Equal(t, "office", anchored.Legs[0].FromID)
	assert.Equal(t, anchored.TotalDrivingTime+45*time.Minute+testOptions().TravelBuffer, anchored.TotalDuration)
}

func TestOptimizePrefersHigherPriorityFirst(t *testing.T) {
	opt, err := NewOptimizer(testOptions(), nil)
	require.NoError(t, err)

	low := point("LOW", -1.670, -78.650, 4, 30)
	high := point("HIGH", -1.660, -78.650, 1, 30)
	points := []domain.RoutePoint{low, high}

	route, err := opt.Optimize(bg, OptimizeInput{Points: points, Matrix: localMatrix(points, nil), StartTime: at("08:00")})
	require.NoError(t, err)
	assert.Equal(t, []string{"HIGH", "LOW"}, route.PointIDs())
}

func TestOptimizeIsDeterministic(t *testing.T) {
	for _, n := range []int{6, 12} {
		opts := testOptions()
		opts.PopulationSize = 30
		opts.Generations = 60
		opt, err := NewOptimizer(opts, nil)
		require.NoError(t, err)

		points := cluster(n)
		in := OptimizeInput{Points: points, Matrix: localMatrix(points, nil), StartTime: at("08:00")}

		first, err := opt.Optimize(bg, in)
		require.NoError(t, err)
		second, err := opt.Optimize(bg, in)
		require.NoError(t, err)

		assert.Equal(t, first.PointIDs(), second.PointIDs(), "n=%d", n)
		assert.Equal(t, first.Objective, second.Objective)
		assert.NotEqual(t, first.ID, second.ID)
	}
}

func TestGeneticSearchForLargeSets(t *testing.T) {
	opts := testOptions()
	opts.PopulationSize = 30
	opts.Generations = 80
	opt, err := NewOptimizer(opts, nil)
	require.NoError(t, err)

	points := cluster(12)
	m := localMatrix(points, nil)
	route, err := opt.Optimize(bg, OptimizeInput{Points: points, Matrix: m, StartTime: at("08:00")})
	require.NoError(t, err)

	assert.Equal(t, domain.AlgorithmGenetic, route.Metadata.Algorithm)
	assert.Equal(t, 80, route.Metadata.Generations)

	got := route.PointIDs()
	want := make([]string, len(points))
	for i, p := range points {
		want[i] = p.ID
	}
	slices.Sort(got)
	assert.Equal(t, want, got, "every point visited exactly once")

	weights, _ := ProfileBalanced.Weights()
	ev, err := newEvaluator(points, nil, m, at("08:00"), nil, weights, opts)
	require.NoError(t, err)
	assert.LessOrEqual(t, route.Objective, ev.objective(ev.priorityOrder())+1e-9,
		"search must never return worse than its priority seed")
}

func TestSearchBudgetTruncatesGeneticSearch(t *testing.T) {
	opts := testOptions()
	opts.SearchBudget = time.Nanosecond
	opt, err := NewOptimizer(opts, nil)
	require.NoError(t, err)

	points := cluster(12)
	route, err := opt.Optimize(bg, OptimizeInput{Points: points, Matrix: localMatrix(points, nil), StartTime: at("08:00")})
	require.NoError(t, err)

	assert.Equal(t, domain.AlgorithmGenetic, route.Metadata.Algorithm)
	assert.Zero(t, route.Metadata.Generations)
	assert.Len(t, route.Points, 12, "best seed is returned on expiry")
	assert.True(t, route.Metadata.HasDegradation(domain.DegradationSearchTruncated))
}

func TestOptimizeRejectsInvalidInput(t *testing.T) {
	opt, err := NewOptimizer(testOptions(), nil)
	require.NoError(t, err)

	bad := point("BAD", 123, -78.65, 1, 30)
	_, err = opt.Optimize(bg, OptimizeInput{Points: []domain.RoutePoint{bad}, StartTime: at("08:00")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInputInvalid))
	ee, ok := domain.AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, "BAD", ee.PointID)

	points := cluster(13)
	_, err = opt.Optimize(bg, OptimizeInput{Points: points, Matrix: localMatrix(points, nil), StartTime: at("08:00")})
	assert.True(t, errors.Is(err, domain.ErrCapacityExceeded))

	w := &Weights{Distance: 0.9, Time: 0.9}
	_, err = opt.Optimize(bg, OptimizeInput{Points: points[:3], Matrix: localMatrix(points[:3], nil), Weights: w})
	assert.True(t, errors.Is(err, domain.ErrInputInvalid))
}

func TestCompareProfilesRanksAlternatives(t *testing.T) {
	planner := newLocalPlanner(t, testOptions())

	results, err := planner.CompareProfiles(bg, DayRequest{Points: cluster(5), StartTime: at("08:00")}, nil)
	require.NoError(t, err)
	require.Len(t, results, len(AllProfiles))

	profiles := map[string]bool{}
	for i, r := range results {
		assert.Equal(t, domain.RouteAlternative, r.Route.RouteType)
		profiles[r.Route.Metadata.Profile] = true
		if i > 0 {
			assert.GreaterOrEqual(t, results[i-1].Route.OptimizationScore, r.Route.OptimizationScore)
		}
	}
	assert.Len(t, profiles, len(AllProfiles))
}

func TestPlannerRejectsBadStartLocation(t *testing.T) {
	planner := newLocalPlanner(t, testOptions())
	points := []domain.RoutePoint{point("A", -1.670, -78.650, 1, 30), point("B", -1.600, -78.620, 2, 30)}

	cases := map[string]*domain.Location{
		"id collides with a point": {ID: "A", Coordinates: domain.Coordinates{Lat: -2.5, Lng: -79.5}},
		"malformed coordinate":     {ID: "start", Coordinates: domain.Coordinates{Lat: 500, Lng: 900}},
	}
	for name, start := range cases {
		t.Run(name, func(t *testing.T) {
			req := DayRequest{Points: points, StartTime: at("08:00"), StartLocation: start}

			_, err := planner.OptimizeDay(bg, req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, &domain.EngineError{Code: domain.CodeInputInvalid, PointID: start.ID}), err)

			_, err = planner.CompareProfiles(bg, req, nil)
			assert.True(t, errors.Is(err, domain.ErrInputInvalid), err)

			_, err = planner.PlanWeek(bg, WeekRequest{Points: points, StartDate: monday, DayCount: 1, StartLocation: start})
			assert.True(t, errors.Is(err, domain.ErrInputInvalid), err)
		})
	}

	res, err := planner.OptimizeDay(bg, DayRequest{
		Points:        points,
		StartTime:     at("08:00"),
		StartLocation: &domain.Location{ID: "office", Coordinates: domain.Coordinates{Lat: -2.5, Lng: -79.5}},
	})
	require.NoError(t, err)
	for _, leg := range res.Route.Legs {
		assert.NotEqual(t, leg.FromID, leg.ToID)
	}
}
