package services

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"time"
	"visit-route-engine/internal/domain"
	"visit-route-engine/internal/geoindex"
	"visit-route-engine/internal/platform/obs"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// WeekRequest describes a multi-day planning call. Dates wins over
// StartDate/DayCount; generated dates skip weekends.
type WeekRequest struct {
	Points        []domain.RoutePoint
	Municipality  string
	Dates         []time.Time
	StartDate     time.Time
	DayCount      int
	StartLocation *domain.Location
	Profile       Profile
	Weights       *Weights
}

// WeeklyPlanner distributes an oversized point set across working days.
type WeeklyPlanner struct {
	opts Options
	pipe *pipeline
	log  zerolog.Logger
}

func NewWeeklyPlanner(opts Options, pipe *pipeline) *WeeklyPlanner {
	return &WeeklyPlanner{opts: opts, pipe: pipe, log: obs.Component("weekly")}
}

// WorkingDays returns n consecutive weekdays starting at start.
func WorkingDays(start time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	for d := start; len(out) < n; d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out = append(out, d)
		}
	}
	return out
}

// Plan assigns points to days, optimizes every day independently, then
// smooths the transition from each day's last stop into the next day.
func (w *WeeklyPlanner) Plan(ctx context.Context, req WeekRequest) (*domain.WeeklyPlan, error) {
	if err := domain.ValidateDay(req.Points, req.StartLocation, w.opts.MaxPriorityTier); err != nil {
		return nil, err
	}

	dates := req.Dates
	if len(dates) == 0 {
		if req.DayCount < 1 {
			return nil, &domain.EngineError{Code: domain.CodeInputInvalid, Stage: domain.StageWeekly, Message: "at least one working day is required"}
		}
		dates = WorkingDays(req.StartDate, req.DayCount)
	}

	days := len(dates)
	if capacity := days * w.opts.MaxPointsPerRoute; len(req.Points) > capacity {
		return nil, &domain.EngineError{
			Code:    domain.CodeCapacityExceeded,
			Stage:   domain.StageWeekly,
			Message: fmt.Sprintf("%d points exceed %d days x %d points per route", len(req.Points), days, w.opts.MaxPointsPerRoute),
		}
	}

	buckets := DistributePoints(req.Points, days, req.StartLocation)

	inputs := make([]dayInput, days)
	for d, date := range dates {
		inputs[d] = dayInput{
			points:    buckets[d],
			start:     w.opts.WorkdayStart.On(date),
			anchor:    req.StartLocation,
			profile:   req.Profile,
			weights:   req.Weights,
			routeType: domain.RouteWeeklyDay,
		}
	}

	results := make([]*DayResult, days)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(days, 4)))
	for d := range inputs {
		g.Go(func() error {
			res, err := w.pipe.run(gctx, inputs[d])
			if err != nil {
				return fmt.Errorf("day %s: %w", dates[d].Format("2006-01-02"), err)
			}
			results[d] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	plan := &domain.WeeklyPlan{
		ID:      uuid.NewString(),
		Days:    make([]domain.DayPlan, days),
		Profile: string(cmp.Or(req.Profile, w.opts.Profile)),
	}

	for d := range results {
		if d > 0 && req.StartLocation == nil {
			tr, smoothed, err := w.smooth(ctx, results[d-1].Route, inputs[d], results[d])
			if err != nil {
				return nil, err
			}
			plan.Days[d].Transition = tr
			results[d] = smoothed
		}

		res := results[d]
		plan.Days[d].Date = dates[d]
		plan.Days[d].Route = res.Route
		plan.Days[d].Schedule = res.Schedule
		plan.Days[d].Report = res.Report

		if n := len(res.Schedule.Violations); n > 0 {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("%s: %d business-hours violations", dates[d].Format("2006-01-02"), n))
		}
		if res.Route.Metadata.FallbackPairs > 0 {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("%s: %d travel pairs estimated locally", dates[d].Format("2006-01-02"), res.Route.Metadata.FallbackPairs))
		}
	}

	w.log.Info().
		Str("plan_id", plan.ID).
		Int("days", days).
		Int("stops", plan.TotalStops()).
		Float64("distance_m", plan.TotalDistanceMeters()).
		Msg("weekly plan built")
	return plan, nil
}

// smooth starts a day near where the previous day ended. The day is
// re-optimized from the previous end only when its first stop is not
// already the nearest one.
func (w *WeeklyPlanner) smooth(ctx context.Context, prev *domain.OptimizedRoute, in dayInput, cur *DayResult) (*domain.DayTransition, *DayResult, error) {
	last, ok := prev.Last()
	if !ok || cur.Route.Len() == 0 {
		return nil, cur, nil
	}

	locs := make([]domain.Location, len(in.points))
	for i, p := range in.points {
		locs[i] = p.Location()
	}
	nearest := geoindex.New(locs).Nearest(last.Coordinates, 1)
	if len(nearest) == 0 {
		return nil, cur, nil
	}

	first := cur.Route.Points[0]
	tr := &domain.DayTransition{
		PreviousEndPointID: last.ID,
		FirstPointID:       first.ID,
		NearestPointID:     nearest[0].Location.ID,
		DistanceMeters:     domain.HaversineMeters(last.Coordinates, first.Coordinates),
	}
	if tr.NearestPointID == first.ID {
		return tr, cur, nil
	}

	anchored := in
	anchored.anchor = &domain.Location{ID: "previous-end:" + last.ID, Coordinates: last.Coordinates}
	res, err := w.pipe.run(ctx, anchored)
	if err != nil {
		return nil, nil, fmt.Errorf("smooth transition after %s: %w", last.ID, err)
	}

	tr.Reoptimized = true
	tr.FirstPointID = res.Route.Points[0].ID
	tr.DistanceMeters = domain.HaversineMeters(last.Coordinates, res.Route.Points[0].Coordinates)
	return tr, res, nil
}

// DistributePoints splits points over days. Priority-1 points go round
// robin; the rest go, in priority then id order, to the day whose last
// assigned point is nearest. Day sizes stay within floor(n/days) and one
// more for the first n%days days.
func DistributePoints(points []domain.RoutePoint, days int, start *domain.Location) [][]domain.RoutePoint {
	out := make([][]domain.RoutePoint, days)
	if days < 1 {
		return out
	}

	base, extra := len(points)/days, len(points)%days
	capOf := func(d int) int {
		if d < extra {
			return base + 1
		}
		return base
	}

	ordered := slices.Clone(points)
	slices.SortStableFunc(ordered, func(a, b domain.RoutePoint) int {
		return cmp.Or(cmp.Compare(a.Priority, b.Priority), cmp.Compare(a.ID, b.ID))
	})

	next := 0
	var rest []domain.RoutePoint
	for _, p := range ordered {
		if p.Priority != 1 {
			rest = append(rest, p)
			continue
		}
		out[next%days] = append(out[next%days], p)
		next++
	}

	for _, p := range rest {
		best, bestDist := -1, math.Inf(1)
		for d := range days {
			if len(out[d]) >= capOf(d) {
				continue
			}
			dist := 0.0
			switch {
			case len(out[d]) > 0:
				dist = domain.HaversineMeters(out[d][len(out[d])-1].Coordinates, p.Coordinates)
			case start != nil:
				dist = domain.HaversineMeters(start.Coordinates, p.Coordinates)
			}
			if dist < bestDist {
				best, bestDist = d, dist
			}
		}
		if best < 0 {
			// Unreachable while caps sum to len(points).
			best = len(out) - 1
		}
		out[best] = append(out[best], p)
	}
	return out
}
