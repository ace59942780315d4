package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"visit-route-engine/internal/domain"
	"visit-route-engine/internal/platform/obs"
	"visit-route-engine/internal/ports"

	"github.com/rs/zerolog"
)

// DayResult bundles one optimized day with its timeline and report.
type DayResult struct {
	Route    *domain.OptimizedRoute
	Schedule *domain.Schedule
	Report   *domain.EfficiencyReport
	Hours    map[string]domain.BusinessHours
}

// DayRequest describes a single-day planning call. Points may be omitted
// when Municipality is set and a point repository is configured.
type DayRequest struct {
	Points        []domain.RoutePoint
	Municipality  string
	Date          time.Time
	StartTime     time.Time
	StartLocation *domain.Location
	Profile       Profile
	Weights       *Weights
}

// pipeline runs hours, matrix, optimization, scheduling and scoring for one day.
type pipeline struct {
	opts      Options
	matrix    *TravelMatrixService
	hours     *HoursResolver
	optimizer *Optimizer
	schedule  *ScheduleBuilder
	scorer    *EfficiencyScorer
}

type dayInput struct {
	points    []domain.RoutePoint
	start     time.Time
	anchor    *domain.Location
	profile   Profile
	weights   *Weights
	routeType domain.RouteType
}

type prepared struct {
	hours  map[string]domain.BusinessHours
	matrix *domain.DistanceMatrix
}

func (p *pipeline) prepare(ctx context.Context, in dayInput) prepared {
	hours, deg := p.hours.ResolveAll(ctx, in.points, in.start)

	locs := make([]domain.Location, 0, len(in.points)+1)
	for _, pt := range in.points {
		locs = append(locs, pt.Location())
	}
	if in.anchor != nil {
		locs = append(locs, *in.anchor)
	}

	m := p.matrix.Build(ctx, locs, in.start)
	if deg != nil {
		m.Degradations = append(m.Degradations, *deg)
	}
	return prepared{hours: hours, matrix: m}
}

func (p *pipeline) finish(ctx context.Context, in dayInput, pre prepared, profile Profile, weights *Weights) (*DayResult, error) {
	route, err := p.optimizer.Optimize(ctx, OptimizeInput{
		Points:        in.points,
		Hours:         pre.hours,
		Matrix:        pre.matrix,
		StartTime:     in.start,
		StartLocation: in.anchor,
		Profile:       profile,
		Weights:       weights,
		RouteType:     in.routeType,
	})
	if err != nil {
		return nil, err
	}

	sched := p.schedule.Build(route, pre.hours, in.start)
	return &DayResult{
		Route:    route,
		Schedule: sched,
		Report:   p.scorer.ScoreSchedule(route, sched),
		Hours:    pre.hours,
	}, nil
}

func (p *pipeline) run(ctx context.Context, in dayInput) (*DayResult, error) {
	if err := domain.ValidateDay(in.points, in.anchor, p.opts.MaxPriorityTier); err != nil {
		return nil, err
	}
	return p.finish(ctx, in, p.prepare(ctx, in), in.profile, in.weights)
}

// Planner is the entry point of the engine: single days, weeks, and
// profile comparisons.
type Planner struct {
	opts   Options
	repo   ports.PointRepository
	pipe   *pipeline
	weekly *WeeklyPlanner
	log    zerolog.Logger
}

// NewPlanner wires the engine. repo may be nil when callers always supply
// points inline.
func NewPlanner(opts Options, matrix *TravelMatrixService, hours *HoursResolver, repo ports.PointRepository) (*Planner, error) {
	if matrix == nil || hours == nil {
		return nil, errors.New("new planner: travel matrix and hours resolver are required")
	}

	scorer := NewEfficiencyScorer()
	optimizer, err := NewOptimizer(opts, scorer)
	if err != nil {
		return nil, fmt.Errorf("new planner: %w", err)
	}

	pipe := &pipeline{
		opts:      opts,
		matrix:    matrix,
		hours:     hours,
		optimizer: optimizer,
		schedule:  NewScheduleBuilder(opts),
		scorer:    scorer,
	}
	return &Planner{
		opts:   opts,
		repo:   repo,
		pipe:   pipe,
		weekly: NewWeeklyPlanner(opts, pipe),
		log:    obs.Component("planner"),
	}, nil
}

// Options returns the engine options the planner was built with.
func (p *Planner) Options() Options { return p.opts }

// EligiblePoints loads points from the repository.
func (p *Planner) EligiblePoints(ctx context.Context, municipality string, date time.Time) ([]domain.RoutePoint, error) {
	if p.repo == nil {
		return nil, errors.New("eligible points: no point repository configured")
	}
	points, err := p.repo.ListEligiblePoints(ctx, municipality, date)
	if err != nil {
		return nil, fmt.Errorf("eligible points: %w", err)
	}
	return points, nil
}

func (p *Planner) dayInput(ctx context.Context, req DayRequest, routeType domain.RouteType) (dayInput, error) {
	points := req.Points
	if len(points) == 0 && req.Municipality != "" {
		loaded, err := p.EligiblePoints(ctx, req.Municipality, req.Date)
		if err != nil {
			return dayInput{}, err
		}
		points = loaded
	}

	start := req.StartTime
	if start.IsZero() {
		date := req.Date
		if date.IsZero() {
			date = time.Now()
		}
		start = p.opts.WorkdayStart.On(date)
	}

	return dayInput{
		points:    points,
		start:     start,
		anchor:    req.StartLocation,
		profile:   req.Profile,
		weights:   req.Weights,
		routeType: routeType,
	}, nil
}

// OptimizeDay orders, times and scores one working day.
func (p *Planner) OptimizeDay(ctx context.Context, req DayRequest) (_ *DayResult, err error) {
	defer obs.Time(ctx, "planner.OptimizeDay")(&err)

	in, err := p.dayInput(ctx, req, domain.RouteSingleDay)
	if err != nil {
		return nil, err
	}
	return p.pipe.run(ctx, in)
}

// CompareProfiles optimizes the same day once per profile, sharing the
// travel matrix and hours, and returns the alternatives best first.
func (p *Planner) CompareProfiles(ctx context.Context, req DayRequest, profiles []Profile) (_ []*DayResult, err error) {
	defer obs.Time(ctx, "planner.CompareProfiles")(&err)

	if len(profiles) == 0 {
		profiles = AllProfiles
	}
	in, err := p.dayInput(ctx, req, domain.RouteAlternative)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateDay(in.points, in.anchor, p.opts.MaxPriorityTier); err != nil {
		return nil, err
	}

	pre := p.pipe.prepare(ctx, in)
	results := make([]*DayResult, 0, len(profiles))
	byRoute := make(map[*domain.OptimizedRoute]*DayResult, len(profiles))
	routes := make([]*domain.OptimizedRoute, 0, len(profiles))
	for _, prof := range profiles {
		res, err := p.pipe.finish(ctx, in, pre, prof, nil)
		if err != nil {
			return nil, fmt.Errorf("compare profiles: %s: %w", prof, err)
		}
		byRoute[res.Route] = res
		routes = append(routes, res.Route)
	}

	for _, r := range RankRoutes(routes) {
		results = append(results, byRoute[r])
	}
	return results, nil
}

// PlanWeek spreads points over several working days.
func (p *Planner) PlanWeek(ctx context.Context, req WeekRequest) (_ *domain.WeeklyPlan, err error) {
	defer obs.Time(ctx, "planner.PlanWeek")(&err)

	if len(req.Points) == 0 && req.Municipality != "" {
		date := req.StartDate
		if len(req.Dates) > 0 {
			date = req.Dates[0]
		}
		req.Points, err = p.EligiblePoints(ctx, req.Municipality, date)
		if err != nil {
			return nil, err
		}
	}
	return p.weekly.Plan(ctx, req)
}
