package services

import (
	"context"
	"fmt"
	"math/rand"
	"time"
	"visit-route-engine/internal/domain"
	"visit-route-engine/internal/platform/obs"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OptimizeInput is everything one single-day optimization needs. Matrix must
// cover every point and the start location, if any.
type OptimizeInput struct {
	Points        []domain.RoutePoint
	Hours         map[string]domain.BusinessHours
	Matrix        *domain.DistanceMatrix
	StartTime     time.Time
	StartLocation *domain.Location
	Profile       Profile
	// Weights overrides the profile weights when set.
	Weights   *Weights
	RouteType domain.RouteType
}

// Optimizer orders the points of one working day. It holds no per-call
// state and is safe for concurrent use.
type Optimizer struct {
	opts   Options
	scorer *EfficiencyScorer
	log    zerolog.Logger
}

func NewOptimizer(opts Options, scorer *EfficiencyScorer) (*Optimizer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if scorer == nil {
		scorer = NewEfficiencyScorer()
	}
	return &Optimizer{
		opts:   opts,
		scorer: scorer,
		log:    obs.Component("optimizer"),
	}, nil
}

// Optimize orders in.Points to minimize the weighted objective
//
//	w1*distance_km + w2*time_min + w3*priority_penalty + w4*hours_penalty
//
// Small sets are solved exactly by branch and bound; larger ones by a
// seeded genetic search followed by 2-opt. The result is a new route.
func (o *Optimizer) Optimize(ctx context.Context, in OptimizeInput) (_ *domain.OptimizedRoute, err error) {
	defer obs.Time(ctx, "optimizer.Optimize")(&err)
	started := time.Now()

	if err := domain.ValidateDay(in.Points, in.StartLocation, o.opts.MaxPriorityTier); err != nil {
		return nil, err
	}
	if len(in.Points) > o.opts.MaxPointsPerRoute {
		return nil, &domain.EngineError{
			Code:    domain.CodeCapacityExceeded,
			Stage:   domain.StageOptimize,
			Message: fmt.Sprintf("%d points exceed the maximum of %d per route", len(in.Points), o.opts.MaxPointsPerRoute),
		}
	}

	profile := in.Profile
	if profile == "" {
		profile = o.opts.Profile
	}
	weights, err := o.resolveWeights(profile, in.Weights)
	if err != nil {
		return nil, err
	}

	routeType := in.RouteType
	if routeType == "" {
		routeType = domain.RouteSingleDay
	}

	meta := domain.RouteMetadata{Profile: string(profile), Seed: o.opts.Seed}
	if in.Matrix != nil {
		meta.Degradations = append(meta.Degradations, in.Matrix.Degradations...)
		meta.FallbackPairs = in.Matrix.FallbackPairs()
	}

	n := len(in.Points)
	if n == 0 {
		meta.Algorithm = domain.AlgorithmEmpty
		return o.finish(in, routeType, nil, nil, 0, meta, started), nil
	}
	if in.Matrix == nil {
		return nil, &domain.EngineError{Code: domain.CodeInputInvalid, Stage: domain.StageOptimize, Message: "travel matrix is required"}
	}

	ev, err := newEvaluator(in.Points, in.Hours, in.Matrix, in.StartTime, in.StartLocation, weights, o.opts)
	if err != nil {
		return nil, &domain.EngineError{Code: domain.CodeInputInvalid, Stage: domain.StageOptimize, Cause: err}
	}

	searchCtx := ctx
	if o.opts.SearchBudget > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, o.opts.SearchBudget)
		defer cancel()
	}

	var (
		order []int
		obj   float64
	)
	switch {
	case n == 1:
		meta.Algorithm = domain.AlgorithmSingle
		order = []int{0}
		obj = ev.objective(order)

	case n <= o.opts.ExactThreshold:
		meta.Algorithm = domain.AlgorithmExact
		var complete bool
		order, obj, complete = ev.exactSearch(searchCtx, ev.priorityOrder())
		if !complete {
			meta.Degradations = append(meta.Degradations, domain.Degradation{
				Kind:   domain.DegradationSearchTruncated,
				Detail: "exact search stopped before exhausting permutations",
			})
		}

	default:
		meta.Algorithm = domain.AlgorithmGenetic
		seeds := [][]int{
			ev.priorityOrder(),
			ev.nearestNeighborOrder(true),
			ev.nearestNeighborOrder(false),
		}
		rng := rand.New(rand.NewSource(o.opts.Seed))
		res := ev.geneticSearch(searchCtx, seeds, geneticConfig{
			population:   o.opts.PopulationSize,
			generations:  o.opts.Generations,
			mutationRate: o.opts.MutationRate,
		}, rng)
		order, obj = ev.twoOpt(searchCtx, res.best.order, res.best.obj, o.opts.TwoOptPasses)
		meta.Generations = res.generations
		if res.truncated {
			meta.Degradations = append(meta.Degradations, domain.Degradation{
				Kind:   domain.DegradationSearchTruncated,
				Detail: fmt.Sprintf("genetic search stopped after %d of %d generations", res.generations, o.opts.Generations),
			})
		}
	}

	if !isPermutation(order, n) {
		o.log.Warn().Int("points", n).Msg("search returned a degenerate order; using identity")
		meta.Algorithm = domain.AlgorithmIdentity
		order = identity(n)
		obj = ev.objective(order)
	}
	meta.Evaluations = ev.evals

	return o.finish(in, routeType, ev, order, obj, meta, started), nil
}

func (o *Optimizer) resolveWeights(profile Profile, override *Weights) (Weights, error) {
	if override != nil {
		if err := override.Validate(); err != nil {
			return Weights{}, &domain.EngineError{Code: domain.CodeInputInvalid, Stage: domain.StageOptimize, Cause: err}
		}
		return *override, nil
	}
	w, err := profile.Weights()
	if err != nil {
		return Weights{}, &domain.EngineError{Code: domain.CodeInputInvalid, Stage: domain.StageOptimize, Cause: err}
	}
	return w, nil
}

// finish materializes the chosen order into an immutable route.
func (o *Optimizer) finish(
	in OptimizeInput,
	routeType domain.RouteType,
	ev *evaluator,
	order []int,
	obj float64,
	meta domain.RouteMetadata,
	started time.Time,
) *domain.OptimizedRoute {
	route := &domain.OptimizedRoute{
		ID:            uuid.NewString(),
		RouteType:     routeType,
		StartTime:     in.StartTime,
		StartLocation: in.StartLocation,
		Points:        make([]domain.RoutePoint, 0, len(order)),
		Legs:          make([]domain.Leg, 0, len(order)),
		Objective:     obj,
	}

	var prevID string
	if in.StartLocation != nil {
		prevID = in.StartLocation.ID
	}
	buffers := time.Duration(0)
	for _, idx := range order {
		p := in.Points[idx]
		leg := domain.Leg{ToID: p.ID}
		if prevID != "" {
			entry, _ := in.Matrix.Between(prevID, p.ID)
			leg.FromID = prevID
			leg.DistanceMeters = entry.DistanceMeters
			leg.TravelTime = entry.TravelTime()
			leg.Source = entry.Source
			buffers += o.opts.TravelBuffer
		}

		route.Points = append(route.Points, p)
		route.Legs = append(route.Legs, leg)
		route.TotalDistanceMeters += leg.DistanceMeters
		route.TotalDrivingTime += leg.TravelTime
		route.TotalServiceTime += p.EstimatedDuration
		prevID = p.ID
	}
	route.TotalDuration = route.TotalDrivingTime + route.TotalServiceTime + buffers

	meta.Elapsed = time.Since(started)
	route.Metadata = meta
	route.OptimizationScore = o.scorer.Score(route).Score

	obs.OptimizerRuns.WithLabelValues(string(meta.Algorithm)).Inc()
	o.log.Info().
		Str("route_id", route.ID).
		Str("algorithm", string(meta.Algorithm)).
		Str("profile", meta.Profile).
		Int("points", len(order)).
		Float64("objective", obj).
		Float64("score", route.OptimizationScore).
		Int("fallback_pairs", meta.FallbackPairs).
		Dur("elapsed", meta.Elapsed).
		Msg("route optimized")

	return route
}

func isPermutation(order []int, n int) bool {
	if len(order) != n {
		return false
	}
	seen := make([]bool, n)
	for _, v := range order {
		if v < 0 || v >= n || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
