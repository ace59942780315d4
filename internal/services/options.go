package services

import (
	"fmt"
	"time"
	"visit-route-engine/internal/domain"
)

// PenaltyConfig holds the empirically chosen penalty constants. They are
// configuration, not contracts: only their ordering matters (late costs more
// than early, verified more than estimated).
type PenaltyConfig struct {
	// Objective units per priority-penalty point.
	PriorityUnit float64
	// Cost per minute of arriving before opening.
	EarlyPerMinute float64
	// Cost per minute of service running past close minus the safety margin.
	LatePerMinute float64
	// Flat cost of visiting a target that is closed on the route date.
	ClosedDay           float64
	VerifiedMultiplier  float64
	EstimatedMultiplier float64
}

// Options configures the engine. Zero values are replaced by DefaultOptions.
type Options struct {
	WorkdayStart        domain.Clock
	WorkdayEnd          domain.Clock
	LunchDuration       time.Duration
	LunchWindowStart    domain.Clock
	LunchWindowEnd      domain.Clock
	TravelBuffer        time.Duration
	ClosingMargin       time.Duration
	MaxCompressionRatio float64
	MaxPointsPerRoute   int
	ExactThreshold      int
	PopulationSize      int
	Generations         int
	MutationRate        float64
	SearchBudget        time.Duration
	TwoOptPasses        int
	Seed                int64
	Profile             Profile
	MaxPriorityTier     int
	Penalties           PenaltyConfig
}

func DefaultOptions() Options {
	return Options{
		WorkdayStart:        domain.MustClock("08:00"),
		WorkdayEnd:          domain.MustClock("18:00"),
		LunchDuration:       60 * time.Minute,
		LunchWindowStart:    domain.MustClock("12:00"),
		LunchWindowEnd:      domain.MustClock("14:00"),
		TravelBuffer:        10 * time.Minute,
		ClosingMargin:       15 * time.Minute,
		MaxCompressionRatio: 0.15,
		MaxPointsPerRoute:   12,
		ExactThreshold:      8,
		PopulationSize:      60,
		Generations:         250,
		MutationRate:        0.05,
		SearchBudget:        5 * time.Second,
		TwoOptPasses:        3,
		Seed:                42,
		Profile:             ProfileBalanced,
		MaxPriorityTier:     5,
		Penalties: PenaltyConfig{
			PriorityUnit:        10,
			EarlyPerMinute:      1,
			LatePerMinute:       3,
			ClosedDay:           480,
			VerifiedMultiplier:  2,
			EstimatedMultiplier: 1,
		},
	}
}

// Validate rejects option sets the engine cannot run with.
func (o Options) Validate() error {
	switch {
	case o.WorkdayEnd <= o.WorkdayStart:
		return fmt.Errorf("options: workday end %s must be after start %s", o.WorkdayEnd, o.WorkdayStart)
	case o.LunchWindowEnd < o.LunchWindowStart:
		return fmt.Errorf("options: lunch window end %s before start %s", o.LunchWindowEnd, o.LunchWindowStart)
	case o.LunchDuration < 0 || o.TravelBuffer < 0 || o.ClosingMargin < 0:
		return fmt.Errorf("options: durations must not be negative")
	case o.MaxCompressionRatio < 0 || o.MaxCompressionRatio >= 1:
		return fmt.Errorf("options: max compression ratio must be in [0,1), got %v", o.MaxCompressionRatio)
	case o.MaxPointsPerRoute < 1:
		return fmt.Errorf("options: max points per route must be positive")
	case o.ExactThreshold < 1:
		return fmt.Errorf("options: exact threshold must be positive")
	case o.PopulationSize < 4:
		return fmt.Errorf("options: population size must be at least 4, got %d", o.PopulationSize)
	case o.Generations < 1:
		return fmt.Errorf("options: generation budget must be positive")
	case o.MutationRate < 0 || o.MutationRate > 1:
		return fmt.Errorf("options: mutation rate must be in [0,1], got %v", o.MutationRate)
	case o.MaxPriorityTier < 1:
		return fmt.Errorf("options: max priority tier must be positive")
	case o.Penalties.LatePerMinute < o.Penalties.EarlyPerMinute:
		return fmt.Errorf("options: closing overshoot must cost at least as much as early arrival")
	case o.Penalties.VerifiedMultiplier < o.Penalties.EstimatedMultiplier:
		return fmt.Errorf("options: verified-hours multiplier must not be below the estimated one")
	}
	if _, err := o.Profile.Weights(); err != nil {
		return fmt.Errorf("options: %w", err)
	}
	return nil
}
