package services

import (
	"fmt"
	"math"
)

// Profile selects how the optimizer trades distance, time, priority and hours.
type Profile string

const (
	ProfileDistanceFirst Profile = "distance_first"
	ProfileTimeFirst     Profile = "time_first"
	ProfilePriorityFirst Profile = "priority_first"
	ProfileBalanced      Profile = "balanced"
)

// AllProfiles lists the built-in profiles in comparison order.
var AllProfiles = []Profile{ProfileBalanced, ProfileDistanceFirst, ProfileTimeFirst, ProfilePriorityFirst}

// Weights of the single-day objective; they sum to 1.
type Weights struct {
	Distance      float64
	Time          float64
	Priority      float64
	BusinessHours float64
}

var profileWeights = map[Profile]Weights{
	ProfileDistanceFirst: {Distance: 0.55, Time: 0.20, Priority: 0.15, BusinessHours: 0.10},
	ProfileTimeFirst:     {Distance: 0.20, Time: 0.55, Priority: 0.15, BusinessHours: 0.10},
	ProfilePriorityFirst: {Distance: 0.15, Time: 0.15, Priority: 0.55, BusinessHours: 0.15},
	ProfileBalanced:      {Distance: 0.30, Time: 0.30, Priority: 0.20, BusinessHours: 0.20},
}

// Weights returns the profile's weights.
func (p Profile) Weights() (Weights, error) {
	w, ok := profileWeights[p]
	if !ok {
		return Weights{}, fmt.Errorf("unknown optimization profile %q", p)
	}
	return w, nil
}

// ParseProfile accepts a profile name; empty selects balanced.
func ParseProfile(s string) (Profile, error) {
	if s == "" {
		return ProfileBalanced, nil
	}
	p := Profile(s)
	if _, err := p.Weights(); err != nil {
		return "", err
	}
	return p, nil
}

func (w Weights) sum() float64 {
	return w.Distance + w.Time + w.Priority + w.BusinessHours
}

// Validate requires non-negative weights summing to 1.
func (w Weights) Validate() error {
	if w.Distance < 0 || w.Time < 0 || w.Priority < 0 || w.BusinessHours < 0 {
		return fmt.Errorf("weights must not be negative: %+v", w)
	}
	if math.Abs(w.sum()-1) > 1e-6 {
		return fmt.Errorf("weights must sum to 1, got %.6f", w.sum())
	}
	return nil
}
