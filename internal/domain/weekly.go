package domain

import "time"

// DayTransition describes how one day begins relative to the previous day's end.
type DayTransition struct {
	PreviousEndPointID string
	FirstPointID       string
	NearestPointID     string
	DistanceMeters     float64
	Reoptimized        bool
}

// DayPlan is one working day of a weekly plan.
type DayPlan struct {
	Date       time.Time
	Route      *OptimizedRoute
	Schedule   *Schedule
	Report     *EfficiencyReport
	Transition *DayTransition
}

// WeeklyPlan is an ordered list of day routes.
type WeeklyPlan struct {
	ID       string
	Days     []DayPlan
	Profile  string
	Warnings []string
}

// TotalDistanceMeters sums all day routes.
func (w *WeeklyPlan) TotalDistanceMeters() float64 {
	total := 0.0
	for _, d := range w.Days {
		if d.Route != nil {
			total += d.Route.TotalDistanceMeters
		}
	}
	return total
}

// TotalStops counts stops across the week.
func (w *WeeklyPlan) TotalStops() int {
	n := 0
	for _, d := range w.Days {
		if d.Route != nil {
			n += d.Route.Len()
		}
	}
	return n
}
