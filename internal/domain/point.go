package domain

import (
	"slices"
	"time"
)

// VisitType drives the default business hours of a target.
type VisitType string

const (
	VisitGovernment  VisitType = "government"
	VisitCompany     VisitType = "company"
	VisitCooperative VisitType = "cooperative"
	VisitOther       VisitType = "other"
)

// Requirement is a data-collection category gathered during a visit.
type Requirement string

// TimeWindow is a caller-declared visiting window for one point.
type TimeWindow struct {
	Open  Clock
	Close Clock
}

// RoutePoint describes one visit target. Priority 1 must be visited first,
// all else equal.
type RoutePoint struct {
	ID                string
	Name              string
	Coordinates       Coordinates
	Municipality      string
	Priority          int
	EstimatedDuration time.Duration
	TimeWindow        *TimeWindow
	VisitType         VisitType
	Requirements      []Requirement
}

// Location returns the routing location of the point.
func (p RoutePoint) Location() Location {
	return Location{ID: p.ID, Coordinates: p.Coordinates}
}

// HasRequirement reports whether r is among the point's requirements.
func (p RoutePoint) HasRequirement(r Requirement) bool {
	return slices.Contains(p.Requirements, r)
}

// ValidatePoints checks a point set before optimization. Every offending point is
// reported; the returned error matches ErrInputInvalid.
func ValidatePoints(points []RoutePoint, maxPriorityTier int) error {
	return ValidateDay(points, nil, maxPriorityTier)
}

// ValidateDay checks points as ValidatePoints does, plus the optional start
// location: its coordinate must be valid and its id must not name a point.
func ValidateDay(points []RoutePoint, start *Location, maxPriorityTier int) error {
	var errs []error
	seen := make(map[string]struct{}, len(points))

	for i, p := range points {
		if p.ID == "" {
			errs = append(errs, InputInvalid("", "point at index %d has empty id", i))
			continue
		}
		if _, dup := seen[p.ID]; dup {
			errs = append(errs, InputInvalid(p.ID, "duplicate point id"))
		}
		seen[p.ID] = struct{}{}

		if !p.Coordinates.Valid() {
			errs = append(errs, InputInvalid(p.ID, "malformed coordinate (%v, %v)", p.Coordinates.Lat, p.Coordinates.Lng))
		}
		if p.EstimatedDuration <= 0 {
			errs = append(errs, InputInvalid(p.ID, "estimated duration must be positive, got %s", p.EstimatedDuration))
		}
		if p.Priority < 1 || p.Priority > maxPriorityTier {
			errs = append(errs, InputInvalid(p.ID, "unknown priority tier %d (allowed 1..%d)", p.Priority, maxPriorityTier))
		}
		if w := p.TimeWindow; w != nil && w.Close <= w.Open {
			errs = append(errs, InputInvalid(p.ID, "time window closes (%s) before it opens (%s)", w.Close, w.Open))
		}
	}

	if start != nil {
		if !start.Coordinates.Valid() {
			errs = append(errs, InputInvalid(start.ID, "malformed start coordinate (%v, %v)", start.Coordinates.Lat, start.Coordinates.Lng))
		}
		if _, dup := seen[start.ID]; dup {
			errs = append(errs, InputInvalid(start.ID, "start location id collides with a point id"))
		}
	}

	return joinErrors(errs)
}
