package distance

import (
	"context"
	"time"
	"visit-route-engine/internal/domain"
)

// DefaultUrbanSpeedKmh is the assumed average driving speed in town.
const DefaultUrbanSpeedKmh = 30.0

// LocalEstimator answers every lookup from great-circle distance and an
// average speed. It never fails and ignores departure time.
type LocalEstimator struct {
	SpeedKmh float64
}

func NewLocalEstimator(speedKmh float64) *LocalEstimator {
	if speedKmh <= 0 {
		speedKmh = DefaultUrbanSpeedKmh
	}
	return &LocalEstimator{SpeedKmh: speedKmh}
}

func (l *LocalEstimator) Lookup(_ context.Context, origin, destination domain.Location, _ time.Time) (domain.DistanceEntry, error) {
	return l.Estimate(origin.Coordinates, destination.Coordinates), nil
}

// Estimate returns the haversine distance and the time to drive it.
func (l *LocalEstimator) Estimate(a, b domain.Coordinates) domain.DistanceEntry {
	meters := domain.HaversineMeters(a, b)
	return domain.DistanceEntry{
		DistanceMeters:  meters,
		DurationSeconds: meters / (l.SpeedKmh / 3.6),
		Source:          domain.SourceLocal,
	}
}
