package ports

import (
	"context"
	"time"
	"visit-route-engine/internal/domain"
)

// Port: a boundary for retrieving visit targets from the persistence layer.
type PointRepository interface {
	// Retrieve the points eligible for a visit in a municipality on date.
	// An empty municipality matches every municipality.
	ListEligiblePoints(ctx context.Context, municipality string, date time.Time) ([]domain.RoutePoint, error)
}
