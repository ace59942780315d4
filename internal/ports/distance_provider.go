package ports

import (
	"context"
	"time"
	"visit-route-engine/internal/domain"
)

// Contract for retrieving travel distance and duration between locations.
// Implementations report unreachable pairs with an error matching
// domain.ErrProviderUnavailable; callers substitute a local estimate.
type DistanceProvider interface {
	// Return travel distance and estimated duration between two locations,
	// traffic-adjusted for departAt when the provider supports it.
	Lookup(ctx context.Context, origin, destination domain.Location, departAt time.Time) (domain.DistanceEntry, error)
}
