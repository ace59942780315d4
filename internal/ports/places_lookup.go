package ports

import (
	"context"
	"visit-route-engine/internal/domain"
)

// External places data used to verify business hours.
type PlacesLookup interface {
	// Return the verified weekly opening pattern of the place best matching
	// name near coords. found is false when the place is unknown or has no
	// published hours.
	LookupHours(ctx context.Context, name string, coords domain.Coordinates) (hours domain.WeeklyHours, found bool, err error)
}

// Persistent cache of places answers keyed by PlaceKey.
type PlaceHoursStore interface {
	// ok is false on a cache miss; found mirrors LookupHours.
	Get(ctx context.Context, placeKey string) (hours domain.WeeklyHours, found, ok bool, err error)
	Put(ctx context.Context, placeKey string, hours domain.WeeklyHours, found bool) error
}
