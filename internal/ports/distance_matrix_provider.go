package ports

import (
	"context"
	"time"
	"visit-route-engine/internal/domain"
)

// Per-call ceiling declared by a batched provider.
type MatrixLimits struct {
	MaxOrigins      int
	MaxDestinations int
}

// Optional extension of DistanceProvider that supports batched lookups.
type DistanceMatrixProvider interface {
	DistanceProvider
	// Declare the largest origins×destinations block accepted per call.
	MatrixLimits() MatrixLimits
	// Return entries keyed origin id -> destination id. Pairs the provider
	// could not answer are absent and reported through an error matching
	// domain.ErrProviderUnavailable; the returned entries stay usable.
	LookupMatrix(
		ctx context.Context,
		origins []domain.Location,
		destinations []domain.Location,
		departAt time.Time,
	) (map[string]map[string]domain.DistanceEntry, error)
}
