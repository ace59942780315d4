package ports

import (
	"context"
	"visit-route-engine/internal/domain"
)

// In-process read-through cache for distance lookups. Safe for concurrent use.
type DistanceCache interface {
	Get(key domain.PairKey) (domain.DistanceEntry, bool)
	// Store the entry unless one is already present; return the stored entry.
	PutIfAbsent(key domain.PairKey, entry domain.DistanceEntry) domain.DistanceEntry
}

// Persistent tier shared across runs or service instances.
// Keys are normalized coordinate keys (domain.Coordinates.Key).
type DistanceStore interface {
	// Fetch cached results for one origin and many destinations.
	GetMany(ctx context.Context, origin string, destinations []string, bucket int64) (map[string]domain.DistanceEntry, error)
	// Store many results for a single origin.
	PutMany(ctx context.Context, origin string, bucket int64, results map[string]domain.DistanceEntry) error
}
