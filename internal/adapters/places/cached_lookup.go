package places

import (
	"context"
	"strings"
	"visit-route-engine/internal/domain"
	"visit-route-engine/internal/platform/obs"
	"visit-route-engine/internal/ports"

	"github.com/rs/zerolog"
)

// PlaceKey identifies a place by normalized name and coordinates.
func PlaceKey(name string, coords domain.Coordinates) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " ")) + "@" + coords.Key()
}

// CachedLookup consults a persistent store before the places provider and
// records every provider answer, including not-found.
type CachedLookup struct {
	next  ports.PlacesLookup
	store ports.PlaceHoursStore
	log   zerolog.Logger
}

func NewCachedLookup(next ports.PlacesLookup, store ports.PlaceHoursStore) *CachedLookup {
	return &CachedLookup{next: next, store: store, log: obs.Component("places_cache")}
}

func (c *CachedLookup) LookupHours(ctx context.Context, name string, coords domain.Coordinates) (domain.WeeklyHours, bool, error) {
	key := PlaceKey(name, coords)

	hours, found, ok, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		c.log.Warn().Err(err).Str("place", key).Msg("hours cache read failed")
	case ok:
		obs.CacheLookups.WithLabelValues("places", "hit").Inc()
		return hours, found, nil
	}
	obs.CacheLookups.WithLabelValues("places", "miss").Inc()

	hours, found, err = c.next.LookupHours(ctx, name, coords)
	if err != nil {
		return nil, false, err
	}
	if err := c.store.Put(ctx, key, hours, found); err != nil {
		c.log.Warn().Err(err).Str("place", key).Msg("hours cache write failed")
	}
	return hours, found, nil
}
