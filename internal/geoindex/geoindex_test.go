package geoindex

import (
	"testing"
	"visit-route-engine/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loc(id string, lat, lng float64) domain.Location {
	return domain.Location{ID: id, Coordinates: domain.Coordinates{Lat: lat, Lng: lng}}
}

func TestNearestOrdersByGreatCircleDistance(t *testing.T) {
	ix := New([]domain.Location{
		loc("far", 4.80, -74.20),
		loc("near", 4.651, -74.061),
		loc("mid", 4.70, -74.10),
	})
	require.Equal(t, 3, ix.Len())

	got := ix.Nearest(domain.Coordinates{Lat: 4.65, Lng: -74.06}, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "near", got[0].Location.ID)
	assert.Equal(t, "mid", got[1].Location.ID)
	assert.Less(t, got[0].DistanceMeters, got[1].DistanceMeters)
}

func TestNearestTieBreaksByID(t *testing.T) {
	ix := New([]domain.Location{
		loc("b", 1, 1),
		loc("a", 1, 1),
	})

	got := ix.Nearest(domain.Coordinates{Lat: 1, Lng: 1}, 1)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Location.ID)
}

func TestNearestOnEmptyIndex(t *testing.T) {
	ix := New(nil)
	assert.Empty(t, ix.Nearest(domain.Coordinates{}, 3))
}
