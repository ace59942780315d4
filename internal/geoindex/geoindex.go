// Package geoindex provides an R-tree backed nearest-location lookup.
package geoindex

import (
	"cmp"
	"slices"
	"visit-route-engine/internal/domain"

	"github.com/dhconnelly/rtreego"
)

const (
	tolerance   = 1e-6
	minChildren = 2
	maxChildren = 8
	dimensions  = 2
	// Candidates fetched from the tree before re-ranking by great-circle
	// distance; the tree measures in degrees.
	candidates = 8
)

// spatialItem wraps a location for R-tree indexing
type spatialItem struct {
	loc  domain.Location
	rect *rtreego.Rect
}

func (si *spatialItem) Bounds() *rtreego.Rect {
	return si.rect
}

// Index is an immutable spatial index over a set of locations.
type Index struct {
	tree *rtreego.Rtree
	size int
}

// Neighbor is a location and its great-circle distance from the query.
type Neighbor struct {
	Location       domain.Location
	DistanceMeters float64
}

func New(locs []domain.Location) *Index {
	ix := &Index{tree: rtreego.NewTree(dimensions, minChildren, maxChildren)}
	for _, l := range locs {
		p := rtreego.Point{l.Coordinates.Lat, l.Coordinates.Lng}
		ix.tree.Insert(&spatialItem{loc: l, rect: p.ToRect(tolerance)})
		ix.size++
	}
	return ix
}

// Len returns the number of indexed locations.
func (ix *Index) Len() int { return ix.size }

// Nearest returns up to k locations closest to c, nearest first. Equal
// distances are ordered by id.
func (ix *Index) Nearest(c domain.Coordinates, k int) []Neighbor {
	if k <= 0 || ix.size == 0 {
		return nil
	}

	q := rtreego.Point{c.Lat, c.Lng}
	found := ix.tree.NearestNeighbors(min(ix.size, max(k, candidates)), q)

	out := make([]Neighbor, 0, len(found))
	for _, s := range found {
		item, ok := s.(*spatialItem)
		if !ok || item == nil {
			continue
		}
		out = append(out, Neighbor{
			Location:       item.loc,
			DistanceMeters: domain.HaversineMeters(c, item.loc.Coordinates),
		})
	}

	slices.SortFunc(out, func(a, b Neighbor) int {
		switch {
		case a.DistanceMeters < b.DistanceMeters:
			return -1
		case a.DistanceMeters > b.DistanceMeters:
			return 1
		}
		return cmp.Compare(a.Location.ID, b.Location.ID)
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}
