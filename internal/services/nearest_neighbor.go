package services

import (
	"cmp"
	"math"
	"slices"
)

// priorityOrder returns point indices sorted by priority, keeping input order
// within a tier. It seeds every search.
func (e *evaluator) priorityOrder() []int {
	order := make([]int, len(e.points))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(e.points[a].Priority, e.points[b].Priority)
	})
	return order
}

// nearestNeighborOrder builds an order using a greedy nearest-neighbor walk.
//
// Each step picks the unvisited point with the smallest travel time from the
// current position. With tiered set, all points of a priority tier are
// visited before the next tier starts. The walk begins at the start anchor
// when one exists, otherwise at the first point of the best tier.
// It does not attempt global optimization; it only seeds the search.
func (e *evaluator) nearestNeighborOrder(tiered bool) []int {
	n := len(e.points)
	if n == 0 {
		return nil
	}

	remaining := make(map[int]struct{}, n)
	for i := range n {
		remaining[i] = struct{}{}
	}

	order := make([]int, 0, n)
	current := e.anchor
	if current == noStop {
		current = e.priorityOrder()[0]
		order = append(order, current)
		delete(remaining, current)
	}

	for len(remaining) > 0 {
		tier := math.MaxInt
		if tiered {
			for idx := range remaining {
				tier = min(tier, e.points[idx].Priority)
			}
		}

		best := noStop
		minTravel := math.Inf(1)
		// Select next stop by minimum travel time (greedy step).
		for idx := range remaining {
			if tiered && e.points[idx].Priority != tier {
				continue
			}
			t := e.travel[current][idx]
			// Tie-breaker on id keeps the walk deterministic despite map order.
			if t < minTravel || (t == minTravel && (best == noStop || e.points[idx].ID < e.points[best].ID)) {
				minTravel = t
				best = idx
			}
		}

		order = append(order, best)
		delete(remaining, best)
		current = best
	}

	return order
}
