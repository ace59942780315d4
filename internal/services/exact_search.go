package services

import "context"

// exactSearch finds the minimum-objective order by depth-first branch and
// bound. Children are expanded in seed (priority) order, so the first
// complete order found is the seed itself and ties resolve towards it.
// The search stops early on context cancellation, returning the incumbent.
func (e *evaluator) exactSearch(ctx context.Context, seed []int) (order []int, obj float64, complete bool) {
	n := len(seed)
	best := append([]int(nil), seed...)
	bestObj := e.objective(seed)

	used := make([]bool, n)
	cur := make([]int, 0, n)
	nodes := 0
	complete = true

	var dfs func(t tour)
	dfs = func(t tour) {
		if !complete {
			return
		}
		nodes++
		if nodes%4096 == 0 && ctx.Err() != nil {
			complete = false
			return
		}

		if len(cur) == n {
			e.evals++
			o := e.objectiveOf(t)
			if e.better(o, cur, bestObj, best) {
				copy(best, cur)
				bestObj = o
			}
			return
		}

		for _, idx := range seed {
			if used[idx] {
				continue
			}
			next := e.extend(t, idx)
			// Partial objectives never decrease, so a prefix already worse
			// than the incumbent cannot lead to a better or tied order.
			if e.objectiveOf(next) > bestObj+tolerance(bestObj) {
				continue
			}
			used[idx] = true
			cur = append(cur, idx)
			dfs(next)
			cur = cur[:len(cur)-1]
			used[idx] = false
		}
	}
	dfs(e.empty())

	return best, bestObj, complete
}
