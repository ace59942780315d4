package services

import (
	"context"
	"math/rand"
	"slices"
)

type individual struct {
	order []int
	obj   float64
}

type geneticConfig struct {
	population   int
	generations  int
	mutationRate float64
}

type geneticResult struct {
	best        individual
	generations int
	truncated   bool
}

// geneticSearch refines seed orders with an elitist genetic search: the best
// half survives each generation, the rest is bred by ordered crossover of
// two survivors followed by low-probability swap mutation. The generation
// count and ctx (which carries the wall-clock budget) bound the run; on
// expiry the best order so far wins.
func (e *evaluator) geneticSearch(ctx context.Context, seeds [][]int, cfg geneticConfig, rng *rand.Rand) geneticResult {
	n := len(e.points)

	pop := make([]individual, 0, cfg.population)
	seen := make(map[string]struct{}, cfg.population)
	add := func(order []int) {
		key := orderKey(order)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		pop = append(pop, individual{order: order, obj: e.objective(order)})
	}
	for _, s := range seeds {
		if len(pop) < cfg.population {
			add(slices.Clone(s))
		}
	}
	// Random fill; bounded attempts keep tiny instances from spinning.
	for attempts := 0; len(pop) < cfg.population && attempts < cfg.population*4; attempts++ {
		add(rng.Perm(n))
	}

	e.sortPopulation(pop)
	best := cloneIndividual(pop[0])

	res := geneticResult{}
	elite := min(len(pop), max(2, len(pop)/2))

	for gen := 0; gen < cfg.generations; gen++ {
		if ctx.Err() != nil {
			res.truncated = true
			break
		}

		next := make([]individual, 0, len(pop))
		next = append(next, pop[:elite]...)
		for len(next) < len(pop) {
			a := pop[rng.Intn(elite)]
			b := pop[rng.Intn(elite)]
			child := orderedCrossover(a.order, b.order, rng)
			swapMutate(child, cfg.mutationRate, rng)
			next = append(next, individual{order: child, obj: e.objective(child)})
		}

		e.sortPopulation(next)
		pop = next
		res.generations = gen + 1

		if e.better(pop[0].obj, pop[0].order, best.obj, best.order) {
			best = cloneIndividual(pop[0])
		}
	}

	res.best = best
	return res
}

func (e *evaluator) sortPopulation(pop []individual) {
	slices.SortStableFunc(pop, func(a, b individual) int {
		switch {
		case e.better(a.obj, a.order, b.obj, b.order):
			return -1
		case e.better(b.obj, b.order, a.obj, a.order):
			return 1
		default:
			return 0
		}
	})
}

// orderedCrossover copies a random slice of a and fills the remaining
// positions with b's genes in b's relative order, starting after the slice.
func orderedCrossover(a, b []int, rng *rand.Rand) []int {
	n := len(a)
	child := make([]int, n)
	taken := make([]bool, n)

	i, j := rng.Intn(n), rng.Intn(n)
	if i > j {
		i, j = j, i
	}
	for k := i; k <= j; k++ {
		child[k] = a[k]
		taken[a[k]] = true
	}

	pos := (j + 1) % n
	for k := range n {
		gene := b[(j+1+k)%n]
		if taken[gene] {
			continue
		}
		child[pos] = gene
		taken[gene] = true
		pos = (pos + 1) % n
	}
	return child
}

func swapMutate(order []int, rate float64, rng *rand.Rand) {
	for k := range order {
		if rng.Float64() < rate {
			m := rng.Intn(len(order))
			order[k], order[m] = order[m], order[k]
		}
	}
}

// twoOpt applies segment reversals while they improve the objective.
func (e *evaluator) twoOpt(ctx context.Context, order []int, obj float64, passes int) ([]int, float64) {
	best := slices.Clone(order)
	n := len(best)
	for pass := 0; pass < passes; pass++ {
		improved := false
		for i := 0; i < n-1; i++ {
			if ctx.Err() != nil {
				return best, obj
			}
			for k := i + 1; k < n; k++ {
				cand := twoOptSwap(best, i, k)
				if o := e.objective(cand); e.better(o, cand, obj, best) {
					best, obj = cand, o
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return best, obj
}

func twoOptSwap(ord []int, i, k int) []int {
	out := make([]int, len(ord))
	copy(out, ord[:i])
	pos := i
	for j := k; j >= i; j-- {
		out[pos] = ord[j]
		pos++
	}
	copy(out[pos:], ord[k+1:])
	return out
}

func cloneIndividual(in individual) individual {
	return individual{order: slices.Clone(in.order), obj: in.obj}
}

func orderKey(order []int) string {
	b := make([]byte, 0, len(order)*3)
	for _, v := range order {
		b = append(b, byte(v>>8), byte(v), ',')
	}
	return string(b)
}
