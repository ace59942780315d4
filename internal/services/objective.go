package services

import (
	"fmt"
	"math"
	"time"
	"visit-route-engine/internal/domain"
)

const noStop = -1

// evaluator scores visiting orders over a fixed point set. Orders are
// permutations of point indices; the optional start anchor sits at index n
// of the travel tables.
type evaluator struct {
	points   []domain.RoutePoint
	hours    []domain.BusinessHours
	bounded  []bool
	distM    [][]float64
	travel   [][]float64
	anchor   int
	startMin float64
	buffer   float64
	margin   float64
	maxTier  int
	weights  Weights
	pen      PenaltyConfig
	evals    int
}

// tour is the running state of a partially built order. Every field only
// grows as stops are appended, so a prefix objective is a lower bound for
// every completion.
type tour struct {
	last       int
	stops      int
	clock      float64
	distM      float64
	driveMin   float64
	bufferMin  float64
	serviceMin float64
	prioPen    float64
	hoursPen   float64
	worstPrio  int
}

func newEvaluator(
	points []domain.RoutePoint,
	hours map[string]domain.BusinessHours,
	matrix *domain.DistanceMatrix,
	start time.Time,
	anchor *domain.Location,
	weights Weights,
	opts Options,
) (*evaluator, error) {
	n := len(points)
	size := n
	if anchor != nil {
		size++
	}

	ids := make([]string, size)
	for i, p := range points {
		ids[i] = p.ID
	}
	if anchor != nil {
		ids[n] = anchor.ID
	}

	e := &evaluator{
		points:   points,
		hours:    make([]domain.BusinessHours, n),
		bounded:  make([]bool, n),
		distM:    make([][]float64, size),
		travel:   make([][]float64, size),
		anchor:   noStop,
		startMin: float64(start.Hour()*60+start.Minute()) + float64(start.Second())/60,
		buffer:   opts.TravelBuffer.Minutes(),
		margin:   opts.ClosingMargin.Minutes(),
		maxTier:  opts.MaxPriorityTier,
		weights:  weights,
		pen:      opts.Penalties,
	}
	if anchor != nil {
		e.anchor = n
	}

	for i, p := range points {
		if h, ok := hours[p.ID]; ok {
			e.hours[i] = h
			e.bounded[i] = true
		}
	}

	for i := range size {
		e.distM[i] = make([]float64, size)
		e.travel[i] = make([]float64, size)
		for j := range size {
			if i == j {
				continue
			}
			entry, ok := matrix.Between(ids[i], ids[j])
			if !ok {
				return nil, fmt.Errorf("travel matrix has no entry %q -> %q", ids[i], ids[j])
			}
			e.distM[i][j] = entry.DistanceMeters
			e.travel[i][j] = entry.TravelTime().Minutes()
		}
	}

	return e, nil
}

func (e *evaluator) empty() tour {
	return tour{last: noStop, clock: e.startMin}
}

func (e *evaluator) multiplier(i int) float64 {
	if e.hours[i].Verified() {
		return e.pen.VerifiedMultiplier
	}
	return e.pen.EstimatedMultiplier
}

// extend appends stop next to t.
func (e *evaluator) extend(t tour, next int) tour {
	from := t.last
	if from == noStop {
		from = e.anchor
	}
	if from != noStop {
		t.distM += e.distM[from][next]
		t.driveMin += e.travel[from][next]
		t.bufferMin += e.buffer
		t.clock += e.travel[from][next] + e.buffer
	}

	// A stop placed after any worse-priority stop pays in proportion to its
	// importance and how late it comes.
	p := e.points[next].Priority
	if t.worstPrio > p {
		t.prioPen += float64(e.maxTier+1-p) * float64(t.stops)
	}
	if p > t.worstPrio {
		t.worstPrio = p
	}

	service := e.points[next].EstimatedDuration.Minutes()
	begin := t.clock
	if e.bounded[next] {
		h := e.hours[next]
		mult := e.multiplier(next)
		if h.Closed {
			t.hoursPen += e.pen.ClosedDay * mult
		} else {
			open, closing := float64(h.Open), float64(h.Close)
			if begin < open {
				t.hoursPen += (open - begin) * e.pen.EarlyPerMinute * mult
				begin = open
			}
			if over := begin + service - (closing - e.margin); over > 0 {
				t.hoursPen += over * e.pen.LatePerMinute * mult
			}
		}
	}

	t.clock = begin + service
	t.serviceMin += service
	t.stops++
	t.last = next
	return t
}

func (e *evaluator) objectiveOf(t tour) float64 {
	w := e.weights
	return w.Distance*t.distM/1000 +
		w.Time*(t.driveMin+t.bufferMin+t.serviceMin) +
		w.Priority*t.prioPen*e.pen.PriorityUnit +
		w.BusinessHours*t.hoursPen
}

func (e *evaluator) walk(order []int) tour {
	t := e.empty()
	for _, idx := range order {
		t = e.extend(t, idx)
	}
	return t
}

// objective evaluates a complete order.
func (e *evaluator) objective(order []int) float64 {
	e.evals++
	return e.objectiveOf(e.walk(order))
}

// better reports whether candidate beats incumbent: lower objective, or an
// equal objective that visits better priorities earlier.
func (e *evaluator) better(candObj float64, cand []int, bestObj float64, best []int) bool {
	eps := tolerance(bestObj)
	if candObj < bestObj-eps {
		return true
	}
	if candObj > bestObj+eps {
		return false
	}
	return e.prioritySeqLess(cand, best)
}

func (e *evaluator) prioritySeqLess(a, b []int) bool {
	for k := range min(len(a), len(b)) {
		pa, pb := e.points[a[k]].Priority, e.points[b[k]].Priority
		if pa != pb {
			return pa < pb
		}
	}
	return false
}

func tolerance(x float64) float64 {
	return 1e-9 * math.Max(1, math.Abs(x))
}
