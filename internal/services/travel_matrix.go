package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
	"visit-route-engine/internal/domain"
	"visit-route-engine/internal/platform/obs"
	"visit-route-engine/internal/ports"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// TravelOptions bounds how the remote provider is used.
type TravelOptions struct {
	// Departure times are truncated to this bucket for cache keys; 0 disables bucketing.
	TimeBucket time.Duration
	// Timeout of one remote call; expiry counts as unavailable.
	CallTimeout        time.Duration
	MaxConcurrentCalls int
	// Remote calls per second; 0 means unlimited.
	RatePerSecond float64
	Burst         int
	// Consecutive failed calls before the breaker opens.
	BreakerFailures    uint32
	BreakerOpenTimeout time.Duration
}

func DefaultTravelOptions() TravelOptions {
	return TravelOptions{
		TimeBucket:         15 * time.Minute,
		CallTimeout:        5 * time.Second,
		MaxConcurrentCalls: 4,
		RatePerSecond:      10,
		Burst:              5,
		BreakerFailures:    5,
		BreakerOpenTimeout: 30 * time.Second,
	}
}

// TravelMatrixService composes the distance sources: in-memory cache,
// persistent store, remote provider, then the local estimator for anything
// still missing. Build never fails; lost fidelity is recorded on the matrix.
type TravelMatrixService struct {
	local   ports.DistanceProvider
	remote  ports.DistanceProvider
	cache   ports.DistanceCache
	store   ports.DistanceStore
	opts    TravelOptions
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	flight  singleflight.Group
	log     zerolog.Logger
}

type TravelOption func(*TravelMatrixService)

func WithRemote(p ports.DistanceProvider) TravelOption {
	return func(s *TravelMatrixService) { s.remote = p }
}

func WithCache(c ports.DistanceCache) TravelOption {
	return func(s *TravelMatrixService) { s.cache = c }
}

func WithStore(st ports.DistanceStore) TravelOption {
	return func(s *TravelMatrixService) { s.store = st }
}

func NewTravelMatrixService(local ports.DistanceProvider, opts TravelOptions, options ...TravelOption) *TravelMatrixService {
	s := &TravelMatrixService{
		local: local,
		opts:  opts,
		log:   obs.Component("travel_matrix"),
	}
	for _, o := range options {
		o(s)
	}

	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	s.limiter = rate.NewLimiter(limit, max(1, opts.Burst))

	failures := opts.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "distance-provider",
		Timeout: opts.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return s
}

type pair struct{ i, j int }

// Build fills a matrix over locs for a departure at departAt.
func (s *TravelMatrixService) Build(ctx context.Context, locs []domain.Location, departAt time.Time) *domain.DistanceMatrix {
	defer obs.Time(ctx, "travel_matrix.Build")(nil)

	m := domain.NewDistanceMatrix(locs)
	bucket := s.bucket(departAt)

	missing := make(map[pair]struct{})
	for i := range locs {
		m.Entries[i][i] = domain.DistanceEntry{Source: domain.SourceLocal}
		for j := range locs {
			if i != j {
				missing[pair{i, j}] = struct{}{}
			}
		}
	}
	if len(missing) == 0 {
		return m
	}

	s.fromCache(m, bucket, missing)
	s.fromStore(ctx, m, bucket, missing)

	requested := len(missing)
	if s.remote != nil && requested > 0 {
		fetched := s.fromRemote(ctx, m, departAt, bucket, missing)
		s.persist(ctx, m, bucket, fetched)
	}

	if n := len(missing); n > 0 {
		s.fromLocal(ctx, m, departAt, missing)

		kind := domain.DegradationLocalFallback
		detail := "remote provider unavailable for every requested pair"
		switch {
		case s.remote == nil:
			kind = domain.DegradationRemoteDisabled
			detail = "no remote provider configured"
		case n < requested:
			kind = domain.DegradationPartialFallback
			detail = fmt.Sprintf("remote provider unavailable for %d of %d pairs", n, requested)
		}
		m.Degradations = append(m.Degradations, domain.Degradation{Kind: kind, Pairs: n, Detail: detail})
		obs.FallbackPairs.Add(float64(n))
		s.log.Warn().Str("kind", kind).Int("pairs", n).Int("requested", requested).Msg("travel matrix used local estimates")
	}

	return m
}

func (s *TravelMatrixService) bucket(t time.Time) int64 {
	if s.opts.TimeBucket <= 0 || t.IsZero() {
		return 0
	}
	return t.Truncate(s.opts.TimeBucket).Unix()
}

func (s *TravelMatrixService) key(m *domain.DistanceMatrix, p pair, bucket int64) domain.PairKey {
	return domain.PairKey{
		Origin:      m.Locations[p.i].Coordinates.Key(),
		Destination: m.Locations[p.j].Coordinates.Key(),
		Bucket:      bucket,
	}
}

func (s *TravelMatrixService) fromCache(m *domain.DistanceMatrix, bucket int64, missing map[pair]struct{}) {
	if s.cache == nil {
		return
	}
	for p := range missing {
		e, ok := s.cache.Get(s.key(m, p, bucket))
		if !ok {
			obs.CacheLookups.WithLabelValues("memory", "miss").Inc()
			continue
		}
		obs.CacheLookups.WithLabelValues("memory", "hit").Inc()
		e.Source = domain.SourceCache
		m.Entries[p.i][p.j] = e
		delete(missing, p)
	}
}

func (s *TravelMatrixService) fromStore(ctx context.Context, m *domain.DistanceMatrix, bucket int64, missing map[pair]struct{}) {
	if s.store == nil || len(missing) == 0 {
		return
	}

	byOrigin := make(map[int][]int)
	for p := range missing {
		byOrigin[p.i] = append(byOrigin[p.i], p.j)
	}

	for i, dests := range byOrigin {
		origin := m.Locations[i].Coordinates.Key()
		keys := make([]string, len(dests))
		for k, j := range dests {
			keys[k] = m.Locations[j].Coordinates.Key()
		}

		found, err := s.store.GetMany(ctx, origin, keys, bucket)
		if err != nil {
			s.log.Warn().Err(err).Str("origin", m.Locations[i].ID).Msg("distance store lookup failed")
			continue
		}
		for k, j := range dests {
			e, ok := found[keys[k]]
			if !ok {
				obs.CacheLookups.WithLabelValues("store", "miss").Inc()
				continue
			}
			obs.CacheLookups.WithLabelValues("store", "hit").Inc()
			p := pair{i, j}
			if s.cache != nil {
				s.cache.PutIfAbsent(s.key(m, p, bucket), e)
			}
			e.Source = domain.SourceCache
			m.Entries[i][j] = e
			delete(missing, p)
		}
	}
}

// fromRemote resolves missing pairs through the remote provider and returns
// the pairs it answered.
func (s *TravelMatrixService) fromRemote(
	ctx context.Context,
	m *domain.DistanceMatrix,
	departAt time.Time,
	bucket int64,
	missing map[pair]struct{},
) []pair {
	var (
		mu      sync.Mutex
		fetched []pair
	)
	accept := func(p pair, e domain.DistanceEntry) {
		e.Source = domain.SourceRemote
		if s.cache != nil {
			s.cache.PutIfAbsent(s.key(m, p, bucket), e)
		}
		mu.Lock()
		defer mu.Unlock()
		if _, ok := missing[p]; !ok {
			return
		}
		m.Entries[p.i][p.j] = e
		delete(missing, p)
		fetched = append(fetched, p)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.opts.MaxConcurrentCalls))

	if mp, ok := s.remote.(ports.DistanceMatrixProvider); ok {
		for _, block := range s.blocks(missing, mp.MatrixLimits()) {
			g.Go(func() error {
				s.lookupBlock(gctx, mp, m, block, departAt, accept)
				return nil
			})
		}
	} else {
		pending := make([]pair, 0, len(missing))
		for p := range missing {
			pending = append(pending, p)
		}
		for _, p := range pending {
			key := s.key(m, p, bucket)
			g.Go(func() error {
				s.lookupPair(gctx, m, p, key, departAt, accept)
				return nil
			})
		}
	}
	_ = g.Wait()

	return fetched
}

type block struct {
	origins []int
	dests   []int
}

// blocks splits the rows and columns that still have gaps into
// provider-sized origin/destination blocks.
func (s *TravelMatrixService) blocks(missing map[pair]struct{}, lim ports.MatrixLimits) []block {
	originSet := make(map[int]struct{})
	destSet := make(map[int]struct{})
	for p := range missing {
		originSet[p.i] = struct{}{}
		destSet[p.j] = struct{}{}
	}
	origins := sortedKeys(originSet)
	dests := sortedKeys(destSet)

	maxO, maxD := max(1, lim.MaxOrigins), max(1, lim.MaxDestinations)
	var out []block
	for o := 0; o < len(origins); o += maxO {
		for d := 0; d < len(dests); d += maxD {
			out = append(out, block{
				origins: origins[o:min(o+maxO, len(origins))],
				dests:   dests[d:min(d+maxD, len(dests))],
			})
		}
	}
	return out
}

func (s *TravelMatrixService) lookupBlock(
	ctx context.Context,
	mp ports.DistanceMatrixProvider,
	m *domain.DistanceMatrix,
	b block,
	departAt time.Time,
	accept func(pair, domain.DistanceEntry),
) {
	origins := make([]domain.Location, len(b.origins))
	for k, i := range b.origins {
		origins[k] = m.Locations[i]
	}
	dests := make([]domain.Location, len(b.dests))
	for k, j := range b.dests {
		dests[k] = m.Locations[j]
	}

	var partial error
	res, err := s.call(ctx, func(cctx context.Context) (any, error) {
		out, err := mp.LookupMatrix(cctx, origins, dests, departAt)
		if err != nil && len(out) == 0 {
			return nil, err
		}
		partial = err
		return out, nil
	})
	if err != nil {
		s.log.Warn().Err(err).Int("origins", len(origins)).Int("destinations", len(dests)).Msg("distance matrix block unavailable")
		return
	}
	if partial != nil {
		obs.ProviderRequests.WithLabelValues("partial").Inc()
		s.log.Debug().Err(partial).Msg("distance matrix block partially answered")
	}

	rows := res.(map[string]map[string]domain.DistanceEntry)
	for _, i := range b.origins {
		row := rows[m.Locations[i].ID]
		for _, j := range b.dests {
			if i == j {
				continue
			}
			if e, ok := row[m.Locations[j].ID]; ok {
				accept(pair{i, j}, e)
			}
		}
	}
}

// lookupPair resolves one pair; concurrent runs asking for the same key
// share a single remote call.
func (s *TravelMatrixService) lookupPair(
	ctx context.Context,
	m *domain.DistanceMatrix,
	p pair,
	key domain.PairKey,
	departAt time.Time,
	accept func(pair, domain.DistanceEntry),
) {
	v, err, _ := s.flight.Do(key.String(), func() (any, error) {
		return s.call(ctx, func(cctx context.Context) (any, error) {
			return s.remote.Lookup(cctx, m.Locations[p.i], m.Locations[p.j], departAt)
		})
	})
	if err != nil {
		s.log.Debug().Err(err).Str("from", m.Locations[p.i].ID).Str("to", m.Locations[p.j].ID).Msg("distance pair unavailable")
		return
	}
	accept(p, v.(domain.DistanceEntry))
}

// call runs one remote request under the rate limiter, circuit breaker and
// per-call timeout. Every failure is reported as provider unavailability.
func (s *TravelMatrixService) call(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		obs.ProviderRequests.WithLabelValues("unavailable").Inc()
		return nil, domain.ProviderUnavailable("", fmt.Errorf("rate limiter: %w", err))
	}

	res, err := s.breaker.Execute(func() (any, error) {
		cctx := ctx
		if s.opts.CallTimeout > 0 {
			var cancel context.CancelFunc
			cctx, cancel = context.WithTimeout(ctx, s.opts.CallTimeout)
			defer cancel()
		}
		return fn(cctx)
	})
	switch {
	case err == nil:
		obs.ProviderRequests.WithLabelValues("ok").Inc()
		return res, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		obs.ProviderRequests.WithLabelValues("breaker_open").Inc()
	default:
		obs.ProviderRequests.WithLabelValues("unavailable").Inc()
	}
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		err = domain.ProviderUnavailable("", err)
	}
	return nil, err
}

func (s *TravelMatrixService) fromLocal(ctx context.Context, m *domain.DistanceMatrix, departAt time.Time, missing map[pair]struct{}) {
	for p := range missing {
		e, err := s.local.Lookup(ctx, m.Locations[p.i], m.Locations[p.j], departAt)
		if err != nil {
			// Estimators are expected to be total; keep the pair usable regardless.
			s.log.Error().Err(err).Msg("local estimator failed")
		}
		e.Source = domain.SourceLocal
		m.Entries[p.i][p.j] = e
	}
	clear(missing)
}

func (s *TravelMatrixService) persist(ctx context.Context, m *domain.DistanceMatrix, bucket int64, fetched []pair) {
	if s.store == nil || len(fetched) == 0 {
		return
	}
	byOrigin := make(map[int]map[string]domain.DistanceEntry)
	for _, p := range fetched {
		row, ok := byOrigin[p.i]
		if !ok {
			row = make(map[string]domain.DistanceEntry)
			byOrigin[p.i] = row
		}
		row[m.Locations[p.j].Coordinates.Key()] = m.Entries[p.i][p.j]
	}
	for i, row := range byOrigin {
		if err := s.store.PutMany(ctx, m.Locations[i].Coordinates.Key(), bucket, row); err != nil {
			s.log.Warn().Err(err).Str("origin", m.Locations[i].ID).Msg("distance store write failed")
		}
	}
}

func sortedKeys(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
