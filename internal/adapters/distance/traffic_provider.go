package distance

import (
	"context"
	"errors"
	"fmt"
	"time"
	"visit-route-engine/internal/adapters/httpclient"
	"visit-route-engine/internal/domain"
	"visit-route-engine/internal/platform/obs"
	"visit-route-engine/internal/ports"
)

// Google Distance Matrix accepts at most 25 origins and 25 destinations.
const (
	DefaultMaxOrigins      = 25
	DefaultMaxDestinations = 25
)

// TrafficMatrixProvider implements DistanceMatrixProvider against a
// distance-matrix HTTP API returning traffic-aware durations.
//
// Failures never abort a lookup: whole-call errors and per-element
// statuses other than OK are reported as ErrProviderUnavailable for the
// affected pairs while every answered pair is returned.
//
// The provider is safe for concurrent use.
type TrafficMatrixProvider struct {
	client       *httpclient.Client
	limits       ports.MatrixLimits
	trafficModel string
	now          func() time.Time
}

type TrafficOption func(*TrafficMatrixProvider)

// WithMatrixLimits overrides the per-call origin/destination ceiling.
func WithMatrixLimits(lim ports.MatrixLimits) TrafficOption {
	return func(p *TrafficMatrixProvider) {
		if lim.MaxOrigins > 0 {
			p.limits.MaxOrigins = lim.MaxOrigins
		}
		if lim.MaxDestinations > 0 {
			p.limits.MaxDestinations = lim.MaxDestinations
		}
	}
}

// WithTrafficModel selects best_guess, pessimistic or optimistic.
func WithTrafficModel(model string) TrafficOption {
	return func(p *TrafficMatrixProvider) { p.trafficModel = model }
}

func NewTrafficMatrixProvider(client *httpclient.Client, opts ...TrafficOption) (*TrafficMatrixProvider, error) {
	if client == nil {
		return nil, errors.New("traffic matrix provider: http client is nil")
	}

	p := &TrafficMatrixProvider{
		client:       client,
		limits:       ports.MatrixLimits{MaxOrigins: DefaultMaxOrigins, MaxDestinations: DefaultMaxDestinations},
		trafficModel: "best_guess",
		now:          time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

func (p *TrafficMatrixProvider) MatrixLimits() ports.MatrixLimits { return p.limits }

// Delegate to the batched path.
func (p *TrafficMatrixProvider) Lookup(
	ctx context.Context,
	origin, destination domain.Location,
	departAt time.Time,
) (domain.DistanceEntry, error) {
	rows, err := p.LookupMatrix(ctx, []domain.Location{origin}, []domain.Location{destination}, departAt)
	if e, ok := rows[origin.ID][destination.ID]; ok {
		return e, nil
	}
	if err == nil {
		err = fmt.Errorf("no element for %q -> %q", origin.ID, destination.ID)
	}
	return domain.DistanceEntry{}, domain.ProviderUnavailable(destination.ID, err)
}

// LookupMatrix resolves origins × destinations, splitting the request at
// the provider ceiling.
func (p *TrafficMatrixProvider) LookupMatrix(
	ctx context.Context,
	origins []domain.Location,
	destinations []domain.Location,
	departAt time.Time,
) (_ map[string]map[string]domain.DistanceEntry, err error) {
	defer obs.Time(ctx, "traffic.LookupMatrix")(&err)

	out := make(map[string]map[string]domain.DistanceEntry, len(origins))
	if len(origins) == 0 || len(destinations) == 0 {
		return out, nil
	}

	var errs []error
	for o := 0; o < len(origins); o += p.limits.MaxOrigins {
		oBlock := origins[o:min(o+p.limits.MaxOrigins, len(origins))]
		for d := 0; d < len(destinations); d += p.limits.MaxDestinations {
			dBlock := destinations[d:min(d+p.limits.MaxDestinations, len(destinations))]

			missing, err := p.fetchBlock(ctx, oBlock, dBlock, departAt, out)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if missing > 0 {
				errs = append(errs, fmt.Errorf("%d elements without a route", missing))
			}
		}
	}

	if len(errs) > 0 {
		return out, domain.ProviderUnavailable("", errors.Join(errs...))
	}
	return out, nil
}
