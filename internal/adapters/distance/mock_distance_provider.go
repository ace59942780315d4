package distance

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
	"visit-route-engine/internal/domain"
)

type MockPair struct {
	From, To string
	Meters   float64
	Seconds  float64
}

// MockDistanceProvider answers from a fixed table keyed by location ids.
// Unknown pairs are reported as unavailable.
type MockDistanceProvider struct {
	m     map[string]domain.DistanceEntry
	calls atomic.Int64
}

// NewMockDistanceProvider builds the table; symmetric adds the reverse of
// every pair.
func NewMockDistanceProvider(pairs []MockPair, symmetric bool) *MockDistanceProvider {
	m := make(map[string]domain.DistanceEntry, len(pairs)*2)
	for _, p := range pairs {
		e := domain.DistanceEntry{DistanceMeters: p.Meters, DurationSeconds: p.Seconds, Source: domain.SourceRemote}
		m[p.From+"|"+p.To] = e
		if symmetric {
			m[p.To+"|"+p.From] = e
		}
	}
	return &MockDistanceProvider{m: m}
}

func (p *MockDistanceProvider) Lookup(ctx context.Context, origin, destination domain.Location, _ time.Time) (domain.DistanceEntry, error) {
	p.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return domain.DistanceEntry{}, domain.ProviderUnavailable(destination.ID, err)
	}

	e, ok := p.m[origin.ID+"|"+destination.ID]
	if !ok {
		return domain.DistanceEntry{}, domain.ProviderUnavailable(destination.ID, errors.New("missing pair "+origin.ID+" -> "+destination.ID))
	}
	return e, nil
}

// Calls returns how many lookups were made.
func (p *MockDistanceProvider) Calls() int64 { return p.calls.Load() }

// UnavailableProvider fails every lookup, as a remote provider does during
// an outage.
type UnavailableProvider struct {
	calls atomic.Int64
}

func (u *UnavailableProvider) Lookup(_ context.Context, _, destination domain.Location, _ time.Time) (domain.DistanceEntry, error) {
	u.calls.Add(1)
	return domain.DistanceEntry{}, domain.ProviderUnavailable(destination.ID, errors.New("provider outage"))
}

func (u *UnavailableProvider) Calls() int64 { return u.calls.Load() }
