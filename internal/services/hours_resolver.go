package services

import (
	"context"
	"fmt"
	"time"
	"visit-route-engine/internal/domain"
	"visit-route-engine/internal/platform/obs"
	"visit-route-engine/internal/ports"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultHours are the generic opening patterns per visit type used when no
// verified hours exist.
func DefaultHours() map[domain.VisitType]domain.WeeklyHours {
	weekdays := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	return map[domain.VisitType]domain.WeeklyHours{
		domain.VisitGovernment:  domain.Weekdays(domain.MustClock("08:00"), domain.MustClock("17:00"), weekdays...),
		domain.VisitCompany:     domain.Weekdays(domain.MustClock("08:00"), domain.MustClock("18:00"), weekdays...),
		domain.VisitCooperative: domain.Weekdays(domain.MustClock("07:00"), domain.MustClock("16:00"), append(weekdays, time.Saturday)...),
		domain.VisitOther:       domain.Weekdays(domain.MustClock("08:00"), domain.MustClock("17:00"), weekdays...),
	}
}

// HoursResolver decides the business hours of each point for a date:
// a declared time window, then verified places data, then the visit-type
// default tagged as estimated.
type HoursResolver struct {
	places      ports.PlacesLookup
	defaults    map[domain.VisitType]domain.WeeklyHours
	timeout     time.Duration
	concurrency int
	log         zerolog.Logger
}

// NewHoursResolver builds a resolver; places may be nil.
func NewHoursResolver(places ports.PlacesLookup, timeout time.Duration, concurrency int) *HoursResolver {
	return &HoursResolver{
		places:      places,
		defaults:    DefaultHours(),
		timeout:     timeout,
		concurrency: max(1, concurrency),
		log:         obs.Component("hours_resolver"),
	}
}

// Resolve never fails: lookup errors degrade to the estimated default.
func (r *HoursResolver) Resolve(ctx context.Context, p domain.RoutePoint, date time.Time) domain.BusinessHours {
	bh := r.resolve(ctx, p, date)
	obs.HoursResolutions.WithLabelValues(string(bh.Provenance)).Inc()
	return bh
}

func (r *HoursResolver) resolve(ctx context.Context, p domain.RoutePoint, date time.Time) domain.BusinessHours {
	if w := p.TimeWindow; w != nil {
		return domain.BusinessHours{
			PointID:    p.ID,
			Date:       date,
			Open:       w.Open,
			Close:      w.Close,
			Provenance: domain.ProvenanceVerified,
			Source:     "time_window",
		}
	}

	if r.places != nil && p.Name != "" {
		lctx := ctx
		if r.timeout > 0 {
			var cancel context.CancelFunc
			lctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}
		weekly, found, err := r.places.LookupHours(lctx, p.Name, p.Coordinates)
		switch {
		case err != nil:
			r.log.Warn().Err(err).Str("point_id", p.ID).Msg("places lookup failed; using default hours")
		case found:
			return weekly.ForDate(p.ID, date, domain.ProvenanceVerified, "places")
		}
	}

	vt := p.VisitType
	weekly, ok := r.defaults[vt]
	if !ok {
		vt = domain.VisitOther
		weekly = r.defaults[vt]
	}
	return weekly.ForDate(p.ID, date, domain.ProvenanceEstimated, "default:"+string(vt))
}

// ResolveAll resolves every point concurrently. The returned degradation is
// set when any point fell back to estimated hours.
func (r *HoursResolver) ResolveAll(ctx context.Context, points []domain.RoutePoint, date time.Time) (map[string]domain.BusinessHours, *domain.Degradation) {
	defer obs.Time(ctx, "hours.ResolveAll")(nil)

	resolved := make([]domain.BusinessHours, len(points))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, p := range points {
		g.Go(func() error {
			resolved[i] = r.Resolve(gctx, p, date)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]domain.BusinessHours, len(points))
	estimated := 0
	for _, bh := range resolved {
		out[bh.PointID] = bh
		if !bh.Verified() {
			estimated++
		}
	}
	if estimated == 0 {
		return out, nil
	}
	return out, &domain.Degradation{
		Kind:   domain.DegradationHoursEstimated,
		Pairs:  estimated,
		Detail: fmt.Sprintf("%d of %d points use estimated business hours", estimated, len(points)),
	}
}
