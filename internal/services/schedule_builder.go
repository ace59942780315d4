package services

import (
	"fmt"
	"time"
	"visit-route-engine/internal/domain"
	"visit-route-engine/internal/platform/obs"

	"github.com/rs/zerolog"
)

// ScheduleBuilder turns an ordered route into wall-clock times.
type ScheduleBuilder struct {
	opts Options
	log  zerolog.Logger
}

func NewScheduleBuilder(opts Options) *ScheduleBuilder {
	return &ScheduleBuilder{opts: opts, log: obs.Component("schedule")}
}

// Build times every stop of route from start (route.StartTime when zero).
//
// Travel legs are followed by the safety buffer. An arrival before opening
// waits until opening, and every later stop inherits that shift. Service
// that would end past closing minus the margin is compressed by at most
// MaxCompressionRatio of its duration; otherwise the stop is kept and
// annotated as a violation. Lunch is taken once, at the first arrival at or
// after the lunch window opens, or inside an opening wait when one is long
// enough. A stop whose service runs across the whole window is followed by
// lunch before the next stop. Days starting after the window get no lunch.
func (b *ScheduleBuilder) Build(route *domain.OptimizedRoute, hours map[string]domain.BusinessHours, start time.Time) *domain.Schedule {
	if start.IsZero() {
		start = route.StartTime
	}
	s := &domain.Schedule{
		RouteID:   route.ID,
		StartTime: start,
		EndTime:   start,
		Items:     make([]domain.ScheduleItem, 0, len(route.Points)),
	}

	lunchFrom := b.opts.LunchWindowStart.On(start)
	lunchTo := b.opts.LunchWindowEnd.On(start)
	lunchTaken := b.opts.LunchDuration <= 0 || !start.Before(lunchTo)

	clock := start
	for k, p := range route.Points {
		item := domain.ScheduleItem{Sequence: k + 1, Point: p, Status: domain.HoursOK}

		if k < len(route.Legs) && route.Legs[k].FromID != "" {
			clock = clock.Add(route.Legs[k].TravelTime + b.opts.TravelBuffer)
			s.TotalBuffer += b.opts.TravelBuffer
		}
		if !lunchTaken && !clock.Before(lunchFrom) {
			s.LunchStart = ptr(clock)
			clock = clock.Add(b.opts.LunchDuration)
			item.LunchBefore = true
			lunchTaken = true
		}

		item.Arrival = clock
		begin := clock
		service := p.EstimatedDuration

		if bh, ok := hours[p.ID]; ok {
			item.Hours = bh
			if bh.Closed {
				item.Status = domain.HoursClosed
				b.violate(s, &item, bh, "target is closed on %s", start.Format("2006-01-02"))
			} else {
				open := bh.Open.On(start)
				deadline := bh.Close.On(start).Add(-b.opts.ClosingMargin)

				if begin.Before(open) {
					item.Wait = open.Sub(begin)
					item.Shift = item.Wait
					item.Status = domain.HoursShifted
					s.TotalWait += item.Wait
					if !lunchTaken && b.lunchFits(begin, open, lunchFrom, lunchTo) {
						s.LunchStart = ptr(maxTime(begin, lunchFrom))
						item.LunchBefore = true
						lunchTaken = true
					}
					begin = open
				}

				if over := begin.Add(service).Sub(deadline); over > 0 {
					limit := time.Duration(float64(service) * b.opts.MaxCompressionRatio)
					if over <= limit && begin.Before(deadline) {
						service -= over
						item.Status = domain.HoursCompressed
						item.Note = fmt.Sprintf("service compressed by %s to finish before closing", over.Round(time.Minute))
					} else {
						item.Status = domain.HoursViolation
						b.violate(s, &item, bh, "service ends %s after %s (closing %s minus margin)", over.Round(time.Minute), deadline.Format("15:04"), bh.Close)
					}
				}
			}
		}

		item.ServiceTime = service
		item.Departure = begin.Add(service)
		if k+1 < len(route.Legs) {
			item.TravelToNext = route.Legs[k+1].TravelTime
		}
		clock = item.Departure
		s.Items = append(s.Items, item)
	}

	s.EndTime = clock
	if end := b.opts.WorkdayEnd.On(start); clock.After(end) {
		s.Overtime = clock.Sub(end)
	}

	if len(s.Violations) > 0 || s.Overtime > 0 {
		b.log.Info().
			Str("route_id", route.ID).
			Int("violations", len(s.Violations)).
			Dur("overtime", s.Overtime).
			Msg("schedule has business-hours issues")
	}
	return s
}

// violate annotates item; verified hours are graded more severely because
// an estimate may simply be wrong.
func (b *ScheduleBuilder) violate(s *domain.Schedule, item *domain.ScheduleItem, bh domain.BusinessHours, format string, args ...any) {
	item.Severity = domain.SeverityLow
	if bh.Verified() {
		item.Severity = domain.SeverityHigh
	}
	item.Note = fmt.Sprintf(format, args...)
	s.Violations = append(s.Violations, domain.ScheduleInfeasible(item.Point.ID, "%s (%s hours)", item.Note, bh.Provenance))
}

// lunchFits reports whether a full lunch can be taken while waiting between
// from and to inside the lunch window.
func (b *ScheduleBuilder) lunchFits(from, to, windowStart, windowEnd time.Time) bool {
	lo := maxTime(from, windowStart)
	hi := minTime(to, windowEnd)
	return hi.Sub(lo) >= b.opts.LunchDuration
}

func ptr[T any](v T) *T { return &v }

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
