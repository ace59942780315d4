package domain

import "time"

// Provenance records where business hours came from. Verified hours are
// trusted, so violating them costs more than violating an estimate.
type Provenance string

const (
	ProvenanceVerified  Provenance = "verified"
	ProvenanceEstimated Provenance = "estimated"
)

// DayHours is the opening interval for one weekday.
type DayHours struct {
	Open  Clock
	Close Clock
}

// WeeklyHours is a generic opening pattern; missing weekdays are closed.
type WeeklyHours map[time.Weekday]DayHours

// BusinessHours are the operating hours resolved for one point on one date.
type BusinessHours struct {
	PointID    string
	Date       time.Time
	Open       Clock
	Close      Clock
	Closed     bool
	Weekly     WeeklyHours
	Provenance Provenance
	Source     string
}

// Verified reports whether the hours came from a trusted source.
func (h BusinessHours) Verified() bool { return h.Provenance == ProvenanceVerified }

// ForDate projects a weekly pattern onto a concrete date.
func (w WeeklyHours) ForDate(pointID string, date time.Time, prov Provenance, source string) BusinessHours {
	bh := BusinessHours{
		PointID:    pointID,
		Date:       date,
		Weekly:     w,
		Provenance: prov,
		Source:     source,
	}
	day, ok := w[date.Weekday()]
	if !ok {
		bh.Closed = true
		return bh
	}
	bh.Open = day.Open
	bh.Close = day.Close
	return bh
}

// Weekdays builds a pattern with the same hours on the given days.
func Weekdays(open, close Clock, days ...time.Weekday) WeeklyHours {
	w := make(WeeklyHours, len(days))
	for _, d := range days {
		w[d] = DayHours{Open: open, Close: close}
	}
	return w
}
