package domain

import "time"

// HoursStatus annotates how a stop relates to its business hours.
type HoursStatus string

const (
	HoursOK         HoursStatus = "within_hours"
	HoursShifted    HoursStatus = "shifted_to_opening"
	HoursCompressed HoursStatus = "compressed"
	HoursViolation  HoursStatus = "violation"
	HoursClosed     HoursStatus = "closed"
)

// Severity grades a business-hours violation.
type Severity string

const (
	SeverityNone Severity = ""
	SeverityLow  Severity = "low"
	SeverityHigh Severity = "high"
)

// ScheduleItem is one concrete timed row of a schedule.
type ScheduleItem struct {
	Sequence     int
	Point        RoutePoint
	Arrival      time.Time
	Departure    time.Time
	ServiceTime  time.Duration
	TravelToNext time.Duration
	Wait         time.Duration
	Shift        time.Duration
	LunchBefore  bool
	Hours        BusinessHours
	Status       HoursStatus
	Severity     Severity
	Note         string
}

// Schedule is the wall-clock rendition of an OptimizedRoute.
type Schedule struct {
	RouteID     string
	StartTime   time.Time
	EndTime     time.Time
	LunchStart  *time.Time
	Items       []ScheduleItem
	TotalWait   time.Duration
	TotalBuffer time.Duration
	// Time worked past the configured end of the workday.
	Overtime    time.Duration
	Violations  []*EngineError
}

// Feasible reports whether every stop respects its hours.
func (s *Schedule) Feasible() bool { return len(s.Violations) == 0 }
