package dto

import (
	"time"
	"visit-route-engine/internal/domain"
	"visit-route-engine/internal/services"
)

type Weights struct {
	Distance      float64 `json:"distance"       validate:"min=0,max=1"`
	Time          float64 `json:"time"           validate:"min=0,max=1"`
	Priority      float64 `json:"priority"       validate:"min=0,max=1"`
	BusinessHours float64 `json:"business_hours" validate:"min=0,max=1"`
}

func (w *Weights) ToDomain() *services.Weights {
	if w == nil {
		return nil
	}
	return &services.Weights{Distance: w.Distance, Time: w.Time, Priority: w.Priority, BusinessHours: w.BusinessHours}
}

type OptimizeRequest struct {
	Points        []PointRequest `json:"points"         validate:"omitempty,dive"`
	Municipality  string         `json:"municipality"`
	Date          string         `json:"date"           validate:"omitempty,datetime=2006-01-02"`
	StartTime     *time.Time     `json:"start_time"`
	StartLocation *Location      `json:"start_location"`
	Profile       string         `json:"profile"        validate:"omitempty,oneof=balanced distance_first time_first priority_first"`
	Weights       *Weights       `json:"weights"`
}

type CompareRequest struct {
	OptimizeRequest
	Profiles []string `json:"profiles" validate:"omitempty,dive,oneof=balanced distance_first time_first priority_first"`
}

type WeeklyRequest struct {
	Points        []PointRequest `json:"points"         validate:"omitempty,dive"`
	Municipality  string         `json:"municipality"`
	Dates         []string       `json:"dates"          validate:"omitempty,dive,datetime=2006-01-02"`
	StartDate     string         `json:"start_date"     validate:"omitempty,datetime=2006-01-02"`
	DayCount      int            `json:"day_count"      validate:"min=0,max=14"`
	StartLocation *Location      `json:"start_location"`
	Profile       string         `json:"profile"        validate:"omitempty,oneof=balanced distance_first time_first priority_first"`
	Weights       *Weights       `json:"weights"`
}

type Degradation struct {
	Kind   string `json:"kind"`
	Pairs  int    `json:"pairs,omitempty"`
	Detail string `json:"detail,omitempty"`
}

type RouteMetadata struct {
	Algorithm     string        `json:"algorithm"`
	Profile       string        `json:"profile"`
	Degraded      bool          `json:"degraded"`
	Degradations  []Degradation `json:"degradations"`
	FallbackPairs int           `json:"fallback_pairs"`
	Seed          int64         `json:"seed"`
	Generations   int           `json:"generations,omitempty"`
	Evaluations   int           `json:"evaluations"`
	ElapsedMillis int64         `json:"elapsed_ms"`
}

type Stop struct {
	Sequence       int     `json:"sequence"`
	PointID        string  `json:"point_id"`
	Name           string  `json:"name"`
	Lat            float64 `json:"lat"`
	Lng            float64 `json:"lng"`
	Priority       int     `json:"priority"`
	FromID         string  `json:"from_id,omitempty"`
	DistanceMeters float64 `json:"distance_meters"`
	TravelMinutes  float64 `json:"travel_minutes"`
	Source         string  `json:"source,omitempty"`
}

type RouteResponse struct {
	ID                   string        `json:"id"`
	RouteType            string        `json:"route_type"`
	StartTime            time.Time     `json:"start_time"`
	StartLocation        *Location     `json:"start_location,omitempty"`
	Stops                []Stop        `json:"stops"`
	TotalDistanceMeters  float64       `json:"total_distance_meters"`
	TotalDurationMinutes float64       `json:"total_duration_minutes"`
	TotalDrivingMinutes  float64       `json:"total_driving_minutes"`
	TotalServiceMinutes  float64       `json:"total_service_minutes"`
	Objective            float64       `json:"objective"`
	OptimizationScore    float64       `json:"optimization_score"`
	Metadata             RouteMetadata `json:"metadata"`
}

type ScheduleItem struct {
	Sequence            int       `json:"sequence"`
	PointID             string    `json:"point_id"`
	Name                string    `json:"name"`
	Arrival             time.Time `json:"arrival"`
	Departure           time.Time `json:"departure"`
	ServiceMinutes      float64   `json:"service_minutes"`
	TravelToNextMinutes float64   `json:"travel_to_next_minutes"`
	WaitMinutes         float64   `json:"wait_minutes"`
	ShiftMinutes        float64   `json:"shift_minutes"`
	LunchBefore         bool      `json:"lunch_before"`
	Open                *string   `json:"open,omitempty"`
	Close               *string   `json:"close,omitempty"`
	Closed              bool      `json:"closed"`
	HoursProvenance     string    `json:"hours_provenance"`
	HoursSource         string    `json:"hours_source"`
	Status              string    `json:"status"`
	Severity            string    `json:"severity,omitempty"`
	Note                string    `json:"note,omitempty"`
}

type ScheduleResponse struct {
	RouteID            string         `json:"route_id"`
	StartTime          time.Time      `json:"start_time"`
	EndTime            time.Time      `json:"end_time"`
	LunchStart         *time.Time     `json:"lunch_start,omitempty"`
	Items              []ScheduleItem `json:"items"`
	TotalWaitMinutes   float64        `json:"total_wait_minutes"`
	TotalBufferMinutes float64        `json:"total_buffer_minutes"`
	OvertimeMinutes    float64        `json:"overtime_minutes"`
	Feasible           bool           `json:"feasible"`
	Violations         []ErrorDetail  `json:"violations"`
}

type ReportResponse struct {
	RouteID                string   `json:"route_id"`
	Stops                  int      `json:"stops"`
	WorkTimeRatio          float64  `json:"work_time_ratio"`
	AverageInterStopMeters float64  `json:"average_inter_stop_meters"`
	GeographicSpread       float64  `json:"geographic_spread"`
	Compactness            float64  `json:"compactness"`
	PriorityOrderQuality   float64  `json:"priority_order_quality"`
	Score                  float64  `json:"score"`
	Suggestions            []string `json:"suggestions"`
}

type DayResponse struct {
	Route    RouteResponse     `json:"route"`
	Schedule *ScheduleResponse `json:"schedule,omitempty"`
	Report   *ReportResponse   `json:"report,omitempty"`
}

type CompareResponse struct {
	Alternatives []DayResponse `json:"alternatives"`
}

type Transition struct {
	PreviousEndPointID string  `json:"previous_end_point_id"`
	FirstPointID       string  `json:"first_point_id"`
	NearestPointID     string  `json:"nearest_point_id"`
	DistanceMeters     float64 `json:"distance_meters"`
	Reoptimized        bool    `json:"reoptimized"`
}

type WeeklyDay struct {
	Date string `json:"date"`
	DayResponse
	Transition *Transition `json:"transition,omitempty"`
}

type WeeklyResponse struct {
	ID                  string      `json:"id"`
	Profile             string      `json:"profile"`
	TotalDistanceMeters float64     `json:"total_distance_meters"`
	TotalStops          int         `json:"total_stops"`
	Days                []WeeklyDay `json:"days"`
	Warnings            []string    `json:"warnings"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Stage   string `json:"stage,omitempty"`
	PointID string `json:"point_id,omitempty"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string        `json:"error"`
	Details []ErrorDetail `json:"details,omitempty"`
}

func FromEngineError(e *domain.EngineError) ErrorDetail {
	msg := e.Message
	if e.Cause != nil {
		if msg != "" {
			msg += ": "
		}
		msg += e.Cause.Error()
	}
	return ErrorDetail{Code: string(e.Code), Stage: string(e.Stage), PointID: e.PointID, Message: msg}
}

func FromRoute(r *domain.OptimizedRoute) RouteResponse {
	res := RouteResponse{
		ID:                   r.ID,
		RouteType:            string(r.RouteType),
		StartTime:            r.StartTime,
		StartLocation:        FromLocation(r.StartLocation),
		Stops:                make([]Stop, 0, len(r.Points)),
		TotalDistanceMeters:  r.TotalDistanceMeters,
		TotalDurationMinutes: r.TotalDuration.Minutes(),
		TotalDrivingMinutes:  r.TotalDrivingTime.Minutes(),
		TotalServiceMinutes:  r.TotalServiceTime.Minutes(),
		Objective:            r.Objective,
		OptimizationScore:    r.OptimizationScore,
		Metadata: RouteMetadata{
			Algorithm:     string(r.Metadata.Algorithm),
			Profile:       r.Metadata.Profile,
			Degraded:      r.Metadata.Degraded(),
			Degradations:  make([]Degradation, 0, len(r.Metadata.Degradations)),
			FallbackPairs: r.Metadata.FallbackPairs,
			Seed:          r.Metadata.Seed,
			Generations:   r.Metadata.Generations,
			Evaluations:   r.Metadata.Evaluations,
			ElapsedMillis: r.Metadata.Elapsed.Milliseconds(),
		},
	}
	for _, d := range r.Metadata.Degradations {
		res.Metadata.Degradations = append(res.Metadata.Degradations, Degradation{Kind: d.Kind, Pairs: d.Pairs, Detail: d.Detail})
	}
	for i, p := range r.Points {
		s := Stop{
			Sequence: i + 1,
			PointID:  p.ID,
			Name:     p.Name,
			Lat:      p.Coordinates.Lat,
			Lng:      p.Coordinates.Lng,
			Priority: p.Priority,
		}
		if i < len(r.Legs) {
			leg := r.Legs[i]
			s.FromID = leg.FromID
			s.DistanceMeters = leg.DistanceMeters
			s.TravelMinutes = leg.TravelTime.Minutes()
			s.Source = string(leg.Source)
		}
		res.Stops = append(res.Stops, s)
	}
	return res
}

func FromSchedule(s *domain.Schedule) *ScheduleResponse {
	if s == nil {
		return nil
	}
	res := &ScheduleResponse{
		RouteID:            s.RouteID,
		StartTime:          s.StartTime,
		EndTime:            s.EndTime,
		LunchStart:         s.LunchStart,
		Items:              make([]ScheduleItem, 0, len(s.Items)),
		TotalWaitMinutes:   s.TotalWait.Minutes(),
		TotalBufferMinutes: s.TotalBuffer.Minutes(),
		OvertimeMinutes:    s.Overtime.Minutes(),
		Feasible:           s.Feasible(),
		Violations:         make([]ErrorDetail, 0, len(s.Violations)),
	}
	for _, it := range s.Items {
		item := ScheduleItem{
			Sequence:            it.Sequence,
			PointID:             it.Point.ID,
			Name:                it.Point.Name,
			Arrival:             it.Arrival,
			Departure:           it.Departure,
			ServiceMinutes:      it.ServiceTime.Minutes(),
			TravelToNextMinutes: it.TravelToNext.Minutes(),
			WaitMinutes:         it.Wait.Minutes(),
			ShiftMinutes:        it.Shift.Minutes(),
			LunchBefore:         it.LunchBefore,
			Closed:              it.Hours.Closed,
			HoursProvenance:     string(it.Hours.Provenance),
			HoursSource:         it.Hours.Source,
			Status:              string(it.Status),
			Severity:            string(it.Severity),
			Note:                it.Note,
		}
		if !it.Hours.Closed {
			opens, closes := it.Hours.Open.String(), it.Hours.Close.String()
			item.Open, item.Close = &opens, &closes
		}
		res.Items = append(res.Items, item)
	}
	for _, v := range s.Violations {
		res.Violations = append(res.Violations, FromEngineError(v))
	}
	return res
}

func FromReport(r *domain.EfficiencyReport) *ReportResponse {
	if r == nil {
		return nil
	}
	suggestions := r.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	return &ReportResponse{
		RouteID:                r.RouteID,
		Stops:                  r.Stops,
		WorkTimeRatio:          r.WorkTimeRatio,
		AverageInterStopMeters: r.AverageInterStopMeters,
		GeographicSpread:       r.GeographicSpread,
		Compactness:            r.Compactness,
		PriorityOrderQuality:   r.PriorityOrderQuality,
		Score:                  r.Score,
		Suggestions:            suggestions,
	}
}

func FromDayResult(d *services.DayResult) DayResponse {
	return DayResponse{
		Route:    FromRoute(d.Route),
		Schedule: FromSchedule(d.Schedule),
		Report:   FromReport(d.Report),
	}
}

func FromWeeklyPlan(w *domain.WeeklyPlan) WeeklyResponse {
	res := WeeklyResponse{
		ID:                  w.ID,
		Profile:             w.Profile,
		TotalDistanceMeters: w.TotalDistanceMeters(),
		TotalStops:          w.TotalStops(),
		Days:                make([]WeeklyDay, 0, len(w.Days)),
		Warnings:            w.Warnings,
	}
	if res.Warnings == nil {
		res.Warnings = []string{}
	}
	for _, d := range w.Days {
		day := WeeklyDay{
			Date: d.Date.Format(time.DateOnly),
			DayResponse: DayResponse{
				Schedule: FromSchedule(d.Schedule),
				Report:   FromReport(d.Report),
			},
		}
		if d.Route != nil {
			day.Route = FromRoute(d.Route)
		}
		if t := d.Transition; t != nil {
			day.Transition = &Transition{
				PreviousEndPointID: t.PreviousEndPointID,
				FirstPointID:       t.FirstPointID,
				NearestPointID:     t.NearestPointID,
				DistanceMeters:     t.DistanceMeters,
				Reoptimized:        t.Reoptimized,
			}
		}
		res.Days = append(res.Days, day)
	}
	return res
}
