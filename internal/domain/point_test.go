package domain

import (
	"errors"
	"math"
	"testing"
	"time"
)

func validPoint(id string) RoutePoint {
	return RoutePoint{
		ID:                id,
		Coordinates:       Coordinates{Lat: -1.67, Lng: -78.65},
		Priority:          2,
		EstimatedDuration: 30 * time.Minute,
		VisitType:         VisitCompany,
	}
}

func TestHaversineMeters(t *testing.T) {
	a := Coordinates{Lat: 0, Lng: 0}
	b := Coordinates{Lat: 0, Lng: 1}

	got := HaversineMeters(a, b)
	if math.Abs(got-111195) > 5 {
		t.Fatalf("one degree of longitude at the equator = %.1f m, want ~111195", got)
	}
	if HaversineMeters(a, a) != 0 {
		t.Fatalf("distance to self must be 0")
	}
	if math.Abs(HaversineMeters(a, b)-HaversineMeters(b, a)) > 1e-9 {
		t.Fatalf("haversine must be symmetric")
	}
}

func TestValidatePointsAccepts(t *testing.T) {
	pts := []RoutePoint{validPoint("A"), validPoint("B")}
	pts[1].TimeWindow = &TimeWindow{Open: MustClock("09:00"), Close: MustClock("11:00")}

	if err := ValidatePoints(pts, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidatePoints(nil, 5); err != nil {
		t.Fatalf("empty input must be valid, got %v", err)
	}
}

func TestValidatePointsReportsEveryOffender(t *testing.T) {
	badCoord := validPoint("A")
	badCoord.Coordinates.Lat = 91

	nanCoord := validPoint("B")
	nanCoord.Coordinates.Lng = math.NaN()

	badDuration := validPoint("C")
	badDuration.EstimatedDuration = 0

	badTier := validPoint("D")
	badTier.Priority = 9

	badWindow := validPoint("E")
	badWindow.TimeWindow = &TimeWindow{Open: MustClock("12:00"), Close: MustClock("09:00")}

	dup := validPoint("A")
	dup.Coordinates.Lat = 0

	err := ValidatePoints([]RoutePoint{badCoord, nanCoord, badDuration, badTier, badWindow, dup}, 5)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, ErrInputInvalid) {
		t.Fatalf("error %v does not match ErrInputInvalid", err)
	}

	for _, id := range []string{"A", "B", "C", "D", "E"} {
		if !errors.Is(err, &EngineError{Code: CodeInputInvalid, PointID: id}) {
			t.Errorf("point %s not reported in %v", id, err)
		}
	}
	if errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("input errors must not match other codes")
	}
}

func TestValidateDayChecksStartLocation(t *testing.T) {
	pts := []RoutePoint{validPoint("A"), validPoint("B")}

	if err := ValidateDay(pts, &Location{ID: "office", Coordinates: Coordinates{Lat: -1.66, Lng: -78.65}}, 5); err != nil {
		t.Fatalf("valid start rejected: %v", err)
	}

	err := ValidateDay(pts, &Location{ID: "A", Coordinates: Coordinates{Lat: -2.5, Lng: -79.5}}, 5)
	if !errors.Is(err, &EngineError{Code: CodeInputInvalid, PointID: "A"}) {
		t.Fatalf("colliding start id not reported: %v", err)
	}
	var ee *EngineError
	if !errors.As(err, &ee) || ee.Stage != StageValidate {
		t.Fatalf("want validate stage, got %v", err)
	}

	err = ValidateDay(pts, &Location{ID: "start", Coordinates: Coordinates{Lat: 500, Lng: 900}}, 5)
	if !errors.Is(err, &EngineError{Code: CodeInputInvalid, PointID: "start"}) {
		t.Fatalf("malformed start coordinate not reported: %v", err)
	}
}

func TestEngineErrorMessageAndUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := ProviderUnavailable("P7", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("cause must be reachable through Unwrap")
	}
	want := "[PROVIDER_UNAVAILABLE] matrix point=P7: connection reset"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}

	ee, ok := AsEngineError(errors.Join(errors.New("other"), err))
	if !ok || ee.PointID != "P7" {
		t.Fatalf("AsEngineError = %v, %v", ee, ok)
	}
}
