package distance

import (
	"context"
	"math"
	"testing"
	"time"
	"visit-route-engine/internal/domain"
)

func TestLocalEstimatorDerivesDurationFromSpeed(t *testing.T) {
	est := NewLocalEstimator(36) // 10 m/s
	a := domain.Location{ID: "a", Coordinates: domain.Coordinates{Lat: 4.60, Lng: -74.08}}
	b := domain.Location{ID: "b", Coordinates: domain.Coordinates{Lat: 4.61, Lng: -74.07}}

	e, err := est.Lookup(context.Background(), a, b, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := domain.HaversineMeters(a.Coordinates, b.Coordinates)
	if e.DistanceMeters != want {
		t.Fatalf("distance = %v, want %v", e.DistanceMeters, want)
	}
	if math.Abs(e.DurationSeconds-want/10) > 1e-9 {
		t.Fatalf("duration = %v, want %v", e.DurationSeconds, want/10)
	}
	if e.Source != domain.SourceLocal {
		t.Fatalf("source = %q, want %q", e.Source, domain.SourceLocal)
	}
}

func TestLocalEstimatorDefaultsSpeed(t *testing.T) {
	if got := NewLocalEstimator(0).SpeedKmh; got != DefaultUrbanSpeedKmh {
		t.Fatalf("speed = %v, want %v", got, DefaultUrbanSpeedKmh)
	}
}
