package repositories

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
	"visit-route-engine/internal/domain"
	"visit-route-engine/internal/platform/db"
)

func TestPointSeedValidation(t *testing.T) {
	good := PointSeed{ID: "p1", Lat: 4.6, Lng: -74.1, DurationMinutes: 30}
	if err := good.validate(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := map[string]PointSeed{
		"empty id":      {Lat: 1, Lng: 1, DurationMinutes: 30},
		"bad latitude":  {ID: "x", Lat: 95, Lng: 1, DurationMinutes: 30},
		"zero duration": {ID: "x", Lat: 1, Lng: 1},
		"half window":   {ID: "x", Lat: 1, Lng: 1, DurationMinutes: 30, WindowOpen: "08:00"},
		"bad clock":     {ID: "x", Lat: 1, Lng: 1, DurationMinutes: 30, WindowOpen: "8am", WindowClose: "17:00"},
	}
	for name, seed := range cases {
		if err := seed.validate(1); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

// Requires a disposable Postgres database in DATABASE_URL.
func TestSeedAndListAgainstPostgres(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	conn, err := db.Open(url)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	if err := InitSchema(ctx, conn); err != nil {
		t.Fatalf("init schema: %v", err)
	}

	path := filepath.Join(t.TempDir(), "points.json")
	seed := `[
		{"id":"test-a","name":"Alcaldía","lat":4.60,"lng":-74.08,"municipality":"test-town","priority":1,"duration_minutes":45,"visit_type":"government","requirements":["census","tax"]},
		{"id":"test-b","name":"Coop","lat":4.61,"lng":-74.07,"municipality":"test-town","priority":2,"duration_minutes":30,"window_open":"13:00","window_close":"17:00","visit_type":"cooperative"}
	]`
	if err := os.WriteFile(path, []byte(seed), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if n, err := SeedFromJSON(ctx, conn, path); err != nil || n != 2 {
		t.Fatalf("seed: n=%d err=%v", n, err)
	}

	repo := NewPostgresPointRepository(conn)
	points, err := repo.ListEligiblePoints(ctx, "test-town", time.Now())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(points) != 2 || points[0].ID != "test-a" {
		t.Fatalf("unexpected points: %+v", points)
	}
	if !points[0].HasRequirement("tax") || points[0].EstimatedDuration != 45*time.Minute {
		t.Fatalf("unexpected first point: %+v", points[0])
	}
	if w := points[1].TimeWindow; w == nil || w.Open != domain.MustClock("13:00") {
		t.Fatalf("unexpected window: %+v", points[1].TimeWindow)
	}
}
