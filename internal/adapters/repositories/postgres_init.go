package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"visit-route-engine/internal/domain"
)

// Initialize the Postgres database schema.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createPointsQuery := `
	CREATE TABLE IF NOT EXISTS route_points (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL,
		municipality TEXT NOT NULL DEFAULT '',
		priority INTEGER NOT NULL,
		duration_minutes INTEGER NOT NULL CHECK (duration_minutes > 0),
		window_open TEXT,
		window_close TEXT,
		visit_type TEXT NOT NULL DEFAULT 'other',
		requirements TEXT[] NOT NULL DEFAULT '{}',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		valid_from DATE,
		valid_until DATE
	);
	`

	createDistanceCacheQuery := `
	CREATE TABLE IF NOT EXISTS distance_cache (
        origin TEXT NOT NULL,
        destination TEXT NOT NULL,
        bucket BIGINT NOT NULL DEFAULT 0,
        distance_meters DOUBLE PRECISION NOT NULL,
        duration_seconds DOUBLE PRECISION NOT NULL,
        duration_traffic_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
        PRIMARY KEY (origin, destination, bucket)
    );
	`

	createHoursCacheQuery := `
	CREATE TABLE IF NOT EXISTS place_hours_cache (
        place_key TEXT PRIMARY KEY,
        found BOOLEAN NOT NULL,
        weekly JSONB NOT NULL DEFAULT '[]',
        fetched_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_route_points_municipality
    ON route_points(municipality) WHERE active;
	`

	statements := []string{
		createPointsQuery,
		createDistanceCacheQuery,
		createHoursCacheQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type PointSeed struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Lat             float64  `json:"lat"`
	Lng             float64  `json:"lng"`
	Municipality    string   `json:"municipality"`
	Priority        int      `json:"priority"`
	DurationMinutes int      `json:"duration_minutes"`
	WindowOpen      string   `json:"window_open,omitempty"`
	WindowClose     string   `json:"window_close,omitempty"`
	VisitType       string   `json:"visit_type"`
	Requirements    []string `json:"requirements"`
}

func (s PointSeed) validate(index int) error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("item at index %d: id cannot be empty", index)
	}
	if !(domain.Coordinates{Lat: s.Lat, Lng: s.Lng}).Valid() {
		return fmt.Errorf("item %q: malformed coordinate (%v, %v)", s.ID, s.Lat, s.Lng)
	}
	if s.DurationMinutes <= 0 {
		return fmt.Errorf("item %q: duration must be positive", s.ID)
	}
	if (s.WindowOpen == "") != (s.WindowClose == "") {
		return fmt.Errorf("item %q: window needs both open and close", s.ID)
	}
	for _, c := range []string{s.WindowOpen, s.WindowClose} {
		if c == "" {
			continue
		}
		if _, err := domain.ParseClock(c); err != nil {
			return fmt.Errorf("item %q: %w", s.ID, err)
		}
	}
	return nil
}

// Populate the database with point data from a JSON file.
func SeedFromJSON(ctx context.Context, db *sql.DB, jsonPath string) (int, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("seed points: read %q: %w", jsonPath, err)
	}

	var data []PointSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return 0, fmt.Errorf("seed points: parse json: %w", err)
	}

	for i, item := range data {
		if err := item.validate(i + 1); err != nil {
			return 0, fmt.Errorf("seed points: %w", err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("seed points: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
	INSERT INTO route_points (
		id, name, lat, lng, municipality, priority, duration_minutes,
		window_open, window_close, visit_type, requirements
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), $10, string_to_array(NULLIF($11, ''), ','))
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name,
		lat = EXCLUDED.lat,
		lng = EXCLUDED.lng,
		municipality = EXCLUDED.municipality,
		priority = EXCLUDED.priority,
		duration_minutes = EXCLUDED.duration_minutes,
		window_open = EXCLUDED.window_open,
		window_close = EXCLUDED.window_close,
		visit_type = EXCLUDED.visit_type,
		requirements = COALESCE(EXCLUDED.requirements, '{}');
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("seed points: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range data {
		visitType := p.VisitType
		if visitType == "" {
			visitType = string(domain.VisitOther)
		}
		if _, err := stmt.ExecContext(ctx,
			p.ID, p.Name, p.Lat, p.Lng, p.Municipality, p.Priority, p.DurationMinutes,
			p.WindowOpen, p.WindowClose, visitType, strings.Join(p.Requirements, ","),
		); err != nil {
			return 0, fmt.Errorf("seed points: insert id=%s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("seed points: commit tx: %w", err)
	}

	return len(data), nil
}
