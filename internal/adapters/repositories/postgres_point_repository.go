package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"visit-route-engine/internal/domain"
	"visit-route-engine/internal/platform/obs"
)

// Postgres-backed implementation of the PointRepository port.
type PostgresPointRepository struct{ DB *sql.DB }

func NewPostgresPointRepository(db *sql.DB) *PostgresPointRepository {
	return &PostgresPointRepository{DB: db}
}

// Return active points of a municipality whose validity covers date.
func (s *PostgresPointRepository) ListEligiblePoints(ctx context.Context, municipality string, date time.Time) (_ []domain.RoutePoint, err error) {
	defer obs.Time(ctx, "points.ListEligible")(&err)

	if s.DB == nil {
		return nil, errors.New("postgres point repository: DB is nil")
	}

	query := `
	SELECT
		id, name, lat, lng, municipality, priority, duration_minutes,
		COALESCE(window_open, ''), COALESCE(window_close, ''),
		visit_type, array_to_string(requirements, ',')
	FROM route_points
	WHERE active
		AND ($1 = '' OR municipality = $1)
		AND (valid_from IS NULL OR valid_from <= $2::date)
		AND (valid_until IS NULL OR valid_until >= $2::date)
	ORDER BY priority, id;
	`
	rows, err := s.DB.QueryContext(ctx, query, municipality, date.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("list points: query route_points table: %w", err)
	}
	defer rows.Close()

	points := make([]domain.RoutePoint, 0, 64)
	for rows.Next() {
		var (
			p                     domain.RoutePoint
			minutes               int
			open, closing, vt, rq string
		)
		err := rows.Scan(
			&p.ID, &p.Name, &p.Coordinates.Lat, &p.Coordinates.Lng, &p.Municipality,
			&p.Priority, &minutes, &open, &closing, &vt, &rq,
		)
		if err != nil {
			return nil, fmt.Errorf("list points: scan row: %w", err)
		}

		p.EstimatedDuration = time.Duration(minutes) * time.Minute
		p.VisitType = domain.VisitType(vt)
		if rq != "" {
			for _, r := range strings.Split(rq, ",") {
				p.Requirements = append(p.Requirements, domain.Requirement(r))
			}
		}
		if open != "" && closing != "" {
			w, err := parseWindow(open, closing)
			if err != nil {
				return nil, fmt.Errorf("list points: point %s: %w", p.ID, err)
			}
			p.TimeWindow = w
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list points: row iteration: %w", err)
	}

	return points, nil
}

func parseWindow(open, closing string) (*domain.TimeWindow, error) {
	o, err := domain.ParseClock(open)
	if err != nil {
		return nil, err
	}
	c, err := domain.ParseClock(closing)
	if err != nil {
		return nil, err
	}
	return &domain.TimeWindow{Open: o, Close: c}, nil
}
