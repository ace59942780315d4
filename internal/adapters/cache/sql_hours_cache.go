package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"visit-route-engine/internal/domain"
	"visit-route-engine/internal/platform/obs"
)

// SQLHoursCache is a Postgres-backed cache of verified opening hours keyed
// by place (name and coordinates). Absent patterns are cached too, so a
// place the provider does not know is not looked up again.
type SQLHoursCache struct {
	DB *sql.DB
}

func NewSQLHoursCache(db *sql.DB) *SQLHoursCache {
	return &SQLHoursCache{DB: db}
}

// Fetch cached hours for a place key. ok is false on a cache miss; found
// reports whether the cached answer was a known place with hours.
func (s *SQLHoursCache) Get(ctx context.Context, placeKey string) (hours domain.WeeklyHours, found, ok bool, err error) {
	defer obs.Time(ctx, "hours.cache.Get")(&err)

	if s.DB == nil {
		return nil, false, false, errors.New("hours cache: db is nil")
	}

	placeKey = strings.TrimSpace(placeKey)
	if placeKey == "" {
		return nil, false, false, errors.New("get hours cache: place key must not be empty")
	}

	q := `
	SELECT found, weekly
    FROM place_hours_cache
    WHERE place_key = $1;
	`

	var raw []byte
	if err := s.DB.QueryRowContext(ctx, q, placeKey).Scan(&found, &raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, false, nil
		}
		return nil, false, false, fmt.Errorf("get hours cache: query place_hours_cache table: %w", err)
	}

	if found {
		if hours, err = decodeWeekly(raw); err != nil {
			return nil, false, false, fmt.Errorf("get hours cache: %w", err)
		}
	}
	return hours, found, true, nil
}

// Store the lookup result for a place key.
func (s *SQLHoursCache) Put(ctx context.Context, placeKey string, hours domain.WeeklyHours, found bool) error {
	if s.DB == nil {
		return errors.New("hours cache: db is nil")
	}

	placeKey = strings.TrimSpace(placeKey)
	if placeKey == "" {
		return errors.New("insert hours cache: place key must not be empty")
	}

	raw, err := encodeWeekly(hours)
	if err != nil {
		return fmt.Errorf("insert hours cache: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, `
	INSERT INTO place_hours_cache (place_key, found, weekly, fetched_at)
    VALUES ($1, $2, $3, now())
	ON CONFLICT (place_key) DO UPDATE
	SET found = EXCLUDED.found,
		weekly = EXCLUDED.weekly,
		fetched_at = EXCLUDED.fetched_at;
	`, placeKey, found, raw)
	if err != nil {
		return fmt.Errorf("insert hours cache key=%q: %w", placeKey, err)
	}

	return nil
}

// weeklyRow is the JSON form of one weekday entry.
type weeklyRow struct {
	Weekday int          `json:"weekday"`
	Open    domain.Clock `json:"open"`
	Close   domain.Clock `json:"close"`
}

func encodeWeekly(w domain.WeeklyHours) ([]byte, error) {
	rows := make([]weeklyRow, 0, len(w))
	for day, h := range w {
		rows = append(rows, weeklyRow{Weekday: int(day), Open: h.Open, Close: h.Close})
	}
	return json.Marshal(rows)
}

func decodeWeekly(raw []byte) (domain.WeeklyHours, error) {
	var rows []weeklyRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode weekly hours: %w", err)
	}
	w := make(domain.WeeklyHours, len(rows))
	for _, r := range rows {
		w[time.Weekday(r.Weekday)] = domain.DayHours{Open: r.Open, Close: r.Close}
	}
	return w, nil
}
