// Package places resolves verified opening hours from a places HTTP API.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"visit-route-engine/internal/adapters/httpclient"
	"visit-route-engine/internal/domain"
	"visit-route-engine/internal/platform/obs"
)

const (
	findPath    = "/maps/api/place/findplacefromtext/json"
	detailsPath = "/maps/api/place/details/json"
	// Radius in meters used to bias the name search around the point.
	biasRadius = 300
)

type findResponse struct {
	Status     string `json:"status"`
	Candidates []struct {
		PlaceID string `json:"place_id"`
	} `json:"candidates"`
}

type periodEdge struct {
	Day  int    `json:"day"`
	Time string `json:"time"`
}

type detailsResponse struct {
	Status string `json:"status"`
	Result struct {
		OpeningHours *struct {
			Periods []struct {
				Open  periodEdge  `json:"open"`
				Close *periodEdge `json:"close"`
			} `json:"periods"`
		} `json:"opening_hours"`
	} `json:"result"`
}

// Client implements PlacesLookup with a find-place search followed by a
// details request for the best candidate.
type Client struct {
	http *httpclient.Client
}

func NewClient(c *httpclient.Client) (*Client, error) {
	if c == nil {
		return nil, errors.New("places client: http client is nil")
	}
	return &Client{http: c}, nil
}

func (c *Client) LookupHours(ctx context.Context, name string, coords domain.Coordinates) (_ domain.WeeklyHours, _ bool, err error) {
	defer obs.Time(ctx, "places.LookupHours")(&err)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, nil
	}

	placeID, err := c.findPlace(ctx, name, coords)
	if err != nil || placeID == "" {
		return nil, false, err
	}

	return c.openingHours(ctx, placeID)
}

func (c *Client) findPlace(ctx context.Context, name string, coords domain.Coordinates) (string, error) {
	query := map[string]string{
		"input":        name,
		"inputtype":    "textquery",
		"fields":       "place_id",
		"locationbias": fmt.Sprintf("circle:%d@%s", biasRadius, coords.String()),
	}

	var fr findResponse
	if err := c.getJSON(ctx, findPath, query, &fr); err != nil {
		return "", fmt.Errorf("find place %q: %w", name, err)
	}

	switch fr.Status {
	case "OK":
	case "ZERO_RESULTS":
		return "", nil
	default:
		return "", fmt.Errorf("find place %q: status %s", name, fr.Status)
	}
	if len(fr.Candidates) == 0 {
		return "", nil
	}
	return fr.Candidates[0].PlaceID, nil
}

func (c *Client) openingHours(ctx context.Context, placeID string) (domain.WeeklyHours, bool, error) {
	query := map[string]string{
		"place_id": placeID,
		"fields":   "opening_hours",
	}

	var dr detailsResponse
	if err := c.getJSON(ctx, detailsPath, query, &dr); err != nil {
		return nil, false, fmt.Errorf("place details %q: %w", placeID, err)
	}

	switch dr.Status {
	case "OK":
	case "NOT_FOUND", "ZERO_RESULTS":
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("place details %q: status %s", placeID, dr.Status)
	}

	oh := dr.Result.OpeningHours
	if oh == nil || len(oh.Periods) == 0 {
		return nil, false, nil
	}

	weekly := make(domain.WeeklyHours, len(oh.Periods))
	for _, p := range oh.Periods {
		day := time.Weekday(p.Open.Day)
		// A period without a close is open around the clock.
		if p.Close == nil {
			weekly[day] = domain.DayHours{Open: 0, Close: domain.MustClock("24:00")}
			continue
		}
		open, err := parseHHMM(p.Open.Time)
		if err != nil {
			return nil, false, fmt.Errorf("place details %q: %w", placeID, err)
		}
		closing, err := parseHHMM(p.Close.Time)
		if err != nil {
			return nil, false, fmt.Errorf("place details %q: %w", placeID, err)
		}
		if p.Close.Day != p.Open.Day {
			closing = domain.MustClock("24:00")
		}
		// Split shifts (e.g. 08:00-12:00, 14:00-18:00) collapse into one span.
		if prev, ok := weekly[day]; ok {
			open = min(open, prev.Open)
			closing = max(closing, prev.Close)
		}
		weekly[day] = domain.DayHours{Open: open, Close: closing}
	}
	return weekly, true, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query map[string]string, out any) error {
	resp, err := c.http.DoWithRetry(ctx, func() (*http.Request, error) {
		return c.http.NewRequest(ctx, path, query)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// parseHHMM parses the "0830" form used by opening periods.
func parseHHMM(s string) (domain.Clock, error) {
	if len(s) != 4 {
		return 0, fmt.Errorf("malformed period time %q", s)
	}
	h, err := strconv.Atoi(s[:2])
	if err != nil {
		return 0, fmt.Errorf("malformed period time %q: %w", s, err)
	}
	m, err := strconv.Atoi(s[2:])
	if err != nil {
		return 0, fmt.Errorf("malformed period time %q: %w", s, err)
	}
	return domain.ParseClock(fmt.Sprintf("%02d:%02d", h, m))
}
