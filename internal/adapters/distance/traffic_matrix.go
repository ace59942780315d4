package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"visit-route-engine/internal/domain"
)

const matrixPath = "/maps/api/distancematrix/json"

type matrixValue struct {
	Value float64 `json:"value"`
}

type matrixElement struct {
	Status            string       `json:"status"`
	Distance          *matrixValue `json:"distance"`
	Duration          *matrixValue `json:"duration"`
	DurationInTraffic *matrixValue `json:"duration_in_traffic"`
}

type matrixResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Rows         []struct {
		Elements []matrixElement `json:"elements"`
	} `json:"rows"`
}

// fetchBlock retrieves one provider-sized block and merges answered pairs
// into out. It returns how many elements carried no usable route.
func (p *TrafficMatrixProvider) fetchBlock(
	ctx context.Context,
	origins []domain.Location,
	destinations []domain.Location,
	departAt time.Time,
	out map[string]map[string]domain.DistanceEntry,
) (int, error) {
	query := map[string]string{
		"origins":        joinCoords(origins),
		"destinations":   joinCoords(destinations),
		"mode":           "driving",
		"departure_time": p.departureParam(departAt),
		"traffic_model":  p.trafficModel,
	}

	resp, err := p.client.DoWithRetry(ctx, func() (*http.Request, error) {
		return p.client.NewRequest(ctx, matrixPath, query)
	})
	if err != nil {
		return 0, fmt.Errorf("matrix request failed: %w", err)
	}
	defer resp.Body.Close()

	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return 0, fmt.Errorf("decode matrix response: %w", err)
	}

	// OVER_QUERY_LIMIT, REQUEST_DENIED and friends fail the whole block.
	if mr.Status != "OK" {
		return 0, fmt.Errorf("matrix status %s: %s", mr.Status, mr.ErrorMessage)
	}

	if len(mr.Rows) != len(origins) {
		return 0, fmt.Errorf("expected %d rows; got %d", len(origins), len(mr.Rows))
	}

	missing := 0
	for i, row := range mr.Rows {
		if len(row.Elements) != len(destinations) {
			return 0, fmt.Errorf(
				"row %d length does not match destinations: elements=%d destinations=%d",
				i, len(row.Elements), len(destinations),
			)
		}

		originID := origins[i].ID
		for j, el := range row.Elements {
			destID := destinations[j].ID
			if originID == destID {
				continue
			}
			if el.Status != "OK" || el.Distance == nil || el.Duration == nil {
				missing++
				continue
			}

			entry := domain.DistanceEntry{
				DistanceMeters:  el.Distance.Value,
				DurationSeconds: el.Duration.Value,
				Source:          domain.SourceRemote,
			}
			if el.DurationInTraffic != nil {
				entry.DurationTrafficSeconds = el.DurationInTraffic.Value
			}

			if out[originID] == nil {
				out[originID] = make(map[string]domain.DistanceEntry, len(destinations))
			}
			out[originID][destID] = entry
		}
	}

	return missing, nil
}

// departureParam sends "now" for past or unset departures; the API rejects
// departure times in the past.
func (p *TrafficMatrixProvider) departureParam(departAt time.Time) string {
	if departAt.IsZero() || !departAt.After(p.now()) {
		return "now"
	}
	return strconv.FormatInt(departAt.Unix(), 10)
}

func joinCoords(locs []domain.Location) string {
	parts := make([]string, len(locs))
	for i, l := range locs {
		parts[i] = l.Coordinates.String()
	}
	return strings.Join(parts, "|")
}
