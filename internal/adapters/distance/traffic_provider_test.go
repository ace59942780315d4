package distance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"visit-route-engine/internal/adapters/httpclient"
	"visit-route-engine/internal/domain"
	"visit-route-engine/internal/ports"
)

func loc(id string, lat, lng float64) domain.Location {
	return domain.Location{ID: id, Coordinates: domain.Coordinates{Lat: lat, Lng: lng}}
}

// matrixServer answers every element with distance = 1000*(i+1)+j and a
// fixed traffic duration, except elements listed in notFound.
func matrixServer(t *testing.T, calls *atomic.Int32, notFound map[string]bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != matrixPath {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("key") != "k" {
			t.Errorf("missing api key")
		}
		origins := strings.Split(r.URL.Query().Get("origins"), "|")
		dests := strings.Split(r.URL.Query().Get("destinations"), "|")

		var rows []string
		for i, o := range origins {
			var els []string
			for j, d := range dests {
				if notFound[o+">"+d] {
					els = append(els, `{"status":"ZERO_RESULTS"}`)
					continue
				}
				els = append(els, fmt.Sprintf(
					`{"status":"OK","distance":{"value":%d},"duration":{"value":60},"duration_in_traffic":{"value":90}}`,
					1000*(i+1)+j,
				))
			}
			rows = append(rows, `{"elements":[`+strings.Join(els, ",")+`]}`)
		}
		fmt.Fprintf(w, `{"status":"OK","rows":[%s]}`, strings.Join(rows, ","))
	}))
}

func TestLookupMatrixChunksAtCeiling(t *testing.T) {
	var calls atomic.Int32
	srv := matrixServer(t, &calls, nil)
	defer srv.Close()

	p, err := NewTrafficMatrixProvider(
		httpclient.New(srv.URL, "k"),
		WithMatrixLimits(ports.MatrixLimits{MaxOrigins: 2, MaxDestinations: 2}),
	)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	locs := []domain.Location{loc("a", 1, 1), loc("b", 1, 2), loc("c", 1, 3)}
	rows, err := p.LookupMatrix(context.Background(), locs, locs, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 3x3 with a 2x2 ceiling needs four blocks.
	if got := calls.Load(); got != 4 {
		t.Fatalf("calls = %d, want 4", got)
	}
	if _, ok := rows["a"]["a"]; ok {
		t.Fatalf("diagonal entries must not be returned")
	}
	e := rows["a"]["b"]
	if e.DistanceMeters != 1001 || e.DurationTrafficSeconds != 90 || e.TravelTime() != 90*time.Second {
		t.Fatalf("unexpected entry a->b: %+v", e)
	}
	if len(rows["c"]) != 2 {
		t.Fatalf("row c has %d entries, want 2", len(rows["c"]))
	}
}

func TestLookupMatrixReportsPartialFailures(t *testing.T) {
	var calls atomic.Int32
	a, b := loc("a", 1, 1), loc("b", 1, 2)
	srv := matrixServer(t, &calls, map[string]bool{
		a.Coordinates.String() + ">" + b.Coordinates.String(): true,
	})
	defer srv.Close()

	p, _ := NewTrafficMatrixProvider(httpclient.New(srv.URL, "k"))
	rows, err := p.LookupMatrix(context.Background(), []domain.Location{a, b}, []domain.Location{a, b}, time.Time{})

	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
	if _, ok := rows["a"]["b"]; ok {
		t.Fatalf("a->b should be missing")
	}
	if _, ok := rows["b"]["a"]; !ok {
		t.Fatalf("b->a should still be answered")
	}
}

func TestLookupQuotaExceededIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"OVER_QUERY_LIMIT","error_message":"quota","rows":[]}`)
	}))
	defer srv.Close()

	p, _ := NewTrafficMatrixProvider(httpclient.New(srv.URL, "k"))
	_, err := p.Lookup(context.Background(), loc("a", 1, 1), loc("b", 1, 2), time.Time{})
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
}

func TestDepartureParam(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	p, _ := NewTrafficMatrixProvider(httpclient.New("http://unused", ""))
	p.now = func() time.Time { return now }

	if got := p.departureParam(now.Add(-time.Hour)); got != "now" {
		t.Fatalf("past departure = %q, want now", got)
	}
	future := now.Add(time.Hour)
	if got := p.departureParam(future); got != fmt.Sprint(future.Unix()) {
		t.Fatalf("future departure = %q", got)
	}
}
