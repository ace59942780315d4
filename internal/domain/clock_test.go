package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{"08:00", 480, false},
		{"12:30", 750, false},
		{"24:00", 1440, false},
		{"7:05", 425, false},
		{"24:01", 0, true},
		{"12:60", 0, true},
		{"noon", 0, true},
		{"", 0, true},
	}

	for _, tc := range cases {
		got, err := ParseClock(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseClock(%q) = %v, want error", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseClock(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseClock(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestClockOnKeepsLocation(t *testing.T) {
	loc := time.FixedZone("ECT", -5*3600)
	day := time.Date(2026, 3, 2, 15, 47, 0, 0, loc)

	got := MustClock("08:15").On(day)
	want := time.Date(2026, 3, 2, 8, 15, 0, 0, loc)
	if !got.Equal(want) || got.Location() != loc {
		t.Fatalf("On = %v, want %v", got, want)
	}
	if ClockOf(got) != MustClock("08:15") {
		t.Fatalf("ClockOf round trip = %s", ClockOf(got))
	}
}

func TestClockJSON(t *testing.T) {
	var w TimeWindow
	if err := json.Unmarshal([]byte(`{"Open":"09:00","Close":"12:30"}`), &w); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Open != MustClock("09:00") || w.Close != MustClock("12:30") {
		t.Fatalf("window = %+v", w)
	}

	b, err := json.Marshal(w.Close)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != `"12:30"` {
		t.Fatalf("marshal = %s, want \"12:30\"", b)
	}

	if err := json.Unmarshal([]byte(`{"Open":"9h"}`), &w); err == nil {
		t.Fatalf("expected error for malformed clock")
	}
}
