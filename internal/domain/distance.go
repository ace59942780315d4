package domain

import "time"

// EntrySource tells which provider produced a distance entry.
type EntrySource string

const (
	SourceRemote EntrySource = "remote"
	SourceCache  EntrySource = "cache"
	SourceLocal  EntrySource = "local_estimate"
)

// DistanceEntry is the travel estimate for one ordered origin/destination pair.
type DistanceEntry struct {
	DistanceMeters         float64
	DurationSeconds        float64
	DurationTrafficSeconds float64
	Source                 EntrySource
}

// TravelTime prefers the traffic-adjusted duration when the provider gave one.
func (e DistanceEntry) TravelTime() time.Duration {
	secs := e.DurationSeconds
	if e.DurationTrafficSeconds > 0 {
		secs = e.DurationTrafficSeconds
	}
	return time.Duration(secs * float64(time.Second))
}

// PairKey identifies a cached lookup. Bucket is the departure time truncated
// to the configured traffic bucket (unix seconds), or 0 when unused.
type PairKey struct {
	Origin      string
	Destination string
	Bucket      int64
}

func (k PairKey) String() string {
	return k.Origin + "|" + k.Destination + "|" + time.Unix(k.Bucket, 0).UTC().Format("20060102T1504")
}

// Degradation records a fidelity loss applied during a run.
type Degradation struct {
	Kind   string
	Pairs  int
	Detail string
}

const (
	DegradationPartialFallback = "remote_partial_fallback"
	DegradationLocalFallback   = "local_estimate_fallback"
	DegradationRemoteDisabled  = "remote_disabled"
	DegradationHoursEstimated  = "business_hours_estimated"
	DegradationSearchTruncated = "search_budget_exhausted"
)

// DistanceMatrix is a dense travel matrix over a fixed list of locations.
// Row/column i refers to Locations[i].
type DistanceMatrix struct {
	Locations    []Location
	Entries      [][]DistanceEntry
	Degradations []Degradation
	index        map[string]int
}

// NewDistanceMatrix allocates an empty matrix over locs.
func NewDistanceMatrix(locs []Location) *DistanceMatrix {
	m := &DistanceMatrix{
		Locations: locs,
		Entries:   make([][]DistanceEntry, len(locs)),
		index:     make(map[string]int, len(locs)),
	}
	for i, l := range locs {
		m.Entries[i] = make([]DistanceEntry, len(locs))
		m.index[l.ID] = i
	}
	return m
}

// IndexOf returns the matrix index of a location id.
func (m *DistanceMatrix) IndexOf(id string) (int, bool) {
	i, ok := m.index[id]
	return i, ok
}

// Between returns the entry for two location ids.
func (m *DistanceMatrix) Between(from, to string) (DistanceEntry, bool) {
	i, ok := m.index[from]
	if !ok {
		return DistanceEntry{}, false
	}
	j, ok := m.index[to]
	if !ok {
		return DistanceEntry{}, false
	}
	return m.Entries[i][j], true
}

// FallbackPairs counts off-diagonal entries that came from the local estimator.
func (m *DistanceMatrix) FallbackPairs() int {
	n := 0
	for i := range m.Entries {
		for j := range m.Entries[i] {
			if i != j && m.Entries[i][j].Source == SourceLocal {
				n++
			}
		}
	}
	return n
}
