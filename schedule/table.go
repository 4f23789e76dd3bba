// Package schedule holds the static (theoretical) timetable. The table is
// a precomputed artifact generated offline from GTFS static data; this
// package only loads and indexes it.
package schedule

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Entry is one scheduled stop-visit of the hub.
type Entry struct {
	TripID    string `json:"tripId"`
	StopID    string `json:"stopId"`
	Date      string `json:"date"` // YYYYMMDD local service day
	Arrival   int64  `json:"arrival"`
	Departure int64  `json:"departure"`
	Headsign  string `json:"headsign"`
	Direction int    `json:"direction"` // 0 outbound, 1 toward hub
}

// Dwell returns the scheduled stop duration, floored at zero.
func (e Entry) Dwell() int64 {
	d := e.Departure - e.Arrival
	if d < 0 {
		return 0
	}
	return d
}

// Table is the immutable in-memory schedule, sorted by scheduled arrival.
type Table struct {
	entries []Entry
	byTrip  map[string][]int
}

// Load reads the precomputed schedule table from a JSON file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedule table: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse schedule table: %w", err)
	}
	return NewTable(entries), nil
}

// NewTable indexes a set of schedule entries.
func NewTable(entries []Entry) *Table {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Arrival < sorted[j].Arrival })
	t := &Table{entries: sorted, byTrip: make(map[string][]int)}
	for i, e := range sorted {
		t.byTrip[e.TripID] = append(t.byTrip[e.TripID], i)
	}
	return t
}

// Entries returns all entries in scheduled-arrival order.
func (t *Table) Entries() []Entry {
	return t.entries
}

// EntriesFrom returns entries whose scheduled arrival is at or after the
// given timestamp minus the lookback. Iteration order stays stable so
// reconciliation output is deterministic.
func (t *Table) EntriesFrom(now, lookback int64) []Entry {
	cutoff := now - lookback
	i := sort.Search(len(t.entries), func(i int) bool { return t.entries[i].Arrival >= cutoff })
	return t.entries[i:]
}

// TripEntries returns the entries for a trip id, or nil.
func (t *Table) TripEntries(tripID string) []Entry {
	idx := t.byTrip[tripID]
	if len(idx) == 0 {
		return nil
	}
	out := make([]Entry, 0, len(idx))
	for _, i := range idx {
		out = append(out, t.entries[i])
	}
	return out
}

// Len reports the number of entries.
func (t *Table) Len() int { return len(t.entries) }
