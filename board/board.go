// Package board projects the reconciled bus and train lists into the
// unified entry shape consumed by the departure/arrival displays.
package board

import (
	"sort"

	"github.com/nickdesi/BusTrainGerzat-sub000/bus"
	"github.com/nickdesi/BusTrainGerzat-sub000/train"
)

// Entry is one row of a display board.
type Entry struct {
	ID            string `json:"id"`
	Type          string `json:"type"` // "bus" or "train"
	Time          int64  `json:"time"`
	ArrivalTime   int64  `json:"arrivalTime"`
	DepartureTime int64  `json:"departureTime"`
	Line          string `json:"line"`
	Destination   string `json:"destination"`
	Provenance    string `json:"provenance,omitempty"`
	Delay         int64  `json:"delay"`
	IsRealtime    bool   `json:"isRealtime"`
	IsCancelled   bool   `json:"isCancelled"`
	Platform      string `json:"platform,omitempty"`
}

// Options configure the projection.
type Options struct {
	// BusLine is the display label of the bus route serving the hub.
	BusLine string
}

// Board carries both display lists.
type Board struct {
	Departures []Entry `json:"departures"`
	Arrivals   []Entry `json:"arrivals"`
}

// Build merges bus and train updates into the two sorted display lists.
// Entries duplicated across sources (same destination, arrival rounded
// to the minute) collapse to the first occurrence.
func Build(buses []bus.Update, trains []train.Update, opts Options) Board {
	entries := make([]Entry, 0, len(buses)+len(trains))
	for _, b := range buses {
		entries = append(entries, Entry{
			ID:            "bus:" + b.TripID,
			Type:          "bus",
			Time:          b.Arrival,
			ArrivalTime:   b.Arrival,
			DepartureTime: b.Departure,
			Line:          opts.BusLine,
			Destination:   b.Headsign,
			Delay:         int64(b.Delay),
			IsRealtime:    b.IsRealtime,
			IsCancelled:   b.IsCancelled,
		})
	}
	for _, t := range trains {
		entries = append(entries, Entry{
			ID:            "train:" + t.JourneyID,
			Type:          "train",
			Time:          t.Departure,
			ArrivalTime:   t.Arrival,
			DepartureTime: t.Departure,
			Line:          t.Number,
			Destination:   t.Destination,
			Provenance:    t.Network,
			Delay:         t.Delay,
			IsRealtime:    t.IsRealtime,
			IsCancelled:   t.IsCancelled,
			Platform:      t.Platform,
		})
	}

	entries = dedupe(entries)

	departures := make([]Entry, len(entries))
	copy(departures, entries)
	sort.SliceStable(departures, func(i, j int) bool {
		return departures[i].DepartureTime < departures[j].DepartureTime
	})

	arrivals := make([]Entry, len(entries))
	copy(arrivals, entries)
	sort.SliceStable(arrivals, func(i, j int) bool {
		return arrivals[i].ArrivalTime < arrivals[j].ArrivalTime
	})

	return Board{Departures: departures, Arrivals: arrivals}
}

type dedupeKey struct {
	minute      int64
	destination string
}

func dedupe(entries []Entry) []Entry {
	seen := map[dedupeKey]bool{}
	out := entries[:0]
	for _, e := range entries {
		key := dedupeKey{minute: (e.ArrivalTime + 30) / 60, destination: e.Destination}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}
