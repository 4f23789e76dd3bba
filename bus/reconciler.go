// Package bus merges the static bus schedule with decoded GTFS-RT trip
// updates into the reconciled list shown on the departure board.
package bus

import (
	"log"
	"sort"
	"strings"

	"github.com/nickdesi/BusTrainGerzat-sub000/gtfsrt"
	"github.com/nickdesi/BusTrainGerzat-sub000/metrics"
	"github.com/nickdesi/BusTrainGerzat-sub000/schedule"
	"github.com/nickdesi/BusTrainGerzat-sub000/stops"
)

const (
	// horizonLookback keeps entries whose scheduled arrival is at most
	// this many seconds in the past.
	horizonLookback = 600
	// outputLookback trims the final list to arrivals newer than now
	// minus this margin.
	outputLookback = 60
	// maxEntries caps the board at the soonest trips.
	maxEntries = 20
	// dedupWindow is the replacement-detection window for cancelled
	// entries, in seconds.
	dedupWindow = 20 * 60
	// delayOverrideThreshold guards against feeds reporting delay=0 at a
	// visibly shifted schedule.
	delayOverrideThreshold = 60
)

// Update is one reconciled bus stop-visit. Arrival and Departure are
// always populated, falling back to the scheduled times.
type Update struct {
	TripID      string `json:"tripId"`
	Arrival     int64  `json:"arrival"`
	Departure   int64  `json:"departure"`
	Delay       int32  `json:"delay"`
	IsRealtime  bool   `json:"isRealtime"`
	IsCancelled bool   `json:"isCancelled"`
	Headsign    string `json:"headsign"`
	Direction   int    `json:"direction"`
	Origin      string `json:"origin"` // "schedule" or "added"
}

// Config carries the reconciliation heuristics.
type Config struct {
	// MatchWindowHours bounds the predicted-vs-scheduled drift accepted
	// when validating a trip match without start dates on both sides.
	MatchWindowHours int
	// HubName and TerminusName are the synthesized headsigns for added
	// trips (direction 1 runs toward the hub, direction 0 away from it).
	HubName      string
	TerminusName string
	// PaturalGroup names the stop group served only by the direction-0
	// express pattern.
	PaturalGroup string
}

// Reconciler merges schedule entries with realtime trip updates.
type Reconciler struct {
	resolver *stops.Resolver
	cfg      Config
	mc       *metrics.Collector
}

// NewReconciler creates a bus reconciler. The metrics collector may be
// nil (tests).
func NewReconciler(resolver *stops.Resolver, cfg Config, mc *metrics.Collector) *Reconciler {
	if cfg.MatchWindowHours <= 0 {
		cfg.MatchWindowHours = 12
	}
	return &Reconciler{resolver: resolver, cfg: cfg, mc: mc}
}

// Reconcile merges schedule entries with the current feed cycle and
// returns the board list plus the reconciliation timestamp. Any panic is
// contained: callers get an empty list, never a crash.
func (r *Reconciler) Reconcile(entries []schedule.Entry, updates map[string]*gtfsrt.TripUpdate, now int64) (out []Update, ts int64) {
	ts = now
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[bus] reconciliation panic recovered: %v", rec)
			out = nil
		}
	}()

	added, patterns := partition(updates)

	var merged []Update
	for _, e := range entries {
		if e.Arrival < now-horizonLookback {
			continue
		}
		if r.dropPaturalEntry(e) {
			continue
		}
		merged = append(merged, r.mergeEntry(e, updates, patterns))
	}

	for _, u := range added {
		if a, ok := r.synthesizeAdded(u); ok {
			merged = append(merged, a)
		}
	}

	merged = r.dedupCancellations(merged)

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Arrival < merged[j].Arrival })
	out = make([]Update, 0, len(merged))
	for _, u := range merged {
		if u.Arrival < now-outputLookback {
			continue
		}
		out = append(out, u)
		if len(out) == maxEntries {
			break
		}
	}
	return out, ts
}

// partition splits the feed cycle into added trips (no static
// counterpart) and trip-level updates indexed by stripped pattern for the
// fuzzy fallback. Added trips are ordered by trip id to keep output
// stable.
func partition(updates map[string]*gtfsrt.TripUpdate) (added []*gtfsrt.TripUpdate, patterns map[string][]*gtfsrt.TripUpdate) {
	patterns = map[string][]*gtfsrt.TripUpdate{}
	for _, u := range updates {
		if u.IsAdded {
			added = append(added, u)
			continue
		}
		p := StripServiceID(u.TripID)
		patterns[p] = append(patterns[p], u)
	}
	sort.Slice(added, func(i, j int) bool { return added[i].TripID < added[j].TripID })
	for _, us := range patterns {
		sort.Slice(us, func(i, j int) bool { return us[i].TripID < us[j].TripID })
	}
	return added, patterns
}

// StripServiceID removes the service-id segment (between the first and
// second underscore) from a trip id. Static and realtime feeds assign
// different service-id prefixes to the otherwise-identical trip pattern,
// so "4503_A123_07h10" and "4503_B456_07h10" describe the same run.
// Documented risk: two genuinely distinct trips sharing a stripped
// pattern on the same day would collide; matches made this way are
// counted for monitoring.
func StripServiceID(tripID string) string {
	first := strings.Index(tripID, "_")
	if first < 0 {
		return tripID
	}
	second := strings.Index(tripID[first+1:], "_")
	if second < 0 {
		return tripID
	}
	return tripID[:first] + tripID[first+1+second:]
}

func (r *Reconciler) mergeEntry(e schedule.Entry, updates map[string]*gtfsrt.TripUpdate, patterns map[string][]*gtfsrt.TripUpdate) Update {
	out := Update{
		TripID:    e.TripID,
		Arrival:   e.Arrival,
		Departure: e.Departure,
		Headsign:  e.Headsign,
		Direction: e.Direction,
		Origin:    "schedule",
	}

	u := r.matchTrip(e, updates, patterns)
	if u == nil {
		return out
	}
	if u.IsCancelled {
		out.IsCancelled = true
	}

	su, ok := r.resolver.Resolve(u.StopUpdates, e.StopID)
	if !ok {
		return out
	}

	out.IsRealtime = true
	switch {
	case su.Arrival != 0:
		out.Arrival = su.Arrival
	case su.Departure != 0:
		out.Arrival = su.Departure
	}
	if su.Departure != 0 {
		out.Departure = su.Departure
	} else {
		out.Departure = out.Arrival + e.Dwell()
	}
	out.Delay = su.Delay
	if computed := out.Arrival - e.Arrival; su.Delay == 0 && computed > delayOverrideThreshold {
		out.Delay = int32(computed)
	}
	if su.Skipped {
		out.IsCancelled = true
	}
	return out
}

// matchTrip finds the trip-level update for a schedule entry: exact trip
// id first, then the stripped service-id pattern. A candidate is only
// accepted when its start date agrees with the entry's calendar day, or,
// lacking dates on either side, when some predicted time lies within the
// match window of the scheduled arrival.
func (r *Reconciler) matchTrip(e schedule.Entry, updates map[string]*gtfsrt.TripUpdate, patterns map[string][]*gtfsrt.TripUpdate) *gtfsrt.TripUpdate {
	if u, ok := updates[e.TripID]; ok && !u.IsAdded && r.validMatch(e, u) {
		return u
	}
	for _, u := range patterns[StripServiceID(e.TripID)] {
		if u.TripID == e.TripID {
			continue
		}
		if r.validMatch(e, u) {
			if r.mc != nil {
				r.mc.FuzzyTripMatches.Inc()
			}
			return u
		}
	}
	return nil
}

func (r *Reconciler) validMatch(e schedule.Entry, u *gtfsrt.TripUpdate) bool {
	if e.Date != "" && u.StartDate != "" {
		return e.Date == u.StartDate
	}
	window := int64(r.cfg.MatchWindowHours) * 3600
	for _, su := range u.StopUpdates {
		if su.PredictedTime == 0 {
			continue
		}
		diff := su.PredictedTime - e.Arrival
		if diff < 0 {
			diff = -diff
		}
		if diff <= window {
			return true
		}
	}
	// A cancelled trip may legitimately carry no stop updates at all;
	// with nothing to disprove the match, accept it.
	return len(u.StopUpdates) == 0
}

// dropPaturalEntry applies the express-pattern rule: the Patural stops
// are served only by the direction-0 run, so inbound entries that merely
// list the stop are static noise unless their headsign names it.
func (r *Reconciler) dropPaturalEntry(e schedule.Entry) bool {
	if r.cfg.PaturalGroup == "" || !r.resolver.InGroup(r.cfg.PaturalGroup, e.StopID) {
		return false
	}
	if e.Direction == 0 {
		return false
	}
	return !strings.Contains(strings.ToLower(e.Headsign), strings.ToLower(r.cfg.PaturalGroup))
}

// synthesizeAdded builds a board entry for a trip with no static
// counterpart. The hub stop is the first stop update for outbound runs
// and the last one for inbound runs.
func (r *Reconciler) synthesizeAdded(u *gtfsrt.TripUpdate) (Update, bool) {
	var su gtfsrt.StopTimeUpdate
	var ok bool
	if u.DirectionID == 0 {
		su, ok = u.FirstStop()
	} else {
		su, ok = u.LastStop()
	}
	if !ok || su.PredictedTime == 0 {
		return Update{}, false
	}

	headsign := r.cfg.TerminusName
	if u.DirectionID == 1 {
		headsign = r.cfg.HubName
	}
	out := Update{
		TripID:      u.TripID,
		Arrival:     su.PredictedTime,
		Departure:   su.Departure,
		Delay:       su.Delay,
		IsRealtime:  true,
		IsCancelled: u.IsCancelled,
		Headsign:    headsign,
		Direction:   u.DirectionID,
		Origin:      "added",
	}
	if out.Departure == 0 {
		out.Departure = out.Arrival
	}
	if out.Delay == 0 {
		out.Delay = u.Delay
	}
	return out, true
}

// dedupCancellations hides a cancelled entry when a non-cancelled entry
// with the same direction runs within the dedup window of its arrival:
// the replacement supersedes the cancellation.
func (r *Reconciler) dedupCancellations(updates []Update) []Update {
	out := make([]Update, 0, len(updates))
	for _, u := range updates {
		if !u.IsCancelled {
			out = append(out, u)
			continue
		}
		replaced := false
		for _, v := range updates {
			if v.IsCancelled || v.Direction != u.Direction {
				continue
			}
			diff := v.Arrival - u.Arrival
			if diff < 0 {
				diff = -diff
			}
			if diff <= dedupWindow {
				replaced = true
				break
			}
		}
		if replaced {
			if r.mc != nil {
				r.mc.CancelledSuppressed.Inc()
			}
			continue
		}
		out = append(out, u)
	}
	return out
}
