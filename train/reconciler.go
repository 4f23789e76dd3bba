// Package train reconciles SNCF base-schedule and realtime departure
// queries into a single list, inferring cancellation from absence within
// the realtime coverage window.
package train

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/nickdesi/BusTrainGerzat-sub000/metrics"
)

// outputLookback trims departures older than this many seconds.
const outputLookback = 60

// API is the slice of Client the reconciler needs; tests substitute a
// fake.
type API interface {
	Authenticated() bool
	Departures(ctx context.Context, freshness string) ([]Departure, error)
}

// Reconciler merges the two freshness variants of the departures query.
type Reconciler struct {
	api   API
	cache *Cache
	mc    *metrics.Collector
	nowFn func() time.Time
}

// NewReconciler creates a train reconciler. The metrics collector may be
// nil (tests).
func NewReconciler(api API, cache *Cache, mc *metrics.Collector) *Reconciler {
	return &Reconciler{api: api, cache: cache, mc: mc, nowFn: time.Now}
}

// Reconcile returns the current train board. It never returns an error:
// failures degrade to an empty (or cached) result carrying an error code.
func (r *Reconciler) Reconcile(ctx context.Context) Result {
	now := r.nowFn()

	if !r.api.Authenticated() {
		return Result{Timestamp: now.Unix(), Code: CodeCredentialsMissing}
	}

	if cached, ok := r.cache.Get(now, false); ok {
		if r.mc != nil {
			r.mc.TrainCacheHits.Inc()
		}
		return cached
	}

	base, errBase := r.api.Departures(ctx, FreshnessBase)
	realtime, errRT := r.api.Departures(ctx, FreshnessRealtime)

	if err := firstError(errBase, errRT); err != nil {
		if errors.Is(err, ErrRateLimited) {
			if r.mc != nil {
				r.mc.TrainRateLimited.Inc()
			}
			// Quota exhausted: the last result beats no result.
			if stale, ok := r.cache.Get(now, true); ok {
				if r.mc != nil {
					r.mc.TrainCacheStale.Inc()
				}
				stale.Degraded = true
				return stale
			}
			return Result{Timestamp: now.Unix(), Code: CodeRateLimited}
		}
		log.Printf("[train] departures fetch failed: %v", err)
		return Result{Timestamp: now.Unix(), Code: CodeFetchFailed}
	}

	result := Result{
		Updates:   merge(base, realtime, now.Unix()),
		Timestamp: now.Unix(),
	}
	r.cache.Put(now, result)
	if r.mc != nil {
		r.mc.ReconciledEntries.WithLabelValues("train").Set(float64(len(result.Updates)))
	}
	return result
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// merge joins base-schedule departures against the realtime set by
// journey id. A base departure missing from realtime is inferred
// cancelled only when its time falls inside the realtime coverage window
// — outside the window it is merely not yet covered ("theoretical").
func merge(base, realtime []Departure, now int64) []Update {
	rtByJourney := make(map[string]Departure, len(realtime))
	var windowMin, windowMax int64
	for _, d := range realtime {
		if d.JourneyID != "" {
			rtByJourney[d.JourneyID] = d
		}
		if d.Departure == 0 {
			continue
		}
		if windowMin == 0 || d.Departure < windowMin {
			windowMin = d.Departure
		}
		if d.Departure > windowMax {
			windowMax = d.Departure
		}
	}

	matched := make(map[string]bool, len(base))
	out := make([]Update, 0, len(base)+len(realtime))
	for _, b := range base {
		u := Update{
			JourneyID:     b.JourneyID,
			Number:        b.Number,
			Network:       b.Network,
			Destination:   b.Destination,
			Platform:      b.Platform,
			Arrival:       b.Arrival,
			Departure:     b.Departure,
			BaseArrival:   b.Arrival,
			BaseDeparture: b.Departure,
		}
		if rt, ok := rtByJourney[b.JourneyID]; ok && b.JourneyID != "" {
			matched[b.JourneyID] = true
			u.IsRealtime = true
			u.IsCancelled = rt.Cancelled
			if rt.Arrival != 0 {
				u.Arrival = rt.Arrival
			}
			if rt.Departure != 0 {
				u.Departure = rt.Departure
			}
			if rt.Platform != "" {
				u.Platform = rt.Platform
			}
			if u.BaseDeparture != 0 && u.Departure != 0 {
				u.Delay = u.Departure - u.BaseDeparture
			}
		} else if windowMin != 0 && b.Departure >= windowMin && b.Departure <= windowMax {
			// The realtime set should have covered this departure.
			u.IsCancelled = true
		}
		out = append(out, u)
	}

	// Realtime departures with no base counterpart: unexpected or added
	// service, shown as realtime.
	for _, d := range realtime {
		if d.JourneyID == "" || matched[d.JourneyID] {
			continue
		}
		out = append(out, Update{
			JourneyID:     d.JourneyID,
			Number:        d.Number,
			Network:       d.Network,
			Destination:   d.Destination,
			Platform:      d.Platform,
			Arrival:       d.Arrival,
			Departure:     d.Departure,
			BaseArrival:   d.Arrival,
			BaseDeparture: d.Departure,
			IsRealtime:    true,
			IsCancelled:   d.Cancelled,
		})
	}

	filtered := out[:0]
	for _, u := range out {
		if u.Departure != 0 && u.Departure < now-outputLookback {
			continue
		}
		filtered = append(filtered, u)
	}
	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Departure < filtered[j].Departure })
	return filtered
}
