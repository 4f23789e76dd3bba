// Package gtfsrt decodes GTFS-Realtime feed messages into per-trip
// updates restricted to the routes of interest. Decode failures and stale
// feeds degrade to an empty result; callers treat empty as "no realtime
// data", never as an error.
package gtfsrt

import (
	"log"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// StalenessCutoffSeconds is the hard cutoff for feed header age. A feed
// older than this is discarded wholesale rather than served.
const StalenessCutoffSeconds = 300

// ghostCancelMinStops is the stop-update count above which a CANCELED
// trip that still carries non-skipped stop data is treated as a feed
// mis-flag and kept alive.
const ghostCancelMinStops = 5

// DecodeOptions scope a decode pass.
type DecodeOptions struct {
	// RouteIDs is the allowlist; empty means accept every route.
	RouteIDs map[string]bool
	// Now is the decode timestamp used for the staleness guard.
	Now int64
	// StalenessCutoff overrides StalenessCutoffSeconds when positive.
	StalenessCutoff int64
}

// DecodeStats reports what happened during a decode pass so the caller
// can feed its metrics without the decoder depending on them.
type DecodeStats struct {
	Stale        bool
	DecodeFailed bool
	GhostCancels int
	Entities     int
}

func (o DecodeOptions) cutoff() int64 {
	if o.StalenessCutoff > 0 {
		return o.StalenessCutoff
	}
	return StalenessCutoffSeconds
}

func (o DecodeOptions) routeAllowed(routeID string) bool {
	if len(o.RouteIDs) == 0 {
		return true
	}
	return o.RouteIDs[routeID]
}

// DecodeTripUpdates decodes a binary trip-updates feed into a map keyed
// by trip id. Errors never propagate: a malformed payload or a stale feed
// yields an empty map.
func DecodeTripUpdates(raw []byte, opts DecodeOptions) (map[string]*TripUpdate, DecodeStats) {
	var stats DecodeStats
	updates := map[string]*TripUpdate{}
	if len(raw) == 0 {
		return updates, stats
	}

	var fm gtfsrtpb.FeedMessage
	if err := proto.Unmarshal(raw, &fm); err != nil {
		log.Printf("[gtfsrt] trip updates decode failed: %v", err)
		stats.DecodeFailed = true
		return updates, stats
	}

	if isStale(&fm, opts) {
		log.Printf("[gtfsrt] discarding stale trip-updates feed (header %d, now %d)",
			fm.GetHeader().GetTimestamp(), opts.Now)
		stats.Stale = true
		return updates, stats
	}

	for _, e := range fm.Entity {
		tu := e.GetTripUpdate()
		if tu == nil || tu.GetTrip() == nil || tu.GetTrip().GetTripId() == "" {
			continue
		}
		trip := tu.GetTrip()
		if !opts.routeAllowed(trip.GetRouteId()) {
			continue
		}
		stats.Entities++

		rel := ScheduleRelationship(trip.GetScheduleRelationship())
		u := &TripUpdate{
			TripID:       trip.GetTripId(),
			RouteID:      trip.GetRouteId(),
			DirectionID:  int(trip.GetDirectionId()),
			StartDate:    trip.GetStartDate(),
			Relationship: rel,
			IsAdded:      rel == RelAdded || rel == RelUnscheduled,
			IsCancelled:  rel == RelCanceled,
			StopUpdates:  map[string]StopTimeUpdate{},
		}

		skippedCount := 0
		for _, stu := range tu.GetStopTimeUpdate() {
			stopID := stu.GetStopId()
			if stopID == "" {
				continue
			}
			su := StopTimeUpdate{
				Skipped: int32(stu.GetScheduleRelationship()) == stopRelSkipped,
			}
			if su.Skipped {
				skippedCount++
			}
			if a := stu.GetArrival(); a != nil {
				if a.Time != nil {
					su.Arrival = a.GetTime()
				}
				su.Delay = a.GetDelay()
			}
			if d := stu.GetDeparture(); d != nil {
				if d.Time != nil {
					su.Departure = d.GetTime()
				}
				if su.Delay == 0 {
					su.Delay = d.GetDelay()
				}
			}
			if su.Arrival != 0 {
				su.PredictedTime = su.Arrival
			} else {
				su.PredictedTime = su.Departure
			}
			if su.Delay != 0 {
				u.Delay = su.Delay
			}
			u.StopOrder = append(u.StopOrder, stopID)
			u.StopUpdates[stopID] = su
		}

		// Ghost-cancellation correction: the upstream feed sometimes
		// flags trips CANCELED while still streaming valid predictions
		// for most of their stops.
		if u.IsCancelled && len(u.StopOrder) > ghostCancelMinStops && skippedCount < len(u.StopOrder) {
			u.IsCancelled = false
			stats.GhostCancels++
		}

		updates[u.TripID] = u
	}
	return updates, stats
}

// DecodeVehiclePositions decodes a binary vehicle-positions feed,
// restricted to the allowlisted routes.
func DecodeVehiclePositions(raw []byte, opts DecodeOptions) ([]VehiclePosition, DecodeStats) {
	var stats DecodeStats
	if len(raw) == 0 {
		return nil, stats
	}

	var fm gtfsrtpb.FeedMessage
	if err := proto.Unmarshal(raw, &fm); err != nil {
		log.Printf("[gtfsrt] vehicle positions decode failed: %v", err)
		stats.DecodeFailed = true
		return nil, stats
	}

	if isStale(&fm, opts) {
		log.Printf("[gtfsrt] discarding stale vehicle-positions feed (header %d, now %d)",
			fm.GetHeader().GetTimestamp(), opts.Now)
		stats.Stale = true
		return nil, stats
	}

	var out []VehiclePosition
	for _, e := range fm.Entity {
		v := e.GetVehicle()
		if v == nil || v.GetPosition() == nil {
			continue
		}
		routeID := v.GetTrip().GetRouteId()
		if !opts.routeAllowed(routeID) {
			continue
		}
		stats.Entities++
		out = append(out, VehiclePosition{
			TripID:    v.GetTrip().GetTripId(),
			RouteID:   routeID,
			Latitude:  float64(v.GetPosition().GetLatitude()),
			Longitude: float64(v.GetPosition().GetLongitude()),
			Bearing:   float64(v.GetPosition().GetBearing()),
			Timestamp: int64(v.GetTimestamp()),
		})
	}
	return out, stats
}

func isStale(fm *gtfsrtpb.FeedMessage, opts DecodeOptions) bool {
	header := fm.GetHeader()
	if header == nil || header.Timestamp == nil || opts.Now == 0 {
		return false
	}
	return opts.Now-int64(header.GetTimestamp()) > opts.cutoff()
}
