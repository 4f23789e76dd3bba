// Package gerzat wires the reconciliation engines behind the HTTP API of
// the Gerzat departure board.
package gerzat

import (
	"context"
	"log"
	"time"

	"github.com/nickdesi/BusTrainGerzat-sub000/board"
	"github.com/nickdesi/BusTrainGerzat-sub000/bus"
	"github.com/nickdesi/BusTrainGerzat-sub000/config"
	"github.com/nickdesi/BusTrainGerzat-sub000/gtfsrt"
	"github.com/nickdesi/BusTrainGerzat-sub000/metrics"
	"github.com/nickdesi/BusTrainGerzat-sub000/schedule"
	"github.com/nickdesi/BusTrainGerzat-sub000/stops"
	"github.com/nickdesi/BusTrainGerzat-sub000/train"
)

// App owns the long-lived state: config, static schedule, reconcilers
// and the train cache. Every request builds fresh reconciliation state
// on top of these immutable inputs.
type App struct {
	Cfg     *config.AppConfig
	Metrics *metrics.Collector

	Schedule *schedule.Table
	Resolver *stops.Resolver
	BusRec   *bus.Reconciler
	TrainRec *train.Reconciler

	feedClient *gtfsrt.Client
	routeSet   map[string]bool
	nowFn      func() time.Time
}

// NewApp loads the schedule table and assembles the reconcilers.
func NewApp(cfg *config.AppConfig) (*App, error) {
	tbl, err := schedule.Load(cfg.Bus.SchedulePath)
	if err != nil {
		return nil, err
	}

	mc := metrics.NewCollector()
	resolver := stops.NewResolver(cfg.StopGroups)

	routeSet := make(map[string]bool, len(cfg.Bus.RouteIDs))
	for _, id := range cfg.Bus.RouteIDs {
		routeSet[id] = true
	}

	trainClient := train.NewClient(
		cfg.Train.BaseURL,
		cfg.Train.StationID,
		cfg.Train.APIKey,
		cfg.Train.Count,
		time.Duration(cfg.Train.TimeoutMS)*time.Millisecond,
	)

	return &App{
		Cfg:      cfg,
		Metrics:  mc,
		Schedule: tbl,
		Resolver: resolver,
		BusRec: bus.NewReconciler(resolver, bus.Config{
			MatchWindowHours: cfg.Reconcile.MatchWindowHours,
			HubName:          cfg.Reconcile.HubName,
			TerminusName:     cfg.Reconcile.TerminusName,
			PaturalGroup:     cfg.Reconcile.PaturalGroup,
		}, mc),
		TrainRec: train.NewReconciler(
			trainClient,
			train.NewCache(time.Duration(cfg.Train.CacheTTLSec)*time.Second),
			mc,
		),
		feedClient: gtfsrt.NewClient(time.Duration(cfg.Bus.TimeoutMS) * time.Millisecond),
		routeSet:   routeSet,
		nowFn:      time.Now,
	}, nil
}

// BusBoard runs one bus reconciliation pass against a fresh feed fetch.
func (a *App) BusBoard(ctx context.Context) ([]bus.Update, int64) {
	now := a.nowFn().Unix()
	updates := a.fetchTripUpdates(ctx, now)

	start := a.nowFn()
	out, ts := a.BusRec.Reconcile(a.Schedule.Entries(), updates, now)
	a.Metrics.ReconcileDuration.WithLabelValues("bus").Observe(a.nowFn().Sub(start).Seconds())
	a.Metrics.ReconciledEntries.WithLabelValues("bus").Set(float64(len(out)))
	return out, ts
}

func (a *App) fetchTripUpdates(ctx context.Context, now int64) map[string]*gtfsrt.TripUpdate {
	a.Metrics.FeedFetches.WithLabelValues("trip_updates").Inc()
	raw, err := a.feedClient.Fetch(ctx, a.Cfg.Bus.TripUpdatesURL)
	if err != nil {
		a.Metrics.FeedFetchErrs.WithLabelValues("trip_updates").Inc()
		log.Printf("[bus] trip updates fetch failed: %v", err)
		return nil
	}
	updates, stats := gtfsrt.DecodeTripUpdates(raw, gtfsrt.DecodeOptions{
		RouteIDs: a.routeSet,
		Now:      now,
	})
	a.recordDecodeStats("trip_updates", stats)
	return updates
}

// Vehicles returns the current live vehicle positions.
func (a *App) Vehicles(ctx context.Context) ([]gtfsrt.VehiclePosition, error) {
	now := a.nowFn().Unix()
	a.Metrics.FeedFetches.WithLabelValues("vehicle_positions").Inc()
	raw, err := a.feedClient.Fetch(ctx, a.Cfg.Bus.VehiclePositionsURL)
	if err != nil {
		a.Metrics.FeedFetchErrs.WithLabelValues("vehicle_positions").Inc()
		log.Printf("[bus] vehicle positions fetch failed: %v", err)
		return nil, err
	}
	positions, stats := gtfsrt.DecodeVehiclePositions(raw, gtfsrt.DecodeOptions{
		RouteIDs: a.routeSet,
		Now:      now,
	})
	a.recordDecodeStats("vehicle_positions", stats)
	return positions, nil
}

func (a *App) recordDecodeStats(feed string, stats gtfsrt.DecodeStats) {
	if stats.DecodeFailed {
		a.Metrics.FeedDecodeErrs.WithLabelValues(feed).Inc()
	}
	if stats.Stale {
		a.Metrics.StaleFeedDrops.Inc()
	}
	for i := 0; i < stats.GhostCancels; i++ {
		a.Metrics.GhostCancels.Inc()
	}
}

// TrainBoard runs one train reconciliation pass (cache permitting).
func (a *App) TrainBoard(ctx context.Context) train.Result {
	start := a.nowFn()
	res := a.TrainRec.Reconcile(ctx)
	a.Metrics.ReconcileDuration.WithLabelValues("train").Observe(a.nowFn().Sub(start).Seconds())
	return res
}

// FullBoard produces the combined departures/arrivals projection.
func (a *App) FullBoard(ctx context.Context) board.Board {
	buses, _ := a.BusBoard(ctx)
	trains := a.TrainBoard(ctx)
	line := ""
	if len(a.Cfg.Bus.RouteIDs) > 0 {
		line = a.Cfg.Bus.RouteIDs[0]
	}
	return board.Build(buses, trains.Updates, board.Options{BusLine: line})
}

// TripLookup reconciles and returns the record for one trip id. The
// second return value is false when neither the schedule nor the feed
// knows the trip.
func (a *App) TripLookup(ctx context.Context, tripID string) (bus.Update, bool) {
	updates, _ := a.BusBoard(ctx)
	for _, u := range updates {
		if u.TripID == tripID {
			return u, true
		}
	}
	if entries := a.Schedule.TripEntries(tripID); len(entries) > 0 {
		e := entries[0]
		return bus.Update{
			TripID:    e.TripID,
			Arrival:   e.Arrival,
			Departure: e.Departure,
			Headsign:  e.Headsign,
			Direction: e.Direction,
			Origin:    "schedule",
		}, true
	}
	return bus.Update{}, false
}
