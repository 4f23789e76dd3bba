// Package metrics exposes the prometheus collectors shared by the feed
// decoders and reconciliation engines.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	FeedFetches      *prometheus.CounterVec // feed label: trip_updates|vehicle_positions|sncf
	FeedFetchErrs    *prometheus.CounterVec
	FeedDecodeErrs   *prometheus.CounterVec
	StaleFeedDrops   prometheus.Counter
	GhostCancels     prometheus.Counter
	FuzzyTripMatches prometheus.Counter

	ReconcileDuration   *prometheus.HistogramVec // engine label: bus|train
	ReconciledEntries   *prometheus.GaugeVec
	CancelledSuppressed prometheus.Counter

	TrainCacheHits   prometheus.Counter
	TrainCacheStale  prometheus.Counter
	TrainRateLimited prometheus.Counter

	StreamClients prometheus.Gauge
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		FeedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gerzat_feed_fetches_total",
			Help: "Total upstream feed fetch attempts.",
		}, []string{"feed"}),
		FeedFetchErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gerzat_feed_fetch_errors_total",
			Help: "Total upstream feed fetch failures after retries.",
		}, []string{"feed"}),
		FeedDecodeErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gerzat_feed_decode_errors_total",
			Help: "Total feed payloads that failed to decode.",
		}, []string{"feed"}),
		StaleFeedDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gerzat_stale_feed_drops_total",
			Help: "Feeds discarded because the header timestamp exceeded the staleness cutoff.",
		}),
		GhostCancels: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gerzat_ghost_cancellations_total",
			Help: "CANCELED trips overridden to not-cancelled because they still carried live stop data.",
		}),
		FuzzyTripMatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gerzat_fuzzy_trip_matches_total",
			Help: "Trip matches made via the stripped service-id pattern instead of the exact trip id.",
		}),
		ReconcileDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gerzat_reconcile_duration_seconds",
			Help:    "Duration of a reconciliation pass.",
			Buckets: prometheus.DefBuckets,
		}, []string{"engine"}),
		ReconciledEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gerzat_reconciled_entries",
			Help: "Entries produced by the last reconciliation pass.",
		}, []string{"engine"}),
		CancelledSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gerzat_cancellations_suppressed_total",
			Help: "Cancelled entries hidden because a replacement ran within the dedup window.",
		}),
		TrainCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gerzat_train_cache_hits_total",
			Help: "Train requests served from the fresh cache.",
		}),
		TrainCacheStale: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gerzat_train_cache_stale_serves_total",
			Help: "Train requests served from an expired cache entry after a rate limit.",
		}),
		TrainRateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gerzat_train_rate_limited_total",
			Help: "Rate-limit responses received from the SNCF API.",
		}),
		StreamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gerzat_stream_clients",
			Help: "Currently connected SSE clients.",
		}),
	}

	reg.MustRegister(
		c.FeedFetches, c.FeedFetchErrs, c.FeedDecodeErrs,
		c.StaleFeedDrops, c.GhostCancels, c.FuzzyTripMatches,
		c.ReconcileDuration, c.ReconciledEntries, c.CancelledSuppressed,
		c.TrainCacheHits, c.TrainCacheStale, c.TrainRateLimited,
		c.StreamClients,
	)
	return c
}

// Handler returns the /metrics HTTP handler for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
