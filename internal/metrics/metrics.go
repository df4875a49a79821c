package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Library Gauges
	GamesTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "librelauncher_games_total",
		Help: "Total number of games in the registry.",
	})
	CatalogEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "librelauncher_catalog_entries",
		Help: "Number of entries in the loaded catalog index.",
	})
	InFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "librelauncher_tasks_in_flight",
		Help: "Background tasks currently running.",
	}, []string{"kind"}) // kind: details, icon

	// Enrichment
	EnrichTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "librelauncher_enrich_tasks_total",
		Help: "Enrichment task requests by outcome.",
	}, []string{"outcome"}) // outcome: dispatched, deduped, not_needed, no_catalog, no_match, merged, dropped

	SubFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "librelauncher_subfetch_total",
		Help: "Sub-fetch results per attribute.",
	}, []string{"attribute", "status"}) // status: fetched, failed

	EnrichDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "librelauncher_enrich_duration_seconds",
		Help:    "Duration of enrichment units in seconds.",
		Buckets: prometheus.DefBuckets,
	})

	// Persistence
	Flushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "librelauncher_flushes_total",
		Help: "Registry flushes by result.",
	}, []string{"result"}) // result: ok, error

	// Launching
	LaunchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "librelauncher_launch_failures_total",
		Help: "Games that failed to start.",
	})
	PlaySeconds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "librelauncher_play_seconds_total",
		Help: "Accumulated play time recorded this process.",
	})
)

// RecordEnrichDuration records the time taken by one enrichment unit.
func RecordEnrichDuration(start time.Time) {
	EnrichDuration.Observe(time.Since(start).Seconds())
}

// RecordFlush counts a flush outcome.
func RecordFlush(err error) {
	if err != nil {
		Flushes.WithLabelValues("error").Inc()
		return
	}
	Flushes.WithLabelValues("ok").Inc()
}
