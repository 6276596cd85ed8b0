// File: internal/metrics/metrics.go
package metrics

import (
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Script dispatch metrics
	ScriptCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "bouncer_script_call_duration_seconds",
		Help: "Duration of atomic state script calls, by script name.",
	}, []string{"script"})
	ScriptReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bouncer_script_reloads_total",
		Help: "The total number of NOSCRIPT-triggered SCRIPT LOAD reloads, by script name.",
	}, []string{"script"})
	ScriptErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bouncer_script_errors_total",
		Help: "The total number of failed script calls, by script name and error kind.",
	}, []string{"script", "kind"})

	// Event metrics
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bouncer_events_published_total",
		Help: "The total number of change events published, by event name.",
	}, []string{"event"})
	EventsThrottled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bouncer_events_throttled_total",
		Help: "The total number of change events suppressed by the publish throttle, by event name.",
	}, []string{"event"})

	// Housekeeper metrics
	HousekeepCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bouncer_housekeep_cycles_total",
		Help: "The total number of completed housekeeping cycles.",
	})
	HousekeepCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "bouncer_housekeep_cycle_duration_seconds",
		Help: "Duration of a full housekeeping cycle.",
	})
	HousekeepRemoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bouncer_housekeep_removed_total",
		Help: "The total number of ids evicted by a housekeeping cycle, by container.",
	}, []string{"container"})
	HousekeepPromoted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bouncer_housekeep_promoted_total",
		Help: "The total number of ids promoted from queue to store by a housekeeping cycle.",
	})
	HousekeepLeaseHeld = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bouncer_housekeep_lease_held",
		Help: "1 if this process currently holds the housekeeping lease, 0 otherwise.",
	})

	// Queue/store size gauges, refreshed by the admission client's status calls.
	StoreSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bouncer_store_size",
		Help: "The current number of admitted ids.",
	})
	QueueSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bouncer_queue_size",
		Help: "The current number of queued ids.",
	})
)

// StartServer starts the HTTP server for Prometheus metrics.
func StartServer(port int, path string) {
	http.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	log.Printf("Starting metrics server on %s%s", addr, path)

	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			log.Fatalf("Failed to start metrics server: %v", err)
		}
	}()
}
