// Package metrics exposes Prometheus collectors for the queue engine. The
// daemon serves them over promhttp only when a metrics bind address is
// configured; the engine itself never opens a port.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsAddedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "camqueue_jobs_added_total",
			Help: "Total number of jobs added to the queue",
		},
	)

	JobsDispatchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "camqueue_jobs_dispatched_total",
			Help: "Total number of jobs handed to the external executor",
		},
	)

	JobsFinishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camqueue_jobs_finished_total",
			Help: "Total number of jobs reaching a terminal status",
		},
		[]string{"outcome"}, // completed, failed, skipped
	)

	PersistenceFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "camqueue_persistence_failures_total",
			Help: "Total number of queue document writes that failed",
		},
	)

	StaleOutcomesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "camqueue_stale_outcomes_total",
			Help: "Total number of executor outcomes ignored by the stale-callback guard",
		},
	)

	WatchdogTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "camqueue_watchdog_timeouts_total",
			Help: "Total number of running jobs failed by the executor watchdog",
		},
	)

	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "camqueue_queue_depth",
			Help: "Current number of jobs in the active queue per status",
		},
		[]string{"status"},
	)

	QueueRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "camqueue_queue_running",
			Help: "1 while the queue-level running flag is set",
		},
	)

	JobDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "camqueue_job_duration_seconds",
			Help:    "Wall time between dispatch and reported outcome",
			Buckets: prometheus.ExponentialBuckets(1, 2, 15), // 1s to ~4.5h
		},
	)
)

// SetQueueDepth replaces the per-status depth gauges with a fresh snapshot.
func SetQueueDepth(counts map[string]int, allStatuses []string) {
	for _, status := range allStatuses {
		QueueDepth.WithLabelValues(status).Set(float64(counts[status]))
	}
}

// SetQueueRunning records the queue-level running flag.
func SetQueueRunning(running bool) {
	if running {
		QueueRunning.Set(1)
		return
	}
	QueueRunning.Set(0)
}
