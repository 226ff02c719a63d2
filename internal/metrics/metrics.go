// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MergeRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "invplan",
		Name:      "merge_rows_total",
		Help:      "Fact merge outcomes per source.",
	}, []string{"source", "outcome"})

	SnapshotRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "invplan",
		Name:      "snapshot_rows_total",
		Help:      "Planning snapshot rows written or failed.",
	}, []string{"outcome"})

	SourceFetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "invplan",
		Name:      "source_fetch_failures_total",
		Help:      "Source reads that failed and were skipped for the run.",
	}, []string{"source"})

	FlowUnmatched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "invplan",
		Name:      "flow_unmatched_rows_total",
		Help:      "Order-flow rows that matched no transfer bucket.",
	})

	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "invplan",
		Name:      "run_duration_seconds",
		Help:      "Duration of pipeline phases.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	}, []string{"phase", "status"})

	LastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "invplan",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last fully successful run.",
	})
)

// ObserveRun records how long a phase took.
func ObserveRun(phase, status string, started time.Time) {
	RunDuration.WithLabelValues(phase, status).Observe(time.Since(started).Seconds())
}
