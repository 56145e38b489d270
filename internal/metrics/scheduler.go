package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SchedulerQueueDepth tracks the current depth of the global dispatch queue.
	SchedulerQueueDepth = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "queue_depth",
			Help:      "Current number of entries in the global traffic scheduler queue",
		},
	)

	// SchedulerQueueBytes tracks approximate memory held by the queue.
	SchedulerQueueBytes = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "queue_bytes",
			Help:      "Approximate memory in bytes held by queued entries",
		},
	)

	// SchedulerDispatched tracks dispatched entries by kind, used to verify
	// the cover-traffic budget is actually met over time.
	SchedulerDispatched = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "dispatched_total",
			Help:      "Total number of entries dispatched by kind",
		},
		[]string{"kind"}, // real, dummy
	)

	// SchedulerEmissionInterval tracks the actual spacing between dispatches.
	SchedulerEmissionInterval = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "emission_interval_seconds",
			Help:      "Observed interval between consecutive dispatches",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16),
		},
	)

	// SchedulerBackpressure tracks rejections caused by the bounded queue.
	SchedulerBackpressure = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "backpressure_total",
			Help:      "Total number of enqueue attempts rejected due to backpressure",
		},
	)

	// SchedulerCoverRatio tracks the rolling dummy-to-total dispatch ratio.
	SchedulerCoverRatio = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "cover_ratio",
			Help:      "Rolling ratio of dummy dispatches to total dispatches over the configured window",
		},
	)
)
