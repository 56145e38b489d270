package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsEstablished = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "established_total",
			Help:      "Total number of sessions reaching Established",
		},
	)

	SessionsClosed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "closed_total",
			Help:      "Total number of sessions closed",
		},
		[]string{"reason"}, // explicit, ratchet_corrupt
	)

	RatchetSteps = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "ratchet_steps_total",
			Help:      "Total number of asymmetric ratchet steps performed",
		},
	)

	SkippedKeysCached = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "skipped_keys_cached",
			Help:      "Current number of cached out-of-order message keys, summed across sessions",
		},
	)

	MessageOperations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "message_operations_total",
			Help:      "Total number of encrypt/decrypt operations",
		},
		[]string{"operation", "outcome"}, // encrypt|decrypt, success|auth_failed|replay|dummy
	)
)
