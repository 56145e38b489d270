package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HandshakesStarted tracks handshakes entering Init.
	HandshakesStarted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handshakes",
			Name:      "started_total",
			Help:      "Total number of handshakes started",
		},
		[]string{"role"}, // initiator, responder
	)

	// HandshakesCompleted tracks handshakes reaching Established or Failed.
	HandshakesCompleted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handshakes",
			Name:      "completed_total",
			Help:      "Total number of handshakes reaching a terminal state",
		},
		[]string{"status"}, // established, failed
	)

	// HandshakeFailures tracks failures by externally visible kind.
	HandshakeFailures = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handshakes",
			Name:      "failures_total",
			Help:      "Total number of handshake failures by reported kind",
		},
		[]string{"kind"}, // cookie_challenge_failed, handshake_failed
	)

	// HandshakePhaseDuration tracks per-phase latency.
	HandshakePhaseDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "handshakes",
			Name:      "phase_duration_seconds",
			Help:      "Duration of each handshake phase transition",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
		[]string{"phase"},
	)

	// CookieChallenges tracks cookie verification outcomes.
	CookieChallenges = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handshakes",
			Name:      "cookie_challenges_total",
			Help:      "Total number of cookie challenge verifications",
		},
		[]string{"outcome"}, // accepted, rejected
	)
)
