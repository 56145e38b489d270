package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CryptoOperations tracks primitive invocations by algorithm and purpose.
	CryptoOperations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crypto",
			Name:      "operations_total",
			Help:      "Total number of cryptographic primitive invocations",
		},
		[]string{"algorithm", "operation"}, // kyber1024|x25519|dilithium5|xeddsa|chacha20poly1305|hkdf_sha3_256, encapsulate|decapsulate|sign|verify|dh|seal|open|derive
	)

	// CryptoErrors tracks primitive failures, always without secret material.
	CryptoErrors = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crypto",
			Name:      "errors_total",
			Help:      "Total number of cryptographic primitive failures",
		},
		[]string{"algorithm", "operation"},
	)

	// CryptoOperationDuration tracks primitive latency, useful for spotting
	// non-constant-time branches during load testing.
	CryptoOperationDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "crypto",
			Name:      "operation_duration_seconds",
			Help:      "Duration of cryptographic primitive invocations",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 18), // 10us to ~2.6s
		},
		[]string{"algorithm", "operation"},
	)

	// KeyRotations tracks identity key rotation events.
	KeyRotations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crypto",
			Name:      "key_rotations_total",
			Help:      "Total number of identity key rotations",
		},
		[]string{"key_type"}, // x25519, dilithium5
	)
)
