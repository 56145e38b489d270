// Package metrics exposes Prometheus instrumentation for the B4AE core.
// No metric ever carries secret key material or raw peer/session
// identifiers; callers pass hashed identifiers and coarse labels only.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "b4ae"

// Registry is the dedicated Prometheus registry for the core. Kept
// separate from prometheus.DefaultRegisterer so embedding applications
// can mount it under their own namespace without collisions.
var Registry = prometheus.NewRegistry()
