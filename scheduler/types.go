// Package scheduler implements the global unified traffic scheduler
// sitting between session encryption and the wire: a single
// process-wide bounded queue with a constant-rate dispatcher that
// injects cryptographically indistinguishable dummy traffic whenever
// no real message is pending, so that an outside observer cannot infer
// per-session activity from emission timing or volume.
package scheduler

import "time"

// SchedulerQueueEntry is one pending emission. IsReal is an internal
// flag used only to account against the cover-traffic budget; it is
// never serialized onto the wire, where dummy and real entries are
// byte-for-byte indistinguishable.
type SchedulerQueueEntry struct {
	SessionID        [32]byte
	PaddedCiphertext []byte
	EnqueueTimestamp time.Time
	IsReal           bool
}

func (e SchedulerQueueEntry) approxSize() int {
	return len(e.PaddedCiphertext) + 64 // entry overhead estimate
}

// Config tunes the scheduler's rate, bounds, and cover-traffic policy.
type Config struct {
	// TargetRate is the dispatch rate in messages per second. Default 100.
	TargetRate float64
	// MaxQueueDepth bounds the number of entries held at once. Default 10000.
	MaxQueueDepth int
	// MaxMemoryBytes bounds the approximate memory held by queued
	// entries. Default 100MB.
	MaxMemoryBytes int64
	// CoverTrafficBudget is the minimum fraction of emissions, measured
	// over a sliding window, that must be dummies. Default 0.20,
	// configurable up to 1.0.
	CoverTrafficBudget float64
	// CoverWindowSize is the number of recent dispatches over which the
	// cover-traffic budget is measured.
	CoverWindowSize int
	// DrainOnShutdown, if true, drains the queue (respecting rate)
	// before stopping; if false, aborts immediately. Either way,
	// remaining entries are zeroized.
	DrainOnShutdown bool
}

const (
	DefaultTargetRate          = 100.0
	DefaultMaxQueueDepth       = 10000
	DefaultMaxMemoryBytes      = 100 * 1024 * 1024
	DefaultCoverTrafficBudget  = 0.20
	DefaultCoverWindowSize     = 500
)

func (c Config) normalized() Config {
	if c.TargetRate <= 0 {
		c.TargetRate = DefaultTargetRate
	}
	if c.MaxQueueDepth <= 0 {
		c.MaxQueueDepth = DefaultMaxQueueDepth
	}
	if c.MaxMemoryBytes <= 0 {
		c.MaxMemoryBytes = DefaultMaxMemoryBytes
	}
	if c.CoverTrafficBudget <= 0 {
		c.CoverTrafficBudget = DefaultCoverTrafficBudget
	}
	if c.CoverTrafficBudget > 1.0 {
		c.CoverTrafficBudget = 1.0
	}
	if c.CoverWindowSize <= 0 {
		c.CoverWindowSize = DefaultCoverWindowSize
	}
	return c
}
