package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/ratelimit"
	"golang.org/x/sync/errgroup"

	b4errors "github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/errors"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/internal/logger"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/internal/metrics"
)

// GlobalTrafficScheduler is the single process-wide dispatcher sitting
// between every session's encrypted output and the transport. Construct
// exactly one per process (see NewGlobalScheduler); sessions enqueue
// into it, they never write to the wire directly.
type GlobalTrafficScheduler struct {
	config Config
	send   func(entry SchedulerQueueEntry) error

	mu          sync.Mutex
	queue       []SchedulerQueueEntry
	queueBytes  int64
	recentKinds []bool // true = real, for the sliding cover-traffic window

	limiter ratelimit.Limiter
	log     logger.Logger

	stopOnce sync.Once
	cancel   context.CancelFunc
	group    *errgroup.Group
}

// NewGlobalScheduler constructs a scheduler. send is the sink invoked
// by the dispatcher for every emission (real or dummy) and is expected
// to write it to the transport; its error is logged and does not stop
// the dispatcher, matching the scheduler's role as best-effort cover
// for transport-layer delivery, which the ratchet layer/transport
// reliability (or lack of it) already accounts for.
func NewGlobalScheduler(config Config, send func(entry SchedulerQueueEntry) error) *GlobalTrafficScheduler {
	config = config.normalized()
	return &GlobalTrafficScheduler{
		config:  config,
		send:    send,
		limiter: ratelimit.New(int(config.TargetRate)),
		log:     logger.GetDefaultLogger(),
	}
}

// Start launches the background dispatcher. It returns once the
// dispatcher goroutine is running; call Shutdown to stop it.
func (s *GlobalTrafficScheduler) Start(ctx context.Context) {
	dispatchCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	group, groupCtx := errgroup.WithContext(dispatchCtx)
	s.group = group
	group.Go(func() error {
		s.dispatchLoop(groupCtx)
		return nil
	})
}

// Enqueue submits a real message for dispatch, respecting the bounded
// queue depth and memory cap. It returns a Backpressure error rather
// than blocking indefinitely, per the configured policy; callers that
// want to block do so themselves around the call.
func (s *GlobalTrafficScheduler) Enqueue(sessionID [32]byte, paddedCiphertext []byte) error {
	entry := SchedulerQueueEntry{
		SessionID:        sessionID,
		PaddedCiphertext: paddedCiphertext,
		EnqueueTimestamp: time.Now(),
		IsReal:           true,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) >= s.config.MaxQueueDepth || s.queueBytes+int64(entry.approxSize()) > s.config.MaxMemoryBytes {
		metrics.SchedulerBackpressure.Inc()
		return b4errors.New(b4errors.Backpressure, "scheduler queue depth or memory bound exceeded")
	}

	s.queue = append(s.queue, entry)
	s.queueBytes += int64(entry.approxSize())
	metrics.SchedulerQueueDepth.Set(float64(len(s.queue)))
	metrics.SchedulerQueueBytes.Set(float64(s.queueBytes))
	return nil
}

// Shutdown stops the dispatcher. If the scheduler was configured with
// DrainOnShutdown, it first emits every queued entry at the configured
// rate; otherwise it aborts immediately. Either way, every remaining
// queued ciphertext is zeroized before being dropped. Idempotent.
func (s *GlobalTrafficScheduler) Shutdown(ctx context.Context) {
	s.stopOnce.Do(func() {
		if s.config.DrainOnShutdown {
			s.drain(ctx)
		}
		if s.cancel != nil {
			s.cancel()
		}
		if s.group != nil {
			_ = s.group.Wait()
		}
		s.zeroizeRemaining()
	})
}

func (s *GlobalTrafficScheduler) drain(ctx context.Context) {
	for {
		entry, ok := s.pop()
		if !ok {
			return
		}
		s.limiter.Take()
		if err := s.send(entry); err != nil {
			s.log.Error("scheduler drain emission failed", logger.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (s *GlobalTrafficScheduler) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.limiter.Take()

		entry := s.nextEntry()
		start := time.Now()
		if err := s.send(entry); err != nil {
			s.log.Error("scheduler emission failed", logger.Error(err))
		}
		metrics.SchedulerEmissionInterval.Observe(time.Since(start).Seconds())
		kind := "dummy"
		if entry.IsReal {
			kind = "real"
		}
		metrics.SchedulerDispatched.WithLabelValues(kind).Inc()
		s.recordDispatchKind(entry.IsReal)
	}
}

// nextEntry chooses the next entry to dispatch: a real one if available
// and the cover-traffic budget is already satisfied, a dummy otherwise
// (either because the queue is empty or because emitting the queued
// real message now would undershoot the budget).
func (s *GlobalTrafficScheduler) nextEntry() SchedulerQueueEntry {
	s.mu.Lock()
	haveReal := len(s.queue) > 0
	mustCover := s.coverRatioLocked() < s.config.CoverTrafficBudget
	s.mu.Unlock()

	if haveReal && !mustCover {
		entry, ok := s.pop()
		if ok {
			return entry
		}
	}

	dummy, err := generateDummyEntry()
	if err != nil {
		// Entropy failure: fall back to a real entry if one is queued
		// rather than blocking the dispatcher loop.
		if entry, ok := s.pop(); ok {
			return entry
		}
		return SchedulerQueueEntry{IsReal: false}
	}
	return dummy
}

func (s *GlobalTrafficScheduler) pop() (SchedulerQueueEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return SchedulerQueueEntry{}, false
	}
	entry := s.queue[0]
	s.queue = s.queue[1:]
	s.queueBytes -= int64(entry.approxSize())
	metrics.SchedulerQueueDepth.Set(float64(len(s.queue)))
	metrics.SchedulerQueueBytes.Set(float64(s.queueBytes))
	return entry, true
}

func (s *GlobalTrafficScheduler) recordDispatchKind(isReal bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recentKinds = append(s.recentKinds, isReal)
	if len(s.recentKinds) > s.config.CoverWindowSize {
		s.recentKinds = s.recentKinds[len(s.recentKinds)-s.config.CoverWindowSize:]
	}
	metrics.SchedulerCoverRatio.Set(1 - s.ratioOfLocked(true))
}

// coverRatioLocked returns the fraction of recent dispatches that were
// dummies; callers must hold s.mu.
func (s *GlobalTrafficScheduler) coverRatioLocked() float64 {
	return 1 - s.ratioOfLocked(true)
}

func (s *GlobalTrafficScheduler) ratioOfLocked(real bool) float64 {
	if len(s.recentKinds) == 0 {
		return 0
	}
	count := 0
	for _, k := range s.recentKinds {
		if k == real {
			count++
		}
	}
	return float64(count) / float64(len(s.recentKinds))
}

func (s *GlobalTrafficScheduler) zeroizeRemaining() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.queue {
		for j := range s.queue[i].PaddedCiphertext {
			s.queue[i].PaddedCiphertext[j] = 0
		}
	}
	s.queue = nil
	s.queueBytes = 0
}
