package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	b4errors "github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/errors"
)

func TestScheduler_EnqueueRejectsBeyondMaxQueueDepth(t *testing.T) {
	s := NewGlobalScheduler(Config{MaxQueueDepth: 2, TargetRate: 1000}, func(SchedulerQueueEntry) error { return nil })

	var sessionID [32]byte
	require.NoError(t, s.Enqueue(sessionID, []byte("a")))
	require.NoError(t, s.Enqueue(sessionID, []byte("b")))

	err := s.Enqueue(sessionID, []byte("c"))
	require.Error(t, err)
	kind, ok := b4errors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, b4errors.Backpressure, kind)
}

func TestScheduler_DispatchesEnqueuedRealMessages(t *testing.T) {
	var mu sync.Mutex
	var seen []SchedulerQueueEntry
	s := NewGlobalScheduler(Config{TargetRate: 1000, CoverTrafficBudget: 0}, func(entry SchedulerQueueEntry) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, entry)
		return nil
	})

	var sessionID [32]byte
	require.NoError(t, s.Enqueue(sessionID, []byte("payload")))

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	defer cancel()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, entry := range seen {
			if entry.IsReal {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond, "dispatcher must emit the enqueued real message")

	s.Shutdown(context.Background())
}

func TestScheduler_ShutdownIsIdempotentAndZeroizes(t *testing.T) {
	s := NewGlobalScheduler(Config{TargetRate: 1000}, func(SchedulerQueueEntry) error { return nil })

	var sessionID [32]byte
	payload := []byte{1, 2, 3, 4}
	require.NoError(t, s.Enqueue(sessionID, payload))

	s.Shutdown(context.Background())
	s.Shutdown(context.Background()) // must not panic or block

	assert.Empty(t, s.queue)
}
