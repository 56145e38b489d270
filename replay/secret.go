package replay

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/internal/logger"
)

// DefaultRotationInterval is the minimum cadence at which the
// responder's cookie secret is rotated, per spec §4.3 ("at least every 24h").
const DefaultRotationInterval = 24 * time.Hour

// CookieFreshnessWindow bounds both cookie timestamp freshness and the
// grace window during which the previous secret is still accepted.
const CookieFreshnessWindow = 30 * time.Second

// SecretRotator owns the responder's rotating cookie secret. During a
// rotation's grace window, both the current and previous secret verify
// successfully, so in-flight cookies issued just before rotation are
// not rejected.
type SecretRotator struct {
	mu          sync.RWMutex
	current     [32]byte
	previous    [32]byte
	hasPrev     bool
	activatedAt time.Time // when `current` became active
	interval    time.Duration
	onRetire    func() // called once the previous secret ages out of the grace window

	stop chan struct{}
	log  logger.Logger
}

// NewSecretRotator creates a rotator with a fresh secret and starts its
// background rotation loop. Call Stop to halt the loop.
func NewSecretRotator(interval time.Duration) (*SecretRotator, error) {
	if interval <= 0 {
		interval = DefaultRotationInterval
	}
	r := &SecretRotator{interval: interval, stop: make(chan struct{}), log: logger.GetDefaultLogger()}
	if err := r.rotate(); err != nil {
		return nil, err
	}
	go r.loop()
	return r, nil
}

func (r *SecretRotator) loop() {
	ticker := time.NewTicker(r.interval / 24) // check well inside the grace window's resolution
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.mu.Lock()
			due := time.Since(r.activatedAt) >= r.interval
			retiring := r.hasPrev && time.Since(r.activatedAt) >= CookieFreshnessWindow
			if retiring {
				r.hasPrev = false
			}
			onRetire := r.onRetire
			r.mu.Unlock()

			if retiring && onRetire != nil {
				onRetire()
			}
			if due {
				if err := r.rotate(); err != nil {
					r.log.Warn("cookie secret rotation failed", logger.Error(err))
				}
			}
		case <-r.stop:
			return
		}
	}
}

// SetOnSecretRetired wires a callback invoked exactly once per rotation,
// when the previous secret ages out of the grace window and Candidates
// stops returning it. The replay filter uses this to reset itself in
// step with cookie-secret rotation (see spec §3's "Reset/rotated with
// cookie secret" invariant), instead of accumulating client_random
// entries for a full secret lifetime.
func (r *SecretRotator) SetOnSecretRetired(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRetire = fn
}

func (r *SecretRotator) rotate() error {
	var fresh [32]byte
	if _, err := rand.Read(fresh[:]); err != nil {
		return err
	}
	r.mu.Lock()
	firstRotation := r.activatedAt.IsZero()
	if !firstRotation {
		r.previous = r.current
		r.hasPrev = true
	}
	r.current = fresh
	r.activatedAt = time.Now()
	r.mu.Unlock()
	if !firstRotation {
		r.log.Info("cookie secret rotated")
	}
	return nil
}

// Current returns the active secret used to issue new cookies.
func (r *SecretRotator) Current() [32]byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Candidates returns the secrets a verifier must try, current first.
// During the grace window following a rotation both are returned;
// otherwise only the current secret is.
func (r *SecretRotator) Candidates() [][32]byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.hasPrev && time.Since(r.activatedAt) < CookieFreshnessWindow {
		return [][32]byte{r.current, r.previous}
	}
	return [][32]byte{r.current}
}

// Stop halts the background rotation loop. Idempotent.
func (r *SecretRotator) Stop() {
	select {
	case <-r.stop:
	default:
		close(r.stop)
	}
}
