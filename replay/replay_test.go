package replay

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRotator(t *testing.T) *SecretRotator {
	t.Helper()
	r, err := NewSecretRotator(time.Hour)
	require.NoError(t, err)
	t.Cleanup(r.Stop)
	return r
}

func TestVerifier_AcceptsFreshValidCookie(t *testing.T) {
	rotator := newTestRotator(t)
	verifier := NewVerifier(rotator, 100)

	clientIP := []byte("203.0.113.1")
	var clientRandom [32]byte
	clientRandom[0] = 0xAB

	now := time.Now()
	cookie := IssueCookie(rotator.Current(), clientIP, now, clientRandom)

	assert.NoError(t, verifier.Verify(clientIP, now, clientRandom, cookie))
}

func TestVerifier_RejectsTamperedCookie(t *testing.T) {
	rotator := newTestRotator(t)
	verifier := NewVerifier(rotator, 100)

	clientIP := []byte("203.0.113.1")
	var clientRandom [32]byte
	clientRandom[0] = 0xAB

	now := time.Now()
	cookie := IssueCookie(rotator.Current(), clientIP, now, clientRandom)
	cookie[0] ^= 0xFF

	assert.Error(t, verifier.Verify(clientIP, now, clientRandom, cookie))
}

func TestVerifier_RejectsStaleTimestamp(t *testing.T) {
	rotator := newTestRotator(t)
	verifier := NewVerifier(rotator, 100)

	clientIP := []byte("203.0.113.1")
	var clientRandom [32]byte
	clientRandom[0] = 0xAB

	stale := time.Now().Add(-2 * CookieFreshnessWindow)
	cookie := IssueCookie(rotator.Current(), clientIP, stale, clientRandom)

	err := verifier.Verify(clientIP, stale, clientRandom, cookie)
	require.Error(t, err)
}

func TestVerifier_RejectsReplayedCookie(t *testing.T) {
	rotator := newTestRotator(t)
	verifier := NewVerifier(rotator, 100)

	clientIP := []byte("203.0.113.1")
	var clientRandom [32]byte
	clientRandom[0] = 0xCD

	now := time.Now()
	cookie := IssueCookie(rotator.Current(), clientIP, now, clientRandom)

	require.NoError(t, verifier.Verify(clientIP, now, clientRandom, cookie))
	// A second presentation of the same client_random, even with an
	// otherwise-valid cookie, must be rejected as a replay.
	assert.Error(t, verifier.Verify(clientIP, now, clientRandom, cookie))
}

func TestSecretRotator_GraceWindowAcceptsPreviousSecretBriefly(t *testing.T) {
	rotator := newTestRotator(t)
	verifier := NewVerifier(rotator, 100)

	clientIP := []byte("203.0.113.1")
	var clientRandom [32]byte
	clientRandom[0] = 0xEF

	now := time.Now()
	oldCookie := IssueCookie(rotator.Current(), clientIP, now, clientRandom)

	require.NoError(t, rotator.rotate())

	// Within the grace window, a cookie issued under the now-previous
	// secret still verifies.
	assert.NoError(t, verifier.Verify(clientIP, now, clientRandom, oldCookie))
}

func TestSecretRotator_CandidatesDropPreviousAfterGraceWindow(t *testing.T) {
	rotator := newTestRotator(t)

	require.NoError(t, rotator.rotate())
	require.Len(t, rotator.Candidates(), 2)

	rotator.mu.Lock()
	rotator.activatedAt = time.Now().Add(-2 * CookieFreshnessWindow)
	rotator.mu.Unlock()

	assert.Len(t, rotator.Candidates(), 1)
}

func TestSecretRotator_OnRetireFiresOncePastGraceWindow(t *testing.T) {
	rotator := newTestRotator(t)

	var mu sync.Mutex
	fired := 0
	rotator.SetOnSecretRetired(func() {
		mu.Lock()
		defer mu.Unlock()
		fired++
	})

	require.NoError(t, rotator.rotate())

	// Simulate the grace window having already elapsed, then drive the
	// loop's periodic check directly (same logic loop() runs on each tick).
	rotator.mu.Lock()
	rotator.activatedAt = time.Now().Add(-2 * CookieFreshnessWindow)
	retiring := rotator.hasPrev && time.Since(rotator.activatedAt) >= CookieFreshnessWindow
	if retiring {
		rotator.hasPrev = false
	}
	onRetire := rotator.onRetire
	rotator.mu.Unlock()
	require.True(t, retiring)
	onRetire()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, fired)
}

func TestNewVerifier_ResetsFilterWhenSecretRetires(t *testing.T) {
	rotator := newTestRotator(t)
	verifier := NewVerifier(rotator, 100)

	item := []byte("some-client-random")
	require.False(t, verifier.Filter.InsertIfAbsent(item))
	assert.True(t, verifier.Filter.Contains(item))

	require.NoError(t, rotator.rotate())
	rotator.mu.Lock()
	rotator.activatedAt = time.Now().Add(-2 * CookieFreshnessWindow)
	onRetire := rotator.onRetire
	rotator.mu.Unlock()
	require.NotNil(t, onRetire)
	onRetire()

	assert.False(t, verifier.Filter.Contains(item), "filter must be cleared once NewVerifier's onRetire callback fires")
}
