// Package audit implements the write-only security-event sink named in
// the design's collaborator interfaces: a sink that never receives key
// material, only hashed identifiers and an event classification, so it
// can be handed to an external logging/SIEM pipeline without becoming a
// secret-leak surface.
package audit

import (
	"crypto/sha256"
	"time"
)

// EventKind classifies one security-sensitive occurrence.
type EventKind string

const (
	// EventModeDowngradeSuspected fires when a signature verification
	// failure occurs in a way consistent with a mode-downgrade attempt
	// (distinct from an ordinary transmission-corrupted signature only
	// in that it is reported here rather than merely surfaced as
	// errors.AuthenticationFailed to the caller).
	EventModeDowngradeSuspected EventKind = "mode_downgrade_suspected"
	// EventCookieChallengeFailed fires on a failed stateless cookie
	// verification; repeated occurrences from the same peer indicate a
	// DoS probe.
	EventCookieChallengeFailed EventKind = "cookie_challenge_failed"
	// EventReplayDetected fires when the Bloom filter or ratchet skip
	// window rejects a message as a replay.
	EventReplayDetected EventKind = "replay_detected"
)

// Event is one audit record. It carries no secret: HashedPeerID and
// HashedSessionID are one-way hashes, never the raw identifiers or any
// key material.
type Event struct {
	Kind            EventKind
	HashedPeerID    [32]byte
	HashedSessionID [32]byte
	Timestamp       time.Time
}

// Sink is the minimal write-only collaborator interface; a production
// deployment backs it with a SIEM pipeline, a log shipper, or similar.
// It must never be asked to return or look up anything: writes only.
type Sink interface {
	Record(event Event)
}

// HashIdentifier is the one-way transform applied to a raw peer or
// session identifier before it reaches a Sink. It is deliberately
// unsalted and unkeyed: the goal is only to avoid emitting the raw
// identifier in logs, not to provide a security boundary of its own.
func HashIdentifier(raw []byte) [32]byte {
	return sha256.Sum256(raw)
}

// NopSink discards every event. It is the default used by components
// that are not configured with an explicit Sink, so that audit
// reporting is always safe to call unconditionally.
type NopSink struct{}

func (NopSink) Record(Event) {}
