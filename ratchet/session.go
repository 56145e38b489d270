package ratchet

import (
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/audit"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/internal/metrics"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/padding"
)

// Session wraps an Engine with PADMÉ length-hiding padding, the form in
// which the façade package and transport actually exchange application
// data: callers pass and receive exact-length plaintexts, never the
// padded bucket.
type Session struct {
	engine *Engine
}

// NewSession wraps an already-constructed Engine (see NewEngine) for
// padded application traffic.
func NewSession(engine *Engine) *Session {
	return &Session{engine: engine}
}

// SetAudit wires a security-event sink (replay detections) into the
// underlying Engine.
func (s *Session) SetAudit(sink audit.Sink) {
	s.engine.SetAudit(sink)
}

// Encrypt pads plaintext to its PADMÉ bucket, then ratchet-encrypts it.
func (s *Session) Encrypt(plaintext []byte) (*RatchetMessage, error) {
	padded, originalLength, err := padding.Pad(plaintext)
	if err != nil {
		return nil, err
	}
	msg, err := s.engine.EncryptNext(padded)
	if err != nil {
		return nil, err
	}
	msg.PlaintextLength = uint32(originalLength)
	return msg, nil
}

// Decrypt ratchet-decrypts msg, then strips its PADMÉ padding back down
// to the sender's original length.
func (s *Session) Decrypt(msg *RatchetMessage) ([]byte, error) {
	padded, err := s.engine.Decrypt(msg)
	if err != nil {
		return nil, err
	}
	return padding.Unpad(padded, int(msg.PlaintextLength))
}

// Close zeroizes the underlying ratchet state, making the session
// permanently unusable. Safe to call more than once.
func (s *Session) Close() {
	s.engine.mu.Lock()
	defer s.engine.mu.Unlock()

	zero(s.engine.root[:])
	zero(s.engine.send.key[:])
	zero(s.engine.recv.key[:])
	if s.engine.ownKyber != nil {
		s.engine.ownKyber.Zero()
	}
	if s.engine.ownX25519 != nil {
		s.engine.ownX25519.Zero()
	}
	s.engine.skip.clear()

	metrics.SessionsClosed.WithLabelValues("closed").Inc()
}
