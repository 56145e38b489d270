// Package b4ae is the public façade over the protocol core: it wires
// the handshake state machine, the Double Ratchet, PADMÉ padding, and
// the global traffic scheduler behind the small surface an application
// actually drives — NewClient/NewServer to establish a session,
// Session.Encrypt/Decrypt/Close to use it, and Scheduler.Configure to
// tune the shared cover-traffic dispatcher.
package b4ae

import (
	"context"
	"sync"

	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/audit"
	b4crypto "github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto"
	b4errors "github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/errors"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/handshake"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/ratchet"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/replay"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/scheduler"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/transport"
)

// Client establishes outbound sessions for a single local identity and
// authentication mode.
type Client struct {
	inner *handshake.Client
}

// NewClient constructs a Client. localSigner backs the chosen mode's
// signatures (XEdDSA for ModeA, Dilithium5 for ModeB); peerIdentityPublicKey
// is the pre-shared identity key of the responder (identity discovery
// is out of scope).
func NewClient(tr transport.Transport, localSigner b4crypto.Signer, mode handshake.AuthenticationMode, peerIdentityPublicKey []byte) *Client {
	return &Client{inner: handshake.NewClient(tr, localSigner, mode, peerIdentityPublicKey)}
}

// Establish drives the five-phase handshake to completion and returns
// a ready-to-use Session.
func (c *Client) Establish(ctx context.Context, peer transport.Peer, ratchetConfig ratchet.Config) (*Session, error) {
	result, err := c.inner.Initiate(ctx, peer)
	if err != nil {
		return nil, err
	}
	return newSessionFromResult(result, true, ratchetConfig), nil
}

// Server accepts inbound sessions, negotiating whichever authentication
// mode both sides support.
type Server struct {
	inner *handshake.Server
}

// NewServer constructs a Server supporting the given mode-to-identity
// map, with its own cookie-secret rotator for the stateless DoS
// challenge (see replay.NewSecretRotator).
func NewServer(tr transport.Transport, identities map[handshake.AuthenticationMode]b4crypto.Signer, cookies *replay.Verifier) *Server {
	return &Server{inner: handshake.NewServer(tr, identities, cookies)}
}

// Accept drives one full responder handshake and returns a ready-to-use
// Session. peerIdentityPublicKey is the pre-shared identity key the
// initiator is expected to authenticate with.
func (s *Server) Accept(ctx context.Context, peer transport.Peer, peerIdentityPublicKey []byte, ratchetConfig ratchet.Config) (*Session, error) {
	result, err := s.inner.Accept(ctx, peer, peerIdentityPublicKey)
	if err != nil {
		return nil, err
	}
	return newSessionFromResult(result, false, ratchetConfig), nil
}

// Scheduler is the process-wide cover-traffic dispatcher, shared across
// every Session that opts into it via Session.UseScheduler. It starts
// unconfigured; call Configure with a policy before any session tries
// to route traffic through it.
type Scheduler struct {
	send func(sessionID [32]byte, paddedCiphertext []byte) error

	mu    sync.Mutex
	inner *scheduler.GlobalTrafficScheduler
}

// NewScheduler constructs an unconfigured Scheduler. send is the sink
// the dispatcher calls for every emission (real or dummy), expected to
// write it to the transport.
func NewScheduler(send func(sessionID [32]byte, paddedCiphertext []byte) error) *Scheduler {
	return &Scheduler{send: send}
}

// Configure (re)builds the dispatcher with the given policy and starts
// it, replacing and draining-or-aborting any previously running one per
// its own DrainOnShutdown setting.
func (s *Scheduler) Configure(ctx context.Context, config scheduler.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inner != nil {
		s.inner.Shutdown(ctx)
	}
	s.inner = scheduler.NewGlobalScheduler(config, func(entry scheduler.SchedulerQueueEntry) error {
		return s.send(entry.SessionID, entry.PaddedCiphertext)
	})
	s.inner.Start(ctx)
}

// Shutdown stops the dispatcher, if one has been configured.
func (s *Scheduler) Shutdown(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inner != nil {
		s.inner.Shutdown(ctx)
	}
}

func (s *Scheduler) enqueue(sessionID [32]byte, paddedCiphertext []byte) error {
	s.mu.Lock()
	inner := s.inner
	s.mu.Unlock()
	if inner == nil {
		return b4errors.New(b4errors.InternalError, "scheduler used before Configure")
	}
	return inner.Enqueue(sessionID, paddedCiphertext)
}

// Session wraps an established ratchet session with the application
// plaintext API and, when configured, routes its outbound traffic
// through the shared Scheduler instead of a direct send.
type Session struct {
	ratchet   *ratchet.Session
	sessionID [32]byte
	scheduler *Scheduler
}

func newSessionFromResult(result *handshake.Result, initiator bool, ratchetConfig ratchet.Config) *Session {
	engine := ratchet.NewEngine(
		result.MasterSecret,
		result.SessionID,
		initiator,
		result.RatchetOwnKyber,
		result.RatchetOwnX25519,
		result.RatchetPeerKyberPK,
		result.RatchetPeerX25519PK,
		ratchetConfig,
	)
	return &Session{ratchet: ratchet.NewSession(engine), sessionID: result.SessionID}
}

// SetAudit wires a security-event sink (replay detections) into the
// session's ratchet engine. Optional; defaults to a no-op sink.
func (s *Session) SetAudit(sink audit.Sink) {
	s.ratchet.SetAudit(sink)
}

// UseScheduler routes this session's outbound ciphertexts through the
// given Scheduler instead of returning them directly from Encrypt for
// the caller to transmit itself. Both styles are supported; pick one
// per deployment.
func (s *Session) UseScheduler(sched *Scheduler) {
	s.scheduler = sched
}

// Encrypt pads and ratchet-encrypts plaintext. If a scheduler has been
// configured via UseScheduler, the resulting message is also enqueued
// for constant-rate, cover-traffic-mixed dispatch; the caller still
// receives it back for logging/accounting, but should not also send it
// directly to the transport in that mode.
func (s *Session) Encrypt(plaintext []byte) (*ratchet.RatchetMessage, error) {
	msg, err := s.ratchet.Encrypt(plaintext)
	if err != nil {
		return nil, err
	}
	if s.scheduler != nil {
		if err := s.scheduler.enqueue(s.sessionID, encodeForScheduler(msg)); err != nil {
			return msg, err
		}
	}
	return msg, nil
}

// Decrypt ratchet-decrypts and unpads an inbound message.
func (s *Session) Decrypt(msg *ratchet.RatchetMessage) ([]byte, error) {
	return s.ratchet.Decrypt(msg)
}

// Close zeroizes the session's ratchet state. Safe to call more than once.
func (s *Session) Close() {
	s.ratchet.Close()
}

// encodeForScheduler renders a RatchetMessage into the opaque bytes the
// scheduler queues and the dispatcher emits; framing mirrors the wire
// encoding used elsewhere in the core (see handshake/codec.go), kept
// minimal here since the scheduler only needs a byte-string to carry
// and size, not to interpret.
func encodeForScheduler(msg *ratchet.RatchetMessage) []byte {
	out := make([]byte, 0, len(msg.Ciphertext)+len(msg.Tag))
	out = append(out, msg.Ciphertext...)
	out = append(out, msg.Tag[:]...)
	return out
}
