package handshake

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/audit"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto/keys"
	b4errors "github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/errors"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/internal/logger"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/internal/metrics"
	b4crypto "github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/replay"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/schedule"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/transport"
)

// Server drives the responder side of a handshake. A single Server
// may hold identities for both authentication modes and negotiates
// whichever the initiator also supports.
type Server struct {
	Transport  transport.Transport
	Identities map[AuthenticationMode]Signer
	Cookies    *replay.Verifier
	Audit      audit.Sink
	Log        logger.Logger
}

// NewServer constructs a Server supporting the given mode-to-identity map.
// Audit events are discarded by default; set the Audit field to wire in
// a real sink.
func NewServer(tr transport.Transport, identities map[AuthenticationMode]Signer, cookies *replay.Verifier) *Server {
	return &Server{Transport: tr, Identities: identities, Cookies: cookies, Audit: audit.NopSink{}, Log: logger.GetDefaultLogger()}
}

// Accept drives one full handshake attempt from an already-demultiplexed
// peer, blocking until Established or Failed. peerIdentityPublicKey is
// the pre-shared identity key the initiator is expected to authenticate
// with (identity discovery is out of scope; see spec Non-goals).
func (s *Server) Accept(ctx context.Context, peer transport.Peer, peerIdentityPublicKey []byte) (*Result, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, HandshakeTimeout)
		defer cancel()
	}

	metrics.HandshakesStarted.WithLabelValues("responder").Inc()
	start := time.Now()

	result, err := s.run(ctx, peer, peerIdentityPublicKey)
	if err != nil {
		metrics.HandshakesCompleted.WithLabelValues("failed").Inc()
		if kind, ok := b4errors.KindOf(err); ok && kind == b4errors.CookieChallengeFailed {
			metrics.CookieChallenges.WithLabelValues("rejected").Inc()
		}
		s.Log.Warn("responder handshake failed", logger.String("state", Failed.String()), logger.Error(err), logger.Duration("elapsed", time.Since(start)))
		return nil, err
	}
	metrics.HandshakesCompleted.WithLabelValues("established").Inc()
	metrics.HandshakePhaseDuration.WithLabelValues("full").Observe(time.Since(start).Seconds())
	s.Log.Info("responder handshake established", logger.String("state", Established.String()))
	return result, nil
}

func (s *Server) run(ctx context.Context, peer transport.Peer, peerIdentityPublicKey []byte) (*Result, error) {
	transcript := &Transcript{}

	negBody, err := s.recv(ctx, peer, tagModeNegotiation)
	if err != nil {
		return nil, err
	}
	negotiation, err := decodeModeNegotiation(negBody)
	if err != nil {
		return nil, b4errors.Wrap(b4errors.HandshakeFailed, "malformed ModeNegotiation", err)
	}
	transcript.append(encodeModeNegotiation(negotiation))

	selectedMode, mutuallySupported := s.selectMode(negotiation)
	var serverRandom [32]byte
	if _, err := rand.Read(serverRandom[:]); err != nil {
		return nil, b4errors.Wrap(b4errors.InternalError, "failed to generate server random", err)
	}
	selection := ModeSelection{ServerRandom: serverRandom, SelectedMode: selectedMode, Unsupported: !mutuallySupported}
	if err := s.send(ctx, peer, tagModeSelection, encodeModeSelection(selection)); err != nil {
		return nil, err
	}
	transcript.append(encodeModeSelection(selection))
	if !mutuallySupported {
		return nil, b4errors.New(b4errors.HandshakeFailed, "no mutually supported authentication mode")
	}

	clientRandom := negotiation.ClientRandom
	modeBinding := schedule.ModeBinding(clientRandom, serverRandom, byte(selectedMode))

	helloBody, err := s.recv(ctx, peer, tagClientHello)
	if err != nil {
		return nil, err
	}
	hello, err := decodeClientHello(helloBody)
	if err != nil {
		return nil, b4errors.Wrap(b4errors.HandshakeFailed, "malformed ClientHello", err)
	}
	transcript.append(encodeClientHello(hello))

	cookie := replay.IssueCookie(s.Cookies.Secrets.Current(), []byte(peer.String()), time.Now(), clientRandom)
	challenge := CookieChallenge{Cookie: cookie, ServerRandom: serverRandom}
	if err := s.send(ctx, peer, tagCookieChallenge, encodeCookieChallenge(challenge)); err != nil {
		return nil, err
	}
	transcript.append(encodeCookieChallenge(challenge))

	withCookieBody, err := s.recv(ctx, peer, tagClientHelloWithCookie)
	if err != nil {
		return nil, err
	}
	withCookie, err := decodeClientHelloWithCookie(withCookieBody)
	if err != nil {
		return nil, b4errors.Wrap(b4errors.HandshakeFailed, "malformed ClientHelloWithCookie", err)
	}

	// Cookie invalid or expired: drop, no further state created.
	if err := s.Cookies.Verify([]byte(peer.String()), time.Unix(withCookie.Timestamp, 0), clientRandom, withCookie.Cookie); err != nil {
		s.Audit.Record(audit.Event{
			Kind:            audit.EventCookieChallengeFailed,
			HashedPeerID:    audit.HashIdentifier([]byte(peer.String())),
			HashedSessionID: audit.HashIdentifier(clientRandom[:]),
			Timestamp:       time.Now(),
		})
		return nil, err
	}
	metrics.CookieChallenges.WithLabelValues("accepted").Inc()
	transcript.append(encodeClientHelloWithCookie(withCookie))

	// Only past this point does the responder perform signature
	// verification or Kyber decapsulation, per the responder gating
	// invariant in spec §4.4.
	initBody, err := s.recv(ctx, peer, tagHandshakeInit)
	if err != nil {
		return nil, err
	}
	handshakeInit, err := decodeHandshakeInit(initBody)
	if err != nil {
		return nil, b4errors.Wrap(b4errors.HandshakeFailed, "malformed HandshakeInit", err)
	}
	initSigBody := transcript.SignatureBody(modeBinding, tagHandshakeInit)
	if err := VerifyBody(selectedMode, peerIdentityPublicKey, initSigBody, handshakeInit.Signature); err != nil {
		s.Audit.Record(audit.Event{
			Kind:            audit.EventModeDowngradeSuspected,
			HashedPeerID:    audit.HashIdentifier([]byte(peer.String())),
			HashedSessionID: audit.HashIdentifier(clientRandom[:]),
			Timestamp:       time.Now(),
		})
		return nil, err
	}
	transcript.append(encodeHandshakeInit(handshakeInit))

	eph, err := newEphemeral()
	if err != nil {
		return nil, b4errors.Wrap(b4errors.InternalError, "failed to generate ephemeral keys", err)
	}
	defer eph.zero()

	var ephX25519PK [32]byte
	copy(ephX25519PK[:], eph.x25519.PublicKey())

	initiatorKyberPK, err := keys.KyberPublicKeyFromBytes(handshakeInit.InitiatorEphKyberPK)
	if err != nil {
		return nil, b4errors.Wrap(b4errors.HandshakeFailed, "invalid initiator ephemeral kyber key", err)
	}
	ciphertextToInitiator, responderToInitiatorSS, err := keys.EncapsulateTo(initiatorKyberPK)
	if err != nil {
		return nil, b4errors.Wrap(b4errors.InternalError, "kyber encapsulation failed", err)
	}

	x25519SS, err := eph.x25519.SharedSecret(handshakeInit.InitiatorEphX25519PK[:])
	if err != nil {
		return nil, b4errors.Wrap(b4errors.HandshakeFailed, "invalid initiator ephemeral X25519 key", err)
	}

	localSigner := s.Identities[selectedMode]
	responseSigBody := transcript.SignatureBody(modeBinding, tagHandshakeResponse)
	responseSig, err := localSigner.Sign(responseSigBody)
	if err != nil {
		return nil, b4errors.Wrap(b4errors.InternalError, "failed to sign HandshakeResponse", err)
	}
	response := HandshakeResponse{
		ResponderEphKyberPK:  eph.kyber.PublicKey(),
		ResponderEphX25519PK: ephX25519PK,
		KyberCiphertext:      ciphertextToInitiator,
		ModeBinding:          modeBinding,
		Signature:            responseSig,
	}
	if err := s.send(ctx, peer, tagHandshakeResponse, encodeHandshakeResponse(response)); err != nil {
		return nil, err
	}
	transcript.append(encodeHandshakeResponse(response))

	completeBody, err := s.recv(ctx, peer, tagHandshakeComplete)
	if err != nil {
		return nil, err
	}
	complete, err := decodeHandshakeComplete(completeBody)
	if err != nil {
		return nil, b4errors.Wrap(b4errors.HandshakeFailed, "malformed HandshakeComplete", err)
	}

	completeSigBody := transcript.SignatureBody(modeBinding, tagHandshakeComplete)
	if err := VerifyBody(selectedMode, peerIdentityPublicKey, completeSigBody, complete.Signature); err != nil {
		return nil, err
	}

	initiatorToResponderSS, err := eph.kyber.Decapsulate(complete.InitiatorKyberCiphertext)
	if err != nil {
		return nil, b4errors.Wrap(b4errors.HandshakeFailed, "kyber decapsulation failed", err)
	}

	hybridSS, masterSecret := deriveHybridAndMaster(responderToInitiatorSS, initiatorToResponderSS, x25519SS, clientRandom, serverRandom)
	defer zeroArray32(&hybridSS)
	zero(x25519SS)
	zero(responderToInitiatorSS)
	zero(initiatorToResponderSS)

	expectedTag := schedule.DeriveHandshakeConfirmation(hybridSS)
	if !b4crypto.ConstantTimeEqual(expectedTag[:], complete.ConfirmationTag[:]) {
		return nil, b4errors.New(b4errors.AuthenticationFailed, "handshake confirmation mismatch")
	}
	transcript.append(encodeHandshakeComplete(complete))

	sessionID := schedule.DeriveSessionID(clientRandom, serverRandom, byte(selectedMode))

	eph.retain()
	return &Result{
		Session:             NewSessionRef(),
		SessionID:           sessionID,
		MasterSecret:        masterSecret,
		SelectedMode:        selectedMode,
		PeerIdentityPK:      peerIdentityPublicKey,
		Transcript:          transcript.Bytes(),
		RatchetOwnKyber:     eph.kyber,
		RatchetOwnX25519:    eph.x25519,
		RatchetPeerKyberPK:  handshakeInit.InitiatorEphKyberPK,
		RatchetPeerX25519PK: handshakeInit.InitiatorEphX25519PK,
	}, nil
}

// selectMode picks the server's preferred mode among those the
// initiator supports, preferring the initiator's own preferred mode
// when it is one this server also holds an identity for.
func (s *Server) selectMode(negotiation ModeNegotiation) (AuthenticationMode, bool) {
	if _, ok := s.Identities[negotiation.PreferredMode]; ok {
		for _, m := range negotiation.SupportedModes {
			if m == negotiation.PreferredMode {
				return negotiation.PreferredMode, true
			}
		}
	}
	for _, m := range negotiation.SupportedModes {
		if _, ok := s.Identities[m]; ok {
			return m, true
		}
	}
	return 0, false
}

func (s *Server) send(ctx context.Context, peer transport.Peer, tag byte, body []byte) error {
	if err := s.Transport.Send(ctx, peer, WireEncode(tag, body)); err != nil {
		return b4errors.Wrap(b4errors.HandshakeFailed, "transport send failed", err)
	}
	return nil
}

func (s *Server) recv(ctx context.Context, peer transport.Peer, wantTag byte) ([]byte, error) {
	datagram, err := s.Transport.Recv(ctx, peer)
	if err != nil {
		return nil, b4errors.Wrap(b4errors.HandshakeFailed, "transport recv failed", err)
	}
	tag, body, err := WireDecode(datagram)
	if err != nil {
		return nil, b4errors.Wrap(b4errors.ProtocolViolation, "malformed datagram", err)
	}
	if tag != wantTag {
		return nil, b4errors.New(b4errors.ProtocolViolation, "unexpected message type in handshake sequence")
	}
	return body, nil
}
