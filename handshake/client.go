package handshake

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto/keys"
	b4errors "github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/errors"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/internal/logger"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/internal/metrics"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/schedule"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/transport"
)

// Client drives the initiator side of a handshake for one local
// identity and authentication mode. A Client may drive many
// concurrent handshakes to different peers; it holds no per-handshake
// state itself.
type Client struct {
	Transport             transport.Transport
	LocalSigner           Signer
	Mode                  AuthenticationMode
	PeerIdentityPublicKey []byte
	Log                   logger.Logger
}

// NewClient constructs a Client for a single local identity and mode.
func NewClient(tr transport.Transport, localSigner Signer, mode AuthenticationMode, peerIdentityPublicKey []byte) *Client {
	return &Client{
		Transport:             tr,
		LocalSigner:           localSigner,
		Mode:                  mode,
		PeerIdentityPublicKey: peerIdentityPublicKey,
		Log:                   logger.GetDefaultLogger(),
	}
}

// Initiate drives the full five-phase handshake against peer, blocking
// until Established or Failed. On any failure the returned error is a
// *errors.Error classified per §7, and all ephemeral key material for
// this attempt has already been zeroized.
func (c *Client) Initiate(ctx context.Context, peer transport.Peer) (*Result, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, HandshakeTimeout)
		defer cancel()
	}

	metrics.HandshakesStarted.WithLabelValues("initiator").Inc()
	start := time.Now()

	result, err := c.run(ctx, peer)
	if err != nil {
		metrics.HandshakesCompleted.WithLabelValues("failed").Inc()
		c.Log.Warn("initiator handshake failed", logger.String("state", Failed.String()), logger.Error(err), logger.Duration("elapsed", time.Since(start)))
		return nil, err
	}
	state := Established
	metrics.HandshakesCompleted.WithLabelValues("established").Inc()
	metrics.HandshakePhaseDuration.WithLabelValues("full").Observe(time.Since(start).Seconds())
	c.Log.Info("initiator handshake established", logger.String("state", state.String()))
	return result, nil
}

func (c *Client) run(ctx context.Context, peer transport.Peer) (*Result, error) {
	var clientRandom [32]byte
	if _, err := rand.Read(clientRandom[:]); err != nil {
		return nil, b4errors.Wrap(b4errors.InternalError, "failed to generate client random", err)
	}

	transcript := &Transcript{}

	negotiation := ModeNegotiation{
		ClientRandom:   clientRandom,
		SupportedModes: []AuthenticationMode{c.Mode},
		PreferredMode:  c.Mode,
	}
	if err := c.send(ctx, peer, tagModeNegotiation, encodeModeNegotiation(negotiation)); err != nil {
		return nil, err
	}
	transcript.append(encodeModeNegotiation(negotiation))

	selectionBody, err := c.recv(ctx, peer, tagModeSelection)
	if err != nil {
		return nil, err
	}
	selection, err := decodeModeSelection(selectionBody)
	if err != nil {
		return nil, b4errors.Wrap(b4errors.HandshakeFailed, "malformed ModeSelection", err)
	}
	if selection.SelectedMode != c.Mode {
		return nil, b4errors.New(b4errors.HandshakeFailed, "responder selected an unsupported mode")
	}
	transcript.append(encodeModeSelection(selection))

	serverRandom := selection.ServerRandom
	modeBinding := schedule.ModeBinding(clientRandom, serverRandom, byte(c.Mode))

	clientHello := ClientHello{ClientRandom: clientRandom, Timestamp: time.Now().Unix(), ModeBinding: modeBinding}
	if err := c.send(ctx, peer, tagClientHello, encodeClientHello(clientHello)); err != nil {
		return nil, err
	}
	transcript.append(encodeClientHello(clientHello))

	challengeBody, err := c.recv(ctx, peer, tagCookieChallenge)
	if err != nil {
		return nil, err
	}
	challenge, err := decodeCookieChallenge(challengeBody)
	if err != nil {
		return nil, b4errors.Wrap(b4errors.HandshakeFailed, "malformed CookieChallenge", err)
	}
	transcript.append(encodeCookieChallenge(challenge))

	withCookie := ClientHelloWithCookie{
		ClientRandom: clientRandom,
		Cookie:       challenge.Cookie,
		ModeBinding:  modeBinding,
		Timestamp:    time.Now().Unix(),
	}
	if err := c.send(ctx, peer, tagClientHelloWithCookie, encodeClientHelloWithCookie(withCookie)); err != nil {
		return nil, err
	}
	transcript.append(encodeClientHelloWithCookie(withCookie))

	eph, err := newEphemeral()
	if err != nil {
		return nil, b4errors.Wrap(b4errors.InternalError, "failed to generate ephemeral keys", err)
	}
	defer eph.zero()

	var ephX25519PK [32]byte
	copy(ephX25519PK[:], eph.x25519.PublicKey())

	initSigBody := transcript.SignatureBody(modeBinding, tagHandshakeInit)
	initSig, err := c.LocalSigner.Sign(initSigBody)
	if err != nil {
		return nil, b4errors.Wrap(b4errors.InternalError, "failed to sign HandshakeInit", err)
	}
	handshakeInit := HandshakeInit{
		InitiatorEphKyberPK:  eph.kyber.PublicKey(),
		InitiatorEphX25519PK: ephX25519PK,
		ModeBinding:          modeBinding,
		Signature:            initSig,
	}
	if err := c.send(ctx, peer, tagHandshakeInit, encodeHandshakeInit(handshakeInit)); err != nil {
		return nil, err
	}
	transcript.append(encodeHandshakeInit(handshakeInit))

	responseBody, err := c.recv(ctx, peer, tagHandshakeResponse)
	if err != nil {
		return nil, err
	}
	response, err := decodeHandshakeResponse(responseBody)
	if err != nil {
		return nil, b4errors.Wrap(b4errors.HandshakeFailed, "malformed HandshakeResponse", err)
	}

	responseSigBody := transcript.SignatureBody(modeBinding, tagHandshakeResponse)
	if err := VerifyBody(c.Mode, c.PeerIdentityPublicKey, responseSigBody, response.Signature); err != nil {
		return nil, err
	}
	transcript.append(encodeHandshakeResponse(response))

	x25519SS, err := eph.x25519.SharedSecret(response.ResponderEphX25519PK[:])
	if err != nil {
		return nil, b4errors.Wrap(b4errors.HandshakeFailed, "invalid responder ephemeral X25519 key", err)
	}

	responderToInitiatorSS, err := eph.kyber.Decapsulate(response.KyberCiphertext)
	if err != nil {
		return nil, b4errors.Wrap(b4errors.HandshakeFailed, "kyber decapsulation failed", err)
	}

	responderKyberPK, err := keys.KyberPublicKeyFromBytes(response.ResponderEphKyberPK)
	if err != nil {
		return nil, b4errors.Wrap(b4errors.HandshakeFailed, "invalid responder ephemeral kyber key", err)
	}
	ciphertextToResponder, initiatorToResponderSS, err := keys.EncapsulateTo(responderKyberPK)
	if err != nil {
		return nil, b4errors.Wrap(b4errors.InternalError, "kyber encapsulation failed", err)
	}

	hybridSS, masterSecret := deriveHybridAndMaster(responderToInitiatorSS, initiatorToResponderSS, x25519SS, clientRandom, serverRandom)
	defer zeroArray32(&hybridSS)
	zero(x25519SS)
	zero(responderToInitiatorSS)
	zero(initiatorToResponderSS)

	confirmationTag := schedule.DeriveHandshakeConfirmation(hybridSS)

	completeSigBody := transcript.SignatureBody(modeBinding, tagHandshakeComplete)
	completeSig, err := c.LocalSigner.Sign(completeSigBody)
	if err != nil {
		return nil, b4errors.Wrap(b4errors.InternalError, "failed to sign HandshakeComplete", err)
	}
	complete := HandshakeComplete{
		InitiatorKyberCiphertext: ciphertextToResponder,
		ConfirmationTag:          confirmationTag,
		Signature:                completeSig,
	}
	if err := c.send(ctx, peer, tagHandshakeComplete, encodeHandshakeComplete(complete)); err != nil {
		return nil, err
	}
	transcript.append(encodeHandshakeComplete(complete))

	sessionID := schedule.DeriveSessionID(clientRandom, serverRandom, byte(c.Mode))

	eph.retain()
	return &Result{
		Session:             NewSessionRef(),
		SessionID:           sessionID,
		MasterSecret:        masterSecret,
		SelectedMode:        c.Mode,
		PeerIdentityPK:      c.PeerIdentityPublicKey,
		Transcript:          transcript.Bytes(),
		RatchetOwnKyber:     eph.kyber,
		RatchetOwnX25519:    eph.x25519,
		RatchetPeerKyberPK:  response.ResponderEphKyberPK,
		RatchetPeerX25519PK: response.ResponderEphX25519PK,
	}, nil
}

func (c *Client) send(ctx context.Context, peer transport.Peer, tag byte, body []byte) error {
	if err := c.Transport.Send(ctx, peer, WireEncode(tag, body)); err != nil {
		return b4errors.Wrap(b4errors.HandshakeFailed, "transport send failed", err)
	}
	return nil
}

func (c *Client) recv(ctx context.Context, peer transport.Peer, wantTag byte) ([]byte, error) {
	datagram, err := c.Transport.Recv(ctx, peer)
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
