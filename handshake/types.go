// Package handshake implements the five-phase mode-aware initiator and
// responder automaton from spec §4.4: mode negotiation, cookie
// challenge, hybrid KEM + X25519 exchange, and mode-specific
// authentication.
package handshake

import (
	"time"

	"github.com/google/uuid"
)

// AuthenticationMode is the negotiated authentication variant.
type AuthenticationMode byte

const (
	// ModeA is the deniable XEdDSA-only variant.
	ModeA AuthenticationMode = 0x01
	// ModeB is the non-repudiable Dilithium5-only variant.
	ModeB AuthenticationMode = 0x02
)

func (m AuthenticationMode) String() string {
	switch m {
	case ModeA:
		return "ModeA"
	case ModeB:
		return "ModeB"
	default:
		return "unknown"
	}
}

// State is a handshake automaton state. Failed is terminal.
type State int

const (
	Init State = iota
	ModeNegotiated
	CookieChallenged
	Handshaking
	Established
	Failed
)

func (s State) String() string {
	switch s {
	case Init:
		return "Init"
	case ModeNegotiated:
		return "ModeNegotiated"
	case CookieChallenged:
		return "CookieChallenged"
	case Handshaking:
		return "Handshaking"
	case Established:
		return "Established"
	case Failed:
		return "Failed"
	default:
		return "unknown"
	}
}

// HandshakeTimeout is the default deadline for a full handshake.
const HandshakeTimeout = 30 * time.Second

// ModeNegotiation is the initiator's first message.
type ModeNegotiation struct {
	ClientRandom   [32]byte
	SupportedModes []AuthenticationMode
	PreferredMode  AuthenticationMode
}

// ModeSelection is the responder's reply, after which both sides
// compute ModeBinding.
type ModeSelection struct {
	ServerRandom  [32]byte
	SelectedMode  AuthenticationMode
	Unsupported   bool // true if no mutually supported mode existed; handshake fails
}

// ClientHello requests a cookie challenge.
type ClientHello struct {
	ClientRandom [32]byte
	Timestamp    int64
	ModeBinding  [32]byte
}

// CookieChallenge is stateless; the responder holds no state yet.
type CookieChallenge struct {
	Cookie       [32]byte
	ServerRandom [32]byte
}

// ClientHelloWithCookie resubmits the cookie for verification.
type ClientHelloWithCookie struct {
	ClientRandom [32]byte
	Cookie       [32]byte
	ModeBinding  [32]byte
	Timestamp    int64
}

// HandshakeInit carries the initiator's ephemeral keys and identity signature.
type HandshakeInit struct {
	InitiatorEphKyberPK  []byte
	InitiatorEphX25519PK [32]byte
	ModeBinding          [32]byte
	Signature            []byte
}

// HandshakeResponse carries the responder's ephemeral keys, the Kyber
// encapsulation to the initiator, and the responder's identity signature.
type HandshakeResponse struct {
	ResponderEphKyberPK  []byte
	ResponderEphX25519PK [32]byte
	KyberCiphertext      []byte // encapsulated to initiator's kyber_pk
	ModeBinding          [32]byte
	Signature            []byte
}

// HandshakeComplete carries the initiator's Kyber encapsulation to the
// responder, a confirmation tag, and the initiator's identity signature.
type HandshakeComplete struct {
	InitiatorKyberCiphertext []byte // encapsulated to responder's kyber_pk
	ConfirmationTag          [32]byte
	Signature                []byte
}

// messageTypeTag values, the 1-byte prefix included in every signature
// body and, on the wire, as the first framing byte of each datagram.
const (
	tagModeNegotiation byte = iota + 1
	tagModeSelection
	tagClientHello
	tagCookieChallenge
	tagClientHelloWithCookie
	tagHandshakeInit
	tagHandshakeResponse
	tagHandshakeComplete
)

// SessionRef is an opaque, audit-correlatable identifier minted once a
// handshake reaches Established. It is never a secret and is safe to
// log or pass across the scheduler boundary.
type SessionRef struct {
	ID uuid.UUID
}

func NewSessionRef() SessionRef { return SessionRef{ID: uuid.New()} }

func (s SessionRef) String() string { return s.ID.String() }
