package schedule

import (
	b4crypto "github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto"
)

// canonicalSpecificationBytes stands in for "the wire-and-state portion
// of this design, frozen": a fixed identifier for the exact message
// formats, info-string table, and state machine defined by this
// module. Bumping the protocol (changing any wire-visible behavior)
// means changing this string, which changes protocol_id, which makes
// the change cryptographically visible to every peer.
const canonicalSpecificationBytes = "B4AE/2.0:" +
	"modes=A,B;" +
	"kem=kyber1024;dh=x25519;sig_a=xeddsa;sig_b=dilithium5;aead=chacha20poly1305;hash=sha3-256;kdf=hkdf-sha3-256;" +
	"phases=modenegotiation,clienthello,cookiechallenge,handshakeinit,handshakeresponse,handshakecomplete;" +
	"padding=padme:512..65536"

// ProtocolID is computed once at package init and included in every
// handshake transcript and top-level signature body. Disagreement
// between peers causes signature verification to fail with no
// separate "version mismatch" path.
var ProtocolID = b4crypto.Hash([]byte(canonicalSpecificationBytes))
