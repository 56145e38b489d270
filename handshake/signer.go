package handshake

import (
	b4crypto "github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto/keys"
	b4errors "github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/errors"
)

// Signer is the narrow capability interface named in the design notes
// (§9): {sign(bytes) → bytes, verify(pk, bytes, sig) → error}. Mode A
// (XEdDSAKeyPair) and Mode B (DilithiumKeyPair) both already implement
// this via crypto.Signer; an HSM-backed implementation would too.
type Signer = b4crypto.Signer

// VerifyBody dispatches signature verification to the algorithm fixed
// by the negotiated mode. There is exactly one verification path per
// mode; no fallback or algorithm-agility exists within a session.
func VerifyBody(mode AuthenticationMode, peerPublicKey, body, signature []byte) error {
	var err error
	switch mode {
	case ModeA:
		err = keys.VerifyXEdDSA(peerPublicKey, body, signature)
	case ModeB:
		err = keys.VerifyDilithium(peerPublicKey, body, signature)
	default:
		return b4errors.New(b4errors.ProtocolViolation, "unsupported authentication mode")
	}
	if err != nil {
		return b4errors.Wrap(b4errors.AuthenticationFailed, "handshake signature verification failed", err)
	}
	return nil
}
