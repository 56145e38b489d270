package handshake

import (
	"fmt"

	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto/keys"
)

// VerifierSideForgery demonstrates Mode A's deniability property: a
// verifier holding only a peer's X25519 identity public key can build
// a transcript that satisfies XEdDSA's verification equation without
// ever learning the signing private scalar. This confirms the design
// note in §9; it is not reachable from ClientHello/HandshakeInit/
// HandshakeResponse/HandshakeComplete signing or verification and
// exists solely so the test suite can assert the property holds.
func VerifierSideForgery(peerX25519PublicKey []byte) error {
	satisfied, err := keys.SimulateForgery(peerX25519PublicKey)
	if err != nil {
		return err
	}
	if !satisfied {
		return fmt.Errorf("handshake: simulated transcript did not satisfy the XEdDSA verification equation")
	}
	return nil
}
