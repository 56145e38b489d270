package keys

import (
	"crypto/rand"

	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/kyber/kyber1024"

	b4crypto "github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto"
)

// kyberScheme is resolved once; Kyber-1024 is the only KEM this module uses.
var kyberScheme = kyber1024.Scheme()

// KyberKeyPair wraps a Kyber-1024 key-encapsulation key pair, used for
// the post-quantum half of the hybrid handshake exchange and of each
// asymmetric ratchet step. Reused the same way the teacher reuses
// circl's hpke.Scheme() generic KEM interface.
type KyberKeyPair struct {
	pub  kem.PublicKey
	priv kem.PrivateKey
}

// GenerateKyberKeyPair creates a fresh ephemeral Kyber-1024 key pair.
func GenerateKyberKeyPair() (*KyberKeyPair, error) {
	pub, priv, err := kyberScheme.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return &KyberKeyPair{pub: pub, priv: priv}, nil
}

// KyberPublicKeyFromBytes parses a peer's encapsulation target.
func KyberPublicKeyFromBytes(b []byte) (kem.PublicKey, error) {
	pub, err := kyberScheme.UnmarshalBinaryPublicKey(b)
	if err != nil {
		return nil, b4crypto.ErrInvalidPublicKeyLength
	}
	return pub, nil
}

// PublicKey returns the marshaled Kyber-1024 public key.
func (k *KyberKeyPair) PublicKey() []byte {
	b, _ := k.pub.MarshalBinary()
	return b
}

// EncapsulateTo performs Kyber-1024 encapsulation to a peer's public
// key, returning the ciphertext to send and the shared secret to feed
// into the key schedule.
func EncapsulateTo(peerPublicKey kem.PublicKey) (ciphertext, sharedSecret []byte, err error) {
	seed := make([]byte, kyberScheme.EncapsulationSeedSize())
	if _, err := rand.Read(seed); err != nil {
		return nil, nil, err
	}
	return kyberScheme.EncapsulateDeterministically(peerPublicKey, seed)
}

// Decapsulate recovers the shared secret from a received ciphertext
// using this key pair's private key.
func (k *KyberKeyPair) Decapsulate(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) != kyberScheme.CiphertextSize() {
		return nil, b4crypto.ErrInvalidCiphertextLength
	}
	return kyberScheme.Decapsulate(k.priv, ciphertext)
}

// Zero releases this key pair's references so the underlying secret
// scalars become unreachable and eligible for GC; circl does not expose
// in-place wiping of kem.PrivateKey, so reference-drop is the available
// mitigation here.
func (k *KyberKeyPair) Zero() {
	k.priv = nil
	k.pub = nil
}
