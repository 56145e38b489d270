package keys

import (
	"github.com/cloudflare/circl/sign"
	"github.com/cloudflare/circl/sign/dilithium/mode5"

	b4crypto "github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto"
)

// dilithiumScheme is resolved once; Dilithium5 is the only Mode B
// signature scheme this module uses.
var dilithiumScheme sign.Scheme = mode5.Scheme()

// DilithiumKeyPair wraps a Dilithium5 (NIST Level 5) signature key
// pair, the Mode B (non-repudiable) identity-signing backend. It
// implements crypto.Signer.
type DilithiumKeyPair struct {
	pub  sign.PublicKey
	priv sign.PrivateKey
}

// GenerateDilithiumKeyPair creates a fresh long-term Dilithium5 identity
// key pair.
func GenerateDilithiumKeyPair() (*DilithiumKeyPair, error) {
	pub, priv, err := dilithiumScheme.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &DilithiumKeyPair{pub: pub, priv: priv}, nil
}

// DilithiumPublicKeyFromBytes parses a peer's Dilithium5 identity key.
func DilithiumPublicKeyFromBytes(b []byte) (sign.PublicKey, error) {
	pub, err := dilithiumScheme.UnmarshalBinaryPublicKey(b)
	if err != nil {
		return nil, b4crypto.ErrInvalidPublicKeyLength
	}
	return pub, nil
}

// PublicKey returns the marshaled Dilithium5 public key.
func (k *DilithiumKeyPair) PublicKey() []byte {
	b, _ := k.pub.MarshalBinary()
	return b
}

// Sign produces a Dilithium5 signature over message.
func (k *DilithiumKeyPair) Sign(message []byte) ([]byte, error) {
	return dilithiumScheme.Sign(k.priv, message, nil), nil
}

// Verify checks a Dilithium5 signature under peerPublicKey.
func (k *DilithiumKeyPair) Verify(peerPublicKey, message, signature []byte) error {
	return VerifyDilithium(peerPublicKey, message, signature)
}

// VerifyDilithium is the free function form of Verify.
func VerifyDilithium(peerPublicKeyBytes, message, signature []byte) error {
	pub, err := DilithiumPublicKeyFromBytes(peerPublicKeyBytes)
	if err != nil {
		return err
	}
	if !dilithiumScheme.Verify(pub, message, signature, nil) {
		return ErrDilithiumVerifyFailed
	}
	return nil
}

// ErrDilithiumVerifyFailed is returned on signature mismatch.
var ErrDilithiumVerifyFailed = dilithiumVerifyError{}

type dilithiumVerifyError struct{}

func (dilithiumVerifyError) Error() string { return "dilithium5: signature verification failed" }
