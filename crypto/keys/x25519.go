package keys

import (
	"crypto/ecdh"
	"crypto/rand"
	"fmt"

	"github.com/cloudflare/circl/hpke"

	b4crypto "github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto"
)

// X25519KeyPair wraps a Curve25519 Diffie-Hellman key pair, used both
// for the ephemeral handshake exchange and, via conversion, as the
// backing material for XEdDSA (Mode A) identity keys.
type X25519KeyPair struct {
	priv *ecdh.PrivateKey
}

// GenerateX25519KeyPair creates a fresh ephemeral or identity key pair.
func GenerateX25519KeyPair() (*X25519KeyPair, error) {
	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &X25519KeyPair{priv: priv}, nil
}

// X25519KeyPairFromBytes reconstructs a key pair from a 32-byte scalar.
func X25519KeyPairFromBytes(scalar []byte) (*X25519KeyPair, error) {
	priv, err := ecdh.X25519().NewPrivateKey(scalar)
	if err != nil {
		return nil, err
	}
	return &X25519KeyPair{priv: priv}, nil
}

// PublicKey returns the 32-byte Montgomery-form public key.
func (k *X25519KeyPair) PublicKey() []byte {
	return k.priv.PublicKey().Bytes()
}

// PrivateKeyBytes returns the 32-byte scalar. Callers must zeroize the
// returned slice after use.
func (k *X25519KeyPair) PrivateKeyBytes() []byte {
	return k.priv.Bytes()
}

// SharedSecret performs X25519 DH against a peer's 32-byte public key.
// The caller is responsible for passing the raw ECDH output through
// the key schedule's HKDF step; this method never applies its own hash.
func (k *X25519KeyPair) SharedSecret(peerPublicKey []byte) ([]byte, error) {
	peerKey, err := ecdh.X25519().NewPublicKey(peerPublicKey)
	if err != nil {
		return nil, b4crypto.ErrInvalidPublicKeyLength
	}
	return k.priv.ECDH(peerKey)
}

// Zero overwrites the in-memory representation this wrapper can reach.
// The stdlib ecdh.PrivateKey does not expose a mutable buffer, so this
// drops the reference; callers holding the original scalar bytes (from
// PrivateKeyBytes) must zeroize those themselves.
func (k *X25519KeyPair) Zero() {
	k.priv = nil
}

// hpkeSuite is the fixed HPKE ciphersuite used for out-of-band identity
// bootstrap: X25519 KEM, HKDF-SHA256, and ChaCha20-Poly1305, matching
// the AEAD already in use elsewhere in this module.
func hpkeSuite() hpke.Suite {
	return hpke.NewSuite(hpke.KEM_X25519_HKDF_SHA256, hpke.KDF_HKDF_SHA256, hpke.AEAD_ChaCha20Poly1305)
}

// HPKEExportSecretToPeer establishes a one-shot HPKE Base-mode context
// to peerPublicKey and exports exportLength bytes of secret under
// exportContext. It is used for out-of-band identity-key bootstrap
// (crypto/rotation), not for the handshake's own key agreement, which
// uses the hybrid Kyber+X25519 exchange instead.
func HPKEExportSecretToPeer(peerPublicKey, info, exportContext []byte, exportLength int) (enc, secret []byte, err error) {
	suite := hpkeSuite()
	kem := hpke.KEM_X25519_HKDF_SHA256.Scheme()

	receiverPublicKey, err := kem.UnmarshalBinaryPublicKey(peerPublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("hpke: unmarshal peer public key: %w", err)
	}
	sender, err := suite.NewSender(receiverPublicKey, info)
	if err != nil {
		return nil, nil, fmt.Errorf("hpke: new sender: %w", err)
	}
	enc, sealer, err := sender.Setup(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("hpke: sender setup: %w", err)
	}
	return enc, sealer.Export(exportContext, uint(exportLength)), nil
}

// HPKEImportSecret reproduces the secret exported by HPKEExportSecretToPeer,
// given the encapsulated key enc produced by the sender. info and
// exportContext must match the sender's values exactly.
func (k *X25519KeyPair) HPKEImportSecret(enc, info, exportContext []byte, exportLength int) (secret []byte, err error) {
	suite := hpkeSuite()
	kem := hpke.KEM_X25519_HKDF_SHA256.Scheme()

	receiverPrivateKey, err := kem.UnmarshalBinaryPrivateKey(k.priv.Bytes())
	if err != nil {
		return nil, fmt.Errorf("hpke: unmarshal own private key: %w", err)
	}
	receiver, err := suite.NewReceiver(receiverPrivateKey, info)
	if err != nil {
		return nil, fmt.Errorf("hpke: new receiver: %w", err)
	}
	opener, err := receiver.Setup(enc)
	if err != nil {
		return nil, fmt.Errorf("hpke: receiver setup: %w", err)
	}
	return opener.Export(exportContext, uint(exportLength)), nil
}
