// Package crypto wraps the primitives named in the protocol's crypto
// core: Kyber-1024 KEM, Dilithium5 signatures, X25519 DH, XEdDSA,
// ChaCha20-Poly1305 AEAD, SHA3-256, and HKDF-SHA3-256. Every operation
// is byte-in/byte-out; no type here retains unzeroized secret state
// longer than the operation that needs it.
package crypto

// KeyType identifies the algorithm family a key pair belongs to.
type KeyType int

const (
	KeyTypeX25519 KeyType = iota
	KeyTypeKyber1024
	KeyTypeDilithium5
)

func (t KeyType) String() string {
	switch t {
	case KeyTypeX25519:
		return "x25519"
	case KeyTypeKyber1024:
		return "kyber1024"
	case KeyTypeDilithium5:
		return "dilithium5"
	default:
		return "unknown"
	}
}

// Signer is the narrow mode-aware signing capability named in the
// design notes: a signature backend may be in-memory, an encrypted
// keystore, or an HSM, behind this one interface.
type Signer interface {
	Sign(message []byte) (signature []byte, err error)
	Verify(publicKey, message, signature []byte) error
	PublicKey() []byte
}

// KEM is the narrow key-encapsulation capability shared by Kyber-1024.
type KEM interface {
	Encapsulate(peerPublicKey []byte) (ciphertext, sharedSecret []byte, err error)
	Decapsulate(ciphertext []byte) (sharedSecret []byte, err error)
	PublicKey() []byte
}

// DH is the narrow Diffie-Hellman capability shared by X25519.
type DH interface {
	SharedSecret(peerPublicKey []byte) (sharedSecret []byte, err error)
	PublicKey() []byte
}

// Zeroizer is implemented by every type holding secret key material.
// Zero must be safe to call more than once.
type Zeroizer interface {
	Zero()
}

// Sentinel errors for malformed inputs; these never carry secret
// material and are always wrapped into an errors.Error by callers
// outside this package.
var (
	ErrInvalidPublicKeyLength  = newLenErr("public key")
	ErrInvalidPrivateKeyLength = newLenErr("private key")
	ErrInvalidCiphertextLength = newLenErr("ciphertext")
	ErrInvalidSignatureLength  = newLenErr("signature")
)

type lenError struct{ what string }

func (e *lenError) Error() string { return "crypto: invalid " + e.what + " length" }

func newLenErr(what string) error { return &lenError{what: what} }
