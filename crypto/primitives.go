package crypto

import (
	"crypto/subtle"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/sha3"
)

const (
	// HashSize is the SHA3-256 digest size in bytes.
	HashSize = 32
	// AEADKeySize is the ChaCha20-Poly1305 key size in bytes.
	AEADKeySize = chacha20poly1305.KeySize
	// AEADNonceSize is the ChaCha20-Poly1305 nonce size in bytes.
	AEADNonceSize = chacha20poly1305.NonceSize
	// AEADTagSize is the Poly1305 tag size in bytes.
	AEADTagSize = 16
)

// Hash returns the SHA3-256 digest of data.
func Hash(data ...[]byte) [HashSize]byte {
	h := sha3.New256()
	for _, d := range data {
		h.Write(d)
	}
	var out [HashSize]byte
	h.Sum(out[:0])
	return out
}

// ConstantTimeEqual reports whether a and b are equal using a
// constant-time comparison. Unequal lengths are themselves not
// constant-time-safe against timing only in the degenerate sense that
// a length mismatch is a public invariant (both operands are
// fixed-size by the caller's protocol position in every call site
// within this module).
func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// AEAD wraps ChaCha20-Poly1305 for per-message encryption.
type AEAD struct {
	aead interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	}
}

// NewAEAD constructs an AEAD from a 32-byte key.
func NewAEAD(key [AEADKeySize]byte) (*AEAD, error) {
	a, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	return &AEAD{aead: a}, nil
}

// Seal encrypts plaintext under nonce and aad, appending the result to dst.
func (a *AEAD) Seal(dst []byte, nonce [AEADNonceSize]byte, plaintext, aad []byte) []byte {
	return a.aead.Seal(dst, nonce[:], plaintext, aad)
}

// Open decrypts ciphertext (which includes the trailing tag) under
// nonce and aad, appending the result to dst. Returns AuthenticationFailed
// on tag mismatch via the caller's error classification; this method
// itself returns the raw chacha20poly1305 error.
func (a *AEAD) Open(dst []byte, nonce [AEADNonceSize]byte, ciphertext, aad []byte) ([]byte, error) {
	return a.aead.Open(dst, nonce[:], ciphertext, aad)
}
