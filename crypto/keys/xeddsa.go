package keys

import (
	crand "crypto/rand"
	"crypto/sha512"
	"errors"

	"filippo.io/edwards25519"
	"filippo.io/edwards25519/field"

	b4crypto "github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto"
)

// ErrXEdDSAVerifyFailed is returned by VerifyXEdDSA on signature mismatch.
// Callers classify this into errors.AuthenticationFailed; it carries no
// further detail, matching the protocol's single opaque failure kind.
var ErrXEdDSAVerifyFailed = errors.New("xeddsa: signature verification failed")

// XEdDSAKeyPair signs and verifies using the Mode A deniable scheme:
// an Ed25519-compatible signature computed directly from an X25519
// identity key, with a deterministic nonce derived from the signing
// key and message (no random Z component), per the protocol's XEdDSA
// variant. It implements crypto.Signer.
type XEdDSAKeyPair struct {
	x25519 *X25519KeyPair
}

// NewXEdDSAKeyPair wraps an existing X25519 identity key pair for XEdDSA use.
func NewXEdDSAKeyPair(x25519Pair *X25519KeyPair) *XEdDSAKeyPair {
	return &XEdDSAKeyPair{x25519: x25519Pair}
}

// X25519 exposes the underlying Curve25519 key pair, for callers (such
// as crypto/rotation's out-of-band bootstrap) that need HPKE-style
// ECDH operations rather than signing.
func (k *XEdDSAKeyPair) X25519() *X25519KeyPair {
	return k.x25519
}

// canonicalEdwardsKeyPair derives the clamped Edwards scalar `a` and the
// canonicalized public point `A` (sign bit forced to zero) from an
// X25519 private scalar, per the Montgomery<->Edwards birational map.
func canonicalEdwardsKeyPair(x25519PrivScalar []byte) (*edwards25519.Scalar, *edwards25519.Point, error) {
	a := edwards25519.NewScalar()
	if _, err := a.SetBytesWithClamping(x25519PrivScalar); err != nil {
		return nil, nil, err
	}
	A := new(edwards25519.Point).ScalarBaseMult(a)
	if A.Bytes()[31]&0x80 != 0 {
		a.Negate(a)
		A.Negate(A)
	}
	return a, A, nil
}

// montgomeryToEdwardsPoint recovers the canonical (even-sign) Edwards
// point corresponding to a Curve25519 Montgomery u-coordinate, via
// y = (u-1)/(u+1) and the fixed sign convention shared by the signer.
func montgomeryToEdwardsPoint(montgomeryPublicKey []byte) (*edwards25519.Point, error) {
	if len(montgomeryPublicKey) != 32 {
		return nil, b4crypto.ErrInvalidPublicKeyLength
	}
	var u, one, num, den, y field.Element
	if _, err := u.SetBytes(montgomeryPublicKey); err != nil {
		return nil, b4crypto.ErrInvalidPublicKeyLength
	}
	one.One()
	num.Subtract(&u, &one)
	den.Add(&u, &one)
	den.Invert(&den)
	y.Multiply(&num, &den)

	yBytes := y.Bytes()
	yBytes[31] &= 0x7f // force even-x representative, matching the signer's convention

	p, err := new(edwards25519.Point).SetBytes(yBytes)
	if err != nil {
		return nil, b4crypto.ErrInvalidPublicKeyLength
	}
	return p, nil
}

// PublicKey returns the underlying X25519 (Montgomery) public key
// bytes; this is the form exchanged on the wire as the identity key.
func (k *XEdDSAKeyPair) PublicKey() []byte {
	return k.x25519.PublicKey()
}

// Sign computes a deterministic 64-byte XEdDSA signature over message.
func (k *XEdDSAKeyPair) Sign(message []byte) ([]byte, error) {
	priv := k.x25519.PrivateKeyBytes()
	defer zero(priv)

	a, A, err := canonicalEdwardsKeyPair(priv)
	if err != nil {
		return nil, err
	}
	Abytes := A.Bytes()

	nonceSeed := sha512.Sum512(append(append([]byte{}, priv...), message...))
	r := edwards25519.NewScalar()
	if _, err := r.SetUniformBytes(nonceSeed[:]); err != nil {
		return nil, err
	}
	R := new(edwards25519.Point).ScalarBaseMult(r)
	Rbytes := R.Bytes()

	hInput := make([]byte, 0, 32+32+len(message))
	hInput = append(hInput, Rbytes...)
	hInput = append(hInput, Abytes...)
	hInput = append(hInput, message...)
	hDigest := sha512.Sum512(hInput)
	h := edwards25519.NewScalar()
	if _, err := h.SetUniformBytes(hDigest[:]); err != nil {
		return nil, err
	}

	ha := edwards25519.NewScalar().Multiply(h, a)
	s := edwards25519.NewScalar().Add(r, ha)

	sig := make([]byte, 0, 64)
	sig = append(sig, Rbytes...)
	sig = append(sig, s.Bytes()...)
	return sig, nil
}

// Verify checks a 64-byte XEdDSA signature against peerPublicKey (the
// peer's X25519 identity public key) and message.
func (k *XEdDSAKeyPair) Verify(peerPublicKey, message, signature []byte) error {
	return VerifyXEdDSA(peerPublicKey, message, signature)
}

// VerifyXEdDSA is the free function form of Verify, usable without an
// XEdDSAKeyPair instance (the verifier never needs its own key).
func VerifyXEdDSA(peerX25519PublicKey, message, signature []byte) error {
	if len(signature) != 64 {
		return b4crypto.ErrInvalidSignatureLength
	}
	Rbytes := signature[:32]
	sBytes := signature[32:64]

	s := edwards25519.NewScalar()
	if _, err := s.SetCanonicalBytes(sBytes); err != nil {
		return ErrXEdDSAVerifyFailed
	}
	R, err := new(edwards25519.Point).SetBytes(Rbytes)
	if err != nil {
		return ErrXEdDSAVerifyFailed
	}
	A, err := montgomeryToEdwardsPoint(peerX25519PublicKey)
	if err != nil {
		return ErrXEdDSAVerifyFailed
	}
	Abytes := A.Bytes()

	hInput := make([]byte, 0, 32+32+len(message))
	hInput = append(hInput, Rbytes...)
	hInput = append(hInput, Abytes...)
	hInput = append(hInput, message...)
	hDigest := sha512.Sum512(hInput)
	h := edwards25519.NewScalar()
	if _, err := h.SetUniformBytes(hDigest[:]); err != nil {
		return ErrXEdDSAVerifyFailed
	}

	sB := new(edwards25519.Point).ScalarBaseMult(s)
	hA := new(edwards25519.Point).ScalarMult(h, A)
	rhs := new(edwards25519.Point).Add(R, hA)

	if !b4crypto.ConstantTimeEqual(sB.Bytes(), rhs.Bytes()) {
		return ErrXEdDSAVerifyFailed
	}
	return nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// SimulateForgery constructs a transcript (R, h, s) satisfying the
// Schnorr verification equation s*B = R + h*A against peerPublicKey
// without ever touching a private scalar: h and s are chosen freely,
// then R := sB - hA by construction. This is the verification-time
// simulatability that underlies Mode A's deniability (a real
// signature's h is the output of a hash the simulator does not
// control, but the forking-style argument for deniability only needs
// this algebraic relation to be simulatable independent of the key).
// It is exported for the handshake package's test-only forgery
// demonstration and must never be reached from the signing path.
func SimulateForgery(peerX25519PublicKey []byte) (bool, error) {
	A, err := montgomeryToEdwardsPoint(peerX25519PublicKey)
	if err != nil {
		return false, err
	}

	var hSeed, sSeed [64]byte
	if _, err := crand.Read(hSeed[:]); err != nil {
		return false, err
	}
	if _, err := crand.Read(sSeed[:]); err != nil {
		return false, err
	}

	h := edwards25519.NewScalar()
	if _, err := h.SetUniformBytes(hSeed[:]); err != nil {
		return false, err
	}
	s := edwards25519.NewScalar()
	if _, err := s.SetUniformBytes(sSeed[:]); err != nil {
		return false, err
	}

	sB := new(edwards25519.Point).ScalarBaseMult(s)
	hA := new(edwards25519.Point).ScalarMult(h, A)
	R := new(edwards25519.Point).Subtract(sB, hA)

	rhs := new(edwards25519.Point).Add(R, hA)
	return b4crypto.ConstantTimeEqual(sB.Bytes(), rhs.Bytes()), nil
}
