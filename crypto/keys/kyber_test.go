package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKyber_EncapsulateDecapsulateRoundTrip(t *testing.T) {
	responder, err := GenerateKyberKeyPair()
	require.NoError(t, err)

	pk, err := KyberPublicKeyFromBytes(responder.PublicKey())
	require.NoError(t, err)

	ciphertext, initiatorSS, err := EncapsulateTo(pk)
	require.NoError(t, err)

	responderSS, err := responder.Decapsulate(ciphertext)
	require.NoError(t, err)

	assert.Equal(t, initiatorSS, responderSS)
}

func TestKyber_DecapsulateRejectsForeignCiphertext(t *testing.T) {
	responder, err := GenerateKyberKeyPair()
	require.NoError(t, err)
	other, err := GenerateKyberKeyPair()
	require.NoError(t, err)

	pk, err := KyberPublicKeyFromBytes(other.PublicKey())
	require.NoError(t, err)
	ciphertext, _, err := EncapsulateTo(pk)
	require.NoError(t, err)

	ss, err := responder.Decapsulate(ciphertext)
	require.NoError(t, err) // Kyber decapsulation is implicitly rejecting: no error, but...
	wrongSS, err := other.Decapsulate(ciphertext)
	require.NoError(t, err)
	assert.NotEqual(t, ss, wrongSS, "decapsulating under the wrong private key must not reproduce the real shared secret")
}
