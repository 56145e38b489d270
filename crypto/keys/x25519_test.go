package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestX25519_SharedSecretAgreement(t *testing.T) {
	alice, err := GenerateX25519KeyPair()
	require.NoError(t, err)
	bob, err := GenerateX25519KeyPair()
	require.NoError(t, err)

	aliceSS, err := alice.SharedSecret(bob.PublicKey())
	require.NoError(t, err)
	bobSS, err := bob.SharedSecret(alice.PublicKey())
	require.NoError(t, err)

	assert.Equal(t, aliceSS, bobSS)
	assert.Len(t, alice.PublicKey(), 32)
}

func TestX25519_FromBytesRoundTrip(t *testing.T) {
	original, err := GenerateX25519KeyPair()
	require.NoError(t, err)

	restored, err := X25519KeyPairFromBytes(original.PrivateKeyBytes())
	require.NoError(t, err)

	assert.Equal(t, original.PublicKey(), restored.PublicKey())
}
