package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDilithium_SignVerifyRoundTrip(t *testing.T) {
	signer, err := GenerateDilithiumKeyPair()
	require.NoError(t, err)

	message := []byte("non-repudiable handshake transcript body")
	sig, err := signer.Sign(message)
	require.NoError(t, err)

	err = VerifyDilithium(signer.PublicKey(), message, sig)
	assert.NoError(t, err)
}

func TestDilithium_RejectsTamperedMessage(t *testing.T) {
	signer, err := GenerateDilithiumKeyPair()
	require.NoError(t, err)

	sig, err := signer.Sign([]byte("original"))
	require.NoError(t, err)

	err = VerifyDilithium(signer.PublicKey(), []byte("tampered"), sig)
	assert.Error(t, err)
}
