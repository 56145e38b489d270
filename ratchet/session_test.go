package ratchet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_EncryptDecryptHidesLength(t *testing.T) {
	initiator, responder := pairOfEngines(t, Config{}, "session-A-0123456789abcdef012345")
	initiatorSession := NewSession(initiator)
	responderSession := NewSession(responder)

	plaintext := []byte("a short message")
	msg, err := initiatorSession.Encrypt(plaintext)
	require.NoError(t, err)
	assert.Greater(t, len(msg.Ciphertext), len(plaintext), "ciphertext must carry the padded bucket, not the exact length")

	recovered, err := responderSession.Decrypt(msg)
	require.NoError(t, err)
	assert.Equal(t, plaintext, recovered)
}

func TestSession_CloseZeroizesState(t *testing.T) {
	initiator, _ := pairOfEngines(t, Config{}, "session-A-0123456789abcdef012345")
	session := NewSession(initiator)

	session.Close()
	assert.Equal(t, RootKey{}, initiator.root)
	assert.Equal(t, 0, initiator.skip.len())

	session.Close() // must not panic on double-close
}
