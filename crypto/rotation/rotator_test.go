package rotation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	b4crypto "github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto/identity"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto/storage"
)

func newTestRotator(t *testing.T) (*Rotator, *identity.Manager) {
	t.Helper()
	custodian := storage.NewMemoryCustodian()
	manager := identity.NewManager(custodian)
	return NewRotator(manager, Config{Interval: time.Hour}), manager
}

func TestRotator_RotatePreservesKeyType(t *testing.T) {
	rotator, manager := newTestRotator(t)
	_, err := manager.GenerateModeAIdentity("peer-1")
	require.NoError(t, err)

	event, err := rotator.Rotate("peer-1")
	require.NoError(t, err)
	assert.Equal(t, b4crypto.KeyTypeX25519, event.OldKeyType)
	assert.Equal(t, b4crypto.KeyTypeX25519, event.NewKeyType)
	assert.Len(t, rotator.History("peer-1"), 1)
}

func TestRotator_RejectsConcurrentRotation(t *testing.T) {
	rotator, manager := newTestRotator(t)
	_, err := manager.GenerateModeAIdentity("peer-1")
	require.NoError(t, err)

	rotator.mu.Lock()
	rotator.rotating["peer-1"] = true
	rotator.mu.Unlock()

	_, err = rotator.Rotate("peer-1")
	assert.ErrorIs(t, err, ErrRotationInProgress)
}

func TestRotator_BootstrapSecretAgreement(t *testing.T) {
	rotator, manager := newTestRotator(t)
	_, err := manager.GenerateModeAIdentity("device-a")
	require.NoError(t, err)
	_, err = manager.GenerateModeAIdentity("device-b")
	require.NoError(t, err)

	peerIdentity, err := manager.Load("device-b")
	require.NoError(t, err)
	exportContext := []byte("bootstrap-session-1")

	enc, senderSecret, err := rotator.ExportBootstrapSecret("device-a", peerIdentity.Signer.PublicKey(), exportContext, 32)
	require.NoError(t, err)

	receiverSecret, err := rotator.ImportBootstrapSecret("device-b", enc, exportContext, 32)
	require.NoError(t, err)

	assert.Equal(t, senderSecret, receiverSecret)
}

func TestRotator_BootstrapRejectsModeBIdentity(t *testing.T) {
	rotator, manager := newTestRotator(t)
	_, err := manager.GenerateModeBIdentity("device-c")
	require.NoError(t, err)

	_, _, err = rotator.ExportBootstrapSecret("device-c", make([]byte, 32), []byte("ctx"), 32)
	assert.ErrorIs(t, err, ErrBootstrapUnsupportedKeyType)
}
