package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func randomish(seed byte) (out [32]byte) {
	for i := range out {
		out[i] = seed + byte(i)
	}
	return out
}

func TestDeriveSessionID_DeterministicAndRandomDependent(t *testing.T) {
	clientRandom := randomish(0x01)
	serverRandom := randomish(0x02)

	a := DeriveSessionID(clientRandom, serverRandom, byte(0x01))
	b := DeriveSessionID(clientRandom, serverRandom, byte(0x01))
	assert.Equal(t, a, b)

	c := DeriveSessionID(clientRandom, serverRandom, byte(0x02))
	assert.NotEqual(t, a, c, "mode id must participate in the session id derivation")

	otherServerRandom := randomish(0x03)
	d := DeriveSessionID(clientRandom, otherServerRandom, byte(0x01))
	assert.NotEqual(t, a, d)
}

func TestDeriveHybridKEM_DependsOnBothSharedSecrets(t *testing.T) {
	kyberSS := []byte("kyber-shared-secret-material-32b")
	x25519SS := []byte("x25519-shared-secret-material-32")

	a := DeriveHybridKEM(kyberSS, x25519SS)
	b := DeriveHybridKEM(kyberSS, x25519SS)
	assert.Equal(t, a, b)

	otherX25519SS := []byte("a-different-x25519-shared-secret")
	c := DeriveHybridKEM(kyberSS, otherX25519SS)
	assert.NotEqual(t, a, c)
}

func TestDeriveMasterSecret_BindsBothRandoms(t *testing.T) {
	hybridSS := randomish(0x10)
	clientRandom := randomish(0x01)
	serverRandom := randomish(0x02)

	a := DeriveMasterSecret(clientRandom, serverRandom, hybridSS)
	swapped := DeriveMasterSecret(serverRandom, clientRandom, hybridSS)
	assert.NotEqual(t, a, swapped, "client/server random order is load-bearing, not commutative")
}

func TestDeriveMessageKeyMaterial_EncryptionAndAuthKeysDiffer(t *testing.T) {
	chainKey := randomish(0x20)

	encKey, authKey := DeriveMessageKeyMaterial(chainKey, 0)
	assert.NotEqual(t, encKey, authKey)

	encKeyNext, _ := DeriveMessageKeyMaterial(chainKey, 1)
	assert.NotEqual(t, encKey, encKeyNext, "counter must participate in message key derivation")
}

func TestDeriveNonce_VariesByCounter(t *testing.T) {
	encKey := randomish(0x30)
	a := DeriveNonce(encKey, 0)
	b := DeriveNonce(encKey, 1)
	assert.NotEqual(t, a, b)
}

func TestModeBinding_IsDeterministicAndModeDependent(t *testing.T) {
	clientRandom := randomish(0x01)
	serverRandom := randomish(0x02)

	a := ModeBinding(clientRandom, serverRandom, 0x01)
	b := ModeBinding(clientRandom, serverRandom, 0x01)
	assert.Equal(t, a, b)

	c := ModeBinding(clientRandom, serverRandom, 0x02)
	assert.NotEqual(t, a, c)
}

func TestSessionBoundIKM_MakesRatchetBootstrapSessionSpecific(t *testing.T) {
	masterSecret := randomish(0x40)
	sessionA := randomish(0x50)
	sessionB := randomish(0x51)

	rootA := DeriveInitialRootKey(masterSecret, sessionA)
	rootB := DeriveInitialRootKey(masterSecret, sessionB)
	assert.NotEqual(t, rootA, rootB, "identical master secret must still yield independent roots per session")

	sendA := DeriveInitialSendChain(masterSecret, sessionA)
	recvA := DeriveInitialRecvChain(masterSecret, sessionA)
	assert.NotEqual(t, sendA, recvA)
}

func TestProtocolID_IsStableAcrossCalls(t *testing.T) {
	assert.Equal(t, ProtocolID, ProtocolID)
	assert.NotEqual(t, [32]byte{}, ProtocolID)
}
