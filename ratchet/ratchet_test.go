package ratchet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/audit"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto/keys"
)

type recordingSink struct {
	events []audit.Event
}

func (s *recordingSink) Record(event audit.Event) {
	s.events = append(s.events, event)
}

// pairOfEngines bootstraps two Engines sharing the master secret and
// session id produced by a handshake, with each side's ephemeral
// material wired to the other's, mirroring how the b4ae façade would
// construct them after Client.Initiate/Server.Accept returns.
func pairOfEngines(t *testing.T, config Config, sessionLabel string) (initiatorEngine, responderEngine *Engine) {
	t.Helper()

	var masterSecret, sessionID [32]byte
	copy(masterSecret[:], []byte("0123456789abcdef0123456789abcdef"))
	copy(sessionID[:], []byte(sessionLabel))

	initKyber, err := keys.GenerateKyberKeyPair()
	require.NoError(t, err)
	initX25519, err := keys.GenerateX25519KeyPair()
	require.NoError(t, err)
	respKyber, err := keys.GenerateKyberKeyPair()
	require.NoError(t, err)
	respX25519, err := keys.GenerateX25519KeyPair()
	require.NoError(t, err)

	var initX25519PK, respX25519PK [32]byte
	copy(initX25519PK[:], initX25519.PublicKey())
	copy(respX25519PK[:], respX25519.PublicKey())

	initiatorEngine = NewEngine(masterSecret, sessionID, true, initKyber, initX25519, respKyber.PublicKey(), respX25519PK, config)
	responderEngine = NewEngine(masterSecret, sessionID, false, respKyber, respX25519, initKyber.PublicKey(), initX25519PK, config)
	return initiatorEngine, responderEngine
}

func TestRatchet_BasicRoundTrip(t *testing.T) {
	initiator, responder := pairOfEngines(t, Config{}, "session-A-0123456789abcdef012345")

	msg, err := initiator.EncryptNext([]byte("hello responder"))
	require.NoError(t, err)

	plaintext, err := responder.Decrypt(msg)
	require.NoError(t, err)
	assert.Equal(t, "hello responder", string(plaintext))
}

func TestRatchet_OutOfOrderDelivery(t *testing.T) {
	initiator, responder := pairOfEngines(t, Config{}, "session-A-0123456789abcdef012345")

	var messages []*RatchetMessage
	for i := 0; i < 10; i++ {
		msg, err := initiator.EncryptNext([]byte{byte(i)})
		require.NoError(t, err)
		messages = append(messages, msg)
	}

	order := []int{0, 5, 1, 9, 2, 3, 4, 6, 7, 8}
	for _, idx := range order {
		plaintext, err := responder.Decrypt(messages[idx])
		require.NoError(t, err, "message %d must decrypt", idx)
		assert.Equal(t, []byte{byte(idx)}, plaintext)
	}
	assert.Equal(t, 0, responder.skip.len(), "skip cache must be empty once all messages are consumed")
}

func TestRatchet_RejectsReplay(t *testing.T) {
	initiator, responder := pairOfEngines(t, Config{}, "session-A-0123456789abcdef012345")

	sink := &recordingSink{}
	responder.SetAudit(sink)

	msg, err := initiator.EncryptNext([]byte("once"))
	require.NoError(t, err)

	_, err = responder.Decrypt(msg)
	require.NoError(t, err)

	_, err = responder.Decrypt(msg)
	assert.Error(t, err)

	require.Len(t, sink.events, 1)
	assert.Equal(t, audit.EventReplayDetected, sink.events[0].Kind)
}

func TestRatchet_AsymmetricStepAndOldEpochRejection(t *testing.T) {
	initiator, responder := pairOfEngines(t, Config{AsymmetricRatchetInterval: 100, SkipCacheSize: 10}, "session-C-0123456789abcdef012345")

	// Drive 100 messages on epoch 0, all consumed in order.
	for i := 0; i < 100; i++ {
		msg, err := initiator.EncryptNext([]byte{byte(i % 256)})
		require.NoError(t, err)
		_, err = responder.Decrypt(msg)
		require.NoError(t, err)
	}

	// The 101st message forces an asymmetric ratchet step (epoch 1).
	stepMsg, err := initiator.EncryptNext([]byte("epoch one"))
	require.NoError(t, err)
	require.NotNil(t, stepMsg.Update, "the first message of a new epoch must carry a ratchet update")
	assert.Equal(t, uint64(1), stepMsg.RatchetCount)

	_, err = responder.Decrypt(stepMsg)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), responder.recvRatchetCount)

	// A replayed message claiming ratchet_count=0, counter=50 from the
	// old epoch must be rejected even though counter 50 was valid then.
	oldEpochMessage := &RatchetMessage{RatchetCount: 0, MessageCounter: 50}
	_, err = responder.Decrypt(oldEpochMessage)
	assert.Error(t, err)
}

func TestRatchet_SessionIndependence(t *testing.T) {
	configA := Config{}
	initiatorA, responderA := pairOfEngines(t, configA, "session-D-0123456789abcdef012345")
	initiatorB, _ := pairOfEngines(t, configA, "session-E-0123456789abcdef012345")

	msg, err := initiatorA.EncryptNext([]byte("session A secret"))
	require.NoError(t, err)

	_, err = responderA.Decrypt(msg)
	require.NoError(t, err)

	// initiatorB's chain keys are derived from an unrelated session_id
	// (a distinct NewEngine/pairOfEngines call), so its root key bytes
	// must differ from session A's even though the master secret bytes
	// used in this fixture happen to match.
	assert.NotEqual(t, initiatorA.root, initiatorB.root)
}

func TestRatchet_RejectsSkipBeyondMaxSkip(t *testing.T) {
	initiator, responder := pairOfEngines(t, Config{}, "session-A-0123456789abcdef012345")

	_, err := initiator.EncryptNext([]byte("first"))
	require.NoError(t, err)

	farMessage := &RatchetMessage{RatchetCount: 0, MessageCounter: MaxSkip + 1}
	_, err = responder.Decrypt(farMessage)
	assert.Error(t, err)
}
