package b4ae

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto/keys"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/handshake"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/ratchet"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/replay"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/scheduler"
)

func newTestVerifier(t *testing.T) *replay.Verifier {
	t.Helper()
	secrets, err := replay.NewSecretRotator(time.Hour)
	require.NoError(t, err)
	t.Cleanup(secrets.Stop)
	return replay.NewVerifier(secrets, 100)
}

func establishPair(t *testing.T) (client *Session, server *Session) {
	t.Helper()

	clientX25519, err := keys.GenerateX25519KeyPair()
	require.NoError(t, err)
	clientSigner := keys.NewXEdDSAKeyPair(clientX25519)

	serverX25519, err := keys.GenerateX25519KeyPair()
	require.NoError(t, err)
	serverSigner := keys.NewXEdDSAKeyPair(serverX25519)

	clientTransport, serverTransport := newMemoryTransportPair()

	clientFacade := NewClient(clientTransport, clientSigner, handshake.ModeA, serverSigner.PublicKey())
	serverFacade := NewServer(serverTransport, map[handshake.AuthenticationMode]handshake.Signer{handshake.ModeA: serverSigner}, newTestVerifier(t))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type serverOutcome struct {
		session *Session
		err     error
	}
	serverDone := make(chan serverOutcome, 1)
	go func() {
		session, err := serverFacade.Accept(ctx, stringPeer("client"), clientSigner.PublicKey(), ratchet.Config{})
		serverDone <- serverOutcome{session, err}
	}()

	clientSession, clientErr := clientFacade.Establish(ctx, stringPeer("server"), ratchet.Config{})
	require.NoError(t, clientErr)

	outcome := <-serverDone
	require.NoError(t, outcome.err)

	return clientSession, outcome.session
}

func TestClientServer_EstablishThenEncryptDecryptRoundTrip(t *testing.T) {
	clientSession, serverSession := establishPair(t)
	defer clientSession.Close()
	defer serverSession.Close()

	plaintext := []byte("the quick brown fox jumps over the lazy dog")
	msg, err := clientSession.Encrypt(plaintext)
	require.NoError(t, err)

	decrypted, err := serverSession.Decrypt(msg)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)

	reply := []byte("acknowledged")
	replyMsg, err := serverSession.Encrypt(reply)
	require.NoError(t, err)

	decryptedReply, err := clientSession.Decrypt(replyMsg)
	require.NoError(t, err)
	assert.Equal(t, reply, decryptedReply)
}

func TestSession_EncryptRoutesThroughConfiguredScheduler(t *testing.T) {
	clientSession, serverSession := establishPair(t)
	defer clientSession.Close()
	defer serverSession.Close()

	var mu sync.Mutex
	var dispatched [][]byte

	sched := NewScheduler(func(sessionID [32]byte, paddedCiphertext []byte) error {
		mu.Lock()
		defer mu.Unlock()
		buf := make([]byte, len(paddedCiphertext))
		copy(buf, paddedCiphertext)
		dispatched = append(dispatched, buf)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Configure(ctx, scheduler.Config{TargetRate: 1000, MaxQueueDepth: 16, CoverTrafficBudget: 0})
	defer sched.Shutdown(context.Background())

	clientSession.UseScheduler(sched)

	_, err := clientSession.Encrypt([]byte("routed through the scheduler"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(dispatched) > 0
	}, time.Second, 10*time.Millisecond)
}
