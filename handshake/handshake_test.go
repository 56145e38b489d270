package handshake

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/audit"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto/keys"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/replay"
)

func newTestVerifier(t *testing.T) *replay.Verifier {
	t.Helper()
	secrets, err := replay.NewSecretRotator(time.Hour)
	require.NoError(t, err)
	t.Cleanup(secrets.Stop)
	return replay.NewVerifier(secrets, 100)
}

func TestClientServer_FullHandshakeEstablishesMatchingSecrets(t *testing.T) {
	clientX25519, err := keys.GenerateX25519KeyPair()
	require.NoError(t, err)
	clientSigner := keys.NewXEdDSAKeyPair(clientX25519)

	serverX25519, err := keys.GenerateX25519KeyPair()
	require.NoError(t, err)
	serverSigner := keys.NewXEdDSAKeyPair(serverX25519)

	clientTransport, serverTransport := newMemoryTransportPair()

	client := NewClient(clientTransport, clientSigner, ModeA, serverSigner.PublicKey())
	server := NewServer(serverTransport, map[AuthenticationMode]Signer{ModeA: serverSigner}, newTestVerifier(t))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type serverOutcome struct {
		result *Result
		err    error
	}
	serverDone := make(chan serverOutcome, 1)
	go func() {
		result, err := server.Accept(ctx, stringPeer("client"), clientSigner.PublicKey())
		serverDone <- serverOutcome{result, err}
	}()

	clientResult, clientErr := client.Initiate(ctx, stringPeer("server"))
	require.NoError(t, clientErr)

	outcome := <-serverDone
	require.NoError(t, outcome.err)
	serverResult := outcome.result

	assert.Equal(t, clientResult.SessionID, serverResult.SessionID)
	assert.Equal(t, clientResult.MasterSecret, serverResult.MasterSecret)
	assert.Equal(t, ModeA, clientResult.SelectedMode)
	assert.Equal(t, ModeA, serverResult.SelectedMode)

	// Each side's retained ephemeral keys are the peer's declared public
	// keys from the other side's perspective: the handshake ephemeral
	// handoff into ratchet epoch-0 material lines up symmetrically.
	assert.Equal(t, clientResult.RatchetOwnX25519.PublicKey(), serverResult.RatchetPeerX25519PK[:])
	assert.Equal(t, serverResult.RatchetOwnX25519.PublicKey(), clientResult.RatchetPeerX25519PK[:])
	require.NotNil(t, clientResult.RatchetOwnKyber)
	require.NotNil(t, serverResult.RatchetOwnKyber)
}

func TestServer_DetectsModeDowngradeSuspectedSignatureFailure(t *testing.T) {
	clientX25519, err := keys.GenerateX25519KeyPair()
	require.NoError(t, err)
	clientSigner := keys.NewXEdDSAKeyPair(clientX25519)

	impostorX25519, err := keys.GenerateX25519KeyPair()
	require.NoError(t, err)
	impostorSigner := keys.NewXEdDSAKeyPair(impostorX25519)

	serverX25519, err := keys.GenerateX25519KeyPair()
	require.NoError(t, err)
	serverSigner := keys.NewXEdDSAKeyPair(serverX25519)

	clientTransport, serverTransport := newMemoryTransportPair()

	// Client signs with an impostor key, but the server is told to
	// expect the real client's public key: the responder must detect
	// the signature mismatch as a suspected downgrade/substitution
	// attempt and surface it on the audit sink rather than silently
	// failing.
	client := NewClient(clientTransport, impostorSigner, ModeA, serverSigner.PublicKey())
	server := NewServer(serverTransport, map[AuthenticationMode]Signer{ModeA: serverSigner}, newTestVerifier(t))
	sink := &recordingSink{}
	server.Audit = sink

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	serverErrCh := make(chan error, 1)
	go func() {
		_, err := server.Accept(ctx, stringPeer("client"), clientSigner.PublicKey())
		serverErrCh <- err
	}()

	_, clientErr := client.Initiate(ctx, stringPeer("server"))
	assert.Error(t, clientErr)

	serverErr := <-serverErrCh
	require.Error(t, serverErr)

	require.Len(t, sink.events, 1)
	assert.Equal(t, audit.EventModeDowngradeSuspected, sink.events[0].Kind)
}

type recordingSink struct {
	events []audit.Event
}

func (s *recordingSink) Record(event audit.Event) {
	s.events = append(s.events, event)
}
