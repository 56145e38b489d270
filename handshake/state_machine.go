package handshake

import (
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto/keys"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/schedule"
)

// ephemeral bundles one peer's fresh per-handshake KEM/DH key material.
// It is zeroized on any failure path; on success it is instead handed
// off intact as the Double Ratchet's epoch-0 key material (see Result),
// since both peers already agree on these public keys from the
// transcript and regenerating a fresh pair would need an extra round
// trip for no security benefit.
type ephemeral struct {
	kyber    *keys.KyberKeyPair
	x25519   *keys.X25519KeyPair
	retained bool
}

func newEphemeral() (*ephemeral, error) {
	kyberPair, err := keys.GenerateKyberKeyPair()
	if err != nil {
		return nil, err
	}
	x25519Pair, err := keys.GenerateX25519KeyPair()
	if err != nil {
		return nil, err
	}
	return &ephemeral{kyber: kyberPair, x25519: x25519Pair}, nil
}

// retain marks this ephemeral's key material as handed off to the
// caller (via Result), so the deferred zero() on the handshake's return
// path becomes a no-op.
func (e *ephemeral) retain() {
	e.retained = true
}

func (e *ephemeral) zero() {
	if e == nil || e.retained {
		return
	}
	e.kyber.Zero()
	e.x25519.Zero()
}

// Result is returned to the caller once a handshake reaches Established.
// It contains everything the Double-Ratchet session needs to bootstrap:
// the master secret and session id, plus both peers' final handshake
// ephemeral key pairs repurposed as ratchet epoch-0 material (see
// ephemeral.retain).
type Result struct {
	Session        SessionRef
	SessionID      [32]byte
	MasterSecret   [32]byte
	SelectedMode   AuthenticationMode
	PeerIdentityPK []byte
	Transcript     []byte

	// RatchetOwnKyber/RatchetOwnX25519 are this side's retained
	// handshake ephemeral key pair; RatchetPeerKyberPK/RatchetPeerX25519PK
	// are the peer's corresponding public keys. Together they seed
	// ratchet.NewEngine's epoch-0 asymmetric-ratchet state.
	RatchetOwnKyber     *keys.KyberKeyPair
	RatchetOwnX25519    *keys.X25519KeyPair
	RatchetPeerKyberPK  []byte
	RatchetPeerX25519PK [32]byte
}

// deriveHybridAndMaster combines a Kyber shared secret pair (in the
// canonical responder-to-initiator, then initiator-to-responder order
// fixed by SPEC_FULL.md §2) and an X25519 DH output into hybrid_ss,
// then salts it with both randoms into master_secret.
func deriveHybridAndMaster(responderToInitiatorSS, initiatorToResponderSS, x25519SS []byte, clientRandom, serverRandom [32]byte) (hybridSS, masterSecret [32]byte) {
	kyberSS := make([]byte, 0, len(responderToInitiatorSS)+len(initiatorToResponderSS))
	kyberSS = append(kyberSS, responderToInitiatorSS...)
	kyberSS = append(kyberSS, initiatorToResponderSS...)
	hybridSS = schedule.DeriveHybridKEM(kyberSS, x25519SS)
	masterSecret = schedule.DeriveMasterSecret(clientRandom, serverRandom, hybridSS)
	return hybridSS, masterSecret
}

func zeroArray32(b *[32]byte) {
	for i := range b {
		b[i] = 0
	}
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
