package ratchet

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/audit"
	b4crypto "github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto/keys"
	b4errors "github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/errors"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/internal/logger"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/internal/metrics"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/schedule"
)

// chain is one direction's symmetric-ratchet state.
type chain struct {
	key     ChainKey
	counter uint64
}

// Engine owns one session's full Double-Ratchet state: root key,
// send/recv chains, ratchet epochs, the peer's most recently advertised
// ephemeral public keys, and the bounded skip cache. A single Engine
// must never be mutated by two goroutines concurrently except through
// its own locking — callers serialize per-session access (see
// Non-goals/concurrency notes) but Engine defends itself regardless.
type Engine struct {
	mu sync.Mutex

	sessionID [32]byte
	config    Config

	root RootKey
	send chain
	recv chain

	sendRatchetCount uint64
	recvRatchetCount uint64
	ratchetSequence  uint64
	sentSinceStep    uint64
	forcedStep       bool

	ownKyber  *keys.KyberKeyPair
	ownX25519 *keys.X25519KeyPair

	peerKyberPK  []byte
	peerX25519PK [32]byte

	skip *skipCache

	audit audit.Sink
	log   logger.Logger
}

// SetAudit wires a security-event sink for replay detections. Defaults
// to a no-op sink if never called.
func (e *Engine) SetAudit(sink audit.Sink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.audit = sink
}

// NewEngine bootstraps an Engine immediately after a handshake reaches
// Established. initiator selects which of the two initial chains this
// peer sends on, per the fixed sending/receiving convention: the
// initiator sends on chain0-send and receives on chain0-recv; the
// responder's roles are the mirror image, so both peers agree on which
// physical chain is which direction's.
func NewEngine(masterSecret, sessionID [32]byte, initiator bool, ownKyber *keys.KyberKeyPair, ownX25519 *keys.X25519KeyPair, peerKyberPK []byte, peerX25519PK [32]byte, config Config) *Engine {
	config = config.normalized()

	rootKey := schedule.DeriveInitialRootKey(masterSecret, sessionID)
	chain0Send := schedule.DeriveInitialSendChain(masterSecret, sessionID)
	chain0Recv := schedule.DeriveInitialRecvChain(masterSecret, sessionID)

	var sendKey, recvKey ChainKey
	if initiator {
		sendKey, recvKey = ChainKey(chain0Send), ChainKey(chain0Recv)
	} else {
		sendKey, recvKey = ChainKey(chain0Recv), ChainKey(chain0Send)
	}

	return &Engine{
		sessionID:    sessionID,
		config:       config,
		root:         RootKey(rootKey),
		send:         chain{key: sendKey},
		recv:         chain{key: recvKey},
		ownKyber:     ownKyber,
		ownX25519:    ownX25519,
		peerKyberPK:  peerKyberPK,
		peerX25519PK: peerX25519PK,
		skip:         newSkipCache(config.SkipCacheSize),
		audit:        audit.NopSink{},
		log:          logger.GetDefaultLogger(),
	}
}

func aad(counter, ratchetCount uint64) []byte {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[0:8], counter)
	binary.BigEndian.PutUint64(b[8:16], ratchetCount)
	return b
}

// EncryptNext advances the send chain by one message, performing an
// asymmetric ratchet step first if the interval policy or a prior
// forced step demands it.
func (e *Engine) EncryptNext(plaintext []byte) (*RatchetMessage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var update *RatchetUpdate
	if e.sentSinceStep >= e.config.AsymmetricRatchetInterval || e.forcedStep {
		upd, err := e.stepAsymmetricSendLocked()
		if err != nil {
			return nil, err
		}
		update = upd
	}

	counter := e.send.counter
	encKey, authKey := schedule.DeriveMessageKeyMaterial(ChainKeyBytes(e.send.key), counter)
	nonce := schedule.DeriveNonce(encKey, counter)

	aeadBody := aad(counter, e.sendRatchetCount)
	cipher, err := b4crypto.NewAEAD(encKey)
	if err != nil {
		return nil, b4errors.Wrap(b4errors.InternalError, "failed to construct AEAD cipher", err)
	}
	sealed := cipher.Seal(nil, nonce, plaintext, aeadBody)
	ciphertext := sealed[:len(sealed)-b4crypto.AEADTagSize]
	var tag [16]byte
	copy(tag[:], sealed[len(sealed)-b4crypto.AEADTagSize:])

	newChainKey := schedule.DeriveChainAdvance(ChainKeyBytes(e.send.key))
	zero(e.send.key[:])
	e.send.key = ChainKey(newChainKey)
	e.send.counter++
	e.sentSinceStep++

	zero(encKey[:])
	zero(authKey[:])

	e.ratchetSequence++
	metrics.MessageOperations.WithLabelValues("encrypt", "success").Inc()

	return &RatchetMessage{
		Sequence:       e.ratchetSequence,
		MessageCounter: counter,
		RatchetCount:   e.sendRatchetCount,
		Update:         update,
		Ciphertext:     ciphertext,
		Tag:            tag,
		Nonce:          nonce,
	}, nil
}

// Decrypt processes one inbound RatchetMessage, handling in-order,
// skipped-ahead, and cached-behind delivery per spec §4.5.
func (e *Engine) Decrypt(msg *RatchetMessage) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if msg.RatchetCount < e.recvRatchetCount {
		metrics.MessageOperations.WithLabelValues("decrypt", "old_epoch").Inc()
		return nil, b4errors.New(b4errors.ProtocolViolation, "ratchet message from an old epoch")
	}
	if msg.RatchetCount > e.recvRatchetCount {
		if msg.Update == nil {
			return nil, b4errors.New(b4errors.ProtocolViolation, "ratchet epoch advance without an accompanying update")
		}
		if err := e.applyPeerRatchetUpdateLocked(msg.Update); err != nil {
			return nil, err
		}
	}

	var mk MessageKey
	expected := e.recv.counter
	switch {
	case msg.MessageCounter == expected:
		mk = e.deriveAndAdvanceRecvLocked(msg.MessageCounter)
	case msg.MessageCounter > expected:
		skip := msg.MessageCounter - expected
		if skip > MaxSkip {
			metrics.MessageOperations.WithLabelValues("decrypt", "skip_rejected").Inc()
			return nil, b4errors.New(b4errors.ProtocolViolation, "message counter skip exceeds maximum out-of-order tolerance")
		}
		for c := expected; c < msg.MessageCounter; c++ {
			cached := e.deriveAndAdvanceRecvLocked(c)
			e.skip.put(skipKey{ratchetCount: e.recvRatchetCount, counter: c}, cached)
		}
		mk = e.deriveAndAdvanceRecvLocked(msg.MessageCounter)
	default:
		cached, ok := e.skip.take(skipKey{ratchetCount: msg.RatchetCount, counter: msg.MessageCounter})
		if !ok {
			metrics.MessageOperations.WithLabelValues("decrypt", "replay_or_unknown").Inc()
			e.audit.Record(audit.Event{
				Kind:            audit.EventReplayDetected,
				HashedSessionID: audit.HashIdentifier(e.sessionID[:]),
				Timestamp:       time.Now(),
			})
			return nil, b4errors.New(b4errors.ReplayDetected, "message counter below current window and not cached")
		}
		mk = cached
	}

	aeadBody := aad(msg.MessageCounter, msg.RatchetCount)
	cipher, err := b4crypto.NewAEAD(mk.EncryptionKey)
	if err != nil {
		return nil, b4errors.Wrap(b4errors.InternalError, "failed to construct AEAD cipher", err)
	}
	sealed := make([]byte, 0, len(msg.Ciphertext)+len(msg.Tag))
	sealed = append(sealed, msg.Ciphertext...)
	sealed = append(sealed, msg.Tag[:]...)
	plaintext, err := cipher.Open(nil, msg.Nonce, sealed, aeadBody)

	zero(mk.EncryptionKey[:])
	zero(mk.AuthKey[:])

	if err != nil {
		metrics.MessageOperations.WithLabelValues("decrypt", "auth_failed").Inc()
		return nil, b4errors.Wrap(b4errors.AuthenticationFailed, "ratchet message authentication failed", err)
	}

	e.skip.evictBelow(msg.RatchetCount, msg.MessageCounter, e.config.SkipCacheSize)
	metrics.MessageOperations.WithLabelValues("decrypt", "success").Inc()
	metrics.SkippedKeysCached.Set(float64(e.skip.len()))
	return plaintext, nil
}

func (e *Engine) deriveAndAdvanceRecvLocked(counter uint64) MessageKey {
	encKey, authKey := schedule.DeriveMessageKeyMaterial(ChainKeyBytes(e.recv.key), counter)
	mk := MessageKey{EncryptionKey: encKey, AuthKey: authKey, Counter: counter}

	newChainKey := schedule.DeriveChainAdvance(ChainKeyBytes(e.recv.key))
	zero(e.recv.key[:])
	e.recv.key = ChainKey(newChainKey)
	if counter >= e.recv.counter {
		e.recv.counter = counter + 1
	}
	return mk
}

// stepAsymmetricSendLocked performs our half of the asymmetric ratchet:
// a fresh ephemeral pair is generated to advertise, the Kyber ciphertext
// is encapsulated to the peer's *current* advertised Kyber key (no own
// key pair is needed for encapsulation), and the X25519 half uses our
// fresh private scalar against the peer's current public key.
func (e *Engine) stepAsymmetricSendLocked() (*RatchetUpdate, error) {
	peerKyberPK, err := keys.KyberPublicKeyFromBytes(e.peerKyberPK)
	if err != nil {
		return nil, b4errors.Wrap(b4errors.InternalError, "invalid peer kyber public key", err)
	}
	ciphertextToPeer, kyberSS, err := keys.EncapsulateTo(peerKyberPK)
	if err != nil {
		return nil, b4errors.Wrap(b4errors.InternalError, "kyber encapsulation failed", err)
	}

	freshX25519, err := keys.GenerateX25519KeyPair()
	if err != nil {
		return nil, b4errors.Wrap(b4errors.InternalError, "failed to generate ratchet ephemeral", err)
	}
	x25519SS, err := freshX25519.SharedSecret(e.peerX25519PK[:])
	if err != nil {
		return nil, b4errors.Wrap(b4errors.InternalError, "x25519 agreement failed", err)
	}

	hybridSS := schedule.DeriveHybridKEM(kyberSS, x25519SS)
	newRootKey := schedule.DeriveRootRatchet(RootKeyBytes(e.root), hybridSS)
	zero(e.root[:])
	e.root = RootKey(newRootKey)

	newSendChain := schedule.DeriveSendChain(newRootKey)
	zero(e.send.key[:])
	e.send = chain{key: ChainKey(newSendChain)}
	e.sentSinceStep = 0
	e.forcedStep = false
	e.sendRatchetCount++

	zero(kyberSS)
	zero(x25519SS)
	zero(hybridSS[:])

	freshKyber, err := keys.GenerateKyberKeyPair()
	if err != nil {
		return nil, b4errors.Wrap(b4errors.InternalError, "failed to generate ratchet ephemeral", err)
	}
	e.ownX25519.Zero()
	e.ownX25519 = freshX25519
	e.ownKyber.Zero()
	e.ownKyber = freshKyber

	metrics.RatchetSteps.Inc()
	e.log.Debug("asymmetric ratchet step (send)", logger.Int("ratchet_count", int(e.sendRatchetCount)))

	var x25519PK [32]byte
	copy(x25519PK[:], freshX25519.PublicKey())

	return &RatchetUpdate{
		KyberPK:         freshKyber.PublicKey(),
		X25519PK:        x25519PK,
		KyberCiphertext: ciphertextToPeer,
		RatchetSequence: e.sendRatchetCount,
		Timestamp:       timestampNow(),
	}, nil
}

// applyPeerRatchetUpdateLocked is the receive-side half: we decapsulate
// under our still-current ephemeral (the one we last advertised), fold
// in the new root key, and remember the peer's freshly advertised keys
// for our own next send step — which is now forced regardless of the
// message-count interval, per spec §4.5.
func (e *Engine) applyPeerRatchetUpdateLocked(update *RatchetUpdate) error {
	if len(update.KyberCiphertext) == 0 {
		return b4errors.New(b4errors.ProtocolViolation, "ratchet update missing kyber ciphertext")
	}
	kyberSS, err := e.ownKyber.Decapsulate(update.KyberCiphertext)
	if err != nil {
		return b4errors.Wrap(b4errors.ProtocolViolation, "ratchet kyber decapsulation failed", err)
	}
	x25519SS, err := e.ownX25519.SharedSecret(update.X25519PK[:])
	if err != nil {
		return b4errors.Wrap(b4errors.ProtocolViolation, "ratchet x25519 agreement failed", err)
	}

	hybridSS := schedule.DeriveHybridKEM(kyberSS, x25519SS)
	newRootKey := schedule.DeriveRootRatchet(RootKeyBytes(e.root), hybridSS)
	zero(e.root[:])
	e.root = RootKey(newRootKey)

	newRecvChain := schedule.DeriveRecvChain(newRootKey)
	zero(e.recv.key[:])
	e.recv = chain{key: ChainKey(newRecvChain)}
	e.recvRatchetCount = update.RatchetSequence

	e.peerKyberPK = update.KyberPK
	copy(e.peerX25519PK[:], update.X25519PK[:])
	e.forcedStep = true

	zero(kyberSS)
	zero(x25519SS)
	zero(hybridSS[:])

	metrics.RatchetSteps.Inc()
	e.log.Debug("asymmetric ratchet step (recv)", logger.Int("ratchet_count", int(e.recvRatchetCount)))
	return nil
}

// ChainKeyBytes and RootKeyBytes adapt the distinct key types to the
// schedule package's plain [32]byte derivation functions.
func ChainKeyBytes(k ChainKey) [32]byte { return [32]byte(k) }
func RootKeyBytes(k RootKey) [32]byte   { return [32]byte(k) }
