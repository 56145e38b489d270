// Package rotation rotates long-term identity keys held by a
// storage.Custodian. This is distinct from two other rotations in the
// core that are deliberately NOT handled here: ephemeral handshake keys
// (zeroized, never rotated — see handshake) and the responder's cookie
// secret (rotated on its own interval with a grace window — see replay).
package rotation

import (
	"fmt"
	"sync"
	"time"

	b4crypto "github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto/identity"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto/keys"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto/storage"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/internal/logger"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/internal/metrics"
)

// bootstrapInfo binds HPKE bootstrap secrets to this protocol and
// operation, so they can never be confused with a secret exported for
// an unrelated purpose even if the same identity key is reused.
var bootstrapInfo = []byte("b4ae-identity-bootstrap-v1")

// Config controls identity-key rotation cadence.
type Config struct {
	Interval time.Duration // minimum age before a key is eligible for rotation
}

// Event records a single rotation for audit/history purposes.
type Event struct {
	IdentityID string
	RotatedAt  time.Time
	OldKeyType b4crypto.KeyType
	NewKeyType b4crypto.KeyType
}

// Rotator rotates identity keys one at a time, guarding against
// concurrent rotation of the same identity id.
type Rotator struct {
	mu        sync.Mutex
	manager   *identity.Manager
	config    Config
	history   map[string][]Event
	rotating  map[string]bool
	lastRotAt map[string]time.Time
	log       logger.Logger
}

func NewRotator(manager *identity.Manager, config Config) *Rotator {
	return &Rotator{
		manager:   manager,
		config:    config,
		history:   make(map[string][]Event),
		rotating:  make(map[string]bool),
		lastRotAt: make(map[string]time.Time),
		log:       logger.GetDefaultLogger(),
	}
}

// Rotate generates and stores a replacement identity for id, keeping
// the same authentication mode (key type). It is a no-op error if a
// rotation for id is already in flight.
func (r *Rotator) Rotate(id string) (Event, error) {
	r.mu.Lock()
	if r.rotating[id] {
		r.mu.Unlock()
		return Event{}, ErrRotationInProgress
	}
	r.rotating[id] = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.rotating, id)
		r.mu.Unlock()
	}()

	old, err := r.manager.Load(id)
	if err != nil {
		return Event{}, err
	}

	if err := r.manager.Delete(id); err != nil {
		return Event{}, err
	}

	var fresh storage.Identity
	switch old.KeyType {
	case b4crypto.KeyTypeDilithium5:
		fresh, err = r.manager.GenerateModeBIdentity(id)
	default:
		fresh, err = r.manager.GenerateModeAIdentity(id)
	}
	if err != nil {
		return Event{}, err
	}

	event := Event{IdentityID: id, RotatedAt: time.Now(), OldKeyType: old.KeyType, NewKeyType: fresh.KeyType}

	r.mu.Lock()
	r.history[id] = append(r.history[id], event)
	r.lastRotAt[id] = event.RotatedAt
	r.mu.Unlock()

	metrics.KeyRotations.WithLabelValues(fresh.KeyType.String()).Inc()
	r.log.Info("identity key rotated", logger.String("identity_id", id), logger.String("key_type", fresh.KeyType.String()))

	return event, nil
}

// Due reports whether id's identity is old enough to rotate, given the
// last rotation timestamp this Rotator has observed (or time.Time{} if none).
func (r *Rotator) Due(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	last, ok := r.lastRotAt[id]
	if !ok {
		return true
	}
	return time.Since(last) >= r.config.Interval
}

// History returns the rotation history for id, oldest first.
func (r *Rotator) History(id string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.history[id]))
	copy(out, r.history[id])
	return out
}

// ExportBootstrapSecret establishes an out-of-band HPKE Base-mode
// context from id's Mode A identity key to peerPublicKey and exports a
// shared secret, for provisioning a new device or re-keying long-term
// identity material without routing through a live handshake. Only
// Mode A (X25519-backed) identities support this; Mode B identities
// carry no ECDH key and return ErrBootstrapUnsupportedKeyType.
func (r *Rotator) ExportBootstrapSecret(id string, peerPublicKey []byte, exportContext []byte, exportLength int) (enc, secret []byte, err error) {
	stored, err := r.manager.Load(id)
	if err != nil {
		return nil, nil, err
	}
	if _, ok := stored.Signer.(*keys.XEdDSAKeyPair); !ok {
		return nil, nil, ErrBootstrapUnsupportedKeyType
	}
	enc, secret, err = keys.HPKEExportSecretToPeer(peerPublicKey, bootstrapInfo, exportContext, exportLength)
	if err != nil {
		return nil, nil, fmt.Errorf("rotation: export bootstrap secret: %w", err)
	}
	r.log.Info("identity bootstrap secret exported", logger.String("identity_id", id))
	return enc, secret, nil
}

// ImportBootstrapSecret is the receiving side of ExportBootstrapSecret:
// it reproduces the exported secret using id's own Mode A identity key
// and the sender's encapsulated key enc.
func (r *Rotator) ImportBootstrapSecret(id string, enc, exportContext []byte, exportLength int) (secret []byte, err error) {
	stored, err := r.manager.Load(id)
	if err != nil {
		return nil, err
	}
	xeddsa, ok := stored.Signer.(*keys.XEdDSAKeyPair)
	if !ok {
		return nil, ErrBootstrapUnsupportedKeyType
	}
	secret, err = xeddsa.X25519().HPKEImportSecret(enc, bootstrapInfo, exportContext, exportLength)
	if err != nil {
		return nil, fmt.Errorf("rotation: import bootstrap secret: %w", err)
	}
	r.log.Info("identity bootstrap secret imported", logger.String("identity_id", id))
	return secret, nil
}

type rotationError string

func (e rotationError) Error() string { return string(e) }

const (
	ErrRotationInProgress          = rotationError("rotation: a rotation for this identity is already in progress")
	ErrBootstrapUnsupportedKeyType = rotationError("rotation: identity bootstrap requires a Mode A (X25519-backed) identity")
)
