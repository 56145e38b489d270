// Package identity generates and stores long-term identity key pairs
// for both authentication modes, wiring crypto/keys' signers into
// crypto/storage's custodian interface. Kept as a separate package
// (rather than living in crypto or crypto/storage directly) so that
// neither of those lower-level packages needs to import the other.
package identity

import (
	b4crypto "github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto/keys"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto/storage"
)

// Manager generates and stores long-term identity key pairs, delegating
// custody to a storage.Custodian (in-memory, encrypted keystore, or HSM).
type Manager struct {
	custodian storage.Custodian
}

// NewManager wraps a custodian for identity-key generation and lookup.
func NewManager(custodian storage.Custodian) *Manager {
	return &Manager{custodian: custodian}
}

// GenerateModeAIdentity creates and stores a fresh XEdDSA (Mode A) identity.
func (m *Manager) GenerateModeAIdentity(id string) (storage.Identity, error) {
	x25519Pair, err := keys.GenerateX25519KeyPair()
	if err != nil {
		return storage.Identity{}, err
	}
	signer := keys.NewXEdDSAKeyPair(x25519Pair)
	identity := storage.Identity{ID: id, KeyType: b4crypto.KeyTypeX25519, Signer: signer}
	if err := m.custodian.Store(identity); err != nil {
		return storage.Identity{}, err
	}
	return identity, nil
}

// GenerateModeBIdentity creates and stores a fresh Dilithium5 (Mode B) identity.
func (m *Manager) GenerateModeBIdentity(id string) (storage.Identity, error) {
	dilithiumPair, err := keys.GenerateDilithiumKeyPair()
	if err != nil {
		return storage.Identity{}, err
	}
	identity := storage.Identity{ID: id, KeyType: b4crypto.KeyTypeDilithium5, Signer: dilithiumPair}
	if err := m.custodian.Store(identity); err != nil {
		return storage.Identity{}, err
	}
	return identity, nil
}

// Load retrieves a previously stored identity by id.
func (m *Manager) Load(id string) (storage.Identity, error) {
	return m.custodian.Load(id)
}

// Delete removes a previously stored identity by id, used by rotation
// to retire superseded key material before storing its replacement.
func (m *Manager) Delete(id string) error {
	return m.custodian.Delete(id)
}
