// Package storage provides the pluggable identity-key-custody interface
// named in the design's §6.1 collaborators, plus an in-memory reference
// implementation standing in for an encrypted keystore or HSM backend.
package storage

import (
	"errors"
	"sort"
	"sync"

	b4crypto "github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto"
)

var (
	ErrIdentityNotFound      = errors.New("storage: identity key not found")
	ErrIdentityAlreadyExists = errors.New("storage: identity key already exists")
)

// Identity is a long-term identity key pair bound to a peer-chosen id
// and the mode it authenticates. The custodian never exposes the raw
// private material outside of Sign; callers obtain signatures, not keys.
type Identity struct {
	ID      string
	Mode    byte // AuthenticationMode.ModeID, kept untyped here to avoid an import cycle with handshake
	KeyType b4crypto.KeyType
	Signer  b4crypto.Signer
}

// Custodian is the minimal identity-key-custody interface: an in-memory
// store, an encrypted keystore, or an HSM may all implement it.
type Custodian interface {
	Store(identity Identity) error
	Load(id string) (Identity, error)
	Delete(id string) error
	List() ([]string, error)
}

// MemoryCustodian is the reference in-memory implementation. It is not
// suitable for production identity-key custody beyond testing and
// single-process deployments without an HSM.
type MemoryCustodian struct {
	mu    sync.RWMutex
	items map[string]Identity
}

func NewMemoryCustodian() *MemoryCustodian {
	return &MemoryCustodian{items: make(map[string]Identity)}
}

func (m *MemoryCustodian) Store(identity Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.items[identity.ID]; exists {
		return ErrIdentityAlreadyExists
	}
	m.items[identity.ID] = identity
	return nil
}

func (m *MemoryCustodian) Load(id string) (Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	identity, ok := m.items[id]
	if !ok {
		return Identity{}, ErrIdentityNotFound
	}
	return identity, nil
}

func (m *MemoryCustodian) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrIdentityNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *MemoryCustodian) List() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.items))
	for id := range m.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
