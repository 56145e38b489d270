package schedule

import (
	"encoding/binary"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/sha3"

	b4crypto "github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto"
)

func beU64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func hkdfBytes(ikm, salt []byte, info string, outLen int) []byte {
	r := hkdf.New(sha3.New256, ikm, salt, []byte(info))
	out := make([]byte, outLen)
	if _, err := io.ReadFull(r, out); err != nil {
		// HKDF-Expand can only fail if outLen exceeds 255*HashLen; every
		// call site in this package requests at most 64 bytes.
		panic("schedule: hkdf expansion failed: " + err.Error())
	}
	return out
}

func hkdf32(ikm, salt []byte, info string) [32]byte {
	var out [32]byte
	copy(out[:], hkdfBytes(ikm, salt, info, 32))
	return out
}

// DeriveHybridKEM combines the Kyber-1024 and X25519 shared secrets.
func DeriveHybridKEM(kyberSS, x25519SS []byte) [32]byte {
	ikm := make([]byte, 0, len(kyberSS)+len(x25519SS))
	ikm = append(ikm, kyberSS...)
	ikm = append(ikm, x25519SS...)
	return hkdf32(ikm, nil, InfoHybridKEM)
}

// DeriveMasterSecret salts the hybrid shared secret with both randoms.
func DeriveMasterSecret(clientRandom, serverRandom [32]byte, hybridSS [32]byte) [32]byte {
	salt := make([]byte, 0, 64)
	salt = append(salt, clientRandom[:]...)
	salt = append(salt, serverRandom[:]...)
	return hkdf32(hybridSS[:], salt, InfoMasterSecret)
}

func DeriveEncryptionKey(masterSecret [32]byte) [32]byte {
	return hkdf32(masterSecret[:], nil, InfoEncryptionKey)
}

func DeriveAuthenticationKey(masterSecret [32]byte) [32]byte {
	return hkdf32(masterSecret[:], nil, InfoAuthenticationKey)
}

func DeriveMetadataKey(masterSecret [32]byte) [32]byte {
	return hkdf32(masterSecret[:], nil, InfoMetadataKey)
}

// DeriveSessionID derives the 32-byte session identifier bound into
// every subsequent key in the schedule.
func DeriveSessionID(clientRandom, serverRandom [32]byte, modeID byte) [32]byte {
	ikm := make([]byte, 0, 65)
	ikm = append(ikm, clientRandom[:]...)
	ikm = append(ikm, serverRandom[:]...)
	ikm = append(ikm, modeID)
	return hkdf32(ikm, nil, InfoSessionID)
}

func DeriveHandshakeConfirmation(hybridSS [32]byte) [32]byte {
	return hkdf32(hybridSS[:], nil, InfoHandshakeConfirm)
}

// sessionBoundIKM prefixes ikm with session_id and protocol_id so every
// key anchored here is independent across sessions and protocol
// revisions; everything the ratchet derives downstream from this key
// inherits that independence without needing to re-mix either value.
func sessionBoundIKM(sessionID [32]byte, ikm []byte) []byte {
	out := make([]byte, 0, 64+len(ikm))
	out = append(out, sessionID[:]...)
	out = append(out, ProtocolID[:]...)
	out = append(out, ikm...)
	return out
}

func DeriveInitialRootKey(masterSecret, sessionID [32]byte) [32]byte {
	return hkdf32(sessionBoundIKM(sessionID, masterSecret[:]), nil, InfoDoubleRatchetRoot)
}

func DeriveInitialSendChain(masterSecret, sessionID [32]byte) [32]byte {
	return hkdf32(sessionBoundIKM(sessionID, masterSecret[:]), nil, InfoSendingChain0)
}

func DeriveInitialRecvChain(masterSecret, sessionID [32]byte) [32]byte {
	return hkdf32(sessionBoundIKM(sessionID, masterSecret[:]), nil, InfoReceivingChain0)
}

// DeriveRootRatchet mixes the current root key with a fresh hybrid
// shared secret from an asymmetric ratchet step.
func DeriveRootRatchet(rootKey [32]byte, hybridSS [32]byte) [32]byte {
	ikm := make([]byte, 0, 64)
	ikm = append(ikm, rootKey[:]...)
	ikm = append(ikm, hybridSS[:]...)
	return hkdf32(ikm, nil, InfoRootRatchet)
}

func DeriveSendChain(newRootKey [32]byte) [32]byte {
	return hkdf32(newRootKey[:], nil, InfoSendingChain)
}

func DeriveRecvChain(newRootKey [32]byte) [32]byte {
	return hkdf32(newRootKey[:], nil, InfoReceivingChain)
}

// DeriveMessageKeyMaterial expands a chain key and counter into 64
// bytes, split by the caller into (encryption_key, auth_key).
func DeriveMessageKeyMaterial(chainKey [32]byte, counter uint64) (encryptionKey, authKey [32]byte) {
	ikm := make([]byte, 0, 40)
	ikm = append(ikm, chainKey[:]...)
	ikm = append(ikm, beU64(counter)...)
	out := hkdfBytes(ikm, nil, InfoMessageKey, 64)
	copy(encryptionKey[:], out[:32])
	copy(authKey[:], out[32:64])
	return encryptionKey, authKey
}

func DeriveChainAdvance(chainKey [32]byte) [32]byte {
	return hkdf32(chainKey[:], nil, InfoChainAdvance)
}

// DeriveNonce derives the 12-byte AEAD nonce for a given message counter.
func DeriveNonce(encryptionKey [32]byte, counter uint64) [12]byte {
	ikm := make([]byte, 0, 40)
	ikm = append(ikm, encryptionKey[:]...)
	ikm = append(ikm, beU64(counter)...)
	var nonce [12]byte
	copy(nonce[:], hkdfBytes(ikm, nil, InfoNonce, 12))
	return nonce
}

// ModeBinding is a direct hash (not HKDF) of the mode-negotiation
// transcript, per the closed table's "n/a (direct hash)" entry.
func ModeBinding(clientRandom, serverRandom [32]byte, modeID byte) [32]byte {
	return b4crypto.Hash([]byte(InfoModeBindingLiteral), clientRandom[:], serverRandom[:], []byte{modeID})
}
