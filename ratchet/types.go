// Package ratchet implements the post-handshake Double-Ratchet session:
// a symmetric chain advance per message plus an asymmetric ratchet step
// driven by fresh ephemeral Kyber/X25519 exchanges, with a bounded
// out-of-order skipped-key cache. Every key in the hierarchy traces
// back to a root key derived with session_id and protocol_id
// participating (schedule.DeriveInitialRootKey), so no key ever
// decrypts traffic belonging to a different session.
package ratchet

import "time"

// RootKey seeds each asymmetric ratchet step; replaced (and the old
// value zeroized) every time a fresh hybrid shared secret is folded in.
type RootKey [32]byte

// ChainKey advances one-way via DeriveChainAdvance on every message
// sent or received on its chain; the old value is zeroized on advance.
type ChainKey [32]byte

// MessageKey is single-use: derived from a chain key and counter,
// consumed by exactly one Seal or Open call, then zeroized (either
// immediately after use or on skip-cache eviction).
type MessageKey struct {
	EncryptionKey [32]byte
	AuthKey       [32]byte
	Counter       uint64
}

// RatchetUpdate accompanies the first outbound RatchetMessage following
// an asymmetric ratchet step, carrying the sender's fresh ephemeral
// material so the peer can fold in the same hybrid shared secret.
type RatchetUpdate struct {
	KyberPK         []byte
	X25519PK        [32]byte
	KyberCiphertext []byte
	RatchetSequence uint64
	Timestamp       int64
}

// RatchetMessage is the wire envelope for one ratchet-encrypted payload.
type RatchetMessage struct {
	Sequence       uint64
	MessageCounter uint64
	RatchetCount   uint64
	Update         *RatchetUpdate
	Ciphertext     []byte
	Tag            [16]byte
	Nonce          [12]byte
	// PlaintextLength is the sender's original length before PADMÉ
	// padding, carried alongside the ciphertext so Session.Decrypt can
	// strip padding back off. Set only by Session.Encrypt; Engine
	// itself is agnostic to padding.
	PlaintextLength uint32
}

// Config bounds the ratchet's tunable policy knobs.
type Config struct {
	// AsymmetricRatchetInterval is how many messages on the send chain
	// trigger a fresh asymmetric ratchet step absent an earlier forced
	// one. Default 100.
	AsymmetricRatchetInterval uint64
	// SkipCacheSize bounds the number of cached out-of-order skipped
	// message keys. Default 100, configurable 10-1000.
	SkipCacheSize int
}

const (
	DefaultAsymmetricRatchetInterval = 100
	DefaultSkipCacheSize             = 100
	MinSkipCacheSize                 = 10
	MaxSkipCacheSize                 = 1000
	// MaxSkip is the hard ceiling on message_counter - expected before a
	// jump is rejected outright as a denial-of-service attempt rather
	// than cached.
	MaxSkip = 1000
)

func (c Config) normalized() Config {
	if c.AsymmetricRatchetInterval == 0 {
		c.AsymmetricRatchetInterval = DefaultAsymmetricRatchetInterval
	}
	if c.SkipCacheSize == 0 {
		c.SkipCacheSize = DefaultSkipCacheSize
	}
	if c.SkipCacheSize < MinSkipCacheSize {
		c.SkipCacheSize = MinSkipCacheSize
	}
	if c.SkipCacheSize > MaxSkipCacheSize {
		c.SkipCacheSize = MaxSkipCacheSize
	}
	return c
}

func timestampNow() int64 { return time.Now().Unix() }
