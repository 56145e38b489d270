// Package replay implements the responder's stateless DoS defenses:
// the cookie challenge (cookie.go), its rotating secret (secret.go),
// and a Bloom filter over recently accepted client-randoms (this
// file), per spec §4.3.
package replay

import (
	"encoding/binary"
	"math"
	"sync"

	"golang.org/x/crypto/sha3"
)

// BloomFilter is a fixed-size probabilistic set with no false
// negatives, sized from a target capacity and false-positive rate.
// Safe for concurrent use; insert and test are both short-critical-section.
type BloomFilter struct {
	mu   sync.Mutex
	bits *bitArray
	m    uint64 // number of bits
	k    uint64 // number of hash functions
}

// NewBloomFilter sizes a filter for capacity expected items at false
// positive rate falsePositiveRate (e.g. 1e-3), per the standard
// m = ceil(-n*ln(p)/ln(2)^2), k = round(m/n * ln(2)) formulas.
func NewBloomFilter(capacity uint64, falsePositiveRate float64) *BloomFilter {
	if capacity == 0 {
		capacity = 1
	}
	n := float64(capacity)
	m := uint64(math.Ceil(-n * math.Log(falsePositiveRate) / (math.Ln2 * math.Ln2)))
	if m < 64 {
		m = 64
	}
	k := uint64(math.Round(float64(m) / n * math.Ln2))
	if k < 1 {
		k = 1
	}
	if k > 16 {
		k = 16
	}
	return &BloomFilter{bits: newBitArray(m), m: m, k: k}
}

// hashPair derives two independent 64-bit hashes of item via SHA3-256,
// used for Kirsch-Mitzenmacher double hashing: g_i(x) = h1 + i*h2 mod m.
func hashPair(item []byte) (h1, h2 uint64) {
	digest := sha3.Sum256(item)
	h1 = binary.BigEndian.Uint64(digest[0:8])
	h2 = binary.BigEndian.Uint64(digest[8:16])
	if h2 == 0 {
		h2 = 1
	}
	return h1, h2
}

// Insert adds item to the filter.
func (f *BloomFilter) Insert(item []byte) {
	h1, h2 := hashPair(item)
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := uint64(0); i < f.k; i++ {
		f.bits.set((h1 + i*h2) % f.m)
	}
}

// Contains reports whether item may have been inserted (true positive
// or false positive; never a false negative).
func (f *BloomFilter) Contains(item []byte) bool {
	h1, h2 := hashPair(item)
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := uint64(0); i < f.k; i++ {
		if !f.bits.test((h1 + i*h2) % f.m) {
			return false
		}
	}
	return true
}

// InsertIfAbsent atomically checks and inserts item, reporting whether
// it was already present (i.e. a likely replay). This is the operation
// the cookie verifier actually needs: check-then-set without a race
// window between the two.
func (f *BloomFilter) InsertIfAbsent(item []byte) (alreadyPresent bool) {
	h1, h2 := hashPair(item)
	f.mu.Lock()
	defer f.mu.Unlock()
	present := true
	for i := uint64(0); i < f.k; i++ {
		if !f.bits.test((h1 + i*h2) % f.m) {
			present = false
			break
		}
	}
	for i := uint64(0); i < f.k; i++ {
		f.bits.set((h1 + i*h2) % f.m)
	}
	return present
}

// Reset clears the filter, used on secret rotation per spec §4.3.
func (f *BloomFilter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bits.clearAll()
}
