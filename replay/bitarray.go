package replay

import "github.com/bits-and-blooms/bitset"

// bitArray wraps bits-and-blooms/bitset, the bit-vector backing for
// BloomFilter (promoted here from the teacher's indirect dependency
// closure to a direct one).
type bitArray struct {
	bits *bitset.BitSet
}

func newBitArray(numBits uint64) *bitArray {
	return &bitArray{bits: bitset.New(uint(numBits))}
}

func (b *bitArray) set(i uint64)       { b.bits.Set(uint(i)) }
func (b *bitArray) test(i uint64) bool { return b.bits.Test(uint(i)) }
func (b *bitArray) clearAll()          { b.bits.ClearAll() }
