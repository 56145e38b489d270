// Package padding implements PADMÉ bucket padding: plaintexts are
// padded up to the smallest of a fixed set of power-of-two-ish bucket
// sizes, hiding exact length while leaving only the bucket (not the
// precise size) observable. Unpadding is constant-time.
package padding

import (
	"crypto/subtle"

	b4errors "github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/errors"
)

// Buckets, in ascending order. MaxPlaintextSize is the largest
// plaintext this scheme accepts; anything larger is rejected at the
// API layer rather than padded into a larger bucket.
var Buckets = []int{512, 1024, 2048, 4096, 8192, 16384, 32768, 65536}

const MaxPlaintextSize = 65536

// Pad pads plaintext up to the smallest bucket size that accommodates
// it, filling the padding with a byte value equal to padding_length
// mod 256 repeated padding_length times. It returns the padded buffer
// and the original length to carry alongside it in the envelope.
func Pad(plaintext []byte) (padded []byte, originalLength int, err error) {
	if len(plaintext) > MaxPlaintextSize {
		return nil, 0, b4errors.New(b4errors.InvalidPadding, "plaintext exceeds the maximum padded bucket size")
	}

	bucket := selectBucket(len(plaintext))
	padLength := bucket - len(plaintext)
	padByte := byte(padLength % 256)

	padded = make([]byte, bucket)
	copy(padded, plaintext)
	for i := len(plaintext); i < bucket; i++ {
		padded[i] = padByte
	}
	return padded, len(plaintext), nil
}

func selectBucket(plaintextLength int) int {
	for _, bucket := range Buckets {
		if plaintextLength <= bucket {
			return bucket
		}
	}
	// Unreachable: Pad rejects anything larger than the largest bucket
	// before calling this.
	return Buckets[len(Buckets)-1]
}

// Unpad strips padding given the original length stored in the
// envelope, verifying every padding byte in constant time: it never
// branches on the comparison outcome until a single accumulated
// decision at the end, so the number of matching/mismatching bytes
// examined does not leak through timing.
func Unpad(padded []byte, originalLength int) ([]byte, error) {
	if originalLength < 0 || originalLength > len(padded) {
		return nil, b4errors.New(b4errors.InvalidPadding, "stored original length is out of range for this buffer")
	}

	padLength := len(padded) - originalLength
	expected := byte(padLength % 256)

	mismatch := 0
	for i := originalLength; i < len(padded); i++ {
		mismatch |= subtle.ConstantTimeByteEq(padded[i], expected) ^ 1
	}
	if mismatch != 0 {
		return nil, b4errors.New(b4errors.InvalidPadding, "padding bytes do not match the expected value")
	}
	return padded[:originalLength], nil
}
