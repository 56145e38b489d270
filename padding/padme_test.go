package padding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	b4errors "github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/errors"
)

func TestPad_SelectsSmallestBucket(t *testing.T) {
	cases := []struct {
		length int
		bucket int
	}{
		{0, 512},
		{1, 512},
		{512, 512},
		{513, 1024},
		{65536, 65536},
	}
	for _, c := range cases {
		padded, originalLength, err := Pad(make([]byte, c.length))
		require.NoError(t, err)
		assert.Len(t, padded, c.bucket)
		assert.Equal(t, c.length, originalLength)
	}
}

func TestPad_RejectsOversizedPlaintext(t *testing.T) {
	_, _, err := Pad(make([]byte, MaxPlaintextSize+1))
	require.Error(t, err)
	kind, ok := b4errors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, b4errors.InvalidPadding, kind)
}

func TestPadUnpad_RoundTrip(t *testing.T) {
	plaintext := []byte("the quick brown fox jumps over the lazy dog")
	padded, originalLength, err := Pad(plaintext)
	require.NoError(t, err)

	recovered, err := Unpad(padded, originalLength)
	require.NoError(t, err)
	assert.Equal(t, plaintext, recovered)
}

func TestUnpad_RejectsTamperedPadding(t *testing.T) {
	plaintext := []byte("short message")
	padded, originalLength, err := Pad(plaintext)
	require.NoError(t, err)

	padded[len(padded)-1] ^= 0xFF

	_, err = Unpad(padded, originalLength)
	assert.Error(t, err)
}

func TestUnpad_RejectsOutOfRangeLength(t *testing.T) {
	padded, _, err := Pad([]byte("x"))
	require.NoError(t, err)

	_, err = Unpad(padded, len(padded)+1)
	assert.Error(t, err)
}
