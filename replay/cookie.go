package replay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"

	b4crypto "github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto"
	b4errors "github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/errors"
)

// CookieSize is the full, untruncated HMAC-SHA256 output length (the
// canonical spec's resolved choice between "full" and "truncated").
const CookieSize = 32

// IssueCookie computes HMAC-SHA256(secret, client_ip || timestamp_be || client_random).
func IssueCookie(secret [32]byte, clientIP []byte, timestamp time.Time, clientRandom [32]byte) [CookieSize]byte {
	mac := hmac.New(sha256.New, secret[:])
	mac.Write(clientIP)
	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], uint64(timestamp.Unix()))
	mac.Write(tsBuf[:])
	mac.Write(clientRandom[:])

	var out [CookieSize]byte
	copy(out[:], mac.Sum(nil))
	return out
}

// Verifier checks cookies against a rotating secret and a replay filter.
type Verifier struct {
	Secrets *SecretRotator
	Filter  *BloomFilter
}

// NewVerifier wires a rotating secret to a Bloom filter sized per
// spec §4.3 (capacity >= peak handshake rate * 30s * 2, FPR <= 1e-3).
// The filter is reset in step with secret rotation (see
// SecretRotator.SetOnSecretRetired), since it is sized for one grace
// window's worth of client_random entries, not a full secret lifetime.
func NewVerifier(secrets *SecretRotator, peakHandshakesPerSecond uint64) *Verifier {
	capacity := peakHandshakesPerSecond * 30 * 2
	v := &Verifier{Secrets: secrets, Filter: NewBloomFilter(capacity, 1e-3)}
	secrets.SetOnSecretRetired(v.Filter.Reset)
	return v
}

// Verify checks a presented cookie for freshness, correctness under any
// currently-accepted secret, and absence from the replay filter. On
// success it inserts clientRandom into the filter so a second
// presentation of the same cookie is rejected. All outcomes collapse
// to CookieChallengeFailed per spec §4.3/§7; no distinct sub-reason is
// exposed.
func (v *Verifier) Verify(clientIP []byte, claimedTimestamp time.Time, clientRandom [32]byte, presented [CookieSize]byte) error {
	if delta := time.Since(claimedTimestamp); delta < -CookieFreshnessWindow || delta > CookieFreshnessWindow {
		return b4errors.New(b4errors.CookieChallengeFailed, "cookie timestamp outside freshness window")
	}

	matched := false
	for _, secret := range v.Secrets.Candidates() {
		expected := IssueCookie(secret, clientIP, claimedTimestamp, clientRandom)
		if b4crypto.ConstantTimeEqual(expected[:], presented[:]) {
			matched = true
		}
	}
	if !matched {
		return b4errors.New(b4errors.CookieChallengeFailed, "cookie verification failed")
	}

	if alreadySeen := v.Filter.InsertIfAbsent(clientRandom[:]); alreadySeen {
		return b4errors.New(b4errors.CookieChallengeFailed, "client random already observed")
	}
	return nil
}
