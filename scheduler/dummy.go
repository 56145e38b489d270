package scheduler

import (
	"crypto/rand"
	"math/big"
	"time"

	b4crypto "github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/crypto"
	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/padding"
)

// generateDummyEntry produces a queue entry whose wire form is
// indistinguishable from a real padded ratchet message: a bucket size
// drawn from the same PADMÉ distribution, filled with random bytes
// (including where a real entry would carry its AEAD tag), and no
// session_id any live session recognizes. It decrypts under no key;
// a recipient that stumbles onto it fails AEAD verification exactly
// like any other forged ciphertext and discards it silently.
func generateDummyEntry() (SchedulerQueueEntry, error) {
	bucket, err := randomBucket()
	if err != nil {
		return SchedulerQueueEntry{}, err
	}

	body := make([]byte, bucket+b4crypto.AEADTagSize)
	if _, err := rand.Read(body); err != nil {
		return SchedulerQueueEntry{}, err
	}

	var sessionID [32]byte
	if _, err := rand.Read(sessionID[:]); err != nil {
		return SchedulerQueueEntry{}, err
	}

	return SchedulerQueueEntry{
		SessionID:        sessionID,
		PaddedCiphertext: body,
		EnqueueTimestamp: time.Now(),
		IsReal:           false,
	}, nil
}

func randomBucket() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(padding.Buckets))))
	if err != nil {
		return 0, err
	}
	return padding.Buckets[n.Int64()], nil
}
