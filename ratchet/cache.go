package ratchet

// skipKey identifies one skipped message key by the epoch (ratchet
// count) and counter it was derived under; epochs never reuse counters
// in a way that would collide across ratchet steps.
type skipKey struct {
	ratchetCount uint64
	counter      uint64
}

// skipCache holds derived-but-unconsumed message keys for out-of-order
// delivery, bounded to maxSize with lowest-counter eviction per spec
// §4.5 ("evicts lowest counter on overflow").
type skipCache struct {
	maxSize int
	keys    map[skipKey]MessageKey
}

func newSkipCache(maxSize int) *skipCache {
	return &skipCache{maxSize: maxSize, keys: make(map[skipKey]MessageKey)}
}

func (c *skipCache) put(k skipKey, mk MessageKey) {
	if len(c.keys) >= c.maxSize {
		c.evictLowest()
	}
	c.keys[k] = mk
}

func (c *skipCache) evictLowest() {
	var lowest skipKey
	found := false
	for k := range c.keys {
		if !found || k.counter < lowest.counter {
			lowest = k
			found = true
		}
	}
	if found {
		c.zeroAndDelete(lowest)
	}
}

func (c *skipCache) zeroAndDelete(k skipKey) {
	if mk, ok := c.keys[k]; ok {
		zero(mk.EncryptionKey[:])
		zero(mk.AuthKey[:])
		delete(c.keys, k)
	}
}

// take removes and returns a cached key, since every message key is
// single-use regardless of whether it was consumed in-order or from
// the skip cache.
func (c *skipCache) take(k skipKey) (MessageKey, bool) {
	mk, ok := c.keys[k]
	if ok {
		delete(c.keys, k)
	}
	return mk, ok
}

// evictBelow implements "on successful decrypt, cleanup keys with
// counter < message_counter - cache_size" within the same epoch.
func (c *skipCache) evictBelow(ratchetCount, counter uint64, windowSize int) {
	threshold := int64(counter) - int64(windowSize)
	for k := range c.keys {
		if k.ratchetCount == ratchetCount && int64(k.counter) < threshold {
			c.zeroAndDelete(k)
		}
	}
}

func (c *skipCache) len() int { return len(c.keys) }

// clear zeroizes and removes every cached key, used by Session.Close.
func (c *skipCache) clear() {
	for k := range c.keys {
		c.zeroAndDelete(k)
	}
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
