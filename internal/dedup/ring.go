// Package dedup implements spec.md §4.2: a fixed-capacity FIFO set of
// recent payload fingerprints with O(1) contains/insert.
//
// Grounded on the original's collections.deque(maxlen=...) of md5
// hexdigests (atak_handler.py's is_duplicate). hashicorp/golang-lru is
// substituted for the FIFO because its Contains never touches
// recency and Add is only ever called here on a fingerprint not
// already present — so the LRU's own eviction-of-least-recently-added
// entry is exactly FIFO-by-insertion for this access pattern, without
// hand-rolling a ring buffer. murmur3's 128-bit Sum128 replaces md5 as
// the fingerprint function; both are non-cryptographic, collision
// resistance is the only property that matters here.
package dedup

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spaolacci/murmur3"
)

// Outcome reports whether Observe's fingerprint was new.
type Outcome int

const (
	WasNew Outcome = iota
	WasSeen
)

// fingerprint is the full 128-bit murmur3 hash of a payload, stored as
// two uint64 halves to avoid allocating a byte slice per lookup.
type fingerprint [2]uint64

// Ring is a fixed-capacity FIFO of payload fingerprints.
type Ring struct {
	cache *lru.Cache[fingerprint, struct{}]
}

// New builds a Ring holding at most capacity fingerprints.
func New(capacity int) (*Ring, error) {
	cache, err := lru.New[fingerprint, struct{}](capacity)
	if err != nil {
		return nil, err
	}
	return &Ring{cache: cache}, nil
}

// Fingerprint hashes payload into the dedup key. Observe computes it
// itself from the payload it is given.
func Fingerprint(payload []byte) fingerprint {
	hi, lo := murmur3.Sum128(payload)
	return fingerprint{hi, lo}
}

// Observe reports WasSeen if fp is already present, otherwise inserts
// it (evicting the oldest entry if at capacity) and reports WasNew.
func (r *Ring) Observe(payload []byte) Outcome {
	fp := Fingerprint(payload)
	if r.cache.Contains(fp) {
		return WasSeen
	}
	r.cache.Add(fp, struct{}{})
	return WasNew
}

// Len reports the number of fingerprints currently held.
func (r *Ring) Len() int {
	return r.cache.Len()
}
