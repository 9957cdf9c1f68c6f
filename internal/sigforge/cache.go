package sigforge

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/mbd888/bridgewatch/internal/syncutil"
)

// Entry is a snapshot of one replay-cache record.
type Entry struct {
	Signature   string    `json:"signature"`
	Message     string    `json:"message"`
	FirstSeenAt time.Time `json:"firstSeenAt"`
	ReuseCount  int       `json:"reuseCount"`
}

// entryRecord is the mutable cache record. Only read or written while
// holding the sharded lock for its key.
type entryRecord struct {
	signature  string
	message    string
	firstSeen  time.Time
	reuseCount int
}

func (e *entryRecord) snapshot() Entry {
	return Entry{
		Signature:   e.signature,
		Message:     e.message,
		FirstSeenAt: e.firstSeen,
		ReuseCount:  e.reuseCount,
	}
}

// Fingerprint derives the cache key for a (signature, message) pair.
func Fingerprint(signature, message string) string {
	h := sha256.Sum256([]byte(signature + message))
	return hex.EncodeToString(h[:])
}

// ReplayCache is a time-windowed store of signature sightings. Entries older
// than the window are logically stale: they never count as reuse and are
// reclaimed lazily on observation or by the background sweeper.
type ReplayCache struct {
	locks   syncutil.ShardedMutex
	entries sync.Map // fingerprint → *entryRecord
	window  time.Duration
	now     func() time.Time
}

// NewReplayCache creates a cache with the given reuse window.
// A zero or negative window falls back to DefaultReplayWindow.
func NewReplayCache(window time.Duration) *ReplayCache {
	if window <= 0 {
		window = DefaultReplayWindow
	}
	return &ReplayCache{
		window: window,
		now:    time.Now,
	}
}

// WithClock overrides the time source for deterministic tests.
func (c *ReplayCache) WithClock(now func() time.Time) *ReplayCache {
	c.now = now
	return c
}

// Window returns the configured reuse window.
func (c *ReplayCache) Window() time.Duration {
	return c.window
}

// Observe records a sighting of the pair and reports whether it is a reuse
// within the window. The read-check-write sequence is atomic per key: of two
// concurrent observations of the same pair, exactly one sees a first
// sighting. A sighting after the window expired resets the entry — fresh
// window, reuse count back to one.
func (c *ReplayCache) Observe(signature, message string) (reused bool, entry Entry) {
	key := Fingerprint(signature, message)
	unlock := c.locks.Lock(key)
	defer unlock()

	now := c.now()
	if v, ok := c.entries.Load(key); ok {
		rec := v.(*entryRecord)
		if now.Sub(rec.firstSeen) < c.window {
			rec.reuseCount++
			return true, rec.snapshot()
		}
	}

	rec := &entryRecord{
		signature:  signature,
		message:    message,
		firstSeen:  now,
		reuseCount: 1,
	}
	c.entries.Store(key, rec)
	return false, rec.snapshot()
}

// Lookup returns the current entry for the pair, if any. Stale entries are
// still returned; callers compare FirstSeenAt against the window themselves.
func (c *ReplayCache) Lookup(signature, message string) (Entry, bool) {
	key := Fingerprint(signature, message)
	unlock := c.locks.Lock(key)
	defer unlock()

	v, ok := c.entries.Load(key)
	if !ok {
		return Entry{}, false
	}
	return v.(*entryRecord).snapshot(), true
}

// SweepOnce removes entries whose window has fully elapsed and returns how
// many were evicted.
func (c *ReplayCache) SweepOnce() int {
	now := c.now()
	evicted := 0

	c.entries.Range(func(k, v any) bool {
		key := k.(string)
		unlock := c.locks.Lock(key)
		// Re-check under the key lock; Observe may have refreshed it.
		if cur, ok := c.entries.Load(key); ok {
			if now.Sub(cur.(*entryRecord).firstSeen) >= c.window {
				c.entries.Delete(key)
				evicted++
			}
		}
		unlock()
		return true
	})

	return evicted
}

// Len returns the number of cached entries, stale ones included.
func (c *ReplayCache) Len() int {
	n := 0
	c.entries.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}
