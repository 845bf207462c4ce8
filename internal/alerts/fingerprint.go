package alerts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// fingerprintCache suppresses duplicate notifications whose content is
// identical, even when two evaluation passes race across a cooldown-expiry
// instant. Entries expire after the configured window; expired entries are
// swept lazily on insert.
type fingerprintCache struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string]time.Time
}

func newFingerprintCache(window time.Duration) *fingerprintCache {
	return &fingerprintCache{
		window:  window,
		entries: make(map[string]time.Time),
	}
}

// Seen records the fingerprint and reports whether an identical one was
// already recorded within the window.
func (c *fingerprintCache) Seen(alertID uint, snapshot string, now time.Time) bool {
	if c == nil || c.window <= 0 {
		return false
	}

	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s", alertID, snapshot)))
	key := hex.EncodeToString(sum[:])

	c.mu.Lock()
	defer c.mu.Unlock()

	for k, seenAt := range c.entries {
		if now.Sub(seenAt) >= c.window {
			delete(c.entries, k)
		}
	}

	if seenAt, ok := c.entries[key]; ok && now.Sub(seenAt) < c.window {
		return true
	}

	c.entries[key] = now
	return false
}
