package winprob

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheKey struct {
	margin  int
	seconds int
}

// Cached memoizes a Prober by (margin, seconds remaining).
type Cached struct {
	next   Prober
	cache  *lru.Cache[cacheKey, float64]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCached wraps next with an LRU of the given size. A size <= 0 disables
// caching and returns a pass-through wrapper.
func NewCached(next Prober, size int) (*Cached, error) {
	c := &Cached{next: next}
	if size <= 0 {
		return c, nil
	}
	cache, err := lru.New[cacheKey, float64](size)
	if err != nil {
		return nil, err
	}
	c.cache = cache
	return c, nil
}

// WinProbability implements Prober.
func (c *Cached) WinProbability(margin, secondsRemaining int) float64 {
	// Terminal states are exact and cheap.
	if secondsRemaining <= 0 {
		return Terminal(margin)
	}
	if c.cache == nil {
		c.misses.Add(1)
		return c.next.WinProbability(margin, secondsRemaining)
	}
	key := cacheKey{margin: margin, seconds: secondsRemaining}
	if v, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return v
	}
	c.misses.Add(1)
	v := c.next.WinProbability(margin, secondsRemaining)
	c.cache.Add(key, v)
	return v
}

// Stats returns cumulative hit and miss counts.
func (c *Cached) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// Purge drops all cached entries.
func (c *Cached) Purge() {
	if c.cache != nil {
		c.cache.Purge()
	}
}
