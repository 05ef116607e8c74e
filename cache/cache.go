// Package cache provides the edge response cache used by the delivery
// pipeline and the bing image proxy. It is an opportunistic cache: a miss
// never means "does not exist", and there is no invalidation path beyond
// entry expiry.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Entry is a cached HTTP response body plus the headers needed to replay it.
type Entry struct {
	Body         []byte
	ContentType  string
	Disposition  string
	CacheControl string
}

// ResponseCache is the get/put contract handlers depend on. Injected as a
// collaborator so pipelines can be tested with a fake.
type ResponseCache interface {
	Get(key string) (Entry, bool)
	Put(key string, e Entry)
}

// LRU is a bounded, expiring response cache keyed by full request URL.
type LRU struct {
	inner        *expirable.LRU[string, Entry]
	maxEntrySize int
}

// NewLRU builds a cache holding at most entries items, each evicted after
// ttl. Bodies larger than maxEntrySize bytes are not cached at all; zero
// disables the size guard.
func NewLRU(entries int, maxEntrySize int, ttl time.Duration) *LRU {
	return &LRU{
		inner:        expirable.NewLRU[string, Entry](entries, nil, ttl),
		maxEntrySize: maxEntrySize,
	}
}

func (c *LRU) Get(key string) (Entry, bool) {
	return c.inner.Get(key)
}

func (c *LRU) Put(key string, e Entry) {
	if c.maxEntrySize > 0 && len(e.Body) > c.maxEntrySize {
		return
	}

	c.inner.Add(key, e)
}
