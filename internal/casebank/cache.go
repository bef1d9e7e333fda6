package casebank

import (
	"context"
	"sync"
	"time"
)

// Cache is a single-entry TTL cache over the Loader. The case source is one
// fixed URL, so one entry covers the whole process; render cycles within the
// TTL window share the last loaded bank instead of refetching.
type Cache struct {
	loader *Loader
	ttl    time.Duration

	mu       sync.Mutex
	bank     *CaseBank
	loadedAt time.Time

	now func() time.Time // overridable for tests
}

// NewCache wraps loader with a TTL. A non-positive ttl defaults to a minute,
// matching the source's own refresh cadence.
func NewCache(loader *Loader, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{
		loader: loader,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Get returns the cached bank when fresh, loading otherwise. On load failure
// it returns an empty bank together with the error so callers can surface a
// notice and keep serving; a previously cached bank past its TTL is not
// reused after a failed refresh.
func (c *Cache) Get(ctx context.Context) (*CaseBank, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bank != nil && c.now().Sub(c.loadedAt) < c.ttl {
		return c.bank, nil
	}

	bank, err := c.loader.Load(ctx)
	if err != nil {
		c.bank = nil
		if bank == nil {
			bank = NewCaseBank(nil)
		}
		return bank, err
	}

	c.bank = bank
	c.loadedAt = c.now()
	return bank, nil
}

// Invalidate drops the cached bank so the next Get refetches.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bank = nil
}
