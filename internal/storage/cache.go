package storage

import (
	"context"
	"time"

	"github.com/bluele/gcache"
)

// cachedStore wraps another Store and keeps recently resolved stops in an
// LRU. Stops are immutable once provisioned, so only FindStopByID is cached;
// misses are not cached so newly provisioned stops become visible at once.
type cachedStore struct {
	Store
	stops gcache.Cache
}

// NewCachedStore wraps inner with an LRU of at most size stop records, each
// expiring after ttl. A non-positive size returns inner unchanged.
func NewCachedStore(inner Store, size int, ttl time.Duration) Store {
	if size <= 0 {
		return inner
	}
	b := gcache.New(size).LRU()
	if ttl > 0 {
		b = b.Expiration(ttl)
	}
	return &cachedStore{Store: inner, stops: b.Build()}
}

// FindStopByID serves from the cache when possible and falls back to the
// wrapped Store.
func (c *cachedStore) FindStopByID(ctx context.Context, id string) (*Stop, error) {
	if v, err := c.stops.Get(id); err == nil {
		s := v.(Stop)
		return &s, nil
	}

	stop, err := c.Store.FindStopByID(ctx, id)
	if err != nil || stop == nil {
		return stop, err
	}

	_ = c.stops.Set(id, *stop)
	return stop, nil
}
