package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// Memcached adapts a memcached client to the Store interface. The client is
// injected by the process entry point, which owns its lifecycle.
type Memcached struct {
	client *memcache.Client
}

var _ Store = (*Memcached)(nil)

// NewMemcached wraps an existing memcached client.
func NewMemcached(client *memcache.Client) *Memcached {
	return &Memcached{client: client}
}

func (m *Memcached) Get(_ context.Context, key string) ([]byte, bool, error) {
	item, err := m.client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return item.Value, true, nil
}

func (m *Memcached) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	return m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: expirationSeconds(ttl),
	})
}

func (m *Memcached) Add(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	err := m.client.Add(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: expirationSeconds(ttl),
	})
	if errors.Is(err, memcache.ErrNotStored) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (m *Memcached) Delete(_ context.Context, key string) error {
	err := m.client.Delete(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return err
}

// expirationSeconds converts a TTL to memcached's seconds field, rounding up
// so that sub-second TTLs do not become "never expire".
func expirationSeconds(ttl time.Duration) int32 {
	if ttl <= 0 {
		return 0
	}
	secs := int32(ttl / time.Second)
	if ttl%time.Second != 0 {
		secs++
	}
	return secs
}
