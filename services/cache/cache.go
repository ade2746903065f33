package cache

import (
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is not cached
var ErrMiss = errors.New("cache miss")

// CacheService represents a generic byte cache
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}

// New returns a memcache-backed service, or a NoopCache when addr is empty
func New(addr string) CacheService {
	if addr == "" {
		return NoopCache{}
	}
	return NewMemcacheService(addr)
}

// NoopCache never stores anything
type NoopCache struct{}

// Get always misses
func (NoopCache) Get(string) ([]byte, error) { return nil, ErrMiss }

// Set discards the value
func (NoopCache) Set(string, []byte, time.Duration) error { return nil }

// Delete does nothing
func (NoopCache) Delete(string) error { return nil }
