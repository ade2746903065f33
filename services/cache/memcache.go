package cache

import (
	"errors"
	"time"

	"sjsage522/newsworker/logger"

	"github.com/bradfitz/gomemcache/memcache"
)

// MaxItemSize is the largest value memcached accepts with default settings
const MaxItemSize = 1024 * 1024

// MemcacheService implements CacheService using memcache
type MemcacheService struct {
	client *memcache.Client
	log    *logger.Logger
}

// NewMemcacheService creates a new memcache service
func NewMemcacheService(serverAddr string) *MemcacheService {
	return &MemcacheService{
		client: memcache.New(serverAddr),
		log:    logger.ForCache().WithField("addr", serverAddr),
	}
}

// Get retrieves a value from memcache, returning ErrMiss for absent keys
func (m *MemcacheService) Get(key string) ([]byte, error) {
	item, err := m.client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		m.log.Debug().Str("key", key).Msg("Cache miss")
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	m.log.Debug().Str("key", key).Int("bytes", len(item.Value)).Msg("Cache hit")
	return item.Value, nil
}

// Set stores a value in memcache with an expiration time
func (m *MemcacheService) Set(key string, value []byte, expiration time.Duration) error {
	if err := m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(expiration.Seconds()),
	}); err != nil {
		return err
	}
	m.log.Debug().Str("key", key).Dur("ttl", expiration).Msg("Cache set")
	return nil
}

// Delete removes a value from memcache
func (m *MemcacheService) Delete(key string) error {
	err := m.client.Delete(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return err
}

// Ping checks that the server is reachable
func (m *MemcacheService) Ping() error {
	return m.client.Ping()
}
