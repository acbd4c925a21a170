package cache

import (
	"errors"
	"time"

	apperrors "sjsage522/steamsales/pkg/errors"

	"github.com/bradfitz/gomemcache/memcache"
)

// keyPrefix namespaces every key written by this tool
const keyPrefix = "steamsales:"

// MemcacheService implements CacheService on a memcached server
type MemcacheService struct {
	client *memcache.Client
}

// NewMemcacheService creates a client for serverAddr; timeout bounds each operation
func NewMemcacheService(serverAddr string, timeout time.Duration) *MemcacheService {
	client := memcache.New(serverAddr)
	if timeout > 0 {
		client.Timeout = timeout
	}
	return &MemcacheService{client: client}
}

// Ping checks that the memcache server is reachable
func (m *MemcacheService) Ping() error {
	if err := m.client.Ping(); err != nil {
		return apperrors.NewCache("memcache", "ping failed", err)
	}
	return nil
}

// Get retrieves a value, mapping memcache misses to ErrMiss
func (m *MemcacheService) Get(key string) ([]byte, error) {
	item, err := m.client.Get(keyPrefix + key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, apperrors.NewCache(key, "get failed", err)
	}
	return item.Value, nil
}

// Set stores a value; expirations are rounded down to whole seconds
func (m *MemcacheService) Set(key string, value []byte, expiration time.Duration) error {
	err := m.client.Set(&memcache.Item{
		Key:        keyPrefix + key,
		Value:      value,
		Expiration: int32(expiration / time.Second),
	})
	if err != nil {
		return apperrors.NewCache(key, "set failed", err)
	}
	return nil
}

// Delete removes a value; deleting an absent key is not an error
func (m *MemcacheService) Delete(key string) error {
	err := m.client.Delete(keyPrefix + key)
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return apperrors.NewCache(key, "delete failed", err)
	}
	return nil
}
