package cache

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrMiss is returned by Get when a key is absent or expired
var ErrMiss = errors.New("cache miss")

// CacheService stores storefront lookups and the rate-limit window
type CacheService interface {
	// Get retrieves a value, or ErrMiss
	Get(key string) ([]byte, error)

	// Set stores a value with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value
	Delete(key string) error
}

// GetJSON decodes the cached value of key into v
func GetJSON(c CacheService, key string, v interface{}) error {
	data, err := c.Get(key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// SetJSON encodes v and caches it under key
func SetJSON(c CacheService, key string, v interface{}, expiration time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(key, data, expiration)
}

// Exists reports whether key currently holds a value
func Exists(c CacheService, key string) bool {
	_, err := c.Get(key)
	return err == nil
}
