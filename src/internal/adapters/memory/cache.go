package memory

import (
	"sync"

	"github.com/jcline/jcline/src/internal/ports"
)

// InMemoryCache is a LocalCache for tests and for running without a data dir.
type InMemoryCache struct {
	data map[string][]byte
	mu   sync.RWMutex
}

func NewCache() *InMemoryCache {
	return &InMemoryCache{data: make(map[string][]byte)}
}

func (c *InMemoryCache) Get(key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.data[key]
	if !ok {
		return nil, ports.ErrCacheMiss
	}
	return append([]byte(nil), v...), nil
}

func (c *InMemoryCache) Set(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = append([]byte(nil), value...)
	return nil
}

func (c *InMemoryCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
	return nil
}

func (c *InMemoryCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = make(map[string][]byte)
	return nil
}
