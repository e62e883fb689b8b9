package translator

import (
	"errors"
	"sync"
)

// CachedModel is a loaded model and its tokenizer.
type CachedModel struct {
	Name      string
	Model     Model
	Tokenizer Tokenizer
}

func (m *CachedModel) Close() error {
	return errors.Join(m.Model.Close(), m.Tokenizer.Close())
}

// ModelCache keeps resolved language pairs for the life of the backend.
// Pairs that failed to resolve are remembered as misses until Clear.
type ModelCache struct {
	mu      sync.Mutex
	entries map[string]*CachedModel
	misses  map[string]struct{}
}

func NewModelCache() *ModelCache {
	return &ModelCache{
		entries: make(map[string]*CachedModel),
		misses:  make(map[string]struct{}),
	}
}

// Lookup reports whether key was resolved before. A known miss returns
// (nil, true).
func (c *ModelCache) Lookup(key string) (*CachedModel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.entries[key]; ok {
		return m, true
	}
	_, miss := c.misses[key]
	return nil, miss
}

func (c *ModelCache) Put(key string, m *CachedModel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.misses, key)
	c.entries[key] = m
}

func (c *ModelCache) PutMiss(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.misses[key] = struct{}{}
}

func (c *ModelCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear closes every cached model and forgets all pairs.
func (c *ModelCache) Clear() error {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[string]*CachedModel)
	c.misses = make(map[string]struct{})
	c.mu.Unlock()

	var errs []error
	for _, m := range entries {
		errs = append(errs, m.Close())
	}
	return errors.Join(errs...)
}
