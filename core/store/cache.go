package store

import (
	"github.com/dgraph-io/ristretto"
	"github.com/google/uuid"

	"github.com/foliocms/folio/core/cms"
)

const (
	defaultCacheCounters = 1e6
	defaultCacheMaxCost  = 1e7
	defaultCacheBuffer   = 64
	entryCost            = 1
)

// VersionCacheConfig configures the version-entry read cache.
type VersionCacheConfig struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
}

// VersionCache is a ristretto-backed read cache for immutable version
// entries. Entries are immutable once written, so the only invalidation
// needed is on tag updates and purge deletes.
type VersionCache struct {
	cache *ristretto.Cache
}

// NewVersionCache creates a version cache with the given configuration.
// Zero fields fall back to defaults.
func NewVersionCache(config VersionCacheConfig) (*VersionCache, error) {
	if config.NumCounters <= 0 {
		config.NumCounters = defaultCacheCounters
	}
	if config.MaxCost <= 0 {
		config.MaxCost = defaultCacheMaxCost
	}
	if config.BufferItems <= 0 {
		config.BufferItems = defaultCacheBuffer
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: config.NumCounters,
		MaxCost:     config.MaxCost,
		BufferItems: config.BufferItems,
	})
	if err != nil {
		return nil, err
	}
	return &VersionCache{cache: cache}, nil
}

// Get returns the cached entry for (contentID, number), or nil.
func (c *VersionCache) Get(contentID uuid.UUID, number int) *cms.VersionEntry {
	value, ok := c.cache.Get(versionKey(contentID, number))
	if !ok {
		return nil
	}
	entry, ok := value.(*cms.VersionEntry)
	if !ok {
		return nil
	}
	return entry.Clone()
}

// Put stores an entry under its (contentID, number) key.
func (c *VersionCache) Put(entry *cms.VersionEntry) {
	c.cache.Set(versionKey(entry.ContentID, entry.VersionNumber), entry.Clone(), entryCost)
}

// Drop removes the entry for (contentID, number).
func (c *VersionCache) Drop(contentID uuid.UUID, number int) {
	c.cache.Del(versionKey(contentID, number))
}

// Wait blocks until buffered writes are applied. Tests use this to make
// cache effects deterministic.
func (c *VersionCache) Wait() {
	c.cache.Wait()
}

// Close releases the cache resources.
func (c *VersionCache) Close() {
	c.cache.Close()
}
