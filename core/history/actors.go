package history

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ActorDirectory resolves an actor id to a display name. The directory
// is an external collaborator; Folio only consumes it.
type ActorDirectory interface {
	DisplayName(ctx context.Context, actorID string) (string, error)
}

// ActorDirectoryFunc adapts a function to the ActorDirectory interface.
type ActorDirectoryFunc func(ctx context.Context, actorID string) (string, error)

func (f ActorDirectoryFunc) DisplayName(ctx context.Context, actorID string) (string, error) {
	return f(ctx, actorID)
}

const defaultActorCacheSize = 1024

// CachedActorDirectory memoizes display-name lookups with an LRU cache.
// Display names change rarely; history listings hit the same handful of
// actors over and over.
type CachedActorDirectory struct {
	inner ActorDirectory
	cache *lru.Cache[string, string]
}

// NewCachedActorDirectory wraps a directory with an LRU of the given
// size. A size <= 0 falls back to the default.
func NewCachedActorDirectory(inner ActorDirectory, size int) (*CachedActorDirectory, error) {
	if size <= 0 {
		size = defaultActorCacheSize
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &CachedActorDirectory{inner: inner, cache: cache}, nil
}

func (d *CachedActorDirectory) DisplayName(ctx context.Context, actorID string) (string, error) {
	if name, ok := d.cache.Get(actorID); ok {
		return name, nil
	}
	name, err := d.inner.DisplayName(ctx, actorID)
	if err != nil {
		return "", err
	}
	d.cache.Add(actorID, name)
	return name, nil
}

// Forget drops a cached display name, for when an actor is renamed.
func (d *CachedActorDirectory) Forget(actorID string) {
	d.cache.Remove(actorID)
}
