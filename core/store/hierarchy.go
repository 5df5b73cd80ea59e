package store

import (
	"context"
	"fmt"

	"github.com/foliocms/folio/core/cms"
)

// Hierarchy resolves the fixed containment chain (element -> content ->
// collection) against a document store, and persists lock-state writes
// for any level of the chain. It satisfies the lock resolver's
// ParentResolver and LockWriter capabilities.
type Hierarchy struct {
	docs DocumentStore
}

// NewHierarchy creates a Hierarchy over the given document store.
func NewHierarchy(docs DocumentStore) *Hierarchy {
	return &Hierarchy{docs: docs}
}

// ParentOf returns the immediate parent of the entity, or nil for a
// collection. Parent references are immutable, so the chain is a strict
// tree with depth at most two.
func (h *Hierarchy) ParentOf(ctx context.Context, entity cms.Lockable) (cms.Lockable, error) {
	switch e := entity.(type) {
	case *cms.Collection:
		return nil, nil
	case *cms.Content:
		return h.docs.GetCollection(ctx, e.CollectionID)
	case *cms.Element:
		return h.docs.GetContent(ctx, e.ContentID)
	default:
		return nil, fmt.Errorf("unknown lockable kind %q", entity.EntityKind())
	}
}

// SaveLockState persists the entity's own lock field. Elements live
// inside their content document, so an element lock write re-persists
// the owning content.
func (h *Hierarchy) SaveLockState(ctx context.Context, entity cms.Lockable) error {
	switch e := entity.(type) {
	case *cms.Collection:
		return h.docs.UpdateCollection(ctx, e)
	case *cms.Content:
		return h.docs.UpdateContent(ctx, e)
	case *cms.Element:
		content, err := h.docs.GetContent(ctx, e.ContentID)
		if err != nil {
			return err
		}
		target := content.FindElement(e.ID)
		if target == nil {
			return cms.ErrElementNotFound
		}
		target.Lock = e.Lock.Clone()
		return h.docs.UpdateContent(ctx, content)
	default:
		return fmt.Errorf("unknown lockable kind %q", entity.EntityKind())
	}
}
