package cms

import (
	"errors"
	"sort"

	"github.com/google/uuid"
)

var (
	// ErrElementNotFound is returned when an element id does not exist in the content.
	ErrElementNotFound = errors.New("element not found in content")

	// ErrElementCycle is returned when a reparent would create a cycle.
	ErrElementCycle = errors.New("element reparent would create a cycle")

	// ErrElementForeignParent is returned when a parent belongs to another content.
	ErrElementForeignParent = errors.New("element parent belongs to another content")
)

// FindElement returns the element with the given id, or nil.
func (c *Content) FindElement(id uuid.UUID) *Element {
	for i := range c.Elements {
		if c.Elements[i].ID == id {
			return &c.Elements[i]
		}
	}
	return nil
}

// ChildElements returns the direct children of parentID ordered by their
// Order field. A nil parentID selects root elements.
func (c *Content) ChildElements(parentID *uuid.UUID) []Element {
	var children []Element
	for i := range c.Elements {
		e := &c.Elements[i]
		if sameParent(e.ParentID, parentID) {
			children = append(children, e.Clone())
		}
	}
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].Order < children[j].Order
	})
	return children
}

// ReparentElement moves an element under a new parent within the same
// content. It rejects parents from other contents and moves that would
// introduce a cycle.
func (c *Content) ReparentElement(id uuid.UUID, newParent *uuid.UUID) error {
	element := c.FindElement(id)
	if element == nil {
		return ErrElementNotFound
	}
	if newParent == nil {
		element.ParentID = nil
		return nil
	}

	parent := c.FindElement(*newParent)
	if parent == nil {
		return ErrElementForeignParent
	}

	// Walking up from the proposed parent must never reach the moved
	// element, otherwise the tree would fold into a cycle.
	for ancestor := parent; ancestor != nil; {
		if ancestor.ID == id {
			return ErrElementCycle
		}
		if ancestor.ParentID == nil {
			break
		}
		ancestor = c.FindElement(*ancestor.ParentID)
	}

	pid := *newParent
	element.ParentID = &pid
	return nil
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
