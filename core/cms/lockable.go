package cms

import "github.com/google/uuid"

// EntityKind identifies a level of the containment hierarchy.
type EntityKind string

const (
	KindCollection EntityKind = "collection"
	KindContent    EntityKind = "content"
	KindElement    EntityKind = "element"
)

// Lockable is implemented by every entity that can hold its own lock.
// The lock resolver walks lockables upward via a ParentResolver to
// compute effective lock state.
type Lockable interface {
	LockableID() uuid.UUID
	EntityKind() EntityKind
	OwnLock() *LockInfo
	SetOwnLock(lock *LockInfo)
}

func (c *Collection) LockableID() uuid.UUID     { return c.ID }
func (c *Collection) EntityKind() EntityKind    { return KindCollection }
func (c *Collection) OwnLock() *LockInfo        { return c.Lock }
func (c *Collection) SetOwnLock(lock *LockInfo) { c.Lock = lock }

func (c *Content) LockableID() uuid.UUID     { return c.ID }
func (c *Content) EntityKind() EntityKind    { return KindContent }
func (c *Content) OwnLock() *LockInfo        { return c.Lock }
func (c *Content) SetOwnLock(lock *LockInfo) { c.Lock = lock }

func (e *Element) LockableID() uuid.UUID     { return e.ID }
func (e *Element) EntityKind() EntityKind    { return KindElement }
func (e *Element) OwnLock() *LockInfo        { return e.Lock }
func (e *Element) SetOwnLock(lock *LockInfo) { e.Lock = lock }

// SourceForKind maps an entity kind to the lock source reported when a
// lock is inherited from that level.
func SourceForKind(kind EntityKind) LockSource {
	switch kind {
	case KindCollection:
		return LockSourceCollection
	case KindContent:
		return LockSourceContent
	default:
		return LockSourceSelf
	}
}
