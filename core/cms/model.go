// Package cms defines the domain model for the Folio content core:
// collections, contents, elements, version entries, and lock state.
package cms

import (
	"time"

	"github.com/google/uuid"
)

// ContentStatus represents the publishing state of a content document.
type ContentStatus string

const (
	StatusDraft     ContentStatus = "draft"
	StatusPublished ContentStatus = "published"
	StatusArchived  ContentStatus = "archived"
)

// LockSource identifies which level of the containment hierarchy a
// resolved lock originates from.
type LockSource string

const (
	LockSourceSelf       LockSource = "self"
	LockSourceContent    LockSource = "content"
	LockSourceCollection LockSource = "collection"
)

// LockInfo is the resolved lock state of an entity. Source is "self" when
// the lock lives on the entity itself, otherwise it names the ancestor
// the lock was inherited from.
type LockInfo struct {
	LockedBy string     `json:"locked_by"`
	LockedAt time.Time  `json:"locked_at"`
	Reason   string     `json:"reason,omitempty"`
	Source   LockSource `json:"source"`
}

// Clone returns a copy of the lock info.
func (l *LockInfo) Clone() *LockInfo {
	if l == nil {
		return nil
	}
	clone := *l
	return &clone
}

// WithSource returns a copy annotated with the given source.
func (l *LockInfo) WithSource(source LockSource) *LockInfo {
	if l == nil {
		return nil
	}
	clone := *l
	clone.Source = source
	return &clone
}

// Collection is a named grouping of content documents. It carries the set
// of branch names created against it and an optional lock that dominates
// every content and element beneath it.
type Collection struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Branches  []string  `json:"branches"`
	Lock      *LockInfo `json:"lock,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasBranch reports whether a branch with the given name exists.
func (c *Collection) HasBranch(name string) bool {
	for _, b := range c.Branches {
		if b == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the collection.
func (c *Collection) Clone() *Collection {
	clone := *c
	clone.Branches = append([]string(nil), c.Branches...)
	clone.Lock = c.Lock.Clone()
	return &clone
}

// Element is a node in a content's element tree. ParentID, when set,
// references another element within the same content. ContentID is
// immutable after creation, which keeps the containment chain a strict
// tree.
type Element struct {
	ID       uuid.UUID      `json:"id"`
	ContentID uuid.UUID     `json:"content_id"`
	ParentID *uuid.UUID     `json:"parent_id,omitempty"`
	Type     string         `json:"type"`
	Data     map[string]any `json:"data,omitempty"`
	Order    int            `json:"order"`
	Lock     *LockInfo      `json:"lock,omitempty"`
}

// Clone returns a deep copy of the element.
func (e *Element) Clone() Element {
	clone := *e
	if e.ParentID != nil {
		pid := *e.ParentID
		clone.ParentID = &pid
	}
	clone.Data = deepCopyMap(e.Data)
	clone.Lock = e.Lock.Clone()
	return clone
}

// Content is a versionable document belonging to exactly one collection.
// CollectionID is immutable after creation. CurrentVersion always equals
// the version number of the latest entry in the content's lineage.
type Content struct {
	ID             uuid.UUID      `json:"id"`
	CollectionID   uuid.UUID      `json:"collection_id"`
	Title          string         `json:"title"`
	Slug           string         `json:"slug"`
	Status         ContentStatus  `json:"status"`
	Elements       []Element      `json:"elements,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CurrentVersion int            `json:"current_version"`
	Lock           *LockInfo      `json:"lock,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Clone returns a deep copy of the content.
func (c *Content) Clone() *Content {
	clone := *c
	clone.Elements = cloneElements(c.Elements)
	clone.Metadata = deepCopyMap(c.Metadata)
	clone.Lock = c.Lock.Clone()
	return &clone
}

// Snapshot captures the live fields of the content as a deep copy, so the
// resulting snapshot never aliases the content's mutable state.
func (c *Content) Snapshot() Snapshot {
	return Snapshot{
		Title:    c.Title,
		Slug:     c.Slug,
		Status:   c.Status,
		Elements: cloneElements(c.Elements),
		Metadata: deepCopyMap(c.Metadata),
	}
}

// ApplySnapshot overwrites the content's live fields from a snapshot.
// Identity fields (ID, CollectionID) and CurrentVersion are untouched.
func (c *Content) ApplySnapshot(snap Snapshot) {
	c.Title = snap.Title
	c.Slug = snap.Slug
	c.Status = snap.Status
	c.Elements = cloneElements(snap.Elements)
	c.Metadata = deepCopyMap(snap.Metadata)
}

// Snapshot is the frozen state of a content's live fields stored inside a
// version entry.
type Snapshot struct {
	Title    string         `json:"title"`
	Slug     string         `json:"slug"`
	Status   ContentStatus  `json:"status"`
	Elements []Element      `json:"elements,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	clone := s
	clone.Elements = cloneElements(s.Elements)
	clone.Metadata = deepCopyMap(s.Metadata)
	return clone
}

// VersionEntry is one immutable record in a content's append-only
// history. BranchTag is empty when the entry belongs to no branch.
// Entries with IsBranchEnd=true are protected from purge.
type VersionEntry struct {
	ID            uuid.UUID `json:"id"`
	ContentID     uuid.UUID `json:"content_id"`
	VersionNumber int       `json:"version_number"`
	Snapshot      Snapshot  `json:"snapshot"`
	BranchTag     string    `json:"branch_tag,omitempty"`
	IsBranchEnd   bool      `json:"is_branch_end"`
	CreatedBy     string    `json:"created_by,omitempty"`
	ChangeNote    string    `json:"change_note,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Clone returns a deep copy of the version entry.
func (v *VersionEntry) Clone() *VersionEntry {
	clone := *v
	clone.Snapshot = v.Snapshot.Clone()
	return &clone
}

func cloneElements(elements []Element) []Element {
	if elements == nil {
		return nil
	}
	result := make([]Element, len(elements))
	for i := range elements {
		result[i] = elements[i].Clone()
	}
	return result
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = deepCopyValue(v)
	}
	return result
}

func deepCopyValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		return deepCopyMap(value)
	case []any:
		result := make([]any, len(value))
		for i, item := range value {
			result[i] = deepCopyValue(item)
		}
		return result
	default:
		return v
	}
}
