package store

import (
	"context"
	"sort"
	"sync"

	"github.com/gobwas/glob"
	"github.com/google/uuid"

	"github.com/foliocms/folio/core/cms"
	folioerrors "github.com/foliocms/folio/core/errors"
)

// MemoryStore is an in-process DocumentStore used by tests and ephemeral
// runs. All methods are safe for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[uuid.UUID]*cms.Collection
	contents    map[uuid.UUID]*cms.Content
	versions    map[uuid.UUID]*cms.VersionEntry
	byContent   map[uuid.UUID][]uuid.UUID
	closed      bool
}

// NewMemoryStore creates an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[uuid.UUID]*cms.Collection),
		contents:    make(map[uuid.UUID]*cms.Content),
		versions:    make(map[uuid.UUID]*cms.VersionEntry),
		byContent:   make(map[uuid.UUID][]uuid.UUID),
	}
}

func (s *MemoryStore) CreateCollection(ctx context.Context, collection *cms.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.collections[collection.ID] = collection.Clone()
	return nil
}

func (s *MemoryStore) GetCollection(ctx context.Context, id uuid.UUID) (*cms.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	collection, ok := s.collections[id]
	if !ok {
		return nil, folioerrors.NewNotFound("collection", id.String())
	}
	return collection.Clone(), nil
}

func (s *MemoryStore) UpdateCollection(ctx context.Context, collection *cms.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.collections[collection.ID]; !ok {
		return folioerrors.NewNotFound("collection", collection.ID.String())
	}
	s.collections[collection.ID] = collection.Clone()
	return nil
}

func (s *MemoryStore) CreateContentWithVersion(ctx context.Context, content *cms.Content, entry *cms.VersionEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.collections[content.CollectionID]; !ok {
		return folioerrors.NewNotFound("collection", content.CollectionID.String())
	}
	if err := s.insertVersionLocked(entry); err != nil {
		return err
	}
	s.contents[content.ID] = content.Clone()
	return nil
}

func (s *MemoryStore) GetContent(ctx context.Context, id uuid.UUID) (*cms.Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	content, ok := s.contents[id]
	if !ok {
		return nil, folioerrors.NewNotFound("content", id.String())
	}
	return content.Clone(), nil
}

func (s *MemoryStore) UpdateContent(ctx context.Context, content *cms.Content) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.contents[content.ID]; !ok {
		return folioerrors.NewNotFound("content", content.ID.String())
	}
	s.contents[content.ID] = content.Clone()
	return nil
}

func (s *MemoryStore) ListContents(ctx context.Context, filter ContentFilter) ([]*cms.Content, error) {
	var matcher glob.Glob
	if filter.SlugGlob != "" {
		compiled, err := glob.Compile(filter.SlugGlob)
		if err != nil {
			return nil, folioerrors.NewValidation("slug_glob", err.Error())
		}
		matcher = compiled
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var result []*cms.Content
	for _, content := range s.contents {
		if filter.CollectionID != uuid.Nil && content.CollectionID != filter.CollectionID {
			continue
		}
		if filter.Status != "" && content.Status != filter.Status {
			continue
		}
		if matcher != nil && !matcher.Match(content.Slug) {
			continue
		}
		result = append(result, content.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return paginate(result, filter.Offset, filter.Limit), nil
}

func (s *MemoryStore) InsertVersion(ctx context.Context, entry *cms.VersionEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.insertVersionLocked(entry)
}

func (s *MemoryStore) insertVersionLocked(entry *cms.VersionEntry) error {
	for _, id := range s.byContent[entry.ContentID] {
		if s.versions[id].VersionNumber == entry.VersionNumber {
			return ErrDuplicateVersion
		}
	}
	s.versions[entry.ID] = entry.Clone()
	s.byContent[entry.ContentID] = append(s.byContent[entry.ContentID], entry.ID)
	return nil
}

func (s *MemoryStore) GetVersionByNumber(ctx context.Context, contentID uuid.UUID, number int) (*cms.VersionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	for _, id := range s.byContent[contentID] {
		if entry := s.versions[id]; entry.VersionNumber == number {
			return entry.Clone(), nil
		}
	}
	return nil, folioerrors.NewNotFound("version", versionKey(contentID, number))
}

func (s *MemoryStore) GetVersionByTag(ctx context.Context, contentID uuid.UUID, tag string) (*cms.VersionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	for _, id := range s.byContent[contentID] {
		if entry := s.versions[id]; entry.BranchTag == tag {
			return entry.Clone(), nil
		}
	}
	return nil, folioerrors.NewNotFound("version", contentID.String()+"@"+tag)
}

func (s *MemoryStore) LatestVersion(ctx context.Context, contentID uuid.UUID) (*cms.VersionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	var latest *cms.VersionEntry
	for _, id := range s.byContent[contentID] {
		entry := s.versions[id]
		if latest == nil || entry.VersionNumber > latest.VersionNumber {
			latest = entry
		}
	}
	if latest == nil {
		return nil, folioerrors.NewNotFound("version", contentID.String())
	}
	return latest.Clone(), nil
}

func (s *MemoryStore) ListVersions(ctx context.Context, contentID uuid.UUID) ([]*cms.VersionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	entries := make([]*cms.VersionEntry, 0, len(s.byContent[contentID]))
	for _, id := range s.byContent[contentID] {
		entries = append(entries, s.versions[id].Clone())
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].VersionNumber > entries[j].VersionNumber
	})
	return entries, nil
}

func (s *MemoryStore) MaxVersionNumber(ctx context.Context, contentID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}
	max := 0
	for _, id := range s.byContent[contentID] {
		if n := s.versions[id].VersionNumber; n > max {
			max = n
		}
	}
	return max, nil
}

func (s *MemoryStore) TagVersion(ctx context.Context, versionID uuid.UUID, tag string, branchEnd bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	entry, ok := s.versions[versionID]
	if !ok {
		return folioerrors.NewNotFound("version", versionID.String())
	}
	entry.BranchTag = tag
	entry.IsBranchEnd = branchEnd
	return nil
}

func (s *MemoryStore) DeleteVersion(ctx context.Context, versionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	entry, ok := s.versions[versionID]
	if !ok {
		return folioerrors.NewNotFound("version", versionID.String())
	}
	delete(s.versions, versionID)
	ids := s.byContent[entry.ContentID]
	for i, id := range ids {
		if id == versionID {
			s.byContent[entry.ContentID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func paginate(contents []*cms.Content, offset, limit int) []*cms.Content {
	if offset > 0 {
		if offset >= len(contents) {
			return nil
		}
		contents = contents[offset:]
	}
	if limit > 0 && limit < len(contents) {
		contents = contents[:limit]
	}
	return contents
}
