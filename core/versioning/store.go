// Package versioning owns the append-only version history of contents:
// monotonic per-content numbering, snapshot capture, and version reads.
package versioning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/foliocms/folio/core/cms"
	folioerrors "github.com/foliocms/folio/core/errors"
	"github.com/foliocms/folio/core/store"
)

// CreateOptions controls version entry creation.
type CreateOptions struct {
	// Actor is the id of the user creating the version.
	Actor string

	// Note is the human-readable change note.
	Note string

	// Initial forces version number 1 instead of incrementing. Only the
	// paired content+version creation path sets this.
	Initial bool

	// BranchTag and BranchEnd stamp the new entry as a frozen branch
	// checkpoint at creation time.
	BranchTag string
	BranchEnd bool
}

// Store appends and reads version entries. Numbering is serialized per
// content: an in-process mutex keyed by content id closes the
// read-max-then-insert window for writers in this process, and the
// store's unique (content, number) constraint plus backoff retry covers
// writers elsewhere.
type Store struct {
	docs   store.DocumentStore
	cache  *store.VersionCache
	policy *folioerrors.RetryPolicy
	logger *slog.Logger
	now    func() time.Time

	mu           sync.Mutex
	contentLocks map[uuid.UUID]*sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithCache attaches a version-entry read cache.
func WithCache(cache *store.VersionCache) Option {
	return func(s *Store) { s.cache = cache }
}

// WithRetryPolicy overrides the numbering retry policy.
func WithRetryPolicy(policy *folioerrors.RetryPolicy) Option {
	return func(s *Store) { s.policy = policy }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithClock overrides the time source. Tests use this.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a version store over the given document store.
func NewStore(docs store.DocumentStore, opts ...Option) *Store {
	s := &Store{
		docs:         docs,
		policy:       folioerrors.DefaultNumberingPolicy(),
		logger:       slog.Default(),
		now:          time.Now,
		contentLocks: make(map[uuid.UUID]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateContent persists a new content together with its version-1 entry
// as one atomic write. This is the only path that creates a version
// without incrementing.
func (s *Store) CreateContent(ctx context.Context, content *cms.Content, actor, note string) (*cms.VersionEntry, error) {
	if content.CollectionID == uuid.Nil {
		return nil, folioerrors.NewValidation("collection_id", "content must belong to a collection")
	}
	if content.ID == uuid.Nil {
		content.ID = uuid.New()
	}

	now := s.now().UTC()
	if content.CreatedAt.IsZero() {
		content.CreatedAt = now
	}
	content.UpdatedAt = now
	content.CurrentVersion = 1

	entry := s.buildEntry(content, 1, CreateOptions{Actor: actor, Note: note, Initial: true})
	if err := s.docs.CreateContentWithVersion(ctx, content, entry); err != nil {
		return nil, err
	}

	s.cachePut(entry)
	s.logger.Debug("content created",
		slog.String("content_id", content.ID.String()),
		slog.String("collection_id", content.CollectionID.String()))
	return entry, nil
}

// CreateVersion appends a new entry for the content. The snapshot is a
// deep copy of the content's live fields. On success the content's
// CurrentVersion is advanced and persisted. A numbering race that
// survives the retry budget surfaces as a ConflictError.
func (s *Store) CreateVersion(ctx context.Context, content *cms.Content, opts CreateOptions) (*cms.VersionEntry, error) {
	lock := s.lockFor(content.ID)
	lock.Lock()
	defer lock.Unlock()

	var entry *cms.VersionEntry
	err := folioerrors.Retry(ctx, s.policy, isNumberingRace, func() error {
		number := 1
		if !opts.Initial {
			max, err := s.docs.MaxVersionNumber(ctx, content.ID)
			if err != nil {
				return err
			}
			number = max + 1
		}

		candidate := s.buildEntry(content, number, opts)
		if err := s.docs.InsertVersion(ctx, candidate); err != nil {
			return err
		}
		entry = candidate
		return nil
	})
	if errors.Is(err, store.ErrDuplicateVersion) {
		s.logger.Warn("version numbering retries exhausted",
			slog.String("content_id", content.ID.String()))
		return nil, folioerrors.NewConflict("version",
			fmt.Sprintf("numbering contention on content %s", content.ID))
	}
	if err != nil {
		return nil, err
	}

	content.CurrentVersion = entry.VersionNumber
	content.UpdatedAt = entry.CreatedAt
	if err := s.docs.UpdateContent(ctx, content); err != nil {
		return nil, fmt.Errorf("advance current version: %w", err)
	}

	s.cachePut(entry)
	return entry, nil
}

// GetVersion returns the entry with the given number, or a NotFoundError.
func (s *Store) GetVersion(ctx context.Context, contentID uuid.UUID, number int) (*cms.VersionEntry, error) {
	if number < 1 {
		return nil, folioerrors.NewValidation("version_number", "must be >= 1")
	}
	if s.cache != nil {
		if entry := s.cache.Get(contentID, number); entry != nil {
			return entry, nil
		}
	}

	entry, err := s.docs.GetVersionByNumber(ctx, contentID, number)
	if err != nil {
		return nil, err
	}
	s.cachePut(entry)
	return entry, nil
}

// LatestVersion returns the entry with the highest number for the content.
func (s *Store) LatestVersion(ctx context.Context, contentID uuid.UUID) (*cms.VersionEntry, error) {
	return s.docs.LatestVersion(ctx, contentID)
}

// ListVersions returns all entries for the content, descending by number.
func (s *Store) ListVersions(ctx context.Context, contentID uuid.UUID) ([]*cms.VersionEntry, error) {
	return s.docs.ListVersions(ctx, contentID)
}

// Invalidate drops the cached entry for (contentID, number). Callers that
// tag or delete entries through the document store use this to keep the
// read cache honest.
func (s *Store) Invalidate(contentID uuid.UUID, number int) {
	if s.cache != nil {
		s.cache.Drop(contentID, number)
	}
}

func (s *Store) buildEntry(content *cms.Content, number int, opts CreateOptions) *cms.VersionEntry {
	return &cms.VersionEntry{
		ID:            uuid.New(),
		ContentID:     content.ID,
		VersionNumber: number,
		Snapshot:      content.Snapshot(),
		BranchTag:     opts.BranchTag,
		IsBranchEnd:   opts.BranchEnd,
		CreatedBy:     opts.Actor,
		ChangeNote:    opts.Note,
		CreatedAt:     s.now().UTC(),
	}
}

func (s *Store) cachePut(entry *cms.VersionEntry) {
	if s.cache != nil {
		s.cache.Put(entry)
	}
}

func (s *Store) lockFor(contentID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.contentLocks[contentID]
	if !ok {
		lock = &sync.Mutex{}
		s.contentLocks[contentID] = lock
	}
	return lock
}

func isNumberingRace(err error) bool {
	return errors.Is(err, store.ErrDuplicateVersion)
}
