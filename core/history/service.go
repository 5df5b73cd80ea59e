// Package history orchestrates guarded content updates, restore-as-new-
// version, and enriched history reads over the lock resolver and the
// version store.
package history

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/foliocms/folio/core/cms"
	folioerrors "github.com/foliocms/folio/core/errors"
	"github.com/foliocms/folio/core/locks"
	"github.com/foliocms/folio/core/store"
	"github.com/foliocms/folio/core/versioning"
)

// Indexer receives content changes for search indexing. Indexing is
// best-effort: failures are logged, never propagated to the caller.
type Indexer interface {
	IndexContent(ctx context.Context, content *cms.Content) error
	RemoveContent(ctx context.Context, id uuid.UUID) error
}

// Service is the version history orchestrator.
type Service struct {
	docs     store.DocumentStore
	versions *versioning.Store
	locks    *locks.Resolver
	actors   ActorDirectory
	indexer  Indexer
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithActorDirectory sets the collaborator used to resolve creator
// display names in enhanced history.
func WithActorDirectory(actors ActorDirectory) Option {
	return func(s *Service) { s.actors = actors }
}

// WithIndexer sets the search indexer notified after mutations.
func WithIndexer(indexer Indexer) Option {
	return func(s *Service) { s.indexer = indexer }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a history service.
func NewService(docs store.DocumentStore, versions *versioning.Store, resolver *locks.Resolver, opts ...Option) *Service {
	s := &Service{
		docs:     docs,
		versions: versions,
		locks:    resolver,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordUpdate applies a change set to the content's live fields and
// appends a new version entry. The effective-lock check runs first and
// its LockedError propagates unchanged; a locked content is left
// byte-for-byte as it was.
func (s *Service) RecordUpdate(ctx context.Context, contentID uuid.UUID, changes cms.ContentChanges, actor, note string) (*cms.VersionEntry, error) {
	if changes.IsEmpty() {
		return nil, folioerrors.NewValidation("changes", "change set is empty")
	}

	content, err := s.docs.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if err := s.locks.AssertModifiable(ctx, content); err != nil {
		return nil, err
	}

	changes.Apply(content)
	entry, err := s.versions.CreateVersion(ctx, content, versioning.CreateOptions{
		Actor: actor,
		Note:  note,
	})
	if err != nil {
		return nil, err
	}

	s.notifyIndexer(ctx, content)
	return entry, nil
}

// RestoreVersion overwrites the content's live fields from the target
// entry's snapshot and appends a new entry numbered prior-max+1. The
// target entry itself is never mutated or deleted; restore is strictly
// forward and never reuses intervening numbers.
func (s *Service) RestoreVersion(ctx context.Context, contentID uuid.UUID, targetNumber int, actor string) (*cms.VersionEntry, error) {
	content, err := s.docs.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if err := s.locks.AssertModifiable(ctx, content); err != nil {
		return nil, err
	}

	target, err := s.versions.GetVersion(ctx, contentID, targetNumber)
	if err != nil {
		return nil, err
	}

	content.ApplySnapshot(target.Snapshot)
	entry, err := s.versions.CreateVersion(ctx, content, versioning.CreateOptions{
		Actor: actor,
		Note:  fmt.Sprintf("restored from version %d", targetNumber),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("version restored",
		slog.String("content_id", contentID.String()),
		slog.Int("target", targetNumber),
		slog.Int("new_version", entry.VersionNumber))
	s.notifyIndexer(ctx, content)
	return entry, nil
}

// HistoryItem is one decorated entry in an enhanced history listing.
type HistoryItem struct {
	Entry       *cms.VersionEntry
	CreatorName string
	Diff        DiffSummary
}

// EnhancedHistory returns the content's entries descending by number,
// each with the creator's display name and a diff summary against the
// immediately preceding entry. Read-only; lock state is ignored.
func (s *Service) EnhancedHistory(ctx context.Context, contentID uuid.UUID) ([]HistoryItem, error) {
	entries, err := s.versions.ListVersions(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, folioerrors.NewNotFound("content history", contentID.String())
	}

	items := make([]HistoryItem, 0, len(entries))
	for i, entry := range entries {
		item := HistoryItem{
			Entry:       entry,
			CreatorName: s.creatorName(ctx, entry.CreatedBy),
		}
		// Diff against the next surviving entry, not number-1: purge
		// leaves gaps in the numbering.
		if i+1 < len(entries) {
			item.Diff = Summarize(entries[i+1].Snapshot, entry.Snapshot)
		} else {
			item.Diff = DiffSummary{Initial: true}
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Service) creatorName(ctx context.Context, actorID string) string {
	if actorID == "" || s.actors == nil {
		return actorID
	}
	name, err := s.actors.DisplayName(ctx, actorID)
	if err != nil {
		s.logger.Warn("actor lookup failed",
			slog.String("actor_id", actorID),
			slog.String("error", err.Error()))
		return actorID
	}
	return name
}

func (s *Service) notifyIndexer(ctx context.Context, content *cms.Content) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexContent(ctx, content); err != nil {
		s.logger.Warn("search index update failed",
			slog.String("content_id", content.ID.String()),
			slog.String("error", err.Error()))
	}
}
