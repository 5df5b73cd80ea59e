// Package releases manages named cross-content branch checkpoints:
// creation, frozen-state reads, and purge of unprotected history. The
// historical "release" and "edition" concepts are one mechanism here: a
// branch tag plus a purge-protection flag on a version entry.
package releases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/foliocms/folio/core/cms"
	folioerrors "github.com/foliocms/folio/core/errors"
	"github.com/foliocms/folio/core/pool"
	"github.com/foliocms/folio/core/store"
	"github.com/foliocms/folio/core/versioning"
)

// Manager creates branches and prunes version history.
type Manager struct {
	docs     store.DocumentStore
	versions *versioning.Store
	pool     *pool.Pool
	logger   *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithPool overrides the batch worker pool.
func WithPool(p *pool.Pool) Option {
	return func(m *Manager) { m.pool = p }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a release manager.
func NewManager(docs store.DocumentStore, versions *versioning.Store, opts ...Option) *Manager {
	m := &Manager{
		docs:     docs,
		versions: versions,
		pool:     pool.New(pool.DefaultWorkers),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ReleaseSummary reports a CreateRelease run. Per-content work is not
// all-or-nothing across the collection: failures are collected here
// rather than aborting the batch, trading collection-wide atomicity for
// availability at scale.
type ReleaseSummary struct {
	Name         string         `json:"name"`
	CopyContents bool           `json:"copy_contents"`
	Contents     int            `json:"contents"`
	Succeeded    int            `json:"succeeded"`
	Skipped      int            `json:"skipped"`
	Failures     []pool.Failure `json:"failures,omitempty"`
}

// CreateRelease creates the named branch across every content in the
// collection. The duplicate-name check runs before any mutation, so a
// Conflict leaves the collection and all version entries untouched.
//
// With copyContents=false the latest entry of each content becomes the
// checkpoint: it is tagged and protected in place, no new entry is
// created. With copyContents=true each content gets a fresh entry
// (numbered max+1) that is both the normal increment and the frozen
// branch copy, so later edits never disturb it.
func (m *Manager) CreateRelease(ctx context.Context, collectionID uuid.UUID, name, actor string, copyContents bool) (*ReleaseSummary, error) {
	if name == "" {
		return nil, folioerrors.NewValidation("name", "branch name is empty")
	}

	collection, err := m.docs.GetCollection(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if collection.HasBranch(name) {
		return nil, folioerrors.NewConflict("branch",
			fmt.Sprintf("name %q already exists in collection %s", name, collectionID))
	}

	contents, err := m.docs.ListContents(ctx, store.ContentFilter{CollectionID: collectionID})
	if err != nil {
		return nil, err
	}

	jobs := make([]pool.Job, 0, len(contents))
	for _, content := range contents {
		jobs = append(jobs, m.releaseJob(content, name, actor, copyContents))
	}
	result := m.pool.Run(ctx, jobs)

	collection.Branches = append(collection.Branches, name)
	if err := m.docs.UpdateCollection(ctx, collection); err != nil {
		return nil, fmt.Errorf("record branch name: %w", err)
	}

	summary := &ReleaseSummary{
		Name:         name,
		CopyContents: copyContents,
		Contents:     len(contents),
		Succeeded:    result.Completed,
		Skipped:      result.Skipped,
		Failures:     result.Failures,
	}
	m.logger.Info("release created",
		slog.String("collection_id", collectionID.String()),
		slog.String("name", name),
		slog.Int("contents", summary.Contents),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", len(summary.Failures)))
	return summary, nil
}

func (m *Manager) releaseJob(content *cms.Content, name, actor string, copyContents bool) pool.Job {
	return pool.Job{
		ID: content.ID.String(),
		Execute: func(ctx context.Context) error {
			if copyContents {
				_, err := m.versions.CreateVersion(ctx, content, versioning.CreateOptions{
					Actor:     actor,
					Note:      fmt.Sprintf("branch %q checkpoint", name),
					BranchTag: name,
					BranchEnd: true,
				})
				return err
			}

			latest, err := m.docs.LatestVersion(ctx, content.ID)
			if err != nil {
				return err
			}
			if err := m.docs.TagVersion(ctx, latest.ID, name, true); err != nil {
				return err
			}
			m.versions.Invalidate(content.ID, latest.VersionNumber)
			return nil
		},
	}
}

// ReleaseContent pairs a content with its frozen entry in a branch.
type ReleaseContent struct {
	Content *cms.Content
	Entry   *cms.VersionEntry
}

// ContentsForRelease returns each content's frozen state in the named
// branch, independent of how many versions accumulated since. Contents
// created after the branch (or missed by a partial release) carry no tag
// and are omitted.
func (m *Manager) ContentsForRelease(ctx context.Context, collectionID uuid.UUID, name string) ([]ReleaseContent, error) {
	collection, err := m.docs.GetCollection(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if !collection.HasBranch(name) {
		return nil, folioerrors.NewNotFound("branch", name)
	}

	contents, err := m.docs.ListContents(ctx, store.ContentFilter{CollectionID: collectionID})
	if err != nil {
		return nil, err
	}

	result := make([]ReleaseContent, 0, len(contents))
	for _, content := range contents {
		entry, err := m.docs.GetVersionByTag(ctx, content.ID, name)
		if folioerrors.IsNotFound(err) {
			m.logger.Debug("content not in branch",
				slog.String("content_id", content.ID.String()),
				slog.String("branch", name))
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, ReleaseContent{Content: content, Entry: entry})
	}
	return result, nil
}
