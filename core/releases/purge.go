package releases

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/foliocms/folio/core/cms"
	"github.com/foliocms/folio/core/pool"
	"github.com/foliocms/folio/core/store"
)

// ContentPurge reports the purge outcome for one content.
type ContentPurge struct {
	ContentID uuid.UUID `json:"content_id"`
	Deleted   int       `json:"deleted"`
	Kept      int       `json:"kept"`
}

// PurgeSummary aggregates a purge run across a collection. Purge has no
// undo; failures are reported per content rather than retried.
type PurgeSummary struct {
	Deleted    int            `json:"deleted"`
	PerContent []ContentPurge `json:"per_content,omitempty"`
	Failures   []pool.Failure `json:"failures,omitempty"`
}

// PurgeVersions deletes every version entry in the collection that is
// neither a content's latest entry nor protected by IsBranchEnd, and
// returns the total deleted. Per-content deletion is independent work
// dispatched over the worker pool; cancellation checkpoints between
// contents.
func (m *Manager) PurgeVersions(ctx context.Context, collectionID uuid.UUID) (*PurgeSummary, error) {
	contents, err := m.listCollectionContents(ctx, collectionID)
	if err != nil {
		return nil, err
	}

	summary := &PurgeSummary{}
	var mu sync.Mutex

	jobs := make([]pool.Job, 0, len(contents))
	for _, content := range contents {
		contentID := content.ID
		jobs = append(jobs, pool.Job{
			ID: contentID.String(),
			Execute: func(ctx context.Context) error {
				deleted, kept, err := m.purgeContent(ctx, contentID)
				if err != nil {
					return err
				}
				mu.Lock()
				summary.Deleted += deleted
				summary.PerContent = append(summary.PerContent, ContentPurge{
					ContentID: contentID,
					Deleted:   deleted,
					Kept:      kept,
				})
				mu.Unlock()
				return nil
			},
		})
	}

	result := m.pool.Run(ctx, jobs)
	summary.Failures = result.Failures
	m.logger.Info("versions purged",
		slog.String("collection_id", collectionID.String()),
		slog.Int("deleted", summary.Deleted),
		slog.Int("failed", len(summary.Failures)))
	return summary, nil
}

// PurgePreviewCount counts the entries PurgeVersions would delete,
// without deleting anything. Intended to run before the irreversible
// purge.
func (m *Manager) PurgePreviewCount(ctx context.Context, collectionID uuid.UUID) (int, error) {
	contents, err := m.listCollectionContents(ctx, collectionID)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, content := range contents {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		entries, err := m.docs.ListVersions(ctx, content.ID)
		if err != nil {
			return 0, err
		}
		total += len(purgeCandidates(entries))
	}
	return total, nil
}

func (m *Manager) purgeContent(ctx context.Context, contentID uuid.UUID) (deleted, kept int, err error) {
	entries, err := m.docs.ListVersions(ctx, contentID)
	if err != nil {
		return 0, 0, err
	}

	candidates := purgeCandidates(entries)
	for _, entry := range candidates {
		if err := m.docs.DeleteVersion(ctx, entry.ID); err != nil {
			return deleted, len(entries) - deleted, err
		}
		m.versions.Invalidate(contentID, entry.VersionNumber)
		deleted++
	}
	return deleted, len(entries) - deleted, nil
}

// purgeCandidates selects deletable entries: everything except the
// single latest entry and any branch-end checkpoint. Entries arrive
// descending by number, so the first one is the latest.
func purgeCandidates(entries []*cms.VersionEntry) []*cms.VersionEntry {
	var candidates []*cms.VersionEntry
	for i, entry := range entries {
		if i == 0 || entry.IsBranchEnd {
			continue
		}
		candidates = append(candidates, entry)
	}
	return candidates
}

func (m *Manager) listCollectionContents(ctx context.Context, collectionID uuid.UUID) ([]*cms.Content, error) {
	if _, err := m.docs.GetCollection(ctx, collectionID); err != nil {
		return nil, err
	}
	return m.docs.ListContents(ctx, store.ContentFilter{CollectionID: collectionID})
}
