package history

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/foliocms/folio/core/cms"
	folioerrors "github.com/foliocms/folio/core/errors"
	"github.com/foliocms/folio/core/locks"
	"github.com/foliocms/folio/core/store"
	"github.com/foliocms/folio/core/versioning"
)

type historyFixture struct {
	docs     *store.MemoryStore
	versions *versioning.Store
	resolver *locks.Resolver
	service  *Service

	collection *cms.Collection
	content    *cms.Content
}

func newHistoryFixture(t *testing.T, opts ...Option) *historyFixture {
	t.Helper()
	ctx := context.Background()

	docs := store.NewMemoryStore()
	collection := &cms.Collection{ID: uuid.New(), Name: "blog"}
	if err := docs.CreateCollection(ctx, collection); err != nil {
		t.Fatal(err)
	}

	versions := versioning.NewStore(docs)
	content := &cms.Content{
		CollectionID: collection.ID,
		Title:        "Post",
		Slug:         "post",
		Status:       cms.StatusDraft,
	}
	if _, err := versions.CreateContent(ctx, content, "jane", "initial"); err != nil {
		t.Fatal(err)
	}

	hierarchy := store.NewHierarchy(docs)
	resolver := locks.NewResolver(hierarchy, hierarchy)
	return &historyFixture{
		docs:       docs,
		versions:   versions,
		resolver:   resolver,
		service:    NewService(docs, versions, resolver, opts...),
		collection: collection,
		content:    content,
	}
}

func strptr(s string) *string { return &s }

func TestRecordUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("applies changes and appends entry", func(t *testing.T) {
		f := newHistoryFixture(t)

		entry, err := f.service.RecordUpdate(ctx, f.content.ID,
			cms.ContentChanges{Title: strptr("Updated")}, "jane", "retitle")
		if err != nil {
			t.Fatalf("record: %v", err)
		}
		if entry.VersionNumber != 2 {
			t.Errorf("expected version 2, got %d", entry.VersionNumber)
		}
		if entry.Snapshot.Title != "Updated" {
			t.Errorf("snapshot missing change: %+v", entry.Snapshot)
		}

		stored, err := f.docs.GetContent(ctx, f.content.ID)
		if err != nil {
			t.Fatal(err)
		}
		if stored.Title != "Updated" || stored.CurrentVersion != 2 {
			t.Errorf("live content not updated: %+v", stored)
		}
	})

	t.Run("empty change set rejected", func(t *testing.T) {
		f := newHistoryFixture(t)
		_, err := f.service.RecordUpdate(ctx, f.content.ID, cms.ContentChanges{}, "jane", "")
		if !folioerrors.IsValidation(err) {
			t.Errorf("expected ValidationError, got %v", err)
		}
	})

	t.Run("unknown content is not found", func(t *testing.T) {
		f := newHistoryFixture(t)
		_, err := f.service.RecordUpdate(ctx, uuid.New(),
			cms.ContentChanges{Title: strptr("x")}, "jane", "")
		if !folioerrors.IsNotFound(err) {
			t.Errorf("expected NotFoundError, got %v", err)
		}
	})

	t.Run("inherited collection lock blocks and leaves content untouched", func(t *testing.T) {
		f := newHistoryFixture(t)
		if err := f.resolver.Lock(ctx, f.collection, "admin", "release freeze"); err != nil {
			t.Fatal(err)
		}

		_, err := f.service.RecordUpdate(ctx, f.content.ID,
			cms.ContentChanges{Title: strptr("Blocked")}, "jane", "")
		var locked *folioerrors.LockedError
		if !errors.As(err, &locked) {
			t.Fatalf("expected LockedError, got %v", err)
		}
		if locked.Source != cms.LockSourceCollection {
			t.Errorf("expected collection source, got %s", locked.Source)
		}

		stored, _ := f.docs.GetContent(ctx, f.content.ID)
		if stored.Title != "Post" || stored.CurrentVersion != 1 {
			t.Error("locked update must not change content")
		}
		entries, _ := f.versions.ListVersions(ctx, f.content.ID)
		if len(entries) != 1 {
			t.Errorf("locked update must not append entries, got %d", len(entries))
		}
	})
}

func TestRestoreVersion(t *testing.T) {
	ctx := context.Background()

	// Builds the lineage v1 "Post" -> v2 "Second" -> v3 "Third".
	seed := func(t *testing.T) *historyFixture {
		f := newHistoryFixture(t)
		for _, title := range []string{"Second", "Third"} {
			if _, err := f.service.RecordUpdate(ctx, f.content.ID,
				cms.ContentChanges{Title: strptr(title)}, "jane", ""); err != nil {
				t.Fatal(err)
			}
		}
		return f
	}

	t.Run("appends forward with target snapshot", func(t *testing.T) {
		f := seed(t)

		entry, err := f.service.RestoreVersion(ctx, f.content.ID, 1, "jane")
		if err != nil {
			t.Fatalf("restore: %v", err)
		}
		if entry.VersionNumber != 4 {
			t.Errorf("expected version 4, got %d", entry.VersionNumber)
		}
		if entry.Snapshot.Title != "Post" {
			t.Errorf("expected restored title Post, got %s", entry.Snapshot.Title)
		}
		if entry.ChangeNote != "restored from version 1" {
			t.Errorf("unexpected note: %s", entry.ChangeNote)
		}

		stored, _ := f.docs.GetContent(ctx, f.content.ID)
		if stored.Title != "Post" || stored.CurrentVersion != 4 {
			t.Errorf("live content not restored: %+v", stored)
		}
	})

	t.Run("target entry is untouched", func(t *testing.T) {
		f := seed(t)
		before, err := f.versions.GetVersion(ctx, f.content.ID, 1)
		if err != nil {
			t.Fatal(err)
		}

		if _, err := f.service.RestoreVersion(ctx, f.content.ID, 1, "jane"); err != nil {
			t.Fatal(err)
		}

		after, err := f.versions.GetVersion(ctx, f.content.ID, 1)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(before, after) {
			t.Error("restore mutated the target entry")
		}
	})

	t.Run("missing target is not found", func(t *testing.T) {
		f := seed(t)
		_, err := f.service.RestoreVersion(ctx, f.content.ID, 42, "jane")
		if !folioerrors.IsNotFound(err) {
			t.Errorf("expected NotFoundError, got %v", err)
		}
		entries, _ := f.versions.ListVersions(ctx, f.content.ID)
		if len(entries) != 3 {
			t.Errorf("failed restore must not append, got %d entries", len(entries))
		}
	})

	t.Run("locked content cannot be restored", func(t *testing.T) {
		f := seed(t)
		stored, _ := f.docs.GetContent(ctx, f.content.ID)
		if err := f.resolver.Lock(ctx, stored, "bob", "editing"); err != nil {
			t.Fatal(err)
		}

		_, err := f.service.RestoreVersion(ctx, f.content.ID, 1, "jane")
		if !folioerrors.IsLocked(err) {
			t.Errorf("expected LockedError, got %v", err)
		}
	})
}

func TestEnhancedHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("descending with diffs and names", func(t *testing.T) {
		directory := ActorDirectoryFunc(func(ctx context.Context, actorID string) (string, error) {
			return "Jane Doe", nil
		})
		f := newHistoryFixture(t, WithActorDirectory(directory))
		if _, err := f.service.RecordUpdate(ctx, f.content.ID,
			cms.ContentChanges{Title: strptr("Second"), Status: statusPtr(cms.StatusPublished)},
			"jane", "publish"); err != nil {
			t.Fatal(err)
		}

		items, err := f.service.EnhancedHistory(ctx, f.content.ID)
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(items))
		}

		latest := items[0]
		if latest.Entry.VersionNumber != 2 {
			t.Errorf("expected latest first, got %d", latest.Entry.VersionNumber)
		}
		if latest.CreatorName != "Jane Doe" {
			t.Errorf("expected resolved name, got %s", latest.CreatorName)
		}
		wantFields := []string{"title", "status"}
		if !reflect.DeepEqual(latest.Diff.ChangedFields, wantFields) {
			t.Errorf("expected %v, got %v", wantFields, latest.Diff.ChangedFields)
		}

		first := items[1]
		if !first.Diff.Initial {
			t.Error("first entry must be marked initial")
		}
	})

	t.Run("lookup failure falls back to actor id", func(t *testing.T) {
		directory := ActorDirectoryFunc(func(ctx context.Context, actorID string) (string, error) {
			return "", errors.New("directory down")
		})
		f := newHistoryFixture(t, WithActorDirectory(directory))

		items, err := f.service.EnhancedHistory(ctx, f.content.ID)
		if err != nil {
			t.Fatal(err)
		}
		if items[0].CreatorName != "jane" {
			t.Errorf("expected fallback to id, got %s", items[0].CreatorName)
		}
	})

	t.Run("diffs across numbering gaps left by purge", func(t *testing.T) {
		f := newHistoryFixture(t)
		for _, title := range []string{"Second", "Third", "Fourth"} {
			if _, err := f.service.RecordUpdate(ctx, f.content.ID,
				cms.ContentChanges{Title: strptr(title)}, "jane", ""); err != nil {
				t.Fatal(err)
			}
		}
		// Drop the middle of the lineage, leaving {1, 4}.
		for _, number := range []int{2, 3} {
			entry, err := f.docs.GetVersionByNumber(ctx, f.content.ID, number)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.docs.DeleteVersion(ctx, entry.ID); err != nil {
				t.Fatal(err)
			}
		}

		items, err := f.service.EnhancedHistory(ctx, f.content.ID)
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(items))
		}

		latest := items[0]
		if latest.Entry.VersionNumber != 4 {
			t.Fatalf("expected v4 first, got %d", latest.Entry.VersionNumber)
		}
		if latest.Diff.Initial {
			t.Error("surviving v4 must not be marked initial")
		}
		if !reflect.DeepEqual(latest.Diff.ChangedFields, []string{"title"}) {
			t.Errorf("expected v4 diffed against surviving v1, got %v", latest.Diff.ChangedFields)
		}
		if !items[1].Diff.Initial {
			t.Error("oldest survivor must be marked initial")
		}
	})

	t.Run("unknown content is not found", func(t *testing.T) {
		f := newHistoryFixture(t)
		_, err := f.service.EnhancedHistory(ctx, uuid.New())
		if !folioerrors.IsNotFound(err) {
			t.Errorf("expected NotFoundError, got %v", err)
		}
	})

	t.Run("readable while locked", func(t *testing.T) {
		f := newHistoryFixture(t)
		if err := f.resolver.Lock(ctx, f.collection, "admin", "freeze"); err != nil {
			t.Fatal(err)
		}

		if _, err := f.service.EnhancedHistory(ctx, f.content.ID); err != nil {
			t.Errorf("history reads must ignore locks: %v", err)
		}
	})
}

type recordingIndexer struct {
	mu      sync.Mutex
	indexed []uuid.UUID
}

func (r *recordingIndexer) IndexContent(ctx context.Context, content *cms.Content) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexed = append(r.indexed, content.ID)
	return nil
}

func (r *recordingIndexer) RemoveContent(ctx context.Context, id uuid.UUID) error {
	return nil
}

func TestIndexerNotification(t *testing.T) {
	ctx := context.Background()
	indexer := &recordingIndexer{}
	f := newHistoryFixture(t, WithIndexer(indexer))

	if _, err := f.service.RecordUpdate(ctx, f.content.ID,
		cms.ContentChanges{Title: strptr("Indexed")}, "jane", ""); err != nil {
		t.Fatal(err)
	}

	if len(indexer.indexed) != 1 || indexer.indexed[0] != f.content.ID {
		t.Errorf("expected one index notification, got %v", indexer.indexed)
	}
}

func statusPtr(s cms.ContentStatus) *cms.ContentStatus { return &s }
