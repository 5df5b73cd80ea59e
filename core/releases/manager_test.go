package releases

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/foliocms/folio/core/cms"
	folioerrors "github.com/foliocms/folio/core/errors"
	"github.com/foliocms/folio/core/store"
	"github.com/foliocms/folio/core/versioning"
)

type releaseFixture struct {
	docs     *store.MemoryStore
	versions *versioning.Store
	manager  *Manager

	collection *cms.Collection
}

func newReleaseFixture(t *testing.T) *releaseFixture {
	t.Helper()
	ctx := context.Background()

	docs := store.NewMemoryStore()
	collection := &cms.Collection{ID: uuid.New(), Name: "blog"}
	if err := docs.CreateCollection(ctx, collection); err != nil {
		t.Fatal(err)
	}

	versions := versioning.NewStore(docs)
	return &releaseFixture{
		docs:       docs,
		versions:   versions,
		manager:    NewManager(docs, versions),
		collection: collection,
	}
}

func (f *releaseFixture) addContent(t *testing.T, slug string) *cms.Content {
	t.Helper()
	content := &cms.Content{
		CollectionID: f.collection.ID,
		Title:        slug,
		Slug:         slug,
		Status:       cms.StatusDraft,
	}
	if _, err := f.versions.CreateContent(context.Background(), content, "jane", "initial"); err != nil {
		t.Fatal(err)
	}
	return content
}

func (f *releaseFixture) update(t *testing.T, content *cms.Content, title string) {
	t.Helper()
	content.Title = title
	if _, err := f.versions.CreateVersion(context.Background(), content, versioning.CreateOptions{Actor: "jane"}); err != nil {
		t.Fatal(err)
	}
}

func TestCreateRelease(t *testing.T) {
	ctx := context.Background()

	t.Run("tags latest in place", func(t *testing.T) {
		f := newReleaseFixture(t)
		a := f.addContent(t, "alpha")
		b := f.addContent(t, "beta")
		f.update(t, a, "alpha v2")

		summary, err := f.manager.CreateRelease(ctx, f.collection.ID, "spring", "admin", false)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if summary.Succeeded != 2 || summary.Contents != 2 || len(summary.Failures) != 0 {
			t.Errorf("unexpected summary: %+v", summary)
		}

		// No new entries: the latest of each lineage was tagged in place.
		entriesA, _ := f.docs.ListVersions(ctx, a.ID)
		if len(entriesA) != 2 {
			t.Errorf("expected 2 entries for alpha, got %d", len(entriesA))
		}
		tagged, err := f.docs.GetVersionByTag(ctx, a.ID, "spring")
		if err != nil {
			t.Fatal(err)
		}
		if tagged.VersionNumber != 2 || !tagged.IsBranchEnd {
			t.Errorf("unexpected tagged entry: %+v", tagged)
		}

		taggedB, err := f.docs.GetVersionByTag(ctx, b.ID, "spring")
		if err != nil {
			t.Fatal(err)
		}
		if taggedB.VersionNumber != 1 {
			t.Errorf("expected beta tagged at 1, got %d", taggedB.VersionNumber)
		}

		stored, _ := f.docs.GetCollection(ctx, f.collection.ID)
		if !stored.HasBranch("spring") {
			t.Error("branch name not recorded on collection")
		}
	})

	t.Run("copy contents appends frozen entries", func(t *testing.T) {
		f := newReleaseFixture(t)
		a := f.addContent(t, "alpha")
		f.update(t, a, "alpha v2")

		summary, err := f.manager.CreateRelease(ctx, f.collection.ID, "spring", "admin", true)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if summary.Succeeded != 1 || !summary.CopyContents {
			t.Errorf("unexpected summary: %+v", summary)
		}

		entries, _ := f.docs.ListVersions(ctx, a.ID)
		if len(entries) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(entries))
		}
		frozen := entries[0]
		if frozen.VersionNumber != 3 || frozen.BranchTag != "spring" || !frozen.IsBranchEnd {
			t.Errorf("unexpected frozen entry: %+v", frozen)
		}
	})

	t.Run("empty name rejected", func(t *testing.T) {
		f := newReleaseFixture(t)
		_, err := f.manager.CreateRelease(ctx, f.collection.ID, "", "admin", false)
		if !folioerrors.IsValidation(err) {
			t.Errorf("expected ValidationError, got %v", err)
		}
	})

	t.Run("duplicate name leaves state unchanged", func(t *testing.T) {
		f := newReleaseFixture(t)
		a := f.addContent(t, "alpha")
		if _, err := f.manager.CreateRelease(ctx, f.collection.ID, "spring", "admin", true); err != nil {
			t.Fatal(err)
		}
		before, _ := f.docs.ListVersions(ctx, a.ID)

		_, err := f.manager.CreateRelease(ctx, f.collection.ID, "spring", "admin", true)
		if !folioerrors.IsConflict(err) {
			t.Fatalf("expected ConflictError, got %v", err)
		}

		after, _ := f.docs.ListVersions(ctx, a.ID)
		if len(after) != len(before) {
			t.Error("duplicate release must not append entries")
		}
		stored, _ := f.docs.GetCollection(ctx, f.collection.ID)
		if len(stored.Branches) != 1 {
			t.Errorf("expected one branch, got %v", stored.Branches)
		}
	})

	t.Run("unknown collection is not found", func(t *testing.T) {
		f := newReleaseFixture(t)
		_, err := f.manager.CreateRelease(ctx, uuid.New(), "spring", "admin", false)
		if !folioerrors.IsNotFound(err) {
			t.Errorf("expected NotFoundError, got %v", err)
		}
	})
}

func TestContentsForRelease(t *testing.T) {
	ctx := context.Background()

	t.Run("pinned state survives later edits", func(t *testing.T) {
		f := newReleaseFixture(t)
		a := f.addContent(t, "alpha")
		f.update(t, a, "release state")

		if _, err := f.manager.CreateRelease(ctx, f.collection.ID, "spring", "admin", false); err != nil {
			t.Fatal(err)
		}

		f.update(t, a, "after release")
		f.update(t, a, "even later")

		contents, err := f.manager.ContentsForRelease(ctx, f.collection.ID, "spring")
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if len(contents) != 1 {
			t.Fatalf("expected 1 content, got %d", len(contents))
		}
		if contents[0].Entry.VersionNumber != 2 {
			t.Errorf("expected pinned at 2, got %d", contents[0].Entry.VersionNumber)
		}
		if contents[0].Entry.Snapshot.Title != "release state" {
			t.Errorf("expected frozen title, got %s", contents[0].Entry.Snapshot.Title)
		}
	})

	t.Run("contents created after the branch are omitted", func(t *testing.T) {
		f := newReleaseFixture(t)
		f.addContent(t, "alpha")
		if _, err := f.manager.CreateRelease(ctx, f.collection.ID, "spring", "admin", false); err != nil {
			t.Fatal(err)
		}
		f.addContent(t, "latecomer")

		contents, err := f.manager.ContentsForRelease(ctx, f.collection.ID, "spring")
		if err != nil {
			t.Fatal(err)
		}
		if len(contents) != 1 {
			t.Errorf("expected only the branched content, got %d", len(contents))
		}
	})

	t.Run("unknown branch is not found", func(t *testing.T) {
		f := newReleaseFixture(t)
		_, err := f.manager.ContentsForRelease(ctx, f.collection.ID, "missing")
		if !folioerrors.IsNotFound(err) {
			t.Errorf("expected NotFoundError, got %v", err)
		}
	})
}

// Exercises a full editorial cycle: draft, publish, lock freeze, restore,
// and a release staying pinned through all of it.
func TestReleasePinningLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newReleaseFixture(t)

	content := f.addContent(t, "story") // v1 draft
	f.update(t, content, "published cut")

	if _, err := f.manager.CreateRelease(ctx, f.collection.ID, "v1", "admin", false); err != nil {
		t.Fatal(err)
	}

	f.update(t, content, "final cut") // v3

	// Restore the original draft state as v4.
	target, err := f.versions.GetVersion(ctx, content.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	content.ApplySnapshot(target.Snapshot)
	if _, err := f.versions.CreateVersion(ctx, content, versioning.CreateOptions{Actor: "jane", Note: "restored"}); err != nil {
		t.Fatal(err)
	}

	entries, _ := f.docs.ListVersions(ctx, content.ID)
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}

	// The release still resolves to the entry tagged at creation time.
	contents, err := f.manager.ContentsForRelease(ctx, f.collection.ID, "v1")
	if err != nil {
		t.Fatal(err)
	}
	if contents[0].Entry.VersionNumber != 2 {
		t.Errorf("release drifted to %d", contents[0].Entry.VersionNumber)
	}
	if contents[0].Entry.Snapshot.Title != "published cut" {
		t.Errorf("release state changed: %s", contents[0].Entry.Snapshot.Title)
	}
}
