package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/foliocms/folio/core/cms"
	folioerrors "github.com/foliocms/folio/core/errors"
)

func TestMemoryStoreCollections(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	collection := testCollection("blog")
	if err := s.CreateCollection(ctx, collection); err != nil {
		t.Fatalf("create: %v", err)
	}

	t.Run("round trip", func(t *testing.T) {
		got, err := s.GetCollection(ctx, collection.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Name != "blog" {
			t.Errorf("expected blog, got %s", got.Name)
		}
	})

	t.Run("reads are isolated copies", func(t *testing.T) {
		got, _ := s.GetCollection(ctx, collection.ID)
		got.Name = "mutated"

		again, _ := s.GetCollection(ctx, collection.ID)
		if again.Name != "blog" {
			t.Error("store leaked a mutable reference")
		}
	})

	t.Run("missing is typed not found", func(t *testing.T) {
		_, err := s.GetCollection(ctx, uuid.New())
		if !folioerrors.IsNotFound(err) {
			t.Errorf("expected NotFoundError, got %v", err)
		}
	})
}

func TestMemoryStoreContents(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	collection := testCollection("blog")
	if err := s.CreateCollection(ctx, collection); err != nil {
		t.Fatal(err)
	}

	t.Run("create with version is atomic on duplicate", func(t *testing.T) {
		content := testContentDoc(collection.ID, "first", "first")
		entry := testEntry(content, 1)
		if err := s.CreateContentWithVersion(ctx, content, entry); err != nil {
			t.Fatalf("create: %v", err)
		}

		dup := testContentDoc(collection.ID, "dup", "dup")
		dupEntry := testEntry(dup, 1)
		dupEntry.ContentID = content.ID // collides with the existing v1
		err := s.CreateContentWithVersion(ctx, dup, dupEntry)
		if !errors.Is(err, ErrDuplicateVersion) {
			t.Fatalf("expected ErrDuplicateVersion, got %v", err)
		}
		if _, err := s.GetContent(ctx, dup.ID); !folioerrors.IsNotFound(err) {
			t.Error("content must not be created when its version insert fails")
		}
	})

	t.Run("unknown collection rejected", func(t *testing.T) {
		orphan := testContentDoc(uuid.New(), "o", "o")
		err := s.CreateContentWithVersion(ctx, orphan, testEntry(orphan, 1))
		if !folioerrors.IsNotFound(err) {
			t.Errorf("expected NotFoundError, got %v", err)
		}
	})
}

func TestMemoryStoreListContents(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	collection := testCollection("blog")
	other := testCollection("docs")
	if err := s.CreateCollection(ctx, collection); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateCollection(ctx, other); err != nil {
		t.Fatal(err)
	}

	seed := func(c *cms.Collection, slug string, status cms.ContentStatus) *cms.Content {
		content := testContentDoc(c.ID, slug, slug)
		content.Status = status
		if err := s.CreateContentWithVersion(ctx, content, testEntry(content, 1)); err != nil {
			t.Fatal(err)
		}
		return content
	}
	seed(collection, "blog/alpha", cms.StatusDraft)
	seed(collection, "blog/beta", cms.StatusPublished)
	seed(other, "docs/gamma", cms.StatusPublished)

	t.Run("by collection", func(t *testing.T) {
		got, err := s.ListContents(ctx, ContentFilter{CollectionID: collection.ID})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 {
			t.Errorf("expected 2, got %d", len(got))
		}
	})

	t.Run("by status", func(t *testing.T) {
		got, err := s.ListContents(ctx, ContentFilter{Status: cms.StatusPublished})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 {
			t.Errorf("expected 2, got %d", len(got))
		}
	})

	t.Run("by slug glob", func(t *testing.T) {
		got, err := s.ListContents(ctx, ContentFilter{SlugGlob: "blog/*"})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 {
			t.Errorf("expected 2, got %d", len(got))
		}
	})

	t.Run("invalid glob is validation error", func(t *testing.T) {
		_, err := s.ListContents(ctx, ContentFilter{SlugGlob: "blog/["})
		if !folioerrors.IsValidation(err) {
			t.Errorf("expected ValidationError, got %v", err)
		}
	})

	t.Run("pagination", func(t *testing.T) {
		page, err := s.ListContents(ctx, ContentFilter{CollectionID: collection.ID, Limit: 1, Offset: 1})
		if err != nil {
			t.Fatal(err)
		}
		if len(page) != 1 {
			t.Errorf("expected 1, got %d", len(page))
		}
	})
}

func TestMemoryStoreVersions(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	collection := testCollection("blog")
	if err := s.CreateCollection(ctx, collection); err != nil {
		t.Fatal(err)
	}
	content := testContentDoc(collection.ID, "post", "post")
	if err := s.CreateContentWithVersion(ctx, content, testEntry(content, 1)); err != nil {
		t.Fatal(err)
	}

	t.Run("duplicate number rejected", func(t *testing.T) {
		err := s.InsertVersion(ctx, testEntry(content, 1))
		if !errors.Is(err, ErrDuplicateVersion) {
			t.Errorf("expected ErrDuplicateVersion, got %v", err)
		}
	})

	t.Run("list descends by number", func(t *testing.T) {
		for n := 2; n <= 4; n++ {
			if err := s.InsertVersion(ctx, testEntry(content, n)); err != nil {
				t.Fatal(err)
			}
		}
		entries, err := s.ListVersions(ctx, content.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 4 {
			t.Fatalf("expected 4 entries, got %d", len(entries))
		}
		for i, entry := range entries {
			if entry.VersionNumber != 4-i {
				t.Fatalf("entry %d has number %d", i, entry.VersionNumber)
			}
		}
	})

	t.Run("latest and max", func(t *testing.T) {
		latest, err := s.LatestVersion(ctx, content.ID)
		if err != nil {
			t.Fatal(err)
		}
		if latest.VersionNumber != 4 {
			t.Errorf("expected 4, got %d", latest.VersionNumber)
		}
		max, err := s.MaxVersionNumber(ctx, content.ID)
		if err != nil {
			t.Fatal(err)
		}
		if max != 4 {
			t.Errorf("expected 4, got %d", max)
		}
	})

	t.Run("max is zero for unknown content", func(t *testing.T) {
		max, err := s.MaxVersionNumber(ctx, uuid.New())
		if err != nil {
			t.Fatal(err)
		}
		if max != 0 {
			t.Errorf("expected 0, got %d", max)
		}
	})

	t.Run("tag and find by tag", func(t *testing.T) {
		entry, err := s.GetVersionByNumber(ctx, content.ID, 2)
		if err != nil {
			t.Fatal(err)
		}
		if err := s.TagVersion(ctx, entry.ID, "v1", true); err != nil {
			t.Fatal(err)
		}

		tagged, err := s.GetVersionByTag(ctx, content.ID, "v1")
		if err != nil {
			t.Fatal(err)
		}
		if tagged.VersionNumber != 2 || !tagged.IsBranchEnd {
			t.Errorf("unexpected tagged entry: %+v", tagged)
		}
	})

	t.Run("delete", func(t *testing.T) {
		entry, err := s.GetVersionByNumber(ctx, content.ID, 3)
		if err != nil {
			t.Fatal(err)
		}
		if err := s.DeleteVersion(ctx, entry.ID); err != nil {
			t.Fatal(err)
		}
		if _, err := s.GetVersionByNumber(ctx, content.ID, 3); !folioerrors.IsNotFound(err) {
			t.Errorf("expected NotFoundError, got %v", err)
		}
	})
}

func testCollection(name string) *cms.Collection {
	now := time.Now().UTC()
	return &cms.Collection{ID: uuid.New(), Name: name, CreatedAt: now, UpdatedAt: now}
}

func testContentDoc(collectionID uuid.UUID, title, slug string) *cms.Content {
	now := time.Now().UTC()
	return &cms.Content{
		ID:             uuid.New(),
		CollectionID:   collectionID,
		Title:          title,
		Slug:           slug,
		Status:         cms.StatusDraft,
		CurrentVersion: 1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func testEntry(content *cms.Content, number int) *cms.VersionEntry {
	return &cms.VersionEntry{
		ID:            uuid.New(),
		ContentID:     content.ID,
		VersionNumber: number,
		Snapshot:      content.Snapshot(),
		CreatedAt:     time.Now().UTC(),
	}
}
