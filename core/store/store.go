// Package store provides document persistence for the Folio core. The
// DocumentStore interface is the persistence collaborator consumed by the
// versioning, locking, and release packages; memory and SQLite
// implementations are included.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/foliocms/folio/core/cms"
)

var (
	// ErrDuplicateVersion is returned by InsertVersion when an entry with
	// the same (content, version number) pair already exists. The version
	// store treats this as a numbering race and retries.
	ErrDuplicateVersion = errors.New("duplicate version number for content")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("document store is closed")
)

// ContentFilter narrows ListContents results. Zero values match
// everything. SlugGlob accepts glob syntax, e.g. "blog/*".
type ContentFilter struct {
	CollectionID uuid.UUID
	Status       cms.ContentStatus
	SlugGlob     string
	Limit        int
	Offset       int
}

// DocumentStore is the persistence collaborator for collections,
// contents, and version entries. Implementations must treat stored
// documents as owned copies: mutations to arguments or results after a
// call must not leak into the store.
type DocumentStore interface {
	CreateCollection(ctx context.Context, collection *cms.Collection) error
	GetCollection(ctx context.Context, id uuid.UUID) (*cms.Collection, error)
	UpdateCollection(ctx context.Context, collection *cms.Collection) error

	// CreateContentWithVersion persists a new content together with its
	// initial version entry as a single atomic write.
	CreateContentWithVersion(ctx context.Context, content *cms.Content, entry *cms.VersionEntry) error
	GetContent(ctx context.Context, id uuid.UUID) (*cms.Content, error)
	UpdateContent(ctx context.Context, content *cms.Content) error
	ListContents(ctx context.Context, filter ContentFilter) ([]*cms.Content, error)

	// InsertVersion appends an immutable version entry. It must enforce
	// uniqueness of (ContentID, VersionNumber) and fail with
	// ErrDuplicateVersion on collision.
	InsertVersion(ctx context.Context, entry *cms.VersionEntry) error
	GetVersionByNumber(ctx context.Context, contentID uuid.UUID, number int) (*cms.VersionEntry, error)
	GetVersionByTag(ctx context.Context, contentID uuid.UUID, tag string) (*cms.VersionEntry, error)
	LatestVersion(ctx context.Context, contentID uuid.UUID) (*cms.VersionEntry, error)
	ListVersions(ctx context.Context, contentID uuid.UUID) ([]*cms.VersionEntry, error)
	MaxVersionNumber(ctx context.Context, contentID uuid.UUID) (int, error)

	// TagVersion stamps an existing entry with a branch tag and the
	// branch-end protection flag. The snapshot itself stays immutable.
	TagVersion(ctx context.Context, versionID uuid.UUID, tag string, branchEnd bool) error
	DeleteVersion(ctx context.Context, versionID uuid.UUID) error

	Close() error
}
