// Package search maintains a full-text index of content documents. The
// index is derivative state: it is rebuilt from the document store, and
// indexing failures never fail the mutation that triggered them.
package search

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/google/uuid"

	"github.com/foliocms/folio/core/cms"
)

// ErrIndexClosed is returned by operations on a closed index.
var ErrIndexClosed = errors.New("search index is closed")

// Document is the indexed projection of a content.
type Document struct {
	CollectionID string `json:"collection_id"`
	Title        string `json:"title"`
	Slug         string `json:"slug"`
	Status       string `json:"status"`
	Version      int    `json:"version"`
}

// Hit is one search result.
type Hit struct {
	ContentID uuid.UUID
	Score     float64
	Title     string
	Slug      string
}

// Index wraps a bleve index over content documents. Safe for concurrent
// use.
type Index struct {
	mu     sync.RWMutex
	index  bleve.Index
	closed bool
}

// Open opens (or creates) the index at path. An empty path selects an
// in-memory index.
func Open(path string) (*Index, error) {
	m := contentMapping()

	if path == "" {
		index, err := bleve.NewMemOnly(m)
		if err != nil {
			return nil, err
		}
		return &Index{index: index}, nil
	}

	index, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) || errors.Is(err, os.ErrNotExist) {
		index, err = bleve.New(path, m)
	}
	if err != nil {
		return nil, err
	}
	return &Index{index: index}, nil
}

func contentMapping() *mapping.IndexMappingImpl {
	docMapping := bleve.NewDocumentMapping()

	textField := bleve.NewTextFieldMapping()
	docMapping.AddFieldMappingsAt("title", textField)
	docMapping.AddFieldMappingsAt("slug", textField)

	keywordField := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("status", keywordField)
	docMapping.AddFieldMappingsAt("collection_id", keywordField)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = docMapping
	return m
}

// IndexContent adds or updates the content's projection.
func (i *Index) IndexContent(ctx context.Context, content *cms.Content) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return ErrIndexClosed
	}
	return i.index.Index(content.ID.String(), Document{
		CollectionID: content.CollectionID.String(),
		Title:        content.Title,
		Slug:         content.Slug,
		Status:       string(content.Status),
		Version:      content.CurrentVersion,
	})
}

// RemoveContent drops the content from the index.
func (i *Index) RemoveContent(ctx context.Context, id uuid.UUID) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return ErrIndexClosed
	}
	return i.index.Delete(id.String())
}

// Search runs a query-string search and returns up to limit hits.
func (i *Index) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return nil, ErrIndexClosed
	}
	if limit <= 0 {
		limit = 10
	}

	request := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(query), limit, 0, false)
	request.Fields = []string{"title", "slug"}

	result, err := i.index.SearchInContext(ctx, request)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, match := range result.Hits {
		id, err := uuid.Parse(match.ID)
		if err != nil {
			continue
		}
		hit := Hit{ContentID: id, Score: match.Score}
		if title, ok := match.Fields["title"].(string); ok {
			hit.Title = title
		}
		if slug, ok := match.Fields["slug"].(string); ok {
			hit.Slug = slug
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Count returns the number of indexed documents.
func (i *Index) Count() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return 0, ErrIndexClosed
	}
	return i.index.DocCount()
}

// Close releases the index.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil
	}
	i.closed = true
	return i.index.Close()
}
