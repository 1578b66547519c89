// Package docstore defines the narrow document-store interface the
// application writes against. Documents live at slash-separated paths; the
// parent of a document path is its collection. Writes can be grouped into a
// bounded batch that commits atomically or not at all.
package docstore

import (
	"context"
	"errors"
	"strings"
)

// MaxBatchOps is the maximum number of set/delete operations a single batch
// may carry. Commit rejects larger batches; callers must chunk.
const MaxBatchOps = 500

var (
	// ErrNotFound is returned by Get for a missing document.
	ErrNotFound = errors.New("document not found")
	// ErrBatchTooLarge is returned by Commit when a batch exceeds MaxBatchOps.
	ErrBatchTooLarge = errors.New("batch exceeds maximum operation count")
	// ErrInvalidPath is returned for paths without a collection segment.
	ErrInvalidPath = errors.New("invalid document path")
)

// Document is a stored document together with its full path.
type Document struct {
	Path   string
	Fields map[string]interface{}
}

// ID returns the last path segment of the document.
func (d Document) ID() string {
	if i := strings.LastIndex(d.Path, "/"); i >= 0 {
		return d.Path[i+1:]
	}
	return d.Path
}

// Store is the document store consumed by the application.
type Store interface {
	// Get returns the fields of the document at path, or ErrNotFound.
	Get(ctx context.Context, path string) (map[string]interface{}, error)
	// List returns every document directly under the collection path.
	List(ctx context.Context, collection string) ([]Document, error)
	// Set writes the document at path. With merge, existing fields not named
	// in fields are preserved; without, the document is replaced.
	Set(ctx context.Context, path string, fields map[string]interface{}, merge bool) error
	// Delete removes the document at path. Deleting a missing document is not
	// an error.
	Delete(ctx context.Context, path string) error
	// Batch returns a new write batch bound to this store.
	Batch() Batch
}

// Batch accumulates writes that Commit applies together or not at all.
type Batch interface {
	Set(path string, fields map[string]interface{}, merge bool)
	Delete(path string)
	// Len reports the number of accumulated operations.
	Len() int
	Commit(ctx context.Context) error
}

// CollectionOf returns the parent collection of a document path.
func CollectionOf(path string) (string, error) {
	i := strings.LastIndex(path, "/")
	if i <= 0 || i == len(path)-1 {
		return "", ErrInvalidPath
	}
	return path[:i], nil
}
