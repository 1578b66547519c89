package docstore

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store used by tests and by the development
// store driver. All operations are safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]interface{}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]map[string]interface{}),
	}
}

// Get returns the fields of the document at path, or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, path string) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, ok := s.docs[path]
	if !ok {
		return nil, ErrNotFound
	}
	return copyFields(fields), nil
}

// List returns every document directly under the collection path.
func (s *MemoryStore) List(ctx context.Context, collection string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []Document
	for path, fields := range s.docs {
		parent, err := CollectionOf(path)
		if err != nil {
			continue
		}
		if parent == collection {
			docs = append(docs, Document{Path: path, Fields: copyFields(fields)})
		}
	}
	return docs, nil
}

// Set writes the document at path.
func (s *MemoryStore) Set(ctx context.Context, path string, fields map[string]interface{}, merge bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := CollectionOf(path); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.apply(path, fields, merge)
	return nil
}

// Delete removes the document at path.
func (s *MemoryStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs, path)
	return nil
}

// Batch returns a new write batch bound to this store.
func (s *MemoryStore) Batch() Batch {
	return &memoryBatch{store: s}
}

// Len reports the number of stored documents. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *MemoryStore) apply(path string, fields map[string]interface{}, merge bool) {
	if merge {
		existing, ok := s.docs[path]
		if ok {
			merged := copyFields(existing)
			for k, v := range fields {
				merged[k] = v
			}
			s.docs[path] = merged
			return
		}
	}
	s.docs[path] = copyFields(fields)
}

type batchOp struct {
	path   string
	fields map[string]interface{}
	merge  bool
	delete bool
}

type memoryBatch struct {
	store *MemoryStore
	ops   []batchOp
}

func (b *memoryBatch) Set(path string, fields map[string]interface{}, merge bool) {
	b.ops = append(b.ops, batchOp{path: path, fields: copyFields(fields), merge: merge})
}

func (b *memoryBatch) Delete(path string) {
	b.ops = append(b.ops, batchOp{path: path, delete: true})
}

func (b *memoryBatch) Len() int {
	return len(b.ops)
}

// Commit applies all accumulated operations under one lock acquisition so a
// concurrent reader never observes a half-applied batch.
func (b *memoryBatch) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(b.ops) > MaxBatchOps {
		return ErrBatchTooLarge
	}
	for _, op := range b.ops {
		if op.delete {
			continue
		}
		if _, err := CollectionOf(op.path); err != nil {
			return err
		}
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	for _, op := range b.ops {
		if op.delete {
			delete(b.store.docs, op.path)
			continue
		}
		b.store.apply(op.path, op.fields, op.merge)
	}
	b.ops = nil
	return nil
}

func copyFields(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
