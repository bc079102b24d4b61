// Package memstore is an in-process docstore.Store. It serves the
// "memory" backend for offline use and backs the package tests.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/s0up4200/reelbox/docstore"
)

// Store keeps collections in memory, in insertion order
type Store struct {
	mu          sync.RWMutex
	collections map[string][]docstore.Document
	now         func() time.Time
}

// New creates an empty store
func New() *Store {
	return &Store{
		collections: make(map[string][]docstore.Document),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the timestamp source
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// List implements docstore.Store
func (s *Store) List(ctx context.Context, collection string, queries ...docstore.Query) ([]docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	docs := make([]docstore.Document, 0, len(s.collections[collection]))
	for _, d := range s.collections[collection] {
		docs = append(docs, d.Clone())
	}
	s.mu.RUnlock()

	return docstore.Apply(docs, queries...)
}

// Create implements docstore.Store
func (s *Store) Create(ctx context.Context, collection string, data map[string]any) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().Format(time.RFC3339Nano)
	doc := make(docstore.Document, len(data)+3)
	for k, v := range data {
		doc[k] = v
	}
	doc[docstore.FieldID] = uuid.NewString()
	doc[docstore.FieldCreatedAt] = now
	doc[docstore.FieldUpdatedAt] = now

	s.collections[collection] = append(s.collections[collection], doc)
	return doc.Clone(), nil
}

// Update implements docstore.Store
func (s *Store) Update(ctx context.Context, collection, id string, data map[string]any) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range s.collections[collection] {
		if doc.ID() != id {
			continue
		}
		for k, v := range data {
			doc[k] = v
		}
		doc[docstore.FieldUpdatedAt] = s.now().Format(time.RFC3339Nano)
		return doc.Clone(), nil
	}

	return nil, fmt.Errorf("%w: %s/%s", docstore.ErrNotFound, collection, id)
}

// Delete implements docstore.Store
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.collections[collection]
	idx := slices.IndexFunc(docs, func(d docstore.Document) bool { return d.ID() == id })
	if idx < 0 {
		return fmt.Errorf("%w: %s/%s", docstore.ErrNotFound, collection, id)
	}
	s.collections[collection] = slices.Delete(docs, idx, idx+1)
	return nil
}

// Len returns the number of documents in a collection
func (s *Store) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

var _ docstore.Store = (*Store)(nil)
