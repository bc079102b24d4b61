// Package storetest provides docstore.Store wrappers for tests: call
// counting, injected failures and capped pages.
package storetest

import (
	"context"
	"slices"
	"sync"

	"github.com/s0up4200/reelbox/docstore"
)

// Operation names used by Faulty
const (
	OpList   = "list"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Faulty wraps a store, counts calls and fails operations on demand
type Faulty struct {
	Store docstore.Store

	mu       sync.Mutex
	failures map[string]error
	calls    map[string]int
}

// NewFaulty wraps store
func NewFaulty(store docstore.Store) *Faulty {
	return &Faulty{
		Store:    store,
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

// Fail makes every subsequent call of op return err. A nil err clears it.
func (f *Faulty) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, op)
		return
	}
	f.failures[op] = err
}

// Calls returns how many times op was invoked, failed calls included
func (f *Faulty) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *Faulty) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.failures[op]
}

// List implements docstore.Store
func (f *Faulty) List(ctx context.Context, collection string, queries ...docstore.Query) ([]docstore.Document, error) {
	if err := f.record(OpList); err != nil {
		return nil, err
	}
	return f.Store.List(ctx, collection, queries...)
}

// Create implements docstore.Store
func (f *Faulty) Create(ctx context.Context, collection string, data map[string]any) (docstore.Document, error) {
	if err := f.record(OpCreate); err != nil {
		return nil, err
	}
	return f.Store.Create(ctx, collection, data)
}

// Update implements docstore.Store
func (f *Faulty) Update(ctx context.Context, collection, id string, data map[string]any) (docstore.Document, error) {
	if err := f.record(OpUpdate); err != nil {
		return nil, err
	}
	return f.Store.Update(ctx, collection, id, data)
}

// Delete implements docstore.Store
func (f *Faulty) Delete(ctx context.Context, collection, id string) error {
	if err := f.record(OpDelete); err != nil {
		return err
	}
	return f.Store.Delete(ctx, collection, id)
}

var _ docstore.Store = (*Faulty)(nil)

// Paged wraps a store and truncates every List response to MaxPage
// documents, the way hosted stores cap their pages
type Paged struct {
	docstore.Store
	MaxPage int

	mu      sync.Mutex
	queries [][]docstore.Query
}

// NewPaged wraps store with a page cap of maxPage
func NewPaged(store docstore.Store, maxPage int) *Paged {
	return &Paged{Store: store, MaxPage: maxPage}
}

// List implements docstore.Store
func (p *Paged) List(ctx context.Context, collection string, queries ...docstore.Query) ([]docstore.Document, error) {
	p.mu.Lock()
	p.queries = append(p.queries, queries)
	p.mu.Unlock()

	docs, err := p.Store.List(ctx, collection, queries...)
	if err != nil {
		return nil, err
	}
	if len(docs) > p.MaxPage {
		docs = docs[:p.MaxPage]
	}
	return docs, nil
}

// Requests returns the queries of every List call so far
func (p *Paged) Requests() [][]docstore.Query {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.queries)
}

var _ docstore.Store = (*Paged)(nil)
