// Package memstore is an in-memory DocumentStore. It backs the test suite
// and DATABASE_URL-less development runs, and implements the same live
// query semantics as the Postgres store: every subscription receives the
// full current ordered snapshot after each matching change.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prepdesk/server/internal/store"
)

type subscription struct {
	id       int
	query    store.Query
	onChange store.ChangeFunc
	onError  store.ErrorFunc
}

// Store is a mutex-guarded in-memory document store.
type Store struct {
	mu     sync.RWMutex
	data   map[string]map[string]map[string]interface{} // collection -> id -> fields
	subs   map[int]*subscription
	nextID int

	// now is swappable for tests that need deterministic timestamps.
	now func() time.Time
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		data: make(map[string]map[string]map[string]interface{}),
		subs: make(map[int]*subscription),
		now:  time.Now,
	}
}

// SetClock overrides the server clock used for timestamp sentinels.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Get returns the document at path, or store.ErrNotFound.
func (s *Store) Get(ctx context.Context, path string) (store.Document, error) {
	collection, id := store.SplitPath(path)

	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, ok := s.data[collection][id]
	if !ok {
		return store.Document{}, store.ErrNotFound
	}
	return store.Document{ID: id, Path: path, Fields: cloneFields(fields)}, nil
}

// Set creates or fully replaces the document at path.
func (s *Store) Set(ctx context.Context, path string, fields map[string]interface{}) error {
	collection, id := store.SplitPath(path)

	s.mu.Lock()
	resolved := store.ResolveTimestamps(cloneFields(fields), s.now())
	if s.data[collection] == nil {
		s.data[collection] = make(map[string]map[string]interface{})
	}
	s.data[collection][id] = resolved
	subs := s.matchingSubs(collection)
	s.mu.Unlock()

	s.notify(subs)
	return nil
}

// Update merges partial fields into an existing document.
func (s *Store) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	collection, id := store.SplitPath(path)

	s.mu.Lock()
	existing, ok := s.data[collection][id]
	if !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	resolved := store.ResolveTimestamps(cloneFields(fields), s.now())
	for k, v := range resolved {
		existing[k] = v
	}
	subs := s.matchingSubs(collection)
	s.mu.Unlock()

	s.notify(subs)
	return nil
}

// Delete removes the document at path. Absent documents are a no-op.
func (s *Store) Delete(ctx context.Context, path string) error {
	collection, id := store.SplitPath(path)

	s.mu.Lock()
	_, existed := s.data[collection][id]
	if existed {
		delete(s.data[collection], id)
	}
	var subs []*subscription
	if existed {
		subs = s.matchingSubs(collection)
	}
	s.mu.Unlock()

	s.notify(subs)
	return nil
}

// Query returns the documents in a collection matching the options.
func (s *Store) Query(ctx context.Context, collection string, opts ...store.QueryOption) ([]store.Document, error) {
	q := store.BuildQuery(collection, opts...)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runQuery(q), nil
}

// Subscribe registers a live query. The current snapshot is delivered
// immediately, then again after every matching change. Cancel is idempotent.
func (s *Store) Subscribe(collection string, opts []store.QueryOption, onChange store.ChangeFunc, onError store.ErrorFunc) func() {
	q := store.BuildQuery(collection, opts...)

	s.mu.Lock()
	s.nextID++
	sub := &subscription{id: s.nextID, query: q, onChange: onChange, onError: onError}
	s.subs[sub.id] = sub
	snapshot := s.runQuery(q)
	s.mu.Unlock()

	onChange(snapshot)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, sub.id)
			s.mu.Unlock()
		})
	}
}

// matchingSubs must be called with the lock held.
func (s *Store) matchingSubs(collection string) []*subscription {
	var out []*subscription
	for _, sub := range s.subs {
		if sub.query.Collection == collection {
			out = append(out, sub)
		}
	}
	return out
}

// notify delivers fresh snapshots outside the write path's critical section.
func (s *Store) notify(subs []*subscription) {
	for _, sub := range subs {
		s.mu.RLock()
		// Skip subscriptions cancelled between collection and delivery.
		_, live := s.subs[sub.id]
		var snapshot []store.Document
		if live {
			snapshot = s.runQuery(sub.query)
		}
		s.mu.RUnlock()
		if live {
			sub.onChange(snapshot)
		}
	}
}

// runQuery must be called with at least a read lock held.
func (s *Store) runQuery(q store.Query) []store.Document {
	docs := make([]store.Document, 0)
	for id, fields := range s.data[q.Collection] {
		if q.EqField != "" && fields[q.EqField] != q.EqValue {
			continue
		}
		docs = append(docs, store.Document{
			ID:     id,
			Path:   q.Collection + "/" + id,
			Fields: cloneFields(fields),
		})
	}
	// Deterministic order for equal keys.
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	if q.OrderField != "" {
		sort.SliceStable(docs, func(i, j int) bool {
			less := lessValue(docs[i].Fields[q.OrderField], docs[j].Fields[q.OrderField])
			if q.Descending {
				return lessValue(docs[j].Fields[q.OrderField], docs[i].Fields[q.OrderField])
			}
			return less
		})
	}
	return docs
}

func lessValue(a, b interface{}) bool {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Before(bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return av < bv
		}
	case int:
		if bv, ok := b.(int); ok {
			return av < bv
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return av < bv
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return av < bv
		}
	}
	return false
}

func cloneFields(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
