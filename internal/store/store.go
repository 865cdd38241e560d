// Package store defines the document store contract the repositories are
// written against. Documents live at hierarchical paths such as
// "users/abc" or "subjects/s1/pdfs/p1"; the last path segment is the
// document id and everything before it is the collection.
package store

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by Get and Update when no document exists at the
// requested path.
var ErrNotFound = errors.New("document not found")

// serverTimestamp is the sentinel type behind ServerTimestamp.
type serverTimestamp struct{}

// ServerTimestamp is a sentinel field value. Implementations replace it with
// the server clock at write commit.
var ServerTimestamp = serverTimestamp{}

// Document is a stored record addressed by path.
type Document struct {
	ID     string
	Path   string
	Fields map[string]interface{}
}

// Query selects and orders documents within one collection.
type Query struct {
	Collection string
	OrderField string
	Descending bool
	EqField    string
	EqValue    interface{}
}

// QueryOption mutates a Query.
type QueryOption func(*Query)

// OrderBy orders results by the named field.
func OrderBy(field string, descending bool) QueryOption {
	return func(q *Query) {
		q.OrderField = field
		q.Descending = descending
	}
}

// WhereEqual filters results to documents whose field equals value.
func WhereEqual(field string, value interface{}) QueryOption {
	return func(q *Query) {
		q.EqField = field
		q.EqValue = value
	}
}

// ChangeFunc receives the full current ordered snapshot of a subscribed
// query after every matching change.
type ChangeFunc func(docs []Document)

// ErrorFunc receives subscription stream errors. The subscription does not
// auto-retry after an error.
type ErrorFunc func(err error)

// DocumentStore is the persistence contract. All methods are safe for
// concurrent use. Write methods honor the ServerTimestamp sentinel.
type DocumentStore interface {
	// Get returns the document at path, or ErrNotFound.
	Get(ctx context.Context, path string) (Document, error)

	// Set creates or fully replaces the document at path.
	Set(ctx context.Context, path string, fields map[string]interface{}) error

	// Update merges partial fields into the document at path.
	// Returns ErrNotFound when the document does not exist.
	Update(ctx context.Context, path string, fields map[string]interface{}) error

	// Delete removes the document at path. Deleting an absent document
	// succeeds.
	Delete(ctx context.Context, path string) error

	// Query returns the documents in a collection matching the options.
	Query(ctx context.Context, collection string, opts ...QueryOption) ([]Document, error)

	// Subscribe registers a live query. onChange is invoked with the full
	// current snapshot immediately and after every matching change, until
	// the returned cancel function is called. Cancel is idempotent.
	Subscribe(collection string, opts []QueryOption, onChange ChangeFunc, onError ErrorFunc) (cancel func())
}

// SplitPath returns the collection and document id for a path.
// "subjects/s1/pdfs/p1" -> ("subjects/s1/pdfs", "p1").
func SplitPath(path string) (collection, id string) {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}

// BuildQuery applies options to a base query for a collection.
func BuildQuery(collection string, opts ...QueryOption) Query {
	q := Query{Collection: collection}
	for _, opt := range opts {
		opt(&q)
	}
	return q
}

// ResolveTimestamps replaces ServerTimestamp sentinels in fields with now.
// The input map is modified in place and returned.
func ResolveTimestamps(fields map[string]interface{}, now time.Time) map[string]interface{} {
	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			fields[k] = now
		}
	}
	return fields
}
