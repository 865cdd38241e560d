// Package pgstore is the Postgres-backed DocumentStore. Documents are rows
// in a single JSONB table keyed by path; live queries are served by an
// in-process subscriber registry notified after every committed write, which
// is sufficient because all writes in this system go through this process.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
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

// Store persists documents in the documents table.
type Store struct {
	db *sql.DB

	mu     sync.Mutex
	subs   map[int]*subscription
	nextID int
}

// New creates a Postgres document store over an open connection pool.
func New(db *sql.DB) *Store {
	return &Store{db: db, subs: make(map[int]*subscription)}
}

// Get returns the document at path, or store.ErrNotFound.
func (s *Store) Get(ctx context.Context, path string) (store.Document, error) {
	_, id := store.SplitPath(path)

	var raw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT fields FROM documents WHERE path = $1
	`, path).Scan(&raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return store.Document{}, store.ErrNotFound
		}
		return store.Document{}, fmt.Errorf("query document: %w", err)
	}

	fields, err := decodeFields(raw)
	if err != nil {
		return store.Document{}, fmt.Errorf("decode document %s: %w", path, err)
	}
	return store.Document{ID: id, Path: path, Fields: fields}, nil
}

// Set creates or fully replaces the document at path.
func (s *Store) Set(ctx context.Context, path string, fields map[string]interface{}) error {
	collection, _ := store.SplitPath(path)

	raw, err := encodeFields(store.ResolveTimestamps(cloneFields(fields), time.Now()))
	if err != nil {
		return fmt.Errorf("encode document %s: %w", path, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (path, collection, fields)
		VALUES ($1, $2, $3)
		ON CONFLICT (path) DO UPDATE SET fields = EXCLUDED.fields, updated_at = now()
	`, path, collection, raw)
	if err != nil {
		return fmt.Errorf("set document: %w", err)
	}

	s.notifyCollection(ctx, collection)
	return nil
}

// Update merges partial fields into the document at path.
func (s *Store) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	collection, _ := store.SplitPath(path)

	raw, err := encodeFields(store.ResolveTimestamps(cloneFields(fields), time.Now()))
	if err != nil {
		return fmt.Errorf("encode update %s: %w", path, err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE documents SET fields = fields || $2::jsonb, updated_at = now()
		WHERE path = $1
	`, path, raw)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return store.ErrNotFound
	}

	s.notifyCollection(ctx, collection)
	return nil
}

// Delete removes the document at path. Absent documents are a no-op.
func (s *Store) Delete(ctx context.Context, path string) error {
	collection, _ := store.SplitPath(path)

	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE path = $1`, path)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, _ := result.RowsAffected(); n > 0 {
		s.notifyCollection(ctx, collection)
	}
	return nil
}

// Query returns the documents in a collection matching the options.
// Ordering happens on the JSON text representation; timestamps are stored
// as UTC strings with fixed-width fractional seconds so lexicographic and
// chronological order coincide.
func (s *Store) Query(ctx context.Context, collection string, opts ...store.QueryOption) ([]store.Document, error) {
	return s.runQuery(ctx, store.BuildQuery(collection, opts...))
}

// Subscribe registers a live query against the in-process change feed.
// The current snapshot is delivered immediately. Cancel is idempotent.
func (s *Store) Subscribe(collection string, opts []store.QueryOption, onChange store.ChangeFunc, onError store.ErrorFunc) func() {
	q := store.BuildQuery(collection, opts...)

	s.mu.Lock()
	s.nextID++
	sub := &subscription{id: s.nextID, query: q, onChange: onChange, onError: onError}
	s.subs[sub.id] = sub
	s.mu.Unlock()

	docs, err := s.runQuery(context.Background(), q)
	if err != nil {
		if onError != nil {
			onError(err)
		}
	} else {
		onChange(docs)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, sub.id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) notifyCollection(ctx context.Context, collection string) {
	s.mu.Lock()
	var matched []*subscription
	for _, sub := range s.subs {
		if sub.query.Collection == collection {
			matched = append(matched, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range matched {
		docs, err := s.runQuery(ctx, sub.query)
		if err != nil {
			if sub.onError != nil {
				sub.onError(err)
			}
			continue
		}
		sub.onChange(docs)
	}
}

func (s *Store) runQuery(ctx context.Context, q store.Query) ([]store.Document, error) {
	query := `SELECT path, fields FROM documents WHERE collection = $1`
	args := []interface{}{q.Collection}

	if q.EqField != "" {
		query += ` AND fields->>$2 = $3`
		args = append(args, q.EqField, fmt.Sprintf("%v", q.EqValue))
	}
	if q.OrderField != "" {
		dir := "ASC"
		if q.Descending {
			dir = "DESC"
		}
		query += fmt.Sprintf(` ORDER BY fields->>$%d %s`, len(args)+1, dir)
		args = append(args, q.OrderField)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", q.Collection, err)
	}
	defer rows.Close()

	docs := make([]store.Document, 0)
	for rows.Next() {
		var path string
		var raw []byte
		if err := rows.Scan(&path, &raw); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		fields, err := decodeFields(raw)
		if err != nil {
			return nil, fmt.Errorf("decode document %s: %w", path, err)
		}
		_, id := store.SplitPath(path)
		docs = append(docs, store.Document{ID: id, Path: path, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collection %s: %w", q.Collection, err)
	}
	return docs, nil
}

// timeWireFormat is RFC 3339 with a fixed-width fraction. RFC3339Nano
// trims trailing zeros, which makes "00:00:00Z" sort after "00:00:00.5Z"
// as text; the padded form keeps ORDER BY fields->>key chronological.
const timeWireFormat = "2006-01-02T15:04:05.000000000Z"

// encodeFields marshals fields to JSONB, rendering time values as UTC
// fixed-width strings so they order correctly and survive the round trip.
func encodeFields(fields map[string]interface{}) ([]byte, error) {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if t, ok := v.(time.Time); ok {
			out[k] = t.UTC().Format(timeWireFormat)
			continue
		}
		out[k] = v
	}
	return json.Marshal(out)
}

// decodeFields unmarshals JSONB and restores RFC 3339 strings to time
// values. Trimmed fractional seconds are accepted alongside the padded
// form.
func decodeFields(raw []byte) (map[string]interface{}, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		str, ok := v.(string)
		if !ok {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, str); err == nil {
			fields[k] = t
		}
	}
	return fields, nil
}

func cloneFields(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
