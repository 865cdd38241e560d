package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepdesk/server/internal/store"
)

func TestSetAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.Set(ctx, "users/u1", map[string]interface{}{"fullName": "Asha"})
	require.NoError(t, err)

	doc, err := s.Get(ctx, "users/u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", doc.ID)
	assert.Equal(t, "Asha", doc.Fields["fullName"])
}

func TestGet_notFound(t *testing.T) {
	s := New()
	_, err := s.Get(context.Background(), "users/missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestServerTimestampResolution(t *testing.T) {
	s := New()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return fixed })

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "users/u1", map[string]interface{}{
		"createdAt": store.ServerTimestamp,
	}))

	doc, err := s.Get(ctx, "users/u1")
	require.NoError(t, err)
	assert.Equal(t, fixed, doc.Fields["createdAt"])
}

func TestUpdate_mergesAndErrorsWhenAbsent(t *testing.T) {
	s := New()
	ctx := context.Background()

	assert.ErrorIs(t, s.Update(ctx, "users/u1", map[string]interface{}{"city": "Pune"}), store.ErrNotFound)

	require.NoError(t, s.Set(ctx, "users/u1", map[string]interface{}{"fullName": "Asha", "city": "Delhi"}))
	require.NoError(t, s.Update(ctx, "users/u1", map[string]interface{}{"city": "Pune"}))

	doc, err := s.Get(ctx, "users/u1")
	require.NoError(t, err)
	assert.Equal(t, "Asha", doc.Fields["fullName"], "untouched field must survive merge")
	assert.Equal(t, "Pune", doc.Fields["city"])
}

func TestDelete_idempotent(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "users/u1", map[string]interface{}{"a": 1}))
	require.NoError(t, s.Delete(ctx, "users/u1"))
	require.NoError(t, s.Delete(ctx, "users/u1"), "repeated delete must succeed")

	_, err := s.Get(ctx, "users/u1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestQuery_orderAndFilter(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Set(ctx, "tasks/"+id, map[string]interface{}{
			"userId":    "u1",
			"createdAt": base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, s.Set(ctx, "tasks/x", map[string]interface{}{
		"userId":    "u2",
		"createdAt": base.Add(10 * time.Hour),
	}))

	docs, err := s.Query(ctx, "tasks",
		store.WhereEqual("userId", "u1"),
		store.OrderBy("createdAt", true),
	)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "c", docs[0].ID)
	assert.Equal(t, "b", docs[1].ID)
	assert.Equal(t, "a", docs[2].ID)
}

func TestSubscribe_snapshotPerChange(t *testing.T) {
	s := New()
	ctx := context.Background()

	var snapshots [][]store.Document
	cancel := s.Subscribe("tasks", []store.QueryOption{store.OrderBy("createdAt", true)},
		func(docs []store.Document) { snapshots = append(snapshots, docs) },
		func(err error) { t.Errorf("unexpected stream error: %v", err) },
	)
	defer cancel()

	require.Len(t, snapshots, 1, "initial snapshot expected")
	assert.Empty(t, snapshots[0])

	require.NoError(t, s.Set(ctx, "tasks/t1", map[string]interface{}{"createdAt": time.Now()}))
	require.Len(t, snapshots, 2)
	require.Len(t, snapshots[1], 1)
	assert.Equal(t, "t1", snapshots[1][0].ID)

	require.NoError(t, s.Delete(ctx, "tasks/t1"))
	require.Len(t, snapshots, 3)
	assert.Empty(t, snapshots[2])
}

func TestSubscribe_cancelStopsDeliveryAndIsIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()

	count := 0
	cancel := s.Subscribe("tasks", nil,
		func([]store.Document) { count++ },
		nil,
	)
	require.Equal(t, 1, count)

	cancel()
	cancel() // must be a no-op

	require.NoError(t, s.Set(ctx, "tasks/t1", map[string]interface{}{"a": 1}))
	assert.Equal(t, 1, count, "cancelled subscription must not receive changes")
}

func TestSubscribe_deleteOfAbsentDocDoesNotNotify(t *testing.T) {
	s := New()
	count := 0
	cancel := s.Subscribe("tasks", nil, func([]store.Document) { count++ }, nil)
	defer cancel()

	require.NoError(t, s.Delete(context.Background(), "tasks/never-existed"))
	assert.Equal(t, 1, count)
}
