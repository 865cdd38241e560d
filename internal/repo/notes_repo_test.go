package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prepdesk/server/internal/errcode"
	"github.com/prepdesk/server/internal/store/memstore"
)

func TestTitleFromFilename(t *testing.T) {
	cases := map[string]string{
		"indian-polity_notes.pdf": "Indian Polity Notes",
		"economy.pdf":             "Economy",
		"modern_history-1.pdf":    "Modern History 1",
		"geography":               "Geography",
		"économie-notes.pdf":      "Économie Notes",
		"हिंदी_notes.pdf":         "हिंदी Notes",
	}
	for in, want := range cases {
		if got := TitleFromFilename(in); got != want {
			t.Errorf("TitleFromFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetNote(t *testing.T) {
	s := memstore.New()
	r := NewNotesRepo(s, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "notes/n1", map[string]interface{}{
		"title": "Polity basics",
		"body":  "Articles 1-11",
	}))

	note, err := r.GetNote(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "n1", note.ID)
	assert.Equal(t, "Polity basics", note.Fields["title"])
}

func TestGetNote_notFound(t *testing.T) {
	r := NewNotesRepo(memstore.New(), zap.NewNop())

	_, err := r.GetNote(context.Background(), "missing")
	var dataErr *errcode.DataError
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, "not-found", dataErr.Code)
}

func TestListAllPDFs_emptyStore(t *testing.T) {
	r := NewNotesRepo(memstore.New(), zap.NewNop())

	pdfs, err := r.ListAllPDFs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pdfs)
}

func TestListAllPDFs_globalOrderAcrossSubjects(t *testing.T) {
	s := memstore.New()
	r := NewNotesRepo(s, zap.NewNop())
	ctx := context.Background()

	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)
	t3 := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC) // t1 < t3 < t2

	require.NoError(t, s.Set(ctx, "subjects/s1", map[string]interface{}{"name": "Polity"}))
	require.NoError(t, s.Set(ctx, "subjects/s2", map[string]interface{}{"name": "Economy"}))

	require.NoError(t, s.Set(ctx, "subjects/s1/pdfs/p1", map[string]interface{}{
		"filename": "indian-polity_notes.pdf", "url": "https://cdn/p1", "size": 1024, "uploadedAt": t1,
	}))
	require.NoError(t, s.Set(ctx, "subjects/s1/pdfs/p2", map[string]interface{}{
		"filename": "polity-2.pdf", "url": "https://cdn/p2", "size": 2048, "uploadedAt": t2,
	}))
	require.NoError(t, s.Set(ctx, "subjects/s2/pdfs/p3", map[string]interface{}{
		"filename": "economy.pdf", "url": "https://cdn/p3", "size": 512, "uploadedAt": t3,
	}))

	pdfs, err := r.ListAllPDFs(ctx)
	require.NoError(t, err)
	require.Len(t, pdfs, 3)

	assert.Equal(t, "p2", pdfs[0].ID)
	assert.Equal(t, "p3", pdfs[1].ID)
	assert.Equal(t, "p1", pdfs[2].ID)

	for i := 1; i < len(pdfs); i++ {
		assert.False(t, pdfs[i].CreatedAt.After(pdfs[i-1].CreatedAt),
			"collection must be ordered by created timestamp descending")
	}
}

func TestListAllPDFs_descriptorShape(t *testing.T) {
	s := memstore.New()
	r := NewNotesRepo(s, zap.NewNop())
	ctx := context.Background()

	uploaded := time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC)
	require.NoError(t, s.Set(ctx, "subjects/s1", map[string]interface{}{"name": "Polity"}))
	require.NoError(t, s.Set(ctx, "subjects/s1/pdfs/p1", map[string]interface{}{
		"filename":   "indian-polity_notes.pdf",
		"url":        "https://cdn/p1",
		"size":       4096,
		"uploadedAt": uploaded,
		"uploadedBy": "admin",
		"storageId":  "ext-42",
	}))

	pdfs, err := r.ListAllPDFs(ctx)
	require.NoError(t, err)
	require.Len(t, pdfs, 1)

	d := pdfs[0]
	assert.Equal(t, "indian-polity_notes.pdf", d.Name)
	assert.Equal(t, "Indian Polity Notes", d.Title)
	assert.Equal(t, "application/pdf", d.ContentType)
	assert.Equal(t, "Polity", d.SubjectName)
	assert.Equal(t, "s1", d.SubjectID)
	assert.Equal(t, int64(4096), d.Size)
	assert.Equal(t, uploaded, d.CreatedAt)
	assert.Equal(t, uploaded, d.UpdatedAt, "created and updated both equal upload time")
	assert.Equal(t, pdfBucketTag, d.Bucket)
	assert.Equal(t, "admin", d.Metadata["uploadedBy"])
	assert.Equal(t, "ext-42", d.Metadata["storageId"])
	assert.Contains(t, d.Description, "Polity")
}

func TestListAllPDFs_skipsCorruptRecords(t *testing.T) {
	s := memstore.New()
	r := NewNotesRepo(s, zap.NewNop())
	ctx := context.Background()

	good := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Set(ctx, "subjects/s1", map[string]interface{}{"name": "Polity"}))
	require.NoError(t, s.Set(ctx, "subjects/s1/pdfs/ok", map[string]interface{}{
		"filename": "ok.pdf", "uploadedAt": good,
	}))
	require.NoError(t, s.Set(ctx, "subjects/s1/pdfs/bad", map[string]interface{}{
		"url": "https://cdn/bad", // no filename, no timestamp
	}))

	pdfs, err := r.ListAllPDFs(ctx)
	require.NoError(t, err, "one corrupt record must not abort the listing")
	require.Len(t, pdfs, 1)
	assert.Equal(t, "ok", pdfs[0].ID)
}
