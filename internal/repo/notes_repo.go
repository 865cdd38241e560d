package repo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/prepdesk/server/internal/errcode"
	"github.com/prepdesk/server/internal/model"
	"github.com/prepdesk/server/internal/store"
)

const (
	noteCollection    = "notes"
	subjectCollection = "subjects"

	pdfContentType = "application/pdf"
	pdfBucketTag   = "study-materials"
)

// NotesRepo defines read access to notes and the aggregated PDF catalogue
type NotesRepo interface {
	GetNote(ctx context.Context, noteID string) (model.Note, error)
	ListAllPDFs(ctx context.Context) ([]model.PDFDescriptor, error)
}

type notesRepo struct {
	store store.DocumentStore
	log   *zap.Logger
}

// NewNotesRepo creates a new NotesRepo instance
func NewNotesRepo(s store.DocumentStore, log *zap.Logger) NotesRepo {
	return &notesRepo{store: s, log: log}
}

// GetNote fetches a single note and merges its id into the record.
func (r *notesRepo) GetNote(ctx context.Context, noteID string) (model.Note, error) {
	doc, err := r.store.Get(ctx, noteCollection+"/"+noteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Note{}, errcode.NewDataError("not-found", err.Error())
		}
		return model.Note{}, errcode.NewDataError("unavailable", err.Error())
	}
	return model.Note{ID: doc.ID, Fields: doc.Fields}, nil
}

// ListAllPDFs walks every subject, collects its pdf sub-collection ordered
// by upload time descending, and re-sorts the merged result globally by
// created timestamp descending. A corrupt pdf record is logged and skipped
// so one bad document cannot hide the rest; zero subjects or zero pdfs per
// subject yield an empty collection, not an error.
func (r *notesRepo) ListAllPDFs(ctx context.Context) ([]model.PDFDescriptor, error) {
	subjects, err := r.store.Query(ctx, subjectCollection)
	if err != nil {
		return nil, errcode.NewDataError("unavailable", err.Error())
	}

	all := make([]model.PDFDescriptor, 0)
	for _, subject := range subjects {
		subjectName, _ := subject.Fields["name"].(string)

		pdfs, err := r.store.Query(ctx, subjectCollection+"/"+subject.ID+"/pdfs",
			store.OrderBy("uploadedAt", true))
		if err != nil {
			r.log.Warn("skipping subject: pdf listing failed",
				zap.String("subject", subject.ID), zap.Error(err))
			continue
		}

		for _, doc := range pdfs {
			descriptor, err := pdfDescriptorFromDoc(doc, subject.ID, subjectName)
			if err != nil {
				r.log.Warn("skipping corrupt pdf record",
					zap.String("subject", subject.ID),
					zap.String("pdf", doc.ID),
					zap.Error(err))
				continue
			}
			all = append(all, descriptor)
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all, nil
}

// pdfDescriptorFromDoc joins one pdf document with its subject into a
// derived descriptor.
func pdfDescriptorFromDoc(doc store.Document, subjectID, subjectName string) (model.PDFDescriptor, error) {
	filename, ok := doc.Fields["filename"].(string)
	if !ok || filename == "" {
		return model.PDFDescriptor{}, fmt.Errorf("pdf %s: missing filename", doc.ID)
	}
	uploadedAt, ok := doc.Fields["uploadedAt"].(time.Time)
	if !ok {
		return model.PDFDescriptor{}, fmt.Errorf("pdf %s: missing upload timestamp", doc.ID)
	}

	url, _ := doc.Fields["url"].(string)
	uploadedBy, _ := doc.Fields["uploadedBy"].(string)
	externalID, _ := doc.Fields["storageId"].(string)

	var size int64
	switch v := doc.Fields["size"].(type) {
	case int64:
		size = v
	case int:
		size = int64(v)
	case float64:
		size = int64(v)
	}

	title := TitleFromFilename(filename)

	return model.PDFDescriptor{
		ID:          doc.ID,
		Name:        filename,
		Title:       title,
		URL:         url,
		Size:        size,
		CreatedAt:   uploadedAt,
		UpdatedAt:   uploadedAt,
		ContentType: pdfContentType,
		SubjectName: subjectName,
		SubjectID:   subjectID,
		Description: fmt.Sprintf("%s - study material for %s", title, subjectName),
		Bucket:      pdfBucketTag,
		Metadata: map[string]string{
			"uploadedBy": uploadedBy,
			"storageId":  externalID,
		},
	}, nil
}

// TitleFromFilename derives a display title: extension stripped, separators
// replaced by spaces, each word capitalized.
// "indian-polity_notes.pdf" -> "Indian Polity Notes".
func TitleFromFilename(filename string) string {
	base := filename
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	base = strings.ReplaceAll(base, "-", " ")
	base = strings.ReplaceAll(base, "_", " ")

	words := strings.Fields(base)
	for i, w := range words {
		// Capitalize the first rune, not the first byte.
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
