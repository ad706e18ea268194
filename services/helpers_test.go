package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/CANDRY15/flashprint/model"
	"github.com/CANDRY15/flashprint/services/background"
	"github.com/CANDRY15/flashprint/services/storage"
	"github.com/CANDRY15/flashprint/utils/logger"
	"github.com/CANDRY15/flashprint/utils/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeStore struct {
	mu        sync.Mutex
	uploads   []string
	deletes   []string
	deleteErr error
	uploadErr error
}

func (f *fakeStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads = append(f.uploads, key)
	return "https://cdn.flashprint.test/" + key, nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, key)
	return f.deleteErr
}

func (f *fakeStore) KeyFromURL(raw string) (string, bool) {
	return storage.KeyFromPublicURL(raw, "syllabus-files", "https://cdn.flashprint.test")
}

func (f *fakeStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads) + len(f.deletes)
}

// countStatements counts every statement gorm issues on db from now on
func countStatements(t *testing.T, db *gorm.DB) *int64 {
	t.Helper()
	var n int64
	inc := func(*gorm.DB) { atomic.AddInt64(&n, 1) }

	cb := db.Callback()
	require.NoError(t, cb.Create().Before("gorm:create").Register("test:count_create", inc))
	require.NoError(t, cb.Query().Before("gorm:query").Register("test:count_query", inc))
	require.NoError(t, cb.Update().Before("gorm:update").Register("test:count_update", inc))
	require.NoError(t, cb.Delete().Before("gorm:delete").Register("test:count_delete", inc))
	require.NoError(t, cb.Row().Before("gorm:row").Register("test:count_row", inc))
	require.NoError(t, cb.Raw().Before("gorm:raw").Register("test:count_raw", inc))
	return &n
}

type syllabusFixture struct {
	db      *gorm.DB
	store   *fakeStore
	svc     *SyllabusService
	links   *LinkBuilder
	faculty model.Faculty
}

func newSyllabusFixture(t *testing.T) *syllabusFixture {
	t.Helper()
	db := testutil.NewDB(t)
	store := &fakeStore{}
	log := logger.NewNop()
	runner := background.Inline{Log: log}
	links := NewLinkBuilder("https://flashprint.test", "/functions/v1/syllabus-file", "2430815050397")

	faculty := model.Faculty{Name: "Ingénieurs", Slug: "ingenieurs"}
	require.NoError(t, db.Create(&faculty).Error)

	svc := NewSyllabusService(db, SyllabusDeps{
		Files:  store,
		Slugs:  NewSlugService(db),
		Audit:  NewAuditService(db, runner),
		Links:  links,
		Runner: runner,
		Log:    log,
	})
	return &syllabusFixture{db: db, store: store, svc: svc, links: links, faculty: faculty}
}

func pdfUpload(name string, pages int) *FileUpload {
	data := testutil.MinimalPDF(pages)
	return &FileUpload{
		Filename:    name,
		ContentType: "application/pdf",
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func unopenable(t *testing.T) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		t.Error("upload body must not be read")
		return nil, errors.New("unexpected open")
	}
}
