package importer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"bookvault/pkg/domain"
	"bookvault/pkg/store"
)

func newTestImporter(t *testing.T) (*Importer, *store.MemoryStore, *store.RedisUploadStore) {
	t.Helper()
	redis := miniredis.RunT(t)
	jobs, err := store.NewRedisUploadStore(redis.Addr(), "")
	if err != nil {
		t.Fatalf("new upload store: %v", err)
	}
	st := store.NewMemoryStore()
	return New(st, jobs), st, jobs
}

func writeTempCSV(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job_books.csv")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func mustGetJob(t *testing.T, jobs *store.RedisUploadStore, id string) domain.UploadJob {
	t.Helper()
	job, ok, err := jobs.Get(id)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if !ok {
		t.Fatalf("job %s not found", id)
	}
	return job
}

func TestImporterValidFile(t *testing.T) {
	imp, st, jobs := newTestImporter(t)
	path := writeTempCSV(t, strings.Join([]string{
		"title,author,price,publication_date",
		"The Go Programming Language,Alan Donovan,34.99,2015-10-26",
		"Learning Go,Jon Bodner,29.50,2021-03-02",
	}, "\n"))

	imp.Run(path, "job-1", "user-1")

	job := mustGetJob(t, jobs, "job-1")
	if job.Status != domain.UploadSuccess {
		t.Fatalf("status = %s, want %s (errors: %v)", job.Status, domain.UploadSuccess, job.Errors)
	}
	if len(job.Errors) != 0 {
		t.Fatalf("expected no errors, got %v", job.Errors)
	}
	if job.UserID != "user-1" {
		t.Fatalf("job user = %q, want user-1", job.UserID)
	}
	if _, total, _ := st.SearchBooks("", 0, 10); total != 2 {
		t.Fatalf("inserted %d books, want 2", total)
	}
	book, ok, _ := st.GetBookByTitle("Learning Go")
	if !ok {
		t.Fatalf("expected Learning Go to be inserted")
	}
	if book.Price != 29.50 || book.PublicationDate.Format("2006-01-02") != "2021-03-02" {
		t.Fatalf("unexpected book fields: %+v", book)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("temp file should be removed, stat err = %v", err)
	}
}

func TestImporterSkipsInvalidRows(t *testing.T) {
	imp, st, jobs := newTestImporter(t)
	existing := domain.Book{
		ID:              "existing",
		Title:           "Already Here",
		Author:          "Someone",
		Price:           10,
		PublicationDate: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := st.CreateBook(existing); err != nil {
		t.Fatalf("seed book: %v", err)
	}
	path := writeTempCSV(t, strings.Join([]string{
		"title,author,price,publication_date",
		",No Title,5.00,2020-01-01",
		"Good Book,Jane Roe,12.00,2020-06-15",
		"Good Book,Jane Roe,12.00,2020-06-15",
		"Already Here,Someone,10.00,2000-01-01",
		"Pricey,John Doe,notanumber,2020-01-01",
		"Cheap,John Doe,-1.00,2020-01-01",
		"Timeless,John Doe,8.00,01/02/2020",
	}, "\n"))

	imp.Run(path, "job-2", "user-1")

	job := mustGetJob(t, jobs, "job-2")
	if job.Status != domain.UploadSuccess {
		t.Fatalf("status = %s, want %s (errors: %v)", job.Status, domain.UploadSuccess, job.Errors)
	}
	if len(job.Errors) != 6 {
		t.Fatalf("expected 6 row errors, got %d: %v", len(job.Errors), job.Errors)
	}
	wantFragments := []string{
		"row 1: skipping row with empty title",
		"row 3: skipping duplicate title: Good Book",
		"row 4: skipping duplicate title: Already Here",
		"row 5: skipping row with invalid price",
		"row 6: skipping row with invalid price",
		"row 7: skipping row with invalid publication_date",
	}
	for i, want := range wantFragments {
		if !strings.Contains(job.Errors[i], want) {
			t.Fatalf("errors[%d] = %q, want it to contain %q", i, job.Errors[i], want)
		}
	}
	// Seeded book plus the one valid row.
	if _, total, _ := st.SearchBooks("", 0, 10); total != 2 {
		t.Fatalf("store has %d books, want 2", total)
	}
	if _, ok, _ := st.GetBookByTitle("Good Book"); !ok {
		t.Fatalf("expected Good Book to be inserted")
	}
}

func TestImporterMissingColumnsFails(t *testing.T) {
	imp, st, jobs := newTestImporter(t)
	path := writeTempCSV(t, strings.Join([]string{
		"title,author",
		"Half a Book,Jane Roe",
	}, "\n"))

	imp.Run(path, "job-3", "user-1")

	job := mustGetJob(t, jobs, "job-3")
	if job.Status != domain.UploadFailed {
		t.Fatalf("status = %s, want %s", job.Status, domain.UploadFailed)
	}
	if len(job.Errors) != 1 || !strings.Contains(job.Errors[0], "CSV missing required columns: price, publication_date") {
		t.Fatalf("unexpected errors: %v", job.Errors)
	}
	if _, total, _ := st.SearchBooks("", 0, 10); total != 0 {
		t.Fatalf("no books should be inserted, got %d", total)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("temp file should be removed, stat err = %v", err)
	}
}

// failingBatchStore rejects every batch commit.
type failingBatchStore struct {
	*store.MemoryStore
}

func (f *failingBatchStore) CreateBooks(books []domain.Book) error {
	return errors.New("connection reset")
}

func TestImporterCommitFailureLeavesStoreUnchanged(t *testing.T) {
	redis := miniredis.RunT(t)
	jobs, err := store.NewRedisUploadStore(redis.Addr(), "")
	if err != nil {
		t.Fatalf("new upload store: %v", err)
	}
	mem := store.NewMemoryStore()
	imp := New(&failingBatchStore{mem}, jobs)
	path := writeTempCSV(t, strings.Join([]string{
		"title,author,price,publication_date",
		"Doomed Book,Jane Roe,12.00,2020-06-15",
	}, "\n"))

	imp.Run(path, "job-4", "user-1")

	job := mustGetJob(t, jobs, "job-4")
	if job.Status != domain.UploadFailed {
		t.Fatalf("status = %s, want %s", job.Status, domain.UploadFailed)
	}
	found := false
	for _, msg := range job.Errors {
		if strings.Contains(msg, "error committing batch of 1 books") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected batch commit error, got %v", job.Errors)
	}
	if _, total, _ := mem.SearchBooks("", 0, 10); total != 0 {
		t.Fatalf("store should be unchanged, got %d books", total)
	}
}

func TestImporterUnreadableFileFails(t *testing.T) {
	imp, _, jobs := newTestImporter(t)

	imp.Run(filepath.Join(t.TempDir(), "missing.csv"), "job-5", "user-1")

	job := mustGetJob(t, jobs, "job-5")
	if job.Status != domain.UploadFailed {
		t.Fatalf("status = %s, want %s", job.Status, domain.UploadFailed)
	}
	if len(job.Errors) == 0 || !strings.Contains(job.Errors[0], "error processing CSV file") {
		t.Fatalf("unexpected errors: %v", job.Errors)
	}
}

func TestImporterQuotedFieldsAndExtraColumns(t *testing.T) {
	imp, st, jobs := newTestImporter(t)
	path := writeTempCSV(t, strings.Join([]string{
		"isbn,title,author,price,publication_date",
		`978-0134190440,"Go, In Practice","Butcher, Matt",39.99,2016-09-04`,
	}, "\n"))

	imp.Run(path, "job-6", "user-1")

	job := mustGetJob(t, jobs, "job-6")
	if job.Status != domain.UploadSuccess {
		t.Fatalf("status = %s, want %s (errors: %v)", job.Status, domain.UploadSuccess, job.Errors)
	}
	book, ok, _ := st.GetBookByTitle("Go, In Practice")
	if !ok {
		t.Fatalf("expected quoted title to be inserted")
	}
	if book.Author != "Butcher, Matt" {
		t.Fatalf("author = %q", book.Author)
	}
}
