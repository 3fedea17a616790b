package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"bookvault/pkg/domain"
	"bookvault/pkg/store"
)

var requiredColumns = []string{"title", "author", "price", "publication_date"}

// Importer is the CSV import pipeline. Given a temp file written by the
// upload intake it validates rows, commits the valid ones as a single
// batch, and reports the outcome through the upload job store. It never
// returns an error to its scheduler.
type Importer struct {
	store store.Store
	jobs  store.UploadJobStore
}

// New wires the pipeline to its stores.
func New(st store.Store, jobs store.UploadJobStore) *Importer {
	return &Importer{store: st, jobs: jobs}
}

// Run processes one uploaded CSV file. Row failures are soft: the row is
// recorded and skipped. Header validation, batch commit, and temp-file
// cleanup failures are hard and mark the job failed. The temp file is
// removed on every path.
func (imp *Importer) Run(path, jobID, userID string) {
	logger := slog.With("upload_id", jobID, "file", path)
	logger.Info("starting csv import")

	job := domain.UploadJob{
		ID:     jobID,
		UserID: userID,
		Status: domain.UploadPending,
		Errors: []string{},
	}
	job.Status = imp.process(path, &job, logger)

	if err := os.Remove(path); err != nil {
		job.Errors = append(job.Errors, fmt.Sprintf("error deleting temporary file %s: %v", path, err))
		job.Status = domain.UploadFailed
		logger.Error("failed to delete temporary file", "err", err)
	}

	if err := imp.jobs.Set(job); err != nil {
		logger.Error("failed to write upload job status", "err", err, "status", job.Status)
	}
	logger.Info("csv import finished", "status", job.Status, "errors", len(job.Errors))
}

func (imp *Importer) process(path string, job *domain.UploadJob, logger *slog.Logger) domain.UploadStatus {
	f, err := os.Open(path)
	if err != nil {
		job.Errors = append(job.Errors, fmt.Sprintf("error processing CSV file %s: %v", path, err))
		return domain.UploadFailed
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		job.Errors = append(job.Errors, fmt.Sprintf("error reading CSV header: %v", err))
		return domain.UploadFailed
	}
	fields := fieldIndex(header)
	if missing := missingColumns(fields); len(missing) > 0 {
		job.Errors = append(job.Errors, fmt.Sprintf("CSV missing required columns: %s", strings.Join(missing, ", ")))
		return domain.UploadFailed
	}

	var staged []domain.Book
	stagedTitles := make(map[string]struct{})
	processed, skipped := 0, 0

	for rowNumber := 1; ; rowNumber++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			job.Errors = append(job.Errors, fmt.Sprintf("row %d: skipping unreadable row: %v", rowNumber, err))
			skipped++
			continue
		}
		book, rowErr := imp.parseRow(fields, record, rowNumber, stagedTitles)
		if rowErr != nil {
			job.Errors = append(job.Errors, rowErr.Error())
			skipped++
			continue
		}
		staged = append(staged, book)
		stagedTitles[book.Title] = struct{}{}
		processed++
	}

	// The batch commits atomically: a failure here leaves the record
	// store untouched regardless of per-row validation outcomes.
	if len(staged) > 0 {
		if err := imp.store.CreateBooks(staged); err != nil {
			job.Errors = append(job.Errors, fmt.Sprintf("error committing batch of %d books: %v", len(staged), err))
			return domain.UploadFailed
		}
	}
	logger.Info("completed csv processing", "inserted", processed, "skipped", skipped)
	return domain.UploadSuccess
}

func (imp *Importer) parseRow(fields map[string]int, record []string, rowNumber int, stagedTitles map[string]struct{}) (domain.Book, error) {
	raw := strings.Join(record, ",")

	title := strings.TrimSpace(fieldValue(fields, record, "title"))
	if title == "" {
		return domain.Book{}, fmt.Errorf("row %d: skipping row with empty title: %s", rowNumber, raw)
	}

	if _, ok := stagedTitles[title]; ok {
		return domain.Book{}, fmt.Errorf("row %d: skipping duplicate title: %s", rowNumber, title)
	}
	_, exists, err := imp.store.GetBookByTitle(title)
	if err != nil {
		return domain.Book{}, fmt.Errorf("row %d: error checking duplicate title: %s - %v", rowNumber, raw, err)
	}
	if exists {
		return domain.Book{}, fmt.Errorf("row %d: skipping duplicate title: %s", rowNumber, title)
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(fieldValue(fields, record, "price")), 64)
	if err != nil {
		return domain.Book{}, fmt.Errorf("row %d: skipping row with invalid price: %s - %v", rowNumber, raw, err)
	}
	if price < 0 {
		return domain.Book{}, fmt.Errorf("row %d: skipping row with invalid price: %s - price cannot be negative", rowNumber, raw)
	}

	publicationDate, err := time.Parse("2006-01-02", strings.TrimSpace(fieldValue(fields, record, "publication_date")))
	if err != nil {
		return domain.Book{}, fmt.Errorf("row %d: skipping row with invalid publication_date: %s - %v", rowNumber, raw, err)
	}

	now := time.Now().UTC()
	return domain.Book{
		ID:              uuid.NewString(),
		Title:           title,
		Author:          strings.TrimSpace(fieldValue(fields, record, "author")),
		Price:           price,
		PublicationDate: publicationDate,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// fieldIndex maps header names to their column positions. The first
// occurrence wins when a header repeats.
func fieldIndex(header []string) map[string]int {
	fields := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, ok := fields[name]; !ok {
			fields[name] = i
		}
	}
	return fields
}

func missingColumns(fields map[string]int) []string {
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := fields[col]; !ok {
			missing = append(missing, col)
		}
	}
	sort.Strings(missing)
	return missing
}

func fieldValue(fields map[string]int, record []string, name string) string {
	i, ok := fields[name]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}
