package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"bookvault/pkg/domain"
)

// UploadCSV validates an uploaded CSV, persists it to the temp upload
// area, records the pending job, and schedules the import pipeline. It
// returns as soon as the file is written; processing happens out-of-band.
func (a *App) UploadCSV(userID, filename string, r io.Reader, size int64) (string, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." {
		return "", ErrFilenameRequired
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".csv") {
		return "", ErrInvalidFileType
	}
	if size > a.maxUploadBytes {
		return "", ErrFileTooLarge
	}

	jobID := uuid.NewString()
	path := filepath.Join(a.uploadDir, jobID+"_"+sanitizeFilename(filename))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close temp file: %w", err)
	}

	if err := a.jobs.Set(domain.UploadJob{
		ID:     jobID,
		UserID: userID,
		Status: domain.UploadPending,
		Errors: []string{},
	}); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("record upload status: %w", err)
	}

	a.tasks.Go(func() {
		a.importer.Run(path, jobID, userID)
	})
	return jobID, nil
}

// UploadStatus returns the current job snapshot for its owner.
func (a *App) UploadStatus(jobID, userID string) (domain.UploadJob, error) {
	job, ok, err := a.jobs.Get(jobID)
	if err != nil {
		return domain.UploadJob{}, fmt.Errorf("fetch upload status: %w", err)
	}
	if !ok {
		return domain.UploadJob{}, ErrUploadNotFound
	}
	if job.UserID != userID {
		return domain.UploadJob{}, ErrUploadForbidden
	}
	return job, nil
}

// MaxUploadBytes exposes the upload size ceiling for the HTTP layer.
func (a *App) MaxUploadBytes() int64 {
	return a.maxUploadBytes
}

func sanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	lastUnderscore := false
	for _, r := range name {
		if r <= 0x7f {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
				b.WriteRune(r)
				lastUnderscore = false
				continue
			}
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "upload.csv"
	}
	return out
}
