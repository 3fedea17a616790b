package domain

import "time"

// UploadStatus tracks the lifecycle of one CSV import job.
type UploadStatus string

const (
	UploadPending UploadStatus = "pending"
	UploadSuccess UploadStatus = "success"
	UploadFailed  UploadStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s UploadStatus) Terminal() bool {
	return s == UploadSuccess || s == UploadFailed
}

type Book struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	Price           float64   `json:"price"`
	PublicationDate time.Time `json:"publicationDate"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Verified     bool      `json:"verified"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UploadJob is the status document stored per CSV upload. Errors are
// appended in row order while the pipeline runs and the whole list is
// written together with each status update.
type UploadJob struct {
	ID     string       `json:"id"`
	UserID string       `json:"userId"`
	Status UploadStatus `json:"status"`
	Errors []string     `json:"errors"`
}
