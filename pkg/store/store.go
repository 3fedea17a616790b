package store

import (
	"errors"

	"bookvault/pkg/domain"
)

// ErrDuplicateTitle is returned when a book insert or update collides with
// the unique-title constraint.
var ErrDuplicateTitle = errors.New("book with this title already exists")

// Store defines persistence operations for users and books.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)

	// books
	CreateBook(domain.Book) error
	// CreateBooks commits the batch atomically: either every book is
	// inserted or none are.
	CreateBooks([]domain.Book) error
	GetBook(id string) (domain.Book, bool, error)
	GetBookByTitle(title string) (domain.Book, bool, error)
	UpdateBook(domain.Book) error
	DeleteBook(id string) error
	// SearchBooks filters by title or author substring and returns the
	// page plus the total match count.
	SearchBooks(search string, offset, limit int) ([]domain.Book, int, error)
}

// UploadJobStore persists CSV import job status documents. Writes are
// plain overwrites; the import pipeline is the only writer after intake.
type UploadJobStore interface {
	Set(job domain.UploadJob) error
	Get(id string) (domain.UploadJob, bool, error)
}
