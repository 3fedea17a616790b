package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bookvault/pkg/domain"
	"bookvault/pkg/store"
)

// BookInput carries caller-supplied book fields. Nil pointers on update
// mean "leave unchanged".
type BookInput struct {
	Title           string
	Author          string
	Price           float64
	PublicationDate time.Time
}

// BookUpdate carries optional fields for a partial update.
type BookUpdate struct {
	Title           *string
	Author          *string
	Price           *float64
	PublicationDate *time.Time
}

// CreateBook inserts a new book, enforcing the unique-title invariant.
func (a *App) CreateBook(in BookInput) (domain.Book, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Book{}, ErrTitleRequired
	}
	if in.Price < 0 {
		return domain.Book{}, ErrNegativePrice
	}
	_, exists, err := a.store.GetBookByTitle(title)
	if err != nil {
		return domain.Book{}, fmt.Errorf("check title: %w", err)
	}
	if exists {
		return domain.Book{}, store.ErrDuplicateTitle
	}
	now := time.Now().UTC()
	book := domain.Book{
		ID:              uuid.NewString(),
		Title:           title,
		Author:          strings.TrimSpace(in.Author),
		Price:           in.Price,
		PublicationDate: in.PublicationDate,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := a.store.CreateBook(book); err != nil {
		return domain.Book{}, err
	}
	return book, nil
}

// GetBook retrieves a book by ID.
func (a *App) GetBook(id string) (domain.Book, error) {
	book, ok, err := a.store.GetBook(id)
	if err != nil {
		return domain.Book{}, fmt.Errorf("fetch book: %w", err)
	}
	if !ok {
		return domain.Book{}, ErrBookNotFound
	}
	return book, nil
}

// UpdateBook applies a partial update to an existing book.
func (a *App) UpdateBook(id string, in BookUpdate) (domain.Book, error) {
	book, ok, err := a.store.GetBook(id)
	if err != nil {
		return domain.Book{}, fmt.Errorf("fetch book: %w", err)
	}
	if !ok {
		return domain.Book{}, ErrBookNotFound
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return domain.Book{}, ErrTitleRequired
		}
		if title != book.Title {
			_, exists, err := a.store.GetBookByTitle(title)
			if err != nil {
				return domain.Book{}, fmt.Errorf("check title: %w", err)
			}
			if exists {
				return domain.Book{}, store.ErrDuplicateTitle
			}
			book.Title = title
		}
	}
	if in.Author != nil && strings.TrimSpace(*in.Author) != "" {
		book.Author = strings.TrimSpace(*in.Author)
	}
	if in.Price != nil {
		if *in.Price < 0 {
			return domain.Book{}, ErrNegativePrice
		}
		book.Price = *in.Price
	}
	if in.PublicationDate != nil {
		book.PublicationDate = *in.PublicationDate
	}
	book.UpdatedAt = time.Now().UTC()
	if err := a.store.UpdateBook(book); err != nil {
		return domain.Book{}, err
	}
	return book, nil
}

// DeleteBook removes a book and returns the deleted record.
func (a *App) DeleteBook(id string) (domain.Book, error) {
	book, ok, err := a.store.GetBook(id)
	if err != nil {
		return domain.Book{}, fmt.Errorf("fetch book: %w", err)
	}
	if !ok {
		return domain.Book{}, ErrBookNotFound
	}
	if err := a.store.DeleteBook(id); err != nil {
		return domain.Book{}, fmt.Errorf("delete book: %w", err)
	}
	return book, nil
}

// ListBooks returns a page of books matching the search term plus the
// total match count.
func (a *App) ListBooks(search string, offset, limit int) ([]domain.Book, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return a.store.SearchBooks(strings.TrimSpace(search), offset, limit)
}
