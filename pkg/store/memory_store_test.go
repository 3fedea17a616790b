package store

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"bookvault/pkg/domain"
)

func testBook(id, title, author string, createdAt time.Time) domain.Book {
	return domain.Book{
		ID:              id,
		Title:           title,
		Author:          author,
		Price:           10,
		PublicationDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
}

func TestMemoryStoreUserRoundTrip(t *testing.T) {
	m := NewMemoryStore()
	user := domain.User{ID: "u1", Email: "user@example.com", PasswordHash: "hash"}
	if err := m.SaveUser(user); err != nil {
		t.Fatalf("save user: %v", err)
	}
	ok, err := m.HasUserEmail("user@example.com")
	if err != nil || !ok {
		t.Fatalf("has email: ok=%v err=%v", ok, err)
	}
	got, ok, err := m.GetUserByEmail("user@example.com")
	if err != nil || !ok || got.ID != "u1" {
		t.Fatalf("get by email: %+v ok=%v err=%v", got, ok, err)
	}
	got, ok, err = m.GetUserByID("u1")
	if err != nil || !ok || got.Email != "user@example.com" {
		t.Fatalf("get by id: %+v ok=%v err=%v", got, ok, err)
	}

	// Email change re-keys the lookup index.
	user.Email = "new@example.com"
	if err := m.SaveUser(user); err != nil {
		t.Fatalf("update user: %v", err)
	}
	if ok, _ := m.HasUserEmail("user@example.com"); ok {
		t.Fatalf("old email should be gone")
	}
	if ok, _ := m.HasUserEmail("new@example.com"); !ok {
		t.Fatalf("new email should be indexed")
	}
}

func TestMemoryStoreDuplicateTitle(t *testing.T) {
	m := NewMemoryStore()
	now := time.Now()
	if err := m.CreateBook(testBook("b1", "Same Title", "A", now)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.CreateBook(testBook("b2", "Same Title", "B", now)); !errors.Is(err, ErrDuplicateTitle) {
		t.Fatalf("err = %v, want %v", err, ErrDuplicateTitle)
	}
}

func TestMemoryStoreCreateBooksAtomic(t *testing.T) {
	m := NewMemoryStore()
	now := time.Now()
	if err := m.CreateBook(testBook("b0", "Existing", "A", now)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	batch := []domain.Book{
		testBook("b1", "New One", "A", now),
		testBook("b2", "Existing", "B", now),
	}
	if err := m.CreateBooks(batch); !errors.Is(err, ErrDuplicateTitle) {
		t.Fatalf("err = %v, want %v", err, ErrDuplicateTitle)
	}
	if _, ok, _ := m.GetBook("b1"); ok {
		t.Fatalf("batch member should not be inserted after a failed commit")
	}

	// Duplicates inside the batch also reject the whole batch.
	batch = []domain.Book{
		testBook("b3", "Twice", "A", now),
		testBook("b4", "Twice", "B", now),
	}
	if err := m.CreateBooks(batch); !errors.Is(err, ErrDuplicateTitle) {
		t.Fatalf("err = %v, want %v", err, ErrDuplicateTitle)
	}
	if _, total, _ := m.SearchBooks("", 0, 0); total != 1 {
		t.Fatalf("store has %d books, want 1", total)
	}
}

func TestMemoryStoreUpdateBookTitleIndex(t *testing.T) {
	m := NewMemoryStore()
	now := time.Now()
	if err := m.CreateBook(testBook("b1", "Old Title", "A", now)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.CreateBook(testBook("b2", "Taken", "B", now)); err != nil {
		t.Fatalf("create: %v", err)
	}

	renamed := testBook("b1", "Taken", "A", now)
	if err := m.UpdateBook(renamed); !errors.Is(err, ErrDuplicateTitle) {
		t.Fatalf("err = %v, want %v", err, ErrDuplicateTitle)
	}

	renamed.Title = "New Title"
	if err := m.UpdateBook(renamed); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, ok, _ := m.GetBookByTitle("Old Title"); ok {
		t.Fatalf("old title should be unindexed")
	}
	if got, ok, _ := m.GetBookByTitle("New Title"); !ok || got.ID != "b1" {
		t.Fatalf("new title lookup: %+v ok=%v", got, ok)
	}
}

func TestMemoryStoreDeleteBook(t *testing.T) {
	m := NewMemoryStore()
	now := time.Now()
	if err := m.CreateBook(testBook("b1", "Doomed", "A", now)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.DeleteBook("b1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := m.GetBook("b1"); ok {
		t.Fatalf("book should be gone")
	}
	// Title is free again.
	if err := m.CreateBook(testBook("b2", "Doomed", "B", now)); err != nil {
		t.Fatalf("reuse title: %v", err)
	}
}

func TestMemoryStoreSearchBooks(t *testing.T) {
	m := NewMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		b := testBook(fmt.Sprintf("b%d", i), fmt.Sprintf("Go Book %d", i), "Gopher", base.Add(time.Duration(i)*time.Minute))
		if err := m.CreateBook(b); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if err := m.CreateBook(testBook("r1", "Rust in Action", "Tim McNamara", base.Add(time.Hour))); err != nil {
		t.Fatalf("create: %v", err)
	}

	books, total, err := m.SearchBooks("go book", 0, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 5 || len(books) != 5 {
		t.Fatalf("total=%d len=%d, want 5/5", total, len(books))
	}

	books, total, err = m.SearchBooks("", 2, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 6 || len(books) != 2 {
		t.Fatalf("total=%d len=%d, want 6/2", total, len(books))
	}
	if books[0].ID != "b2" || books[1].ID != "b3" {
		t.Fatalf("page order: %s, %s", books[0].ID, books[1].ID)
	}

	// Author match, case-insensitive.
	_, total, _ = m.SearchBooks("MCNAMARA", 0, 0)
	if total != 1 {
		t.Fatalf("author search total = %d, want 1", total)
	}

	// Offset past the end returns an empty page with the real total.
	books, total, _ = m.SearchBooks("", 100, 10)
	if total != 6 || len(books) != 0 {
		t.Fatalf("total=%d len=%d, want 6/0", total, len(books))
	}
}
