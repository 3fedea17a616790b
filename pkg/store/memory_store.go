package store

import (
	"sort"
	"strings"
	"sync"

	"bookvault/pkg/domain"
)

// MemoryStore keeps users and books in-process. It mirrors GormStore
// semantics (unique titles, atomic batch insert) so application code can
// be exercised without a database.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[string]domain.User // key: user ID
	email  map[string]string      // email -> user ID
	books  map[string]domain.Book // key: book ID
	titles map[string]string      // title -> book ID
	order  []string               // book insertion order
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[string]domain.User),
		email:  make(map[string]string),
		books:  make(map[string]domain.Book),
		titles: make(map[string]string),
	}
}

func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.users[u.ID]; ok && old.Email != u.Email {
		delete(m.email, old.Email)
	}
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.email[email]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) CreateBook(b domain.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(b)
}

// CreateBooks inserts all books or none. Titles are validated against the
// store and within the batch before anything is written.
func (m *MemoryStore) CreateBooks(books []domain.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]struct{}, len(books))
	for _, b := range books {
		if _, ok := m.titles[b.Title]; ok {
			return ErrDuplicateTitle
		}
		if _, ok := seen[b.Title]; ok {
			return ErrDuplicateTitle
		}
		seen[b.Title] = struct{}{}
	}
	for _, b := range books {
		if err := m.insertLocked(b); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) insertLocked(b domain.Book) error {
	if _, ok := m.titles[b.Title]; ok {
		return ErrDuplicateTitle
	}
	m.books[b.ID] = b
	m.titles[b.Title] = b.ID
	m.order = append(m.order, b.ID)
	return nil
}

func (m *MemoryStore) GetBook(id string) (domain.Book, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[id]
	return b, ok, nil
}

func (m *MemoryStore) GetBookByTitle(title string) (domain.Book, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.titles[title]
	if !ok {
		return domain.Book{}, false, nil
	}
	b, ok := m.books[id]
	return b, ok, nil
}

func (m *MemoryStore) UpdateBook(b domain.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.books[b.ID]
	if !ok {
		return nil
	}
	if old.Title != b.Title {
		if other, exists := m.titles[b.Title]; exists && other != b.ID {
			return ErrDuplicateTitle
		}
		delete(m.titles, old.Title)
		m.titles[b.Title] = b.ID
	}
	m.books[b.ID] = b
	return nil
}

func (m *MemoryStore) DeleteBook(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return nil
	}
	delete(m.books, id)
	delete(m.titles, b.Title)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryStore) SearchBooks(search string, offset, limit int) ([]domain.Book, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]domain.Book, 0, len(m.order))
	needle := strings.ToLower(search)
	for _, id := range m.order {
		b, ok := m.books[id]
		if !ok {
			continue
		}
		if search == "" ||
			strings.Contains(strings.ToLower(b.Title), needle) ||
			strings.Contains(strings.ToLower(b.Author), needle) {
			matched = append(matched, b)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	total := len(matched)
	if offset >= total {
		return []domain.Book{}, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

var _ Store = (*MemoryStore)(nil)
