package users

import (
	"context"
	"errors"
	"strings"
	"sync"

	"gramaalert-be/models"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("user not found")

// MemoryRepository is an in-process Repository used with STORE_DRIVER=memory and in tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]models.User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: make(map[string]models.User)}
}

func (m *MemoryRepository) Create(ctx context.Context, u *models.User) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.store {
		if strings.EqualFold(existing.Email, u.Email) {
			return "", ErrEmailTaken
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	m.store[u.ID] = *u
	return u.ID, nil
}

func (m *MemoryRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return m.find(func(u models.User) bool { return u.ID == id }), nil
}

func (m *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.find(func(u models.User) bool { return strings.EqualFold(u.Email, email) }), nil
}

func (m *MemoryRepository) GetByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, nil
	}
	return m.find(func(u models.User) bool { return u.VerificationToken == token }), nil
}

func (m *MemoryRepository) SetVerificationToken(ctx context.Context, id, token string) error {
	return m.update(id, func(u *models.User) { u.VerificationToken = token })
}

func (m *MemoryRepository) MarkVerified(ctx context.Context, id string) error {
	return m.update(id, func(u *models.User) {
		u.Verified = true
		u.VerificationToken = ""
	})
}

// Count is used by tests to assert nothing was written.
func (m *MemoryRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}

func (m *MemoryRepository) find(match func(models.User) bool) *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.store {
		if match(u) {
			out := u
			return &out
		}
	}
	return nil
}

func (m *MemoryRepository) update(id string, fn func(*models.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok {
		return ErrNotFound
	}
	fn(&u)
	m.store[id] = u
	return nil
}
