package identity

import (
	"context"
	"errors"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]User
	byLogin map[string]string // username -> id
}

// NewMemoryRepository constructs an in-memory repository for tests and dev mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{byID: make(map[string]User), byLogin: make(map[string]string)}
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byLogin[user.Username]; exists {
		return errors.New("username taken")
	}
	r.byID[user.ID] = user
	r.byLogin[user.Username] = user.ID
	return nil
}

func (r *memoryRepository) FindByUsername(_ context.Context, username string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byLogin[username]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return r.byID[id], nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}
