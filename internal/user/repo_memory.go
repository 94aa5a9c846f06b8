package user

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{users: map[string]User{}}
}

func normalizeName(name string) string {
	return strings.TrimSpace(name)
}

func (r *MemoryRepo) Create(ctx context.Context, u User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u.Name = normalizeName(u.Name)
	if _, ok := r.users[u.Name]; ok {
		return User{}, ErrExists
	}
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	r.users[u.Name] = u
	return u, nil
}

func (r *MemoryRepo) Get(ctx context.Context, name string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[normalizeName(name)]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *MemoryRepo) Save(ctx context.Context, u User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u.Name = normalizeName(u.Name)
	if _, ok := r.users[u.Name]; !ok {
		return ErrNotFound
	}
	u.UpdatedAt = time.Now()
	r.users[u.Name] = u
	return nil
}

func (r *MemoryRepo) List(ctx context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepo) AdjustCurrentTasks(ctx context.Context, name string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[normalizeName(name)]
	if !ok {
		return ErrNotFound
	}
	u.CurrentTasks += delta
	if u.CurrentTasks < 0 {
		u.CurrentTasks = 0
	}
	u.UpdatedAt = time.Now()
	r.users[u.Name] = u
	return nil
}

func (r *MemoryRepo) IncrementCounters(ctx context.Context, name string, d CounterDeltas) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[normalizeName(name)]
	if !ok {
		return ErrNotFound
	}
	u.Reputation += d.Reputation
	u.CompletedTasks += d.CompletedTasks
	u.UpdatedAt = time.Now()
	r.users[u.Name] = u
	return nil
}
