package task

import (
	"context"
	"sort"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu    sync.RWMutex
	tasks map[int]Task
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{tasks: map[int]Task{}}
}

func (r *MemoryRepo) nextIDLocked() int {
	max := 0
	for id := range r.tasks {
		if id > max {
			max = id
		}
	}
	return max + 1
}

func (r *MemoryRepo) Create(ctx context.Context, t Task) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	t.ID = r.nextIDLocked()
	t.CreatedAt = now
	t.UpdatedAt = now
	normalizeTask(&t)

	r.tasks[t.ID] = t.Clone()
	return t, nil
}

func (r *MemoryRepo) Get(ctx context.Context, id int) (Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	t = t.Clone()
	normalizeTask(&t)
	return t, nil
}

func (r *MemoryRepo) Save(ctx context.Context, t Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[t.ID]; !ok {
		return ErrNotFound
	}
	t.UpdatedAt = time.Now()
	normalizeTask(&t)
	r.tasks[t.ID] = t.Clone()
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, id int, p Patch) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	t = t.Clone()
	if err := applyPatch(&t, p); err != nil {
		return Task{}, err
	}
	t.UpdatedAt = time.Now()
	normalizeTask(&t)
	r.tasks[id] = t.Clone()
	return t, nil
}

func (r *MemoryRepo) List(ctx context.Context, filter ListFilter) ([]Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		t = t.Clone()
		normalizeTask(&t)
		if matchesFilter(t, filter) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *MemoryRepo) NextID(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nextIDLocked(), nil
}
