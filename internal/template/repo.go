package template

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Repo interface {
	Create(ctx context.Context, tp Template) (Template, error)
	Get(ctx context.Context, id string) (Template, error)
	List(ctx context.Context) ([]Template, error)
	Delete(ctx context.Context, id string) error
}

type MemoryRepo struct {
	mu        sync.RWMutex
	templates map[string]Template
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{templates: map[string]Template{}}
}

func normalizeTemplate(tp *Template) {
	if tp.Nodes == nil {
		tp.Nodes = []Node{}
	}
}

func (r *MemoryRepo) Create(ctx context.Context, tp Template) (Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(tp.ID) == "" {
		tp.ID = uuid.NewString()
	}
	normalizeTemplate(&tp)
	now := time.Now().UTC()
	tp.CreatedAt = now
	tp.UpdatedAt = now
	r.templates[tp.ID] = tp
	return tp, nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tp, ok := r.templates[id]
	if !ok {
		return Template{}, ErrNotFound
	}
	normalizeTemplate(&tp)
	return tp, nil
}

func (r *MemoryRepo) List(ctx context.Context) ([]Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Template, 0, len(r.templates))
	for _, tp := range r.templates {
		normalizeTemplate(&tp)
		out = append(out, tp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.templates[id]; !ok {
		return ErrNotFound
	}
	delete(r.templates, id)
	return nil
}
