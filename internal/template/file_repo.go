package template

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type fileState struct {
	Templates map[string]Template `json:"templates"`
}

type FileRepo struct {
	mu   sync.RWMutex
	path string
	s    fileState
}

func NewFileRepo(dataDir string) (*FileRepo, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	r := &FileRepo{
		path: filepath.Join(dataDir, "templates.json"),
		s:    fileState{Templates: map[string]Template{}},
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileRepo) load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			r.s = fileState{Templates: map[string]Template{}}
			return nil
		}
		return err
	}
	var loaded fileState
	if err := json.Unmarshal(b, &loaded); err != nil {
		return err
	}
	if loaded.Templates == nil {
		loaded.Templates = map[string]Template{}
	}
	r.s = loaded
	return nil
}

func (r *FileRepo) saveLocked() error {
	b, err := json.MarshalIndent(r.s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, b, 0o644)
}

func (r *FileRepo) Create(ctx context.Context, tp Template) (Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(tp.ID) == "" {
		tp.ID = uuid.NewString()
	}
	normalizeTemplate(&tp)
	now := time.Now().UTC()
	tp.CreatedAt = now
	tp.UpdatedAt = now
	r.s.Templates[tp.ID] = tp
	if err := r.saveLocked(); err != nil {
		return Template{}, err
	}
	return tp, nil
}

func (r *FileRepo) Get(ctx context.Context, id string) (Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tp, ok := r.s.Templates[id]
	if !ok {
		return Template{}, ErrNotFound
	}
	normalizeTemplate(&tp)
	return tp, nil
}

func (r *FileRepo) List(ctx context.Context) ([]Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Template, 0, len(r.s.Templates))
	for _, tp := range r.s.Templates {
		normalizeTemplate(&tp)
		out = append(out, tp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *FileRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.s.Templates[id]; !ok {
		return ErrNotFound
	}
	delete(r.s.Templates, id)
	return r.saveLocked()
}
