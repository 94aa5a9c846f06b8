package task

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

type fileState struct {
	Tasks map[int]Task `json:"tasks"`
}

// FileRepo persists the whole task collection as one JSON document.
// Every mutation is a load-mutate-save cycle under the store mutex, so
// writes to one aggregate are serialized in-process.
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
		path: filepath.Join(dataDir, "tasks.json"),
		s:    fileState{Tasks: map[int]Task{}},
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
			r.s = fileState{Tasks: map[int]Task{}}
			return nil
		}
		return err
	}
	var loaded fileState
	if err := json.Unmarshal(b, &loaded); err != nil {
		return err
	}
	if loaded.Tasks == nil {
		loaded.Tasks = map[int]Task{}
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

func (r *FileRepo) nextIDLocked() int {
	max := 0
	for id := range r.s.Tasks {
		if id > max {
			max = id
		}
	}
	return max + 1
}

func (r *FileRepo) Create(ctx context.Context, t Task) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	t.ID = r.nextIDLocked()
	t.CreatedAt = now
	t.UpdatedAt = now
	normalizeTask(&t)

	r.s.Tasks[t.ID] = t.Clone()
	if err := r.saveLocked(); err != nil {
		return Task{}, err
	}
	return t, nil
}

func (r *FileRepo) Get(ctx context.Context, id int) (Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.s.Tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	t = t.Clone()
	normalizeTask(&t)
	return t, nil
}

func (r *FileRepo) Save(ctx context.Context, t Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.s.Tasks[t.ID]; !ok {
		return ErrNotFound
	}
	t.UpdatedAt = time.Now()
	normalizeTask(&t)
	r.s.Tasks[t.ID] = t.Clone()
	return r.saveLocked()
}

func (r *FileRepo) Update(ctx context.Context, id int, p Patch) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.s.Tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	t = t.Clone()
	if err := applyPatch(&t, p); err != nil {
		return Task{}, err
	}
	t.UpdatedAt = time.Now()
	normalizeTask(&t)
	r.s.Tasks[id] = t.Clone()
	if err := r.saveLocked(); err != nil {
		return Task{}, err
	}
	return t, nil
}

func (r *FileRepo) List(ctx context.Context, filter ListFilter) ([]Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Task, 0, len(r.s.Tasks))
	for _, t := range r.s.Tasks {
		t = t.Clone()
		normalizeTask(&t)
		if matchesFilter(t, filter) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *FileRepo) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.s.Tasks[id]; !ok {
		return ErrNotFound
	}
	delete(r.s.Tasks, id)
	return r.saveLocked()
}

func (r *FileRepo) NextID(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nextIDLocked(), nil
}
