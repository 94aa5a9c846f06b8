package user

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
	Users map[string]User `json:"users"`
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
		path: filepath.Join(dataDir, "users.json"),
		s:    fileState{Users: map[string]User{}},
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
			r.s = fileState{Users: map[string]User{}}
			return nil
		}
		return err
	}
	var loaded fileState
	if err := json.Unmarshal(b, &loaded); err != nil {
		return err
	}
	if loaded.Users == nil {
		loaded.Users = map[string]User{}
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

func (r *FileRepo) Create(ctx context.Context, u User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u.Name = normalizeName(u.Name)
	if _, ok := r.s.Users[u.Name]; ok {
		return User{}, ErrExists
	}
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	r.s.Users[u.Name] = u
	if err := r.saveLocked(); err != nil {
		return User{}, err
	}
	return u, nil
}

func (r *FileRepo) Get(ctx context.Context, name string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.s.Users[normalizeName(name)]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *FileRepo) Save(ctx context.Context, u User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u.Name = normalizeName(u.Name)
	if _, ok := r.s.Users[u.Name]; !ok {
		return ErrNotFound
	}
	u.UpdatedAt = time.Now()
	r.s.Users[u.Name] = u
	return r.saveLocked()
}

func (r *FileRepo) List(ctx context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]User, 0, len(r.s.Users))
	for _, u := range r.s.Users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *FileRepo) AdjustCurrentTasks(ctx context.Context, name string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.s.Users[normalizeName(name)]
	if !ok {
		return ErrNotFound
	}
	u.CurrentTasks += delta
	if u.CurrentTasks < 0 {
		u.CurrentTasks = 0
	}
	u.UpdatedAt = time.Now()
	r.s.Users[u.Name] = u
	return r.saveLocked()
}

func (r *FileRepo) IncrementCounters(ctx context.Context, name string, d CounterDeltas) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.s.Users[normalizeName(name)]
	if !ok {
		return ErrNotFound
	}
	u.Reputation += d.Reputation
	u.CompletedTasks += d.CompletedTasks
	u.UpdatedAt = time.Now()
	r.s.Users[u.Name] = u
	return r.saveLocked()
}
