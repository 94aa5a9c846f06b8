package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// SQLRepo stores each aggregate as one JSON document row, keeping the
// document-store layout (full subtask forest inline, no subtask table).
type SQLRepo struct {
	db *sql.DB
}

func NewSQLRepo(db *sql.DB) *SQLRepo {
	return &SQLRepo{db: db}
}

func (r *SQLRepo) Create(ctx context.Context, t Task) (Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Task{}, err
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(id), 0) + 1 FROM tasks").Scan(&next); err != nil {
		return Task{}, fmt.Errorf("next task id: %w", err)
	}

	now := time.Now()
	t.ID = next
	t.CreatedAt = now
	t.UpdatedAt = now
	normalizeTask(&t)

	doc, err := json.Marshal(t)
	if err != nil {
		return Task{}, err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO tasks (id, doc, updated_at) VALUES (?, ?, ?)",
		t.ID, string(doc), now,
	); err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Task{}, err
	}
	return t, nil
}

func (r *SQLRepo) Get(ctx context.Context, id int) (Task, error) {
	var doc string
	err := r.db.QueryRowContext(ctx, "SELECT doc FROM tasks WHERE id = ?", id).Scan(&doc)
	if err == sql.ErrNoRows {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, err
	}
	return decodeTask(doc)
}

func (r *SQLRepo) Save(ctx context.Context, t Task) error {
	t.UpdatedAt = time.Now()
	normalizeTask(&t)
	doc, err := json.Marshal(t)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE tasks SET doc = ?, updated_at = ? WHERE id = ?",
		string(doc), t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("save task %d: %w", t.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLRepo) Update(ctx context.Context, id int, p Patch) (Task, error) {
	t, err := r.Get(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if err := applyPatch(&t, p); err != nil {
		return Task{}, err
	}
	if err := r.Save(ctx, t); err != nil {
		return Task{}, err
	}
	return t, nil
}

func (r *SQLRepo) List(ctx context.Context, filter ListFilter) ([]Task, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT doc FROM tasks")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Task{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		t, err := decodeTask(doc)
		if err != nil {
			return nil, err
		}
		if matchesFilter(t, filter) {
			out = append(out, t)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *SQLRepo) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLRepo) NextID(ctx context.Context) (int, error) {
	var next int
	if err := r.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(id), 0) + 1 FROM tasks").Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}

func decodeTask(doc string) (Task, error) {
	var t Task
	if err := json.Unmarshal([]byte(doc), &t); err != nil {
		return Task{}, fmt.Errorf("decode task document: %w", err)
	}
	normalizeTask(&t)
	return t, nil
}
