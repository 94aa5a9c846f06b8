package user

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLRepo keeps counters in native integer columns so reputation and
// completed-task increments are single atomic UPDATE statements rather than
// read-modify-write cycles on the whole row.
type SQLRepo struct {
	db *sql.DB
}

func NewSQLRepo(db *sql.DB) *SQLRepo {
	return &SQLRepo{db: db}
}

func (r *SQLRepo) Create(ctx context.Context, u User) (User, error) {
	u.Name = normalizeName(u.Name)
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, admin, current_tasks, completed_tasks, reputation, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.Name, u.Admin, u.CurrentTasks, u.CompletedTasks, u.Reputation, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if exists, checkErr := r.exists(ctx, u.Name); checkErr == nil && exists {
			return User{}, ErrExists
		}
		return User{}, fmt.Errorf("insert user %s: %w", u.Name, err)
	}
	return u, nil
}

func (r *SQLRepo) Get(ctx context.Context, name string) (User, error) {
	var u User
	err := r.db.QueryRowContext(ctx,
		`SELECT name, admin, current_tasks, completed_tasks, reputation, created_at, updated_at
		 FROM users WHERE name = ?`, normalizeName(name),
	).Scan(&u.Name, &u.Admin, &u.CurrentTasks, &u.CompletedTasks, &u.Reputation, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (r *SQLRepo) Save(ctx context.Context, u User) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET admin = ?, current_tasks = ?, completed_tasks = ?, reputation = ?, updated_at = ?
		 WHERE name = ?`,
		u.Admin, u.CurrentTasks, u.CompletedTasks, u.Reputation, time.Now(), normalizeName(u.Name),
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *SQLRepo) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, admin, current_tasks, completed_tasks, reputation, created_at, updated_at
		 FROM users ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.Name, &u.Admin, &u.CurrentTasks, &u.CompletedTasks, &u.Reputation, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *SQLRepo) AdjustCurrentTasks(ctx context.Context, name string, delta int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET current_tasks = MAX(0, current_tasks + ?), updated_at = ? WHERE name = ?`,
		delta, time.Now(), normalizeName(name),
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *SQLRepo) IncrementCounters(ctx context.Context, name string, d CounterDeltas) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET reputation = reputation + ?, completed_tasks = completed_tasks + ?, updated_at = ?
		 WHERE name = ?`,
		d.Reputation, d.CompletedTasks, time.Now(), normalizeName(name),
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *SQLRepo) exists(ctx context.Context, name string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM users WHERE name = ?", name).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
