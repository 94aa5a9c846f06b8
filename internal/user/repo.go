package user

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("user not found")
	ErrExists   = errors.New("user already exists")
)

// CounterDeltas is applied as an independent atomic increment per user, so
// concurrent completions from different tasks never clobber each other.
type CounterDeltas struct {
	Reputation     int
	CompletedTasks int
}

type Repo interface {
	Create(ctx context.Context, u User) (User, error)
	Get(ctx context.Context, name string) (User, error)
	Save(ctx context.Context, u User) error
	List(ctx context.Context) ([]User, error)

	// AdjustCurrentTasks shifts the active-claim count by delta, floored
	// at zero.
	AdjustCurrentTasks(ctx context.Context, name string, delta int) error

	// IncrementCounters applies reputation/completedTasks deltas for one
	// user. Returns ErrNotFound for unknown names; callers treat that as
	// best-effort and skip.
	IncrementCounters(ctx context.Context, name string, d CounterDeltas) error
}
