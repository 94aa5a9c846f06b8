package guild

import (
	"context"
	"errors"
	"fmt"
	"log"

	"guildboard/internal/task"
	"guildboard/internal/user"
)

var (
	ErrInvalid   = errors.New("invalid input")
	ErrForbidden = errors.New("admin required")
)

// Rewards holds the reputation payout per assignee on completion.
type Rewards struct {
	Guild  int
	Member int
}

func DefaultRewards() Rewards {
	return Rewards{Guild: 1000, Member: 100}
}

// Service coordinates the task board: every operation is one load-mutate-save
// cycle on a single task aggregate, plus per-user counter effects.
type Service struct {
	tasks   task.Repo
	users   user.Repo
	rewards Rewards
	logger  *log.Logger
}

func NewService(tasks task.Repo, users user.Repo, rewards Rewards, logger *log.Logger) *Service {
	if rewards.Guild == 0 && rewards.Member == 0 {
		rewards = DefaultRewards()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		tasks:   tasks,
		users:   users,
		rewards: rewards,
		logger:  logger,
	}
}

func (s *Service) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	if t.Name == "" {
		return task.Task{}, fmt.Errorf("task name is required: %w", ErrInvalid)
	}
	if t.Priority == "" {
		t.Priority = task.PriorityMedium
	}
	if !task.ValidPriority(t.Priority) {
		return task.Task{}, fmt.Errorf("unknown priority %q: %w", t.Priority, ErrInvalid)
	}
	if t.Type == "" {
		t.Type = task.TypeMember
	}
	if !task.ValidType(t.Type) {
		return task.Task{}, fmt.Errorf("unknown task type %q: %w", t.Type, ErrInvalid)
	}
	task.PrepareNew(&t)
	return s.tasks.Create(ctx, t)
}

func (s *Service) GetTask(ctx context.Context, id int) (task.Task, error) {
	return s.tasks.Get(ctx, id)
}

func (s *Service) ListTasks(ctx context.Context, filter task.ListFilter) ([]task.Task, error) {
	return s.tasks.List(ctx, filter)
}

func (s *Service) UpdateTask(ctx context.Context, id int, p task.Patch) (task.Task, error) {
	if p.Priority != nil && !task.ValidPriority(*p.Priority) {
		return task.Task{}, fmt.Errorf("unknown priority %q: %w", *p.Priority, ErrInvalid)
	}
	if p.Status != nil && !task.ValidStatus(*p.Status) {
		return task.Task{}, fmt.Errorf("unknown status %q: %w", *p.Status, ErrInvalid)
	}
	if p.Type != nil && !task.ValidType(*p.Type) {
		return task.Task{}, fmt.Errorf("unknown task type %q: %w", *p.Type, ErrInvalid)
	}
	return s.tasks.Update(ctx, id, p)
}

func (s *Service) DeleteTask(ctx context.Context, id int) error {
	return s.tasks.Delete(ctx, id)
}

// ToggleTaskClaim claims or unclaims the whole task for userName, adjusting
// the user's active-claim counter as a side effect. Returns the saved task
// and whether the call resulted in a claim.
func (s *Service) ToggleTaskClaim(ctx context.Context, taskID int, userName string) (task.Task, bool, error) {
	if _, err := s.users.Get(ctx, userName); err != nil {
		return task.Task{}, false, err
	}
	t, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return task.Task{}, false, err
	}

	claimed := t.ToggleClaim(userName)
	if err := s.tasks.Save(ctx, t); err != nil {
		return task.Task{}, false, err
	}

	delta := 1
	if !claimed {
		delta = -1
	}
	if err := s.users.AdjustCurrentTasks(ctx, userName, delta); err != nil {
		s.logger.Printf("adjust currentTasks for %s: %v", userName, err)
	}
	return t, claimed, nil
}

// ToggleSubtaskClaim is the same toggle scoped to one node of the subtask
// forest, located by id at any depth.
func (s *Service) ToggleSubtaskClaim(ctx context.Context, taskID, subtaskID int, userName string) (task.Task, bool, error) {
	if _, err := s.users.Get(ctx, userName); err != nil {
		return task.Task{}, false, err
	}
	t, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return task.Task{}, false, err
	}
	node := task.FindSubtask(t.Subtasks, subtaskID)
	if node == nil {
		return task.Task{}, false, fmt.Errorf("subtask %d in task %d: %w", subtaskID, taskID, task.ErrSubtaskNotFound)
	}

	claimed := node.ToggleClaim(userName)
	if err := s.tasks.Save(ctx, t); err != nil {
		return task.Task{}, false, err
	}

	delta := 1
	if !claimed {
		delta = -1
	}
	if err := s.users.AdjustCurrentTasks(ctx, userName, delta); err != nil {
		s.logger.Printf("adjust currentTasks for %s: %v", userName, err)
	}
	return t, claimed, nil
}

// ToggleSubtaskCompletion flips a subtask's completed flag. Completing pays
// the reward to the subtask's assignees; un-completing pays nothing back.
func (s *Service) ToggleSubtaskCompletion(ctx context.Context, taskID, subtaskID int) (task.Task, error) {
	t, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return task.Task{}, err
	}
	node := task.FindSubtask(t.Subtasks, subtaskID)
	if node == nil {
		return task.Task{}, fmt.Errorf("subtask %d in task %d: %w", subtaskID, taskID, task.ErrSubtaskNotFound)
	}

	completed := node.ToggleCompletion()
	assignees := append([]string(nil), node.AssignedTo...)
	if err := s.tasks.Save(ctx, t); err != nil {
		return task.Task{}, err
	}
	if completed {
		s.applyCompletionReward(ctx, assignees, t.Type)
	}
	return t, nil
}

// CompleteTask marks the whole task completed (one-way) and pays the reward
// to the task-level assignees only, not the subtasks'.
func (s *Service) CompleteTask(ctx context.Context, taskID int) (task.Task, error) {
	t, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return task.Task{}, err
	}
	t.Complete()
	if err := s.tasks.Save(ctx, t); err != nil {
		return task.Task{}, err
	}
	s.applyCompletionReward(ctx, t.AssignedTo, t.Type)
	return t, nil
}

// AdjustContribution applies a signed delta to one user's contribution on a
// named resource, task-level when subtaskID is nil, otherwise scoped to the
// located subtask.
func (s *Service) AdjustContribution(ctx context.Context, taskID int, subtaskID *int, resourceName, userName string, delta int) (task.Task, error) {
	if _, err := s.users.Get(ctx, userName); err != nil {
		return task.Task{}, err
	}
	t, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return task.Task{}, err
	}

	resources := t.Resources
	if subtaskID != nil {
		node := task.FindSubtask(t.Subtasks, *subtaskID)
		if node == nil {
			return task.Task{}, fmt.Errorf("subtask %d in task %d: %w", *subtaskID, taskID, task.ErrSubtaskNotFound)
		}
		resources = node.Resources
	}
	ledger := task.FindResource(resources, resourceName)
	if ledger == nil {
		return task.Task{}, fmt.Errorf("resource %q in task %d: %w", resourceName, taskID, task.ErrResourceNotFound)
	}

	ledger.Adjust(userName, delta)
	if err := s.tasks.Save(ctx, t); err != nil {
		return task.Task{}, err
	}
	return t, nil
}

// SetStatus is the administrative override: any status, any time, bypassing
// the automatic claim-driven transitions. The actor must carry the admin flag.
func (s *Service) SetStatus(ctx context.Context, taskID int, status task.Status, actor string) (task.Task, error) {
	if !task.ValidStatus(status) {
		return task.Task{}, fmt.Errorf("unknown status %q: %w", status, ErrInvalid)
	}
	a, err := s.users.Get(ctx, actor)
	if err != nil {
		return task.Task{}, err
	}
	if !a.Admin {
		return task.Task{}, ErrForbidden
	}
	t, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return task.Task{}, err
	}
	t.Status = status
	if err := s.tasks.Save(ctx, t); err != nil {
		return task.Task{}, err
	}
	return t, nil
}

// applyCompletionReward pays every assignee independently. A failed or
// missing user never aborts the rest.
func (s *Service) applyCompletionReward(ctx context.Context, assignees []string, taskType task.Type) {
	amount := s.rewards.Member
	if taskType == task.TypeGuild {
		amount = s.rewards.Guild
	}
	for _, name := range assignees {
		err := s.users.IncrementCounters(ctx, name, user.CounterDeltas{
			Reputation:     amount,
			CompletedTasks: 1,
		})
		if err != nil && !errors.Is(err, user.ErrNotFound) {
			s.logger.Printf("reward %s: %v", name, err)
		}
	}
}
