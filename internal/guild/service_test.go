package guild

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guildboard/internal/task"
	"guildboard/internal/user"
)

func newTestService(t *testing.T) (*Service, *task.MemoryRepo, *user.MemoryRepo) {
	t.Helper()
	tasks := task.NewMemoryRepo()
	users := user.NewMemoryRepo()
	svc := NewService(tasks, users, DefaultRewards(), nil)
	return svc, tasks, users
}

func mustCreateUser(t *testing.T, users *user.MemoryRepo, u user.User) {
	t.Helper()
	_, err := users.Create(context.Background(), u)
	require.NoError(t, err)
}

func TestCreateTask_DefaultsAndNormalization(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, task.Task{
		Name:       "build fortress",
		AssignedTo: []string{"smuggled"},
		Status:     task.StatusCompleted,
		Subtasks: []task.Subtask{
			{ID: 42, Name: "walls", Subtasks: []task.Subtask{{Name: "stone"}}},
			{Name: "gate"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, task.PriorityMedium, created.Priority)
	assert.Equal(t, task.TypeMember, created.Type)
	assert.Equal(t, task.StatusOpen, created.Status)
	assert.Empty(t, created.AssignedTo)
	assert.Equal(t, 1, created.Subtasks[0].ID)
	assert.Equal(t, 2, created.Subtasks[0].Subtasks[0].ID)
	assert.Equal(t, 3, created.Subtasks[1].ID)
}

func TestCreateTask_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateTask(ctx, task.Task{})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = svc.CreateTask(ctx, task.Task{Name: "x", Priority: "urgent"})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = svc.CreateTask(ctx, task.Task{Name: "x", Type: "raid"})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestGuildTaskLifecycle(t *testing.T) {
	svc, _, users := newTestService(t)
	ctx := context.Background()

	mustCreateUser(t, users, user.User{Name: "alice"})

	created, err := svc.CreateTask(ctx, task.Task{
		Name: "gather stone for the wall",
		Type: task.TypeGuild,
		Resources: []task.ResourceLedger{
			{Name: "Stone", Needed: 100, Unit: "blocks"},
		},
		Subtasks: []task.Subtask{{Name: "Mine"}},
	})
	require.NoError(t, err)

	// Alice contributes 40 blocks of stone.
	got, err := svc.AdjustContribution(ctx, created.ID, nil, "Stone", "alice", 40)
	require.NoError(t, err)
	assert.Equal(t, 40, got.Resources[0].Gathered)
	assert.Equal(t, 40, got.Resources[0].Contributors["alice"])

	// Withdrawing more than she gave zeroes her out entirely.
	got, err = svc.AdjustContribution(ctx, created.ID, nil, "Stone", "alice", -50)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Resources[0].Gathered)
	assert.Empty(t, got.Resources[0].Contributors)

	// Claiming moves the task to in_progress and bumps her active count.
	got, claimed, err := svc.ToggleTaskClaim(ctx, created.ID, "alice")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, task.StatusInProgress, got.Status)

	alice, err := users.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, alice.CurrentTasks)

	// Completing a guild task pays the guild-rate reward.
	got, err = svc.CompleteTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, got.Status)

	alice, err = users.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1000, alice.Reputation)
	assert.Equal(t, 1, alice.CompletedTasks)
}

func TestMemberTaskRewardRate(t *testing.T) {
	svc, _, users := newTestService(t)
	ctx := context.Background()

	mustCreateUser(t, users, user.User{Name: "bob"})

	created, err := svc.CreateTask(ctx, task.Task{Name: "fetch herbs", Type: task.TypeMember})
	require.NoError(t, err)

	_, _, err = svc.ToggleTaskClaim(ctx, created.ID, "bob")
	require.NoError(t, err)
	_, err = svc.CompleteTask(ctx, created.ID)
	require.NoError(t, err)

	bob, err := users.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 100, bob.Reputation)
}

func TestToggleTaskClaim_UnclaimReopensAndDecrements(t *testing.T) {
	svc, _, users := newTestService(t)
	ctx := context.Background()

	mustCreateUser(t, users, user.User{Name: "alice"})
	created, err := svc.CreateTask(ctx, task.Task{Name: "patrol"})
	require.NoError(t, err)

	_, _, err = svc.ToggleTaskClaim(ctx, created.ID, "alice")
	require.NoError(t, err)
	got, claimed, err := svc.ToggleTaskClaim(ctx, created.ID, "alice")
	require.NoError(t, err)

	assert.False(t, claimed)
	assert.Equal(t, task.StatusOpen, got.Status)

	alice, err := users.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, alice.CurrentTasks)
}

func TestToggleTaskClaim_UnknownUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, task.Task{Name: "patrol"})
	require.NoError(t, err)

	_, _, err = svc.ToggleTaskClaim(ctx, created.ID, "ghost")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestSubtaskClaimAndCompletion(t *testing.T) {
	svc, _, users := newTestService(t)
	ctx := context.Background()

	mustCreateUser(t, users, user.User{Name: "alice"})
	created, err := svc.CreateTask(ctx, task.Task{
		Name: "fortify",
		Type: task.TypeGuild,
		Subtasks: []task.Subtask{
			{Name: "walls", Subtasks: []task.Subtask{{Name: "mine stone"}}},
		},
	})
	require.NoError(t, err)

	// id 2 is the nested "mine stone" node.
	got, claimed, err := svc.ToggleSubtaskClaim(ctx, created.ID, 2, "alice")
	require.NoError(t, err)
	assert.True(t, claimed)
	node := task.FindSubtask(got.Subtasks, 2)
	require.NotNil(t, node)
	assert.Equal(t, []string{"alice"}, node.AssignedTo)

	got, err = svc.ToggleSubtaskCompletion(ctx, created.ID, 2)
	require.NoError(t, err)
	assert.True(t, task.FindSubtask(got.Subtasks, 2).Completed)

	// Subtask completion on a guild task pays the guild rate too.
	alice, err := users.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1000, alice.Reputation)
	assert.Equal(t, 1, alice.CompletedTasks)

	// Un-completing pays nothing back.
	_, err = svc.ToggleSubtaskCompletion(ctx, created.ID, 2)
	require.NoError(t, err)
	alice, err = users.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1000, alice.Reputation)

	_, _, err = svc.ToggleSubtaskClaim(ctx, created.ID, 99, "alice")
	assert.ErrorIs(t, err, task.ErrSubtaskNotFound)
}

func TestCompletionReward_SkipsMissingUsers(t *testing.T) {
	svc, tasks, users := newTestService(t)
	ctx := context.Background()

	mustCreateUser(t, users, user.User{Name: "alice"})

	created, err := svc.CreateTask(ctx, task.Task{Name: "joint effort", Type: task.TypeGuild})
	require.NoError(t, err)
	created.AssignedTo = []string{"alice", "deleted-user"}
	require.NoError(t, tasks.Save(ctx, created))

	_, err = svc.CompleteTask(ctx, created.ID)
	require.NoError(t, err)

	alice, err := users.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1000, alice.Reputation)
}

func TestAdjustContribution_SubtaskScope(t *testing.T) {
	svc, _, users := newTestService(t)
	ctx := context.Background()

	mustCreateUser(t, users, user.User{Name: "alice"})
	created, err := svc.CreateTask(ctx, task.Task{
		Name: "fortify",
		Subtasks: []task.Subtask{
			{Name: "walls", Resources: []task.ResourceLedger{{Name: "Stone", Needed: 50}}},
		},
	})
	require.NoError(t, err)

	sid := 1
	got, err := svc.AdjustContribution(ctx, created.ID, &sid, "Stone", "alice", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Subtasks[0].Resources[0].Gathered)

	_, err = svc.AdjustContribution(ctx, created.ID, &sid, "Iron", "alice", 10)
	assert.ErrorIs(t, err, task.ErrResourceNotFound)

	missing := 9
	_, err = svc.AdjustContribution(ctx, created.ID, &missing, "Stone", "alice", 10)
	assert.ErrorIs(t, err, task.ErrSubtaskNotFound)
}

func TestSetStatus_RequiresAdmin(t *testing.T) {
	svc, _, users := newTestService(t)
	ctx := context.Background()

	mustCreateUser(t, users, user.User{Name: "alice"})
	mustCreateUser(t, users, user.User{Name: "root", Admin: true})

	created, err := svc.CreateTask(ctx, task.Task{Name: "patrol"})
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, created.ID, task.StatusCancelled, "alice")
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := svc.SetStatus(ctx, created.ID, task.StatusCancelled, "root")
	require.NoError(t, err)
	assert.Equal(t, task.StatusCancelled, got.Status)

	// Admins can reopen a completed task; nothing else can.
	got, err = svc.SetStatus(ctx, created.ID, task.StatusOpen, "root")
	require.NoError(t, err)
	assert.Equal(t, task.StatusOpen, got.Status)

	_, err = svc.SetStatus(ctx, created.ID, "paused", "root")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestUpdateTask_ValidatesEnums(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, task.Task{Name: "patrol"})
	require.NoError(t, err)

	bad := task.Priority("urgent")
	_, err = svc.UpdateTask(ctx, created.ID, task.Patch{Priority: &bad})
	assert.ErrorIs(t, err, ErrInvalid)

	name := "night patrol"
	got, err := svc.UpdateTask(ctx, created.ID, task.Patch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "night patrol", got.Name)
}
