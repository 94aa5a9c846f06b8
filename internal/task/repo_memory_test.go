package task

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepo_CreateGetList(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	t1, err := repo.Create(ctx, Task{Name: "gather stone", Type: TypeGuild})
	require.NoError(t, err)
	assert.Equal(t, 1, t1.ID)

	t2, err := repo.Create(ctx, Task{Name: "scout ruins", Type: TypeMember})
	require.NoError(t, err)
	assert.Equal(t, 2, t2.ID)

	got, err := repo.Get(ctx, t1.ID)
	require.NoError(t, err)
	assert.Equal(t, "gather stone", got.Name)

	list, err := repo.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestMemoryRepo_NextIDIsMaxPlusOne(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		_, err := repo.Create(ctx, Task{Name: name})
		require.NoError(t, err)
	}
	require.NoError(t, repo.Delete(ctx, 2))

	next, err := repo.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, next)

	// Deleting the highest id makes its number reusable.
	require.NoError(t, repo.Delete(ctx, 3))
	next, err = repo.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, next)
}

func TestMemoryRepo_GetUnknownIsNotFound(t *testing.T) {
	repo := NewMemoryRepo()

	_, err := repo.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.Save(context.Background(), Task{ID: 42})
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.Delete(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepo_UpdateAppliesPatch(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	created, err := repo.Create(ctx, Task{Name: "old name", Description: "keep me"})
	require.NoError(t, err)

	name := "new name"
	prio := PriorityHigh
	got, err := repo.Update(ctx, created.ID, Patch{Name: &name, Priority: &prio})
	require.NoError(t, err)

	assert.Equal(t, "new name", got.Name)
	assert.Equal(t, PriorityHigh, got.Priority)
	assert.Equal(t, "keep me", got.Description)
}

func TestMemoryRepo_UpdateReplacesSubtaskForest(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	created, err := repo.Create(ctx, Task{
		Name:     "build wall",
		Subtasks: []Subtask{{Name: "old"}},
	})
	require.NoError(t, err)

	replacement := []Subtask{
		{ID: 5, Name: "kept id"},
		{Name: "fresh"},
	}
	got, err := repo.Update(ctx, created.ID, Patch{Subtasks: &replacement})
	require.NoError(t, err)

	require.Len(t, got.Subtasks, 2)
	assert.Equal(t, 5, got.Subtasks[0].ID)
	assert.Equal(t, 6, got.Subtasks[1].ID)
}

func TestMemoryRepo_UpdateRejectsDuplicateSubtaskIDs(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	created, err := repo.Create(ctx, Task{Name: "build wall"})
	require.NoError(t, err)

	replacement := []Subtask{{ID: 2}, {ID: 2}}
	_, err = repo.Update(ctx, created.ID, Patch{Subtasks: &replacement})
	assert.ErrorIs(t, err, ErrDuplicateSubtaskID)

	// The stored aggregate is untouched after a rejected patch.
	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Subtasks)
}

func TestMemoryRepo_GetReturnsIsolatedCopy(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	created, err := repo.Create(ctx, Task{
		Name:      "gather stone",
		Resources: []ResourceLedger{{Name: "Stone", Needed: 100}},
		Subtasks:  []Subtask{{Name: "mine"}},
	})
	require.NoError(t, err)

	// Mutations on a fetched copy must stay invisible until Save.
	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	got.Resources[0].Adjust("alice", 40)
	got.Subtasks[0].ToggleClaim("alice")
	got.ToggleClaim("alice")

	fresh, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.Resources[0].Gathered)
	assert.Empty(t, fresh.Resources[0].Contributors)
	assert.Empty(t, fresh.Subtasks[0].AssignedTo)
	assert.Equal(t, StatusOpen, fresh.Status)

	// The value handed back by Create is detached from the store too.
	created.Resources[0].Adjust("bob", 10)
	fresh, err = repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, fresh.Resources[0].Contributors)
}

func TestMemoryRepo_GetComputesDependencyEligibility(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	created, err := repo.Create(ctx, Task{
		Name: "smelting chain",
		Subtasks: []Subtask{
			{ID: 1, Name: "mine"},
			{ID: 2, Name: "smelt", Dependencies: []int{1}},
		},
	})
	require.NoError(t, err)
	assert.True(t, created.Subtasks[0].DependenciesMet)
	assert.False(t, created.Subtasks[1].DependenciesMet)

	created.Subtasks[0].Completed = true
	require.NoError(t, repo.Save(ctx, created))

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.Subtasks[1].DependenciesMet)
}

func TestMemoryRepo_ListFilters(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	_, err := repo.Create(ctx, Task{Name: "g", Type: TypeGuild, CreatedBy: "alice"})
	require.NoError(t, err)
	m, err := repo.Create(ctx, Task{Name: "m", Type: TypeMember, CreatedBy: "bob"})
	require.NoError(t, err)

	m.ToggleClaim("carol")
	require.NoError(t, repo.Save(ctx, m))

	byType, err := repo.List(ctx, ListFilter{Type: "guild"})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "g", byType[0].Name)

	byStatus, err := repo.List(ctx, ListFilter{Status: "in_progress"})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "m", byStatus[0].Name)

	byAssignee, err := repo.List(ctx, ListFilter{AssignedTo: "carol"})
	require.NoError(t, err)
	assert.Len(t, byAssignee, 1)

	byCreator, err := repo.List(ctx, ListFilter{CreatedBy: "alice"})
	require.NoError(t, err)
	assert.Len(t, byCreator, 1)

	all, err := repo.List(ctx, ListFilter{Status: "all", Type: "all"})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
