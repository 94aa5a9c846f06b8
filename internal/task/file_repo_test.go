package task

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRepo_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	repo, err := NewFileRepo(dir)
	require.NoError(t, err)

	created, err := repo.Create(ctx, Task{
		Name: "gather stone",
		Type: TypeGuild,
		Resources: []ResourceLedger{
			{Name: "Stone", Needed: 100, Unit: "blocks"},
		},
		Subtasks: []Subtask{{Name: "mine"}},
	})
	require.NoError(t, err)

	created.Resources[0].Adjust("alice", 40)
	require.NoError(t, repo.Save(ctx, created))

	reopened, err := NewFileRepo(dir)
	require.NoError(t, err)

	got, err := reopened.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "gather stone", got.Name)
	assert.Equal(t, 40, got.Resources[0].Gathered)
	require.Len(t, got.Subtasks, 1)
	assert.Equal(t, 1, got.Subtasks[0].ID)

	next, err := reopened.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, created.ID+1, next)
}

func TestFileRepo_GetReturnsIsolatedCopy(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	repo, err := NewFileRepo(dir)
	require.NoError(t, err)

	created, err := repo.Create(ctx, Task{
		Name:      "gather stone",
		Resources: []ResourceLedger{{Name: "Stone", Needed: 100}},
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	got.Resources[0].Adjust("alice", 40)

	fresh, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.Resources[0].Gathered)
	assert.Empty(t, fresh.Resources[0].Contributors)
}

func TestFileRepo_DeleteRemovesFromDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	repo, err := NewFileRepo(dir)
	require.NoError(t, err)

	created, err := repo.Create(ctx, Task{Name: "temp"})
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, created.ID))

	reopened, err := NewFileRepo(dir)
	require.NoError(t, err)
	_, err = reopened.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
