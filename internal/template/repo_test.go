package template

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepo_AssignsUUID(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	created, err := repo.Create(ctx, Template{Name: "stone run"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "stone run", got.Name)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileRepo_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	repo, err := NewFileRepo(dir)
	require.NoError(t, err)

	created, err := repo.Create(ctx, Template{
		Name:  "stone run",
		Nodes: []Node{{ID: 1, Name: "gather"}},
	})
	require.NoError(t, err)

	reopened, err := NewFileRepo(dir)
	require.NoError(t, err)

	got, err := reopened.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Nodes, 1)
	assert.Equal(t, "gather", got.Nodes[0].Name)

	require.NoError(t, reopened.Delete(ctx, created.ID))
	_, err = reopened.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
