package repository

import (
	"context"
	"testing"

	"github.com/codespacehq/codespace-backend/internal/codespace"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepoCRUD(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()

	cs := &codespace.Codespace{Name: "scratch", Code: "print(1)", CreatedBy: "user-1"}
	require.NoError(t, r.Create(ctx, cs))
	require.NotEmpty(t, cs.UUID)
	require.False(t, cs.CreatedAt.IsZero())

	got, err := r.Get(ctx, cs.UUID)
	require.NoError(t, err)
	require.Equal(t, "print(1)", got.Code)
	require.Equal(t, "user-1", got.CreatedBy)

	require.NoError(t, r.Update(ctx, cs.UUID, map[string]interface{}{codespace.FieldCode: "print(2)"}))
	got2, err := r.Get(ctx, cs.UUID)
	require.NoError(t, err)
	require.Equal(t, "print(2)", got2.Code)
	require.Equal(t, "scratch", got2.Name)
	require.True(t, got2.UpdatedAt.After(got2.CreatedAt) || got2.UpdatedAt.Equal(got2.CreatedAt))

	require.NoError(t, r.Delete(ctx, cs.UUID))
	_, err = r.Get(ctx, cs.UUID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, r.Delete(ctx, cs.UUID), ErrNotFound)
}

func TestMemoryRepo_ListByOwner(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, r.Create(ctx, &codespace.Codespace{Name: "a", CreatedBy: "owner-a"}))
	}
	require.NoError(t, r.Create(ctx, &codespace.Codespace{Name: "b", CreatedBy: "owner-b"}))

	list, err := r.ListByOwner(ctx, "owner-a")
	require.NoError(t, err)
	require.Len(t, list, 3)

	list, err = r.ListByOwner(ctx, "nobody")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestMemoryRepo_GetReturnsCopy(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()

	cs := &codespace.Codespace{Name: "orig", CreatedBy: "u"}
	require.NoError(t, r.Create(ctx, cs))

	got, err := r.Get(ctx, cs.UUID)
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := r.Get(ctx, cs.UUID)
	require.NoError(t, err)
	require.Equal(t, "orig", again.Name)
}
