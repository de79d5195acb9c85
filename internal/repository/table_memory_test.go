package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTableStore_HookRejectsWholeBatch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryTableStore()

	require.NoError(t, s.ApplyBatch(ctx, "cards", Batch{Upserts: []Row{{Key: "a", Cells: []string{"1"}}}}))

	boom := errors.New("sheet unreachable")
	s.SetWriteHook(func(table string, n int, batch Batch) error {
		if n == 2 {
			return boom
		}
		return nil
	})

	err := s.ApplyBatch(ctx, "cards", Batch{
		Upserts: []Row{{Key: "b", Cells: []string{"2"}}},
		Deletes: []string{"a"},
	})
	require.ErrorIs(t, err, boom)

	rows, err := s.LoadTable(ctx, "cards")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0].Key)
	assert.Equal(t, 2, s.Writes("cards"))

	require.NoError(t, s.ApplyBatch(ctx, "cards", Batch{Deletes: []string{"a"}}))
	rows, err = s.LoadTable(ctx, "cards")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMemoryTableStore_LoadReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryTableStore()
	require.NoError(t, s.ApplyBatch(ctx, "t", Batch{Upserts: []Row{{Key: "a", Cells: []string{"x"}}}}))

	rows, err := s.LoadTable(ctx, "t")
	require.NoError(t, err)
	rows[0].Cells[0] = "mutated"

	again, err := s.LoadTable(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, "x", again[0].Cells[0])
}
