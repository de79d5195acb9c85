package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_ExpiresEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache(0)
	c.now = func() time.Time { return now }
	defer c.Close()

	require.NoError(t, c.Set(ctx, "name:u1", []byte("Alice"), time.Minute))
	v, err := c.Get(ctx, "name:u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", string(v))

	now = now.Add(time.Minute)
	_, err = c.Get(ctx, "name:u1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	c.removeExpired()
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_GetOrSetCallsLoaderOnce(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)
	defer c.Close()

	calls := 0
	load := func(ctx context.Context) ([]byte, error) {
		calls++
		return []byte("Bob"), nil
	}
	for i := 0; i < 3; i++ {
		v, err := c.GetOrSet(ctx, "name:u2", time.Hour, load)
		require.NoError(t, err)
		assert.Equal(t, "Bob", string(v))
	}
	assert.Equal(t, 1, calls)

	_, err := c.GetOrSet(ctx, "name:u3", time.Hour, func(ctx context.Context) ([]byte, error) {
		return nil, errors.New("directory down")
	})
	require.Error(t, err)
	_, err = c.Get(ctx, "name:u3")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "k", []byte("abc"), time.Hour))
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	v[0] = 'z'

	again, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}
