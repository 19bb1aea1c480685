package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/churnkit/core"
)

func TestMemoryStore_KV(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	_, err := s.Get(ctx, "k")
	assert.True(t, core.IsStoreNotFound(err))

	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.True(t, core.IsStoreNotFound(err))
}

func TestMemoryStore_ZSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.ZAdd(ctx, "rank", 0.2, "a"))
	require.NoError(t, s.ZAdd(ctx, "rank", 0.9, "b"))
	require.NoError(t, s.ZAdd(ctx, "rank", 0.5, "c"))

	all, err := s.ZRevRange(ctx, "rank", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, all)

	top, err := s.ZRevRange(ctx, "rank", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, top)

	score, err := s.ZScore(ctx, "rank", "c")
	require.NoError(t, err)
	assert.Equal(t, 0.5, score)

	_, err = s.ZScore(ctx, "rank", "zz")
	assert.True(t, core.IsStoreNotFound(err))

	require.NoError(t, s.Delete(ctx, "rank"))
	empty, err := s.ZRevRange(ctx, "rank", 0, -1)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
