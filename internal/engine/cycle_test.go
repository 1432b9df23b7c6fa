package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierGuard_FirstTierMustBeZero(t *testing.T) {
	g := NewTierGuard()

	err := g.Advance("L1", 1)
	require.Error(t, err)
	assert.True(t, IsInvalidState(err))

	require.NoError(t, g.Advance("L1", 0))
	last, ok := g.Last("L1")
	require.True(t, ok)
	assert.Equal(t, 0, last)
}

func TestTierGuard_StrictProgression(t *testing.T) {
	g := NewTierGuard()

	require.NoError(t, g.Advance("L1", 0))
	require.NoError(t, g.Advance("L1", 1))

	assert.True(t, IsInvalidState(g.Advance("L1", 1)), "revisit rejected")
	assert.True(t, IsInvalidState(g.Advance("L1", 3)), "skip rejected")
	assert.True(t, IsInvalidState(g.Advance("L1", 0)), "restart rejected")

	require.NoError(t, g.Advance("L1", 2))
}

func TestTierGuard_LoadsAreIndependent(t *testing.T) {
	g := NewTierGuard()

	require.NoError(t, g.Advance("L1", 0))
	require.NoError(t, g.Advance("L1", 1))
	require.NoError(t, g.Advance("L2", 0))

	assert.Equal(t, 2, g.Size())
}

func TestTierGuard_SeedAndClear(t *testing.T) {
	g := NewTierGuard()

	g.Seed("L1", 2)
	assert.True(t, IsInvalidState(g.Advance("L1", 2)))
	require.NoError(t, g.Advance("L1", 3))

	g.Clear("L1")
	_, ok := g.Last("L1")
	assert.False(t, ok)
	assert.Equal(t, 0, g.Size())
}
