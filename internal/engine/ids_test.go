package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Generator_Generate(t *testing.T) {
	g := UUIDv7Generator{}

	id := g.Generate()
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, id, g.Generate())
}

func TestSequentialGenerator(t *testing.T) {
	g := NewSequentialGenerator("run")
	assert.Equal(t, "run-1", g.Generate())
	assert.Equal(t, "run-2", g.Generate())

	assert.Equal(t, "exec-1", NewSequentialGenerator("").Generate())
}
