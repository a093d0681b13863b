package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ardar-lang/ardar/values"
)

func TestAddConstantDedupesNumbersAndStrings(t *testing.T) {
	c := New("main")
	i1 := c.AddConstant(values.Number(1))
	i2 := c.AddConstant(values.Number(1))
	i3 := c.AddConstant(values.String("x"))
	i4 := c.AddConstant(values.String("x"))
	assert.Equal(t, i1, i2)
	assert.Equal(t, i3, i4)
	assert.Len(t, c.Constants, 2)
}

func TestEmitReturnsIndex(t *testing.T) {
	c := New("main")
	idx := c.Emit(Instruction{Op: OpLoadConst, A: 0, B: 0})
	assert.Equal(t, 0, idx)
	assert.Equal(t, 1, c.Len())
}

func TestModuleChunkLookup(t *testing.T) {
	m := NewModule()
	c := New("entry")
	idx := m.AddChunk(c)
	m.EntryChunkIndex = idx
	assert.Same(t, c, m.Chunk(idx))
	assert.Nil(t, m.Chunk(99))
}

func TestOpStringKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "Add", OpAdd.String())
	assert.Equal(t, "Unknown", Op(255).String())
}
