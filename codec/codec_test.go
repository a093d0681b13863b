package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardar-lang/ardar/chunk"
	"github.com/ardar-lang/ardar/compiler"
	"github.com/ardar-lang/ardar/parser"
	"github.com/ardar-lang/ardar/values"
	"github.com/ardar-lang/ardar/vm"
)

func buildSampleModule() *chunk.Module {
	m := chunk.NewModule()
	c := chunk.New("main")
	c.Emit(chunk.Instruction{Op: chunk.OpLoadConst, A: 0, B: 0})
	c.Emit(chunk.Instruction{Op: chunk.OpReturn, A: 0})
	c.AddConstant(values.Number(42))
	c.AddConstant(values.String("hello"))
	c.Arity = 1
	c.MaxLocals = 4
	idx := m.AddChunk(c)
	m.EntryChunkIndex = idx
	m.AddConstant(values.FromFunctionRef(&values.FunctionObject{
		ChunkIndex: idx, Arity: 1, Name: "main", UpvaluesSize: 0,
	}))
	return m
}

func TestWriteReadRoundTrip(t *testing.T) {
	m := buildSampleModule()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, m))

	got, err := Read(&buf)
	require.NoError(t, err)

	assert.Equal(t, m.Version, got.Version)
	assert.Equal(t, m.EntryChunkIndex, got.EntryChunkIndex)
	require.Len(t, got.Chunks, 1)
	assert.Equal(t, m.Chunks[0].Code, got.Chunks[0].Code)
	assert.Equal(t, m.Chunks[0].Arity, got.Chunks[0].Arity)
	assert.Equal(t, m.Chunks[0].Name, got.Chunks[0].Name)
	assert.Equal(t, m.Chunks[0].MaxLocals, got.Chunks[0].MaxLocals)
	require.Len(t, got.Chunks[0].Constants, 2)
	assert.Equal(t, float64(42), got.Chunks[0].Constants[0].Num)
	assert.Equal(t, "hello", got.Chunks[0].Constants[1].Str)

	require.Len(t, got.Constants, 1)
	fn := got.Constants[0].AsFunctionRef()
	require.NotNil(t, fn)
	assert.Equal(t, "main", fn.Name)
	assert.Equal(t, 1, fn.Arity)
}

func TestWriteReadRoundTripPreservesUpvalueDescriptors(t *testing.T) {
	m := chunk.NewModule()
	c := chunk.New("main")
	insIdx := c.Emit(chunk.Instruction{Op: chunk.OpCreateClosure, A: 0, B: 0})
	c.Emit(chunk.Instruction{Op: chunk.OpReturn, A: 0})
	c.Upvalues[insIdx] = []chunk.UpvalueDescriptor{
		{IsLocal: true, Index: 2},
		{IsLocal: false, Index: 0},
	}
	idx := m.AddChunk(c)
	m.EntryChunkIndex = idx

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, m))

	got, err := Read(&buf)
	require.NoError(t, err)

	require.Len(t, got.Chunks, 1)
	descs := got.Chunks[0].Upvalues[insIdx]
	require.Len(t, descs, 2)
	assert.Equal(t, chunk.UpvalueDescriptor{IsLocal: true, Index: 2}, descs[0])
	assert.Equal(t, chunk.UpvalueDescriptor{IsLocal: false, Index: 0}, descs[1])
}

func TestCompileWriteReadRunRoundTripWithClosure(t *testing.T) {
	src := `
		function makeCounter() {
			let n = 0;
			function next() {
				n = n + 1;
				return n;
			}
			return next;
		}
		var counter = makeCounter();
		counter();
		return counter();
	`
	prog, err := parser.ParseProgram(src)
	require.NoError(t, err)
	mod, _, err := compiler.Compile(prog, src)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, mod))

	loaded, err := Read(&buf)
	require.NoError(t, err)

	result, err := vm.New(loaded).Run()
	require.NoError(t, err)
	assert.Equal(t, 2.0, result.Num)
}

func TestReadRejectsBadMagic(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("NOTARDAR...")))
	require.Error(t, err)
	var malformed *ErrMalformed
	assert.ErrorAs(t, err, &malformed)
}

func TestReadTruncatedMagic(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("AR")))
	require.Error(t, err)
}
