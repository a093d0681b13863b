package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardar-lang/ardar/chunk"
	"github.com/ardar-lang/ardar/parser"
)

func compileSource(t *testing.T, src string) *chunk.Module {
	t.Helper()
	prog, err := parser.ParseProgram(src)
	require.NoError(t, err)
	mod, _, err := Compile(prog, src)
	require.NoError(t, err)
	return mod
}

func TestCompileVarDeclarationEmitsLoadConstAndReturn(t *testing.T) {
	mod := compileSource(t, "var x = 1;")
	entry := mod.Chunks[mod.EntryChunkIndex]
	require.NotEmpty(t, entry.Code)
	assert.Equal(t, chunk.OpLoadConst, entry.Code[0].Op)
	last := entry.Code[len(entry.Code)-1]
	assert.Equal(t, chunk.OpReturn, last.Op)
}

func TestCompileIfEmitsJumpIfFalse(t *testing.T) {
	mod := compileSource(t, "if (true) { 1; } else { 2; }")
	entry := mod.Chunks[mod.EntryChunkIndex]
	found := false
	for _, ins := range entry.Code {
		if ins.Op == chunk.OpJumpIfFalse {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCompileWhileLoopsBack(t *testing.T) {
	mod := compileSource(t, "let i = 0; while (i < 3) { i = i + 1; }")
	entry := mod.Chunks[mod.EntryChunkIndex]
	hasLoop := false
	for _, ins := range entry.Code {
		if ins.Op == chunk.OpLoop {
			hasLoop = true
		}
	}
	assert.True(t, hasLoop)
}

func TestCompileFunctionDeclarationCreatesChunk(t *testing.T) {
	mod := compileSource(t, "function add(a, b) { return a + b; }")
	require.Len(t, mod.Chunks, 2)
	fnChunk := mod.Chunks[1]
	assert.Equal(t, "add", fnChunk.Name)
	assert.Equal(t, 2, fnChunk.Arity)
}

func TestCompileClosureCapturesUpvalue(t *testing.T) {
	mod := compileSource(t, `
		function outer() {
			let x = 10;
			function inner() { return x; }
			return inner;
		}
	`)
	require.Len(t, mod.Chunks, 3)
	var sawCreateClosure bool
	for idx, ins := range mod.Chunks[1].Code {
		if ins.Op == chunk.OpCreateClosure {
			sawCreateClosure = true
			descs := mod.Chunks[1].Upvalues[idx]
			require.Len(t, descs, 1)
			assert.True(t, descs[0].IsLocal)
		}
	}
	assert.True(t, sawCreateClosure)
}

func TestCompileClassEmitsNewClassAndMethod(t *testing.T) {
	mod := compileSource(t, `
		class Point {
			public x = 0;
			public constructor(x) { this.x = x; }
		}
	`)
	entry := mod.Chunks[mod.EntryChunkIndex]
	var sawNewClass, sawMethod bool
	for _, ins := range entry.Code {
		if ins.Op == chunk.OpNewClass {
			sawNewClass = true
		}
		if ins.Op == chunk.OpCreateClassPublicMethod {
			sawMethod = true
		}
	}
	assert.True(t, sawNewClass)
	assert.True(t, sawMethod)
}

func TestCompileTryEmitsTryAndEndTry(t *testing.T) {
	mod := compileSource(t, `
		try {
			throw 1;
		} catch (e) {
			2;
		} finally {
			3;
		}
	`)
	entry := mod.Chunks[mod.EntryChunkIndex]
	var sawTry, sawEndTry, sawEndFinally, sawThrow bool
	for _, ins := range entry.Code {
		switch ins.Op {
		case chunk.OpTry:
			sawTry = true
		case chunk.OpEndTry:
			sawEndTry = true
		case chunk.OpEndFinally:
			sawEndFinally = true
		case chunk.OpThrow:
			sawThrow = true
		}
	}
	assert.True(t, sawTry)
	assert.True(t, sawEndTry)
	assert.True(t, sawEndFinally)
	assert.True(t, sawThrow)
}

func TestCompileBreakOutsideLoopFails(t *testing.T) {
	prog, err := parser.ParseProgram("break;")
	require.NoError(t, err)
	_, _, err = Compile(prog, "break;")
	assert.Error(t, err)
}
