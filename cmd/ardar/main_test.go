package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ardar-lang/ardar/builtins"
	"github.com/ardar-lang/ardar/codec"
	"github.com/ardar-lang/ardar/compiler"
	"github.com/ardar-lang/ardar/parser"
	"github.com/ardar-lang/ardar/vm"
)

func TestLoadModuleFromSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.ardar")
	require.NoError(t, os.WriteFile(path, []byte("return 1 + 1;"), 0o644))

	mod, err := loadModule(path)
	require.NoError(t, err)

	v := vm.New(mod)
	builtins.Install(v)
	result, err := v.Run()
	require.NoError(t, err)
	require.Equal(t, 2.0, result.Num)
}

func TestLoadModuleFromCompiledBytecode(t *testing.T) {
	prog, err := parser.ParseProgram("return 21 * 2;")
	require.NoError(t, err)
	mod, _, err := compiler.Compile(prog, "")
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "prog.ardarc")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, codec.Write(f, mod))
	require.NoError(t, f.Close())

	loaded, err := loadModule(path)
	require.NoError(t, err)
	v := vm.New(loaded)
	result, err := v.Run()
	require.NoError(t, err)
	require.Equal(t, 42.0, result.Num)
}
