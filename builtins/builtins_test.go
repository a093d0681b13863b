package builtins_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ardar-lang/ardar/builtins"
	"github.com/ardar-lang/ardar/compiler"
	"github.com/ardar-lang/ardar/parser"
	"github.com/ardar-lang/ardar/values"
	"github.com/ardar-lang/ardar/vm"
)

func runWithBuiltins(t *testing.T, src string) (values.Value, *bytes.Buffer) {
	t.Helper()
	prog, err := parser.ParseProgram(src)
	require.NoError(t, err)
	mod, _, err := compiler.Compile(prog, src)
	require.NoError(t, err)
	v := vm.New(mod)
	var out bytes.Buffer
	v.Stdout = &out
	builtins.Install(v)
	result, err := v.Run()
	require.NoError(t, err)
	return result, &out
}

func TestMathSqrtAndPow(t *testing.T) {
	result, _ := runWithBuiltins(t, `return Math.sqrt(16) + Math.pow(2, 3);`)
	require.Equal(t, 12.0, result.Num)
}

func TestMathMinMax(t *testing.T) {
	result, _ := runWithBuiltins(t, `return Math.max(1, 5, 3) + Math.min(1, 5, 3);`)
	require.Equal(t, 6.0, result.Num)
}

func TestConsoleLogWritesToStdout(t *testing.T) {
	_, out := runWithBuiltins(t, `console.log("hello", 1);`)
	require.Equal(t, "hello 1\n", out.String())
}

func TestPrintIsConsoleLogAlias(t *testing.T) {
	_, out := runWithBuiltins(t, `print("hi");`)
	require.Equal(t, "hi\n", out.String())
}

func TestNumberCoercesStrings(t *testing.T) {
	result, _ := runWithBuiltins(t, `return Number("42");`)
	require.Equal(t, 42.0, result.Num)
}

func TestBooleanTruthiness(t *testing.T) {
	result, _ := runWithBuiltins(t, `return Boolean(0);`)
	require.False(t, result.Truthy())
}

func TestArrayConstructorFromArguments(t *testing.T) {
	result, _ := runWithBuiltins(t, `
		var a = Array(1, 2, 3);
		return a.length;
	`)
	require.Equal(t, 3.0, result.Num)
}

func TestPromiseResolveProducesSettledPromise(t *testing.T) {
	result, _ := runWithBuiltins(t, `
		var p = Promise.resolve(5);
		return await p;
	`)
	require.Equal(t, 5.0, result.Num)
}

func TestFsRootIsOpaque(t *testing.T) {
	result, _ := runWithBuiltins(t, `return fs.name;`)
	require.Equal(t, "fs", result.Str)
}
