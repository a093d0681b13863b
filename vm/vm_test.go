package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ardar-lang/ardar/compiler"
	"github.com/ardar-lang/ardar/parser"
	"github.com/ardar-lang/ardar/values"
)

func run(t *testing.T, src string) (values.Value, *VM) {
	t.Helper()
	prog, err := parser.ParseProgram(src)
	require.NoError(t, err)
	mod, _, err := compiler.Compile(prog, src)
	require.NoError(t, err)
	v := New(mod)
	result, err := v.Run()
	require.NoError(t, err)
	return result, v
}

func TestRunArithmeticPrecedence(t *testing.T) {
	result, _ := run(t, "return 1 + 2 * 3;")
	require.Equal(t, values.KindNumber, result.Kind)
	require.Equal(t, 7.0, result.Num)
}

func TestRunClosureCapturesEnclosingLocal(t *testing.T) {
	result, _ := run(t, `
		function outer() {
			let x = 10;
			function inner() { return x; }
			return inner;
		}
		var f = outer();
		return f();
	`)
	require.Equal(t, 10.0, result.Num)
}

func TestRunClassConstructorAndMethod(t *testing.T) {
	result, _ := run(t, `
		class Point {
			public x = 0;
			public constructor(x) { this.x = x; }
			public getX() { return this.x; }
		}
		var p = new Point(5);
		return p.getX();
	`)
	require.Equal(t, 5.0, result.Num)
}

func TestRunClassInheritanceSuperCall(t *testing.T) {
	result, _ := run(t, `
		class Animal {
			public name = "";
			public constructor(name) { this.name = name; }
			public speak() { return this.name; }
		}
		class Dog extends Animal {
			public constructor(name) { super(name); }
		}
		var d = new Dog("Rex");
		return d.speak();
	`)
	require.Equal(t, values.KindString, result.Kind)
	require.Equal(t, "Rex", result.Str)
}

func TestRunTryCatchBindsThrownValue(t *testing.T) {
	result, _ := run(t, `
		try {
			throw "boom";
		} catch (e) {
			return e;
		}
	`)
	require.Equal(t, "boom", result.Str)
}

func TestRunTryFinallyAlwaysRuns(t *testing.T) {
	_, v := run(t, `
		var ran = false;
		try {
			1;
		} finally {
			ran = true;
		}
	`)
	require.True(t, v.Globals()["ran"].Truthy())
}

func TestRunForOfSumsArrayElements(t *testing.T) {
	result, _ := run(t, `
		var arr = [1, 2, 3];
		var total = 0;
		for (let v of arr) {
			total = total + v;
		}
		return total;
	`)
	require.Equal(t, 6.0, result.Num)
}

func TestRunForInEnumeratesKeys(t *testing.T) {
	result, _ := run(t, `
		var obj = { a: 1, b: 2 };
		var count = 0;
		for (let k in obj) {
			count = count + 1;
		}
		return count;
	`)
	require.Equal(t, 2.0, result.Num)
}

func TestRunAsyncFunctionReturnsSettledPromise(t *testing.T) {
	result, _ := run(t, `
		async function value() { return 42; }
		return value();
	`)
	require.Equal(t, values.KindPromise, result.Kind)
	p := result.AsPromise()
	require.Equal(t, values.PromiseResolved, p.State)
	require.Equal(t, 42.0, p.Value.Num)
}

func TestRunAwaitResumesWithResolvedValue(t *testing.T) {
	result, _ := run(t, `
		async function value() { return 42; }
		async function caller() {
			let v = await value();
			return v + 1;
		}
		return await caller();
	`)
	require.Equal(t, values.KindNumber, result.Kind)
	require.Equal(t, 43.0, result.Num)
}

func TestRunBreakExitsLoop(t *testing.T) {
	result, _ := run(t, `
		var i = 0;
		while (true) {
			if (i == 3) {
				break;
			}
			i = i + 1;
		}
		return i;
	`)
	require.Equal(t, 3.0, result.Num)
}

func TestRunRecursionExceedingMaxCallDepthErrors(t *testing.T) {
	prog, err := parser.ParseProgram(`
		function loop() { return loop(); }
		return loop();
	`)
	require.NoError(t, err)
	mod, _, err := compiler.Compile(prog, "")
	require.NoError(t, err)
	v := New(mod)
	v.Config.MaxCallDepth = 16
	_, err = v.Run()
	require.Error(t, err)
}

func TestRunProtectedPropertyAccessFromOutsideThrows(t *testing.T) {
	prog, err := parser.ParseProgram(`
		class A {
			protected v = 1;
		}
		var a = new A();
		var x = a.v;
	`)
	require.NoError(t, err)
	mod, _, err := compiler.Compile(prog, "")
	require.NoError(t, err)
	_, err = New(mod).Run()
	require.Error(t, err)
	uncaught, ok := err.(*ErrUncaught)
	require.True(t, ok)
	require.Equal(t, values.KindString, uncaught.Value.Kind)
}

func TestRunPrivatePropertyAccessibleFromOwnMethod(t *testing.T) {
	result, _ := run(t, `
		class A {
			private v = 42;
			public getV() { return this.v; }
		}
		var a = new A();
		return a.getV();
	`)
	require.Equal(t, 42.0, result.Num)
}

func TestRunProtectedPropertyAccessibleFromSubclassMethod(t *testing.T) {
	result, _ := run(t, `
		class A {
			protected v = 7;
		}
		class B extends A {
			public getV() { return this.v; }
		}
		var b = new B();
		return b.getV();
	`)
	require.Equal(t, 7.0, result.Num)
}

func TestRunConstPropertyReassignmentThrows(t *testing.T) {
	prog, err := parser.ParseProgram(`
		class A {
			public const v = 1;
		}
		var a = new A();
		a.v = 2;
	`)
	require.NoError(t, err)
	mod, _, err := compiler.Compile(prog, "")
	require.NoError(t, err)
	_, err = New(mod).Run()
	require.Error(t, err)
	uncaught, ok := err.(*ErrUncaught)
	require.True(t, ok)
	require.Equal(t, values.KindString, uncaught.Value.Kind)
}

func TestRunInWalksPrototypeChainForInheritedMembers(t *testing.T) {
	result, _ := run(t, `
		class A {
			public v = 1;
		}
		class B extends A {}
		var b = new B();
		return ("v" in b);
	`)
	require.Equal(t, values.KindBoolean, result.Kind)
	require.True(t, result.Truthy())
}

func TestRunSwitchMatchesCase(t *testing.T) {
	result, _ := run(t, `
		var x = 2;
		switch (x) {
			case 1:
				return "one";
			case 2:
				return "two";
			default:
				return "other";
		}
	`)
	require.Equal(t, "two", result.Str)
}
