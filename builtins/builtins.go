// Package builtins installs the host-provided root objects: Math, console,
// fs, Server, Promise, String, Number, Boolean, Array, print. Only their
// names and call signatures are contracted — behaviour is otherwise opaque
// to the VM core, so these are ordinary values.NativeFunction/values.Object
// installations rather than anything the compiler or VM needs to know
// about directly.
package builtins

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"strconv"

	"github.com/ardar-lang/ardar/eventloop"
	"github.com/ardar-lang/ardar/values"
)

// Host is the subset of *vm.VM builtins need — Globals (to install roots),
// a Stdout writer (console.log/print) and the event loop (Promise.resolve/
// reject settle through it). Declared here instead of importing the vm
// package by name so builtins stays usable from a script harness that
// doesn't want the whole VM; the real *vm.VM already satisfies it
// structurally.
type Host interface {
	Globals() map[string]values.Value
	Writer() io.Writer
	EventLoop() *eventloop.Loop
}

// Install registers every root object onto host's globals.
func Install(host Host) {
	g := host.Globals()
	g["Math"] = values.FromObject(mathRoot())
	g["console"] = values.FromObject(consoleRoot(host))
	g["print"] = consolePrintFn(host)
	g["String"] = stringRoot()
	g["Number"] = numberRoot()
	g["Boolean"] = booleanRoot()
	g["Array"] = arrayRoot()
	g["Promise"] = values.FromObject(promiseRoot(host))
	g["fs"] = values.FromObject(opaqueRoot("fs"))
	g["Server"] = values.FromObject(opaqueRoot("Server"))
}

func native(name string, fn func(this *values.Object, args []values.Value) (values.Value, error)) values.Value {
	return values.FromNative(&values.NativeFunction{Name: name, Fn: fn})
}

func arg(args []values.Value, i int) values.Value {
	if i < len(args) {
		return args[i]
	}
	return values.Undefined
}

// mathRoot mirrors the host's `Math` namespace: a plain object whose own
// properties are native functions, no instance to construct.
func mathRoot() *values.Object {
	o := values.NewObject()
	unary := func(name string, fn func(float64) float64) {
		o.Declare(values.BindConst, name, values.ModPublic, native(name, func(_ *values.Object, args []values.Value) (values.Value, error) {
			return values.Number(fn(arg(args, 0).ToNumber())), nil
		}))
	}
	unary("abs", math.Abs)
	unary("floor", math.Floor)
	unary("ceil", math.Ceil)
	unary("round", math.Round)
	unary("sqrt", math.Sqrt)
	unary("trunc", math.Trunc)
	unary("sign", func(n float64) float64 {
		switch {
		case n > 0:
			return 1
		case n < 0:
			return -1
		default:
			return 0
		}
	})
	o.Declare(values.BindConst, "pow", values.ModPublic, native("pow", func(_ *values.Object, args []values.Value) (values.Value, error) {
		return values.Number(math.Pow(arg(args, 0).ToNumber(), arg(args, 1).ToNumber())), nil
	}))
	o.Declare(values.BindConst, "max", values.ModPublic, native("max", func(_ *values.Object, args []values.Value) (values.Value, error) {
		return values.Number(reduceNumbers(args, math.Inf(-1), math.Max)), nil
	}))
	o.Declare(values.BindConst, "min", values.ModPublic, native("min", func(_ *values.Object, args []values.Value) (values.Value, error) {
		return values.Number(reduceNumbers(args, math.Inf(1), math.Min)), nil
	}))
	o.Declare(values.BindConst, "random", values.ModPublic, native("random", func(_ *values.Object, args []values.Value) (values.Value, error) {
		return values.Number(rand.Float64()), nil
	}))
	o.Declare(values.BindConst, "PI", values.ModPublic, values.Number(math.Pi))
	o.Declare(values.BindConst, "E", values.ModPublic, values.Number(math.E))
	return o
}

func reduceNumbers(args []values.Value, start float64, combine func(a, b float64) float64) float64 {
	acc := start
	for _, v := range args {
		acc = combine(acc, v.ToNumber())
	}
	return acc
}

// consoleRoot distinguishes stdout (`log`) from stderr (`error`).
func consoleRoot(host Host) *values.Object {
	o := values.NewObject()
	o.Declare(values.BindConst, "log", values.ModPublic, consolePrintFn(host))
	o.Declare(values.BindConst, "error", values.ModPublic, native("error", func(_ *values.Object, args []values.Value) (values.Value, error) {
		fmt.Fprintln(os.Stderr, joinArgs(args))
		return values.Undefined, nil
	}))
	return o
}

func consolePrintFn(host Host) values.Value {
	return native("log", func(_ *values.Object, args []values.Value) (values.Value, error) {
		fmt.Fprintln(host.Writer(), joinArgs(args))
		return values.Undefined, nil
	})
}

func joinArgs(args []values.Value) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		out += a.ToString()
	}
	return out
}

func stringRoot() values.Value {
	return native("String", func(_ *values.Object, args []values.Value) (values.Value, error) {
		return values.String(arg(args, 0).ToString()), nil
	})
}

func numberRoot() values.Value {
	return native("Number", func(_ *values.Object, args []values.Value) (values.Value, error) {
		v := arg(args, 0)
		if v.Kind == values.KindString {
			n, err := strconv.ParseFloat(v.Str, 64)
			if err != nil {
				return values.Number(math.NaN()), nil
			}
			return values.Number(n), nil
		}
		return values.Number(v.ToNumber()), nil
	})
}

func booleanRoot() values.Value {
	return native("Boolean", func(_ *values.Object, args []values.Value) (values.Value, error) {
		return values.Boolean(arg(args, 0).Truthy()), nil
	})
}

// arrayRoot is callable as `Array(1, 2, 3)`, constructing an array from its
// arguments, matching the common scripting-language convention.
func arrayRoot() values.Value {
	return native("Array", func(_ *values.Object, args []values.Value) (values.Value, error) {
		return values.FromArray(values.NewArrayFrom(append([]values.Value{}, args...))), nil
	})
}

// promiseRoot exposes `Promise.resolve`/`Promise.reject` factories.
// `new Promise(executor)` is not supported: the register VM's
// InvokeConstructor path only dispatches to user-defined classes, not
// native constructors, and async functions already produce promises for
// script code to await/then/catch/finally without it.
func promiseRoot(host Host) *values.Object {
	o := values.NewObject()
	o.Declare(values.BindConst, "resolve", values.ModPublic, native("resolve", func(_ *values.Object, args []values.Value) (values.Value, error) {
		p := values.NewPendingPromise()
		eventloop.ResolvePromise(host.EventLoop(), p, arg(args, 0))
		return values.FromPromise(p), nil
	}))
	o.Declare(values.BindConst, "reject", values.ModPublic, native("reject", func(_ *values.Object, args []values.Value) (values.Value, error) {
		p := values.NewPendingPromise()
		eventloop.RejectPromise(host.EventLoop(), p, arg(args, 0))
		return values.FromPromise(p), nil
	}))
	return o
}

// opaqueRoot stands in for `fs`/`Server`: named as a root but behaviour is
// opaque to the core, so neither touches the filesystem or network —
// file-system and HTTP builtins are out of scope for this module.
func opaqueRoot(name string) *values.Object {
	o := values.NewObject()
	o.Declare(values.BindConst, "name", values.ModPublic, values.String(name))
	return o
}
