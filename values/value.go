// Package values implements the tagged-union runtime value model shared by
// the compiler's constant pool, the module codec, and the VM.
package values

import (
	"fmt"
	"math"
	"strconv"
)

// Kind discriminates the single active payload carried by a Value.
type Kind byte

const (
	KindNumber Kind = iota
	KindString
	KindBoolean
	KindNull
	KindUndefined
	KindObject
	KindArray
	KindClass
	KindFunctionRef
	KindClosure
	KindNativeFunction
	KindPromise
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	case KindNull:
		return "null"
	case KindUndefined:
		return "undefined"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindClass:
		return "class"
	case KindFunctionRef:
		return "function"
	case KindClosure:
		return "function"
	case KindNativeFunction:
		return "function"
	case KindPromise:
		return "promise"
	default:
		return "unknown"
	}
}

// Value is the tagged union every register, constant-pool slot and property
// holds. Exactly one of the fields below is meaningful for a given Kind:
// Num for KindNumber/KindBoolean, Str for KindString, Data for the
// handle-carrying kinds (Object, Array, Class, FunctionRef, Closure,
// NativeFunction, Promise).
type Value struct {
	Kind Kind
	Num  float64
	Str  string
	Data interface{}
}

func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }
func String(s string) Value { return Value{Kind: KindString, Str: s} }
func Boolean(b bool) Value {
	if b {
		return Value{Kind: KindBoolean, Num: 1}
	}
	return Value{Kind: KindBoolean, Num: 0}
}

var Null = Value{Kind: KindNull}
var Undefined = Value{Kind: KindUndefined}

func FromObject(o *Object) Value               { return Value{Kind: KindObject, Data: o} }
func FromArray(a *Array) Value                  { return Value{Kind: KindArray, Data: a} }
func FromClass(c *Class) Value                  { return Value{Kind: KindClass, Data: c} }
func FromFunctionRef(f *FunctionObject) Value   { return Value{Kind: KindFunctionRef, Data: f} }
func FromClosure(c *Closure) Value              { return Value{Kind: KindClosure, Data: c} }
func FromNative(n *NativeFunction) Value        { return Value{Kind: KindNativeFunction, Data: n} }
func FromPromise(p *Promise) Value              { return Value{Kind: KindPromise, Data: p} }

func (v Value) IsNumber() bool    { return v.Kind == KindNumber }
func (v Value) IsString() bool    { return v.Kind == KindString }
func (v Value) IsBoolean() bool   { return v.Kind == KindBoolean }
func (v Value) IsNull() bool      { return v.Kind == KindNull }
func (v Value) IsUndefined() bool { return v.Kind == KindUndefined }
func (v Value) IsNullish() bool   { return v.Kind == KindNull || v.Kind == KindUndefined }

func (v Value) AsObject() *Object { o, _ := v.Data.(*Object); return o }
func (v Value) AsArray() *Array   { a, _ := v.Data.(*Array); return a }
func (v Value) AsClass() *Class   { c, _ := v.Data.(*Class); return c }
func (v Value) AsClosure() *Closure {
	c, _ := v.Data.(*Closure)
	return c
}
func (v Value) AsFunctionRef() *FunctionObject {
	f, _ := v.Data.(*FunctionObject)
	return f
}
func (v Value) AsNative() *NativeFunction {
	n, _ := v.Data.(*NativeFunction)
	return n
}
func (v Value) AsPromise() *Promise { p, _ := v.Data.(*Promise); return p }

// Callable reports whether the value can appear in callee position of Call.
func (v Value) Callable() bool {
	switch v.Kind {
	case KindClosure, KindNativeFunction, KindFunctionRef:
		return true
	default:
		return false
	}
}

// Truthy implements the boolean coercion used by JumpIfFalse, LogicalNot,
// LogicalAnd/Or.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindNull, KindUndefined:
		return false
	case KindBoolean:
		return v.Num != 0
	case KindNumber:
		return v.Num != 0 && !math.IsNaN(v.Num)
	case KindString:
		return v.Str != ""
	default:
		return true
	}
}

// ToString implements the total string coercion used by Add (string
// concatenation side), template literals and loose equality.
func (v Value) ToString() string {
	switch v.Kind {
	case KindNumber:
		return formatNumber(v.Num)
	case KindString:
		return v.Str
	case KindBoolean:
		if v.Num != 0 {
			return "true"
		}
		return "false"
	case KindNull:
		return "null"
	case KindUndefined:
		return "undefined"
	case KindArray:
		return v.AsArray().Join(",")
	case KindObject:
		return "[object Object]"
	case KindClass:
		return "[class " + v.AsClass().Name + "]"
	case KindFunctionRef:
		return "[function " + v.AsFunctionRef().Name + "]"
	case KindClosure:
		return "[function " + v.AsClosure().Function.Name + "]"
	case KindNativeFunction:
		return "[native function " + v.AsNative().Name + "]"
	case KindPromise:
		return "[object Promise]"
	default:
		return ""
	}
}

func formatNumber(n float64) string {
	if math.IsNaN(n) {
		return "NaN"
	}
	if math.IsInf(n, 1) {
		return "Infinity"
	}
	if math.IsInf(n, -1) {
		return "-Infinity"
	}
	if n == math.Trunc(n) && math.Abs(n) < 1e21 {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// ToNumber coerces toward the numeric side of Add/arithmetic ops.
func (v Value) ToNumber() float64 {
	switch v.Kind {
	case KindNumber:
		return v.Num
	case KindBoolean:
		return v.Num
	case KindString:
		if v.Str == "" {
			return 0
		}
		n, err := strconv.ParseFloat(v.Str, 64)
		if err != nil {
			return math.NaN()
		}
		return n
	case KindNull:
		return 0
	default:
		return math.NaN()
	}
}

// TypeOf implements the `typeof` operator.
func (v Value) TypeOf() string {
	switch v.Kind {
	case KindClass:
		return "class"
	case KindObject, KindArray, KindNull:
		return "object"
	default:
		return v.Kind.String()
	}
}

// handle returns the identity pointer backing object-like kinds, used by
// StrictEqual and `in`/`instanceof` resolution.
func (v Value) handle() interface{} {
	return v.Data
}

// StrictEquals implements `===`: same tag required, object-likes compared by
// identity.
func StrictEquals(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNumber, KindBoolean:
		return a.Num == b.Num
	case KindString:
		return a.Str == b.Str
	case KindNull, KindUndefined:
		return true
	default:
		return a.handle() == b.handle()
	}
}

// LooseEquals implements `==`: same-kind operands compare via StrictEquals,
// booleans compare numerically against the other operand, and any other
// cross-type comparison falls back to comparing both operands' toString.
// Diverges from StrictEquals exactly on cross-type comparisons, e.g.
// 0 == "0" is true (both stringify to "0"), 0 === "0" is false.
func LooseEquals(a, b Value) bool {
	if a.Kind == b.Kind {
		return StrictEquals(a, b)
	}
	if a.IsNullish() && b.IsNullish() {
		return true
	}
	if a.IsNullish() || b.IsNullish() {
		return false
	}
	if a.Kind == KindBoolean || b.Kind == KindBoolean {
		return a.ToNumber() == b.ToNumber()
	}
	return a.ToString() == b.ToString()
}

// GoString supports %v/%#v formatting during debugging and disassembly.
func (v Value) GoString() string {
	return fmt.Sprintf("Value{%s %q}", v.Kind, v.ToString())
}
