package values

import "strconv"

// Array extends Object with numeric-string keys and a maintained `length`
// property. Composition, not inheritance: Array has-a Object.
type Array struct {
	*Object
	Elements []Value
}

func NewArray() *Array {
	a := &Array{Object: NewObject()}
	a.installMethods()
	return a
}

func NewArrayFrom(elems []Value) *Array {
	a := NewArray()
	a.Elements = elems
	return a
}

// Length matches `max(numeric_key)+1` after any index assignment; since
// Elements is kept dense (gaps filled with Undefined), this is just its len.
func (a *Array) Length() int { return len(a.Elements) }

// Get returns the element at index, or Undefined if out of range.
func (a *Array) Get(index int) Value {
	if index < 0 || index >= len(a.Elements) {
		return Undefined
	}
	return a.Elements[index]
}

// SetIndex assigns index, growing and filling intervening slots with
// Undefined as needed, and keeps `length` consistent.
func (a *Array) SetIndex(index int, v Value) {
	if index < 0 {
		return
	}
	for len(a.Elements) <= index {
		a.Elements = append(a.Elements, Undefined)
	}
	a.Elements[index] = v
}

// Push assigns index `length`.
func (a *Array) Push(v Value) int {
	a.Elements = append(a.Elements, v)
	return len(a.Elements)
}

// Pop removes the last numeric slot and decrements length.
func (a *Array) Pop() Value {
	if len(a.Elements) == 0 {
		return Undefined
	}
	last := a.Elements[len(a.Elements)-1]
	a.Elements = a.Elements[:len(a.Elements)-1]
	return last
}

// Join implements the Array.join(sep) builtin and ToString fallback.
func (a *Array) Join(sep string) string {
	var out string
	for i, v := range a.Elements {
		if i > 0 {
			out += sep
		}
		if !v.IsNullish() {
			out += v.ToString()
		}
	}
	return out
}

// Keys returns numeric indices first (stringified), then any non-numeric own
// properties, matching the "numeric-first for arrays" ordering EnumKeys
// promises. The built-in push/pop/join/reduce methods are not listed.
func (a *Array) Keys() []string {
	out := make([]string, 0, len(a.Elements))
	for i := range a.Elements {
		out = append(out, strconv.Itoa(i))
	}
	for _, k := range a.Object.Keys() {
		switch k {
		case "push", "pop", "join", "reduce":
			if slot, _ := a.Object.Own(k); slot.Value.Kind == KindNativeFunction {
				continue
			}
		}
		out = append(out, k)
	}
	return out
}

// installMethods registers push/pop/join/reduce as native-function
// properties on construction.
func (a *Array) installMethods() {
	self := a
	a.Declare(BindVar, "push", ModPublic, FromNative(&NativeFunction{
		Name: "push",
		Fn: func(this *Object, args []Value) (Value, error) {
			for _, v := range args {
				self.Push(v)
			}
			return Number(float64(self.Length())), nil
		},
	}))
	a.Declare(BindVar, "pop", ModPublic, FromNative(&NativeFunction{
		Name: "pop",
		Fn: func(this *Object, args []Value) (Value, error) {
			return self.Pop(), nil
		},
	}))
	a.Declare(BindVar, "join", ModPublic, FromNative(&NativeFunction{
		Name: "join",
		Fn: func(this *Object, args []Value) (Value, error) {
			sep := ","
			if len(args) > 0 && args[0].IsString() {
				sep = args[0].Str
			}
			return String(self.Join(sep)), nil
		},
	}))
	a.Declare(BindVar, "reduce", ModPublic, FromNative(&NativeFunction{
		Name: "reduce",
		Fn: func(this *Object, args []Value) (Value, error) {
			return self.reduce(args)
		},
	}))
}

// reduce is invoked through the Call instruction by whichever component
// (vm) owns function invocation; it takes the callback as a Value because
// values cannot depend on vm to invoke closures itself. It calls the
// callback through Invoke, which the vm package installs at startup.
func (a *Array) reduce(args []Value) (Value, error) {
	if len(args) == 0 || !args[0].Callable() {
		return Undefined, nil
	}
	fn := args[0]
	var acc Value
	start := 0
	if len(args) > 1 {
		acc = args[1]
	} else if len(a.Elements) > 0 {
		acc = a.Elements[0]
		start = 1
	} else {
		return Undefined, nil
	}
	for i := start; i < len(a.Elements); i++ {
		result, err := Invoke(fn, nil, []Value{acc, a.Elements[i], Number(float64(i))})
		if err != nil {
			return Undefined, err
		}
		acc = result
	}
	return acc, nil
}
