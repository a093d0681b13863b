package vm

import (
	"github.com/ardar-lang/ardar/chunk"
	"github.com/ardar-lang/ardar/eventloop"
	"github.com/ardar-lang/ardar/values"
)

func (v *VM) propertyKey(f *frame, reg uint8) string {
	return f.get(reg).ToString()
}

// doCall drains f's pending PushArg/PushSpreadArg operands as the callee's
// argument list, then invokes fn.
func (v *VM) doCall(f *frame, fn values.Value, this *values.Object, _ int) (values.Value, *values.Value, error) {
	args := f.args
	f.args = nil
	if fn.Kind == values.KindNativeFunction {
		result, err := fn.AsNative().Fn(this, args)
		if err != nil {
			thrown := values.String(err.Error())
			return values.Undefined, &thrown, nil
		}
		return result, nil, nil
	}
	if fn.Kind != values.KindClosure {
		thrown := values.String("value is not callable")
		return values.Undefined, &thrown, nil
	}
	cl := fn.AsClosure()
	c := v.module.Chunk(cl.Function.ChunkIndex)
	if c == nil {
		thrown := values.String("call to closure with unknown chunk")
		return values.Undefined, &thrown, nil
	}
	if c.MaxLocals > v.Config.MaxRegisters {
		thrown := values.String("chunk requests more registers than the configured maximum")
		return values.Undefined, &thrown, nil
	}
	nf := newFrame(cl, c)
	if this != nil {
		nf.this = this
	}
	for i, a := range args {
		if i < len(nf.regs) {
			nf.regs[i] = a
		}
	}
	result, err := v.runFrame(nf)
	if cl.Function.IsAsync {
		// Async functions return a promise that resolves with the body's
		// return value or rejects on an uncaught throw. The body already
		// ran to completion above (Await pumps the loop synchronously, see
		// v.await), so the promise settles immediately.
		p := values.NewPendingPromise()
		if err != nil {
			uncaught, ok := err.(*ErrUncaught)
			if !ok {
				return values.Undefined, nil, err
			}
			eventloop.RejectPromise(v.Loop, p, uncaught.Value)
		} else {
			eventloop.ResolvePromise(v.Loop, p, result)
		}
		return values.FromPromise(p), nil, nil
	}
	if err != nil {
		if uncaught, ok := err.(*ErrUncaught); ok {
			return values.Undefined, &uncaught.Value, nil
		}
		return values.Undefined, nil, err
	}
	return result, nil, nil
}

func (f *frame) superClosure() values.Value {
	if f.this == nil || f.this.Class == nil || f.this.Class.Super == nil {
		return values.Undefined
	}
	for cur := f.this.Class.Super; cur != nil; cur = cur.Super {
		if slot, ok := cur.InstanceSlots()["constructor"]; ok && slot.Value.Kind == values.KindClosure {
			return values.FromClosure(slot.Value.AsClosure().Rebind(f.this))
		}
	}
	return values.Undefined
}

// bindUpvalues resolves a child closure's upvalue descriptors against the
// enclosing frame: a local descriptor opens a pointer into f's own register;
// a non-local descriptor forwards the enclosing closure's already-resolved
// upvalue.
func (v *VM) bindUpvalues(f *frame, descs []chunk.UpvalueDescriptor) []*values.Upvalue {
	out := make([]*values.Upvalue, len(descs))
	for i, d := range descs {
		if d.IsLocal {
			out[i] = values.NewOpenUpvalue(&f.regs[d.Index])
		} else {
			out[i] = f.closure.Upvalues[d.Index]
		}
	}
	return out
}

// installInstanceSlots copies the class's declared instance properties (and
// its ancestors', base class first so a subclass's own declarations win)
// onto a freshly constructed instance, rebinding any method closures to it.
func installInstanceSlots(inst *values.Object, cls *values.Class) {
	var chain []*values.Class
	for cur := cls; cur != nil; cur = cur.Super {
		chain = append(chain, cur)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		cur := chain[i]
		for name, slot := range cur.InstanceVar {
			inst.Declare(values.BindVar, name, slot.Mods, rebindIfClosure(slot.Value, inst))
		}
		for name, slot := range cur.InstanceConst {
			inst.Declare(values.BindConst, name, slot.Mods, rebindIfClosure(slot.Value, inst))
		}
	}
}

func rebindIfClosure(v values.Value, inst *values.Object) values.Value {
	if v.Kind == values.KindClosure {
		return values.FromClosure(v.AsClosure().Rebind(inst))
	}
	return v
}

// getProperty resolves target.name, enforcing the declared visibility of
// whatever slot is found against the frame's bound receiver. A violation
// returns a thrown value instead of the property's value.
func (v *VM) getProperty(f *frame, target values.Value, name string) (values.Value, *values.Value) {
	switch target.Kind {
	case values.KindObject:
		owner, slot := target.AsObject().Lookup(name)
		if slot == nil {
			return values.Undefined, nil
		}
		if thrown := v.checkVisibility(f, owner.Class, slot.Mods, name); thrown != nil {
			return values.Undefined, thrown
		}
		return slot.Value, nil
	case values.KindArray:
		arr := target.AsArray()
		if name == "length" {
			return values.Number(float64(arr.Length())), nil
		}
		if n, ok := asIndex(name); ok {
			return arr.Get(n), nil
		}
		_, slot := arr.Object.Lookup(name)
		if slot == nil {
			return values.Undefined, nil
		}
		return slot.Value, nil
	case values.KindClass:
		owner, slot := target.AsClass().LookupStatic(name)
		if slot == nil {
			return values.Undefined, nil
		}
		if thrown := v.checkVisibility(f, owner, slot.Mods, name); thrown != nil {
			return values.Undefined, thrown
		}
		return slot.Value, nil
	case values.KindClosure:
		if name == "name" {
			return values.String(target.AsClosure().Function.Name), nil
		}
	case values.KindString:
		if name == "length" {
			return values.Number(float64(len([]rune(target.Str)))), nil
		}
	case values.KindPromise:
		return v.promiseMethod(target.AsPromise(), name), nil
	}
	return values.Undefined, nil
}

// checkVisibility enforces public/protected/private access against the
// frame's currently bound receiver: protected requires the receiver's class
// to derive from (or be) ownerClass, private requires it to be exactly
// ownerClass. ownerClass nil (a plain object with no declaring class) always
// passes, since only class members carry enforceable visibility.
func (v *VM) checkVisibility(f *frame, ownerClass *values.Class, mods values.Modifier, name string) *values.Value {
	vis := mods.Visibility()
	if vis == values.ModPublic || ownerClass == nil {
		return nil
	}
	var accessor *values.Class
	if f.this != nil {
		accessor = f.this.Class
	}
	switch vis {
	case values.ModPrivate:
		if accessor == ownerClass {
			return nil
		}
	case values.ModProtected:
		if accessor != nil && accessor.DerivesFrom(ownerClass) {
			return nil
		}
	default:
		return nil
	}
	thrown := values.String("visibility error: '" + name + "' is not accessible here")
	return &thrown
}

// promiseMethod exposes then/catch/finally as native callables bound to v's
// event loop.
func (v *VM) promiseMethod(p *values.Promise, name string) values.Value {
	switch name {
	case "then":
		return values.FromNative(&values.NativeFunction{Name: "then", Fn: func(_ *values.Object, args []values.Value) (values.Value, error) {
			onResolve, onReject := argOrUndefined(args, 0), argOrUndefined(args, 1)
			return values.FromPromise(eventloop.Then(v.Loop, p, onResolve, onReject)), nil
		}})
	case "catch":
		return values.FromNative(&values.NativeFunction{Name: "catch", Fn: func(_ *values.Object, args []values.Value) (values.Value, error) {
			return values.FromPromise(eventloop.Catch(v.Loop, p, argOrUndefined(args, 0))), nil
		}})
	case "finally":
		return values.FromNative(&values.NativeFunction{Name: "finally", Fn: func(_ *values.Object, args []values.Value) (values.Value, error) {
			return values.FromPromise(eventloop.Finally(v.Loop, p, argOrUndefined(args, 0))), nil
		}})
	}
	return values.Undefined
}

func argOrUndefined(args []values.Value, i int) values.Value {
	if i < len(args) {
		return args[i]
	}
	return values.Undefined
}

// setProperty stores val at target.name, enforcing the same visibility rule
// as getProperty and surfacing a const-reassignment as a thrown value rather
// than silently discarding it.
func (v *VM) setProperty(f *frame, target values.Value, name string, val values.Value) *values.Value {
	switch target.Kind {
	case values.KindObject:
		obj := target.AsObject()
		if owner, slot := obj.Lookup(name); slot != nil {
			if thrown := v.checkVisibility(f, owner.Class, slot.Mods, name); thrown != nil {
				return thrown
			}
		}
		if err := obj.Set(name, val); err != nil {
			thrown := values.String(err.Error())
			return &thrown
		}
	case values.KindArray:
		arr := target.AsArray()
		if n, ok := asIndex(name); ok {
			arr.SetIndex(n, val)
			return nil
		}
		if err := arr.Object.Set(name, val); err != nil {
			thrown := values.String(err.Error())
			return &thrown
		}
	}
	return nil
}

func asIndex(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

func objectLength(v values.Value) int {
	switch v.Kind {
	case values.KindArray:
		return v.AsArray().Length()
	case values.KindObject:
		return v.AsObject().Count()
	default:
		return 0
	}
}

func keysArray(v values.Value) *values.Array {
	out := values.NewArray()
	switch v.Kind {
	case values.KindArray:
		for _, k := range v.AsArray().Keys() {
			out.Push(values.String(k))
		}
	case values.KindObject:
		for _, k := range v.AsObject().Keys() {
			out.Push(values.String(k))
		}
	}
	return out
}

func classPropertyModifiers(op chunk.Op) (values.Modifier, bool, values.BindingKind) {
	switch op {
	case chunk.OpCreateClassPublicPropertyVar:
		return values.ModPublic, false, values.BindVar
	case chunk.OpCreateClassPublicPropertyConst:
		return values.ModPublic, false, values.BindConst
	case chunk.OpCreateClassProtectedPropertyVar:
		return values.ModProtected, false, values.BindVar
	case chunk.OpCreateClassProtectedPropertyConst:
		return values.ModProtected, false, values.BindConst
	case chunk.OpCreateClassPrivatePropertyVar:
		return values.ModPrivate, false, values.BindVar
	case chunk.OpCreateClassPrivatePropertyConst:
		return values.ModPrivate, false, values.BindConst
	case chunk.OpCreateClassPublicStaticPropertyVar:
		return values.ModPublic | values.ModStatic, true, values.BindVar
	case chunk.OpCreateClassPublicStaticPropertyConst:
		return values.ModPublic | values.ModStatic, true, values.BindConst
	case chunk.OpCreateClassProtectedStaticPropertyVar:
		return values.ModProtected | values.ModStatic, true, values.BindVar
	case chunk.OpCreateClassProtectedStaticPropertyConst:
		return values.ModProtected | values.ModStatic, true, values.BindConst
	case chunk.OpCreateClassPrivateStaticPropertyVar:
		return values.ModPrivate | values.ModStatic, true, values.BindVar
	default:
		return values.ModPrivate | values.ModStatic, true, values.BindConst
	}
}

func classMethodModifiers(op chunk.Op) (values.Modifier, bool) {
	switch op {
	case chunk.OpCreateClassPublicMethod:
		return values.ModPublic, false
	case chunk.OpCreateClassProtectedMethod:
		return values.ModProtected, false
	case chunk.OpCreateClassPrivateMethod:
		return values.ModPrivate, false
	case chunk.OpCreateClassPublicStaticMethod:
		return values.ModPublic | values.ModStatic, true
	case chunk.OpCreateClassProtectedStaticMethod:
		return values.ModProtected | values.ModStatic, true
	default:
		return values.ModPrivate | values.ModStatic, true
	}
}

// await blocks the calling goroutine, pumping the event loop, until promise
// settles. This is a synchronous simplification of true frame suspension:
// the engine is single-threaded and cooperative, so driving the loop to
// completion here is observationally equivalent for any program that does
// not depend on interleaving other script code during the await itself
// (documented in DESIGN.md).
func (v *VM) await(val values.Value) (values.Value, *values.Value) {
	if val.Kind != values.KindPromise {
		return val, nil
	}
	p := val.AsPromise()
	for p.State == values.PromisePending {
		if !v.Loop.RunOne() {
			break
		}
	}
	if p.State == values.PromiseRejected {
		return values.Undefined, &p.Reason
	}
	return p.Value, nil
}
