package vm

import (
	"fmt"
	"math"

	"github.com/ardar-lang/ardar/chunk"
	"github.com/ardar-lang/ardar/values"
)

// step executes one instruction. Return shape: (returnValue, thrownValue,
// isReturn, error). error is reserved for host-fatal conditions; script-level
// exceptions flow through thrownValue instead.
func (v *VM) step(f *frame, ins chunk.Instruction) (values.Value, *values.Value, bool, error) {
	switch ins.Op {
	case chunk.OpLoadConst:
		f.set(ins.A, f.chnk.Constants[ins.B])
	case chunk.OpMove:
		f.set(ins.A, f.get(ins.B))

	case chunk.OpAdd:
		f.set(ins.A, add(f.get(ins.B), f.get(ins.C)))
	case chunk.OpSub:
		f.set(ins.A, values.Number(f.get(ins.B).ToNumber()-f.get(ins.C).ToNumber()))
	case chunk.OpMul:
		f.set(ins.A, values.Number(f.get(ins.B).ToNumber()*f.get(ins.C).ToNumber()))
	case chunk.OpDiv:
		f.set(ins.A, values.Number(f.get(ins.B).ToNumber()/f.get(ins.C).ToNumber()))
	case chunk.OpMod:
		f.set(ins.A, values.Number(math.Mod(f.get(ins.B).ToNumber(), f.get(ins.C).ToNumber())))
	case chunk.OpPow:
		f.set(ins.A, values.Number(math.Pow(f.get(ins.B).ToNumber(), f.get(ins.C).ToNumber())))
	case chunk.OpShiftLeft:
		f.set(ins.A, values.Number(float64(int32(f.get(ins.B).ToNumber())<<(uint32(f.get(ins.C).ToNumber())&31))))
	case chunk.OpShiftRight:
		f.set(ins.A, values.Number(float64(int32(f.get(ins.B).ToNumber())>>(uint32(f.get(ins.C).ToNumber())&31))))
	case chunk.OpUnsignedShiftRight:
		f.set(ins.A, values.Number(float64(uint32(f.get(ins.B).ToNumber())>>(uint32(f.get(ins.C).ToNumber())&31))))
	case chunk.OpBitAnd:
		f.set(ins.A, values.Number(float64(int32(f.get(ins.B).ToNumber())&int32(f.get(ins.C).ToNumber()))))
	case chunk.OpBitOr:
		f.set(ins.A, values.Number(float64(int32(f.get(ins.B).ToNumber())|int32(f.get(ins.C).ToNumber()))))
	case chunk.OpBitXor:
		f.set(ins.A, values.Number(float64(int32(f.get(ins.B).ToNumber())^int32(f.get(ins.C).ToNumber()))))

	case chunk.OpEqual:
		f.set(ins.A, values.Boolean(values.LooseEquals(f.get(ins.B), f.get(ins.C))))
	case chunk.OpNotEqual:
		f.set(ins.A, values.Boolean(!values.LooseEquals(f.get(ins.B), f.get(ins.C))))
	case chunk.OpStrictEqual:
		f.set(ins.A, values.Boolean(values.StrictEquals(f.get(ins.B), f.get(ins.C))))
	case chunk.OpStrictNotEqual:
		f.set(ins.A, values.Boolean(!values.StrictEquals(f.get(ins.B), f.get(ins.C))))
	case chunk.OpLessThan:
		f.set(ins.A, values.Boolean(f.get(ins.B).ToNumber() < f.get(ins.C).ToNumber()))
	case chunk.OpLessThanOrEqual:
		f.set(ins.A, values.Boolean(f.get(ins.B).ToNumber() <= f.get(ins.C).ToNumber()))
	case chunk.OpGreaterThan:
		f.set(ins.A, values.Boolean(f.get(ins.B).ToNumber() > f.get(ins.C).ToNumber()))
	case chunk.OpGreaterThanOrEqual:
		f.set(ins.A, values.Boolean(f.get(ins.B).ToNumber() >= f.get(ins.C).ToNumber()))

	case chunk.OpIn:
		target := f.get(ins.C)
		name := f.get(ins.B).ToString()
		ok := false
		switch target.Kind {
		case values.KindClass:
			_, slot := target.AsClass().LookupStatic(name)
			ok = slot != nil
		case values.KindObject, values.KindArray:
			var obj *values.Object
			if target.Kind == values.KindArray {
				obj = target.AsArray().Object
			} else {
				obj = target.AsObject()
			}
			if obj != nil {
				_, slot := obj.Lookup(name)
				ok = slot != nil
			}
		}
		f.set(ins.A, values.Boolean(ok))
	case chunk.OpInstanceOf:
		obj := f.get(ins.B)
		cls := f.get(ins.C).AsClass()
		result := false
		if obj.Kind == values.KindObject && obj.AsObject().Class != nil {
			result = obj.AsObject().Class.DerivesFrom(cls)
		}
		f.set(ins.A, values.Boolean(result))
	case chunk.OpTypeOf:
		f.set(ins.A, values.String(f.get(ins.B).TypeOf()))
	case chunk.OpVoid:
		f.set(ins.A, values.Undefined)
	case chunk.OpLogicalNot:
		f.set(ins.A, values.Boolean(!f.get(ins.B).Truthy()))
	case chunk.OpNegate:
		f.set(ins.A, values.Number(-f.get(ins.B).ToNumber()))
	case chunk.OpDelete:
		obj := f.get(ins.B).AsObject()
		key := v.propertyKey(f, ins.C)
		obj.Delete(key)
		f.set(ins.A, values.Boolean(true))
	case chunk.OpIncrement:
		f.set(ins.A, values.Number(f.get(ins.B).ToNumber()+1))
	case chunk.OpDecrement:
		f.set(ins.A, values.Number(f.get(ins.B).ToNumber()-1))

	case chunk.OpJump:
		f.ip += offset16(ins)
		return values.Undefined, nil, false, nil
	case chunk.OpJumpIfFalse:
		if !f.get(ins.A).Truthy() {
			f.ip += offset16(ins)
			return values.Undefined, nil, false, nil
		}
	case chunk.OpLoop:
		f.ip -= offset16(ins)
		return values.Undefined, nil, false, nil

	case chunk.OpPushArg:
		f.args = append(f.args, f.get(ins.A))
	case chunk.OpPushSpreadArg:
		spread := f.get(ins.A)
		if arr := spread.AsArray(); arr != nil {
			f.args = append(f.args, arr.Elements...)
		}
	case chunk.OpCall:
		result, thrown, err := v.doCall(f, f.get(ins.B), nil, int(ins.C))
		if err != nil || thrown != nil {
			return values.Undefined, thrown, false, err
		}
		f.set(ins.A, result)
	case chunk.OpSuperCall:
		super := f.superClosure()
		result, thrown, err := v.doCall(f, super, f.this, int(ins.A))
		if err != nil || thrown != nil {
			return values.Undefined, thrown, false, err
		}
		f.set(ins.A, result)
	case chunk.OpReturn:
		return f.get(ins.A), nil, true, nil

	case chunk.OpCreateClosure:
		fn := f.chnk.Constants[ins.B].AsFunctionRef()
		descs := f.chnk.Upvalues[indexOfInstruction(f, ins)]
		cl := &values.Closure{Function: fn, BoundThis: f.this, Upvalues: v.bindUpvalues(f, descs)}
		f.set(ins.A, values.FromClosure(cl))
	case chunk.OpCreateInstance:
		cls := f.get(ins.B).AsClass()
		inst := values.NewObject()
		inst.Class = cls
		installInstanceSlots(inst, cls)
		f.set(ins.A, values.FromObject(inst))
	case chunk.OpInvokeConstructor:
		instVal := f.get(ins.A)
		inst := instVal.AsObject()
		if inst.Class != nil {
			if _, slot := inst.Lookup("constructor"); slot != nil && slot.Value.Kind == values.KindClosure {
				cl := slot.Value.AsClosure().Rebind(inst)
				_, thrown, err := v.doCall(f, values.FromClosure(cl), inst, int(ins.B))
				if err != nil || thrown != nil {
					return values.Undefined, thrown, false, err
				}
			} else {
				f.args = nil
			}
		}

	case chunk.OpLoadLocalVar, chunk.OpLoadLocalLet, chunk.OpLoadLocalConst:
		f.set(ins.A, f.get(ins.B))
	case chunk.OpStoreLocalVar, chunk.OpStoreLocalLet, chunk.OpStoreLocalConst:
		f.set(ins.A, f.get(ins.B))

	case chunk.OpLoadGlobalVar, chunk.OpLoadGlobalLet, chunk.OpLoadGlobalConst:
		name := f.chnk.Constants[ins.B].Str
		val, ok := v.globals[name]
		if !ok {
			thrown := values.String((&values.ErrUndefinedBinding{Name: name}).Error())
			return values.Undefined, &thrown, false, nil
		}
		f.set(ins.A, val)
	case chunk.OpStoreGlobalVar, chunk.OpStoreGlobalLet, chunk.OpStoreGlobalConst:
		name := f.chnk.Constants[ins.B].Str
		v.globals[name] = f.get(ins.A)
	case chunk.OpCreateGlobalVar, chunk.OpCreateGlobalLet, chunk.OpCreateGlobalConst:
		name := f.chnk.Constants[ins.B].Str
		v.globals[name] = f.get(ins.A)

	case chunk.OpLoadUpvalue:
		f.set(ins.A, f.closure.Upvalues[ins.B].Get())
	case chunk.OpStoreUpvalueVar, chunk.OpStoreUpvalueLet, chunk.OpStoreUpvalueConst:
		f.closure.Upvalues[ins.A].Set(f.get(ins.B))
	case chunk.OpCloseUpvalue:
		for _, u := range f.closure.Upvalues {
			if u.Location == &f.regs[ins.A] {
				u.Close()
			}
		}

	case chunk.OpNewClass:
		cls := values.NewClass("", nil)
		if ins.B != 0 || f.get(ins.B).Kind == values.KindClass {
			if super := f.get(ins.B).AsClass(); super != nil {
				cls.Super = super
			}
		}
		f.set(ins.A, values.FromClass(cls))

	case chunk.OpCreateClassPublicPropertyVar, chunk.OpCreateClassProtectedPropertyVar, chunk.OpCreateClassPrivatePropertyVar,
		chunk.OpCreateClassPublicPropertyConst, chunk.OpCreateClassProtectedPropertyConst, chunk.OpCreateClassPrivatePropertyConst,
		chunk.OpCreateClassPublicStaticPropertyVar, chunk.OpCreateClassProtectedStaticPropertyVar, chunk.OpCreateClassPrivateStaticPropertyVar,
		chunk.OpCreateClassPublicStaticPropertyConst, chunk.OpCreateClassProtectedStaticPropertyConst, chunk.OpCreateClassPrivateStaticPropertyConst:
		cls := f.get(ins.A).AsClass()
		name := f.chnk.Constants[ins.B].Str
		mods, isStatic, kind := classPropertyModifiers(ins.Op)
		if isStatic {
			cls.DeclareStatic(kind, name, mods, f.get(ins.C))
		} else {
			cls.DeclareInstance(kind, name, mods, f.get(ins.C))
		}

	case chunk.OpCreateClassPublicMethod, chunk.OpCreateClassProtectedMethod, chunk.OpCreateClassPrivateMethod,
		chunk.OpCreateClassPublicStaticMethod, chunk.OpCreateClassProtectedStaticMethod, chunk.OpCreateClassPrivateStaticMethod:
		cls := f.get(ins.A).AsClass()
		name := f.chnk.Constants[ins.B].Str
		mods, isStatic := classMethodModifiers(ins.Op)
		if isStatic {
			cls.DeclareStatic(values.BindVar, name, mods, f.get(ins.C))
		} else {
			cls.DeclareInstance(values.BindVar, name, mods, f.get(ins.C))
		}

	case chunk.OpNewObject, chunk.OpCreateObjectLiteral:
		f.set(ins.A, values.FromObject(values.NewObjectLiteral()))
	case chunk.OpCreateObjectLiteralProperty:
		obj := f.get(ins.A).AsObject()
		name := f.chnk.Constants[ins.B].Str
		obj.Declare(values.BindVar, name, values.ModPublic, f.get(ins.C))
	case chunk.OpNewArray:
		f.set(ins.A, values.FromArray(values.NewArray()))
	case chunk.OpArrayPush:
		f.get(ins.A).AsArray().Push(f.get(ins.B))
	case chunk.OpArraySpread:
		arr := f.get(ins.A).AsArray()
		if src := f.get(ins.B).AsArray(); src != nil {
			for _, el := range src.Elements {
				arr.Push(el)
			}
		}
	case chunk.OpObjectSpread:
		obj := f.get(ins.A).AsObject()
		if src := f.get(ins.B).AsObject(); src != nil {
			for _, k := range src.Keys() {
				if slot, ok := src.Own(k); ok {
					obj.Declare(values.BindVar, k, values.ModPublic, slot.Value)
				}
			}
		}

	case chunk.OpSetProperty:
		if thrown := v.setProperty(f, f.get(ins.A), f.chnk.Constants[ins.B].Str, f.get(ins.C)); thrown != nil {
			return values.Undefined, thrown, false, nil
		}
	case chunk.OpGetProperty:
		result, thrown := v.getProperty(f, f.get(ins.B), f.chnk.Constants[ins.C].Str)
		if thrown != nil {
			return values.Undefined, thrown, false, nil
		}
		f.set(ins.A, result)
	case chunk.OpSetPropertyDynamic:
		if thrown := v.setProperty(f, f.get(ins.A), v.propertyKey(f, ins.B), f.get(ins.C)); thrown != nil {
			return values.Undefined, thrown, false, nil
		}
	case chunk.OpGetPropertyDynamic:
		result, thrown := v.getProperty(f, f.get(ins.B), v.propertyKey(f, ins.C))
		if thrown != nil {
			return values.Undefined, thrown, false, nil
		}
		f.set(ins.A, result)
	case chunk.OpGetObjectLength:
		f.set(ins.A, values.Number(float64(objectLength(f.get(ins.B)))))
	case chunk.OpEnumKeys:
		f.set(ins.A, values.FromArray(keysArray(f.get(ins.B))))

	case chunk.OpGetThis:
		f.set(ins.A, values.FromObject(f.this))
	case chunk.OpLoadThisProperty:
		result, thrown := v.getProperty(f, values.FromObject(f.this), f.chnk.Constants[ins.B].Str)
		if thrown != nil {
			return values.Undefined, thrown, false, nil
		}
		f.set(ins.A, result)
	case chunk.OpStoreThisProperty:
		if thrown := v.setProperty(f, values.FromObject(f.this), f.chnk.Constants[ins.A].Str, f.get(ins.B)); thrown != nil {
			return values.Undefined, thrown, false, nil
		}
	case chunk.OpGetParentObject:
		if f.this != nil && f.this.Class != nil && f.this.Class.Super != nil {
			parent := values.NewObject()
			parent.Class = f.this.Class.Super
			parent.Parent = f.this
			f.set(ins.A, values.FromObject(parent))
		} else {
			f.set(ins.A, values.Undefined)
		}

	case chunk.OpTry:
		f.tries = append(f.tries, tryFrame{
			catchIP:    int(ins.A),
			finallyIP:  int(ins.B),
			catchReg:   ins.C,
			hasCatch:   ins.A != 0,
			hasFinally: ins.B != 0,
		})
	case chunk.OpEndTry:
		if len(f.tries) > 0 {
			f.tries = f.tries[:len(f.tries)-1]
		}
	case chunk.OpEndFinally:
		if f.pendingRethrow {
			f.pendingRethrow = false
			thrown := f.currentException
			if !v.handleThrow(f, thrown) {
				return values.Undefined, &thrown, false, nil
			}
			return values.Undefined, nil, false, nil
		}
	case chunk.OpThrow:
		thrown := f.get(ins.A)
		return values.Undefined, &thrown, false, nil
	case chunk.OpLoadExceptionValue:
		f.set(ins.A, f.currentException)

	case chunk.OpCreatePromise:
		f.set(ins.A, values.FromPromise(values.NewPendingPromise()))
	case chunk.OpAwait:
		result, thrown := v.await(f.get(ins.B))
		if thrown != nil {
			return values.Undefined, thrown, false, nil
		}
		f.set(ins.A, result)
	case chunk.OpSetExecutionContext, chunk.OpPushLexicalEnv, chunk.OpPopLexicalEnv:
		// No-op: the compiler's monotonic register allocator gives every
		// binding a stable home register, so lexical environments never
		// need materialising at runtime (see DESIGN.md).

	default:
		return values.Undefined, nil, false, fmt.Errorf("unimplemented opcode %s", ins.Op)
	}
	return values.Undefined, nil, false, nil
}

func offset16(ins chunk.Instruction) int {
	return int(ins.B) | int(ins.C)<<8
}

func add(a, b values.Value) values.Value {
	if a.Kind == values.KindString || b.Kind == values.KindString {
		return values.String(a.ToString() + b.ToString())
	}
	return values.Number(a.ToNumber() + b.ToNumber())
}

func indexOfInstruction(f *frame, ins chunk.Instruction) int {
	return f.ip
}
