package values

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruthy(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"null", Null, false},
		{"undefined", Undefined, false},
		{"false", Boolean(false), false},
		{"zero", Number(0), false},
		{"empty string", String(""), false},
		{"nonzero", Number(1), true},
		{"string", String("0"), true},
		{"true", Boolean(true), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.Truthy())
		})
	}
}

func TestLooseEqualsDiffersFromStrict(t *testing.T) {
	zero := Number(0)
	zeroStr := String("0")
	assert.True(t, LooseEquals(zero, zeroStr))
	assert.False(t, StrictEquals(zero, zeroStr))
}

func TestLooseEqualsUsesToStringNotNumericCoercion(t *testing.T) {
	one := Number(1)
	oneDotZero := String("1.0")
	assert.False(t, LooseEquals(one, oneDotZero))
	assert.True(t, LooseEquals(one, String("1")))
}

func TestStrictEqualsObjectIdentity(t *testing.T) {
	shared := NewObject()
	a := FromObject(shared)
	b := FromObject(shared)
	c := FromObject(NewObject())
	assert.True(t, StrictEquals(a, b))
	assert.False(t, StrictEquals(a, c))
}

func TestToStringNumberFormatting(t *testing.T) {
	assert.Equal(t, "0", Number(0).ToString())
	assert.Equal(t, "3.5", Number(3.5).ToString())
	assert.Equal(t, "NaN", Number(nan()).ToString())
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func TestObjectConstOnlyFailsSecondWrite(t *testing.T) {
	o := NewObject()
	o.Declare(BindConst, "x", ModPublic, Number(1))
	err := o.Set("x", Number(2))
	assert.Error(t, err)
	var constErr *ErrConstAssign
	assert.ErrorAs(t, err, &constErr)
}

func TestObjectDeleteAssignsUndefined(t *testing.T) {
	o := NewObject()
	o.Declare(BindVar, "x", ModPublic, Number(1))
	o.Delete("x")
	slot, ok := o.Own("x")
	assert.True(t, ok)
	assert.True(t, slot.Value.IsUndefined())
}

func TestObjectPrototypeLookup(t *testing.T) {
	parent := NewObject()
	parent.Declare(BindVar, "greeting", ModPublic, String("hi"))
	child := NewObject()
	child.Parent = parent
	owner, slot := child.Lookup("greeting")
	assert.Equal(t, parent, owner)
	assert.Equal(t, "hi", slot.Value.Str)
}

func TestArrayPushPopLength(t *testing.T) {
	a := NewArray()
	a.Push(Number(1))
	a.Push(Number(2))
	assert.Equal(t, 2, a.Length())
	assert.Equal(t, Number(2), a.Pop())
	assert.Equal(t, 1, a.Length())
}

func TestArrayJoin(t *testing.T) {
	a := NewArrayFrom([]Value{Number(1), Number(2), Number(3)})
	assert.Equal(t, "1,2,3", a.Join(","))
}

func TestArrayKeysNumericFirst(t *testing.T) {
	a := NewArrayFrom([]Value{String("a"), String("b")})
	a.Declare(BindVar, "extra", ModPublic, Number(1))
	keys := a.Keys()
	assert.Equal(t, []string{"0", "1", "extra"}, keys)
}

func TestUpvalueCloseIsIndependentOfFrame(t *testing.T) {
	frameRegister := Number(10)
	up := NewOpenUpvalue(&frameRegister)
	assert.False(t, up.IsClosed())
	up.Close()
	assert.True(t, up.IsClosed())
	frameRegister = Number(999) // mutate the "frame"; closed upvalue must not see this
	assert.Equal(t, float64(10), up.Get().Num)
}

func TestClassDerivesFrom(t *testing.T) {
	base := NewClass("A", nil)
	derived := NewClass("B", base)
	assert.True(t, derived.DerivesFrom(base))
	assert.True(t, derived.DerivesFrom(derived))
	assert.False(t, base.DerivesFrom(derived))
}

func TestPromiseResolveDrainsCallbacksOnce(t *testing.T) {
	p := NewPendingPromise()
	calls := 0
	p.OnSettle(func(Value) { calls++ }, nil)
	cbs := p.Resolve(Number(1))
	assert.Len(t, cbs, 1)
	cbs[0](p.Value)
	assert.Equal(t, 1, calls)
	assert.Nil(t, p.Resolve(Number(2)))
	assert.Equal(t, PromiseResolved, p.State)
}

func TestEnvironmentConstAssignmentFails(t *testing.T) {
	env := NewEnvironment(nil)
	env.Declare("x", Number(1), true)
	err := env.Set("x", Number(2))
	assert.Error(t, err)
}

func TestEnvironmentUndefinedBinding(t *testing.T) {
	env := NewEnvironment(nil)
	_, ok := env.Get("missing")
	assert.False(t, ok)
	err := env.Set("missing", Number(1))
	assert.Error(t, err)
}
