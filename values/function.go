package values

// FunctionObject is the compiled metadata pointing at a chunk index. It is
// itself a Value payload (KindFunctionRef) stored in the module's constant
// pool; Closure wraps one with captured upvalues.
type FunctionObject struct {
	ChunkIndex    uint32
	Arity         int
	Name          string
	UpvaluesSize  int
	IsAsync       bool
}

// Upvalue has a location that is either open (a live pointer into a still-
// running frame's register) or closed (an owned copy). Closing migrates
// Location from the frame's register to &owned atomically.
type Upvalue struct {
	Location *Value
	owned    Value
	isClosed bool
}

// NewOpenUpvalue captures a pointer into a live frame register.
func NewOpenUpvalue(loc *Value) *Upvalue {
	return &Upvalue{Location: loc}
}

func (u *Upvalue) IsClosed() bool { return u.isClosed }

// Close migrates the upvalue to own its value, independent of the frame that
// is about to be popped. After closing, the upvalue's location refers only
// to its owned closed slot.
func (u *Upvalue) Close() {
	if u.isClosed {
		return
	}
	u.owned = *u.Location
	u.Location = &u.owned
	u.isClosed = true
}

func (u *Upvalue) Get() Value  { return *u.Location }
func (u *Upvalue) Set(v Value) { *u.Location = v }

// Closure bundles a FunctionObject with captured upvalues, an optional bound
// receiver, and the execution context in effect at definition time; methods
// are rebound per instance at construction.
type Closure struct {
	Function  *FunctionObject
	Upvalues  []*Upvalue
	BoundThis *Object
	Context   *ExecutionContext
}

// Rebind creates a new Closure sharing this one's FunctionObject, upvalues
// and context but bound to a different receiver — used when instantiating
// methods onto a freshly constructed instance.
func (c *Closure) Rebind(this *Object) *Closure {
	return &Closure{
		Function:  c.Function,
		Upvalues:  c.Upvalues,
		BoundThis: this,
		Context:   c.Context,
	}
}
