package values

// BindingKind mirrors ast.BindingKind without importing the ast package; the
// compiler translates between the two at the property-declaration boundary.
type BindingKind int

const (
	BindVar BindingKind = iota
	BindLet
	BindConst
)

// Modifier is a bit drawn from {public, protected, private, static}.
type Modifier uint8

const (
	ModPublic Modifier = 1 << iota
	ModProtected
	ModPrivate
	ModStatic
)

func (m Modifier) Visibility() Modifier { return m &^ ModStatic }

// Slot is one entry of a keyed property map: a value plus its modifiers.
type Slot struct {
	Mods  Modifier
	Value Value
}

// Object owns three keyed property maps split by binding kind. A name
// appears in at most one of the three maps at a time.
type Object struct {
	Class       *Class
	Parent      *Object // prototype link, nil at the root
	VarProps    map[string]*Slot
	LetProps    map[string]*Slot
	ConstProps  map[string]*Slot
	IsLiteral   bool // set on object-literal instances; Set does not read it
	insertOrder []string
}

func NewObject() *Object {
	return &Object{
		VarProps:   make(map[string]*Slot),
		LetProps:   make(map[string]*Slot),
		ConstProps: make(map[string]*Slot),
	}
}

func NewObjectLiteral() *Object {
	o := NewObject()
	o.IsLiteral = true
	return o
}

// findSlot locates the slot holding name on this Object only (no prototype
// walk) and which of the three maps it lives in; ok is false if absent.
func (o *Object) findSlot(name string) (kind BindingKind, slot *Slot, ok bool) {
	if s, found := o.VarProps[name]; found {
		return BindVar, s, true
	}
	if s, found := o.LetProps[name]; found {
		return BindLet, s, true
	}
	if s, found := o.ConstProps[name]; found {
		return BindConst, s, true
	}
	return BindVar, nil, false
}

// Own reports whether name is declared directly on this Object (ignoring the
// prototype chain).
func (o *Object) Own(name string) (*Slot, bool) {
	_, s, ok := o.findSlot(name)
	return s, ok
}

// Lookup walks the prototype chain (`this Object → parent_object → …`),
// returning the declaring Object and its slot.
func (o *Object) Lookup(name string) (*Object, *Slot) {
	for cur := o; cur != nil; cur = cur.Parent {
		if s, ok := cur.Own(name); ok {
			return cur, s
		}
	}
	return nil, nil
}

// LookupKind is like Lookup but also reports the declaring binding kind, so
// callers can reject writes to const properties.
func (o *Object) LookupKind(name string) (owner *Object, kind BindingKind, slot *Slot, ok bool) {
	for cur := o; cur != nil; cur = cur.Parent {
		if k, s, found := cur.findSlot(name); found {
			return cur, k, s, true
		}
	}
	return nil, BindVar, nil, false
}

// Declare creates a fresh property of the given binding kind. Re-declaring an
// existing name is a caller error (the compiler/VM enforce distinctness);
// here it simply overwrites, matching object-literal construction semantics.
func (o *Object) Declare(kind BindingKind, name string, mods Modifier, v Value) {
	slot := &Slot{Mods: mods, Value: v}
	switch kind {
	case BindLet:
		delete(o.VarProps, name)
		delete(o.ConstProps, name)
		if _, existed := o.LetProps[name]; !existed {
			o.insertOrder = append(o.insertOrder, name)
		}
		o.LetProps[name] = slot
	case BindConst:
		delete(o.VarProps, name)
		delete(o.LetProps, name)
		if _, existed := o.ConstProps[name]; !existed {
			o.insertOrder = append(o.insertOrder, name)
		}
		o.ConstProps[name] = slot
	default:
		delete(o.LetProps, name)
		delete(o.ConstProps, name)
		if _, existed := o.VarProps[name]; !existed {
			o.insertOrder = append(o.insertOrder, name)
		}
		o.VarProps[name] = slot
	}
}

// ErrConstAssign is returned by Set when writing to an already-initialised
// const property.
type ErrConstAssign struct{ Name string }

func (e *ErrConstAssign) Error() string { return "assignment to constant property '" + e.Name + "'" }

// Set stores through an existing own slot, or creates a new public var slot
// when name is absent. This happens for every Object; IsLiteral is not
// consulted.
func (o *Object) Set(name string, v Value) error {
	kind, s, ok := o.findSlot(name)
	if !ok {
		o.Declare(BindVar, name, ModPublic, v)
		return nil
	}
	if kind == BindConst {
		return &ErrConstAssign{Name: name}
	}
	s.Value = v
	return nil
}

// Delete assigns Undefined to the property in place rather than removing
// the slot.
func (o *Object) Delete(name string) {
	if s, ok := o.Own(name); ok {
		s.Value = Undefined
	}
}

// Keys returns this Object's own property names in insertion order, the
// iteration order EnumKeys exposes for plain objects.
func (o *Object) Keys() []string {
	out := make([]string, 0, len(o.insertOrder))
	seen := make(map[string]bool, len(o.insertOrder))
	for _, k := range o.insertOrder {
		if seen[k] {
			continue
		}
		if _, ok := o.Own(k); ok {
			out = append(out, k)
			seen[k] = true
		}
	}
	return out
}

// Count returns the number of own properties, used by GetObjectLength.
func (o *Object) Count() int {
	return len(o.VarProps) + len(o.LetProps) + len(o.ConstProps)
}

// IsInstanceOf walks the Class chain looking for target.
func (o *Object) IsInstanceOf(target *Class) bool {
	if o.Class == nil || target == nil {
		return false
	}
	return o.Class.DerivesFrom(target)
}
