package values

// Class owns static and instance-prototype property tables plus a
// superclass link. Method properties are stored as
// instance-prototype `var` entries whose value is a Closure; static methods
// live in the static `var` table.
type Class struct {
	Name         string
	Super        *Class
	IsNative     bool
	StaticVar    map[string]*Slot
	StaticConst  map[string]*Slot
	InstanceVar  map[string]*Slot
	InstanceConst map[string]*Slot
}

func NewClass(name string, super *Class) *Class {
	return &Class{
		Name:          name,
		Super:         super,
		StaticVar:     make(map[string]*Slot),
		StaticConst:   make(map[string]*Slot),
		InstanceVar:   make(map[string]*Slot),
		InstanceConst: make(map[string]*Slot),
	}
}

// DeclareStatic adds a static property (var or const table) to the class.
func (c *Class) DeclareStatic(kind BindingKind, name string, mods Modifier, v Value) {
	slot := &Slot{Mods: mods | ModStatic, Value: v}
	if kind == BindConst {
		delete(c.StaticVar, name)
		c.StaticConst[name] = slot
		return
	}
	delete(c.StaticConst, name)
	c.StaticVar[name] = slot
}

// DeclareInstance adds an instance-prototype property, copied onto each new
// instance itself at construction time.
func (c *Class) DeclareInstance(kind BindingKind, name string, mods Modifier, v Value) {
	slot := &Slot{Mods: mods, Value: v}
	if kind == BindConst {
		delete(c.InstanceVar, name)
		c.InstanceConst[name] = slot
		return
	}
	delete(c.InstanceConst, name)
	c.InstanceVar[name] = slot
}

// LookupStatic walks `this class → superclass → …` for a static property.
func (c *Class) LookupStatic(name string) (*Class, *Slot) {
	for cur := c; cur != nil; cur = cur.Super {
		if s, ok := cur.StaticVar[name]; ok {
			return cur, s
		}
		if s, ok := cur.StaticConst[name]; ok {
			return cur, s
		}
	}
	return nil, nil
}

// InstanceSlots returns the combined instance-prototype slots declared
// directly on this class (not the superclass), in declaration order is not
// preserved since Go maps are unordered; construction iterates these to
// populate a fresh instance and does not rely on order.
func (c *Class) InstanceSlots() map[string]*Slot {
	out := make(map[string]*Slot, len(c.InstanceVar)+len(c.InstanceConst))
	for k, v := range c.InstanceVar {
		out[k] = v
	}
	for k, v := range c.InstanceConst {
		out[k] = v
	}
	return out
}

// DerivesFrom reports whether c is target or a descendant of target along
// the superclass chain.
func (c *Class) DerivesFrom(target *Class) bool {
	for cur := c; cur != nil; cur = cur.Super {
		if cur == target {
			return true
		}
	}
	return false
}
