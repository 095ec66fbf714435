package builtin

// Method is a native method. self is the receiving *Class for class
// methods and the receiving value for instance methods.
type Method func(r *Registry, self Value, args []Value) (Value, error)

// Class is a script class or module.
type Class struct {
	name     string
	outer    *Class
	super    *Class
	module   bool
	consts   map[string]Value
	includes []*Class
	smethods map[string]Method
	methods  map[string]Method
}

func newClass(name string, outer, super *Class, module bool) *Class {
	return &Class{
		name:     name,
		outer:    outer,
		super:    super,
		module:   module,
		consts:   map[string]Value{},
		smethods: map[string]Method{},
		methods:  map[string]Method{},
	}
}

// Name returns the fully qualified name, for example "File::Constants".
func (c *Class) Name() string {
	if c.outer != nil {
		return c.outer.Name() + "::" + c.name
	}

	return c.name
}

// Superclass returns the parent class, nil for roots and modules.
func (c *Class) Superclass() *Class {
	return c.super
}

// IsModule reports whether c is a module, which cannot be instantiated.
func (c *Class) IsModule() bool {
	return c.module
}

// Const looks name up in c, its included modules and its ancestors.
func (c *Class) Const(name string) (Value, bool) {
	for k := c; k != nil; k = k.super {
		if v, ok := k.consts[name]; ok {
			return v, true
		}

		for _, m := range k.includes {
			if v, ok := m.consts[name]; ok {
				return v, true
			}
		}
	}

	return nil, false
}

// IsA reports whether c is other or inherits from it.
func (c *Class) IsA(other *Class) bool {
	for k := c; k != nil; k = k.super {
		if k == other {
			return true
		}
	}

	return false
}

func (c *Class) defineClassMethod(name string, m Method) {
	c.smethods[name] = m
}

func (c *Class) defineMethod(name string, m Method) {
	c.methods[name] = m
}

func (c *Class) defineConst(name string, v Value) {
	c.consts[name] = v
}

func (c *Class) include(m *Class) {
	c.includes = append(c.includes, m)
}

func (c *Class) findClassMethod(name string) (Method, bool) {
	for k := c; k != nil; k = k.super {
		if m, ok := k.smethods[name]; ok {
			return m, true
		}
	}

	return nil, false
}

func (c *Class) findMethod(name string) (Method, bool) {
	for k := c; k != nil; k = k.super {
		if m, ok := k.methods[name]; ok {
			return m, true
		}

		for _, inc := range k.includes {
			if m, ok := inc.methods[name]; ok {
				return m, true
			}
		}
	}

	return nil, false
}
