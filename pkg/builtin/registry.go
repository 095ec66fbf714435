// Package builtin installs the IO, File, FileTest and Kernel classes into a
// small script runtime and dispatches calls to them.
//
// The registry stands in for the interpreter's object model: it owns the
// class table, the global variables and a heap of IO objects that a
// mark-and-sweep pass can reclaim. Errors returned by [Registry.Call] are
// always [*Exception].
package builtin

import (
	"io"
	"log/slog"

	"github.com/calvinalkan/fdio/pkg/fileio"
)

// Config configures a [Registry].
type Config struct {
	// System carries out every file operation. Required.
	System *fileio.System

	// Logger receives debug output. Defaults to a discard logger.
	Logger *slog.Logger

	// Roots returns the values the embedding program still references.
	// Objects not reachable from them are reclaimed by [Registry.GC].
	Roots func() []Value
}

// Registry is the set of installed classes plus the object heap.
// It is not safe for concurrent use.
type Registry struct {
	sys   *fileio.System
	log   *slog.Logger
	roots func() []Value

	consts  map[string]Value
	globals map[string]Value

	heap  map[*Object]struct{}
	stack [][]Value

	io, file, fileTest, kernel *Class
}

// New builds a registry with all classes installed and registers its
// garbage collector as cfg.System's reclamation pass.
func New(cfg Config) *Registry {
	if cfg.System == nil {
		panic("builtin: Config.System is nil")
	}

	r := &Registry{
		sys:     cfg.System,
		log:     cfg.Logger,
		roots:   cfg.Roots,
		consts:  map[string]Value{},
		globals: map[string]Value{},
		heap:    map[*Object]struct{}{},
	}

	if r.log == nil {
		r.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if r.roots == nil {
		r.roots = func() []Value { return nil }
	}

	r.installIO()
	r.installFile()
	r.installFileTest()
	r.installKernel()

	r.sys.SetReclaimer(func() { r.GC() })

	return r
}

// System returns the system the registry forwards to.
func (r *Registry) System() *fileio.System {
	return r.sys
}

// Kernel returns the module that receives calls without an explicit
// receiver.
func (r *Registry) Kernel() *Class {
	return r.kernel
}

// Const returns a top-level constant such as IO or File.
func (r *Registry) Const(name string) (Value, bool) {
	v, ok := r.consts[name]

	return v, ok
}

// Global returns the global variable name (including the leading '$').
func (r *Registry) Global(name string) (Value, bool) {
	v, ok := r.globals[name]

	return v, ok
}

// SetGlobal assigns a global variable.
func (r *Registry) SetGlobal(name string, v Value) {
	r.globals[name] = v
}

// Live returns the number of IO objects on the heap.
func (r *Registry) Live() int {
	return len(r.heap)
}

// Call invokes method name on recv.
//
// Class receivers dispatch to class methods along the superclass chain;
// "new" allocates an object and runs its initialize. Other receivers
// dispatch to instance methods of their class. A few methods (inspect,
// to_s, nil?) answer for every value.
func (r *Registry) Call(recv Value, name string, args ...Value) (Value, error) {
	r.stack = append(r.stack, append([]Value{recv}, args...))
	defer func() { r.stack = r.stack[:len(r.stack)-1] }()

	v, err := r.dispatch(recv, name, args)
	if err != nil {
		exc := toException(err)
		r.log.Debug("raise", "method", name, "class", exc.Class, "message", exc.Message)

		return nil, exc
	}

	return v, nil
}

func (r *Registry) dispatch(recv Value, name string, args []Value) (Value, error) {
	switch recv := recv.(type) {
	case *Class:
		if m, ok := recv.findClassMethod(name); ok {
			return m(r, recv, args)
		}

		if name == "new" && !recv.module {
			return r.instantiate(recv, args)
		}
	case *Object:
		if m, ok := recv.class.findMethod(name); ok {
			return m(r, recv, args)
		}
	}

	switch name {
	case "inspect":
		return Inspect(recv), Scan(args, "")
	case "to_s":
		return ToS(recv), Scan(args, "")
	case "nil?":
		return recv == nil, Scan(args, "")
	}

	return nil, raise("NoMethodError", "undefined method '%s' for %s", name, describe(recv))
}

func describe(v Value) string {
	switch v := v.(type) {
	case *Class:
		return v.Name() + ":" + typeName(v)
	case *Object:
		return "an instance of " + v.class.Name()
	default:
		return Inspect(v) + ":" + typeName(v)
	}
}

// instantiate allocates an object of c and runs initialize with args.
func (r *Registry) instantiate(c *Class, args []Value) (Value, error) {
	obj := r.alloc(c)

	init, ok := c.findMethod("initialize")
	if !ok {
		return obj, Scan(args, "")
	}

	// Keep obj reachable while initialize runs: it may open files and
	// trigger a collection.
	r.stack = append(r.stack, []Value{obj})
	defer func() { r.stack = r.stack[:len(r.stack)-1] }()

	if _, err := init(r, obj, args); err != nil {
		return nil, err
	}

	return obj, nil
}

func (r *Registry) alloc(c *Class) *Object {
	obj := &Object{class: c}
	r.heap[obj] = struct{}{}

	return obj
}

// GC finalizes every heap object that is not reachable from the roots,
// the global variables or a call in progress, and returns how many it
// reclaimed. Close failures during the sweep are logged and dropped.
func (r *Registry) GC() int {
	marked := map[*Object]bool{}

	mark := func(vs []Value) {
		for _, v := range vs {
			if obj, ok := v.(*Object); ok {
				marked[obj] = true
			}
		}
	}

	mark(r.roots())

	for _, v := range r.globals {
		mark([]Value{v})
	}

	for _, frame := range r.stack {
		mark(frame)
	}

	swept := 0

	for obj := range r.heap {
		if marked[obj] {
			continue
		}

		if obj.handle != nil {
			_ = obj.handle.Finalize(true)
		}

		delete(r.heap, obj)
		swept++
	}

	r.log.Debug("gc", "swept", swept, "live", len(r.heap))

	return swept
}

// Close finalizes every object on the heap, reachable or not, and returns
// how many there were. The registry stays usable; objects created later
// start a new heap.
func (r *Registry) Close() int {
	n := len(r.heap)

	for obj := range r.heap {
		if obj.handle != nil {
			_ = obj.handle.Finalize(true)
		}

		delete(r.heap, obj)
	}

	r.log.Debug("registry closed", "finalized", n)

	return n
}
