// Package script runs line-oriented call scripts against a [builtin.Registry].
//
// One statement per line:
//
//	f = File.open("notes.txt", "w", 0644)
//	f.syswrite("hello\n")
//	f.close
//	FileTest.size?("notes.txt")
//	File::Constants::LOCK_EX
//
// Literals are double- or single-quoted strings, integers in any Go base,
// nil, true and false. Calls without a receiver go to Kernel.
package script

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/calvinalkan/fdio/pkg/builtin"
	"github.com/calvinalkan/fdio/pkg/fileio"
)

// Interp evaluates statements and holds script variables. The variables
// are the registry's GC roots: an IO object is reclaimed once no variable
// refers to it.
type Interp struct {
	reg  *builtin.Registry
	vars map[string]builtin.Value

	// temps holds receivers and arguments evaluated for calls that have
	// not been dispatched yet.
	temps []builtin.Value
}

// New returns an interpreter with a fresh registry over sys.
func New(sys *fileio.System, log *slog.Logger) *Interp {
	in := &Interp{vars: map[string]builtin.Value{}}
	in.reg = builtin.New(builtin.Config{
		System: sys,
		Logger: log,
		Roots:  in.roots,
	})

	return in
}

// Registry returns the registry statements are dispatched to.
func (in *Interp) Registry() *builtin.Registry {
	return in.reg
}

// Var returns the value of a script variable.
func (in *Interp) Var(name string) (builtin.Value, bool) {
	v, ok := in.vars[name]

	return v, ok
}

// Close finalizes every IO object the interpreter created and forgets its
// variables.
func (in *Interp) Close() {
	in.vars = map[string]builtin.Value{}
	in.reg.Close()
}

func (in *Interp) roots() []builtin.Value {
	vs := make([]builtin.Value, 0, len(in.vars)+len(in.temps))
	for _, v := range in.vars {
		vs = append(vs, v)
	}

	return append(vs, in.temps...)
}

// Eval runs one statement. ok is false for blank and comment lines, which
// produce no value.
func (in *Interp) Eval(line string) (v builtin.Value, ok bool, err error) {
	n, err := parse(line)
	if err != nil || n == nil {
		return nil, false, err
	}

	v, err = in.eval(n)
	if err != nil {
		return nil, false, err
	}

	return v, true, nil
}

// Run evaluates r line by line and stops at the first error, which is
// prefixed with name and the line number. When echo is non-nil it receives
// every statement with its result.
func (in *Interp) Run(name string, r io.Reader, echo func(stmt string, v builtin.Value)) error {
	sc := bufio.NewScanner(r)
	lineNo := 0

	for sc.Scan() {
		lineNo++
		line := sc.Text()

		v, ok, err := in.Eval(line)
		if err != nil {
			return &Error{File: name, Line: lineNo, Err: err}
		}

		if ok && echo != nil {
			echo(strings.TrimSpace(line), v)
		}
	}

	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}

	return nil
}

// Error locates a failed statement.
type Error struct {
	File string
	Line int
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (in *Interp) eval(n node) (builtin.Value, error) {
	switch n := n.(type) {
	case *literal:
		return n.value, nil
	case *assign:
		v, err := in.eval(n.value)
		if err != nil {
			return nil, err
		}

		in.vars[n.name] = v

		return v, nil
	case *global:
		v, _ := in.reg.Global(n.name)

		return v, nil
	case *constPath:
		return in.constant(n.names)
	case *varRef:
		if v, ok := in.vars[n.name]; ok {
			return v, nil
		}

		v, err := in.reg.Call(in.reg.Kernel(), n.name)

		var exc *builtin.Exception
		if errors.As(err, &exc) && exc.Class == "NoMethodError" {
			return nil, &builtin.Exception{
				Class:   "NameError",
				Message: fmt.Sprintf("undefined local variable or method '%s'", n.name),
			}
		}

		return v, err
	case *call:
		return in.call(n)
	default:
		panic(fmt.Sprintf("script: unknown node %T", n))
	}
}

func (in *Interp) call(n *call) (builtin.Value, error) {
	mark := len(in.temps)
	defer func() { in.temps = in.temps[:mark] }()

	var recv builtin.Value = in.reg.Kernel()

	if n.recv != nil {
		v, err := in.eval(n.recv)
		if err != nil {
			return nil, err
		}

		recv = v
		in.temps = append(in.temps, v)
	}

	args := make([]builtin.Value, len(n.args))

	for i, a := range n.args {
		v, err := in.eval(a)
		if err != nil {
			return nil, err
		}

		args[i] = v
		in.temps = append(in.temps, v)
	}

	return in.reg.Call(recv, n.name, args...)
}

func (in *Interp) constant(names []string) (builtin.Value, error) {
	v, ok := in.reg.Const(names[0])
	if !ok {
		return nil, &builtin.Exception{Class: "NameError", Message: "uninitialized constant " + names[0]}
	}

	for i, name := range names[1:] {
		c, isClass := v.(*builtin.Class)
		if !isClass {
			return nil, &builtin.Exception{
				Class:   "TypeError",
				Message: strings.Join(names[:i+1], "::") + " is not a class/module",
			}
		}

		if v, ok = c.Const(name); !ok {
			return nil, &builtin.Exception{Class: "NameError", Message: "uninitialized constant " + c.Name() + "::" + name}
		}
	}

	return v, nil
}

// Inspect renders a result the way the REPL prints it.
func Inspect(v builtin.Value) string {
	return builtin.Inspect(v)
}
