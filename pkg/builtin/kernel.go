package builtin

import "strings"

func (r *Registry) installKernel() {
	c := newClass("Kernel", nil, nil, true)
	r.kernel = c
	r.consts["Kernel"] = c

	c.defineClassMethod("open", kernelOpen)
}

// Kernel.open(path, *rest) opens a file. Command pipes ("|cmd") are not
// available.
func kernelOpen(r *Registry, _ Value, args []Value) (Value, error) {
	var (
		path Value
		rest []Value
	)

	if err := Scan(args, "o*", &path, &rest); err != nil {
		return nil, err
	}

	s, ok := path.(string)
	if !ok {
		return nil, raise("ArgumentError", "wrong argument type %s (expected String)", typeName(path))
	}

	if strings.HasPrefix(s, "|") {
		return nil, raise("ArgumentError", "IO.popen is not supported on this platform.")
	}

	return r.instantiate(r.file, append([]Value{s}, rest...))
}
