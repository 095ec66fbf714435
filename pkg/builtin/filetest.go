package builtin

import (
	"github.com/calvinalkan/fdio/pkg/fileio"
)

func (r *Registry) installFileTest() {
	c := newClass("FileTest", nil, nil, false)
	r.fileTest = c
	r.consts["FileTest"] = c

	c.defineClassMethod("directory?", predicate((*fileio.System).IsDirectory))
	c.defineClassMethod("exist?", predicate((*fileio.System).Exists))
	c.defineClassMethod("exists?", predicate((*fileio.System).Exists))
	c.defineClassMethod("file?", predicate((*fileio.System).IsFile))
	c.defineClassMethod("zero?", predicate((*fileio.System).IsZero))
	c.defineClassMethod("symlink?", predicate((*fileio.System).IsSymlink))
	c.defineClassMethod("size", fileTestSize)
	c.defineClassMethod("size?", fileTestSizeP)
}

// target converts a script value into what FileTest queries inspect.
func (r *Registry) target(v Value) (fileio.Target, error) {
	switch v := v.(type) {
	case string:
		return fileio.Path(v), nil
	case *Object:
		if !v.class.IsA(r.io) {
			return fileio.Unsupported, nil
		}

		if v.handle == nil {
			return nil, raise("IOError", "closed stream")
		}

		return v.handle, nil
	default:
		return fileio.Unsupported, nil
	}
}

func predicate(query func(*fileio.System, fileio.Target) (bool, error)) Method {
	return func(r *Registry, _ Value, args []Value) (Value, error) {
		var v Value
		if err := Scan(args, "o", &v); err != nil {
			return nil, err
		}

		t, err := r.target(v)
		if err != nil {
			return nil, err
		}

		return query(r.sys, t)
	}
}

func fileTestSize(r *Registry, _ Value, args []Value) (Value, error) {
	var v Value
	if err := Scan(args, "o", &v); err != nil {
		return nil, err
	}

	t, err := r.target(v)
	if err != nil {
		return nil, err
	}

	size, err := r.sys.Size(t)
	if err != nil {
		return nil, err
	}

	return int(size), nil
}

// FileTest.size?(obj) -> Integer or nil
func fileTestSizeP(r *Registry, _ Value, args []Value) (Value, error) {
	var v Value
	if err := Scan(args, "o", &v); err != nil {
		return nil, err
	}

	t, err := r.target(v)
	if err != nil {
		return nil, err
	}

	size, ok, err := r.sys.SizeIfNonZero(t)
	if err != nil || !ok {
		return nil, err
	}

	return int(size), nil
}
