package builtin

import (
	"github.com/calvinalkan/fdio/pkg/fileio"
)

func (r *Registry) installFile() {
	c := newClass("File", nil, r.io, false)
	r.file = c
	r.consts["File"] = c

	consts := newClass("Constants", c, nil, true)
	consts.defineConst("LOCK_SH", fileio.LockSH)
	consts.defineConst("LOCK_EX", fileio.LockEX)
	consts.defineConst("LOCK_UN", fileio.LockUN)
	consts.defineConst("LOCK_NB", fileio.LockNB)
	consts.defineConst("SEPARATOR", fileio.Separator)
	c.defineConst("Constants", consts)
	c.include(consts)

	c.defineClassMethod("open", func(r *Registry, self Value, args []Value) (Value, error) {
		return r.instantiate(self.(*Class), args)
	})
	c.defineClassMethod("delete", fileUnlink)
	c.defineClassMethod("unlink", fileUnlink)
	c.defineClassMethod("rename", fileRename)
	c.defineClassMethod("basename", fileBasename)
	c.defineClassMethod("_getwd", fileGetwd)
	c.defineClassMethod("_gethome", fileGethome)
	c.defineClassMethod("umask", fileUmask)

	c.defineMethod("initialize", fileInitialize)
	c.defineMethod("flock", fileFlock)
}

// File#initialize(path_or_fd, mode = "r", perm = 0666)
func fileInitialize(r *Registry, self Value, args []Value) (Value, error) {
	var (
		target Value
		mode   = fileio.DefaultMode
		perm   = -1
	)

	if err := Scan(args, "o|Si", &target, &mode, &perm); err != nil {
		return nil, err
	}

	if perm < 0 {
		perm = int(fileio.DefaultPerm)
	}

	switch target := target.(type) {
	case int:
		return self, r.attach(self.(*Object), target, mode)
	case string:
		fd, err := r.sys.Sysopen(target, mode, uint32(perm))
		if err != nil {
			return nil, err
		}

		if err := r.attach(self.(*Object), fd, mode); err != nil {
			_ = r.sys.Sysclose(fd)

			return nil, err
		}

		return self, nil
	default:
		return nil, raise("TypeError", "no implicit conversion of %s into String", typeName(target))
	}
}

// File.unlink(*paths) -> Integer
func fileUnlink(r *Registry, _ Value, args []Value) (Value, error) {
	var rest []Value
	if err := Scan(args, "*", &rest); err != nil {
		return nil, err
	}

	paths := make([]string, len(rest))

	for i, v := range rest {
		s, ok := v.(string)
		if !ok {
			return nil, raise("TypeError", "no implicit conversion of %s into String", typeName(v))
		}

		paths[i] = s
	}

	return r.sys.Unlink(paths...)
}

// File.rename(from, to) -> 0
func fileRename(r *Registry, _ Value, args []Value) (Value, error) {
	var from, to string
	if err := Scan(args, "SS", &from, &to); err != nil {
		return nil, err
	}

	if err := r.sys.Rename(from, to); err != nil {
		return nil, err
	}

	return 0, nil
}

func fileBasename(_ *Registry, _ Value, args []Value) (Value, error) {
	var path string
	if err := Scan(args, "S", &path); err != nil {
		return nil, err
	}

	return fileio.Basename(path), nil
}

func fileGetwd(r *Registry, _ Value, args []Value) (Value, error) {
	if err := Scan(args, ""); err != nil {
		return nil, err
	}

	return optional(r.sys.Getwd())
}

// File._gethome(user = nil) -> String or nil
func fileGethome(r *Registry, _ Value, args []Value) (Value, error) {
	var user string
	if err := Scan(args, "|S", &user); err != nil {
		return nil, err
	}

	return optional(r.sys.Gethome(user))
}

func fileUmask(r *Registry, _ Value, args []Value) (Value, error) {
	if err := Scan(args, ""); err != nil {
		return nil, err
	}

	return r.sys.Umask(), nil
}

// File#flock(op) -> 0, or false when LOCK_NB found the lock busy
func fileFlock(_ *Registry, self Value, args []Value) (Value, error) {
	var op int
	if err := Scan(args, "i", &op); err != nil {
		return nil, err
	}

	h, err := handleOf(self)
	if err != nil {
		return nil, err
	}

	ok, err := h.Flock(op)
	if err != nil {
		return nil, err
	}

	if !ok {
		return false, nil
	}

	return 0, nil
}

// optional turns an absent string into nil.
func optional(s string, ok bool, err error) (Value, error) {
	if err != nil || !ok {
		return nil, err
	}

	return s, nil
}
