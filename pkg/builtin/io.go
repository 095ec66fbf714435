package builtin

import "github.com/calvinalkan/fdio/pkg/fileio"

func (r *Registry) installIO() {
	c := newClass("IO", nil, nil, false)
	r.io = c
	r.consts["IO"] = c
	r.globals["$/"] = "\n"

	c.defineClassMethod("for_fd", func(r *Registry, self Value, args []Value) (Value, error) {
		return r.instantiate(self.(*Class), args)
	})
	c.defineClassMethod("sysopen", ioSysopen)
	c.defineClassMethod("sysclose", ioSysclose)

	c.defineMethod("initialize", ioInitialize)
	c.defineMethod("sync", ioSync)
	c.defineMethod("sync=", ioSetSync)
	c.defineMethod("sysread", ioSysread)
	c.defineMethod("sysseek", ioSysseek)
	c.defineMethod("syswrite", ioSyswrite)
	c.defineMethod("close", ioClose)
	c.defineMethod("closed?", ioClosed)
	c.defineMethod("pid", ioPid)
	c.defineMethod("fileno", ioFileno)
	c.defineMethod("close_on_exec?", ioCloseOnExec)
	c.defineMethod("close_on_exec=", ioSetCloseOnExec)
}

// handleOf returns the handle of an initialized IO object.
func handleOf(self Value) (*fileio.Handle, error) {
	obj, ok := self.(*Object)
	if !ok || obj.handle == nil {
		return nil, raise("IOError", "uninitialized stream")
	}

	return obj.handle, nil
}

// attach (re)initializes obj on fd.
func (r *Registry) attach(obj *Object, fd int, mode string) error {
	if obj.handle != nil {
		return obj.handle.Init(fd, mode)
	}

	h, err := r.sys.NewHandle(fd, mode)
	if err != nil {
		return err
	}

	obj.handle = h

	return nil
}

// IO.sysopen(path, mode = "r", perm = 0666) -> Integer
func ioSysopen(r *Registry, _ Value, args []Value) (Value, error) {
	path, mode, perm := "", fileio.DefaultMode, -1
	if err := Scan(args, "S|Si", &path, &mode, &perm); err != nil {
		return nil, err
	}

	if perm < 0 {
		perm = int(fileio.DefaultPerm)
	}

	fd, err := r.sys.Sysopen(path, mode, uint32(perm))
	if err != nil {
		return nil, err
	}

	return fd, nil
}

// IO.sysclose(fd) -> 0
func ioSysclose(r *Registry, _ Value, args []Value) (Value, error) {
	var fd int
	if err := Scan(args, "i", &fd); err != nil {
		return nil, err
	}

	if err := r.sys.Sysclose(fd); err != nil {
		return nil, err
	}

	return 0, nil
}

// IO#initialize(fd, mode = "r", opt = nil)
func ioInitialize(r *Registry, self Value, args []Value) (Value, error) {
	var (
		fd   int
		mode = fileio.DefaultMode
		opt  Value
	)

	if err := Scan(args, "i|So", &fd, &mode, &opt); err != nil {
		return nil, err
	}

	if err := r.attach(self.(*Object), fd, mode); err != nil {
		return nil, err
	}

	return self, nil
}

func ioSync(_ *Registry, self Value, args []Value) (Value, error) {
	if err := Scan(args, ""); err != nil {
		return nil, err
	}

	h, err := handleOf(self)
	if err != nil {
		return nil, err
	}

	return h.Sync()
}

func ioSetSync(_ *Registry, self Value, args []Value) (Value, error) {
	var sync bool
	if err := Scan(args, "b", &sync); err != nil {
		return nil, err
	}

	h, err := handleOf(self)
	if err != nil {
		return nil, err
	}

	return h.SetSync(sync)
}

// IO#sysread(maxlen, buf = nil) -> String or nil
func ioSysread(_ *Registry, self Value, args []Value) (Value, error) {
	var (
		maxLen int
		buf    string
	)

	if err := Scan(args, "i|S", &maxLen, &buf); err != nil {
		return nil, err
	}

	h, err := handleOf(self)
	if err != nil {
		return nil, err
	}

	p, err := h.Read(maxLen, []byte(buf))
	if err != nil {
		return nil, err
	}

	if p == nil {
		return nil, nil
	}

	return string(p), nil
}

// IO#sysseek(offset, whence = 0) -> Integer
func ioSysseek(_ *Registry, self Value, args []Value) (Value, error) {
	offset, whence := 0, -1
	if err := Scan(args, "i|i", &offset, &whence); err != nil {
		return nil, err
	}

	h, err := handleOf(self)
	if err != nil {
		return nil, err
	}

	pos, err := h.Seek(int64(offset), whence)
	if err != nil {
		return nil, err
	}

	return int(pos), nil
}

// IO#syswrite(obj) -> Integer
func ioSyswrite(_ *Registry, self Value, args []Value) (Value, error) {
	var v Value
	if err := Scan(args, "o", &v); err != nil {
		return nil, err
	}

	h, err := handleOf(self)
	if err != nil {
		return nil, err
	}

	n, err := h.Write([]byte(ToS(v)))
	if err != nil {
		return nil, err
	}

	return n, nil
}

func ioClose(_ *Registry, self Value, args []Value) (Value, error) {
	if err := Scan(args, ""); err != nil {
		return nil, err
	}

	h, err := handleOf(self)
	if err != nil {
		return nil, err
	}

	return nil, h.Close()
}

func ioClosed(_ *Registry, self Value, args []Value) (Value, error) {
	if err := Scan(args, ""); err != nil {
		return nil, err
	}

	h, err := handleOf(self)
	if err != nil {
		return nil, err
	}

	return h.Closed(), nil
}

func ioPid(_ *Registry, self Value, args []Value) (Value, error) {
	if err := Scan(args, ""); err != nil {
		return nil, err
	}

	h, err := handleOf(self)
	if err != nil {
		return nil, err
	}

	if pid, ok := h.Pid(); ok {
		return pid, nil
	}

	return nil, nil
}

func ioFileno(_ *Registry, self Value, args []Value) (Value, error) {
	if err := Scan(args, ""); err != nil {
		return nil, err
	}

	h, err := handleOf(self)
	if err != nil {
		return nil, err
	}

	return h.Fileno(), nil
}

func ioCloseOnExec(_ *Registry, self Value, args []Value) (Value, error) {
	if err := Scan(args, ""); err != nil {
		return nil, err
	}

	h, err := handleOf(self)
	if err != nil {
		return nil, err
	}

	return h.CloseOnExec()
}

func ioSetCloseOnExec(_ *Registry, self Value, args []Value) (Value, error) {
	var flag bool
	if err := Scan(args, "b", &flag); err != nil {
		return nil, err
	}

	h, err := handleOf(self)
	if err != nil {
		return nil, err
	}

	if err := h.SetCloseOnExec(flag); err != nil {
		return nil, err
	}

	return flag, nil
}
