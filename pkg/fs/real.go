package fs

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Real implements [FS] using the host kernel.
//
// All methods are passthroughs to [golang.org/x/sys/unix] with identical
// errno semantics. The exceptions are that calls interrupted by a signal
// (EINTR) are restarted, [Real.Open] always adds O_CLOEXEC so descriptors do
// not leak into processes started by the host, and [Real.Umask] restores the
// mask it reads.
//
// A Real created by [NewRealAt] resolves relative paths against its own
// directory instead of the process working directory.
type Real struct {
	dir string
}

// NewReal returns a new [Real] filesystem.
func NewReal() *Real {
	return &Real{}
}

// NewRealAt returns a [Real] rooted at dir. dir must be absolute.
func NewRealAt(dir string) *Real {
	return &Real{dir: filepath.Clean(dir)}
}

func (r *Real) resolve(path string) string {
	if r.dir == "" || path == "" || filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(r.dir, path)
}

// --- Descriptor Operations ---

func (r *Real) Open(path string, flag int, perm uint32) (int, error) {
	for {
		fd, err := unix.Open(r.resolve(path), flag|unix.O_CLOEXEC, perm)
		if err == unix.EINTR {
			continue
		}

		if err != nil {
			return -1, err
		}

		return fd, nil
	}
}

// A passthrough wrapper for close(2). EINTR is not retried: on Linux the
// descriptor is already released when close reports it.
func (r *Real) Close(fd int) error {
	return unix.Close(fd)
}

func (r *Real) Read(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Read(fd, p)
		if err == unix.EINTR {
			continue
		}

		if err != nil {
			return 0, err
		}

		return n, nil
	}
}

func (r *Real) Write(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Write(fd, p)
		if err == unix.EINTR {
			continue
		}

		if err != nil {
			return 0, err
		}

		return n, nil
	}
}

// A passthrough wrapper for lseek(2).
func (r *Real) Seek(fd int, offset int64, whence int) (int64, error) {
	return unix.Seek(fd, offset, whence)
}

// --- Metadata ---

func (r *Real) Fstat(fd int) (Stat, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return Stat{}, err
	}

	return fromStatT(&st), nil
}

func (r *Real) Stat(path string) (Stat, error) {
	var st unix.Stat_t
	if err := unix.Stat(r.resolve(path), &st); err != nil {
		return Stat{}, err
	}

	return fromStatT(&st), nil
}

func (r *Real) Lstat(path string) (Stat, error) {
	var st unix.Stat_t
	if err := unix.Lstat(r.resolve(path), &st); err != nil {
		return Stat{}, err
	}

	return fromStatT(&st), nil
}

// --- Mutations ---

// A passthrough wrapper for unlink(2).
func (r *Real) Unlink(path string) error {
	return unix.Unlink(r.resolve(path))
}

// A passthrough wrapper for rename(2).
func (r *Real) Rename(oldpath, newpath string) error {
	return unix.Rename(r.resolve(oldpath), r.resolve(newpath))
}

// A passthrough wrapper for chmod(2).
func (r *Real) Chmod(path string, mode uint32) error {
	return unix.Chmod(r.resolve(path), mode)
}

// --- Locking ---

func (r *Real) Flock(fd int, how int) error {
	for {
		err := unix.Flock(fd, how)
		if err == unix.EINTR {
			continue
		}

		return err
	}
}

// --- Process ---

// Getwd returns the root directory of a rooted Real and getcwd(3)
// otherwise.
func (r *Real) Getwd() (string, error) {
	if r.dir != "" {
		return r.dir, nil
	}

	return unix.Getwd()
}

// Umask returns the process creation mask.
//
// The mask is read from /proc/self/status where the kernel reports it
// (Linux 4.7 and later). Otherwise it is read by setting it to 0 and
// restoring it, and a file another goroutine creates in between is created
// without the mask applied.
func (r *Real) Umask() int {
	if mask, ok := procUmask(procStatusPath); ok {
		return mask
	}

	mask := unix.Umask(0)
	unix.Umask(mask)

	return mask
}

const procStatusPath = "/proc/self/status"

// procUmask parses the "Umask:" line of a /proc/<pid>/status file.
func procUmask(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}

	for _, line := range strings.Split(string(data), "\n") {
		value, ok := strings.CutPrefix(line, "Umask:")
		if !ok {
			continue
		}

		mask, err := strconv.ParseUint(strings.TrimSpace(value), 8, 32)
		if err != nil {
			return 0, false
		}

		return int(mask), true
	}

	return 0, false
}

func fromStatT(st *unix.Stat_t) Stat {
	return Stat{Mode: uint32(st.Mode), Size: st.Size}
}

// Compile-time interface check.
var _ FS = (*Real)(nil)
