// Package fs provides a descriptor-level filesystem abstraction for the
// script runtime's IO layer, plus implementations for testing and fault
// injection.
//
// The main types are:
//   - [FS]: interface for descriptor and path syscalls
//   - [Stat]: the subset of file metadata the runtime consumes
//   - [Real]: production implementation using [golang.org/x/sys/unix]
//   - [FAT]: restricted implementation matching a FatFs-style target
//   - [Chaos]: testing implementation that injects errno failures
//
// Unlike the [os] package, descriptors are plain ints and errors are bare
// errno values ([unix.Errno]), because the layer above owns descriptor
// lifetimes itself and reports failures by errno.
//
// Example usage:
//
//	fsys := fs.NewReal()
//	fd, err := fsys.Open("config.json", unix.O_RDONLY, 0)
//	if err != nil {
//	    return err
//	}
//	defer fsys.Close(fd)
//
//	buf := make([]byte, 512)
//	n, err := fsys.Read(fd, buf)
package fs

//go:generate mockgen -destination=./fsmock/fs_mock.go -package=fsmock github.com/calvinalkan/fdio/pkg/fs FS

import (
	"errors"

	"golang.org/x/sys/unix"
)

// ErrUnsupported is returned by implementations that cannot provide an
// operation on their platform (for example [FAT.Flock]).
var ErrUnsupported = errors.ErrUnsupported

// Stat is the file metadata returned by [FS.Stat], [FS.Lstat] and [FS.Fstat].
type Stat struct {
	// Mode holds the file type and permission bits (st_mode).
	Mode uint32
	// Size is the file length in bytes (st_size).
	Size int64
}

// IsDir reports whether the metadata describes a directory.
func (s Stat) IsDir() bool {
	return s.Mode&unix.S_IFMT == unix.S_IFDIR
}

// IsRegular reports whether the metadata describes a regular file.
func (s Stat) IsRegular() bool {
	return s.Mode&unix.S_IFMT == unix.S_IFREG
}

// IsSymlink reports whether the metadata describes a symbolic link.
// Only [FS.Lstat] can observe links.
func (s Stat) IsSymlink() bool {
	return s.Mode&unix.S_IFMT == unix.S_IFLNK
}

// FS defines the syscalls the IO layer forwards to.
//
// Implementations in this package include:
//   - [Real]: production use, wraps [golang.org/x/sys/unix]
//   - [FAT]: FatFs-style target without chmod, locks or working directory
//   - [Chaos]: testing use, injects errno failures
//
// Every method mirrors the syscall of the same name. Errors are returned as
// [unix.Errno] (possibly wrapped, see [InjectedError]) so callers can test
// them with [errors.Is].
//
// Implementations are not required to be safe for concurrent use; the
// runtime driving them is single-threaded.
type FS interface {
	// Open opens path with raw open(2) flags and permission bits and returns
	// the new descriptor.
	Open(path string, flag int, perm uint32) (int, error)

	// Close releases fd. The descriptor is gone even when an error is
	// returned.
	Close(fd int) error

	// Read reads up to len(p) bytes. A zero count with a nil error is end of
	// file.
	Read(fd int, p []byte) (int, error)

	// Write writes p and returns the count actually written, which may be
	// short.
	Write(fd int, p []byte) (int, error)

	// Seek repositions fd and returns the resulting offset.
	Seek(fd int, offset int64, whence int) (int64, error)

	// Fstat returns metadata for an open descriptor.
	Fstat(fd int) (Stat, error)

	// Stat returns metadata for path, following symlinks.
	Stat(path string) (Stat, error)

	// Lstat returns metadata for path without following symlinks.
	Lstat(path string) (Stat, error)

	// Unlink removes a file.
	Unlink(path string) error

	// Rename moves oldpath to newpath.
	Rename(oldpath, newpath string) error

	// Chmod changes the permission bits of path.
	Chmod(path string, mode uint32) error

	// Flock applies or removes an advisory lock. how takes the LOCK_*
	// values of flock(2).
	Flock(fd int, how int) error

	// Getwd returns the current working directory.
	Getwd() (string, error)

	// Umask returns the process file mode creation mask.
	Umask() int
}
