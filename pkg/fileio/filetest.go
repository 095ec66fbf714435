package fileio

import (
	"errors"
	"fmt"

	"github.com/calvinalkan/fdio/pkg/fs"
)

// Target is what a FileTest query inspects: a [Path], an open [*Handle], or
// [Unsupported] for script values that are neither.
type Target interface {
	statTarget(s *System) (fs.Stat, error)
	lstatTarget(s *System) (fs.Stat, error)
}

// Path is a filesystem path target.
type Path string

func (p Path) statTarget(s *System) (fs.Stat, error) {
	st, err := s.fs.Stat(string(p))
	if err != nil {
		return fs.Stat{}, osError("stat", string(p), err)
	}

	return st, nil
}

func (p Path) lstatTarget(s *System) (fs.Stat, error) {
	st, err := s.fs.Lstat(string(p))
	if err != nil {
		return fs.Stat{}, osError("lstat", string(p), err)
	}

	return st, nil
}

// statTarget queries the handle's descriptor. A closed handle, and any
// handle on FAT, is a caller error rather than a failed query.
func (h *Handle) statTarget(s *System) (fs.Stat, error) {
	if s.platform == PlatformFAT {
		return fs.Stat{}, fmt.Errorf("%w: only path strings can be queried on %s", ErrInvalidArgument, s.platform)
	}

	return h.Stat()
}

// lstatTarget is statTarget: an open descriptor never refers to a link.
func (h *Handle) lstatTarget(s *System) (fs.Stat, error) {
	return h.statTarget(s)
}

// Unsupported is the target for values that are neither paths nor handles.
// Every query on it fails.
var Unsupported Target = unsupportedTarget{}

type unsupportedTarget struct{}

var errNotQueryable = errors.New("not a path or IO")

func (unsupportedTarget) statTarget(*System) (fs.Stat, error) {
	return fs.Stat{}, osError("stat", "", errNotQueryable)
}

func (unsupportedTarget) lstatTarget(*System) (fs.Stat, error) {
	return fs.Stat{}, osError("lstat", "", errNotQueryable)
}

// query runs a predicate over the metadata stat returns. Failed metadata
// queries (always an *OSError) answer false; caller errors are returned.
func (s *System) query(stat func(*System) (fs.Stat, error), pred func(fs.Stat) bool) (bool, error) {
	st, err := stat(s)
	if err != nil {
		var osErr *OSError
		if errors.As(err, &osErr) {
			return false, nil
		}

		return false, err
	}

	return pred(st), nil
}

// Exists reports whether t can be stat'ed.
func (s *System) Exists(t Target) (bool, error) {
	return s.query(t.statTarget, func(fs.Stat) bool { return true })
}

// IsDirectory reports whether t is a directory (following symlinks).
func (s *System) IsDirectory(t Target) (bool, error) {
	return s.query(t.statTarget, fs.Stat.IsDir)
}

// IsFile reports whether t is a regular file.
func (s *System) IsFile(t Target) (bool, error) {
	return s.query(t.statTarget, fs.Stat.IsRegular)
}

// IsZero reports whether t exists and is empty.
func (s *System) IsZero(t Target) (bool, error) {
	return s.query(t.statTarget, func(st fs.Stat) bool { return st.Size == 0 })
}

// IsSymlink reports whether t is a symbolic link. Paths are inspected
// without following links; an open handle is never a link.
func (s *System) IsSymlink(t Target) (bool, error) {
	return s.query(t.lstatTarget, fs.Stat.IsSymlink)
}

// Size returns the size of t. Unlike the predicates, a failed query is
// returned as an [*OSError].
func (s *System) Size(t Target) (int64, error) {
	st, err := t.statTarget(s)
	if err != nil {
		return 0, err
	}

	return st.Size, nil
}

// SizeIfNonZero returns the size of t, or false when t is empty or cannot
// be queried.
func (s *System) SizeIfNonZero(t Target) (int64, bool, error) {
	st, err := t.statTarget(s)
	if err != nil {
		var osErr *OSError
		if errors.As(err, &osErr) {
			return 0, false, nil
		}

		return 0, false, err
	}

	if st.Size == 0 {
		return 0, false, nil
	}

	return st.Size, true, nil
}
