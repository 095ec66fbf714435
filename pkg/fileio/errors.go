package fileio

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Error categories. Every error returned by this package either wraps one of
// these sentinels or is an [*OSError].
//
//	if errors.Is(err, fileio.ErrEndOfFile) { ... }
var (
	// ErrInvalidArgument reports a malformed mode string or an argument of
	// the wrong kind (for example an IO handle where only paths are allowed).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEndOfFile is returned by a non-empty read at end of stream.
	ErrEndOfFile = errors.New("end of file reached")

	// ErrIO reports an operation on a closed stream, a failed seek, or a
	// write to a handle that was not opened for writing.
	ErrIO = errors.New("io error")

	// ErrNotImplemented reports an operation the platform cannot provide.
	ErrNotImplemented = errors.New("not implemented")
)

var (
	errClosedStream = fmt.Errorf("%w: closed stream", ErrIO)
	errNotWritable  = fmt.Errorf("%w: not opened for writing", ErrIO)
	errSeekFailed   = fmt.Errorf("%w: sysseek failed", ErrIO)
	errReadEOF      = fmt.Errorf("%w: sysread failed", ErrEndOfFile)
)

// OSError is a failed system call, carrying the operation, the path or
// context it was applied to, and the underlying errno.
//
// Use [errors.As] to extract it and [OSError.Errno] for the code:
//
//	var osErr *fileio.OSError
//	if errors.As(err, &osErr) && osErr.Errno() == unix.ENOENT { ... }
type OSError struct {
	// Op is the operation that failed ("sysopen", "sysread", "close", ...).
	Op string

	// Path is the path or context string the operation was applied to.
	// Empty for descriptor-only operations.
	Path string

	// Err is the underlying cause, usually a [unix.Errno].
	Err error
}

// Error formats as "<op> <path>: <cause>" ("<op>: <cause>" without a path).
func (e *OSError) Error() string {
	if e == nil {
		return ""
	}

	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the underlying error for use with [errors.Is] and [errors.As].
func (e *OSError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}

// Errno returns the errno behind the failure, or 0 when the cause is not an
// errno.
func (e *OSError) Errno() unix.Errno {
	var errno unix.Errno
	if errors.As(e.Err, &errno) {
		return errno
	}

	return 0
}

func osError(op, path string, err error) error {
	return &OSError{Op: op, Path: path, Err: err}
}

func invalidMode(mode string) error {
	return fmt.Errorf("%w: illegal access mode %s", ErrInvalidArgument, mode)
}
