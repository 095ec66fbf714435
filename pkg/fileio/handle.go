package fileio

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sys/unix"

	"github.com/calvinalkan/fdio/pkg/fs"
)

// closedFD marks a descriptor slot that does not back an open file.
const closedFD = -1

// MaxReadLen is the largest length [Handle.Read] allocates a buffer for.
const MaxReadLen = math.MaxInt32

// reservedFD is the highest standard-stream descriptor. Descriptors at or
// below it are never closed by [Handle.Finalize].
const reservedFD = 2

// Handle owns up to two descriptors plus the mode state of one script IO
// object.
//
// A handle moves Constructed -> Open -> Closed. The move to Closed happens
// through [Handle.Finalize] only, whichever path triggers it: an explicit
// [Handle.Close], a heap sweep in the runtime, or [Handle.Init] replacing the
// descriptor. Closing a closed handle fails with [ErrIO].
type Handle struct {
	fs  fs.FS
	log *slog.Logger

	fd       int
	fd2      int
	pid      int
	writable bool
	sync     bool
}

// Init (re)attaches the handle to fd. The mode is validated before anything
// changes. If the handle still owns descriptors they are finalized first,
// and a failure to close them is returned without attaching fd.
func (h *Handle) Init(fd int, mode string) error {
	flags, err := ParseMode(mode)
	if err != nil {
		return err
	}

	if err := h.Finalize(false); err != nil {
		return err
	}

	h.fd = fd
	h.fd2 = closedFD
	h.pid = 0
	h.writable = flags.Has(FlagWritable)
	h.sync = false

	return nil
}

// Read reads up to maxLen bytes into buf, which is grown or shrunk to
// maxLen first (a new buffer is allocated when buf is nil).
//
// A negative maxLen returns (nil, nil). At end of stream a zero-length read
// returns an empty non-nil slice while any other length fails with
// [ErrEndOfFile]. A short read returns just the bytes read. A maxLen above
// [MaxReadLen] fails with ENOMEM before anything is allocated.
func (h *Handle) Read(maxLen int, buf []byte) ([]byte, error) {
	if maxLen < 0 {
		return nil, nil
	}

	if maxLen > MaxReadLen {
		return nil, &OSError{Op: "sysread", Err: unix.ENOMEM}
	}

	if cap(buf) >= maxLen {
		buf = buf[:maxLen]
	} else {
		grown := make([]byte, maxLen)
		copy(grown, buf)
		buf = grown
	}

	n, err := h.fs.Read(h.fd, buf)
	if err != nil {
		return nil, osError("sysread", "", err)
	}

	if n == 0 {
		if maxLen == 0 {
			return []byte{}, nil
		}

		return nil, errReadEOF
	}

	return buf[:n], nil
}

// Seek moves the read/write offset and returns the new position.
// whence takes the io.Seek* values; a negative whence means io.SeekStart.
func (h *Handle) Seek(offset int64, whence int) (int64, error) {
	if whence < 0 {
		whence = unix.SEEK_SET
	}

	pos, err := h.fs.Seek(h.fd, offset, whence)
	if err != nil || pos < 0 {
		return 0, errSeekFailed
	}

	return pos, nil
}

// Write writes p once and returns the count the kernel accepted, which may
// be short. It goes to the secondary descriptor when there is one.
func (h *Handle) Write(p []byte) (int, error) {
	if !h.writable {
		return 0, errNotWritable
	}

	fd := h.fd
	if h.fd2 != closedFD {
		fd = h.fd2
	}

	n, err := h.fs.Write(fd, p)
	if err != nil {
		return n, osError("syswrite", "", err)
	}

	return n, nil
}

// Close finalizes the handle, reporting close failures.
func (h *Handle) Close() error {
	if h.fd < 0 {
		return errClosedStream
	}

	return h.Finalize(false)
}

// Finalize closes the primary and secondary descriptors independently.
//
// Descriptors 0-2 are left open. Each slot returns to the closed state only
// after its own close succeeded. With suppress set, close failures are
// logged and dropped; otherwise they are returned as an [*OSError].
func (h *Handle) Finalize(suppress bool) error {
	result := &multierror.Error{ErrorFormat: joinErrors}

	if h.fd > reservedFD {
		if err := h.fs.Close(h.fd); err != nil {
			result = multierror.Append(result, err)
		} else {
			h.fd = closedFD
		}
	}

	if h.fd2 > reservedFD {
		if err := h.fs.Close(h.fd2); err != nil {
			result = multierror.Append(result, err)
		} else {
			h.fd2 = closedFD
		}
	}

	err := result.ErrorOrNil()
	if err == nil {
		return nil
	}

	if suppress {
		h.log.Debug("finalize failed", "fd", h.fd, "fd2", h.fd2, "error", err)

		return nil
	}

	return osError("close", "", err)
}

// Closed reports whether the primary descriptor is closed.
func (h *Handle) Closed() bool {
	return h.fd < 0
}

// Fileno returns the primary descriptor, -1 once closed.
func (h *Handle) Fileno() int {
	return h.fd
}

// Pid returns the child process attached to the handle, if any.
func (h *Handle) Pid() (int, bool) {
	if h.pid > 0 {
		return h.pid, true
	}

	return 0, false
}

// Writable reports whether the mode allowed writing.
func (h *Handle) Writable() bool {
	return h.writable
}

// Sync reports the sync-on-write flag.
func (h *Handle) Sync() (bool, error) {
	if h.fd < 0 {
		return false, errClosedStream
	}

	return h.sync, nil
}

// SetSync updates the sync-on-write flag and returns the new value.
func (h *Handle) SetSync(sync bool) (bool, error) {
	if h.fd < 0 {
		return false, errClosedStream
	}

	h.sync = sync

	return sync, nil
}

// CloseOnExec is not supported on any target.
func (h *Handle) CloseOnExec() (bool, error) {
	return false, fmt.Errorf("%w: IO#close_on_exec? is not supported on the platform", ErrNotImplemented)
}

// SetCloseOnExec is not supported on any target.
func (h *Handle) SetCloseOnExec(bool) error {
	return fmt.Errorf("%w: IO#close_on_exec= is not supported on the platform", ErrNotImplemented)
}

// Stat returns metadata for the primary descriptor.
func (h *Handle) Stat() (fs.Stat, error) {
	if h.fd < 0 {
		return fs.Stat{}, errClosedStream
	}

	st, err := h.fs.Fstat(h.fd)
	if err != nil {
		return fs.Stat{}, osError("fstat", "", err)
	}

	return st, nil
}

// Flock applies an advisory lock. op is a combination of [LockSH],
// [LockEX], [LockUN] and [LockNB]. With LockNB, a busy lock returns
// (false, nil) instead of an error.
func (h *Handle) Flock(op int) (bool, error) {
	if h.fd < 0 {
		return false, errClosedStream
	}

	err := h.fs.Flock(h.fd, nativeLock(op))

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrUnsupported):
		return false, fmt.Errorf("%w: File#flock is not supported on the platform", ErrNotImplemented)
	case op&LockNB != 0 && errors.Is(err, unix.EWOULDBLOCK):
		return false, nil
	default:
		return false, osError("flock", "", err)
	}
}

func joinErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}

	return strings.Join(msgs, "; ")
}
