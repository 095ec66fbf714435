// Package fileio implements the descriptor lifecycle and filesystem queries
// behind a script runtime's IO, File and FileTest classes.
//
// A [System] binds an [fs.FS] to a target platform and is the entry point:
//
//	sys := fileio.NewSystem(fs.NewReal())
//	fd, err := sys.Sysopen("log.txt", "a", fileio.DefaultPerm)
//	if err != nil {
//	    return err
//	}
//
//	h, err := sys.NewHandle(fd, "a")
//	if err != nil {
//	    return err
//	}
//	defer h.Close()
//
//	_, err = h.Write([]byte("hello\n"))
//
// Nothing in this package is safe for concurrent use; the runtime it serves
// is single-threaded.
package fileio

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/avast/retry-go"
	"golang.org/x/sys/unix"

	"github.com/calvinalkan/fdio/pkg/fs"
)

// Platform selects the behavior of the target filesystem.
type Platform uint8

const (
	// PlatformPOSIX is a regular Unix host.
	PlatformPOSIX Platform = iota

	// PlatformFAT is a FatFs-style target: no chmod, locks, working or home
	// directory, and metadata queries accept only path strings.
	PlatformFAT
)

func (p Platform) String() string {
	switch p {
	case PlatformPOSIX:
		return "posix"
	case PlatformFAT:
		return "fat"
	default:
		return "unknown"
	}
}

// ParsePlatform parses "posix" or "fat".
func ParsePlatform(s string) (Platform, error) {
	switch s {
	case "posix":
		return PlatformPOSIX, nil
	case "fat":
		return PlatformFAT, nil
	default:
		return 0, errors.New("unknown platform " + s + " (want posix or fat)")
	}
}

// System forwards script-level IO operations to an [fs.FS].
type System struct {
	fs       fs.FS
	platform Platform
	log      *slog.Logger
	reclaim  func()
	lookup   func(string) (string, bool)
}

// Option configures a [System].
type Option func(*System)

// WithPlatform selects the target platform. [PlatformFAT] wraps the
// filesystem in [fs.FAT].
func WithPlatform(p Platform) Option {
	return func(s *System) { s.platform = p }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *slog.Logger) Option {
	return func(s *System) { s.log = log }
}

// WithReclaimer sets the pass [System.Sysopen] runs once when the process
// is out of descriptors. The embedding runtime passes its garbage
// collector here so unreachable handles give their descriptors back.
func WithReclaimer(reclaim func()) Option {
	return func(s *System) { s.reclaim = reclaim }
}

// WithEnv makes [System.Gethome] read HOME from env instead of the process
// environment.
func WithEnv(env map[string]string) Option {
	return func(s *System) {
		s.lookup = func(key string) (string, bool) {
			v, ok := env[key]

			return v, ok
		}
	}
}

// NewSystem returns a [System] over fsys.
func NewSystem(fsys fs.FS, opts ...Option) *System {
	s := &System{
		fs:      fsys,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		reclaim: func() {},
		lookup:  os.LookupEnv,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.platform == PlatformFAT {
		if _, ok := s.fs.(*fs.FAT); !ok {
			s.fs = fs.NewFAT(s.fs)
		}
	}

	return s
}

// Platform returns the configured target platform.
func (s *System) Platform() Platform {
	return s.platform
}

// FS returns the filesystem the system forwards to.
func (s *System) FS() fs.FS {
	return s.fs
}

// SetReclaimer replaces the reclamation pass after construction, for
// runtimes that are built after the system they run on.
func (s *System) SetReclaimer(reclaim func()) {
	if reclaim == nil {
		reclaim = func() {}
	}

	s.reclaim = reclaim
}

// NewHandle wraps an already-open descriptor. mode must be a valid mode
// string; callers substitute [DefaultMode] when the script gave none.
func (s *System) NewHandle(fd int, mode string) (*Handle, error) {
	h := &Handle{fs: s.fs, log: s.log, fd: closedFD, fd2: closedFD}

	if err := h.Init(fd, mode); err != nil {
		return nil, err
	}

	return h, nil
}

// Sysopen opens path and returns the raw descriptor.
//
// When the open fails because the process or the system is out of
// descriptors (EMFILE, ENFILE), the reclamation pass runs once and the open
// is retried exactly once. Every other error, and a second failure, is
// returned as an [*OSError] naming path.
func (s *System) Sysopen(path, mode string, perm uint32) (int, error) {
	flags, err := ParseMode(mode)
	if err != nil {
		return -1, err
	}

	native := flags.OpenFlags()
	fd := -1
	attempt := 0

	err = retry.Do(
		func() error {
			if attempt > 0 {
				s.reclaim()
			}

			attempt++

			var openErr error

			fd, openErr = s.fs.Open(path, native, perm)

			return openErr
		},
		retry.Attempts(2),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isExhausted),
		retry.OnRetry(func(n uint, err error) {
			s.log.Debug("sysopen out of descriptors", "path", path, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return -1, osError("sysopen", path, err)
	}

	return fd, nil
}

// Sysclose closes a raw descriptor that is not owned by a [Handle].
func (s *System) Sysclose(fd int) error {
	if err := s.fs.Close(fd); err != nil {
		return osError("close", "", err)
	}

	return nil
}

// isExhausted reports whether err means no descriptor slot was free.
func isExhausted(err error) bool {
	return errors.Is(err, unix.EMFILE) || errors.Is(err, unix.ENFILE)
}
