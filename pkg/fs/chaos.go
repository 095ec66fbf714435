package fs

import (
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Op identifies an [FS] operation for fault injection.
type Op uint8

const (
	OpOpen Op = iota
	OpClose
	OpRead
	OpWrite
	OpSeek
	OpStat
	OpUnlink
	OpRename
	OpChmod
	OpFlock
	opCount
)

var opNames = [opCount]string{
	OpOpen:   "open",
	OpClose:  "close",
	OpRead:   "read",
	OpWrite:  "write",
	OpSeek:   "seek",
	OpStat:   "stat",
	OpUnlink: "unlink",
	OpRename: "rename",
	OpChmod:  "chmod",
	OpFlock:  "flock",
}

func (o Op) String() string {
	if o < opCount {
		return opNames[o]
	}

	return "unknown"
}

// ChaosConfig controls fault injection probabilities.
// Each rate is a float64 from 0.0 (never) to 1.0 (always).
type ChaosConfig struct {
	// Read faults
	ReadFailRate    float64 // Fail read operations entirely
	PartialReadRate float64 // Return fewer bytes than requested

	// Write faults
	WriteFailRate    float64 // Fail write operations entirely
	PartialWriteRate float64 // Write a prefix and report the short count

	// Other faults
	OpenFailRate   float64 // Fail Open (includes EMFILE/ENFILE exhaustion)
	CloseFailRate  float64 // Release the descriptor but report EIO
	SeekFailRate   float64 // Fail Seek
	StatFailRate   float64 // Fail Stat/Lstat/Fstat
	UnlinkFailRate float64 // Fail Unlink
	RenameFailRate float64 // Fail Rename
}

// DefaultChaosConfig returns a config with reasonable fault rates for testing.
func DefaultChaosConfig() ChaosConfig {
	return ChaosConfig{
		ReadFailRate:     0.02,
		PartialReadRate:  0.02,
		WriteFailRate:    0.02,
		PartialWriteRate: 0.03,
		OpenFailRate:     0.02,
		CloseFailRate:    0.01,
		SeekFailRate:     0.01,
		StatFailRate:     0.01,
		UnlinkFailRate:   0.02,
		RenameFailRate:   0.02,
	}
}

// ChaosMode controls how Chaos behaves.
type ChaosMode uint8

const (
	// ChaosModePassthrough behaves like the underlying FS and ignores fault
	// rates. Faults queued with [Chaos.FailNext] still fire.
	ChaosModePassthrough ChaosMode = iota

	// ChaosModeInject enables fault-rate injection.
	ChaosModeInject
)

// Chaos wraps an [FS] and injects errno failures for testing.
//
// Errors are reality-aware: ENOENT is only injected on open when the path
// really doesn't exist on the underlying filesystem. Injected errors are
// real [unix.Errno] values wrapped in [InjectedError], so errors.Is against
// the errno keeps working and [IsInjected] can tell them apart.
//
// Besides random faults, [Chaos.FailNext] queues deterministic faults for a
// single operation, which is how tests force descriptor exhaustion.
//
// Use [Chaos.SetMode] to control behavior.
// Use [Chaos.Stats] to inspect how many faults were injected.
type Chaos struct {
	fs     FS
	rng    *rand.Rand
	config ChaosConfig
	mode   atomic.Uint32

	mu      sync.Mutex
	queued  [opCount][]unix.Errno
	scripts atomic.Int64

	// Counters for testing verification
	fails         [opCount]atomic.Int64
	partialReads  atomic.Int64
	partialWrites atomic.Int64
}

// NewChaos creates a new Chaos filesystem wrapping the given [FS].
// The seed controls random fault injection for reproducibility.
func NewChaos(fs FS, seed int64, config ChaosConfig) *Chaos {
	return &Chaos{
		fs:     fs,
		rng:    rand.New(rand.NewSource(seed)),
		config: config,
	}
}

// SetMode updates Chaos behavior. Safe to call concurrently with
// filesystem operations. The default for a new [Chaos] is
// [ChaosModePassthrough].
func (c *Chaos) SetMode(m ChaosMode) { c.mode.Store(uint32(m)) }

// FailNext queues errno to be returned by the next call of op, in FIFO
// order. Queued faults fire in every mode.
func (c *Chaos) FailNext(op Op, errno ...unix.Errno) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.queued[op] = append(c.queued[op], errno...)
}

// ChaosStats contains counts of injected faults.
type ChaosStats struct {
	OpenFails     int64
	CloseFails    int64
	ReadFails     int64
	WriteFails    int64
	SeekFails     int64
	StatFails     int64
	UnlinkFails   int64
	RenameFails   int64
	ChmodFails    int64
	FlockFails    int64
	PartialReads  int64
	PartialWrites int64
	Scripted      int64 // faults that came from FailNext (also counted per op)
}

// Stats returns the current fault injection counts.
func (c *Chaos) Stats() ChaosStats {
	return ChaosStats{
		OpenFails:     c.fails[OpOpen].Load(),
		CloseFails:    c.fails[OpClose].Load(),
		ReadFails:     c.fails[OpRead].Load(),
		WriteFails:    c.fails[OpWrite].Load(),
		SeekFails:     c.fails[OpSeek].Load(),
		StatFails:     c.fails[OpStat].Load(),
		UnlinkFails:   c.fails[OpUnlink].Load(),
		RenameFails:   c.fails[OpRename].Load(),
		ChmodFails:    c.fails[OpChmod].Load(),
		FlockFails:    c.fails[OpFlock].Load(),
		PartialReads:  c.partialReads.Load(),
		PartialWrites: c.partialWrites.Load(),
		Scripted:      c.scripts.Load(),
	}
}

// TotalFaults returns the total number of injected faults.
func (c *Chaos) TotalFaults() int64 {
	var total int64
	for i := range c.fails {
		total += c.fails[i].Load()
	}

	return total + c.partialReads.Load() + c.partialWrites.Load()
}

// should returns true with the given probability when chaos is injecting.
func (c *Chaos) should(rate float64) bool {
	if ChaosMode(c.mode.Load()) != ChaosModeInject {
		return false
	}

	return c.randFloat() < rate
}

// randFloat returns a random float64 in [0.0, 1.0) (thread-safe).
func (c *Chaos) randFloat() float64 {
	c.mu.Lock()
	result := c.rng.Float64()
	c.mu.Unlock()

	return result
}

// randIntn returns a random int in [0, n) (thread-safe).
func (c *Chaos) randIntn(n int) int {
	c.mu.Lock()
	result := c.rng.Intn(n)
	c.mu.Unlock()

	return result
}

// popQueued removes and returns the next queued fault for op.
func (c *Chaos) popQueued(op Op) (unix.Errno, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	q := c.queued[op]
	if len(q) == 0 {
		return 0, false
	}

	c.queued[op] = q[1:]

	return q[0], true
}

// fault decides whether op fails. Queued faults win over random ones.
// pick is only consulted for random faults.
func (c *Chaos) fault(op Op, rate float64, pick func() []unix.Errno) error {
	if errno, ok := c.popQueued(op); ok {
		c.scripts.Add(1)
		c.fails[op].Add(1)

		return inject(errno)
	}

	if !c.should(rate) {
		return nil
	}

	valid := pick()
	c.fails[op].Add(1)

	return inject(valid[c.randIntn(len(valid))])
}

func fixed(errs ...unix.Errno) func() []unix.Errno {
	return func() []unix.Errno { return errs }
}

// --- Descriptor Operations ---

func (c *Chaos) Open(path string, flag int, perm uint32) (int, error) {
	err := c.fault(OpOpen, c.config.OpenFailRate, func() []unix.Errno {
		// Only claim ENOENT when the path really is missing.
		if _, statErr := c.fs.Stat(path); errors.Is(statErr, unix.ENOENT) {
			return []unix.Errno{unix.ENOENT, unix.EACCES, unix.EIO, unix.EMFILE}
		}

		return []unix.Errno{unix.EACCES, unix.EIO, unix.EMFILE, unix.ENFILE}
	})
	if err != nil {
		return -1, err
	}

	return c.fs.Open(path, flag, perm)
}

// Close always releases the descriptor, even when it reports a fault, as
// close(2) does on Linux.
func (c *Chaos) Close(fd int) error {
	err := c.fault(OpClose, c.config.CloseFailRate, fixed(unix.EIO))
	if err != nil {
		_ = c.fs.Close(fd)

		return err
	}

	return c.fs.Close(fd)
}

func (c *Chaos) Read(fd int, p []byte) (int, error) {
	if err := c.fault(OpRead, c.config.ReadFailRate, fixed(unix.EIO)); err != nil {
		return 0, err
	}

	if len(p) > 1 && c.should(c.config.PartialReadRate) {
		c.partialReads.Add(1)

		return c.fs.Read(fd, p[:1+c.randIntn(len(p)-1)])
	}

	return c.fs.Read(fd, p)
}

func (c *Chaos) Write(fd int, p []byte) (int, error) {
	err := c.fault(OpWrite, c.config.WriteFailRate, fixed(unix.EIO, unix.ENOSPC, unix.EDQUOT))
	if err != nil {
		return 0, err
	}

	if len(p) > 1 && c.should(c.config.PartialWriteRate) {
		c.partialWrites.Add(1)

		return c.fs.Write(fd, p[:1+c.randIntn(len(p)-1)])
	}

	return c.fs.Write(fd, p)
}

func (c *Chaos) Seek(fd int, offset int64, whence int) (int64, error) {
	if err := c.fault(OpSeek, c.config.SeekFailRate, fixed(unix.EINVAL, unix.EIO)); err != nil {
		return -1, err
	}

	return c.fs.Seek(fd, offset, whence)
}

// --- Metadata ---

func (c *Chaos) Fstat(fd int) (Stat, error) {
	if err := c.fault(OpStat, c.config.StatFailRate, fixed(unix.EIO)); err != nil {
		return Stat{}, err
	}

	return c.fs.Fstat(fd)
}

func (c *Chaos) Stat(path string) (Stat, error) {
	if err := c.fault(OpStat, c.config.StatFailRate, fixed(unix.EACCES, unix.EIO)); err != nil {
		return Stat{}, err
	}

	return c.fs.Stat(path)
}

func (c *Chaos) Lstat(path string) (Stat, error) {
	if err := c.fault(OpStat, c.config.StatFailRate, fixed(unix.EACCES, unix.EIO)); err != nil {
		return Stat{}, err
	}

	return c.fs.Lstat(path)
}

// --- Mutations ---

func (c *Chaos) Unlink(path string) error {
	err := c.fault(OpUnlink, c.config.UnlinkFailRate, fixed(unix.EACCES, unix.EBUSY, unix.EPERM, unix.EIO))
	if err != nil {
		return err
	}

	return c.fs.Unlink(path)
}

func (c *Chaos) Rename(oldpath, newpath string) error {
	err := c.fault(OpRename, c.config.RenameFailRate, fixed(unix.EACCES, unix.EXDEV, unix.EIO, unix.EROFS))
	if err != nil {
		return err
	}

	return c.fs.Rename(oldpath, newpath)
}

// Chmod only fails through [Chaos.FailNext].
func (c *Chaos) Chmod(path string, mode uint32) error {
	if err := c.fault(OpChmod, 0, nil); err != nil {
		return err
	}

	return c.fs.Chmod(path, mode)
}

// Flock only fails through [Chaos.FailNext].
func (c *Chaos) Flock(fd int, how int) error {
	if err := c.fault(OpFlock, 0, nil); err != nil {
		return err
	}

	return c.fs.Flock(fd, how)
}

// --- Process ---

func (c *Chaos) Getwd() (string, error) {
	return c.fs.Getwd()
}

func (c *Chaos) Umask() int {
	return c.fs.Umask()
}

// Compile-time interface check.
var _ FS = (*Chaos)(nil)
