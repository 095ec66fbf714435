package fileio

import (
	"strings"

	"golang.org/x/sys/unix"
)

// DefaultMode is the mode used when a script omits one.
const DefaultMode = "r"

// DefaultPerm is the permission used by [System.Sysopen] when a script
// omits one (before umask).
const DefaultPerm uint32 = 0o666

// Flags is the abstract access-flag set parsed from a mode string.
type Flags uint16

const (
	FlagReadable Flags = 1 << iota
	FlagWritable
	FlagReadWrite
	FlagAppend
	FlagCreate
	FlagTruncate
	FlagBinary
)

// accessMask selects the mutually exclusive access triad.
const accessMask = FlagReadable | FlagWritable | FlagReadWrite

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagReadable, "READABLE"},
	{FlagWritable, "WRITABLE"},
	{FlagReadWrite, "READWRITE"},
	{FlagAppend, "APPEND"},
	{FlagCreate, "CREATE"},
	{FlagTruncate, "TRUNCATE"},
	{FlagBinary, "BINARY"},
}

// Has reports whether every flag in other is set.
func (f Flags) Has(other Flags) bool {
	return f&other == other
}

// String renders the set as "READABLE|BINARY", or "0" when empty.
func (f Flags) String() string {
	var parts []string

	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			parts = append(parts, fn.name)
		}
	}

	if len(parts) == 0 {
		return "0"
	}

	return strings.Join(parts, "|")
}

// ParseMode parses a mode string of the form {"r","w","a"} followed by any
// number of 'b' and '+' characters.
//
//	"r" -> READABLE
//	"w" -> WRITABLE|CREATE|TRUNCATE
//	"a" -> WRITABLE|APPEND|CREATE
//	"b" -> adds BINARY, "+" -> adds READWRITE
//
// Anything else fails with [ErrInvalidArgument].
func ParseMode(mode string) (Flags, error) {
	if mode == "" {
		return 0, invalidMode(mode)
	}

	var flags Flags

	switch mode[0] {
	case 'r':
		flags |= FlagReadable
	case 'w':
		flags |= FlagWritable | FlagCreate | FlagTruncate
	case 'a':
		flags |= FlagWritable | FlagAppend | FlagCreate
	default:
		return 0, invalidMode(mode)
	}

	for i := 1; i < len(mode); i++ {
		switch mode[i] {
		case 'b':
			flags |= FlagBinary
		case '+':
			flags |= FlagReadWrite
		default:
			return 0, invalidMode(mode)
		}
	}

	return flags, nil
}

// OpenFlags translates the set into open(2) flags.
//
// The access triad must be exactly one of READABLE, WRITABLE or READWRITE.
// Any other combination (which is what "r+", "w+" and "a+" produce) falls
// through to O_RDONLY. APPEND, TRUNCATE and CREATE are OR'ed in on their own;
// BINARY is ignored.
func (f Flags) OpenFlags() int {
	var native int

	switch f & accessMask {
	case FlagReadable:
		native = unix.O_RDONLY
	case FlagWritable:
		native = unix.O_WRONLY
	case FlagReadWrite:
		native = unix.O_RDWR
	}

	if f.Has(FlagAppend) {
		native |= unix.O_APPEND
	}

	if f.Has(FlagTruncate) {
		native |= unix.O_TRUNC
	}

	if f.Has(FlagCreate) {
		native |= unix.O_CREAT
	}

	return native
}
