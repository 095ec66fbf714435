package fileio

import "golang.org/x/sys/unix"

// File::Constants values. LOCK_UN and LOCK_NB are 8 and 4 on purpose: these
// are the flock(2) bit values scripts depend on, not a sequence.
const (
	LockSH = 1
	LockEX = 2
	LockNB = 4
	LockUN = 8
)

// Separator is File::SEPARATOR.
const Separator = "/"

// nativeLock maps File::Constants lock bits to the host's flock(2) bits.
func nativeLock(op int) int {
	var how int

	if op&LockSH != 0 {
		how |= unix.LOCK_SH
	}

	if op&LockEX != 0 {
		how |= unix.LOCK_EX
	}

	if op&LockUN != 0 {
		how |= unix.LOCK_UN
	}

	if op&LockNB != 0 {
		how |= unix.LOCK_NB
	}

	return how
}
