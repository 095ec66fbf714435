package fileio

import (
	"fmt"
	"os/user"
	"strings"
)

// Unlink removes each path in order and stops at the first failure. It
// returns how many paths were given.
func (s *System) Unlink(paths ...string) (int, error) {
	for _, path := range paths {
		if err := s.fs.Unlink(path); err != nil {
			return 0, osError("unlink", path, err)
		}
	}

	return len(paths), nil
}

// Rename moves from to to. If the rename fails, the destination is made
// writable, removed, and the rename is tried once more; the error of the
// first attempt is returned if any of those steps fails.
func (s *System) Rename(from, to string) error {
	err := s.fs.Rename(from, to)
	if err == nil {
		return nil
	}

	if s.fs.Chmod(to, 0o666) == nil && s.fs.Unlink(to) == nil && s.fs.Rename(from, to) == nil {
		s.log.Debug("rename replaced destination", "from", from, "to", to, "error", err)

		return nil
	}

	return osError("rename", fmt.Sprintf("(%s, %s)", from, to), err)
}

// Basename returns the part of path after the last [Separator], or path
// itself when it has none. No trailing separators are stripped, so "a/"
// yields "".
func Basename(path string) string {
	if i := strings.LastIndex(path, Separator); i >= 0 {
		return path[i+1:]
	}

	return path
}

// Getwd returns the working directory. FAT targets have none and report
// false.
func (s *System) Getwd() (string, bool, error) {
	if s.platform == PlatformFAT {
		return "", false, nil
	}

	wd, err := s.fs.Getwd()
	if err != nil {
		return "", false, osError("getcwd", "", err)
	}

	return wd, true, nil
}

// Gethome returns the home directory of name, or of the current user (from
// HOME) when name is empty. FAT targets have none and report false.
func (s *System) Gethome(name string) (string, bool, error) {
	if s.platform == PlatformFAT {
		return "", false, nil
	}

	if name == "" {
		home, ok := s.lookup("HOME")
		if !ok {
			return "", false, fmt.Errorf("%w: $HOME is not set", ErrInvalidArgument)
		}

		return home, true, nil
	}

	u, err := user.Lookup(name)
	if err != nil {
		return "", false, fmt.Errorf("%w: user %s doesn't exist", ErrInvalidArgument, name)
	}

	return u.HomeDir, true, nil
}

// Umask returns the process creation mask, always 0 on FAT.
func (s *System) Umask() int {
	return s.fs.Umask()
}
