package builtin

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/calvinalkan/fdio/pkg/fileio"
)

// Exception is an error raised into script code.
type Exception struct {
	// Class is the exception class name, for example "IOError" or
	// "Errno::ENOENT".
	Class string

	// Message is the exception message.
	Message string

	// Err is the Go error the exception was raised for, if any.
	Err error
}

func (e *Exception) Error() string {
	return e.Class + ": " + e.Message
}

func (e *Exception) Unwrap() error {
	return e.Err
}

func raise(class, format string, args ...any) *Exception {
	return &Exception{Class: class, Message: fmt.Sprintf(format, args...)}
}

var categories = []struct {
	sentinel error
	class    string
}{
	{fileio.ErrInvalidArgument, "ArgumentError"},
	{fileio.ErrEndOfFile, "EOFError"},
	{fileio.ErrIO, "IOError"},
	{fileio.ErrNotImplemented, "NotImplementedError"},
}

// toException converts err into the exception a script sees.
func toException(err error) *Exception {
	var exc *Exception
	if errors.As(err, &exc) {
		return exc
	}

	var osErr *fileio.OSError
	if errors.As(err, &osErr) {
		class := "SystemCallError"
		if errno := osErr.Errno(); errno != 0 {
			if name := unix.ErrnoName(errno); name != "" {
				class = "Errno::" + name
			}
		}

		return &Exception{Class: class, Message: osErr.Error(), Err: err}
	}

	for _, c := range categories {
		if errors.Is(err, c.sentinel) {
			msg := strings.TrimPrefix(err.Error(), c.sentinel.Error()+": ")

			return &Exception{Class: c.class, Message: msg, Err: err}
		}
	}

	return &Exception{Class: "RuntimeError", Message: err.Error(), Err: err}
}
