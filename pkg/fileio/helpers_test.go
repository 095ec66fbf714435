package fileio_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/calvinalkan/fdio/pkg/fileio"
	"github.com/calvinalkan/fdio/pkg/fs"
)

func newTestSystem(t *testing.T, opts ...fileio.Option) *fileio.System {
	t.Helper()

	return fileio.NewSystem(fs.NewReal(), opts...)
}

// writeFile creates name under dir with content and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}

	return path
}

// openHandle opens path with mode and closes the handle when the test ends.
func openHandle(t *testing.T, sys *fileio.System, path, mode string) *fileio.Handle {
	t.Helper()

	fd, err := sys.Sysopen(path, mode, fileio.DefaultPerm)
	if err != nil {
		t.Fatalf("Sysopen(%q, %q): %v", path, mode, err)
	}

	h, err := sys.NewHandle(fd, mode)
	if err != nil {
		t.Fatalf("NewHandle: %v", err)
	}

	t.Cleanup(func() { _ = h.Finalize(true) })

	return h
}

func readAll(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}

	return string(data)
}
