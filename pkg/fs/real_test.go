package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"
)

func Test_Real_Open_Write_Read_Round_Trips_Bytes(t *testing.T) {
	t.Parallel()

	fsys := NewReal()
	path := filepath.Join(t.TempDir(), "data.txt")

	fd, err := fsys.Open(path, unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC, 0o644)
	if err != nil {
		t.Fatalf("Open(write): %v", err)
	}

	n, err := fsys.Write(fd, []byte("hello"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	if got, want := n, 5; got != want {
		t.Fatalf("n=%d, want=%d", got, want)
	}

	if err := fsys.Close(fd); err != nil {
		t.Fatalf("Close: %v", err)
	}

	fd, err = fsys.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		t.Fatalf("Open(read): %v", err)
	}
	defer fsys.Close(fd)

	buf := make([]byte, 16)

	n, err = fsys.Read(fd, buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if got, want := string(buf[:n]), "hello"; got != want {
		t.Fatalf("Read=%q, want=%q", got, want)
	}

	n, err = fsys.Read(fd, buf)
	if err != nil || n != 0 {
		t.Fatalf("Read at EOF=(%d, %v), want=(0, nil)", n, err)
	}
}

func Test_Real_Open_Returns_Bare_Errno_When_Path_Is_Missing(t *testing.T) {
	t.Parallel()

	fsys := NewReal()

	_, err := fsys.Open(filepath.Join(t.TempDir(), "missing"), unix.O_RDONLY, 0)

	if got, want := err, error(unix.ENOENT); got != want {
		t.Fatalf("err=%#v, want=%#v", got, want)
	}
}

func Test_Real_Open_Sets_CloseOnExec(t *testing.T) {
	t.Parallel()

	fsys := NewReal()
	path := filepath.Join(t.TempDir(), "data.txt")

	fd, err := fsys.Open(path, unix.O_WRONLY|unix.O_CREAT, 0o644)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer fsys.Close(fd)

	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	if err != nil {
		t.Fatalf("fcntl: %v", err)
	}

	if flags&unix.FD_CLOEXEC == 0 {
		t.Fatalf("FD_CLOEXEC not set (flags=%#x)", flags)
	}
}

func Test_Real_Stat_Distinguishes_Files_Directories_And_Links(t *testing.T) {
	t.Parallel()

	fsys := NewReal()
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	link := filepath.Join(dir, "link")

	if err := os.WriteFile(file, []byte("abc"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := os.Symlink(file, link); err != nil {
		t.Fatalf("setup: %v", err)
	}

	st, err := fsys.Stat(file)
	if err != nil {
		t.Fatalf("Stat(file): %v", err)
	}

	if !st.IsRegular() || st.IsDir() || st.Size != 3 {
		t.Fatalf("Stat(file)=%+v, want regular file of size 3", st)
	}

	st, err = fsys.Stat(dir)
	if err != nil {
		t.Fatalf("Stat(dir): %v", err)
	}

	if !st.IsDir() {
		t.Fatalf("Stat(dir)=%+v, want directory", st)
	}

	st, err = fsys.Stat(link)
	if err != nil {
		t.Fatalf("Stat(link): %v", err)
	}

	if !st.IsRegular() {
		t.Fatalf("Stat(link)=%+v, want link target metadata", st)
	}

	st, err = fsys.Lstat(link)
	if err != nil {
		t.Fatalf("Lstat(link): %v", err)
	}

	if !st.IsSymlink() {
		t.Fatalf("Lstat(link)=%+v, want symlink", st)
	}
}

func Test_Real_Unlink_Rename_Chmod_Act_On_Paths(t *testing.T) {
	t.Parallel()

	fsys := NewReal()
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")

	if err := os.WriteFile(a, []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := fsys.Chmod(a, 0o600); err != nil {
		t.Fatalf("Chmod: %v", err)
	}

	if err := fsys.Rename(a, b); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	st, err := fsys.Stat(b)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}

	if got, want := st.Mode&0o777, uint32(0o600); got != want {
		t.Fatalf("perm=%#o, want=%#o", got, want)
	}

	if err := fsys.Unlink(b); err != nil {
		t.Fatalf("Unlink: %v", err)
	}

	if err := fsys.Unlink(b); !errors.Is(err, unix.ENOENT) {
		t.Fatalf("second Unlink err=%v, want=%v", err, unix.ENOENT)
	}
}

func Test_Real_Flock_Fails_With_EWOULDBLOCK_When_Held_Elsewhere(t *testing.T) {
	t.Parallel()

	fsys := NewReal()
	path := filepath.Join(t.TempDir(), "lock")

	owner, err := fsys.Open(path, unix.O_RDONLY|unix.O_CREAT, 0o644)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer fsys.Close(owner)

	other, err := fsys.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer fsys.Close(other)

	if err := fsys.Flock(owner, unix.LOCK_EX); err != nil {
		t.Fatalf("Flock(owner): %v", err)
	}

	err = fsys.Flock(other, unix.LOCK_EX|unix.LOCK_NB)
	if got, want := err, unix.EWOULDBLOCK; !errors.Is(got, want) {
		t.Fatalf("Flock(other) err=%v, want=%v", got, want)
	}
}

func Test_Real_Seek_Reports_Offset(t *testing.T) {
	t.Parallel()

	fsys := NewReal()
	path := filepath.Join(t.TempDir(), "data.txt")

	if err := os.WriteFile(path, []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	fd, err := fsys.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer fsys.Close(fd)

	pos, err := fsys.Seek(fd, -3, unix.SEEK_END)
	if err != nil {
		t.Fatalf("Seek: %v", err)
	}

	if got, want := pos, int64(7); got != want {
		t.Fatalf("pos=%d, want=%d", got, want)
	}

	st, err := fsys.Fstat(fd)
	if err != nil {
		t.Fatalf("Fstat: %v", err)
	}

	if got, want := st.Size, int64(10); got != want {
		t.Fatalf("Size=%d, want=%d", got, want)
	}
}

func Test_Real_Getwd_Matches_Os(t *testing.T) {
	t.Parallel()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("os.Getwd: %v", err)
	}

	want, err := filepath.EvalSymlinks(wd)
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}

	got, err := NewReal().Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}

	if got != want {
		t.Fatalf("Getwd()=%q, want=%q", got, want)
	}
}

func Test_Real_At_Resolves_Relative_Paths_Against_Its_Directory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fsys := NewRealAt(dir)

	fd, err := fsys.Open("rel.txt", unix.O_WRONLY|unix.O_CREAT, 0o644)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := fsys.Close(fd); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "rel.txt")); err != nil {
		t.Fatalf("file not created under root: %v", err)
	}

	if err := fsys.Rename("rel.txt", "moved.txt"); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	st, err := fsys.Stat("moved.txt")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}

	if !st.IsRegular() {
		t.Fatalf("IsRegular=false, want=true")
	}

	wd, err := fsys.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}

	if got, want := wd, dir; got != want {
		t.Fatalf("Getwd=%q, want=%q", got, want)
	}

	if err := fsys.Unlink(filepath.Join(dir, "moved.txt")); err != nil {
		t.Fatalf("Unlink(absolute): %v", err)
	}
}

func Test_ProcUmask_Parses_Status_File(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}

		return path
	}

	tests := []struct {
		name   string
		path   string
		want   int
		wantOK bool
	}{
		{"umask line", write("ok", "Name:\tfdio\nUmask:\t0027\nState:\tR (running)\n"), 0o027, true},
		{"no umask line", write("old", "Name:\tfdio\nState:\tR (running)\n"), 0, false},
		{"garbage value", write("bad", "Umask:\tnope\n"), 0, false},
		{"missing file", filepath.Join(dir, "missing"), 0, false},
	}

	for _, tt := range tests {
		got, ok := procUmask(tt.path)
		if got != tt.want || ok != tt.wantOK {
			t.Fatalf("%s: procUmask=(%#o, %v), want=(%#o, %v)", tt.name, got, ok, tt.want, tt.wantOK)
		}
	}
}

func Test_Real_Umask_Reads_Kernel_Reported_Mask_When_Available(t *testing.T) {
	t.Parallel()

	want, ok := procUmask(procStatusPath)
	if !ok {
		t.Skip("kernel does not report Umask in /proc/self/status")
	}

	if got := NewReal().Umask(); got != want {
		t.Fatalf("Umask=%#o, want=%#o", got, want)
	}
}
