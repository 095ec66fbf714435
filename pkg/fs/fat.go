package fs

// FAT wraps an [FS] and restricts it to what a FatFs-style driver offers.
//
// FAT volumes have no permission bits, no symbolic links, no advisory locks
// and no notion of a working directory or creation mask, so:
//   - [FAT.Chmod] succeeds without doing anything
//   - [FAT.Lstat] behaves like [FAT.Stat]
//   - [FAT.Flock] and [FAT.Getwd] return [ErrUnsupported]
//   - [FAT.Umask] returns 0
//
// Everything else is forwarded unchanged.
type FAT struct {
	fs FS
}

// NewFAT returns a [FAT] view of fs.
func NewFAT(fs FS) *FAT {
	return &FAT{fs: fs}
}

func (f *FAT) Open(path string, flag int, perm uint32) (int, error) {
	return f.fs.Open(path, flag, perm)
}

func (f *FAT) Close(fd int) error {
	return f.fs.Close(fd)
}

func (f *FAT) Read(fd int, p []byte) (int, error) {
	return f.fs.Read(fd, p)
}

func (f *FAT) Write(fd int, p []byte) (int, error) {
	return f.fs.Write(fd, p)
}

func (f *FAT) Seek(fd int, offset int64, whence int) (int64, error) {
	return f.fs.Seek(fd, offset, whence)
}

func (f *FAT) Fstat(fd int) (Stat, error) {
	return f.fs.Fstat(fd)
}

func (f *FAT) Stat(path string) (Stat, error) {
	return f.fs.Stat(path)
}

// Lstat is [FAT.Stat]: there are no links to stop at.
func (f *FAT) Lstat(path string) (Stat, error) {
	return f.fs.Stat(path)
}

func (f *FAT) Unlink(path string) error {
	return f.fs.Unlink(path)
}

func (f *FAT) Rename(oldpath, newpath string) error {
	return f.fs.Rename(oldpath, newpath)
}

// Chmod is a no-op.
func (f *FAT) Chmod(string, uint32) error {
	return nil
}

func (f *FAT) Flock(int, int) error {
	return ErrUnsupported
}

func (f *FAT) Getwd() (string, error) {
	return "", ErrUnsupported
}

func (f *FAT) Umask() int {
	return 0
}

// Compile-time interface check.
var _ FS = (*FAT)(nil)
