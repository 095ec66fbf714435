package fileio

// AttachSecondary sets the secondary descriptor, as a pipe-backed handle
// would have.
func (h *Handle) AttachSecondary(fd int) {
	h.fd2 = fd
}

// AttachPid records a child process on the handle.
func (h *Handle) AttachPid(pid int) {
	h.pid = pid
}

// Secondary returns the secondary descriptor.
func (h *Handle) Secondary() int {
	return h.fd2
}
