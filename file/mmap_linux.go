//go:build linux || darwin || freebsd
// +build linux darwin freebsd

package file

import (
	"os"

	"golang.org/x/sys/unix"
)

// Mmap uses the mmap system call to memory-map a file.
// fd: the file descriptor to be mapped
// writable: the memory to be mapped is writable
// size: the size to be mapped
func Mmap(fd *os.File, writable bool, size int64) ([]byte, error) {
	mtype := unix.PROT_READ
	if writable {
		mtype |= unix.PROT_WRITE // can be write
	}
	// map with sharing.
	// the data write to the memory will be copy to file, and will be seen by others
	return unix.Mmap(int(fd.Fd()), 0, int(size), mtype, unix.MAP_SHARED)
}

// Munmap unmaps a previously mapped slice.
func Munmap(data []byte) error {
	if len(data) == 0 {
		return unix.EINVAL
	}
	return unix.Munmap(data)
}

// Msync writes any modified data to persistent storage.
func Msync(b []byte) error {
	return unix.Msync(b, unix.MS_SYNC)
}
