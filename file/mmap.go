package file

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// MmapFile represents an mmapd file and includes both the buffer to the data and the file descriptor.
type MmapFile struct {
	Data []byte
	Fd   *os.File
}

// OpenMmapFile maps an existing file read-only.
func OpenMmapFile(path string) (*MmapFile, error) {
	fd, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	info, err := fd.Stat()
	if err != nil {
		_ = fd.Close()
		return nil, errors.Wrapf(err, "stat %s", path)
	}
	if info.Size() == 0 {
		_ = fd.Close()
		return nil, errors.Errorf("mmap %s: empty file", path)
	}
	data, err := Mmap(fd, false, info.Size())
	if err != nil {
		_ = fd.Close()
		return nil, errors.Wrapf(err, "mmap %s", path)
	}
	return &MmapFile{Data: data, Fd: fd}, nil
}

// CreateMmapFile creates path with exactly size bytes and maps it writable.
func CreateMmapFile(path string, size int) (*MmapFile, error) {
	fd, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", path)
	}
	if err := fd.Truncate(int64(size)); err != nil {
		_ = fd.Close()
		_ = os.Remove(path)
		return nil, errors.Wrapf(err, "truncate %s", path)
	}
	data, err := Mmap(fd, true, int64(size))
	if err != nil {
		_ = fd.Close()
		_ = os.Remove(path)
		return nil, errors.Wrapf(err, "mmap %s", path)
	}
	return &MmapFile{Data: data, Fd: fd}, nil
}

// Bytes returns sz bytes starting at off without copying.
func (m *MmapFile) Bytes(off, sz int) ([]byte, error) {
	if off < 0 || sz < 0 || off+sz > len(m.Data) {
		return nil, io.EOF
	}
	return m.Data[off : off+sz], nil
}

// Sync flushes the mapped pages to disk.
func (m *MmapFile) Sync() error {
	if m == nil || m.Data == nil {
		return nil
	}
	return errors.Wrapf(Msync(m.Data), "msync %s", m.Fd.Name())
}

// Close unmaps the data and closes the descriptor.
func (m *MmapFile) Close() error {
	if m == nil || m.Fd == nil {
		return nil
	}
	var err error
	if m.Data != nil {
		err = errors.Wrapf(Munmap(m.Data), "munmap %s", m.Fd.Name())
		m.Data = nil
	}
	if cerr := m.Fd.Close(); cerr != nil && err == nil {
		err = errors.Wrapf(cerr, "close %s", m.Fd.Name())
	}
	m.Fd = nil
	return err
}

// Delete closes the file and removes it from disk.
func (m *MmapFile) Delete() error {
	if m == nil || m.Fd == nil {
		return nil
	}
	name := m.Fd.Name()
	if err := m.Close(); err != nil {
		return err
	}
	return RemoveFile(name)
}
