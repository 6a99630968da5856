package file

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const tempSuffix = ".tmp"

// DirExists reports whether dir exists and is a directory.
func DirExists(dir string) (bool, error) {
	info, err := os.Stat(dir)
	if err == nil {
		return info.IsDir(), nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Wrapf(err, "stat %s", dir)
}

// MkdirAll creates dir and any missing parents.
func MkdirAll(dir string) error {
	return errors.Wrapf(os.MkdirAll(dir, os.ModePerm), "mkdir %s", dir)
}

// ScanDir returns the names of the regular files in dir, sorted.
func ScanDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read dir %s", dir)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// RemoveFile deletes a file. A missing file is not an error.
func RemoveFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove %s", path)
	}
	return nil
}

// RemoveDir deletes an empty directory. A missing directory is not an error.
func RemoveDir(dir string) error {
	if err := os.Remove(dir); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "rmdir %s", dir)
	}
	return nil
}

// RemoveTempFiles deletes files left over by an interrupted WriteFileAtomic and
// returns how many it removed.
func RemoveTempFiles(dir string) (int, error) {
	names, err := ScanDir(dir)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, name := range names {
		if !strings.HasSuffix(name, tempSuffix) {
			continue
		}
		if err := RemoveFile(filepath.Join(dir, name)); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// WriteFileAtomic writes data to a temporary file next to path, syncs it and
// renames it over path. Readers never observe a partially written file.
func WriteFileAtomic(path string, data []byte) error {
	if len(data) == 0 {
		return errors.Errorf("write %s: empty file", path)
	}
	tmp := path + "." + uuid.NewString() + tempSuffix
	mf, err := CreateMmapFile(tmp, len(data))
	if err != nil {
		return err
	}
	copy(mf.Data, data)
	if err := mf.Sync(); err != nil {
		_ = mf.Delete()
		return err
	}
	if err := mf.Close(); err != nil {
		_ = RemoveFile(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = RemoveFile(tmp)
		return errors.Wrapf(err, "rename %s", tmp)
	}
	return SyncDir(filepath.Dir(path))
}

// SyncDir fsyncs a directory so that entries created or renamed in it survive a crash.
func SyncDir(dir string) error {
	fd, err := os.Open(dir)
	if err != nil {
		return errors.Wrapf(err, "open dir %s", dir)
	}
	err = fd.Sync()
	if cerr := fd.Close(); err == nil {
		err = cerr
	}
	return errors.Wrapf(err, "sync dir %s", dir)
}
