//go:build unix

package shm

import (
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// Region is a mapping of shared memory
type Region struct {
	mu     sync.Mutex
	data   []byte
	file   *os.File
	path   string
	closed bool
}

// Create creates or truncates the file at path, sizes it to size bytes and maps it read/write
// and shared. The new region is zero-filled.
func Create(path string, size int) (*Region, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, errors.Wrapf(err, "shm: failed to create %s", path)
	}

	if err := unix.Ftruncate(int(f.Fd()), int64(size)); err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "shm: failed to size %s to %d bytes", path, size)
	}

	return mapFile(f, path, size)
}

// Open maps an existing file read/write and shared. The region spans the full file.
func Open(path string) (*Region, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "shm: failed to open %s", path)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "shm: failed to stat %s", path)
	}

	size := info.Size()
	if size == 0 {
		_ = f.Close()
		return nil, errors.Newf("shm: %s is empty", path)
	}
	if size > int64(^uint(0)>>1) {
		_ = f.Close()
		return nil, errors.Newf("shm: %s is too large to map (%d bytes)", path, size)
	}

	return mapFile(f, path, int(size))
}

func mapFile(f *os.File, path string, size int) (*Region, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "shm: mmap of %s failed", path)
	}

	return &Region{
		data: data,
		file: f,
		path: path,
	}, nil
}

// Anonymous maps size bytes of zero-filled shared memory that is not backed by a file. The mapping is
// inherited by child processes.
func Anonymous(size int) (*Region, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}

	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANON)
	if err != nil {
		return nil, errors.Wrapf(err, "shm: anonymous mmap of %d bytes failed", size)
	}

	return &Region{data: data}, nil
}

// Bytes returns the mapped memory. It must not be used after Close.
func (r *Region) Bytes() []byte { return r.data }

// Size returns the size of the mapping in bytes
func (r *Region) Size() int { return len(r.data) }

// Path returns the backing file path, or "" for anonymous regions
func (r *Region) Path() string { return r.path }

// Lock acquires exclusive access to the region. Goroutines of this process are serialized with a
// mutex, and for file-backed regions other processes are excluded with an advisory flock on the
// backing file.
func (r *Region) Lock() error {
	r.mu.Lock()

	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}

	if r.file == nil {
		return nil
	}

	for {
		err := unix.Flock(int(r.file.Fd()), unix.LOCK_EX)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			r.mu.Unlock()
			return errors.Wrapf(err, "shm: failed to lock %s", r.path)
		}

		return nil
	}
}

// Unlock releases the lock taken by Lock
func (r *Region) Unlock() error {
	defer r.mu.Unlock()

	if r.file == nil || r.closed {
		return nil
	}

	err := unix.Flock(int(r.file.Fd()), unix.LOCK_UN)
	if err != nil {
		return errors.Wrapf(err, "shm: failed to unlock %s", r.path)
	}

	return nil
}

// Sync flushes the mapping to the backing file. It does nothing for anonymous regions.
func (r *Region) Sync() error {
	if r.closed {
		return ErrClosed
	}

	if r.file == nil {
		return nil
	}

	return errors.Wrapf(unix.Msync(r.data, unix.MS_SYNC), "shm: msync of %s failed", r.path)
}

// Close unmaps the region and closes the backing file. Calling Close more than once is a no-op.
func (r *Region) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	err := unix.Munmap(r.data)
	r.data = nil

	if r.file != nil {
		err = errors.CombineErrors(err, r.file.Close())
	}

	return errors.Wrap(err, "shm: failed to close region")
}
