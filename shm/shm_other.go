//go:build !unix

package shm

import (
	"os"
	"sync"

	"github.com/cockroachdb/errors"
)

// Region is a heap-backed stand-in for shared memory on platforms without mmap. File-backed regions
// are read into memory when opened and written back by Sync and Close.
type Region struct {
	mu     sync.Mutex
	data   []byte
	path   string
	closed bool
}

// Create creates or truncates the file at path and returns a zero-filled region of size bytes
func Create(path string, size int) (*Region, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}

	r := &Region{data: make([]byte, size), path: path}
	if err := r.Sync(); err != nil {
		return nil, err
	}

	return r, nil
}

// Open reads an existing file into a region
func Open(path string) (*Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "shm: failed to read %s", path)
	}
	if len(data) == 0 {
		return nil, errors.Newf("shm: %s is empty", path)
	}

	return &Region{data: data, path: path}, nil
}

// Anonymous returns a zero-filled region of size bytes that is private to this process
func Anonymous(size int) (*Region, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}

	return &Region{data: make([]byte, size)}, nil
}

func (r *Region) Bytes() []byte { return r.data }

func (r *Region) Size() int { return len(r.data) }

func (r *Region) Path() string { return r.path }

// Lock serializes goroutines of this process. Other processes are not excluded.
func (r *Region) Lock() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	return nil
}

func (r *Region) Unlock() error {
	r.mu.Unlock()
	return nil
}

func (r *Region) Sync() error {
	if r.closed {
		return ErrClosed
	}
	if r.path == "" {
		return nil
	}

	return errors.Wrapf(os.WriteFile(r.path, r.data, 0o600), "shm: failed to write %s", r.path)
}

func (r *Region) Close() error {
	if r.closed {
		return nil
	}

	err := r.Sync()
	r.closed = true
	r.data = nil

	return err
}
