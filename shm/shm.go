// Package shm provides memory regions that can be shared between processes, for use as the backing
// memory of a shmarena.Allocator. A region is either backed by a file, so that any process can map it
// by path, or anonymous, in which case it is shared only with child processes.
package shm

import (
	"github.com/cockroachdb/errors"
)

// ErrClosed is returned from operations on a Region after Close has been called
var ErrClosed = errors.New("shm: region is closed")

func checkSize(size int) error {
	if size <= 0 {
		return errors.Newf("shm: region size must be positive, but is %d", size)
	}
	if int64(size) > int64(^uint(0)>>1) {
		return errors.Newf("shm: region of %d bytes is too large to map", size)
	}

	return nil
}
