package memutils

import "github.com/cockroachdb/errors"

var (
	// ErrOversizedRequest is returned when a requested allocation is larger than the largest
	// size class the allocator was configured with. It indicates a configuration or logic error
	// in the consumer, not a transient shortage of memory.
	ErrOversizedRequest = errors.New("too large memory block request")
	// ErrOutOfMemory is returned when the arena has no free slot large enough for a request, even
	// after compacting the slot table, or when the slot table is full and cannot record a split.
	ErrOutOfMemory = errors.New("out of memory")
	// ErrCorruptedHandle is returned when a handle passed to Free or Realloc does not map to a live
	// allocation: a double free, a foreign handle, or a corrupted slot table.
	ErrCorruptedHandle = errors.New("corrupted pointer")

	// ErrInvalidSizeClasses is returned when a size-class table is empty, contains non-positive
	// sizes or is not strictly ascending
	ErrInvalidSizeClasses = errors.New("invalid size-class table")
	// ErrInvalidCapacity is returned when a slot table is requested with fewer than one slot
	ErrInvalidCapacity = errors.New("invalid slot table capacity")
	// ErrRegionTooSmall is returned when a region cannot hold the arena header and at least one byte of data
	ErrRegionTooSmall = errors.New("memory region is too small for the arena header")
	// ErrMisalignedRegion is returned when a region does not start on a boundary suitable for the arena header
	ErrMisalignedRegion = errors.New("memory region is not aligned for the arena header")
	// ErrRegionSizeMismatch is returned when attaching to a region whose length differs from the length
	// recorded in its header when it was formatted
	ErrRegionSizeMismatch = errors.New("memory region size does not match the arena header")
	// ErrNotBound is returned from allocator operations attempted before a region was bound
	ErrNotBound = errors.New("allocator is not bound to a memory region")
)
