// Package sizeclass contains the ordered set of allocation sizes an arena hands out. Every request is
// rounded up to one of these sizes, which bounds internal fragmentation and keeps the number of
// distinct slot sizes small.
package sizeclass

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/shmarena/memutils"
)

// Default is the compiled-in class list. Sizes grow roughly along a Fibonacci progression, and the
// largest entry is the largest single allocation an arena using this table can serve.
var Default = MustNew([]int{
	32,
	64, 96, 160, 256,
	416, 672, 1088, 1760,
	2848, 4608, 7456, 12064,
	19520, 31584, 51104, 82688,
})

// Table is an immutable, strictly ascending list of allocation sizes in bytes
type Table struct {
	classes []int
}

// New validates the provided class sizes and builds a Table from a private copy of them
func New(classes []int) (Table, error) {
	if len(classes) == 0 {
		return Table{}, errors.Wrap(memutils.ErrInvalidSizeClasses, "at least one size class is required")
	}

	for i, size := range classes {
		if size <= 0 {
			return Table{}, errors.Wrapf(memutils.ErrInvalidSizeClasses, "class %d has non-positive size %d", i, size)
		}

		if i > 0 && classes[i-1] >= size {
			return Table{}, errors.Wrapf(memutils.ErrInvalidSizeClasses,
				"classes must be strictly ascending, but class %d (%d) follows %d", i, size, classes[i-1])
		}
	}

	owned := make([]int, len(classes))
	copy(owned, classes)

	return Table{classes: owned}, nil
}

// MustNew is New, but panics if the classes are invalid
func MustNew(classes []int) Table {
	table, err := New(classes)
	if err != nil {
		panic(err)
	}

	return table
}

// RoundUp returns the smallest class size that is at least requested. Requests that exceed the
// largest class fail with memutils.ErrOversizedRequest.
func (t Table) RoundUp(requested int) (int, error) {
	for _, size := range t.classes {
		if size >= requested {
			return size, nil
		}
	}

	err := errors.WithDetailf(memutils.ErrOversizedRequest,
		"Failed while allocating block of %d bytes in shared memory.", requested)
	return 0, errors.WithHintf(err, "The largest size class is %d bytes: extend the size-class table.", t.Max())
}

// Max returns the largest class size, or 0 for a zero Table
func (t Table) Max() int {
	if len(t.classes) == 0 {
		return 0
	}

	return t.classes[len(t.classes)-1]
}

// Len returns the number of classes
func (t Table) Len() int { return len(t.classes) }

// IsZero returns true if this Table was never built with New
func (t Table) IsZero() bool { return len(t.classes) == 0 }

// Classes returns a copy of the class sizes in ascending order
func (t Table) Classes() []int {
	out := make([]int, len(t.classes))
	copy(out, t.classes)
	return out
}

// Contains returns true if size is exactly one of the class sizes
func (t Table) Contains(size int) bool {
	for _, class := range t.classes {
		if class == size {
			return true
		}
		if class > size {
			return false
		}
	}

	return false
}
