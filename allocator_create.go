package shmarena

import (
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/shmarena/memutils"
	"github.com/vkngwrapper/shmarena/memutils/metadata"
	"github.com/vkngwrapper/shmarena/memutils/sizeclass"
	"golang.org/x/exp/slog"
)

// CreateFlags indicate specific allocator behaviors to activate or deactivate
type CreateFlags int32

const (
	// AllocatorCreateSkipFreePattern disables overwriting the memory of freed slots with
	// memutils.FreedFillPattern. Freed memory is then left as the consumer wrote it.
	AllocatorCreateSkipFreePattern CreateFlags = 1 << iota
	// AllocatorCreateValidateOperations runs a full consistency check of the slot table after every
	// operation that modifies it, and returns the resulting error from that operation. This is
	// expensive and intended for tests and diagnostics.
	AllocatorCreateValidateOperations
)

var allocatorCreateFlagsMapping = map[CreateFlags]string{
	AllocatorCreateSkipFreePattern:    "AllocatorCreateSkipFreePattern",
	AllocatorCreateValidateOperations: "AllocatorCreateValidateOperations",
}

func (f CreateFlags) String() string {
	if f == 0 {
		return "None"
	}

	var names []string
	for bit := CreateFlags(1); bit != 0 && bit <= f; bit <<= 1 {
		if f&bit == 0 {
			continue
		}

		name, ok := allocatorCreateFlagsMapping[bit]
		if !ok {
			name = "Unknown"
		}
		names = append(names, name)
	}

	return strings.Join(names, "|")
}

// BindMode indicates whether Allocator.Bind formats the region or attaches to an existing arena
type BindMode = metadata.BindMode

const (
	// BindCreate formats a fresh region with a single free slot spanning the whole data region
	BindCreate = metadata.BindCreate
	// BindAttach binds to a region already formatted by BindCreate, without modifying it
	BindAttach = metadata.BindAttach
)

// CreateOptions contains optional settings when creating an allocator. It is valid to leave all
// fields blank.
type CreateOptions struct {
	// Flags indicates specific allocator behaviors to activate or deactivate
	Flags CreateFlags
	// SlotCapacity is the number of slot descriptors reserved in the header of a region formatted with
	// BindCreate. It bounds the number of live allocations plus free fragments. If left 0,
	// metadata.DefaultCapacity is used. It is ignored when attaching, since the capacity is read from
	// the region header.
	SlotCapacity int
	// SizeClasses is the set of sizes the allocator hands out. If left blank, sizeclass.Default is
	// used. All processes attaching to the same region must use the same size classes.
	SizeClasses sizeclass.Table

	// MemoryCallbackOptions is an optional set of callbacks that will be executed whenever a slot is
	// handed out or released
	MemoryCallbackOptions *MemoryCallbackOptions
}

// New creates a new, unbound Allocator. Bind must be called before any allocations are made.
//
// logger - The logger that allocator operations will be reported to. If nil, output is discarded.
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, options CreateOptions) (*Allocator, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard))
	}

	allocator := &Allocator{
		logger:      logger,
		createFlags: options.Flags,
		slots:       metadata.NewSlotTable(),
		callbacks: memoryCallbacks{
			Callbacks: options.MemoryCallbackOptions,
		},
	}
	allocator.callbacks.Allocator = allocator

	allocator.slotCapacity = options.SlotCapacity
	if allocator.slotCapacity == 0 {
		allocator.slotCapacity = metadata.DefaultCapacity
	} else if allocator.slotCapacity < 0 || allocator.slotCapacity > metadata.MaxCapacity {
		return nil, errors.Wrapf(memutils.ErrInvalidCapacity, "CreateOptions.SlotCapacity is %d, must be at most %d",
			options.SlotCapacity, metadata.MaxCapacity)
	}

	allocator.sizeClasses = options.SizeClasses
	if allocator.sizeClasses.IsZero() {
		allocator.sizeClasses = sizeclass.Default
	}

	return allocator, nil
}
