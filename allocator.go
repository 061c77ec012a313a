// Package shmarena manages a single pre-existing contiguous region of memory, typically shared
// memory, with a fixed-capacity slot table and a fixed set of allocation size classes. The region
// is formatted (or attached to) once with Allocator.Bind, after which Alloc, Free and Realloc carve
// it into slots identified by opaque offset handles.
//
// An Allocator performs no locking. When a region is shared between goroutines or processes, the
// consumer must hold a lock for the duration of every call.
package shmarena

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/shmarena/memutils"
	"github.com/vkngwrapper/shmarena/memutils/defrag"
	"github.com/vkngwrapper/shmarena/memutils/metadata"
	"github.com/vkngwrapper/shmarena/memutils/sizeclass"
	"golang.org/x/exp/slog"
)

// Handle identifies a live allocation. It is the offset of the allocation from the start of the
// arena's data region and stays valid until the allocation is freed.
type Handle int

// NoHandle is returned alongside errors from operations that produce a Handle. The exception is a
// failed validation under AllocatorCreateValidateOperations: the operation has already been applied
// by then, so its handle is returned with the error.
const NoHandle Handle = -1

type Allocator struct {
	logger       *slog.Logger
	createFlags  CreateFlags
	slotCapacity int
	sizeClasses  sizeclass.Table
	callbacks    memoryCallbacks

	slots *metadata.SlotTable

	compactionPasses int
	compactionTotals defrag.Stats
}

// Bind associates the allocator with a region of memory. With BindCreate, the region is formatted:
// the slot table is written to the start of the region and a single free slot covers the rest. With
// BindAttach, the allocator uses a slot table previously written to the region, possibly by another
// process.
//
// Bind is idempotent: once it has succeeded, later calls are no-ops regardless of their arguments.
func (a *Allocator) Bind(region []byte, mode BindMode) error {
	if a.slots.IsBound() {
		return nil
	}

	err := a.slots.Bind(region, a.slotCapacity, mode)
	if err != nil {
		return err
	}

	a.logger.Debug("Allocator::Bind",
		slog.String("Mode", mode.String()),
		slog.Int("RegionSize", len(region)),
		slog.Int("SlotCapacity", a.slots.Capacity()),
		slog.Int("DataSize", a.slots.DataSize()))

	return a.validateIfRequested()
}

// IsBound returns true once Bind has succeeded
func (a *Allocator) IsBound() bool {
	return a.slots.IsBound()
}

// SizeClasses returns the size-class table this allocator rounds requests with
func (a *Allocator) SizeClasses() sizeclass.Table {
	return a.sizeClasses
}

// Alloc reserves a slot of at least size bytes and returns its handle. The size is rounded up to a
// size class, then:
//
// - A free slot exactly matching the class size is used if there is one.
//
// - Otherwise, the smallest free slot larger than the class size is split in two: the front is handed
// out and the rest is recorded as a new free slot.
//
// - If neither is possible, or the slot table has no room to record a split, the slot table is
// compacted once and the search is repeated.
//
// Requests larger than the largest size class fail with memutils.ErrOversizedRequest. Requests that
// still cannot be satisfied after compaction fail with memutils.ErrOutOfMemory. The contents of the
// returned memory are not initialized.
//
// If AllocatorCreateValidateOperations was specified and the slot table fails validation after the
// slot was committed, the live handle is returned together with the validation error.
func (a *Allocator) Alloc(size int) (Handle, error) {
	if !a.slots.IsBound() {
		return NoHandle, errors.WithStack(memutils.ErrNotBound)
	}

	classSize, err := a.sizeClasses.RoundUp(size)
	if err != nil {
		return NoHandle, err
	}

	handle, err := a.allocClass(size, classSize)
	if err != nil {
		return NoHandle, err
	}

	return handle, a.validateIfRequested()
}

func (a *Allocator) allocClass(size, classSize int) (Handle, error) {
	for attempt := 0; attempt < 2; attempt++ {
		found, request := a.slots.CreateAllocationRequest(classSize)
		if !found {
			if attempt == 0 {
				a.compact()
			}
			continue
		}

		err := a.slots.Alloc(request)
		if err != nil {
			return NoHandle, errors.Wrap(err, "failed to commit allocation request")
		}

		handle := Handle(request.Offset)
		a.logger.Debug("Allocator::Alloc",
			slog.Int("Size", size),
			slog.Int("ClassSize", classSize),
			slog.String("Type", request.Type.String()),
			slog.Int("Handle", int(handle)))

		a.callbacks.Allocate(handle, classSize)

		return handle, nil
	}

	a.logger.LogAttrs(context.Background(), slog.LevelWarn, "arena is out of memory",
		slog.Int("Size", size),
		slog.Int("ClassSize", classSize),
		slog.Int("SlotCount", a.slots.Count()),
		slog.Int("FreeBytes", a.slots.SumFreeSize()))

	err := errors.WithDetailf(errors.WithStack(memutils.ErrOutOfMemory),
		"Failed while allocating block of %d bytes in shared memory.", size)
	return NoHandle, errors.WithHint(err, "Increase the size or slot capacity of the shared memory region.")
}

// Free releases the allocation identified by handle. The freed memory is overwritten with
// memutils.FreedFillPattern unless AllocatorCreateSkipFreePattern was specified.
//
// Freeing a handle that does not identify a live allocation, including freeing the same handle
// twice, fails with memutils.ErrCorruptedHandle. That error indicates a bug in the consumer or a
// corrupted slot table and should never be ignored.
func (a *Allocator) Free(handle Handle) error {
	if !a.slots.IsBound() {
		return errors.WithStack(memutils.ErrNotBound)
	}

	err := a.free(handle)
	if err != nil {
		return err
	}

	return a.validateIfRequested()
}

func (a *Allocator) free(handle Handle) error {
	index, err := a.slots.Free(int(handle))
	if err != nil {
		return a.corruptedHandle(handle, "freeing", err)
	}

	slot := a.slots.Slot(index)
	if a.createFlags&AllocatorCreateSkipFreePattern == 0 {
		memutils.FillFreed(a.slots.SlotBytes(index))
	}

	a.logger.Debug("Allocator::Free", slog.Int("Handle", int(handle)), slog.Int("Size", slot.Size))
	a.callbacks.Free(handle, slot.Size)

	return nil
}

// Realloc makes sure the allocation identified by handle can hold at least size bytes, and returns
// the handle to use from now on.
//
// If the allocation's current slot is already large enough, the same handle is returned and nothing
// changes: slots are never shrunk. Otherwise a new slot is allocated with Alloc, the full contents of
// the old slot are copied to it, the old slot is freed, and the new handle is returned. If the new
// slot cannot be allocated, the error from Alloc is returned and the original allocation is left
// untouched. As with Alloc, a validation failure is reported only after the move has completed, and
// the new handle is returned with it.
//
// Passing a handle that does not identify a live allocation fails with memutils.ErrCorruptedHandle.
func (a *Allocator) Realloc(handle Handle, size int) (Handle, error) {
	if !a.slots.IsBound() {
		return NoHandle, errors.WithStack(memutils.ErrNotBound)
	}

	index := a.slots.Find(int(handle))
	if index < 0 {
		return NoHandle, a.corruptedHandle(handle, "reallocating", metadata.ErrSlotNotFound)
	}

	oldSlot := a.slots.Slot(index)
	if oldSlot.Free {
		return NoHandle, a.corruptedHandle(handle, "reallocating", metadata.ErrSlotAlreadyFree)
	}

	classSize, err := a.sizeClasses.RoundUp(size)
	if err != nil {
		return NoHandle, err
	}

	if classSize <= oldSlot.Size {
		return handle, nil
	}

	newHandle, err := a.allocClass(size, classSize)
	if err != nil {
		return NoHandle, err
	}

	// Compaction never moves used slots, so the old slot's bytes are still at its offset
	data := a.slots.Data()
	copy(data[int(newHandle):int(newHandle)+oldSlot.Size], data[oldSlot.Offset:oldSlot.End()])

	a.logger.Debug("Allocator::Realloc",
		slog.Int("OldHandle", int(handle)),
		slog.Int("NewHandle", int(newHandle)),
		slog.Int("OldSize", oldSlot.Size),
		slog.Int("NewSize", classSize))

	err = a.free(handle)
	if err != nil {
		return NoHandle, err
	}

	return newHandle, a.validateIfRequested()
}

// Compact merges all runs of adjacent free slots. Alloc does this on its own when a request cannot be
// satisfied, so consumers rarely need to call it directly. Live handles are not affected.
func (a *Allocator) Compact() (defrag.Stats, error) {
	if !a.slots.IsBound() {
		return defrag.Stats{}, errors.WithStack(memutils.ErrNotBound)
	}

	stats := a.compact()
	return stats, a.validateIfRequested()
}

func (a *Allocator) compact() defrag.Stats {
	stats := defrag.Compact(a.slots)
	a.compactionPasses++
	a.compactionTotals.Add(stats)

	a.logger.Debug("Allocator::compact",
		slog.Int("SlotsBefore", stats.SlotsBefore),
		slog.Int("SlotsAfter", stats.SlotsAfter),
		slog.Int("LargestFreeSlot", stats.LargestFreeSlot))

	return stats
}

// Bytes returns the memory of the allocation identified by handle. The returned slice covers the
// full slot, which may be longer than the size originally requested, and aliases the region: it must
// not be used after the allocation is freed or moved by Realloc.
func (a *Allocator) Bytes(handle Handle) ([]byte, error) {
	if !a.slots.IsBound() {
		return nil, errors.WithStack(memutils.ErrNotBound)
	}

	index := a.slots.Find(int(handle))
	if index < 0 {
		return nil, a.corruptedHandle(handle, "accessing", metadata.ErrSlotNotFound)
	}

	if a.slots.Slot(index).Free {
		return nil, a.corruptedHandle(handle, "accessing", metadata.ErrSlotAlreadyFree)
	}

	return a.slots.SlotBytes(index), nil
}

// Validate checks the slot table for internal consistency, most importantly that the slots tile the
// data region exactly. Every used slot must also hold one of this allocator's size classes, which
// catches a region attached with a different size-class table than the one that filled it. When the
// allocator is functioning correctly, it should not be possible for this method to return an error.
func (a *Allocator) Validate() error {
	if !a.slots.IsBound() {
		return errors.WithStack(memutils.ErrNotBound)
	}

	return a.validate()
}

func (a *Allocator) validate() error {
	err := a.slots.Validate()
	if err != nil {
		return err
	}

	return a.slots.VisitAllRegions(func(offset int, size int, free bool) error {
		if !free && !a.sizeClasses.Contains(size) {
			return errors.Newf("used slot at offset %d holds %d bytes, which is not a size class", offset, size)
		}
		return nil
	})
}

// DebugLogAllAllocations writes a debug record for every live allocation to the allocator's logger
func (a *Allocator) DebugLogAllAllocations() {
	if !a.slots.IsBound() {
		return
	}

	a.slots.DebugLogAllAllocations(a.logger, func(log *slog.Logger, offset int, size int) {
		log.LogAttrs(context.Background(), slog.LevelDebug, "[LIVE ALLOCATION]",
			slog.Int("handle", offset),
			slog.Int("size", size))
	})
}

func (a *Allocator) corruptedHandle(handle Handle, action string, cause error) error {
	a.logger.LogAttrs(context.Background(), slog.LevelError, "corrupted handle",
		slog.Int("handle", int(handle)),
		slog.String("action", action),
		slog.Any("error", cause))

	err := errors.WithDetailf(errors.WithStack(memutils.ErrCorruptedHandle),
		"Failed while %s handle %d in shared memory.", action, handle)
	err = errors.WithHint(err, "The handle was already freed or was never returned by this allocator.")
	return errors.WithSecondaryError(err, cause)
}

func (a *Allocator) validateIfRequested() error {
	if a.createFlags&AllocatorCreateValidateOperations == 0 {
		return nil
	}

	err := a.validate()
	if err != nil {
		return errors.Wrap(err, "slot table failed validation")
	}

	return nil
}
