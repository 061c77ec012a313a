package metadata

import (
	"math"

	"github.com/dolthub/swiss"
	"github.com/pkg/errors"
	"github.com/vkngwrapper/shmarena/memutils"
	"golang.org/x/exp/slices"
)

var (
	// ErrSlotNotFound is returned when no active slot starts at the requested offset
	ErrSlotNotFound = errors.New("no slot starts at the requested offset")
	// ErrSlotAlreadyFree is returned when a slot is freed that is not in use
	ErrSlotAlreadyFree = errors.New("slot is already free")
)

// Find returns the table index of the slot that starts at offset, or -1 if there is none
func (m *SlotTable) Find(offset int) int {
	for i, s := range m.Slots() {
		if s.Offset == offset {
			return i
		}
	}

	return -1
}

// CreateAllocationRequest searches the table for a free slot that can hold size bytes. size must
// already be rounded up to a size class.
//
// A free slot that matches size exactly is always preferred. Otherwise the smallest free slot that is
// larger than size is selected; when several are equally small, the one earliest in table order wins.
// A larger slot must be split, which requires room in the table for the remainder, so when the table
// is full only exact matches are returned.
//
// The returned boolean is false if the table cannot currently satisfy the request.
func (m *SlotTable) CreateAllocationRequest(size int) (bool, AllocationRequest) {
	var request AllocationRequest

	memutils.DebugValidate(m)

	bestSize := math.MaxInt
	selected := -1

	for i, s := range m.Slots() {
		if !s.Free {
			continue
		}

		if s.Size == size {
			request.SlotIndex = i
			request.Offset = s.Offset
			request.Size = size
			request.SlotSize = s.Size
			request.Type = AllocationRequestExact
			return true, request
		}

		if s.Size > size && s.Size < bestSize {
			bestSize = s.Size
			selected = i
		}
	}

	if selected < 0 || m.IsFull() {
		return false, request
	}

	s := m.slots[selected]
	request.SlotIndex = selected
	request.Offset = s.Offset
	request.Size = size
	request.SlotSize = s.Size
	request.Type = AllocationRequestSplit

	return true, request
}

// Alloc commits an AllocationRequest. The selected slot is marked used and, for split requests, the
// remainder of the slot is appended to the table as a new free slot immediately following the
// allocation. An error is returned if the table has changed in a way that invalidates the request.
func (m *SlotTable) Alloc(request AllocationRequest) error {
	if request.SlotIndex < 0 || request.SlotIndex >= m.header.slotCount {
		return errors.Errorf("allocation request refers to slot %d, but the table only has %d slots", request.SlotIndex, m.header.slotCount)
	}

	s := &m.slots[request.SlotIndex]
	if !s.Free {
		return errors.Errorf("allocation request refers to the slot at offset %d, which is not free", s.Offset)
	}
	if s.Offset != request.Offset || s.Size != request.SlotSize {
		return errors.Errorf("allocation request for offset %d no longer matches the slot at index %d", request.Offset, request.SlotIndex)
	}

	switch request.Type {
	case AllocationRequestExact:
		if s.Size != request.Size {
			return errors.Errorf("exact allocation request of %d bytes received a slot of %d bytes", request.Size, s.Size)
		}
		s.Free = false
	case AllocationRequestSplit:
		if s.Size < request.Size {
			return errors.Errorf("allocation request of %d bytes received a slot of only %d bytes", request.Size, s.Size)
		}

		return m.split(request.SlotIndex, request.Size)
	default:
		return errors.Errorf("unknown allocation request type: %d", request.Type)
	}

	return nil
}

func (m *SlotTable) split(index int, size int) error {
	s := &m.slots[index]
	remainder := s.Size - size

	if remainder > 0 {
		if m.IsFull() {
			return errors.New("cannot split a slot when the slot table is full")
		}

		m.slots[m.header.slotCount] = Slot{
			Size:   remainder,
			Offset: s.Offset + size,
			Free:   true,
		}
		m.header.slotCount++
	}

	s.Size = size
	s.Free = false

	return nil
}

// Free marks the slot that starts at offset as free and returns its table index. Free slots are not
// merged with their neighbors: that only happens during compaction.
func (m *SlotTable) Free(offset int) (int, error) {
	index := m.Find(offset)
	if index < 0 {
		return -1, errors.Wrapf(ErrSlotNotFound, "offset %d", offset)
	}

	s := &m.slots[index]
	if s.Free {
		return -1, errors.Wrapf(ErrSlotAlreadyFree, "offset %d", offset)
	}

	s.Free = true
	return index, nil
}

// Validate performs internal consistency checks on the table: the active slot count must be within
// capacity, no two slots may start at the same offset, and the slot ranges sorted by offset must tile
// the data region with no gaps and no overlaps.
func (m *SlotTable) Validate() error {
	if m.header == nil {
		return errors.New("slot table is not bound")
	}

	count := m.header.slotCount
	if count < 1 || count > len(m.slots) {
		return errors.Errorf("slot count %d is outside of the valid range [1, %d]", count, len(m.slots))
	}

	offsets := swiss.NewMap[int, int](uint32(count))
	for i, s := range m.Slots() {
		if s.Size < 0 {
			return errors.Errorf("slot at index %d has negative size %d", i, s.Size)
		}
		if !s.Free && s.Size == 0 {
			return errors.Errorf("used slot at index %d has a size of zero", i)
		}

		if other, ok := offsets.Get(s.Offset); ok {
			return errors.Errorf("slots at index %d and %d both start at offset %d", other, i, s.Offset)
		}
		offsets.Put(s.Offset, i)
	}

	sorted := slices.Clone(m.Slots())
	slices.SortFunc(sorted, func(a, b Slot) bool {
		return a.Offset < b.Offset
	})

	nextOffset := 0
	for _, s := range sorted {
		if s.Offset < nextOffset {
			return errors.Errorf("slot at offset %d overlaps the previous slot, which ends at offset %d", s.Offset, nextOffset)
		}
		if s.Offset > nextOffset {
			return errors.Errorf("there is a gap between offset %d and the slot at offset %d", nextOffset, s.Offset)
		}

		nextOffset = s.End()
	}

	if nextOffset != len(m.data) {
		return errors.Errorf("the data region is %d bytes, but the slots only added up to %d", len(m.data), nextOffset)
	}

	return nil
}
