package memutils

import "math"

// Statistics contains basic usage numbers for a bound arena
type Statistics struct {
	// SlotCount is the number of entries currently recorded in the slot table, free or used
	SlotCount int
	// AllocationCount is the number of slots currently handed out to consumers
	AllocationCount int
	// ArenaBytes is the size of the data region in bytes
	ArenaBytes int
	// AllocationBytes is the sum of the class sizes of all live allocations
	AllocationBytes int
}

func (s *Statistics) Clear() {
	s.SlotCount = 0
	s.AllocationCount = 0
	s.ArenaBytes = 0
	s.AllocationBytes = 0
}

// AddStatistics adds the numbers in other to s
func (s *Statistics) AddStatistics(other *Statistics) {
	s.SlotCount += other.SlotCount
	s.AllocationCount += other.AllocationCount
	s.ArenaBytes += other.ArenaBytes
	s.AllocationBytes += other.AllocationBytes
}

// FreeBytes is the number of bytes of the data region not held by a live allocation
func (s Statistics) FreeBytes() int {
	return s.ArenaBytes - s.AllocationBytes
}

type DetailedStatistics struct {
	Statistics
	UnusedRangeCount   int
	AllocationSizeMin  int
	AllocationSizeMax  int
	UnusedRangeSizeMin int
	UnusedRangeSizeMax int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.UnusedRangeCount = 0
	s.AllocationSizeMin = math.MaxInt
	s.AllocationSizeMax = 0
	s.UnusedRangeSizeMin = math.MaxInt
	s.UnusedRangeSizeMax = 0
}

func (s *DetailedStatistics) AddUnusedRange(size int) {
	s.UnusedRangeCount++

	if size < s.UnusedRangeSizeMin {
		s.UnusedRangeSizeMin = size
	}

	if size > s.UnusedRangeSizeMax {
		s.UnusedRangeSizeMax = size
	}
}

func (s *DetailedStatistics) AddAllocation(size int) {
	s.AllocationCount++
	s.AllocationBytes += size

	if size < s.AllocationSizeMin {
		s.AllocationSizeMin = size
	}

	if size > s.AllocationSizeMax {
		s.AllocationSizeMax = size
	}
}

// LargestFreeRange returns the size of the largest free slot, or 0 if there are none. Because free
// slots are only merged during compaction, this is a lower bound on the largest request the arena can
// satisfy without compacting.
func (s DetailedStatistics) LargestFreeRange() int {
	if s.UnusedRangeCount == 0 {
		return 0
	}
	return s.UnusedRangeSizeMax
}
