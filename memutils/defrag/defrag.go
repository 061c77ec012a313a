// Package defrag merges runs of adjacent free slots in a metadata.SlotTable. Free slots are never
// merged when they are released, so a long-running arena accumulates fragments that only become
// usable for larger requests once they are compacted.
package defrag

import (
	"github.com/vkngwrapper/shmarena/memutils"
	"github.com/vkngwrapper/shmarena/memutils/metadata"
	"golang.org/x/exp/slices"
)

// Stats contains the results of a single compaction pass
type Stats struct {
	// SlotsBefore is the number of active slots before the pass
	SlotsBefore int
	// SlotsAfter is the number of active slots after the pass
	SlotsAfter int
	// SlotsMerged is the number of free slots that were absorbed into a preceding free neighbor
	SlotsMerged int
	// LargestFreeSlot is the size of the largest free slot after the pass
	LargestFreeSlot int
}

// Add accumulates the results of another pass into s. LargestFreeSlot keeps the largest value seen.
func (s *Stats) Add(stats Stats) {
	s.SlotsBefore += stats.SlotsBefore
	s.SlotsAfter += stats.SlotsAfter
	s.SlotsMerged += stats.SlotsMerged
	if stats.LargestFreeSlot > s.LargestFreeSlot {
		s.LargestFreeSlot = stats.LargestFreeSlot
	}
}

// Compact sorts the slots of the table by offset, then makes a single forward pass that folds every
// free slot directly following another free slot into it. Used slots keep their offset and size and
// are moved forward in the table to close the gaps left by merged entries. The table shrinks by the
// number of merged slots.
//
// Compact never moves allocated memory, so handles held by consumers remain valid.
func Compact(table *metadata.SlotTable) Stats {
	slots := table.Slots()
	stats := Stats{SlotsBefore: len(slots)}

	slices.SortFunc(slots, func(a, b metadata.Slot) bool {
		return a.Offset < b.Offset
	})

	target := 0
	for src := 0; src < len(slots); src++ {
		if target > 0 && slots[src].Free && slots[target-1].Free {
			slots[target-1].Size += slots[src].Size
			continue
		}

		if src != target {
			slots[target] = slots[src]
		}
		target++
	}

	table.Truncate(target)

	stats.SlotsAfter = target
	stats.SlotsMerged = stats.SlotsBefore - target
	for _, s := range table.Slots() {
		if s.Free && s.Size > stats.LargestFreeSlot {
			stats.LargestFreeSlot = s.Size
		}
	}

	memutils.DebugValidate(table)

	return stats
}
