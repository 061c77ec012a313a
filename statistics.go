package shmarena

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/shmarena/memutils"
)

// CalculateStatistics clears stats and populates it with the current state of the arena. An unbound
// allocator reports empty statistics.
func (a *Allocator) CalculateStatistics(stats *memutils.DetailedStatistics) {
	stats.Clear()

	if !a.slots.IsBound() {
		return
	}

	a.slots.AddDetailedStatistics(stats)
}

// AddStatistics adds the basic usage numbers of the arena to stats without clearing it first, so
// that the totals of several arenas can be gathered into one Statistics. An unbound allocator adds
// nothing.
func (a *Allocator) AddStatistics(stats *memutils.Statistics) {
	if !a.slots.IsBound() {
		return
	}

	a.slots.AddStatistics(stats)
}

// BuildStatsString produces a json document describing the arena. If detailedMap is true, every
// slot in the table is listed as well.
func (a *Allocator) BuildStatsString(detailedMap bool) string {
	var stats memutils.DetailedStatistics
	a.CalculateStatistics(&stats)

	writer := jwriter.NewWriter()
	objState := writer.Object()

	general := objState.Name("General").Object()
	general.Name("Bound").Bool(a.slots.IsBound())
	general.Name("Flags").String(a.createFlags.String())
	classes := general.Name("SizeClasses").Array()
	for _, size := range a.sizeClasses.Classes() {
		classes.Int(size)
	}
	classes.End()
	general.End()

	total := objState.Name("Total").Object()
	printDetailedStatistics(&total, &stats)
	total.End()

	compaction := objState.Name("Compaction").Object()
	compaction.Name("Passes").Int(a.compactionPasses)
	compaction.Name("SlotsMerged").Int(a.compactionTotals.SlotsMerged)
	compaction.Name("LargestFreeSlot").Int(a.compactionTotals.LargestFreeSlot)
	compaction.End()

	if detailedMap && a.slots.IsBound() {
		arena := objState.Name("Arena").Object()
		a.slots.BlockJsonData(&arena)

		slots := arena.Name("Slots").Array()
		_ = a.slots.VisitAllRegions(func(offset int, size int, free bool) error {
			obj := slots.Object()
			defer obj.End()

			obj.Name("Offset").Int(offset)
			obj.Name("Size").Int(size)
			if free {
				obj.Name("Type").String("Free")
			} else {
				obj.Name("Type").String("Used")
			}

			return nil
		})
		slots.End()

		arena.End()
	}

	objState.End()

	return string(writer.Bytes())
}

func printDetailedStatistics(json *jwriter.ObjectState, stats *memutils.DetailedStatistics) {
	json.Name("SlotCount").Int(stats.SlotCount)
	json.Name("AllocationCount").Int(stats.AllocationCount)
	json.Name("UnusedRangeCount").Int(stats.UnusedRangeCount)
	json.Name("ArenaBytes").Int(stats.ArenaBytes)
	json.Name("AllocationBytes").Int(stats.AllocationBytes)

	if stats.AllocationCount > 0 {
		json.Name("AllocationSizeMin").Int(stats.AllocationSizeMin)
		json.Name("AllocationSizeMax").Int(stats.AllocationSizeMax)
	}

	if stats.UnusedRangeCount > 0 {
		json.Name("UnusedRangeSizeMin").Int(stats.UnusedRangeSizeMin)
		json.Name("UnusedRangeSizeMax").Int(stats.UnusedRangeSizeMax)
	}
}
