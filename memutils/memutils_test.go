package memutils_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/shmarena/memutils"
)

func TestAlignUp(t *testing.T) {
	require.Equal(t, 0, memutils.AlignUp(0, 16))
	require.Equal(t, 16, memutils.AlignUp(1, 16))
	require.Equal(t, 16, memutils.AlignUp(16, 16))
	require.Equal(t, 12320, memutils.AlignUp(12312, 16))
	require.Equal(t, 7, memutils.AlignUp(7, 1))
}

func TestCheckPow2(t *testing.T) {
	require.NoError(t, memutils.CheckPow2(1, "one"))
	require.NoError(t, memutils.CheckPow2(uint(16), "sixteen"))
	require.Error(t, memutils.CheckPow2(0, "zero"))
	require.Error(t, memutils.CheckPow2(-4, "negative"))
	require.EqualError(t, memutils.CheckPow2(24, "DataAlignment"), "DataAlignment must be a power of two, but is 24")
}

func TestFillFreed(t *testing.T) {
	data := []byte("live")
	require.False(t, memutils.IsFilledFreed(data))

	memutils.FillFreed(data)
	require.Equal(t, []byte("####"), data)
	require.True(t, memutils.IsFilledFreed(data))
	require.True(t, memutils.IsFilledFreed(nil))
}

func TestDetailedStatistics(t *testing.T) {
	var stats memutils.DetailedStatistics
	stats.Clear()
	require.Equal(t, 0, stats.LargestFreeRange())

	stats.SlotCount = 4
	stats.ArenaBytes = 512
	stats.AddAllocation(64)
	stats.AddAllocation(256)
	stats.AddUnusedRange(96)
	stats.AddUnusedRange(96)

	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			SlotCount:       4,
			AllocationCount: 2,
			ArenaBytes:      512,
			AllocationBytes: 320,
		},
		UnusedRangeCount:   2,
		AllocationSizeMin:  64,
		AllocationSizeMax:  256,
		UnusedRangeSizeMin: 96,
		UnusedRangeSizeMax: 96,
	}, stats)
	require.Equal(t, 96, stats.LargestFreeRange())
	require.Equal(t, 192, stats.FreeBytes())

	stats.Clear()
	require.Equal(t, math.MaxInt, stats.AllocationSizeMin)
	require.Equal(t, math.MaxInt, stats.UnusedRangeSizeMin)
	require.Zero(t, stats.AllocationCount)
}

func TestStatisticsAccessorsOnReturnedValues(t *testing.T) {
	detailed := func() memutils.DetailedStatistics {
		var stats memutils.DetailedStatistics
		stats.Clear()
		stats.ArenaBytes = 256
		stats.AddAllocation(64)
		stats.AddUnusedRange(192)
		return stats
	}

	require.Equal(t, 192, detailed().LargestFreeRange())
	require.Equal(t, 192, detailed().FreeBytes())
	require.Equal(t, 40, memutils.Statistics{ArenaBytes: 100, AllocationBytes: 60}.FreeBytes())
}

func TestStatisticsAdd(t *testing.T) {
	stats := memutils.Statistics{SlotCount: 1, AllocationCount: 1, ArenaBytes: 100, AllocationBytes: 32}
	stats.AddStatistics(&memutils.Statistics{SlotCount: 2, AllocationCount: 1, ArenaBytes: 200, AllocationBytes: 64})

	require.Equal(t, memutils.Statistics{SlotCount: 3, AllocationCount: 2, ArenaBytes: 300, AllocationBytes: 96}, stats)
}
