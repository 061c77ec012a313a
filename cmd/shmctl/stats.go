package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vkngwrapper/shmarena"
	"github.com/vkngwrapper/shmarena/memutils"
)

var statsDetailed bool

func init() {
	cmd := newStatsCmd()
	cmd.Flags().BoolVar(&statsDetailed, "detailed", false, "Include every slot in the output")
	rootCmd.AddCommand(cmd)
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <arena>...",
		Short: "Show arena statistics",
		Long: `The stats command shows how much of an arena is in use, how many
slots the slot table holds and how fragmented the free space is. With
--verbose, every live allocation is also written to the debug log.

When several arenas are given, each is reported in turn followed by their
combined totals. With --json, one document is written per arena, one per line.

Example:
  shmctl stats cache.arena
  shmctl stats cache.arena --json --detailed
  shmctl stats sessions.arena tokens.arena`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(args)
		},
	}
	return cmd
}

func runStats(args []string) error {
	var total memutils.Statistics

	for _, arenaPath := range args {
		err := withArena(arenaPath, func(allocator *shmarena.Allocator) error {
			var stats memutils.Statistics
			allocator.AddStatistics(&stats)
			total.AddStatistics(&stats)

			return printArenaStats(arenaPath, allocator)
		})
		if err != nil {
			return err
		}
	}

	if len(args) > 1 && !jsonOut {
		printInfo("Total of %d arenas:\n", len(args))
		printInfo("  Data size:       %d bytes\n", total.ArenaBytes)
		printInfo("  Allocated:       %d bytes in %d allocations\n", total.AllocationBytes, total.AllocationCount)
		printInfo("  Free:            %d bytes\n", total.FreeBytes())
		printInfo("  Slots:           %d\n", total.SlotCount)
	}

	return nil
}

func printArenaStats(arenaPath string, allocator *shmarena.Allocator) error {
	allocator.DebugLogAllAllocations()

	if jsonOut {
		_, err := fmt.Fprintln(os.Stdout, allocator.BuildStatsString(statsDetailed))
		return err
	}

	var stats memutils.DetailedStatistics
	allocator.CalculateStatistics(&stats)

	printInfo("Arena: %s\n", arenaPath)
	printInfo("  Data size:       %d bytes\n", stats.ArenaBytes)
	printInfo("  Allocated:       %d bytes in %d allocations\n", stats.AllocationBytes, stats.AllocationCount)
	printInfo("  Free:            %d bytes in %d ranges\n", stats.FreeBytes(), stats.UnusedRangeCount)
	printInfo("  Largest free:    %d bytes\n", stats.LargestFreeRange())
	printInfo("  Slots:           %d\n", stats.SlotCount)
	printInfo("  Size classes:    %v\n", allocator.SizeClasses().Classes())

	if statsDetailed {
		printInfo("\n%s\n", allocator.BuildStatsString(true))
	}

	return nil
}
