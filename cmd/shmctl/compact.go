package main

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/spf13/cobra"
	"github.com/vkngwrapper/shmarena"
)

func init() {
	rootCmd.AddCommand(newCompactCmd())
}

func newCompactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compact <arena>",
		Short: "Merge adjacent free slots",
		Long: `The compact command merges every run of adjacent free slots in the
arena into a single slot. Allocations are never moved, so existing handles
stay valid. Allocation compacts on its own when it runs out of room, so this
is mostly useful to inspect fragmentation.

Example:
  shmctl compact cache.arena`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompact(args)
		},
	}
	return cmd
}

func runCompact(args []string) error {
	return withArena(args[0], func(allocator *shmarena.Allocator) error {
		stats, err := allocator.Compact()
		if err != nil {
			return err
		}

		if jsonOut {
			return printJSON(func(obj *jwriter.ObjectState) {
				obj.Name("slots_before").Int(stats.SlotsBefore)
				obj.Name("slots_after").Int(stats.SlotsAfter)
				obj.Name("slots_merged").Int(stats.SlotsMerged)
				obj.Name("largest_free_slot").Int(stats.LargestFreeSlot)
			})
		}

		printInfo("Compacted %s\n", args[0])
		printInfo("  Slots:        %d -> %d\n", stats.SlotsBefore, stats.SlotsAfter)
		printInfo("  Largest free: %d bytes\n", stats.LargestFreeSlot)
		return nil
	})
}
