package main

import (
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/spf13/cobra"
	"github.com/vkngwrapper/shmarena"
	"github.com/vkngwrapper/shmarena/memutils"
	"github.com/vkngwrapper/shmarena/shm"
)

var initSize int

func init() {
	cmd := newInitCmd()
	cmd.Flags().IntVar(&initSize, "size", 1<<20, "Size of the arena file in bytes, header included")
	rootCmd.AddCommand(cmd)
}

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init <arena>",
		Short: "Create and format an arena file",
		Long: `The init command creates an arena file of the requested size, or
truncates an existing one, and formats it with an empty slot table. The slot
capacity comes from the config file, or defaults to 512 slots.

Example:
  shmctl init /dev/shm/cache.arena --size 1048576
  shmctl init cache.arena --config arena.toml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(args)
		},
	}
	return cmd
}

func runInit(args []string) (err error) {
	arenaPath := args[0]

	printVerbose("Creating arena: %s (%d bytes)\n", arenaPath, initSize)

	region, err := shm.Create(arenaPath, initSize)
	if err != nil {
		return errors.Wrapf(err, "failed to create arena %s", arenaPath)
	}
	defer func() {
		err = errors.CombineErrors(err, region.Close())
	}()

	return runLocked(region, shmarena.BindCreate, func(allocator *shmarena.Allocator) error {
		var stats memutils.DetailedStatistics
		allocator.CalculateStatistics(&stats)

		if jsonOut {
			return printJSON(func(obj *jwriter.ObjectState) {
				obj.Name("file").String(arenaPath)
				obj.Name("size").Int(region.Size())
				obj.Name("data_bytes").Int(stats.ArenaBytes)
			})
		}

		printInfo("Formatted %s\n", arenaPath)
		printInfo("  Region size: %d bytes\n", region.Size())
		printInfo("  Data size:   %d bytes\n", stats.ArenaBytes)
		return nil
	})
}
