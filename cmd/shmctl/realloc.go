package main

import (
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/spf13/cobra"
	"github.com/vkngwrapper/shmarena"
)

func init() {
	rootCmd.AddCommand(newReallocCmd())
}

func newReallocCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "realloc <arena> <handle> <size>",
		Short: "Grow an allocation",
		Long: `The realloc command makes sure an allocation can hold at least the
requested number of bytes and prints the handle to use from now on. When the
current slot is already large enough the handle does not change. Otherwise
the contents are moved to a new slot and the old handle becomes invalid.

Example:
  shmctl realloc cache.arena 64 500`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRealloc(args)
		},
	}
	return cmd
}

func runRealloc(args []string) error {
	handle, err := parseHandle(args[1])
	if err != nil {
		return err
	}

	size, err := parseSize(args[2])
	if err != nil {
		return err
	}

	return withArena(args[0], func(allocator *shmarena.Allocator) error {
		newHandle, err := allocator.Realloc(handle, size)
		if err != nil && newHandle != shmarena.NoHandle {
			return errors.Wrapf(err, "moved %d to %d, but the arena failed validation", handle, newHandle)
		} else if err != nil {
			return err
		}

		classSize, err := slotSize(allocator, newHandle)
		if err != nil {
			return err
		}

		if jsonOut {
			return printJSON(func(obj *jwriter.ObjectState) {
				obj.Name("handle").Int(int(newHandle))
				obj.Name("previous_handle").Int(int(handle))
				obj.Name("size").Int(classSize)
				obj.Name("moved").Bool(newHandle != handle)
			})
		}

		if newHandle != handle {
			printVerbose("Moved %d to %d\n", handle, newHandle)
		}
		printInfo("%d\n", newHandle)
		return nil
	})
}
