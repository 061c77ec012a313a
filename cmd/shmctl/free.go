package main

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/spf13/cobra"
	"github.com/vkngwrapper/shmarena"
)

func init() {
	rootCmd.AddCommand(newFreeCmd())
}

func newFreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "free <arena> <handle>",
		Short: "Free an allocation",
		Long: `The free command releases the allocation identified by a handle
previously printed by alloc or realloc. Freeing a handle twice is an error.

Example:
  shmctl free cache.arena 64`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFree(args)
		},
	}
	return cmd
}

func runFree(args []string) error {
	handle, err := parseHandle(args[1])
	if err != nil {
		return err
	}

	return withArena(args[0], func(allocator *shmarena.Allocator) error {
		if err := allocator.Free(handle); err != nil {
			return err
		}

		if jsonOut {
			return printJSON(func(obj *jwriter.ObjectState) {
				obj.Name("handle").Int(int(handle))
				obj.Name("freed").Bool(true)
			})
		}

		printInfo("Freed %d\n", handle)
		return nil
	})
}
