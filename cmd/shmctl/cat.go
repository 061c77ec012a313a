package main

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/spf13/cobra"
	"github.com/vkngwrapper/shmarena"
)

func init() {
	rootCmd.AddCommand(newCatCmd())
}

func newCatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat <arena> <handle>",
		Short: "Print the string stored in an allocation",
		Long: `The cat command prints the NUL-terminated string stored in the
allocation identified by a handle, such as one written with alloc --data.

Example:
  shmctl cat cache.arena 0`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCat(args)
		},
	}
	return cmd
}

func runCat(args []string) error {
	handle, err := parseHandle(args[1])
	if err != nil {
		return err
	}

	return withArena(args[0], func(allocator *shmarena.Allocator) error {
		value, err := allocator.String(handle)
		if err != nil {
			return err
		}

		if jsonOut {
			return printJSON(func(obj *jwriter.ObjectState) {
				obj.Name("handle").Int(int(handle))
				obj.Name("value").String(value)
			})
		}

		printInfo("%s\n", value)
		return nil
	})
}
