package main

import (
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/spf13/cobra"
	"github.com/vkngwrapper/shmarena"
)

var allocData string

func init() {
	cmd := newAllocCmd()
	cmd.Flags().StringVar(&allocData, "data", "", "Store this string, NUL-terminated, in the new allocation")
	rootCmd.AddCommand(cmd)
}

func newAllocCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alloc <arena> [size]",
		Short: "Allocate a slot",
		Long: `The alloc command reserves a slot in the arena and prints its handle.
The size is rounded up to the next size class. With --data, the string is
copied into the slot, and the size may be left out.

Example:
  shmctl alloc cache.arena 100
  shmctl alloc cache.arena --data "hello"`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAlloc(args)
		},
	}
	return cmd
}

func runAlloc(args []string) error {
	size := 0
	if len(args) > 1 {
		var err error
		size, err = parseSize(args[1])
		if err != nil {
			return err
		}
	} else if allocData == "" {
		return errors.New("either a size or --data is required")
	}

	return withArena(args[0], func(allocator *shmarena.Allocator) error {
		var handle shmarena.Handle
		var err error

		if allocData != "" && size <= len(allocData) {
			handle, err = allocator.CopyString(allocData)
		} else {
			handle, err = allocator.Alloc(size)
			if err == nil && allocData != "" {
				var data []byte
				data, err = allocator.Bytes(handle)
				if err == nil {
					data[copy(data, allocData)] = 0
				}
			}
		}
		if err != nil && handle != shmarena.NoHandle {
			return errors.Wrapf(err, "allocated handle %d, but the arena failed validation", handle)
		} else if err != nil {
			return err
		}

		classSize, err := slotSize(allocator, handle)
		if err != nil {
			return err
		}

		if jsonOut {
			return printJSON(func(obj *jwriter.ObjectState) {
				obj.Name("handle").Int(int(handle))
				obj.Name("size").Int(classSize)
			})
		}

		printVerbose("Allocated %d bytes\n", classSize)
		printInfo("%d\n", handle)
		return nil
	})
}
