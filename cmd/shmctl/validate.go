package main

import (
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/spf13/cobra"
	"github.com/vkngwrapper/shmarena"
)

func init() {
	rootCmd.AddCommand(newValidateCmd())
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <arena>",
		Short: "Check the slot table for consistency",
		Long: `The validate command checks that the slots of an arena cover its data
region exactly, with no gaps, overlaps or duplicate entries. It exits with
a non-zero status if the table is inconsistent.

Example:
  shmctl validate cache.arena
  shmctl validate cache.arena --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(args)
		},
	}
	return cmd
}

func runValidate(args []string) error {
	arenaPath := args[0]

	return withArena(arenaPath, func(allocator *shmarena.Allocator) error {
		validationErr := allocator.Validate()

		if jsonOut {
			err := printJSON(func(obj *jwriter.ObjectState) {
				obj.Name("file").String(arenaPath)
				obj.Name("valid").Bool(validationErr == nil)
				if validationErr != nil {
					obj.Name("error").String(validationErr.Error())
				}
			})
			if err != nil {
				return err
			}
		} else if validationErr == nil {
			printInfo("%s is valid\n", arenaPath)
		}

		if validationErr != nil {
			return errors.Wrapf(validationErr, "%s is corrupted", arenaPath)
		}
		return nil
	})
}
