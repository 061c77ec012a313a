package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	quiet      bool
	jsonOut    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "shmctl",
	Short: "Inspect and manipulate shared memory arena files",
	Long: `shmctl creates arena files, allocates and frees slots inside them,
and reports on their state. An arena file can be mapped by any number of
processes at once: every command holds an exclusive lock on the file while
it runs.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output and debug logging")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML file with allocator settings")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		for _, detail := range errors.GetAllDetails(err) {
			fmt.Fprintf(os.Stderr, "DETAIL: %s\n", detail)
		}
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintf(os.Stderr, "HINT: %s\n", hint)
		}
		os.Exit(1)
	}
}

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON writes a single json object built by fill to stdout
func printJSON(fill func(obj *jwriter.ObjectState)) error {
	writer := jwriter.NewWriter()
	obj := writer.Object()
	fill(&obj)
	obj.End()

	if err := writer.Error(); err != nil {
		return errors.Wrap(err, "failed to encode json output")
	}

	_, err := fmt.Fprintln(os.Stdout, string(writer.Bytes()))
	return err
}
