// Command distqual dispatches a Spark qualification analysis across a batch
// of event logs and combines the per-log results into one report tree.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "distqual",
	Short:   "Distributed Spark event-log qualification",
	Version: version,
	Long: `distqual runs the qualification analysis tool once per Spark event
log, in parallel, then merges every per-log output directory into a single
combined result tree.`,
}

func main() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
