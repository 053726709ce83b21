package main

import (
	"github.com/citecheck/citecheck/internal/pipeline"
	"github.com/spf13/cobra"
)

func init() {
	runCmd.Flags().IntVar(&runConcurrencyFlag, "jobs", 4, "Documents processed in parallel")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run <tei-file>...",
	Short: "Run the full pipeline",
	Long: `Run every stage over the given TEI documents: match markers, resolve
entries, verify records, retrieve open-access copies, and pair each
citing sentence with its cited record's text.

Writes match, resolution and pairs artifacts (JSON and CSV) into each
document's output folder and appends every decision to the log.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	return runStages(cmd, args, pipeline.Options{Resolve: true, Verify: true, Retrieve: true, Align: true})
}
