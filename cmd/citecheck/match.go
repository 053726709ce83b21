package main

import (
	"github.com/citecheck/citecheck/internal/pipeline"
	"github.com/spf13/cobra"
)

func init() {
	matchCmd.Flags().IntVar(&runConcurrencyFlag, "jobs", 4, "Documents processed in parallel")
	rootCmd.AddCommand(matchCmd)
}

var matchCmd = &cobra.Command{
	Use:   "match <tei-file>...",
	Short: "Match citation markers against the bibliography",
	Long: `Match every in-text citation marker in the given TEI documents
against their bibliographies.

Unmatched markers and uncited bibliography entries are reported as
distinct outcome categories; both are stuffing signals. Writes match.json
and match.csv into each document's output folder. Runs offline.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMatch,
}

func runMatch(cmd *cobra.Command, args []string) error {
	return runStages(cmd, args, pipeline.Options{})
}
