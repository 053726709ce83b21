package main

import (
	"github.com/citecheck/citecheck/internal/pipeline"
	"github.com/spf13/cobra"
)

func init() {
	resolveCmd.Flags().IntVar(&runConcurrencyFlag, "jobs", 4, "Documents processed in parallel")
	rootCmd.AddCommand(resolveCmd)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <tei-file>...",
	Short: "Resolve bibliography entries to external records",
	Long: `Match markers, then resolve each bibliography entry against Crossref
and OpenAlex by fuzzy title/author/year search.

An entry no provider can match is an unresolved outcome (a possible
fabrication signal), not an error. Set CITECHECK_MAILTO (environment or
.env) to join the providers' polite pools. Writes resolution.json and
resolution.csv per document.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	return runStages(cmd, args, pipeline.Options{Resolve: true})
}
