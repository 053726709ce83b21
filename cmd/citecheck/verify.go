package main

import (
	"github.com/citecheck/citecheck/internal/pipeline"
	"github.com/spf13/cobra"
)

func init() {
	verifyCmd.Flags().IntVar(&runConcurrencyFlag, "jobs", 4, "Documents processed in parallel")
	rootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify <tei-file>...",
	Short: "Verify that resolved records still dereference",
	Long: `Match, resolve, then probe each resolved identifier against the DOI
resolver and check OpenAlex/Unpaywall for an open-access copy.

Each record ends verified (live with an open-access copy), unavailable
(exists but not retrievable, or the check stayed inconclusive), or gone
(the identifier no longer resolves). Statuses only move forward.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	return runStages(cmd, args, pipeline.Options{Resolve: true, Verify: true})
}
