package main

import (
	"github.com/citecheck/citecheck/internal/pipeline"
	"github.com/spf13/cobra"
)

func init() {
	retrieveCmd.Flags().IntVar(&runConcurrencyFlag, "jobs", 4, "Documents processed in parallel")
	rootCmd.AddCommand(retrieveCmd)
}

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <tei-file>...",
	Short: "Fetch open-access copies of verified records",
	Long: `Run match, resolve and verify, then download the open-access PDF of
every verified record into the document's output folder.

When grobid-url is configured and the service is healthy, PDFs are
converted to sentence-segmented TEI; otherwise text is extracted
locally. A record whose content cannot be obtained is a not_retrievable
outcome, not an error.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRetrieve,
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	return runStages(cmd, args, pipeline.Options{Resolve: true, Verify: true, Retrieve: true})
}
