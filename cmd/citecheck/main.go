// Package main provides the citecheck CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/citecheck/citecheck/internal/config"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "citecheck",
	Short: "Citation resolution and verification pipeline",
	Long: `citecheck verifies that the citations in an academic document are
well-formed and point at real, retrievable work.

Stages:
  - match:    in-text citation markers against the bibliography
  - resolve:  bibliography entries against Crossref/OpenAlex records
  - verify:   resolved DOIs against the DOI resolver and open-access sources
  - retrieve: open-access PDFs, converted to structured text via GROBID
  - align:    citing sentences paired with retrieved cited text

Every decision lands in an append-only log under .citecheck/ for audit.
All commands output JSON by default for downstream tooling.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.Version = Version
}

// mustFindWorkspace locates the enclosing workspace or exits.
func mustFindWorkspace() string {
	cwd, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting working directory: %v", err)
	}
	root, err := config.FindWorkspace(cwd)
	if err != nil {
		exitWithError(ExitConfigError, "%v (run 'citecheck init' first)", err)
	}
	return root
}

// mustLoadPipeline loads pipeline.yml for the workspace or exits.
func mustLoadPipeline(root string) *config.Pipeline {
	cfg, err := config.LoadPipeline(config.PipelinePath(root))
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return cfg
}
