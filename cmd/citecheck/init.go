package main

import (
	"fmt"

	"github.com/citecheck/citecheck/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a citecheck workspace",
	Long: `Initialize a citecheck workspace in the given directory (default:
the current directory).

Creates a .citecheck/ directory holding pipeline.yml with default
parameters, the append-only decision log, and its queryable mirror.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}

	if err := config.InitWorkspace(root); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	if humanOutput {
		fmt.Printf("Initialized citecheck workspace in %s\n", config.CitecheckPath(root))
	} else {
		outputJSON(StatusResponse{Status: "initialized", Path: config.CitecheckPath(root)})
	}
	return nil
}
