package main

import (
	"fmt"
	"sort"

	"github.com/citecheck/citecheck/internal/config"
	"github.com/citecheck/citecheck/internal/decision"
	"github.com/spf13/cobra"
)

var (
	logStageFlag   string
	logOutcomeFlag string
	logDocFlag     string
	logLimitFlag   int
	logSummaryFlag bool
)

func init() {
	logCmd.Flags().StringVar(&logStageFlag, "stage", "", "Filter by stage (match, resolve, verify, retrieve, align)")
	logCmd.Flags().StringVar(&logOutcomeFlag, "outcome", "", "Filter by outcome (e.g. unmatched, unresolved, gone)")
	logCmd.Flags().StringVar(&logDocFlag, "doc", "", "Filter by document ID")
	logCmd.Flags().IntVar(&logLimitFlag, "limit", 0, "Maximum records to return (0 = all)")
	logCmd.Flags().BoolVar(&logSummaryFlag, "summary", false, "Print outcome counts per stage instead of records")
	rootCmd.AddCommand(logCmd)
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Query the decision log",
	Long: `Query the append-only decision log.

The JSONL log under .citecheck/ is the canonical record; this command
rebuilds the SQLite mirror from it and queries the mirror, so the
filters always reflect the latest appends.`,
	RunE: runLog,
}

func runLog(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()

	recs, err := decision.ReadAll(config.LogPath(root))
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}

	mirror, err := decision.OpenMirror(config.MirrorPath(root))
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	defer mirror.Close()

	if err := mirror.Rebuild(recs); err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if logSummaryFlag {
		return printSummary(mirror)
	}

	filtered, err := mirror.Query(decision.Filter{
		Stage:      logStageFlag,
		Outcome:    logOutcomeFlag,
		DocumentID: logDocFlag,
		Limit:      logLimitFlag,
	})
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		printLogHuman(filtered)
	} else {
		if err := outputJSON(filtered); err != nil {
			exitWithError(ExitError, "encoding JSON: %v", err)
		}
	}
	return nil
}

// printSummary prints outcome counts, per stage or for one stage.
func printSummary(mirror *decision.Mirror) error {
	stages := []string{
		decision.StageMatch, decision.StageResolve, decision.StageVerify,
		decision.StageRetrieve, decision.StageAlign,
	}
	if logStageFlag != "" {
		stages = []string{logStageFlag}
	}

	summary := make(map[string]map[string]int)
	for _, stage := range stages {
		counts, err := mirror.CountByOutcome(stage)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if len(counts) > 0 {
			summary[stage] = counts
		}
	}

	if !humanOutput {
		if err := outputJSON(summary); err != nil {
			exitWithError(ExitError, "encoding JSON: %v", err)
		}
		return nil
	}

	for _, stage := range stages {
		counts, ok := summary[stage]
		if !ok {
			continue
		}
		fmt.Printf("%s:\n", stage)
		outcomes := make([]string, 0, len(counts))
		for o := range counts {
			outcomes = append(outcomes, o)
		}
		sort.Strings(outcomes)
		for _, o := range outcomes {
			fmt.Printf("  %-22s %d\n", o, counts[o])
		}
	}
	return nil
}
