package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/citecheck/citecheck/internal/decision"
	"github.com/citecheck/citecheck/internal/document"
	"github.com/citecheck/citecheck/internal/pipeline"
)

// SentenceMaxLen truncates citing sentences in human-readable output.
const SentenceMaxLen = 70

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// RunResponse is the JSON envelope for stage commands: per-document
// results plus per-document errors, so one malformed input does not hide
// the rest of the batch.
type RunResponse struct {
	Results []*pipeline.DocumentResult `json:"results"`
	Errors  []string                   `json:"errors,omitempty"`
}

// printDocumentHuman prints one document's result as a summary block.
func printDocumentHuman(res *pipeline.DocumentResult) {
	fmt.Printf("%s\n", res.DocumentID)
	if res.Match != nil {
		fmt.Printf("  markers:   %d matched, %d unmatched, %d uncited entries\n",
			len(res.Match.Outcomes)-len(res.Match.Unmatched),
			len(res.Match.Unmatched), len(res.Match.Uncited))
	}

	resolved, verified, unavailable, gone := 0, 0, 0, 0
	for _, e := range res.Entries {
		if e.Resolved == nil {
			continue
		}
		resolved++
		switch e.Resolved.Status {
		case document.StatusVerified:
			verified++
		case document.StatusUnavailable:
			unavailable++
		case document.StatusGone:
			gone++
		}
	}
	if resolved > 0 {
		fmt.Printf("  resolved:  %d of %d entries\n", resolved, len(res.Entries))
	}
	if verified+unavailable+gone > 0 {
		fmt.Printf("  verified:  %d verified, %d unavailable, %d gone\n", verified, unavailable, gone)
	}
	if res.Coverage != nil {
		fmt.Printf("  pairs:     %d paired, %d missing of %d\n",
			res.Coverage.Paired, res.Coverage.Missing, res.Coverage.Total)
	}
	fmt.Println()
}

// printLogHuman prints decision records one per line.
func printLogHuman(recs []decision.Record) {
	for _, r := range recs {
		line := fmt.Sprintf("%6d  %s  %-8s %-20s %-20s %s",
			r.Seq, r.Timestamp.Format("2006-01-02 15:04:05"),
			r.Stage, truncateString(r.ItemID, 20), r.Outcome,
			truncateString(r.Rationale, SentenceMaxLen))
		fmt.Println(strings.TrimRight(line, " "))
	}
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
