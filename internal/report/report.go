// Package report writes per-document output artifacts: the match
// summary, the resolution/verification summary, and the citing-to-cited
// alignment list, each as JSON (for downstream stages) and CSV (for
// human reviewers).
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/citecheck/citecheck/internal/citation"
	"github.com/citecheck/citecheck/internal/document"
	"github.com/citecheck/citecheck/internal/resolve"
)

// Artifact filenames within a document's output folder.
const (
	MatchJSON      = "match.json"
	MatchCSV       = "match.csv"
	ResolutionJSON = "resolution.json"
	ResolutionCSV  = "resolution.csv"
	PairsJSON      = "pairs.json"
	PairsCSV       = "pairs.csv"
)

// WriteMatch writes the marker-to-entry match summary.
func WriteMatch(dir string, res *citation.Result) error {
	if err := writeJSON(filepath.Join(dir, MatchJSON), res); err != nil {
		return err
	}

	rows := [][]string{{"marker", "entry_id", "matched", "exact", "similarity"}}
	for _, o := range res.Outcomes {
		rows = append(rows, []string{
			o.RawText,
			o.EntryID,
			strconv.FormatBool(o.Matched),
			strconv.FormatBool(o.Exact),
			formatScore(o.Similarity),
		})
	}
	return writeCSV(filepath.Join(dir, MatchCSV), rows)
}

// ResolutionRow is one bib entry's resolution and verification outcome.
type ResolutionRow struct {
	EntryID              string  `json:"entry_id"`
	Raw                  string  `json:"raw"`
	Identifier           string  `json:"identifier,omitempty"`
	Provider             string  `json:"provider,omitempty"`
	Confidence           float64 `json:"confidence,omitempty"`
	Status               string  `json:"status,omitempty"`
	OpenAccessURL        string  `json:"open_access_url,omitempty"`
	UnavailableProviders string  `json:"unavailable_providers,omitempty"`
}

// WriteResolution writes the per-entry resolution/verification summary.
func WriteResolution(dir string, doc *document.Document, outcomes []*resolve.Outcome) error {
	unavailable := make(map[string]string)
	for _, o := range outcomes {
		if o != nil && len(o.UnavailableProviders) > 0 {
			unavailable[o.EntryID] = strings.Join(o.UnavailableProviders, " ")
		}
	}

	var rowsJSON []ResolutionRow
	rows := [][]string{{"entry_id", "raw", "identifier", "provider", "confidence", "status", "open_access_url", "unavailable_providers"}}
	for _, e := range doc.Entries {
		row := ResolutionRow{
			EntryID:              e.ID,
			Raw:                  e.Raw,
			UnavailableProviders: unavailable[e.ID],
		}
		if e.Resolved != nil {
			row.Identifier = e.Resolved.Identifier
			row.Provider = e.Resolved.Provider
			row.Confidence = e.Resolved.Confidence
			row.Status = string(e.Resolved.Status)
			row.OpenAccessURL = e.Resolved.OpenAccessURL
		}
		rowsJSON = append(rowsJSON, row)
		rows = append(rows, []string{
			row.EntryID, row.Raw, row.Identifier, row.Provider,
			formatScore(row.Confidence), row.Status, row.OpenAccessURL,
			row.UnavailableProviders,
		})
	}

	if err := writeJSON(filepath.Join(dir, ResolutionJSON), rowsJSON); err != nil {
		return err
	}
	return writeCSV(filepath.Join(dir, ResolutionCSV), rows)
}

// WritePairs writes the citing-to-cited alignment list. The CSV carries
// "missing" in place of absent retrieved text, as reviewers expect.
func WritePairs(dir string, pairs []document.CitingPair) error {
	if err := writeJSON(filepath.Join(dir, PairsJSON), pairs); err != nil {
		return err
	}

	rows := [][]string{{"entry_id", "citing_sentence", "cited_record"}}
	for _, p := range pairs {
		cited := p.Identifier
		if p.Missing {
			cited = "missing"
		}
		rows = append(rows, []string{p.EntryID, p.Sentence, cited})
	}
	return writeCSV(filepath.Join(dir, PairsCSV), rows)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func formatScore(s float64) string {
	if s == 0 {
		return ""
	}
	return strconv.FormatFloat(s, 'f', 3, 64)
}
