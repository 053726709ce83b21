package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/citecheck/citecheck/internal/citation"
	"github.com/citecheck/citecheck/internal/document"
	"github.com/citecheck/citecheck/internal/resolve"
)

func TestWriteMatch(t *testing.T) {
	dir := t.TempDir()
	res := &citation.Result{
		DocumentID: "paper",
		Outcomes: []citation.MarkerOutcome{
			{RawText: "(Smith, 2020)", EntryID: "b0", Matched: true, Exact: true, Similarity: 1},
			{RawText: "(Nguyen, 1990)"},
		},
		Unmatched: []string{"(Nguyen, 1990)"},
	}

	if err := WriteMatch(dir, res); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, MatchJSON))
	if err != nil {
		t.Fatal(err)
	}
	var loaded citation.Result
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatal(err)
	}
	if len(loaded.Outcomes) != 2 {
		t.Errorf("expected 2 outcomes in JSON, got %d", len(loaded.Outcomes))
	}

	rows := readCSV(t, filepath.Join(dir, MatchCSV))
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[1][0] != "(Smith, 2020)" || rows[1][2] != "true" {
		t.Errorf("unexpected first row: %v", rows[1])
	}
}

func TestWriteResolution(t *testing.T) {
	dir := t.TempDir()
	doc := &document.Document{
		ID: "paper",
		Entries: []document.BibEntry{
			{ID: "b0", Raw: "Smith 2020", Resolved: &document.ResolvedRecord{
				Identifier: "10.1/x", Provider: "crossref", Confidence: 0.93,
				Status: document.StatusVerified, OpenAccessURL: "https://example.org/p.pdf",
			}},
			{ID: "b1", Raw: "Unresolvable entry"},
		},
	}
	outcomes := []*resolve.Outcome{
		{EntryID: "b0"},
		{EntryID: "b1", UnavailableProviders: []string{"openalex"}},
	}

	if err := WriteResolution(dir, doc, outcomes); err != nil {
		t.Fatal(err)
	}

	rows := readCSV(t, filepath.Join(dir, ResolutionCSV))
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[1][2] != "10.1/x" || rows[1][5] != "verified" {
		t.Errorf("unexpected resolved row: %v", rows[1])
	}
	// Unresolved entry keeps its raw text and carries no identifier
	if rows[2][1] != "Unresolvable entry" || rows[2][2] != "" {
		t.Errorf("unexpected unresolved row: %v", rows[2])
	}
	if rows[2][7] != "openalex" {
		t.Errorf("expected unavailable provider noted, got %v", rows[2])
	}
}

func TestWritePairs_MissingConvention(t *testing.T) {
	dir := t.TempDir()
	pairs := []document.CitingPair{
		{EntryID: "b0", Sentence: "Claim one.", Identifier: "10.1/x", Retrieved: "text"},
		{EntryID: "b1", Sentence: "Claim two.", Identifier: "10.1/y", Missing: true},
	}

	if err := WritePairs(dir, pairs); err != nil {
		t.Fatal(err)
	}

	rows := readCSV(t, filepath.Join(dir, PairsCSV))
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[1][2] != "10.1/x" {
		t.Errorf("expected the identifier for a paired row, got %q", rows[1][2])
	}
	if rows[2][2] != "missing" {
		t.Errorf("expected the missing placeholder, got %q", rows[2][2])
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}
